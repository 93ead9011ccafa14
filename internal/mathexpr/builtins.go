package mathexpr

import (
	"math"
	"math/rand/v2"
)

type binaryOp struct {
	precedence int
	rightAssoc bool
	apply      func(a, b float64) float64
}

// Word operators ("mod", "and", ...) share the table with symbols.
var binaryOps = map[string]binaryOp{
	"&":   {0, false, bitwise(func(a, b int64) int64 { return a & b })},
	"and": {0, false, bitwise(func(a, b int64) int64 { return a & b })},
	"|":   {0, false, bitwise(func(a, b int64) int64 { return a | b })},
	"or":  {0, false, bitwise(func(a, b int64) int64 { return a | b })},
	"xor": {0, false, bitwise(func(a, b int64) int64 { return a ^ b })},
	"<<":  {0, false, shift(func(a int64, n uint) int64 { return a << n })},
	">>":  {0, false, shift(func(a int64, n uint) int64 { return a >> n })},
	"+":   {1, false, func(a, b float64) float64 { return a + b }},
	"-":   {1, false, func(a, b float64) float64 { return a - b }},
	"*":   {2, false, func(a, b float64) float64 { return a * b }},
	"/":   {2, false, func(a, b float64) float64 { return a / b }},
	"%":   {2, false, math.Mod},
	"mod": {2, false, math.Mod},
	"^":   {3, true, math.Pow},
}

type function struct {
	arity int
	apply func(args []float64) float64
}

func unary(fn func(float64) float64) function {
	return function{arity: 1, apply: func(a []float64) float64 { return fn(a[0]) }}
}

func binary(fn func(a, b float64) float64) function {
	return function{arity: 2, apply: func(a []float64) float64 { return fn(a[0], a[1]) }}
}

var functions = map[string]function{
	"pow":  binary(math.Pow),
	"sqrt": unary(math.Sqrt),
	"exp":  unary(math.Exp),
	"ln":   unary(math.Log),
	"lg":   unary(math.Log10),
	"log2": unary(math.Log2),
	// log(base, x)
	"log":   binary(func(base, x float64) float64 { return math.Log(x) / math.Log(base) }),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  unary(math.Asin),
	"acos":  unary(math.Acos),
	"atan":  unary(math.Atan),
	"max":   binary(math.Max),
	"min":   binary(math.Min),
	"abs":   unary(math.Abs),
	"round": unary(math.Round),
	"ceil":  unary(math.Ceil),
	"floor": unary(math.Floor),
	"rand":  binary(randInt),
	"randf": binary(randFloat),
}

var constants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"phi": math.Phi,
}

// reserved reports whether name cannot be used as a variable.
func reserved(name string) bool {
	if _, ok := constants[name]; ok {
		return true
	}
	if _, ok := functions[name]; ok {
		return true
	}
	_, ok := binaryOps[name]
	return ok
}

func integral(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v) && math.Floor(v) == v
}

// bitwise operators yield 0 unless both operands are whole numbers.
func bitwise(fn func(a, b int64) int64) func(a, b float64) float64 {
	return func(a, b float64) float64 {
		if !integral(a) || !integral(b) {
			return 0
		}
		return float64(fn(int64(a), int64(b)))
	}
}

func shift(fn func(a int64, n uint) int64) func(a, b float64) float64 {
	return func(a, b float64) float64 {
		if !integral(a) || !integral(b) || b < 0 || b > 63 {
			return 0
		}
		return float64(fn(int64(a), uint(b)))
	}
}

func randInt(lo, hi float64) float64 {
	if lo > hi {
		return 0
	}
	a, b := int64(lo), int64(hi)
	n := b - a + 1
	if n <= 0 {
		// range wider than int64
		return float64(a)
	}
	return float64(a + rand.Int64N(n))
}

func randFloat(lo, hi float64) float64 {
	if lo > hi {
		return 0
	}
	return lo + rand.Float64()*(hi-lo)
}

// Package mathexpr parses and evaluates arithmetic expressions with
// per-requester variables.
package mathexpr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrMalformed is returned for any expression the engine cannot evaluate.
var ErrMalformed = errors.New("malformed expression")

// OutputPrecision is the number of significant digits in formatted results.
const OutputPrecision = 12

// State holds the variables assigned by one requester.
type State struct {
	vars map[string]float64
}

// NewState creates an empty variable state.
func NewState() *State {
	return &State{vars: make(map[string]float64)}
}

// Get returns the value of a variable.
func (s *State) Get(name string) (float64, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Len returns the number of assigned variables.
func (s *State) Len() int { return len(s.vars) }

// Eval evaluates expression. Assignments are written to st only when the
// whole expression evaluates successfully. A nil st rejects assignments.
func Eval(expression string, st *State) (float64, error) {
	toks, err := lex(expression)
	if err != nil {
		return 0, err
	}
	p := &parser{toks: toks, state: st}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return 0, p.unexpected(t)
	}
	if st != nil {
		for name, val := range p.assigned {
			st.vars[name] = val
		}
	}
	return v, nil
}

// Format renders a result the way the engine reports it.
func Format(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', OutputPrecision, 64)
}

type parser struct {
	toks     []token
	pos      int
	state    *State
	assigned map[string]float64
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) unexpected(t token) error {
	if t.kind == tokEOF {
		return fmt.Errorf("%w: unexpected end of input", ErrMalformed)
	}
	return fmt.Errorf("%w: unexpected %q at %d", ErrMalformed, t.text, t.pos)
}

// parseExpr handles assignment, the loosest binding form.
func (p *parser) parseExpr() (float64, error) {
	if t := p.peek(); t.kind == tokIdent && p.peekAt(1).kind == tokAssign {
		if p.state == nil || reserved(t.text) {
			return 0, fmt.Errorf("%w: cannot assign to %q", ErrMalformed, t.text)
		}
		p.next()
		p.next()
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.assigned == nil {
			p.assigned = make(map[string]float64)
		}
		p.assigned[t.text] = v
		return v, nil
	}
	return p.parseBinary(0)
}

func (p *parser) peekBinary() (binaryOp, bool) {
	t := p.peek()
	if t.kind != tokOperator && t.kind != tokIdent {
		return binaryOp{}, false
	}
	op, ok := binaryOps[t.text]
	return op, ok
}

func (p *parser) parseBinary(minPrec int) (float64, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peekBinary()
		if !ok || op.precedence < minPrec {
			return lhs, nil
		}
		p.next()
		nextPrec := op.precedence + 1
		if op.rightAssoc {
			nextPrec = op.precedence
		}
		rhs, err := p.parseBinary(nextPrec)
		if err != nil {
			return 0, err
		}
		lhs = op.apply(lhs, rhs)
	}
}

// parseUnary binds a leading minus to the operand that follows it, tighter
// than any binary operator: -2^2 is 4.
func (p *parser) parseUnary() (float64, error) {
	if t := p.peek(); t.kind == tokOperator && t.text == "-" {
		p.next()
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return t.value, nil
	case tokLParen:
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if c := p.next(); c.kind != tokRParen {
			return 0, p.unexpected(c)
		}
		return v, nil
	case tokIdent:
		return p.parseName(t)
	}
	return 0, p.unexpected(t)
}

func (p *parser) parseName(t token) (float64, error) {
	if fn, ok := functions[t.text]; ok {
		return p.parseCall(t.text, fn)
	}
	if v, ok := constants[t.text]; ok {
		return v, nil
	}
	if v, ok := p.assigned[t.text]; ok {
		return v, nil
	}
	if p.state != nil {
		if v, ok := p.state.Get(t.text); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown name %q", ErrMalformed, t.text)
}

// parseCall reads f(a, b) or, for one-argument functions, f x.
func (p *parser) parseCall(name string, fn function) (float64, error) {
	if p.peek().kind != tokLParen {
		if fn.arity != 1 {
			return 0, fmt.Errorf("%w: %s needs %d arguments", ErrMalformed, name, fn.arity)
		}
		arg, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return fn.apply([]float64{arg}), nil
	}
	p.next()

	var args []float64
	for {
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		args = append(args, v)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if c := p.next(); c.kind != tokRParen {
		return 0, p.unexpected(c)
	}
	if len(args) != fn.arity {
		return 0, fmt.Errorf("%w: %s needs %d arguments, got %d", ErrMalformed, name, fn.arity, len(args))
	}
	return fn.apply(args), nil
}

package mathexpr

import "sync"

// Engine evaluates expressions, keeping a separate State per requester.
// States live only as long as the Engine.
type Engine struct {
	mu     sync.Mutex
	states map[int64]*State
}

// NewEngine creates an engine with no requester states.
func NewEngine() *Engine {
	return &Engine{states: make(map[int64]*State)}
}

// Evaluate evaluates expression in the requester's state and returns the
// formatted result.
func (e *Engine) Evaluate(requesterID int64, expression string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[requesterID]
	if !ok {
		st = NewState()
		e.states[requesterID] = st
	}
	v, err := Eval(expression, st)
	if err != nil {
		return "", err
	}
	return Format(v), nil
}

// Requesters returns the number of requesters with a state.
func (e *Engine) Requesters() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.states)
}

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdelaire/evalbot/core"
	"github.com/jdelaire/evalbot/internal/mathexpr"
)

// Local evaluates expressions in-process. A panic inside the math engine is
// reported as a FailureEngine outcome.
type Local struct {
	engine *mathexpr.Engine
}

// NewLocal creates a Local evaluator with fresh requester states.
func NewLocal() *Local {
	return &Local{engine: mathexpr.NewEngine()}
}

// Evaluate implements core.Evaluator.
func (l *Local) Evaluate(_ context.Context, expression string, requesterID int64, maxLen int) (out core.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = core.Failure(core.FailureEngine, fmt.Errorf("engine panic: %v", r))
		}
	}()

	text, err := l.engine.Evaluate(requesterID, expression)
	if err != nil {
		if errors.Is(err, mathexpr.ErrMalformed) {
			return core.Failure(core.FailureMalformed, err)
		}
		return core.Failure(core.FailureEngine, err)
	}
	return core.Success(clip(text, maxLen))
}

// Package engine implements core.Evaluator on top of the math expression
// engine, either in-process or in an isolated child process.
package engine

import (
	"errors"

	"github.com/jdelaire/evalbot/core"
)

// ErrEngineLoad is returned when the engine cannot be brought up at startup.
var ErrEngineLoad = errors.New("engine load failed")

// Modes accepted by engine.mode.
const (
	ModeProcess = "process"
	ModeLocal   = "local"
)

// clip applies the engine's output bound: results occupy at most maxLen-1
// bytes, as if written into a NUL-terminated buffer of maxLen.
func clip(s string, maxLen int) string {
	return core.Truncate(s, maxLen-1)
}

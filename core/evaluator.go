package core

import (
	"context"
	"unicode/utf8"
)

// Replies for failed evaluations.
const (
	MalformedReply   = "Malformed expression."
	EngineErrorReply = "An error has occurred while trying to evaluate the expression."
)

// FailureKind classifies a failed evaluation.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureMalformed: the engine rejected the expression.
	FailureMalformed
	// FailureEngine: the engine faulted or answered abnormally.
	FailureEngine
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return ""
	case FailureMalformed:
		return "malformed"
	case FailureEngine:
		return "engine"
	}
	return "unknown"
}

// Outcome is the result of one evaluation: either a result text or a
// failure kind with the underlying reason.
type Outcome struct {
	Text    string
	Failure FailureKind
	Err     error
}

// Success returns a successful outcome.
func Success(text string) Outcome { return Outcome{Text: text} }

// Failure returns a failed outcome.
func Failure(kind FailureKind, err error) Outcome {
	return Outcome{Failure: kind, Err: err}
}

// OK reports whether the evaluation succeeded.
func (o Outcome) OK() bool { return o.Failure == FailureNone }

// Evaluator is the boundary to the evaluation engine. Implementations must
// return a Text no longer than maxLen bytes and must turn any engine fault
// into a FailureEngine outcome instead of panicking or returning an error.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, requesterID int64, maxLen int) Outcome
}

// ReplyText maps an outcome to the message sent back to the chat.
func ReplyText(o Outcome, maxLen int) string {
	switch o.Failure {
	case FailureNone:
		return o.Text
	case FailureMalformed:
		return Truncate(MalformedReply, maxLen)
	default:
		return Truncate(EngineErrorReply, maxLen)
	}
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

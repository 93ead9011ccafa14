package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/jdelaire/evalbot/core"
)

// ExitCommand ends a REPL session.
const ExitCommand = "exit"

// REPL reads one expression per line from in and prints each result to out,
// sharing one requester state for the whole session.
type REPL struct {
	Evaluator   core.Evaluator
	MaxLen      int
	RequesterID int64
}

// Run loops until in is exhausted, ctx is done or a line equals "exit".
func (r *REPL) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, TitleStyle.Render("Enter a mathematical expression:"))

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := scanner.Text()
		if line == ExitCommand {
			return nil
		}

		o := r.Evaluator.Evaluate(ctx, line, r.RequesterID, r.MaxLen)
		prompt := PromptStyle.Render(">")
		switch o.Failure {
		case core.FailureNone:
			fmt.Fprintf(out, "%s %s\n\n", prompt, ResultStyle.Render(o.Text))
		case core.FailureMalformed:
			fmt.Fprintf(out, "%s %s\n\n", prompt, ErrStyle.Render(core.MalformedReply))
		default:
			fmt.Fprintf(out, "%s %s %s\n\n", prompt, ErrStyle.Render(core.EngineErrorReply), DimStyle.Render(fmt.Sprint(o.Err)))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

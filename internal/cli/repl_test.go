package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jdelaire/evalbot/core"
)

type scriptedEvaluator struct {
	got []string
}

func (s *scriptedEvaluator) Evaluate(_ context.Context, expression string, _ int64, _ int) core.Outcome {
	s.got = append(s.got, expression)
	switch expression {
	case "bad":
		return core.Failure(core.FailureMalformed, errors.New("bad"))
	case "crash":
		return core.Failure(core.FailureEngine, errors.New("engine died"))
	}
	return core.Success("=" + expression)
}

func TestREPL(t *testing.T) {
	ev := &scriptedEvaluator{}
	r := &REPL{Evaluator: ev, MaxLen: 64}

	in := strings.NewReader("1+1\nbad\ncrash\nexit\nnever\n")
	var out bytes.Buffer
	if err := r.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(ev.got) != 3 {
		t.Fatalf("evaluated %v, want 3 lines before exit", ev.got)
	}
	text := out.String()
	for _, want := range []string{"Enter a mathematical expression:", "=1+1", core.MalformedReply, core.EngineErrorReply, "engine died"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "never") {
		t.Errorf("evaluated input after exit:\n%s", text)
	}
}

func TestREPLEndOfInput(t *testing.T) {
	ev := &scriptedEvaluator{}
	r := &REPL{Evaluator: ev, MaxLen: 64}

	if err := r.Run(context.Background(), strings.NewReader("2"), &bytes.Buffer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ev.got) != 1 || ev.got[0] != "2" {
		t.Errorf("evaluated %v", ev.got)
	}
}

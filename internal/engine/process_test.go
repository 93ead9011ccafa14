package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jdelaire/evalbot/core"
	"github.com/jdelaire/evalbot/internal/mathexpr"
)

const helperEnv = "EVALBOT_ENGINE_TEST_HELPER"

// TestMain lets the test binary double as the engine child: when helperEnv is
// set, it runs the requested helper instead of the tests.
func TestMain(m *testing.M) {
	if mode := os.Getenv(helperEnv); mode != "" {
		os.Exit(runHelper(mode))
	}
	os.Exit(m.Run())
}

func runHelper(mode string) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	switch mode {
	case "serve":
		if err := Serve(os.Stdin, os.Stdout, mathexpr.NewEngine(), logger); err != nil {
			return 1
		}
		return 0
	case "fail":
		fmt.Fprintln(os.Stderr, "engine library missing")
		return 3
	case "die":
		// Serves normally but exits on the expression "die".
		eng := mathexpr.NewEngine()
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			var req Request
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				return 1
			}
			if req.Expression == "die" {
				return 2
			}
			out, _ := json.Marshal(Handle(eng, &req))
			fmt.Println(string(out))
		}
		return 0
	case "hang":
		// Answers the ping, then never answers again.
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			var req Request
			json.Unmarshal(scanner.Bytes(), &req)
			if req.Op == OpPing {
				out, _ := json.Marshal(Handle(nil, &req))
				fmt.Println(string(out))
			}
		}
		return 0
	case "garbage":
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fmt.Println("not json")
		}
		return 0
	}
	return 1
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func helperConfig(t *testing.T, mode string) ProcessConfig {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}
	return ProcessConfig{
		Exec:         exe,
		Env:          append(os.Environ(), helperEnv+"="+mode),
		CallTimeout:  5 * time.Second,
		RespMaxBytes: DefaultRespMaxBytes,
	}
}

func startProcess(t *testing.T, cfg ProcessConfig) *Process {
	t.Helper()
	p := NewProcess(cfg, testLogger())
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestProcessEvaluate(t *testing.T) {
	p := startProcess(t, helperConfig(t, "serve"))
	ctx := context.Background()

	out := p.Evaluate(ctx, "2+2", 42, 64)
	if !out.OK() || out.Text != "4" {
		t.Fatalf("Evaluate(2+2) = %+v, want 4", out)
	}

	out = p.Evaluate(ctx, "2+", 42, 64)
	if out.Failure != core.FailureMalformed {
		t.Errorf("Evaluate(2+) failure = %v, want malformed", out.Failure)
	}
}

func TestProcessKeepsRequesterState(t *testing.T) {
	p := startProcess(t, helperConfig(t, "serve"))
	ctx := context.Background()

	if out := p.Evaluate(ctx, "x = 5", 1, 64); !out.OK() {
		t.Fatalf("assign: %+v", out)
	}
	if out := p.Evaluate(ctx, "x * 2", 1, 64); out.Text != "10" {
		t.Errorf("x * 2 for requester 1 = %+v, want 10", out)
	}
	if out := p.Evaluate(ctx, "x * 2", 2, 64); out.Failure != core.FailureMalformed {
		t.Errorf("x * 2 for requester 2 = %+v, want malformed", out)
	}
}

func TestProcessTruncatesResult(t *testing.T) {
	p := startProcess(t, helperConfig(t, "serve"))

	out := p.Evaluate(context.Background(), "123456789", 1, 4)
	if out.Text != "123" {
		t.Errorf("Text = %q, want %q", out.Text, "123")
	}
}

func TestProcessStartFailure(t *testing.T) {
	p := NewProcess(helperConfig(t, "fail"), testLogger())
	err := p.Start(context.Background())
	if !errors.Is(err, ErrEngineLoad) {
		t.Fatalf("Start error = %v, want ErrEngineLoad", err)
	}
}

func TestProcessMissingExecutable(t *testing.T) {
	p := NewProcess(ProcessConfig{Exec: "/nonexistent/evalbot-engine"}, testLogger())
	err := p.Start(context.Background())
	if !errors.Is(err, ErrEngineLoad) {
		t.Fatalf("Start error = %v, want ErrEngineLoad", err)
	}
}

func TestProcessRestartsAfterCrash(t *testing.T) {
	p := startProcess(t, helperConfig(t, "die"))
	ctx := context.Background()

	out := p.Evaluate(ctx, "die", 1, 64)
	if out.Failure != core.FailureEngine {
		t.Fatalf("crash outcome = %+v, want engine failure", out)
	}

	out = p.Evaluate(ctx, "6*7", 1, 64)
	if !out.OK() || out.Text != "42" {
		t.Errorf("after restart = %+v, want 42", out)
	}
}

func TestProcessCallTimeout(t *testing.T) {
	cfg := helperConfig(t, "hang")
	cfg.CallTimeout = 200 * time.Millisecond
	p := startProcess(t, cfg)

	start := time.Now()
	out := p.Evaluate(context.Background(), "1", 1, 64)
	if out.Failure != core.FailureEngine {
		t.Fatalf("outcome = %+v, want engine failure", out)
	}
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", out.Err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestProcessGarbageResponse(t *testing.T) {
	p := NewProcess(helperConfig(t, "garbage"), testLogger())
	err := p.Start(context.Background())
	if !errors.Is(err, ErrEngineLoad) {
		t.Fatalf("Start error = %v, want ErrEngineLoad", err)
	}
	if err == nil || !strings.Contains(err.Error(), "invalid response") {
		t.Errorf("Start error = %v, want invalid response", err)
	}
}

func TestProcessEvaluateWithoutStart(t *testing.T) {
	p := NewProcess(helperConfig(t, "serve"), testLogger())
	t.Cleanup(func() { p.Close() })

	out := p.Evaluate(context.Background(), "3^2", 1, 64)
	if !out.OK() || out.Text != "9" {
		t.Errorf("Evaluate = %+v, want 9", out)
	}
}

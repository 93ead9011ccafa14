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
	"os/exec"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/jdelaire/evalbot/core"
)

// Defaults for ProcessConfig.
const (
	DefaultCallTimeout  = 10 * time.Second
	DefaultRespMaxBytes = 16 * 1024
)

// ProcessConfig describes how to launch the engine child.
type ProcessConfig struct {
	Exec string
	Args []string
	Env  []string // nil inherits the parent environment

	// CallTimeout bounds one request/response exchange. Zero disables it.
	CallTimeout  time.Duration
	RespMaxBytes int
}

// Process evaluates expressions in a child process speaking the JSON lines
// protocol. A child that crashes, hangs past CallTimeout or answers out of
// protocol is killed; the next call starts a fresh one. Requester state lives
// in the child and is lost with it.
type Process struct {
	cfg    ProcessConfig
	logger *slog.Logger

	mu    sync.Mutex // serializes exchanges with the child
	child *child
}

// child tracks a running engine process.
type child struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
}

// NewProcess creates a process evaluator. The child is not started until
// Start or the first Evaluate.
func NewProcess(cfg ProcessConfig, logger *slog.Logger) *Process {
	if cfg.RespMaxBytes <= 0 {
		cfg.RespMaxBytes = DefaultRespMaxBytes
	}
	return &Process{cfg: cfg, logger: logger}
}

// Start launches the child and pings it. Any failure wraps ErrEngineLoad.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.spawn(); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineLoad, err)
	}
	resp, err := p.exchange(ctx, &Request{Version: ProtocolVersion, ID: nanoid.Must(), Op: OpPing})
	if err == nil && !resp.OK {
		err = resp.Error
	}
	if err != nil {
		p.kill()
		return fmt.Errorf("%w: %v", ErrEngineLoad, err)
	}
	p.logger.Info("engine started", "exec", p.cfg.Exec, "pid", p.child.cmd.Process.Pid)
	return nil
}

// Evaluate implements core.Evaluator.
func (p *Process) Evaluate(ctx context.Context, expression string, requesterID int64, maxLen int) core.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.child == nil {
		if err := p.spawn(); err != nil {
			return core.Failure(core.FailureEngine, fmt.Errorf("restart engine: %w", err))
		}
		p.logger.Info("engine restarted", "pid", p.child.cmd.Process.Pid)
	}

	resp, err := p.exchange(ctx, &Request{
		Version:     ProtocolVersion,
		ID:          nanoid.Must(),
		Op:          OpEvaluate,
		Expression:  expression,
		RequesterID: requesterID,
		MaxLen:      maxLen,
	})
	if err != nil {
		p.logger.Warn("engine fault, killing child", "error", err)
		p.kill()
		return core.Failure(core.FailureEngine, err)
	}
	if !resp.OK {
		if resp.Error.Code == ErrMalformed {
			return core.Failure(core.FailureMalformed, resp.Error)
		}
		return core.Failure(core.FailureEngine, resp.Error)
	}
	return core.Success(clip(resp.Result, maxLen))
}

// Close stops the child if it is running.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kill()
	return nil
}

func (p *Process) spawn() error {
	cmd := exec.Command(p.cfg.Exec, p.cfg.Args...)
	cmd.Env = p.cfg.Env
	cmd.Stderr = &logWriter{logger: p.logger}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("exec %s: %w", p.cfg.Exec, err)
	}

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, p.cfg.RespMaxBytes), p.cfg.RespMaxBytes)

	p.child = &child{cmd: cmd, stdin: stdin, stdout: scanner}
	return nil
}

// exchange writes req and reads the matching response. Callers hold p.mu.
func (p *Process) exchange(ctx context.Context, req *Request) (*Response, error) {
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if p.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CallTimeout)
		defer cancel()
	}

	c := p.child
	reqData = append(reqData, '\n')
	if _, err := c.stdin.Write(reqData); err != nil {
		return nil, fmt.Errorf("write to engine: %w", err)
	}

	type scanResult struct {
		line []byte
		err  error
	}
	ch := make(chan scanResult, 1)
	go func() {
		if c.stdout.Scan() {
			line := make([]byte, len(c.stdout.Bytes()))
			copy(line, c.stdout.Bytes())
			ch <- scanResult{line: line}
		} else {
			ch <- scanResult{err: c.stdout.Err()}
		}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("engine call: %w", ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("read from engine: %w", result.err)
		}
		if result.line == nil {
			return nil, errors.New("engine closed stdout")
		}

		var resp Response
		if err := json.Unmarshal(result.line, &resp); err != nil {
			return nil, fmt.Errorf("invalid response from engine: %w", err)
		}
		if err := ValidateResponse(&resp); err != nil {
			return nil, fmt.Errorf("invalid response from engine: %w", err)
		}
		if resp.ID != req.ID {
			return nil, fmt.Errorf("response id mismatch: got %q, want %q", resp.ID, req.ID)
		}
		return &resp, nil
	}
}

// kill stops the current child, if any. Callers hold p.mu.
func (p *Process) kill() {
	c := p.child
	if c == nil {
		return
	}
	p.child = nil

	c.stdin.Close()
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("failed to kill engine", "error", err)
	}
	if err := c.cmd.Wait(); err != nil {
		p.logger.Debug("engine exited", "error", err)
	}
}

// logWriter adapts engine stderr to slog.
type logWriter struct {
	logger *slog.Logger
}

func (w *logWriter) Write(b []byte) (int, error) {
	w.logger.Debug("engine stderr", "output", string(b))
	return len(b), nil
}

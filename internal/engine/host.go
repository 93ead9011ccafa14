package engine

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jdelaire/evalbot/internal/mathexpr"
)

// ReqMaxBytes bounds a single request line read by Serve.
const ReqMaxBytes = 64 * 1024

// Serve runs the child side of the protocol: one JSON request per line on r,
// one JSON response per line on w, until r is exhausted.
func Serve(r io.Reader, w io.Writer, eng *mathexpr.Engine, logger *slog.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, ReqMaxBytes), ReqMaxBytes)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			logger.Warn("invalid request", "error", err)
			if err := enc.Encode(NewErrorResponse("", ErrInvalidRequest, fmt.Sprintf("invalid json: %s", err))); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			continue
		}
		if err := enc.Encode(Handle(eng, &req)); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

// Handle answers a single request against eng.
func Handle(eng *mathexpr.Engine, req *Request) (resp *Response) {
	if err := ValidateRequest(req); err != nil {
		return NewErrorResponse(req.ID, ErrInvalidRequest, err.Error())
	}
	if req.Op == OpPing {
		return &Response{Version: ProtocolVersion, ID: req.ID, OK: true, Result: "pong"}
	}

	defer func() {
		if r := recover(); r != nil {
			resp = NewErrorResponse(req.ID, ErrInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	text, err := eng.Evaluate(req.RequesterID, req.Expression)
	if err != nil {
		code := ErrInternal
		if errors.Is(err, mathexpr.ErrMalformed) {
			code = ErrMalformed
		}
		return NewErrorResponse(req.ID, code, err.Error())
	}
	if req.MaxLen > 0 {
		text = clip(text, req.MaxLen)
	}
	return &Response{Version: ProtocolVersion, ID: req.ID, OK: true, Result: text}
}

package engine

import (
	"fmt"
)

const ProtocolVersion = "v1"

// Operations understood by an engine child.
const (
	OpEvaluate = "evaluate"
	OpPing     = "ping"
)

// Request is the JSON envelope sent to the engine child over stdin.
type Request struct {
	Version     string `json:"version"`
	ID          string `json:"id"`
	Op          string `json:"op"`
	Expression  string `json:"expression,omitempty"`
	RequesterID int64  `json:"requester_id,omitempty"`
	MaxLen      int    `json:"max_len,omitempty"`
}

// Response is the JSON envelope read from the engine child's stdout.
type Response struct {
	Version string         `json:"version"`
	ID      string         `json:"id"`
	OK      bool           `json:"ok"`
	Result  string         `json:"result,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a structured error from the engine child.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes.
const (
	ErrMalformed      = "MALFORMED"
	ErrInvalidRequest = "INVALID_REQUEST"
	ErrInternal       = "INTERNAL"
)

// ValidateRequest checks a request for protocol correctness.
func ValidateRequest(req *Request) error {
	if req.Version != ProtocolVersion {
		return fmt.Errorf("unsupported protocol version %q, expected %q", req.Version, ProtocolVersion)
	}
	if req.ID == "" {
		return fmt.Errorf("request id is required")
	}
	switch req.Op {
	case OpEvaluate, OpPing:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", req.Op)
	}
	return nil
}

// ValidateResponse checks a response for protocol correctness.
func ValidateResponse(resp *Response) error {
	if resp.Version != ProtocolVersion {
		return fmt.Errorf("unsupported protocol version %q", resp.Version)
	}
	if resp.ID == "" {
		return fmt.Errorf("response id is required")
	}
	if !resp.OK && resp.Error == nil {
		return fmt.Errorf("error response must include error object")
	}
	return nil
}

// NewErrorResponse creates an error response for a given request ID.
func NewErrorResponse(id, code, message string) *Response {
	return &Response{
		Version: ProtocolVersion,
		ID:      id,
		OK:      false,
		Error:   &ResponseError{Code: code, Message: message},
	}
}

package core

import (
	"errors"
	"testing"
)

func TestReplyText(t *testing.T) {
	tests := []struct {
		name   string
		out    Outcome
		maxLen int
		want   string
	}{
		{"success", Success("4"), 64, "4"},
		{"success keeps whitespace", Success(" 4 \n"), 64, " 4 \n"},
		{"empty success", Success(""), 64, ""},
		{"malformed", Failure(FailureMalformed, errors.New("x")), 64, MalformedReply},
		{"engine", Failure(FailureEngine, errors.New("x")), 64, EngineErrorReply},
		{"engine cut", Failure(FailureEngine, nil), 5, "An er"},
		{"malformed exact length", Failure(FailureMalformed, nil), len(MalformedReply), MalformedReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReplyText(tt.out, tt.maxLen); got != tt.want {
				t.Errorf("ReplyText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"hello", 0, ""},
		{"hello", -1, ""},
		{"", 4, ""},
		{"héllo", 2, "h"},
		{"héllo", 3, "hé"},
		{"日本", 4, "日"},
		{"日本", 2, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
		}
	}
}

func TestOutcome(t *testing.T) {
	if !Success("1").OK() {
		t.Error("Success should be OK")
	}
	err := errors.New("boom")
	out := Failure(FailureEngine, err)
	if out.OK() {
		t.Error("Failure should not be OK")
	}
	if !errors.Is(out.Err, err) {
		t.Errorf("Err = %v, want %v", out.Err, err)
	}
}

func TestFailureKindString(t *testing.T) {
	for kind, want := range map[FailureKind]string{
		FailureNone:      "",
		FailureMalformed: "malformed",
		FailureEngine:    "engine",
		FailureKind(9):   "unknown",
	} {
		if got := kind.String(); got != want {
			t.Errorf("FailureKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

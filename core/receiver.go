package core

import "context"

// EventSource yields inbound events one at a time. Next blocks until an
// event is available or ctx is done.
type EventSource interface {
	Next(ctx context.Context) (InboundEvent, error)
}

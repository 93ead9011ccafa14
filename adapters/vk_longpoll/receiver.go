package vk_longpoll

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jdelaire/evalbot/adapters/vk_api"
	"github.com/jdelaire/evalbot/core"
)

const (
	longPollWait = 25
	httpTimeout  = 35 * time.Second
	errorBackoff = 5 * time.Second
)

// ServerSource hands out Bots Long Poll connection parameters.
type ServerSource interface {
	GetLongPollServer(ctx context.Context) (vk_api.LongPollServer, error)
}

type pollResponse struct {
	TS      vk_api.TS `json:"ts"`
	Updates []update  `json:"updates"`
	Failed  int       `json:"failed"`
}

type update struct {
	Type    string          `json:"type"`
	EventID string          `json:"event_id"`
	Object  json.RawMessage `json:"object"`
}

type message struct {
	Date   int64   `json:"date"`
	FromID int64   `json:"from_id"`
	UserID int64   `json:"user_id"` // pre-5.80 layout
	PeerID int64   `json:"peer_id"`
	Text   string  `json:"text"`
	Action *action `json:"action"`
}

type action struct {
	Type     string `json:"type"`
	MemberID int64  `json:"member_id"`
}

// Receiver long-polls VK for community events and implements core.EventSource.
type Receiver struct {
	source  ServerSource
	logger  *slog.Logger
	client  *http.Client
	backoff time.Duration

	server  *vk_api.LongPollServer
	pending []core.InboundEvent
}

// New creates a long-poll receiver.
func New(source ServerSource, logger *slog.Logger) *Receiver {
	return &Receiver{
		source:  source,
		logger:  logger,
		client:  &http.Client{Timeout: httpTimeout},
		backoff: errorBackoff,
	}
}

// WithErrorBackoff overrides the pause after a failed poll (for testing).
func (r *Receiver) WithErrorBackoff(d time.Duration) *Receiver {
	r.backoff = d
	return r
}

// Next returns the next event, polling VK as needed. Transport and API errors
// are logged and retried after a backoff; only ctx ends the wait.
func (r *Receiver) Next(ctx context.Context) (core.InboundEvent, error) {
	for len(r.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return core.InboundEvent{}, err
		}

		if r.server == nil {
			srv, err := r.source.GetLongPollServer(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return core.InboundEvent{}, ctx.Err()
				}
				r.logger.Error("get long poll server", "error", err)
				if err := r.wait(ctx); err != nil {
					return core.InboundEvent{}, err
				}
				continue
			}
			r.server = &srv
			r.logger.Debug("long poll server acquired", "server", srv.Server, "ts", srv.TS)
		}

		events, err := r.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return core.InboundEvent{}, ctx.Err()
			}
			r.logger.Error("poll error", "error", err)
			if err := r.wait(ctx); err != nil {
				return core.InboundEvent{}, err
			}
			continue
		}
		r.pending = events
	}

	ev := r.pending[0]
	r.pending = r.pending[1:]
	return ev, nil
}

func (r *Receiver) wait(ctx context.Context) error {
	select {
	case <-time.After(r.backoff):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// poll performs one a_check request and advances the cursor.
func (r *Receiver) poll(ctx context.Context) ([]core.InboundEvent, error) {
	u, err := url.Parse(r.server.Server)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	q.Set("act", "a_check")
	q.Set("key", r.server.Key)
	q.Set("ts", string(r.server.TS))
	q.Set("wait", strconv.Itoa(longPollWait))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("long poll status: %d", resp.StatusCode)
	}

	var body pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch body.Failed {
	case 0:
	case 1:
		// History is partially lost; continue from the new cursor.
		r.logger.Warn("long poll history outdated", "ts", body.TS)
		r.server.TS = body.TS
		return nil, nil
	case 2:
		r.logger.Info("long poll key expired")
		ts := r.server.TS
		srv, err := r.source.GetLongPollServer(ctx)
		if err != nil {
			r.server = nil
			return nil, fmt.Errorf("refresh long poll key: %w", err)
		}
		srv.TS = ts
		r.server = &srv
		return nil, nil
	case 3:
		r.logger.Info("long poll information lost, reconnecting")
		r.server = nil
		return nil, nil
	default:
		return nil, fmt.Errorf("long poll failed with code %d", body.Failed)
	}

	r.server.TS = body.TS

	events := make([]core.InboundEvent, 0, len(body.Updates))
	for _, up := range body.Updates {
		ev, err := decodeUpdate(up)
		if err != nil {
			r.logger.Warn("skipping undecodable update", "type", up.Type, "event_id", up.EventID, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// decodeUpdate maps a raw update to an InboundEvent. message_new objects are
// accepted both wrapped as {"message": ...} and in the flat legacy layout.
func decodeUpdate(up update) (core.InboundEvent, error) {
	if up.Type != "message_new" {
		return core.InboundEvent{Kind: core.EventOther, EventID: up.EventID}, nil
	}

	var wrapped struct {
		Message *message `json:"message"`
	}
	if err := json.Unmarshal(up.Object, &wrapped); err != nil {
		return core.InboundEvent{}, fmt.Errorf("decode message_new: %w", err)
	}
	msg := wrapped.Message
	if msg == nil {
		msg = new(message)
		if err := json.Unmarshal(up.Object, msg); err != nil {
			return core.InboundEvent{}, fmt.Errorf("decode message_new: %w", err)
		}
	}

	sender := msg.FromID
	if sender == 0 {
		sender = msg.UserID
	}
	peer := msg.PeerID
	if peer == 0 {
		peer = sender
	}

	ev := core.InboundEvent{
		Kind:      core.EventMessageNew,
		EventID:   up.EventID,
		SenderID:  sender,
		PeerID:    peer,
		Text:      msg.Text,
		Timestamp: time.Unix(msg.Date, 0),
	}
	if msg.Action != nil {
		ev.Action = &core.Action{Type: msg.Action.Type, MemberID: msg.Action.MemberID}
	}
	return ev, nil
}

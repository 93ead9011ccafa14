package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jdelaire/evalbot/internal/events"
)

// StopConfirmation is sent to the owner's chat before the bot stops.
const StopConfirmation = "The bot is stopped."

const presenceTimeout = 10 * time.Second

// State is the dispatcher's lifecycle state.
type State int

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	if s == StateTerminated {
		return "terminated"
	}
	return "running"
}

// Deps are the collaborators a Dispatcher acts through.
type Deps struct {
	Evaluator Evaluator
	Messenger Messenger
	Presence  Presence
	Publisher events.Publisher // optional
	Logger    *slog.Logger
}

// Dispatcher consumes inbound events one at a time: classify, act, reply.
// It is not safe for concurrent use; events are handled strictly in order.
type Dispatcher struct {
	cfg       Config
	evaluator Evaluator
	presence  Presence
	replies   *ReplySink
	publisher events.Publisher
	logger    *slog.Logger
	state     State
}

// NewDispatcher creates a Dispatcher in the Running state.
func NewDispatcher(cfg Config, deps Deps) *Dispatcher {
	pub := deps.Publisher
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &Dispatcher{
		cfg:       cfg.WithDefaults(),
		evaluator: deps.Evaluator,
		presence:  deps.Presence,
		replies:   NewReplySink(deps.Messenger, deps.Logger),
		publisher: pub,
		logger:    deps.Logger,
		state:     StateRunning,
	}
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State { return d.state }

// Run marks the bot online and handles events from src until the owner shuts
// the bot down or ctx is cancelled. Both end with a nil error; an error from
// src that is not caused by ctx is returned.
func (d *Dispatcher) Run(ctx context.Context, src EventSource) error {
	d.setOnline(ctx, true)
	d.logger.Info("listening for events", "group_id", d.cfg.GroupID)

	for d.state == StateRunning {
		ev, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				d.logger.Info("dispatcher stopped", "reason", ctx.Err())
				return nil
			}
			return fmt.Errorf("receive event: %w", err)
		}
		d.Handle(ctx, ev)
	}
	return nil
}

// Handle processes a single event and returns the resulting state. A panic
// while handling the event is logged and the dispatcher stays Running.
func (d *Dispatcher) Handle(ctx context.Context, ev InboundEvent) (state State) {
	if d.state == StateTerminated {
		return d.state
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling event",
				"event_id", ev.EventID, "panic", r, "stack", string(debug.Stack()))
			state = d.state
		}
	}()

	c := Classify(ev, d.cfg)
	if c.Join != nil {
		d.announceJoin(ctx, *c.Join)
	}

	switch cmd := c.Command.(type) {
	case OwnerShutdown:
		d.shutdown(ctx, cmd, ev.SenderID)
	case EvaluationRequest:
		d.evaluate(ctx, cmd)
	}
	return d.state
}

func (d *Dispatcher) announceJoin(ctx context.Context, a ChatJoinAnnouncement) {
	d.logger.Info("bot added to chat", "chat_id", a.ChatID)
	d.publish(ctx, events.TopicChatJoined, events.ChatJoined{ChatID: a.ChatID, At: time.Now()})
}

func (d *Dispatcher) evaluate(ctx context.Context, req EvaluationRequest) {
	maxLen := d.cfg.MaxResultLength
	out := d.evaluator.Evaluate(ctx, req.Expression, req.RequesterID, maxLen)
	reply := ReplyText(out, maxLen)

	if out.Failure == FailureEngine {
		d.logger.Error("evaluation engine failed",
			"sender_id", req.RequesterID, "expression", req.Expression, "error", out.Err)
	}

	d.replies.Send(ctx, req.ChatID, reply)

	d.logger.Info("expression evaluated",
		"sender_id", req.RequesterID, "chat_id", req.ChatID,
		"expression", req.Expression, "result", reply)
	d.publish(ctx, events.TopicExpressionEvaluated, events.ExpressionEvaluated{
		RequesterID: req.RequesterID,
		ChatID:      req.ChatID,
		Expression:  req.Expression,
		Reply:       reply,
		Failure:     out.Failure.String(),
		At:          time.Now(),
	})
}

func (d *Dispatcher) shutdown(ctx context.Context, cmd OwnerShutdown, ownerID int64) {
	d.logger.Info("shutdown requested by owner", "chat_id", cmd.ChatID)

	d.setOnline(ctx, false)
	d.replies.Send(ctx, cmd.ChatID, StopConfirmation)
	d.publish(ctx, events.TopicBotStopped, events.BotStopped{ChatID: cmd.ChatID, StoppedBy: ownerID, At: time.Now()})

	d.state = StateTerminated
	d.logger.Info("exiting")
}

func (d *Dispatcher) setOnline(ctx context.Context, online bool) {
	if d.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	defer cancel()
	if err := d.presence.SetOnline(ctx, online); err != nil {
		d.logger.Warn("failed to change online status", "online", online, "error", err)
	}
}

func (d *Dispatcher) publish(ctx context.Context, topic string, event any) {
	if err := d.publisher.Publish(ctx, topic, event); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

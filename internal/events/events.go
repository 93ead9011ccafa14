package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicChatJoined          = "evalbot.chat.joined"
	TopicExpressionEvaluated = "evalbot.expression.evaluated"
	TopicBotStopped          = "evalbot.bot.stopped"
)

// Event types

type ChatJoined struct {
	ChatID int64     `json:"chat_id"`
	At     time.Time `json:"at"`
}

type ExpressionEvaluated struct {
	RequesterID int64     `json:"requester_id"`
	ChatID      int64     `json:"chat_id"`
	Expression  string    `json:"expression"`
	Reply       string    `json:"reply"`
	Failure     string    `json:"failure,omitempty"` // "malformed" or "engine"
	At          time.Time `json:"at"`
}

type BotStopped struct {
	ChatID    int64     `json:"chat_id"`
	StoppedBy int64     `json:"stopped_by"`
	At        time.Time `json:"at"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

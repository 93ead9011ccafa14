package core

import "context"

// Messenger delivers a text message to a chat. randomID lets the platform
// drop duplicate deliveries of the same send.
type Messenger interface {
	SendMessage(ctx context.Context, peerID int64, text string, randomID int32) error
}

// Presence toggles the bot's "online" status.
type Presence interface {
	SetOnline(ctx context.Context, online bool) error
}

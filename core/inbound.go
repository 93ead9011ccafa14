package core

import "time"

// EventKind distinguishes new messages from every other long-poll event.
type EventKind int

const (
	EventOther EventKind = iota
	EventMessageNew
)

// ActionChatInviteUser is the action type of a member being added to a chat.
const ActionChatInviteUser = "chat_invite_user"

// Action is the service metadata attached to membership-change messages.
type Action struct {
	Type     string
	MemberID int64
}

// InboundEvent is one event received from the long-poll stream.
type InboundEvent struct {
	Kind      EventKind
	EventID   string
	SenderID  int64
	PeerID    int64
	Text      string
	Action    *Action
	Timestamp time.Time
}

package core

import "strings"

// Command is what the bot should do with one inbound event. The concrete
// types are Ignore, ChatJoinAnnouncement, OwnerShutdown and
// EvaluationRequest.
type Command interface {
	isCommand()
}

// Ignore means the event needs no action.
type Ignore struct{}

// ChatJoinAnnouncement reports that the bot was added to a group chat.
type ChatJoinAnnouncement struct {
	ChatID int64
}

// OwnerShutdown is the owner's request to stop the bot.
type OwnerShutdown struct {
	ChatID int64
}

// EvaluationRequest asks for Expression to be evaluated on behalf of
// RequesterID, with the reply going to ChatID.
type EvaluationRequest struct {
	Expression  string
	RequesterID int64
	ChatID      int64
}

func (Ignore) isCommand()               {}
func (ChatJoinAnnouncement) isCommand() {}
func (OwnerShutdown) isCommand()        {}
func (EvaluationRequest) isCommand()    {}

// Classification is the result of classifying one event. Join is set when
// the event also announces the bot joining a chat; it never replaces the
// command derived from the message text.
type Classification struct {
	Join    *ChatJoinAnnouncement
	Command Command
}

const exitCommand = "exit"

// Classify maps an event to the action it calls for. It depends only on its
// arguments.
func Classify(ev InboundEvent, cfg Config) Classification {
	if ev.Kind != EventMessageNew {
		return Classification{Command: Ignore{}}
	}

	var c Classification
	if ev.Action != nil && ev.Action.Type == ActionChatInviteUser && ev.Action.MemberID == -cfg.GroupID {
		c.Join = &ChatJoinAnnouncement{ChatID: ev.PeerID}
	}

	body, mentioned := strings.CutPrefix(ev.Text, cfg.MentionPrefix())

	switch {
	case ev.SenderID == cfg.OwnerID && body == exitCommand:
		c.Command = OwnerShutdown{ChatID: ev.PeerID}
	case mentioned:
		c.Command = EvaluationRequest{Expression: body, RequesterID: ev.SenderID, ChatID: ev.PeerID}
	case cfg.CommandPrefix != "" && strings.HasPrefix(body, cfg.CommandPrefix):
		c.Command = EvaluationRequest{
			Expression:  body[len(cfg.CommandPrefix):],
			RequesterID: ev.SenderID,
			ChatID:      ev.PeerID,
		}
	default:
		c.Command = Ignore{}
	}
	return c
}

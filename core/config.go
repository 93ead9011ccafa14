package core

import "fmt"

const (
	DefaultMaxResultLength = 64
	DefaultCommandPrefix   = "eval "
)

// Config is the bot's identity and command settings. It is built once at
// startup and passed by value; nothing mutates it afterwards.
type Config struct {
	GroupID         int64
	GroupName       string
	OwnerID         int64
	MaxResultLength int
	CommandPrefix   string
}

// WithDefaults fills zero-valued optional fields.
func (c Config) WithDefaults() Config {
	if c.MaxResultLength <= 0 {
		c.MaxResultLength = DefaultMaxResultLength
	}
	if c.CommandPrefix == "" {
		c.CommandPrefix = DefaultCommandPrefix
	}
	return c
}

// MentionPrefix is the text VK inserts when a user mentions the community,
// including the trailing space.
func (c Config) MentionPrefix() string {
	return fmt.Sprintf("[club%d|@%s] ", c.GroupID, c.GroupName)
}

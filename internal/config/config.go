// Package config loads evalbot settings from a config file, EVALBOT_*
// environment variables and defaults, with the VK token falling back to the
// OS keychain.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jdelaire/evalbot/core"
)

const EnvPrefix = "EVALBOT"

// Config is the full bot configuration.
type Config struct {
	VK      VKConfig
	Bot     BotConfig
	Engine  EngineConfig
	Events  EventsConfig
	Logging LoggingConfig

	tokenErr error
}

type VKConfig struct {
	GroupID    int64
	GroupName  string
	OwnerID    int64
	Token      string
	APIVersion string
	APIBaseURL string
}

type BotConfig struct {
	MaxResultLength int
	CommandPrefix   string
}

type EngineConfig struct {
	Mode         string // "process" or "local"
	Exec         string // empty runs this binary's engine subcommand
	CallTimeout  time.Duration
	RespMaxBytes int
}

type EventsConfig struct {
	NATSURL string // empty disables publishing
}

type LoggingConfig struct {
	Level  string
	Format string
}

// TokenLookup returns a stored token, or an error wrapping
// keychain.ErrNotFound when there is none.
type TokenLookup func() (string, error)

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("vk.api_version", "5.199")
	v.SetDefault("vk.api_base_url", "https://api.vk.com/method")
	v.SetDefault("bot.max_result_length", core.DefaultMaxResultLength)
	v.SetDefault("bot.command_prefix", core.DefaultCommandPrefix)
	v.SetDefault("engine.mode", "process")
	v.SetDefault("engine.exec", "")
	v.SetDefault("engine.call_timeout", 10*time.Second)
	v.SetDefault("engine.resp_max_bytes", 16*1024)
	v.SetDefault("events.nats_url", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Keys without a useful default still need registering so that
	// AutomaticEnv picks them up.
	for _, k := range []string{"vk.group_id", "vk.group_name", "vk.owner_id", "vk.token"} {
		v.SetDefault(k, "")
	}
}

// ReadFile merges a config file into v. The format follows the extension.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from v. When vk.token is empty, lookup is consulted;
// a lookup error leaves the token empty and Validate reports it.
func Load(v *viper.Viper, lookup TokenLookup) *Config {
	cfg := &Config{
		VK: VKConfig{
			GroupID:    v.GetInt64("vk.group_id"),
			GroupName:  strings.TrimSpace(v.GetString("vk.group_name")),
			OwnerID:    v.GetInt64("vk.owner_id"),
			Token:      strings.TrimSpace(v.GetString("vk.token")),
			APIVersion: v.GetString("vk.api_version"),
			APIBaseURL: v.GetString("vk.api_base_url"),
		},
		Bot: BotConfig{
			MaxResultLength: v.GetInt("bot.max_result_length"),
			CommandPrefix:   v.GetString("bot.command_prefix"),
		},
		Engine: EngineConfig{
			Mode:         strings.ToLower(strings.TrimSpace(v.GetString("engine.mode"))),
			Exec:         v.GetString("engine.exec"),
			CallTimeout:  v.GetDuration("engine.call_timeout"),
			RespMaxBytes: v.GetInt("engine.resp_max_bytes"),
		},
		Events: EventsConfig{
			NATSURL: v.GetString("events.nats_url"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if cfg.VK.Token == "" && lookup != nil {
		token, err := lookup()
		cfg.VK.Token = strings.TrimSpace(token)
		cfg.tokenErr = err
	}
	return cfg
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validate() []string {
	var errs []string

	// vk
	if c.VK.GroupID <= 0 {
		errs = append(errs, "vk.group_id must be a positive community id")
	}
	if c.VK.GroupName == "" {
		errs = append(errs, "vk.group_name is required")
	}
	if c.VK.OwnerID <= 0 {
		errs = append(errs, "vk.owner_id must be a positive user id")
	}
	if c.VK.Token == "" {
		msg := "vk.token is required (set EVALBOT_VK_TOKEN or run `evalbot token set`)"
		if c.tokenErr != nil {
			msg += fmt.Sprintf("; keychain: %v", c.tokenErr)
		}
		errs = append(errs, msg)
	}

	// bot
	if c.Bot.MaxResultLength < 1 {
		errs = append(errs, "bot.max_result_length must be at least 1")
	}
	if c.Bot.CommandPrefix == "" {
		errs = append(errs, "bot.command_prefix must not be empty")
	}

	// engine
	switch c.Engine.Mode {
	case "process", "local":
	default:
		errs = append(errs, fmt.Sprintf("engine.mode must be process or local, got %q", c.Engine.Mode))
	}
	if c.Engine.CallTimeout < 0 {
		errs = append(errs, "engine.call_timeout must be non-negative")
	}
	if c.Engine.RespMaxBytes <= 0 {
		errs = append(errs, "engine.resp_max_bytes must be positive")
	}

	return errs
}

// Core returns the dispatcher settings.
func (c *Config) Core() core.Config {
	return core.Config{
		GroupID:         c.VK.GroupID,
		GroupName:       c.VK.GroupName,
		OwnerID:         c.VK.OwnerID,
		MaxResultLength: c.Bot.MaxResultLength,
		CommandPrefix:   c.Bot.CommandPrefix,
	}
}

// Package config loads the engine's single process-wide Config from the
// environment via caarlos0/env, the same mechanism the teacher repo uses.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type ProviderConfig struct {
	APIKey     string `env:"API_KEY"`
	APIBase    string `env:"API_BASE"`
	AuthMethod string `env:"AUTH_METHOD" envDefault:"api_key"` // api_key | oauth
}

type ProvidersConfig struct {
	Claude ProviderConfig `envPrefix:"CLAUDE_"`
	OpenAI ProviderConfig `envPrefix:"OPENAI_"`
	HTTP   ProviderConfig `envPrefix:"HTTP_"`
}

type AgentConfig struct {
	Provider          string `env:"PROVIDER" envDefault:"claude"` // claude | openai | http
	Model             string `env:"MODEL" envDefault:"claude-sonnet-4-5"`
	MaxIterations     int    `env:"MAX_ITERATIONS" envDefault:"15"`
	LLMTimeoutSeconds int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"120"`
	ToolTimeoutSeconds int   `env:"TOOL_TIMEOUT_SECONDS" envDefault:"60"`
	MemoryWindow      int    `env:"MEMORY_WINDOW" envDefault:"20"`
	MaxMessages       int    `env:"MAX_MESSAGES" envDefault:"40"`
}

type TelegramConfig struct {
	Enabled   bool     `env:"ENABLED" envDefault:"false"`
	Token     string   `env:"TOKEN"`
	AllowFrom []string `env:"ALLOW_FROM" envSeparator:","`
}

type DiscordConfig struct {
	Enabled   bool     `env:"ENABLED" envDefault:"false"`
	Token     string   `env:"TOKEN"`
	AllowFrom []string `env:"ALLOW_FROM" envSeparator:","`
}

type WebSocketConfig struct {
	Enabled   bool     `env:"ENABLED" envDefault:"false"`
	Addr      string   `env:"ADDR" envDefault:":8765"`
	AllowFrom []string `env:"ALLOW_FROM" envSeparator:","`
}

type CLIConfig struct {
	Enabled bool `env:"ENABLED" envDefault:"true"`
}

type ChannelsConfig struct {
	CLI       CLIConfig       `envPrefix:"CLI_"`
	Telegram  TelegramConfig  `envPrefix:"TELEGRAM_"`
	Discord   DiscordConfig   `envPrefix:"DISCORD_"`
	WebSocket WebSocketConfig `envPrefix:"WS_"`
}

type Config struct {
	Workspace string `env:"WORKSPACE" envDefault:"./workspace"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	Agent     AgentConfig     `envPrefix:"AGENT_"`
	Providers ProvidersConfig `envPrefix:"PROVIDER_"`
	Channels  ChannelsConfig  `envPrefix:"CHANNEL_"`
}

// WorkspacePath returns the configured workspace directory, the root for
// sessions, memory artifacts, and file-tool I/O.
func (c *Config) WorkspacePath() string {
	return c.Workspace
}

// Load parses Config from the process environment, applying envDefault tags
// for every field not explicitly set.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

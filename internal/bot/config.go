package bot

import (
	"github.com/caarlos0/env/v11"
)

// Config is the bot-level configuration. Module-specific settings live in
// each module's own Config.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`

	// CommandGuildID scopes slash-command registration to a single guild.
	// Guild commands propagate immediately, which suits a self-hosted bot.
	// Leave empty to register globally.
	CommandGuildID string `env:"COMMAND_GUILD_ID"`
}

// LoadConfig reads the bot configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

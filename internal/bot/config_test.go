package bot

import (
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")
	t.Setenv("COMMAND_GUILD_ID", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DiscordToken != "test-token-123" {
		t.Errorf("expected token to be read, got %q", cfg.DiscordToken)
	}
	if cfg.CommandGuildID != "" {
		t.Errorf("expected global command scope by default, got %q", cfg.CommandGuildID)
	}
}

func TestLoadConfig_GuildScope(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")
	t.Setenv("COMMAND_GUILD_ID", "123456789")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CommandGuildID != "123456789" {
		t.Errorf("expected guild scope 123456789, got %q", cfg.CommandGuildID)
	}
}

func TestLoadConfig_MissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected an error for a missing token")
	}
}

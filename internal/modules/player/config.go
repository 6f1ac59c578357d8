package player

import "time"

// Config holds the player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`

	PlexBaseURL string `env:"PLEX_BASE_URL,notEmpty"`
	PlexToken   string `env:"PLEX_TOKEN,notEmpty"`

	// Fonts for the now-playing card. The module fails to start without
	// them; a card pipeline that cannot draw text is useless.
	CardLabelFont string `env:"CARD_LABEL_FONT,notEmpty"`
	CardValueFont string `env:"CARD_VALUE_FONT,notEmpty"`

	RenderWorkers int           `env:"RENDER_WORKERS" envDefault:"4"`
	IdleTimeout   time.Duration `env:"IDLE_TIMEOUT" envDefault:"10m"`
}

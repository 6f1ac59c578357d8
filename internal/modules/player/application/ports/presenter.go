package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

// CardPresenter delivers rendered now-playing cards (or their text-only
// degradation) back through the chat surface. Implementations own the
// bookkeeping for replacing a guild's previous card message.
type CardPresenter interface {
	// PresentCard posts the rendered PNG for the guild, replacing any
	// previously posted card.
	PresentCard(ctx context.Context, channelID snowflake.ID, png []byte, view domain.SessionView) error

	// PresentStatus posts a text-only status message, used when rendering
	// fails or when there is nothing to draw.
	PresentStatus(ctx context.Context, channelID snowflake.ID, view domain.SessionView) error

	// ClearCard removes the guild's last posted card, if any.
	ClearCard(ctx context.Context, guildID snowflake.ID) error
}

// EventPublisher publishes playback lifecycle events for async handling.
type EventPublisher interface {
	PublishTrackEnded(event domain.TrackEndedEvent)
	PublishPlaybackStarted(event domain.PlaybackStartedEvent)
	PublishPlaybackStopped(event domain.PlaybackStoppedEvent)
}

package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// AudioEngineClient is the session's view of the audio streaming engine.
// The engine is the authority for actual audio I/O: the session only
// tracks intent and reacts to the engine's TrackEnded events (published
// through the event bus by the engine adapter).
type AudioEngineClient interface {
	// Join connects the bot to the given voice channel.
	Join(ctx context.Context, guildID, channelID snowflake.ID) error

	// Leave disconnects from the guild's voice channel and releases the
	// engine player.
	Leave(ctx context.Context, guildID snowflake.ID) error

	// Play starts streaming the given stream reference.
	Play(ctx context.Context, guildID snowflake.ID, streamRef string) error

	// Pause suspends the current stream, retaining position.
	Pause(ctx context.Context, guildID snowflake.ID) error

	// Resume continues a paused stream.
	Resume(ctx context.Context, guildID snowflake.ID) error

	// Stop ends the current stream without leaving the channel.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// SetVolume sets the engine volume, 0-150.
	SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error
}

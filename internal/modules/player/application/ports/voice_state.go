package ports

import "github.com/disgoorg/snowflake/v2"

// VoiceStateProvider resolves which voice channel a user is in.
type VoiceStateProvider interface {
	// UserVoiceChannel returns the voice channel ID the user is currently
	// in, or 0 if they are not in one.
	UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}

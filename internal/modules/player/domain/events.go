package domain

import "github.com/disgoorg/snowflake/v2"

// TrackEndReason mirrors the audio engine's reason for a track ending.
type TrackEndReason string

const (
	TrackEndFinished   TrackEndReason = "finished"
	TrackEndLoadFailed TrackEndReason = "loadFailed"
	TrackEndStopped    TrackEndReason = "stopped"
	TrackEndReplaced   TrackEndReason = "replaced"
	TrackEndCleanup    TrackEndReason = "cleanup"
)

// ShouldAdvance reports whether the end reason should advance the queue.
// Stopped and Replaced ends are caused by our own transitions; advancing
// again would double-skip.
func (r TrackEndReason) ShouldAdvance() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed
}

// TrackEndedEvent is emitted by the audio engine when a stream ends.
type TrackEndedEvent struct {
	GuildID snowflake.ID
	Reason  TrackEndReason
}

// PlaybackStartedEvent is emitted when a track starts streaming.
type PlaybackStartedEvent struct {
	GuildID snowflake.ID
	Track   Track
}

// PlaybackStoppedEvent is emitted when a session goes idle or is torn down.
type PlaybackStoppedEvent struct {
	GuildID snowflake.ID
}

package domain

import (
	"strconv"
	"time"
)

// Track represents a playable audio track from a media provider.
// Tracks are immutable value records: once constructed they are only
// copied, never mutated, and are owned by whichever queue slot holds them.
type Track struct {
	Key        string // provider-side identifier (e.g. Plex rating key)
	Title      string
	Artist     string
	Album      string
	Studio     string
	Duration   time.Duration
	ArtworkURL string
	StreamRef  string // URL or reference handed to the audio engine
	Source     Source
}

// Identity returns a stable string identifying this track for render
// fingerprinting. StreamRef alone is not enough: two providers can hand
// out the same relative path.
func (t Track) Identity() string {
	return string(t.Source) + "|" + t.Key + "|" + t.StreamRef
}

// IsValid returns true if the track has the minimum required fields.
func (t Track) IsValid() bool {
	return t.StreamRef != "" && t.Title != ""
}

// FormattedDuration returns the duration as mm:ss or hh:mm:ss.
func (t Track) FormattedDuration() string {
	totalSeconds := int(t.Duration.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

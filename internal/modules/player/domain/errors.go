package domain

import "errors"

// Domain errors for the player module.
var (
	// ErrStateConflict is returned when an action is invalid for the
	// session's current lifecycle state. The session is left unchanged.
	ErrStateConflict = errors.New("action not valid in current playback state")

	// ErrQueueEmpty is returned when an operation needs at least one
	// queued track.
	ErrQueueEmpty = errors.New("the queue is empty")

	// ErrInvalidPosition is returned when a queue index is out of bounds.
	ErrInvalidPosition = errors.New("invalid queue position")

	// ErrInvalidTrack is returned when a track is missing required fields.
	ErrInvalidTrack = errors.New("track is missing required fields")
)

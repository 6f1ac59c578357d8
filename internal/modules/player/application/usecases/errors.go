package usecases

import "errors"

// Application errors for the player module.
var (
	// ErrSessionNotFound is returned when an action targets a guild with
	// no active playback session. Surfaced to the user like a state
	// conflict, with an appropriate message.
	ErrSessionNotFound = errors.New("no active playback session for this server")

	// ErrUserNotInVoice is returned when the requesting user is not in a
	// voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel to play music")

	// ErrNoResults is returned when a library lookup yields nothing.
	ErrNoResults = errors.New("no matching results in the library")

	// ErrUnknownAction is returned for an action identifier the
	// dispatcher does not recognize.
	ErrUnknownAction = errors.New("unknown control action")
)

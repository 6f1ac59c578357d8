package domain

// LoopMode is the policy governing what Advance does at the end of a track.
type LoopMode int

const (
	LoopModeOff   LoopMode = iota // no looping
	LoopModeTrack                 // repeat current track indefinitely
	LoopModeQueue                 // wrap to the first track after the last
)

// String returns a human-readable representation of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopModeTrack:
		return "track"
	case LoopModeQueue:
		return "queue"
	default:
		return "off"
	}
}

// ParseLoopMode converts a string to a LoopMode.
func ParseLoopMode(s string) LoopMode {
	switch s {
	case "track":
		return LoopModeTrack
	case "queue":
		return LoopModeQueue
	default:
		return LoopModeOff
	}
}

// Next cycles Off -> Track -> Queue -> Off.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopModeOff:
		return LoopModeTrack
	case LoopModeTrack:
		return LoopModeQueue
	default:
		return LoopModeOff
	}
}

package domain

// Source identifies the provider a track came from.
type Source string

const (
	SourcePlex    Source = "plex"
	SourceYouTube Source = "youtube"
	SourceOther   Source = "other"
)

// ParseSource converts a source name string to a Source.
func ParseSource(name string) Source {
	switch name {
	case "plex":
		return SourcePlex
	case "youtube":
		return SourceYouTube
	default:
		return SourceOther
	}
}

// Color returns the embed accent color associated with the source.
func (s Source) Color() int {
	switch s {
	case SourcePlex:
		return 0xE5A00D
	case SourceYouTube:
		return 0xFF0000
	default:
		return 0x00B0F0
	}
}

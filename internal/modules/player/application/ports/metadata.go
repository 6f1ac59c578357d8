package ports

import (
	"context"

	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

// Playlist is a provider-side playlist summary, used for the playlist
// command and its autocomplete.
type Playlist struct {
	Key        string
	Title      string
	TrackCount int
}

// MetadataSource is the media library search/metadata API. Implementations
// translate provider responses into domain tracks with resolved stream and
// artwork references.
type MetadataSource interface {
	// Search returns tracks matching a free-form query, best match first.
	Search(ctx context.Context, query string) ([]domain.Track, error)

	// ArtistTracks returns all tracks by the named artist.
	ArtistTracks(ctx context.Context, artist string) ([]domain.Track, error)

	// AlbumTracks returns the named album's tracks in album order.
	AlbumTracks(ctx context.Context, album string) ([]domain.Track, error)

	// Playlists lists the library's playlists.
	Playlists(ctx context.Context) ([]Playlist, error)

	// PlaylistTracks returns the tracks of the playlist with the given key.
	PlaylistTracks(ctx context.Context, key string) ([]domain.Track, error)
}

package usecases

import (
	"context"
	"strings"

	"github.com/mwarren09/melodeck/internal/modules/player/application/ports"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

// LibraryService wraps the metadata source with the lookup policies the
// commands need: best-match selection, case-insensitive playlist titles
// and empty-result mapping.
type LibraryService struct {
	metadata ports.MetadataSource
}

// NewLibraryService creates a LibraryService.
func NewLibraryService(metadata ports.MetadataSource) *LibraryService {
	return &LibraryService{metadata: metadata}
}

// FindTrack returns the best match for a free-form query.
func (l *LibraryService) FindTrack(ctx context.Context, query string) (domain.Track, error) {
	tracks, err := l.metadata.Search(ctx, query)
	if err != nil {
		return domain.Track{}, err
	}
	if len(tracks) == 0 {
		return domain.Track{}, ErrNoResults
	}
	return tracks[0], nil
}

// SearchTracks returns up to limit matches for autocomplete suggestions.
func (l *LibraryService) SearchTracks(
	ctx context.Context,
	query string,
	limit int,
) ([]domain.Track, error) {
	tracks, err := l.metadata.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

// ArtistTracks returns all of an artist's tracks.
func (l *LibraryService) ArtistTracks(ctx context.Context, artist string) ([]domain.Track, error) {
	tracks, err := l.metadata.ArtistTracks(ctx, artist)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, ErrNoResults
	}
	return tracks, nil
}

// AlbumTracks returns an album's tracks in album order.
func (l *LibraryService) AlbumTracks(ctx context.Context, album string) ([]domain.Track, error) {
	tracks, err := l.metadata.AlbumTracks(ctx, album)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, ErrNoResults
	}
	return tracks, nil
}

// Playlists lists the library's playlists.
func (l *LibraryService) Playlists(ctx context.Context) ([]ports.Playlist, error) {
	return l.metadata.Playlists(ctx)
}

// PlaylistByTitle resolves a playlist by case-insensitive title and
// returns its tracks.
func (l *LibraryService) PlaylistByTitle(
	ctx context.Context,
	title string,
) (ports.Playlist, []domain.Track, error) {
	playlists, err := l.metadata.Playlists(ctx)
	if err != nil {
		return ports.Playlist{}, nil, err
	}

	for _, playlist := range playlists {
		if strings.EqualFold(playlist.Title, title) {
			tracks, err := l.metadata.PlaylistTracks(ctx, playlist.Key)
			if err != nil {
				return ports.Playlist{}, nil, err
			}
			if len(tracks) == 0 {
				return ports.Playlist{}, nil, ErrNoResults
			}
			return playlist, tracks, nil
		}
	}
	return ports.Playlist{}, nil, ErrNoResults
}

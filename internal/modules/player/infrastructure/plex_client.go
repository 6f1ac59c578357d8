package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mwarren09/melodeck/internal/modules/player/application/ports"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

const plexRequestTimeout = 15 * time.Second

// Plex media type codes used by the search endpoint.
const (
	plexTypeArtist = "8"
	plexTypeAlbum  = "9"
	plexTypeTrack  = "10"
)

// PlexConfig contains the Plex server connection settings.
type PlexConfig struct {
	BaseURL string
	Token   string
}

// PlexClient implements ports.MetadataSource against a Plex Media Server's
// HTTP API. Stream and artwork references are resolved into full URLs with
// the token embedded, so downstream components need no Plex knowledge.
type PlexClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewPlexClient creates a PlexClient for the given server.
func NewPlexClient(config PlexConfig) *PlexClient {
	return &PlexClient{
		baseURL: config.BaseURL,
		token:   config.Token,
		http:    &http.Client{Timeout: plexRequestTimeout},
	}
}

// plexMetadata is a single Metadata entry in a Plex MediaContainer
// response. Field names follow Plex's JSON schema.
type plexMetadata struct {
	RatingKey        string `json:"ratingKey"`
	Key              string `json:"key"`
	Title            string `json:"title"`
	GrandparentTitle string `json:"grandparentTitle"`
	ParentTitle      string `json:"parentTitle"`
	OriginalTitle    string `json:"originalTitle"`
	Studio           string `json:"studio"`
	ParentStudio     string `json:"parentStudio"`
	Duration         int64  `json:"duration"`
	Thumb            string `json:"thumb"`
	ParentThumb      string `json:"parentThumb"`
	LeafCount        int    `json:"leafCount"`
	Media            []struct {
		Part []struct {
			Key string `json:"key"`
		} `json:"Part"`
	} `json:"Media"`
}

type plexContainer struct {
	MediaContainer struct {
		Metadata []plexMetadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

func (c *PlexClient) get(ctx context.Context, path string, query url.Values) (*plexContainer, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to build Plex URL: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build Plex request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plex returned status %d for %s", resp.StatusCode, path)
	}

	var container plexContainer
	if err := json.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, fmt.Errorf("failed to decode Plex response: %w", err)
	}
	return &container, nil
}

// resolveURL turns a Plex resource key into a full URL with the token
// embedded.
func (c *PlexClient) resolveURL(key string) string {
	if key == "" {
		return ""
	}
	return c.baseURL + key + "?X-Plex-Token=" + c.token
}

func (c *PlexClient) toTrack(m plexMetadata) domain.Track {
	var streamRef string
	if len(m.Media) > 0 && len(m.Media[0].Part) > 0 {
		streamRef = c.resolveURL(m.Media[0].Part[0].Key)
	}

	thumb := m.Thumb
	if thumb == "" {
		thumb = m.ParentThumb
	}

	studio := m.Studio
	if studio == "" {
		studio = m.ParentStudio
	}

	return domain.Track{
		Key:        m.RatingKey,
		Title:      m.Title,
		Artist:     m.GrandparentTitle,
		Album:      m.ParentTitle,
		Studio:     studio,
		Duration:   time.Duration(m.Duration) * time.Millisecond,
		ArtworkURL: c.resolveURL(thumb),
		StreamRef:  streamRef,
		Source:     domain.SourcePlex,
	}
}

func (c *PlexClient) toTracks(metadata []plexMetadata) []domain.Track {
	tracks := make([]domain.Track, 0, len(metadata))
	for _, m := range metadata {
		track := c.toTrack(m)
		if track.IsValid() {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

// search runs the Plex search endpoint for a single media type.
func (c *PlexClient) search(ctx context.Context, query, mediaType string) ([]plexMetadata, error) {
	container, err := c.get(ctx, "/search", url.Values{
		"query": {query},
		"type":  {mediaType},
	})
	if err != nil {
		return nil, err
	}
	return container.MediaContainer.Metadata, nil
}

// Search returns tracks matching a free-form query, best match first.
func (c *PlexClient) Search(ctx context.Context, query string) ([]domain.Track, error) {
	metadata, err := c.search(ctx, query, plexTypeTrack)
	if err != nil {
		return nil, err
	}
	return c.toTracks(metadata), nil
}

// ArtistTracks returns all tracks by the named artist, resolved through a
// search for the artist followed by its track leaves.
func (c *PlexClient) ArtistTracks(ctx context.Context, artist string) ([]domain.Track, error) {
	matches, err := c.search(ctx, artist, plexTypeArtist)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	container, err := c.get(ctx,
		"/library/metadata/"+matches[0].RatingKey+"/allLeaves", url.Values{})
	if err != nil {
		return nil, err
	}
	return c.toTracks(container.MediaContainer.Metadata), nil
}

// AlbumTracks returns the named album's tracks in album order.
func (c *PlexClient) AlbumTracks(ctx context.Context, album string) ([]domain.Track, error) {
	matches, err := c.search(ctx, album, plexTypeAlbum)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	container, err := c.get(ctx,
		"/library/metadata/"+matches[0].RatingKey+"/children", url.Values{})
	if err != nil {
		return nil, err
	}
	return c.toTracks(container.MediaContainer.Metadata), nil
}

// Playlists lists the library's audio playlists.
func (c *PlexClient) Playlists(ctx context.Context) ([]ports.Playlist, error) {
	container, err := c.get(ctx, "/playlists", url.Values{
		"playlistType": {"audio"},
	})
	if err != nil {
		return nil, err
	}

	playlists := make([]ports.Playlist, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		playlists = append(playlists, ports.Playlist{
			Key:        m.RatingKey,
			Title:      m.Title,
			TrackCount: m.LeafCount,
		})
	}
	return playlists, nil
}

// PlaylistTracks returns the tracks of the playlist with the given key.
func (c *PlexClient) PlaylistTracks(ctx context.Context, key string) ([]domain.Track, error) {
	if _, err := strconv.Atoi(key); err != nil {
		return nil, fmt.Errorf("invalid playlist key %q", key)
	}

	container, err := c.get(ctx, "/playlists/"+key+"/items", url.Values{})
	if err != nil {
		return nil, err
	}
	return c.toTracks(container.MediaContainer.Metadata), nil
}

var _ ports.MetadataSource = (*PlexClient)(nil)

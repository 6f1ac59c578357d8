package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
	"github.com/mwarren09/melodeck/internal/modules/player/render"
	"golang.org/x/image/font/basicfont"
)

const (
	testGuildID = snowflake.ID(100)
	testVoiceID = snowflake.ID(200)
	testTextID  = snowflake.ID(300)
)

func makeTrack(title string) domain.Track {
	return domain.Track{
		Key:       "key-" + title,
		Title:     title,
		Artist:    "Artist",
		Album:     "Album",
		Duration:  3 * time.Minute,
		StreamRef: "http://plex/stream/" + title,
		Source:    domain.SourcePlex,
	}
}

// mockEngine records audio engine calls and injects failures per method.
type mockEngine struct {
	mu    sync.Mutex
	calls []string

	joinErr   error
	playErr   error
	pauseErr  error
	resumeErr error
	stopErr   error
	leaveErr  error
	volumeErr error

	lastStreamRef string
	lastVolume    int
}

func (m *mockEngine) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockEngine) callCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockEngine) Join(ctx context.Context, guildID, channelID snowflake.ID) error {
	m.record("join")
	return m.joinErr
}

func (m *mockEngine) Leave(ctx context.Context, guildID snowflake.ID) error {
	m.record("leave")
	return m.leaveErr
}

func (m *mockEngine) Play(ctx context.Context, guildID snowflake.ID, streamRef string) error {
	m.record("play")
	m.mu.Lock()
	m.lastStreamRef = streamRef
	m.mu.Unlock()
	return m.playErr
}

func (m *mockEngine) Pause(ctx context.Context, guildID snowflake.ID) error {
	m.record("pause")
	return m.pauseErr
}

func (m *mockEngine) Resume(ctx context.Context, guildID snowflake.ID) error {
	m.record("resume")
	return m.resumeErr
}

func (m *mockEngine) Stop(ctx context.Context, guildID snowflake.ID) error {
	m.record("stop")
	return m.stopErr
}

func (m *mockEngine) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error {
	m.record("volume")
	m.mu.Lock()
	m.lastVolume = volume
	m.mu.Unlock()
	return m.volumeErr
}

// mockPublisher records lifecycle events.
type mockPublisher struct {
	mu      sync.Mutex
	started []domain.PlaybackStartedEvent
	stopped []domain.PlaybackStoppedEvent
	ended   []domain.TrackEndedEvent
}

func (m *mockPublisher) PublishTrackEnded(event domain.TrackEndedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, event)
}

func (m *mockPublisher) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, event)
}

func (m *mockPublisher) PublishPlaybackStopped(event domain.PlaybackStoppedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = append(m.stopped, event)
}

func (m *mockPublisher) startedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.started)
}

func (m *mockPublisher) stoppedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stopped)
}

// nopPresenter satisfies the card presenter for dispatcher tests, which
// exercise state transitions rather than rendering.
type nopPresenter struct{}

func (nopPresenter) PresentCard(
	ctx context.Context,
	channelID snowflake.ID,
	png []byte,
	view domain.SessionView,
) error {
	return nil
}

func (nopPresenter) PresentStatus(
	ctx context.Context,
	channelID snowflake.ID,
	view domain.SessionView,
) error {
	return nil
}

func (nopPresenter) ClearCard(ctx context.Context, guildID snowflake.ID) error {
	return nil
}

type nopFetcher struct{}

func (nopFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return nil, errors.New("no artwork in tests")
}

func newTestDebouncer() *render.Debouncer {
	assets := render.NewAssets(basicfont.Face7x13, basicfont.Face7x13)
	return render.NewDebouncer(render.NewPipeline(assets, nopFetcher{}), nopPresenter{}, 1)
}

// testDispatcher wires a dispatcher with fresh mocks.
func testDispatcher() (*Dispatcher, *SessionManager, *mockEngine, *mockPublisher) {
	sessions := NewSessionManager()
	engine := &mockEngine{}
	publisher := &mockPublisher{}
	d := NewDispatcher(sessions, engine, newTestDebouncer(), publisher)
	return d, sessions, engine, publisher
}

package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

const testGuild = snowflake.ID(42)

// recordingPresenter counts presenter calls.
type recordingPresenter struct {
	mu       sync.Mutex
	cards    int
	statuses int
	clears   int
}

func (p *recordingPresenter) PresentCard(
	ctx context.Context,
	channelID snowflake.ID,
	png []byte,
	view domain.SessionView,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cards++
	return nil
}

func (p *recordingPresenter) PresentStatus(
	ctx context.Context,
	channelID snowflake.ID,
	view domain.SessionView,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses++
	return nil
}

func (p *recordingPresenter) ClearCard(ctx context.Context, guildID snowflake.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
	return nil
}

func (p *recordingPresenter) counts() (cards, statuses, clears int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cards, p.statuses, p.clears
}

// blockingFetcher blocks the first fetch until released so a render can be
// held in flight. Later fetches return immediately.
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (f *blockingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()

	if first {
		f.started <- struct{}{}
		<-f.release
	}
	return nil, errors.New("no artwork")
}

func (f *blockingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func playingView() domain.SessionView {
	track := makeViewTrack("a")
	return domain.SessionView{
		GuildID:       testGuild,
		TextChannelID: snowflake.ID(7),
		State:         domain.StatePlaying,
		Current:       &track,
		QueueLength:   1,
		Volume:        100,
	}
}

func makeViewTrack(title string) domain.Track {
	return domain.Track{
		Key:        "key-" + title,
		Title:      title,
		Artist:     "Artist",
		StreamRef:  "http://plex/stream/" + title,
		ArtworkURL: "http://plex/art/" + title,
		Source:     domain.SourcePlex,
	}
}

func staticSnapshot(view domain.SessionView) Snapshot {
	return func() (domain.SessionView, bool) {
		return view, true
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDebouncer_CoalescesBurstIntoOneFollowUp(t *testing.T) {
	presenter := &recordingPresenter{}
	fetcher := newBlockingFetcher()
	d := NewDebouncer(NewPipeline(testAssets(), fetcher), presenter, 2)

	snap := staticSnapshot(playingView())

	d.Request(testGuild, snap)
	<-fetcher.started // first render is now held in flight

	// A burst of requests while the render runs must collapse into a
	// single follow-up render.
	for i := 0; i < 5; i++ {
		d.Request(testGuild, snap)
	}
	close(fetcher.release)

	waitFor(t, "two presented cards", func() bool {
		cards, _, _ := presenter.counts()
		return cards == 2
	})

	// Give a would-be third render a chance to appear, then confirm it
	// never does.
	time.Sleep(50 * time.Millisecond)
	cards, _, _ := presenter.counts()
	if cards != 2 {
		t.Errorf("expected exactly 2 cards, got %d", cards)
	}

	// Identical state means the follow-up was served from the cache: the
	// artwork was only fetched for the first render.
	if fetcher.callCount() != 1 {
		t.Errorf("expected 1 artwork fetch, got %d", fetcher.callCount())
	}
}

func TestDebouncer_CacheHitSkipsRender(t *testing.T) {
	presenter := &recordingPresenter{}
	fetcher := newBlockingFetcher()
	close(fetcher.release) // never block
	d := NewDebouncer(NewPipeline(testAssets(), fetcher), presenter, 1)

	snap := staticSnapshot(playingView())

	d.Request(testGuild, snap)
	waitFor(t, "first card", func() bool {
		cards, _, _ := presenter.counts()
		return cards == 1
	})

	d.Request(testGuild, snap)
	waitFor(t, "second card", func() bool {
		cards, _, _ := presenter.counts()
		return cards == 2
	})

	if fetcher.callCount() != 1 {
		t.Errorf("expected the second request to hit the cache, got %d fetches",
			fetcher.callCount())
	}
}

func TestDebouncer_VolumeChangeInvalidatesCache(t *testing.T) {
	presenter := &recordingPresenter{}
	fetcher := newBlockingFetcher()
	close(fetcher.release)
	d := NewDebouncer(NewPipeline(testAssets(), fetcher), presenter, 1)

	view := playingView()
	d.Request(testGuild, staticSnapshot(view))
	waitFor(t, "first card", func() bool {
		cards, _, _ := presenter.counts()
		return cards == 1
	})

	view.Volume = 50
	d.Request(testGuild, staticSnapshot(view))
	waitFor(t, "second card", func() bool {
		cards, _, _ := presenter.counts()
		return cards == 2
	})

	if fetcher.callCount() != 2 {
		t.Errorf("expected a fresh render after volume change, got %d fetches",
			fetcher.callCount())
	}
}

func TestDebouncer_StoppedSessionProducesNothing(t *testing.T) {
	presenter := &recordingPresenter{}
	d := NewDebouncer(NewPipeline(testAssets(), &stubFetcher{}), presenter, 1)

	view := playingView()
	view.State = domain.StateStopped
	d.Request(testGuild, staticSnapshot(view))

	time.Sleep(50 * time.Millisecond)
	cards, statuses, clears := presenter.counts()
	if cards != 0 || statuses != 0 || clears != 0 {
		t.Errorf("expected no presenter calls, got cards=%d statuses=%d clears=%d",
			cards, statuses, clears)
	}
}

func TestDebouncer_GoneSessionProducesNothing(t *testing.T) {
	presenter := &recordingPresenter{}
	d := NewDebouncer(NewPipeline(testAssets(), &stubFetcher{}), presenter, 1)

	d.Request(testGuild, func() (domain.SessionView, bool) {
		return domain.SessionView{}, false
	})

	time.Sleep(50 * time.Millisecond)
	cards, statuses, clears := presenter.counts()
	if cards != 0 || statuses != 0 || clears != 0 {
		t.Errorf("expected no presenter calls, got cards=%d statuses=%d clears=%d",
			cards, statuses, clears)
	}
}

func TestDebouncer_IdleSessionClearsCard(t *testing.T) {
	presenter := &recordingPresenter{}
	d := NewDebouncer(NewPipeline(testAssets(), &stubFetcher{}), presenter, 1)

	view := playingView()
	view.State = domain.StateIdle
	view.Current = nil
	d.Request(testGuild, staticSnapshot(view))

	waitFor(t, "card clear", func() bool {
		_, _, clears := presenter.counts()
		return clears == 1
	})
}

func TestDebouncer_SessionsRenderIndependently(t *testing.T) {
	presenter := &recordingPresenter{}
	fetcher := newBlockingFetcher()
	d := NewDebouncer(NewPipeline(testAssets(), fetcher), presenter, 2)

	// Hold the first guild's render in flight.
	d.Request(testGuild, staticSnapshot(playingView()))
	<-fetcher.started

	other := playingView()
	other.GuildID = snowflake.ID(43)
	track := makeViewTrack("b")
	track.ArtworkURL = "" // skip the fetcher entirely
	other.Current = &track
	d.Request(other.GuildID, staticSnapshot(other))

	// The second guild's card lands while the first is still blocked.
	waitFor(t, "other guild's card", func() bool {
		cards, _, _ := presenter.counts()
		return cards >= 1
	})

	close(fetcher.release)
	waitFor(t, "both cards", func() bool {
		cards, _, _ := presenter.counts()
		return cards == 2
	})
}

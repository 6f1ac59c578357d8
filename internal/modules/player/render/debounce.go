package render

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/modules/player/application/ports"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

// DefaultWorkers caps concurrent renders (and with them artwork fetches)
// across all sessions.
const DefaultWorkers = 4

const renderTimeout = 30 * time.Second

// Snapshot returns the owning session's current view. It must take the
// session lock internally so the view is consistent. ok is false once the
// session no longer exists.
type Snapshot func() (view domain.SessionView, ok bool)

// sessionRender is the per-session debounce state.
type sessionRender struct {
	running  bool
	pending  bool
	snapshot Snapshot

	hasKey   bool
	lastKey  uint64
	lastCard []byte
}

// Debouncer coalesces render requests per session and guarantees at most
// one render in flight per session. A request that arrives while a render
// is running does not start a second one; it marks the session for one
// follow-up render that re-reads the session state after the in-flight
// render completes. Pending depth never exceeds one.
//
// A shared worker pool bounds render concurrency across sessions.
type Debouncer struct {
	pipeline  *Pipeline
	presenter ports.CardPresenter
	slots     chan struct{}

	mu       sync.Mutex
	sessions map[snowflake.ID]*sessionRender
}

// NewDebouncer creates a Debouncer with the given worker pool size.
func NewDebouncer(pipeline *Pipeline, presenter ports.CardPresenter, workers int) *Debouncer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Debouncer{
		pipeline:  pipeline,
		presenter: presenter,
		slots:     make(chan struct{}, workers),
		sessions:  make(map[snowflake.ID]*sessionRender),
	}
}

// Request asks for the guild's card to be re-rendered from the latest
// session state. Returns immediately; rendering happens on the worker
// pool.
func (d *Debouncer) Request(guildID snowflake.ID, snap Snapshot) {
	d.mu.Lock()
	st, ok := d.sessions[guildID]
	if !ok {
		st = &sessionRender{}
		d.sessions[guildID] = st
	}
	st.snapshot = snap
	if st.running {
		st.pending = true
		d.mu.Unlock()
		return
	}
	st.running = true
	d.mu.Unlock()

	go d.work(guildID, st)
}

// Forget drops the debounce state for a removed session. An in-flight
// render for it finishes but its result is discarded via the snapshot.
func (d *Debouncer) Forget(guildID snowflake.ID) {
	d.mu.Lock()
	delete(d.sessions, guildID)
	d.mu.Unlock()
}

func (d *Debouncer) work(guildID snowflake.ID, st *sessionRender) {
	for {
		d.mu.Lock()
		snap := st.snapshot
		st.pending = false
		d.mu.Unlock()

		d.slots <- struct{}{}
		d.renderOnce(guildID, st, snap)
		<-d.slots

		d.mu.Lock()
		if !st.pending {
			st.running = false
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()
	}
}

func (d *Debouncer) renderOnce(guildID snowflake.ID, st *sessionRender, snap Snapshot) {
	view, ok := snap()
	if !ok || view.State == domain.StateStopped {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()

	if view.Current == nil {
		d.mu.Lock()
		st.hasKey = false
		st.lastCard = nil
		d.mu.Unlock()

		if err := d.presenter.ClearCard(ctx, guildID); err != nil {
			slog.Warn("failed to clear card", "guild", guildID, "error", err)
		}
		return
	}

	in := NewCardInput(view)
	key := in.Fingerprint()

	d.mu.Lock()
	cached := st.hasKey && st.lastKey == key && st.lastCard != nil
	card := st.lastCard
	d.mu.Unlock()

	if cached {
		if err := d.presenter.PresentCard(ctx, view.TextChannelID, card, view); err != nil {
			slog.Warn("failed to present cached card", "guild", guildID, "error", err)
		}
		return
	}

	png, err := d.pipeline.Render(ctx, in)
	if err != nil {
		slog.Warn("card render failed, degrading to text status",
			"guild", guildID, "error", err)
		if err := d.presenter.PresentStatus(ctx, view.TextChannelID, view); err != nil {
			slog.Warn("failed to present status fallback", "guild", guildID, "error", err)
		}
		return
	}

	// The session may have stopped while the render was in flight; its
	// result is discarded rather than surfacing a card for a dead session.
	if latest, stillOK := snap(); !stillOK || latest.State == domain.StateStopped {
		return
	}

	d.mu.Lock()
	st.hasKey = true
	st.lastKey = key
	st.lastCard = png
	d.mu.Unlock()

	if err := d.presenter.PresentCard(ctx, view.TextChannelID, png, view); err != nil {
		slog.Warn("failed to present card", "guild", guildID, "error", err)
	}
}

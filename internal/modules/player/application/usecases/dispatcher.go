package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/modules/player/application/ports"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
	"github.com/mwarren09/melodeck/internal/modules/player/render"
)

// Action identifies a playback control action.
type Action string

const (
	ActionPlay       Action = "play"
	ActionPause      Action = "pause"
	ActionResume     Action = "resume"
	ActionSkip       Action = "skip"
	ActionLoop       Action = "loop"
	ActionShuffle    Action = "shuffle"
	ActionVolume     Action = "volume"
	ActionDisconnect Action = "disconnect"
)

// Payload carries the per-action arguments of a dispatch.
type Payload struct {
	Track          *domain.Track // ActionPlay
	Volume         int           // ActionVolume
	VoiceChannelID snowflake.ID  // ActionPlay: channel to join
	TextChannelID  snowflake.ID  // channel for cards and notices
}

// Ack is the immediate user-facing acknowledgment of a dispatch. The
// state mutation is applied synchronously; card rendering always happens
// asynchronously afterwards.
type Ack struct {
	Message string
}

// Dispatcher maps inbound control actions to session state-machine
// transitions and engine side effects, then requests a re-render. The
// render request is unconditional: the card must reflect current truth
// even when the transition was rejected.
type Dispatcher struct {
	sessions  *SessionManager
	engine    ports.AudioEngineClient
	renders   *render.Debouncer
	publisher ports.EventPublisher
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	sessions *SessionManager,
	engine ports.AudioEngineClient,
	renders *render.Debouncer,
	publisher ports.EventPublisher,
) *Dispatcher {
	return &Dispatcher{
		sessions:  sessions,
		engine:    engine,
		renders:   renders,
		publisher: publisher,
	}
}

// Dispatch applies exactly one state-machine call for the action and
// requests a re-render. Conflicts and missing sessions come back as
// errors for the caller to surface; they never crash a session.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	guildID snowflake.ID,
	action Action,
	payload Payload,
) (Ack, error) {
	defer d.requestRender(guildID)

	switch action {
	case ActionPlay:
		return d.play(ctx, guildID, payload)
	case ActionPause:
		return d.pause(ctx, guildID)
	case ActionResume:
		return d.resume(ctx, guildID)
	case ActionSkip:
		return d.skip(ctx, guildID)
	case ActionLoop:
		return d.cycleLoop(guildID)
	case ActionShuffle:
		return d.shuffle(guildID)
	case ActionVolume:
		return d.setVolume(ctx, guildID, payload.Volume)
	case ActionDisconnect:
		return d.disconnect(ctx, guildID)
	default:
		return Ack{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func (d *Dispatcher) play(ctx context.Context, guildID snowflake.ID, p Payload) (Ack, error) {
	if p.Track == nil || !p.Track.IsValid() {
		return Ack{}, domain.ErrInvalidTrack
	}

	h, created := d.sessions.GetOrCreate(guildID, p.VoiceChannelID, p.TextChannelID)

	var started *domain.Track
	err := h.With(func(s *domain.Session) error {
		if p.TextChannelID != 0 {
			s.SetTextChannelID(p.TextChannelID)
		}

		wasIdle := s.State() == domain.StateIdle
		if wasIdle && p.VoiceChannelID != 0 {
			s.SetVoiceChannelID(p.VoiceChannelID)
		}

		t, err := s.Play(*p.Track)
		if err != nil {
			return err
		}
		if t == nil {
			// Queued behind the current track, nothing to start.
			return nil
		}

		if created || wasIdle {
			if err := d.engine.Join(ctx, guildID, s.VoiceChannelID()); err != nil {
				s.StopPlayback()
				return err
			}
		}
		if err := d.engine.SetVolume(ctx, guildID, s.Volume()); err != nil {
			slog.Warn("failed to apply volume", "guild", guildID, "error", err)
		}
		if err := d.engine.Play(ctx, guildID, t.StreamRef); err != nil {
			s.StopPlayback()
			return err
		}

		started = t
		return nil
	})
	if err != nil {
		return Ack{}, err
	}

	if started != nil {
		d.publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{
			GuildID: guildID,
			Track:   *started,
		})
		return Ack{Message: fmt.Sprintf("Now playing **%s**.", started.Title)}, nil
	}
	return Ack{Message: fmt.Sprintf("Added **%s** to the queue.", p.Track.Title)}, nil
}

func (d *Dispatcher) pause(ctx context.Context, guildID snowflake.ID) (Ack, error) {
	h, ok := d.sessions.Get(guildID)
	if !ok {
		return Ack{}, ErrSessionNotFound
	}

	err := h.With(func(s *domain.Session) error {
		if err := s.Pause(); err != nil {
			return err
		}
		if err := d.engine.Pause(ctx, guildID); err != nil {
			// Keep session and engine in agreement.
			_ = s.Resume()
			return err
		}
		return nil
	})
	if err != nil {
		return Ack{}, err
	}
	return Ack{Message: "Paused playback."}, nil
}

func (d *Dispatcher) resume(ctx context.Context, guildID snowflake.ID) (Ack, error) {
	h, ok := d.sessions.Get(guildID)
	if !ok {
		return Ack{}, ErrSessionNotFound
	}

	err := h.With(func(s *domain.Session) error {
		if err := s.Resume(); err != nil {
			return err
		}
		if err := d.engine.Resume(ctx, guildID); err != nil {
			_ = s.Pause()
			return err
		}
		return nil
	})
	if err != nil {
		return Ack{}, err
	}
	return Ack{Message: "Resumed playback."}, nil
}

func (d *Dispatcher) skip(ctx context.Context, guildID snowflake.ID) (Ack, error) {
	h, ok := d.sessions.Get(guildID)
	if !ok {
		return Ack{}, ErrSessionNotFound
	}

	var next *domain.Track
	err := h.With(func(s *domain.Session) error {
		t, err := s.Skip()
		if err != nil {
			return err
		}
		next = t
		if t != nil {
			// Replacing the stream ends the old one with a "replaced"
			// reason, which the TrackEnded handler ignores.
			return d.engine.Play(ctx, guildID, t.StreamRef)
		}
		return d.engine.Stop(ctx, guildID)
	})
	if err != nil {
		return Ack{}, err
	}

	if next != nil {
		d.publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{
			GuildID: guildID,
			Track:   *next,
		})
		return Ack{Message: fmt.Sprintf("Skipped. Now playing **%s**.", next.Title)}, nil
	}

	d.publisher.PublishPlaybackStopped(domain.PlaybackStoppedEvent{GuildID: guildID})
	return Ack{Message: "Skipped. The queue is empty."}, nil
}

func (d *Dispatcher) cycleLoop(guildID snowflake.ID) (Ack, error) {
	h, ok := d.sessions.Get(guildID)
	if !ok {
		return Ack{}, ErrSessionNotFound
	}

	var mode domain.LoopMode
	err := h.With(func(s *domain.Session) error {
		var err error
		mode, err = s.CycleLoopMode()
		return err
	})
	if err != nil {
		return Ack{}, err
	}
	return Ack{Message: fmt.Sprintf("Loop mode set to **%s**.", mode)}, nil
}

func (d *Dispatcher) shuffle(guildID snowflake.ID) (Ack, error) {
	h, ok := d.sessions.Get(guildID)
	if !ok {
		return Ack{}, ErrSessionNotFound
	}

	err := h.With(func(s *domain.Session) error {
		return s.Shuffle()
	})
	if err != nil {
		return Ack{}, err
	}
	return Ack{Message: "Shuffled the queue."}, nil
}

func (d *Dispatcher) setVolume(ctx context.Context, guildID snowflake.ID, volume int) (Ack, error) {
	h, ok := d.sessions.Get(guildID)
	if !ok {
		return Ack{}, ErrSessionNotFound
	}

	var applied int
	err := h.With(func(s *domain.Session) error {
		var err error
		applied, err = s.SetVolume(volume)
		if err != nil {
			return err
		}
		return d.engine.SetVolume(ctx, guildID, applied)
	})
	if err != nil {
		return Ack{}, err
	}
	return Ack{Message: fmt.Sprintf("Volume set to %d.", applied)}, nil
}

func (d *Dispatcher) disconnect(ctx context.Context, guildID snowflake.ID) (Ack, error) {
	h, ok := d.sessions.Get(guildID)
	if !ok {
		return Ack{}, ErrSessionNotFound
	}

	err := h.With(func(s *domain.Session) error {
		if err := s.Disconnect(); err != nil {
			return err
		}
		if err := d.engine.Leave(ctx, guildID); err != nil {
			// The session is stopped regardless; the voice state will be
			// reconciled by the gateway eventually.
			slog.Warn("failed to leave voice channel", "guild", guildID, "error", err)
		}
		return nil
	})
	if err != nil {
		return Ack{}, err
	}

	d.sessions.Remove(guildID)
	d.renders.Forget(guildID)
	d.publisher.PublishPlaybackStopped(domain.PlaybackStoppedEvent{GuildID: guildID})

	return Ack{Message: "Stopped playback and left the voice channel."}, nil
}

// EnqueueTracks appends a batch of tracks (album, artist or playlist
// load), optionally shuffling the queue, and starts playback if the
// session is idle. Returns the track that started, if any.
func (d *Dispatcher) EnqueueTracks(
	ctx context.Context,
	guildID snowflake.ID,
	tracks []domain.Track,
	voiceChannelID, textChannelID snowflake.ID,
	shuffle bool,
) (*domain.Track, error) {
	if len(tracks) == 0 {
		return nil, ErrNoResults
	}

	h, created := d.sessions.GetOrCreate(guildID, voiceChannelID, textChannelID)
	defer d.requestRender(guildID)

	var started *domain.Track
	err := h.With(func(s *domain.Session) error {
		if textChannelID != 0 {
			s.SetTextChannelID(textChannelID)
		}

		wasIdle := s.State() == domain.StateIdle
		if wasIdle && voiceChannelID != 0 {
			s.SetVoiceChannelID(voiceChannelID)
		}

		if err := s.Enqueue(tracks...); err != nil {
			return err
		}
		if shuffle {
			if err := s.Shuffle(); err != nil && err != domain.ErrQueueEmpty {
				return err
			}
		}

		t, err := s.Start()
		if err != nil || t == nil {
			return err
		}

		if created || wasIdle {
			if err := d.engine.Join(ctx, guildID, s.VoiceChannelID()); err != nil {
				s.StopPlayback()
				return err
			}
		}
		if err := d.engine.SetVolume(ctx, guildID, s.Volume()); err != nil {
			slog.Warn("failed to apply volume", "guild", guildID, "error", err)
		}
		if err := d.engine.Play(ctx, guildID, t.StreamRef); err != nil {
			s.StopPlayback()
			return err
		}

		started = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if started != nil {
		d.publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{
			GuildID: guildID,
			Track:   *started,
		})
	}
	return started, nil
}

// RemoveTrack removes the queue entry at index (see the queue's cursor
// re-validation rules) and requests a re-render.
func (d *Dispatcher) RemoveTrack(guildID snowflake.ID, index int) (*domain.Track, error) {
	h, ok := d.sessions.Get(guildID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	defer d.requestRender(guildID)

	var removed *domain.Track
	err := h.With(func(s *domain.Session) error {
		var err error
		removed, err = s.RemoveTrack(index)
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// ClearQueue drops all queued tracks and requests a re-render.
func (d *Dispatcher) ClearQueue(guildID snowflake.ID) error {
	h, ok := d.sessions.Get(guildID)
	if !ok {
		return ErrSessionNotFound
	}
	defer d.requestRender(guildID)

	return h.With(func(s *domain.Session) error {
		return s.ClearQueue()
	})
}

// HandleTrackEnded reacts to the audio engine's end-of-track events:
// the queue advances per the session's loop mode and the next track is
// handed to the engine.
func (d *Dispatcher) HandleTrackEnded(ctx context.Context, event domain.TrackEndedEvent) {
	if !event.Reason.ShouldAdvance() {
		return
	}

	h, ok := d.sessions.Get(event.GuildID)
	if !ok {
		return
	}

	var next *domain.Track
	err := h.With(func(s *domain.Session) error {
		t, err := s.TrackEnded()
		if err != nil {
			return err
		}
		next = t
		if t != nil {
			return d.engine.Play(ctx, event.GuildID, t.StreamRef)
		}
		return nil
	})
	if err != nil {
		slog.Error("failed to advance after track end",
			"guild", event.GuildID, "error", err)
	}

	if next != nil {
		d.publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{
			GuildID: event.GuildID,
			Track:   *next,
		})
	} else {
		d.publisher.PublishPlaybackStopped(domain.PlaybackStoppedEvent{GuildID: event.GuildID})
	}

	d.requestRender(event.GuildID)
}

// ReapIdle disconnects sessions that have sat idle longer than timeout.
func (d *Dispatcher) ReapIdle(ctx context.Context, timeout time.Duration) {
	for _, guildID := range d.sessions.GuildIDs() {
		h, ok := d.sessions.Get(guildID)
		if !ok {
			continue
		}
		if h.View().State != domain.StateIdle {
			continue
		}
		if time.Since(h.IdleSince()) < timeout {
			continue
		}

		slog.Info("disconnecting idle session", "guild", guildID)
		if _, err := d.Dispatch(ctx, guildID, ActionDisconnect, Payload{}); err != nil {
			slog.Warn("failed to disconnect idle session", "guild", guildID, "error", err)
		}
	}
}

// Snapshot returns the read-only projection of a guild's session.
func (d *Dispatcher) Snapshot(guildID snowflake.ID) (domain.SessionView, error) {
	return d.sessions.Snapshot(guildID)
}

func (d *Dispatcher) requestRender(guildID snowflake.ID) {
	d.renders.Request(guildID, func() (domain.SessionView, bool) {
		h, ok := d.sessions.Get(guildID)
		if !ok {
			return domain.SessionView{}, false
		}
		return h.View(), true
	})
}

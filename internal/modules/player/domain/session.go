package domain

import (
	"math/rand"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// State is the lifecycle state of a playback session.
type State int

const (
	StateIdle    State = iota // connected or fresh, nothing playing
	StatePlaying              // a track is streaming
	StatePaused               // stream suspended, position retained
	StateStopped              // terminal: session is being torn down
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Volume bounds enforced by the session.
const (
	MinVolume     = 0
	MaxVolume     = 150
	DefaultVolume = 100
)

// Session is the per-guild playback aggregate: queue, volume, loop mode,
// shuffle flag and lifecycle state. All mutation goes through transition
// methods; invalid transitions return ErrStateConflict and leave the
// session untouched. A Session is not self-locking: the session manager
// serializes access with a per-session lock (single-writer discipline).
type Session struct {
	guildID        snowflake.ID
	voiceChannelID snowflake.ID
	textChannelID  snowflake.ID

	queue    Queue
	volume   int
	loopMode LoopMode
	shuffled bool
	state    State

	// Set when the entry at the cursor was removed mid-play: the cursor
	// already points at the follow-up track, so the next TrackEnded must
	// not advance past it.
	holdAtCursor bool

	rng *rand.Rand
}

// NewSession creates a new Idle session for the given guild and channels.
func NewSession(guildID, voiceChannelID, textChannelID snowflake.ID) *Session {
	return &Session{
		guildID:        guildID,
		voiceChannelID: voiceChannelID,
		textChannelID:  textChannelID,
		queue:          NewQueue(),
		volume:         DefaultVolume,
		state:          StateIdle,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GuildID returns the guild this session belongs to.
func (s *Session) GuildID() snowflake.ID { return s.guildID }

// VoiceChannelID returns the connected voice channel.
func (s *Session) VoiceChannelID() snowflake.ID { return s.voiceChannelID }

// SetVoiceChannelID updates the voice channel.
func (s *Session) SetVoiceChannelID(id snowflake.ID) { s.voiceChannelID = id }

// TextChannelID returns the channel now-playing cards are posted to.
func (s *Session) TextChannelID() snowflake.ID { return s.textChannelID }

// SetTextChannelID updates the card channel.
func (s *Session) SetTextChannelID(id snowflake.ID) { s.textChannelID = id }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Queue exposes the session's queue for enqueue and inspection. Callers
// must hold the session's lock.
func (s *Session) Queue() *Queue { return &s.queue }

// Volume returns the current volume.
func (s *Session) Volume() int { return s.volume }

// LoopMode returns the current loop mode.
func (s *Session) LoopMode() LoopMode { return s.loopMode }

// Shuffled reports whether the queue has been shuffled since the last clear.
func (s *Session) Shuffled() bool { return s.shuffled }

// SetVolume clamps v to [MinVolume, MaxVolume] and stores it. Fails only
// on a stopped session.
func (s *Session) SetVolume(v int) (int, error) {
	if s.state == StateStopped {
		return s.volume, ErrStateConflict
	}
	if v < MinVolume {
		v = MinVolume
	}
	if v > MaxVolume {
		v = MaxVolume
	}
	s.volume = v
	return s.volume, nil
}

// CycleLoopMode steps Off -> Track -> Queue -> Off and returns the new mode.
func (s *Session) CycleLoopMode() (LoopMode, error) {
	if s.state == StateStopped {
		return s.loopMode, ErrStateConflict
	}
	s.loopMode = s.loopMode.Next()
	return s.loopMode, nil
}

// Enqueue validates and appends tracks without touching playback state.
func (s *Session) Enqueue(tracks ...Track) error {
	if s.state == StateStopped {
		return ErrStateConflict
	}
	for _, t := range tracks {
		if !t.IsValid() {
			return ErrInvalidTrack
		}
	}
	s.queue.Enqueue(tracks...)
	return nil
}

// Play enqueues the track and, if the session is idle, transitions to
// Playing. Returns the track the caller must hand to the audio engine, or
// nil if the track was only queued behind the current one.
func (s *Session) Play(track Track) (*Track, error) {
	if err := s.Enqueue(track); err != nil {
		return nil, err
	}
	return s.Start()
}

// Start transitions Idle -> Playing when the queue has a current track.
// Returns the track to stream, or nil if the session was already playing
// or paused (no transition, not a conflict).
func (s *Session) Start() (*Track, error) {
	switch s.state {
	case StateStopped:
		return nil, ErrStateConflict
	case StatePlaying, StatePaused:
		return nil, nil
	}
	current := s.queue.Current()
	if current == nil {
		return nil, ErrQueueEmpty
	}
	s.state = StatePlaying
	return current, nil
}

// Pause transitions Playing -> Paused.
func (s *Session) Pause() error {
	if s.state != StatePlaying {
		return ErrStateConflict
	}
	s.state = StatePaused
	return nil
}

// Resume transitions Paused -> Playing.
func (s *Session) Resume() error {
	if s.state != StatePaused {
		return ErrStateConflict
	}
	s.state = StatePlaying
	return nil
}

// Skip advances past the current track from Playing or Paused. A user
// skip always moves forward: loop mode Track is treated as Off for this
// one advance so the skip cannot be swallowed by the replay policy, and
// loop mode Queue still wraps. Returns the next track to stream, or nil
// if the queue emptied and the session is now Idle.
func (s *Session) Skip() (*Track, error) {
	if s.state != StatePlaying && s.state != StatePaused {
		return nil, ErrStateConflict
	}

	mode := s.loopMode
	if mode == LoopModeTrack {
		mode = LoopModeOff
	}
	return s.advance(mode), nil
}

// TrackEnded handles the engine's end-of-track event: the queue advances
// per the session's loop mode. Events arriving while the session is not
// actively playing (late events after a disconnect) are ignored.
func (s *Session) TrackEnded() (*Track, error) {
	if s.state != StatePlaying && s.state != StatePaused {
		return nil, nil
	}

	if s.holdAtCursor {
		// The slot at the cursor was never played: its previous occupant
		// was removed mid-play. Play it instead of advancing past it.
		s.holdAtCursor = false
		if next := s.queue.Current(); next != nil {
			s.state = StatePlaying
			return next, nil
		}
		s.state = StateIdle
		return nil, nil
	}

	return s.advance(s.loopMode), nil
}

func (s *Session) advance(mode LoopMode) *Track {
	s.holdAtCursor = false
	next := s.queue.Advance(mode)
	if next == nil {
		s.state = StateIdle
		return nil
	}
	s.state = StatePlaying
	return next
}

// StopPlayback drops back to Idle without advancing the queue. Used when
// the engine rejects a stream start so session and engine stay in
// agreement.
func (s *Session) StopPlayback() {
	if s.state == StatePlaying || s.state == StatePaused {
		s.state = StateIdle
	}
}

// Disconnect transitions any live state to Stopped and clears the queue.
// The caller is responsible for removing the session from the registry.
func (s *Session) Disconnect() error {
	if s.state == StateStopped {
		return ErrStateConflict
	}
	s.state = StateStopped
	s.queue.Clear()
	s.shuffled = false
	return nil
}

// Shuffle permutes the queue, keeping the current track pinned.
func (s *Session) Shuffle() error {
	if s.state == StateStopped {
		return ErrStateConflict
	}
	if s.queue.Len() < 2 {
		return ErrQueueEmpty
	}
	s.queue.Shuffle(s.rng)
	s.shuffled = true
	return nil
}

// RemoveTrack removes the queue entry at index. Removing the entry at the
// cursor while loop mode is Track reverts the mode to Off so a now-missing
// slot cannot replay forever, and arms holdAtCursor so the follow-up track
// is not skipped when the removed track's stream ends.
func (s *Session) RemoveTrack(index int) (*Track, error) {
	if s.state == StateStopped {
		return nil, ErrStateConflict
	}
	if !s.queue.isValidIndex(index) {
		return nil, ErrInvalidPosition
	}

	atCursor := index == s.queue.Cursor()
	if atCursor && s.loopMode == LoopModeTrack {
		s.loopMode = LoopModeOff
	}

	removed := s.queue.Remove(index)
	if atCursor && (s.state == StatePlaying || s.state == StatePaused) {
		s.holdAtCursor = !s.queue.IsEmpty()
	}
	return removed, nil
}

// ClearQueue drops every queued track and resets the cursor. The current
// stream, if any, keeps playing until it ends.
func (s *Session) ClearQueue() error {
	if s.state == StateStopped {
		return ErrStateConflict
	}
	s.queue.Clear()
	s.shuffled = false
	s.holdAtCursor = false
	return nil
}

// SessionView is a read-only projection of a session for status display
// and card rendering.
type SessionView struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
	TextChannelID  snowflake.ID
	State          State
	Current        *Track
	Position       int
	QueueLength    int
	Upcoming       []Track
	Volume         int
	LoopMode       LoopMode
	Shuffled       bool
}

// View snapshots the session. The returned value shares nothing with the
// live session and is safe to read after the lock is released.
func (s *Session) View() SessionView {
	view := SessionView{
		GuildID:        s.guildID,
		VoiceChannelID: s.voiceChannelID,
		TextChannelID:  s.textChannelID,
		State:          s.state,
		Position:       s.queue.Cursor(),
		QueueLength:    s.queue.Len(),
		Upcoming:       s.queue.Upcoming(),
		Volume:         s.volume,
		LoopMode:       s.loopMode,
		Shuffled:       s.shuffled,
	}
	if current := s.queue.Current(); current != nil && s.state != StateIdle {
		track := *current
		view.Current = &track
	}
	return view
}

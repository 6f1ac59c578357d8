package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

func playTrack(t *testing.T, d *Dispatcher, title string) Ack {
	t.Helper()
	track := makeTrack(title)
	ack, err := d.Dispatch(context.Background(), testGuildID, ActionPlay, Payload{
		Track:          &track,
		VoiceChannelID: testVoiceID,
		TextChannelID:  testTextID,
	})
	if err != nil {
		t.Fatalf("failed to play %q: %v", title, err)
	}
	return ack
}

func TestDispatcher_PlayStartsSessionAndEngine(t *testing.T) {
	d, sessions, engine, publisher := testDispatcher()

	ack := playTrack(t, d, "a")

	if ack.Message != "Now playing **a**." {
		t.Errorf("unexpected ack: %q", ack.Message)
	}
	if engine.callCount("join") != 1 {
		t.Errorf("expected one join, got %d", engine.callCount("join"))
	}
	if engine.callCount("play") != 1 {
		t.Errorf("expected one play, got %d", engine.callCount("play"))
	}
	if engine.lastStreamRef != "http://plex/stream/a" {
		t.Errorf("unexpected stream ref %q", engine.lastStreamRef)
	}
	if publisher.startedCount() != 1 {
		t.Errorf("expected one started event, got %d", publisher.startedCount())
	}

	view, err := sessions.Snapshot(testGuildID)
	if err != nil {
		t.Fatalf("expected session to exist: %v", err)
	}
	if view.State != domain.StatePlaying {
		t.Errorf("expected playing, got %v", view.State)
	}
	if view.VoiceChannelID != testVoiceID || view.TextChannelID != testTextID {
		t.Error("expected channels recorded on the session")
	}
}

func TestDispatcher_PlayWhilePlayingQueues(t *testing.T) {
	d, sessions, engine, _ := testDispatcher()

	playTrack(t, d, "a")
	ack := playTrack(t, d, "b")

	if ack.Message != "Added **b** to the queue." {
		t.Errorf("unexpected ack: %q", ack.Message)
	}
	if engine.callCount("play") != 1 {
		t.Errorf("expected engine untouched by the queued add, got %d plays",
			engine.callCount("play"))
	}

	view, _ := sessions.Snapshot(testGuildID)
	if view.QueueLength != 2 {
		t.Errorf("expected 2 queued tracks, got %d", view.QueueLength)
	}
}

func TestDispatcher_PlayEngineFailureRollsBack(t *testing.T) {
	d, sessions, engine, publisher := testDispatcher()
	engine.playErr = errors.New("engine down")

	track := makeTrack("a")
	_, err := d.Dispatch(context.Background(), testGuildID, ActionPlay, Payload{
		Track:          &track,
		VoiceChannelID: testVoiceID,
		TextChannelID:  testTextID,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if publisher.startedCount() != 0 {
		t.Error("expected no started event on failure")
	}

	view, err := sessions.Snapshot(testGuildID)
	if err != nil {
		t.Fatalf("expected session to survive: %v", err)
	}
	if view.State != domain.StateIdle {
		t.Errorf("expected rollback to idle, got %v", view.State)
	}
}

func TestDispatcher_PlayRejectsInvalidTrack(t *testing.T) {
	d, sessions, _, _ := testDispatcher()

	_, err := d.Dispatch(context.Background(), testGuildID, ActionPlay, Payload{
		Track: &domain.Track{Title: "no stream"},
	})
	if !errors.Is(err, domain.ErrInvalidTrack) {
		t.Errorf("expected ErrInvalidTrack, got %v", err)
	}
	if _, err := sessions.Snapshot(testGuildID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expected no session for a rejected play")
	}
}

func TestDispatcher_PauseResumeRoundTrip(t *testing.T) {
	d, sessions, engine, _ := testDispatcher()
	playTrack(t, d, "a")

	ack, err := d.Dispatch(context.Background(), testGuildID, ActionPause, Payload{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Message != "Paused playback." {
		t.Errorf("unexpected ack: %q", ack.Message)
	}
	if engine.callCount("pause") != 1 {
		t.Errorf("expected one engine pause, got %d", engine.callCount("pause"))
	}

	view, _ := sessions.Snapshot(testGuildID)
	if view.State != domain.StatePaused {
		t.Errorf("expected paused, got %v", view.State)
	}

	if _, err := d.Dispatch(context.Background(), testGuildID, ActionResume, Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, _ = sessions.Snapshot(testGuildID)
	if view.State != domain.StatePlaying {
		t.Errorf("expected playing, got %v", view.State)
	}
}

func TestDispatcher_PauseWithoutSession(t *testing.T) {
	d, _, _, _ := testDispatcher()

	_, err := d.Dispatch(context.Background(), testGuildID, ActionPause, Payload{})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDispatcher_RedundantPauseConflicts(t *testing.T) {
	d, _, engine, _ := testDispatcher()
	playTrack(t, d, "a")

	if _, err := d.Dispatch(context.Background(), testGuildID, ActionPause, Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := d.Dispatch(context.Background(), testGuildID, ActionPause, Payload{})
	if !errors.Is(err, domain.ErrStateConflict) {
		t.Errorf("expected ErrStateConflict, got %v", err)
	}
	if engine.callCount("pause") != 1 {
		t.Errorf("expected engine untouched by the conflict, got %d pauses",
			engine.callCount("pause"))
	}
}

func TestDispatcher_PauseEngineFailureRollsBack(t *testing.T) {
	d, sessions, engine, _ := testDispatcher()
	playTrack(t, d, "a")
	engine.pauseErr = errors.New("engine down")

	_, err := d.Dispatch(context.Background(), testGuildID, ActionPause, Payload{})
	if err == nil {
		t.Fatal("expected error")
	}

	view, _ := sessions.Snapshot(testGuildID)
	if view.State != domain.StatePlaying {
		t.Errorf("expected rollback to playing, got %v", view.State)
	}
}

func TestDispatcher_SkipToNextTrack(t *testing.T) {
	d, _, engine, publisher := testDispatcher()
	playTrack(t, d, "a")
	playTrack(t, d, "b")

	ack, err := d.Dispatch(context.Background(), testGuildID, ActionSkip, Payload{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Message != "Skipped. Now playing **b**." {
		t.Errorf("unexpected ack: %q", ack.Message)
	}
	if engine.lastStreamRef != "http://plex/stream/b" {
		t.Errorf("expected engine to stream b, got %q", engine.lastStreamRef)
	}
	if publisher.startedCount() != 2 {
		t.Errorf("expected 2 started events, got %d", publisher.startedCount())
	}
}

func TestDispatcher_SkipLastTrackStopsEngine(t *testing.T) {
	d, sessions, engine, publisher := testDispatcher()
	playTrack(t, d, "a")

	ack, err := d.Dispatch(context.Background(), testGuildID, ActionSkip, Payload{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Message != "Skipped. The queue is empty." {
		t.Errorf("unexpected ack: %q", ack.Message)
	}
	if engine.callCount("stop") != 1 {
		t.Errorf("expected one engine stop, got %d", engine.callCount("stop"))
	}
	if publisher.stoppedCount() != 1 {
		t.Errorf("expected one stopped event, got %d", publisher.stoppedCount())
	}

	view, _ := sessions.Snapshot(testGuildID)
	if view.State != domain.StateIdle {
		t.Errorf("expected idle, got %v", view.State)
	}
}

func TestDispatcher_VolumeClampsAndAppliesToEngine(t *testing.T) {
	d, _, engine, _ := testDispatcher()
	playTrack(t, d, "a")

	ack, err := d.Dispatch(context.Background(), testGuildID, ActionVolume, Payload{Volume: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Message != "Volume set to 150." {
		t.Errorf("unexpected ack: %q", ack.Message)
	}
	if engine.lastVolume != 150 {
		t.Errorf("expected engine volume 150, got %d", engine.lastVolume)
	}
}

func TestDispatcher_LoopCyclesModes(t *testing.T) {
	d, sessions, _, _ := testDispatcher()
	playTrack(t, d, "a")

	ack, err := d.Dispatch(context.Background(), testGuildID, ActionLoop, Payload{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Message != "Loop mode set to **track**." {
		t.Errorf("unexpected ack: %q", ack.Message)
	}

	view, _ := sessions.Snapshot(testGuildID)
	if view.LoopMode != domain.LoopModeTrack {
		t.Errorf("expected track loop, got %v", view.LoopMode)
	}
}

func TestDispatcher_ShuffleNeedsTracks(t *testing.T) {
	d, _, _, _ := testDispatcher()
	playTrack(t, d, "a")

	_, err := d.Dispatch(context.Background(), testGuildID, ActionShuffle, Payload{})
	if !errors.Is(err, domain.ErrQueueEmpty) {
		t.Errorf("expected ErrQueueEmpty with one track, got %v", err)
	}

	playTrack(t, d, "b")
	if _, err := d.Dispatch(context.Background(), testGuildID, ActionShuffle, Payload{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDispatcher_DisconnectTearsDownSession(t *testing.T) {
	d, sessions, engine, publisher := testDispatcher()
	playTrack(t, d, "a")

	ack, err := d.Dispatch(context.Background(), testGuildID, ActionDisconnect, Payload{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Message != "Stopped playback and left the voice channel." {
		t.Errorf("unexpected ack: %q", ack.Message)
	}
	if engine.callCount("leave") != 1 {
		t.Errorf("expected one leave, got %d", engine.callCount("leave"))
	}
	if publisher.stoppedCount() != 1 {
		t.Errorf("expected one stopped event, got %d", publisher.stoppedCount())
	}
	if _, err := sessions.Snapshot(testGuildID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expected session removed from the registry")
	}
}

func TestDispatcher_UnknownAction(t *testing.T) {
	d, _, _, _ := testDispatcher()
	playTrack(t, d, "a")

	_, err := d.Dispatch(context.Background(), testGuildID, Action("explode"), Payload{})
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestDispatcher_EnqueueTracksStartsWhenIdle(t *testing.T) {
	d, sessions, engine, _ := testDispatcher()

	tracks := []domain.Track{makeTrack("a"), makeTrack("b"), makeTrack("c")}
	started, err := d.EnqueueTracks(
		context.Background(), testGuildID, tracks, testVoiceID, testTextID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started == nil || started.Title != "a" {
		t.Fatalf("expected a to start, got %v", started)
	}
	if engine.callCount("play") != 1 {
		t.Errorf("expected one engine play, got %d", engine.callCount("play"))
	}

	view, _ := sessions.Snapshot(testGuildID)
	if view.QueueLength != 3 {
		t.Errorf("expected 3 tracks, got %d", view.QueueLength)
	}
}

func TestDispatcher_EnqueueTracksAppendsWhilePlaying(t *testing.T) {
	d, sessions, engine, _ := testDispatcher()
	playTrack(t, d, "x")

	tracks := []domain.Track{makeTrack("a"), makeTrack("b")}
	started, err := d.EnqueueTracks(
		context.Background(), testGuildID, tracks, testVoiceID, testTextID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started != nil {
		t.Errorf("expected no start while playing, got %v", started)
	}
	if engine.callCount("play") != 1 {
		t.Errorf("expected engine untouched, got %d plays", engine.callCount("play"))
	}

	view, _ := sessions.Snapshot(testGuildID)
	if view.QueueLength != 3 {
		t.Errorf("expected 3 tracks, got %d", view.QueueLength)
	}
}

func TestDispatcher_EnqueueTracksEmptyBatch(t *testing.T) {
	d, _, _, _ := testDispatcher()

	_, err := d.EnqueueTracks(context.Background(), testGuildID, nil, testVoiceID, testTextID, false)
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}

func TestDispatcher_TrackEndedAdvancesQueue(t *testing.T) {
	d, _, engine, publisher := testDispatcher()
	playTrack(t, d, "a")
	playTrack(t, d, "b")

	d.HandleTrackEnded(context.Background(), domain.TrackEndedEvent{
		GuildID: testGuildID,
		Reason:  domain.TrackEndFinished,
	})

	if engine.lastStreamRef != "http://plex/stream/b" {
		t.Errorf("expected engine to stream b, got %q", engine.lastStreamRef)
	}
	if publisher.startedCount() != 2 {
		t.Errorf("expected 2 started events, got %d", publisher.startedCount())
	}
}

func TestDispatcher_TrackEndedAfterLastGoesIdle(t *testing.T) {
	d, sessions, _, publisher := testDispatcher()
	playTrack(t, d, "a")

	d.HandleTrackEnded(context.Background(), domain.TrackEndedEvent{
		GuildID: testGuildID,
		Reason:  domain.TrackEndFinished,
	})

	view, _ := sessions.Snapshot(testGuildID)
	if view.State != domain.StateIdle {
		t.Errorf("expected idle, got %v", view.State)
	}
	if publisher.stoppedCount() != 1 {
		t.Errorf("expected one stopped event, got %d", publisher.stoppedCount())
	}
}

func TestDispatcher_TrackEndedReplacedIsIgnored(t *testing.T) {
	d, sessions, engine, _ := testDispatcher()
	playTrack(t, d, "a")
	playTrack(t, d, "b")

	d.HandleTrackEnded(context.Background(), domain.TrackEndedEvent{
		GuildID: testGuildID,
		Reason:  domain.TrackEndReplaced,
	})

	if engine.callCount("play") != 1 {
		t.Errorf("expected no extra play for replaced end, got %d", engine.callCount("play"))
	}
	view, _ := sessions.Snapshot(testGuildID)
	if view.Current == nil || view.Current.Title != "a" {
		t.Errorf("expected a still current, got %v", view.Current)
	}
}

func TestDispatcher_TrackEndedUnknownGuildIsIgnored(t *testing.T) {
	d, _, engine, _ := testDispatcher()

	d.HandleTrackEnded(context.Background(), domain.TrackEndedEvent{
		GuildID: testGuildID,
		Reason:  domain.TrackEndFinished,
	})

	if len(engine.calls) != 0 {
		t.Errorf("expected no engine calls, got %v", engine.calls)
	}
}

func TestDispatcher_RemoveTrackTranslatesErrors(t *testing.T) {
	d, _, _, _ := testDispatcher()

	if _, err := d.RemoveTrack(testGuildID, 0); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	playTrack(t, d, "a")
	if _, err := d.RemoveTrack(testGuildID, 9); !errors.Is(err, domain.ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}

	removed, err := d.RemoveTrack(testGuildID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed.Title != "a" {
		t.Errorf("expected to remove a, got %q", removed.Title)
	}
}

func TestDispatcher_ReapIdleDisconnectsStaleSessions(t *testing.T) {
	d, sessions, engine, _ := testDispatcher()
	playTrack(t, d, "a")

	// Drain the queue so the session goes idle.
	d.HandleTrackEnded(context.Background(), domain.TrackEndedEvent{
		GuildID: testGuildID,
		Reason:  domain.TrackEndFinished,
	})

	h, _ := sessions.Get(testGuildID)
	h.touched = time.Now().Add(-time.Hour)

	d.ReapIdle(context.Background(), 10*time.Minute)

	if engine.callCount("leave") != 1 {
		t.Errorf("expected idle session to be disconnected, got %d leaves",
			engine.callCount("leave"))
	}
	if _, err := sessions.Snapshot(testGuildID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expected session removed")
	}
}

func TestDispatcher_ReapIdleSparesActiveSessions(t *testing.T) {
	d, sessions, engine, _ := testDispatcher()
	playTrack(t, d, "a")

	h, _ := sessions.Get(testGuildID)
	h.touched = time.Now().Add(-time.Hour)

	d.ReapIdle(context.Background(), 10*time.Minute)

	if engine.callCount("leave") != 0 {
		t.Errorf("expected playing session untouched, got %d leaves",
			engine.callCount("leave"))
	}
}

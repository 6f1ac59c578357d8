package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mwarren09/melodeck/internal/modules/player/application/ports"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

// DefaultBufferSize is the default buffer size for event channels.
const DefaultBufferSize = 64

// Compile-time check that Bus implements ports.EventPublisher.
var _ ports.EventPublisher = (*Bus)(nil)

// Bus is a buffered-channel event bus decoupling the audio engine's
// callback shape from the dispatcher. Publishing is non-blocking: if a
// buffer is full the event is dropped with a warning rather than stalling
// an engine callback.
type Bus struct {
	trackEnded      chan domain.TrackEndedEvent
	playbackStarted chan domain.PlaybackStartedEvent
	playbackStopped chan domain.PlaybackStoppedEvent

	trackEndedHandlers      []func(context.Context, domain.TrackEndedEvent)
	playbackStartedHandlers []func(context.Context, domain.PlaybackStartedEvent)
	playbackStoppedHandlers []func(context.Context, domain.PlaybackStoppedEvent)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewBus creates a Bus with the given buffer size and starts its
// dispatcher goroutines.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bus{
		trackEnded:      make(chan domain.TrackEndedEvent, bufferSize),
		playbackStarted: make(chan domain.PlaybackStartedEvent, bufferSize),
		playbackStopped: make(chan domain.PlaybackStoppedEvent, bufferSize),
		ctx:             ctx,
		cancel:          cancel,
	}

	b.wg.Add(3)
	go b.dispatchTrackEnded()
	go b.dispatchPlaybackStarted()
	go b.dispatchPlaybackStopped()

	return b
}

func (b *Bus) dispatchTrackEnded() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.trackEnded:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.trackEndedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *Bus) dispatchPlaybackStarted() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.playbackStarted:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.playbackStartedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *Bus) dispatchPlaybackStopped() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.playbackStopped:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.playbackStoppedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

// PublishTrackEnded publishes a TrackEndedEvent.
func (b *Bus) PublishTrackEnded(event domain.TrackEndedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "TrackEnded")
		return
	}

	select {
	case b.trackEnded <- event:
		slog.Debug("published event", "type", "TrackEnded", "guild", event.GuildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "TrackEnded")
	}
}

// PublishPlaybackStarted publishes a PlaybackStartedEvent.
func (b *Bus) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "PlaybackStarted")
		return
	}

	select {
	case b.playbackStarted <- event:
		slog.Debug("published event", "type", "PlaybackStarted", "guild", event.GuildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "PlaybackStarted")
	}
}

// PublishPlaybackStopped publishes a PlaybackStoppedEvent.
func (b *Bus) PublishPlaybackStopped(event domain.PlaybackStoppedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "PlaybackStopped")
		return
	}

	select {
	case b.playbackStopped <- event:
		slog.Debug("published event", "type", "PlaybackStopped", "guild", event.GuildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "PlaybackStopped")
	}
}

// OnTrackEnded registers a handler for TrackEndedEvent.
func (b *Bus) OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trackEndedHandlers = append(b.trackEndedHandlers, handler)
}

// OnPlaybackStarted registers a handler for PlaybackStartedEvent.
func (b *Bus) OnPlaybackStarted(handler func(context.Context, domain.PlaybackStartedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playbackStartedHandlers = append(b.playbackStartedHandlers, handler)
}

// OnPlaybackStopped registers a handler for PlaybackStoppedEvent.
func (b *Bus) OnPlaybackStopped(handler func(context.Context, domain.PlaybackStoppedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playbackStoppedHandlers = append(b.playbackStoppedHandlers, handler)
}

// Close stops the dispatchers and closes all channels. Publishing after
// Close is a logged no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()

	close(b.trackEnded)
	close(b.playbackStarted)
	close(b.playbackStopped)

	b.wg.Wait()

	slog.Debug("event bus closed")
}

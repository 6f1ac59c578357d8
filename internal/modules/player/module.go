package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/mwarren09/melodeck/internal/bot"
	"github.com/mwarren09/melodeck/internal/modules/player/application/events"
	"github.com/mwarren09/melodeck/internal/modules/player/application/usecases"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
	"github.com/mwarren09/melodeck/internal/modules/player/infrastructure"
	"github.com/mwarren09/melodeck/internal/modules/player/presentation"
	"github.com/mwarren09/melodeck/internal/modules/player/render"
)

// reapInterval is how often idle sessions are checked against the idle
// timeout.
const reapInterval = time.Minute

func init() {
	bot.Register(&Module{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*Module)(nil)

// Module provides library playback with a rendered now-playing card.
type Module struct {
	config       *Config
	handlers     *presentation.Handlers
	autocomplete *presentation.AutocompleteHandler
	components   *presentation.ComponentHandler

	engine     *infrastructure.LavalinkEngine
	bus        *events.Bus
	sessions   *usecases.SessionManager
	dispatcher *usecases.Dispatcher
	renders    *render.Debouncer

	ctx    context.Context
	cancel context.CancelFunc
}

// Name returns the module name.
func (m *Module) Name() string {
	return "player"
}

// Commands returns the slash commands for this module.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return presentation.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":       m.handlers.HandlePlay,
		"artist":     m.handlers.HandleArtist,
		"album":      m.handlers.HandleAlbum,
		"playlist":   m.handlers.HandlePlaylist,
		"pause":      m.handlers.HandlePause,
		"resume":     m.handlers.HandleResume,
		"skip":       m.handlers.HandleSkip,
		"loop":       m.handlers.HandleLoop,
		"shuffle":    m.handlers.HandleShuffle,
		"volume":     m.handlers.HandleVolume,
		"queue":      m.handlers.HandleQueue,
		"disconnect": m.handlers.HandleDisconnect,
	}
}

// EventHandlers returns the Discord gateway event handlers for this
// module.
func (m *Module) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			if m.engine != nil {
				m.engine.OnVoiceServerUpdate(event)
			}
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			if m.engine != nil {
				m.engine.OnVoiceStateUpdate(event)
			}
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			switch i.Type {
			case discordgo.InteractionApplicationCommandAutocomplete:
				if m.autocomplete != nil {
					m.autocomplete.Handle(s, i)
				}
			case discordgo.InteractionMessageComponent:
				if m.components != nil {
					m.components.Handle(s, i)
				}
			}
		},
	}
}

// LoadConfig loads module-specific configuration from environment
// variables.
func (m *Module) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *Module) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		slog.Warn("player module initialized without session, playback disabled")
		return nil
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.bus = events.NewBus(events.DefaultBufferSize)

	engine, err := infrastructure.NewLavalinkEngine(deps.Session, m.bus, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
	})
	if err != nil {
		return err
	}
	m.engine = engine

	assets, err := render.LoadAssets(m.config.CardLabelFont, m.config.CardValueFont)
	if err != nil {
		return err
	}
	pipeline := render.NewPipeline(assets, render.NewHTTPFetcher())
	notifier := infrastructure.NewCardNotifier(deps.Session)
	m.renders = render.NewDebouncer(pipeline, notifier, m.config.RenderWorkers)

	plex := infrastructure.NewPlexClient(infrastructure.PlexConfig{
		BaseURL: m.config.PlexBaseURL,
		Token:   m.config.PlexToken,
	})
	library := usecases.NewLibraryService(plex)

	m.sessions = usecases.NewSessionManager()
	m.dispatcher = usecases.NewDispatcher(m.sessions, engine, m.renders, m.bus)

	m.bus.OnTrackEnded(m.dispatcher.HandleTrackEnded)
	m.registerPresenceHandlers(deps.Session)

	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	m.handlers = presentation.NewHandlers(m.dispatcher, library, voiceState)
	m.autocomplete = presentation.NewAutocompleteHandler(m.dispatcher, library)
	m.components = presentation.NewComponentHandler(m.dispatcher)

	go m.reapLoop()

	slog.Info("player module initialized",
		"render_workers", m.config.RenderWorkers,
		"idle_timeout", m.config.IdleTimeout,
	)

	return nil
}

// registerPresenceHandlers mirrors playback state into the bot's presence.
func (m *Module) registerPresenceHandlers(session *discordgo.Session) {
	m.bus.OnPlaybackStarted(func(ctx context.Context, event domain.PlaybackStartedEvent) {
		if err := session.UpdateListeningStatus(event.Track.Title); err != nil {
			slog.Debug("failed to update presence", "error", err)
		}
	})
	m.bus.OnPlaybackStopped(func(ctx context.Context, event domain.PlaybackStoppedEvent) {
		// Presence is global; only clear it when no guild is playing.
		if m.sessions.ActiveCount() > 0 {
			return
		}
		if err := session.UpdateListeningStatus(""); err != nil {
			slog.Debug("failed to clear presence", "error", err)
		}
	})
}

// reapLoop periodically disconnects sessions that have sat idle past the
// configured timeout.
func (m *Module) reapLoop() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.dispatcher.ReapIdle(m.ctx, m.config.IdleTimeout)
		}
	}
}

// Shutdown cleans up module resources.
func (m *Module) Shutdown() error {
	if m.cancel != nil {
		m.cancel()
	}

	if m.bus != nil {
		m.bus.Close()
	}

	if m.engine != nil {
		m.engine.Link().Close()
	}

	return nil
}

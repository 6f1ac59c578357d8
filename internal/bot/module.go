package bot

import "github.com/bwmarrin/discordgo"

// InteractionHandler handles a slash-command interaction. Handlers respond
// through the Responder so they can be tested without a live session.
type InteractionHandler func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error

// EventHandler is registered verbatim with discordgo's AddHandler, so it
// must match one of discordgo's handler signatures, e.g.
// func(s *discordgo.Session, e *discordgo.VoiceStateUpdate).
type EventHandler any

// ModuleDependencies is handed to each module's Init. The session is open
// by then, so session state (including the bot's own user) is populated.
type ModuleDependencies struct {
	Session *discordgo.Session
}

// Module is a self-contained feature unit. Modules register themselves with
// the global registry from an init function and are wired up by the Bot.
type Module interface {
	// Name identifies the module in logs and error messages.
	Name() string

	// Commands returns the slash commands the module contributes.
	Commands() []*discordgo.ApplicationCommand

	// CommandHandlers maps command names to their handlers. Names must be
	// unique across all loaded modules.
	CommandHandlers() map[string]InteractionHandler

	// EventHandlers returns gateway event handlers to register with the
	// session before it opens.
	EventHandlers() []EventHandler

	// Init wires the module's internals. Called once, after the Discord
	// connection is established.
	Init(deps ModuleDependencies) error

	// Shutdown releases the module's resources.
	Shutdown() error
}

// ConfigurableModule is implemented by modules with environment
// configuration. LoadConfig runs before the Discord connection is opened,
// so a misconfigured module fails startup instead of failing mid-session.
type ConfigurableModule interface {
	LoadConfig() error
}

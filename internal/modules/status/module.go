package status

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mwarren09/melodeck/internal/bot"
	"github.com/mwarren09/melodeck/internal/modules/status/presentation"
)

func init() {
	bot.Register(&Module{})
}

// Module provides the /status health command.
type Module struct {
	handler *presentation.StatusHandler
}

// Name returns the module name.
func (m *Module) Name() string {
	return "status"
}

// Commands returns the slash commands for this module.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "status",
			Description: "Show bot health and latency",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"status": m.handler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *Module) EventHandlers() []bot.EventHandler {
	return nil
}

// Init initializes the module.
func (m *Module) Init(deps bot.ModuleDependencies) error {
	m.handler = presentation.NewStatusHandler(time.Now())
	return nil
}

// Shutdown cleans up module resources.
func (m *Module) Shutdown() error {
	return nil
}

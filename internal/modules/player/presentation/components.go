package presentation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/modules/player/application/usecases"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

// componentPrefix namespaces the card's button custom IDs.
const componentPrefix = "player:"

// componentActions maps button custom ID suffixes to dispatcher actions.
var componentActions = map[string]usecases.Action{
	"pause":      usecases.ActionPause,
	"resume":     usecases.ActionResume,
	"skip":       usecases.ActionSkip,
	"loop":       usecases.ActionLoop,
	"shuffle":    usecases.ActionShuffle,
	"disconnect": usecases.ActionDisconnect,
}

// ComponentHandler routes the now-playing card's buttons to the
// dispatcher.
type ComponentHandler struct {
	dispatcher *usecases.Dispatcher
}

// NewComponentHandler creates a new ComponentHandler.
func NewComponentHandler(dispatcher *usecases.Dispatcher) *ComponentHandler {
	return &ComponentHandler{
		dispatcher: dispatcher,
	}
}

// Handle processes a message component interaction. Non-player components
// are ignored so other modules can use their own custom IDs.
func (h *ComponentHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	if !strings.HasPrefix(customID, componentPrefix) {
		return
	}

	action, ok := componentActions[strings.TrimPrefix(customID, componentPrefix)]
	if !ok {
		slog.Warn("unknown player component", "custom_id", customID)
		return
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("invalid guild ID in component interaction", "error", err)
		return
	}

	ack, err := h.dispatcher.Dispatch(context.Background(), guildID, action, usecases.Payload{})
	if err != nil {
		h.respondEphemeral(s, i, componentErrorMessage(err))
		return
	}

	// The card itself is refreshed by the render pipeline; the button just
	// needs an acknowledgement.
	h.respondEphemeral(s, i, ack.Message)
}

func (h *ComponentHandler) respondEphemeral(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	message string,
) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Debug("failed to respond to component interaction", "error", err)
	}
}

func componentErrorMessage(err error) string {
	switch {
	case errors.Is(err, usecases.ErrSessionNotFound):
		return "Nothing is playing."
	case errors.Is(err, domain.ErrStateConflict):
		return "That action does not apply right now."
	case errors.Is(err, domain.ErrQueueEmpty):
		return "The queue is empty."
	default:
		return "Something went wrong."
	}
}

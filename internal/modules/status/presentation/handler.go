package presentation

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mwarren09/melodeck/internal/bot"
)

// StatusHandler handles the /status command.
type StatusHandler struct {
	startedAt time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(startedAt time.Time) *StatusHandler {
	return &StatusHandler{
		startedAt: startedAt,
	}
}

// Handle processes the status command and sends the response.
func (h *StatusHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	uptime := time.Since(h.startedAt).Round(time.Second)

	fields := []*discordgo.MessageEmbedField{
		{Name: "Uptime", Value: uptime.String(), Inline: true},
	}
	if s != nil {
		latency := s.HeartbeatLatency().Round(time.Millisecond)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Gateway Latency",
			Value:  fmt.Sprintf("%dms", latency.Milliseconds()),
			Inline: true,
		})
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:  "Status",
					Fields: fields,
				},
			},
		},
	})
}

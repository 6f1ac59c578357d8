package presentation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/modules/player/application/usecases"
)

const maxChoices = 25

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	dispatcher *usecases.Dispatcher
	library    *usecases.LibraryService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(
	dispatcher *usecases.Dispatcher,
	library *usecases.LibraryService,
) *AutocompleteHandler {
	return &AutocompleteHandler{
		dispatcher: dispatcher,
		library:    library,
	}
}

// Handle routes an autocomplete interaction to the matching provider.
func (h *AutocompleteHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "play":
		h.handlePlay(s, i)
	case "playlist":
		h.handlePlaylist(s, i)
	case "queue":
		h.handleQueuePosition(s, i)
	}
}

func (h *AutocompleteHandler) handlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
			break
		}
	}

	// Skip very short queries; they produce noise and hammer the library.
	if len(query) < 2 {
		respondChoices(s, i, nil)
		return
	}

	tracks, err := h.library.SearchTracks(context.Background(), query, maxChoices)
	if err != nil {
		slog.Debug("track autocomplete failed", "query", query, "error", err)
		respondChoices(s, i, nil)
		return
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(tracks))
	for _, track := range tracks {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncateChoice(fmt.Sprintf("%s - %s", track.Title, track.Artist)),
			Value: track.Title,
		})
	}
	respondChoices(s, i, choices)
}

func (h *AutocompleteHandler) handlePlaylist(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var partial string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "name" && opt.Focused {
			partial = opt.StringValue()
			break
		}
	}

	playlists, err := h.library.Playlists(context.Background())
	if err != nil {
		slog.Debug("playlist autocomplete failed", "error", err)
		respondChoices(s, i, nil)
		return
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)
	for _, playlist := range playlists {
		if partial != "" && !strings.Contains(
			strings.ToLower(playlist.Title), strings.ToLower(partial)) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncateChoice(fmt.Sprintf("%s (%d tracks)", playlist.Title, playlist.TrackCount)),
			Value: playlist.Title,
		})
		if len(choices) >= maxChoices {
			break
		}
	}
	respondChoices(s, i, choices)
}

func (h *AutocompleteHandler) handleQueuePosition(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		respondChoices(s, i, nil)
		return
	}

	view, err := h.dispatcher.Snapshot(guildID)
	if err != nil {
		respondChoices(s, i, nil)
		return
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)
	for idx, track := range view.Upcoming {
		if idx >= maxChoices {
			break
		}
		position := idx + 1
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncateChoice(fmt.Sprintf("%d. %s", position, track.Title)),
			Value: position,
		})
	}
	respondChoices(s, i, choices)
}

func respondChoices(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	choices []*discordgo.ApplicationCommandOptionChoice,
) {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		slog.Debug("failed to send autocomplete choices", "error", err)
	}
}

func truncateChoice(s string) string {
	const maxLen = 100
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

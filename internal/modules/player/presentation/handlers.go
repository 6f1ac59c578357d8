package presentation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/bot"
	"github.com/mwarren09/melodeck/internal/modules/player/application/ports"
	"github.com/mwarren09/melodeck/internal/modules/player/application/usecases"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

const queuePageSize = 10

// Handlers holds all the command handlers.
type Handlers struct {
	dispatcher *usecases.Dispatcher
	library    *usecases.LibraryService
	voiceState ports.VoiceStateProvider
}

// NewHandlers creates new Handlers.
func NewHandlers(
	dispatcher *usecases.Dispatcher,
	library *usecases.LibraryService,
	voiceState ports.VoiceStateProvider,
) *Handlers {
	return &Handlers{
		dispatcher: dispatcher,
		library:    library,
		voiceState: voiceState,
	}
}

// interactionContext is the parsed common fields of a guild interaction.
type interactionContext struct {
	GuildID       snowflake.ID
	UserID        snowflake.ID
	TextChannelID snowflake.ID
}

func parseInteraction(i *discordgo.InteractionCreate) (interactionContext, error) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return interactionContext{}, fmt.Errorf("invalid guild ID: %w", err)
	}

	var userID snowflake.ID
	if i.Member != nil {
		userID, err = snowflake.Parse(i.Member.User.ID)
		if err != nil {
			return interactionContext{}, fmt.Errorf("invalid user ID: %w", err)
		}
	}

	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return interactionContext{}, fmt.Errorf("invalid channel ID: %w", err)
	}

	return interactionContext{
		GuildID:       guildID,
		UserID:        userID,
		TextChannelID: channelID,
	}, nil
}

// requireVoiceChannel resolves the invoking user's voice channel, failing
// with a user-facing error when they are not in one.
func (h *Handlers) requireVoiceChannel(ic interactionContext) (snowflake.ID, error) {
	channelID, err := h.voiceState.UserVoiceChannel(ic.GuildID, ic.UserID)
	if err != nil {
		return 0, err
	}
	if channelID == 0 {
		return 0, usecases.ErrUserNotInVoice
	}
	return channelID, nil
}

// HandlePlay handles the /play command.
func (h *Handlers) HandlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	ic, err := parseInteraction(i)
	if err != nil {
		return respondError(r, "Invalid interaction")
	}

	voiceChannelID, err := h.requireVoiceChannel(ic)
	if err != nil {
		if errors.Is(err, usecases.ErrUserNotInVoice) {
			return respondError(r, "Join a voice channel first.")
		}
		return respondError(r, "Could not resolve your voice channel.")
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	track, err := h.library.FindTrack(ctx, query)
	if err != nil {
		if errors.Is(err, usecases.ErrNoResults) {
			return respondError(r, fmt.Sprintf("No tracks found for **%s**.", query))
		}
		return respondError(r, "Library search failed.")
	}

	ack, err := h.dispatcher.Dispatch(ctx, ic.GuildID, usecases.ActionPlay, usecases.Payload{
		Track:          &track,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  ic.TextChannelID,
	})
	if err != nil {
		return respondDispatchError(r, err)
	}

	return respondSuccess(r, ack.Message)
}

// HandleArtist handles the /artist command.
func (h *Handlers) HandleArtist(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleBulkLoad(i, r, func(ctx context.Context, name string) ([]domain.Track, error) {
		return h.library.ArtistTracks(ctx, name)
	}, "by")
}

// HandleAlbum handles the /album command.
func (h *Handlers) HandleAlbum(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleBulkLoad(i, r, func(ctx context.Context, name string) ([]domain.Track, error) {
		return h.library.AlbumTracks(ctx, name)
	}, "from")
}

// HandlePlaylist handles the /playlist command.
func (h *Handlers) HandlePlaylist(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleBulkLoad(i, r, func(ctx context.Context, name string) ([]domain.Track, error) {
		_, tracks, err := h.library.PlaylistByTitle(ctx, name)
		if err != nil {
			return nil, err
		}
		return tracks, nil
	}, "from")
}

// handleBulkLoad is the shared path for artist, album, and playlist loads.
func (h *Handlers) handleBulkLoad(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	load func(ctx context.Context, name string) ([]domain.Track, error),
	preposition string,
) error {
	ctx := context.Background()

	ic, err := parseInteraction(i)
	if err != nil {
		return respondError(r, "Invalid interaction")
	}

	voiceChannelID, err := h.requireVoiceChannel(ic)
	if err != nil {
		if errors.Is(err, usecases.ErrUserNotInVoice) {
			return respondError(r, "Join a voice channel first.")
		}
		return respondError(r, "Could not resolve your voice channel.")
	}

	var name string
	var shuffle bool
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "name":
			name = opt.StringValue()
		case "shuffle":
			shuffle = opt.BoolValue()
		}
	}

	tracks, err := load(ctx, name)
	if err != nil {
		if errors.Is(err, usecases.ErrNoResults) {
			return respondError(r, fmt.Sprintf("No tracks found for **%s**.", name))
		}
		return respondError(r, "Library search failed.")
	}
	if len(tracks) == 0 {
		return respondError(r, fmt.Sprintf("No tracks found for **%s**.", name))
	}

	started, err := h.dispatcher.EnqueueTracks(
		ctx, ic.GuildID, tracks, voiceChannelID, ic.TextChannelID, shuffle)
	if err != nil {
		return respondDispatchError(r, err)
	}

	message := fmt.Sprintf("Queued %d tracks %s **%s**.", len(tracks), preposition, name)
	if started != nil {
		message += fmt.Sprintf(" Now playing **%s**.", started.Title)
	}
	return respondSuccess(r, message)
}

// HandlePause handles the /pause command.
func (h *Handlers) HandlePause(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleSimpleAction(i, r, usecases.ActionPause)
}

// HandleResume handles the /resume command.
func (h *Handlers) HandleResume(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleSimpleAction(i, r, usecases.ActionResume)
}

// HandleSkip handles the /skip command.
func (h *Handlers) HandleSkip(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleSimpleAction(i, r, usecases.ActionSkip)
}

// HandleLoop handles the /loop command.
func (h *Handlers) HandleLoop(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleSimpleAction(i, r, usecases.ActionLoop)
}

// HandleShuffle handles the /shuffle command.
func (h *Handlers) HandleShuffle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleSimpleAction(i, r, usecases.ActionShuffle)
}

// HandleDisconnect handles the /disconnect command.
func (h *Handlers) HandleDisconnect(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleSimpleAction(i, r, usecases.ActionDisconnect)
}

func (h *Handlers) handleSimpleAction(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	action usecases.Action,
) error {
	ic, err := parseInteraction(i)
	if err != nil {
		return respondError(r, "Invalid interaction")
	}

	ack, err := h.dispatcher.Dispatch(context.Background(), ic.GuildID, action, usecases.Payload{})
	if err != nil {
		return respondDispatchError(r, err)
	}
	return respondSuccess(r, ack.Message)
}

// HandleVolume handles the /volume command.
func (h *Handlers) HandleVolume(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ic, err := parseInteraction(i)
	if err != nil {
		return respondError(r, "Invalid interaction")
	}

	var level int
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "level" {
			level = int(opt.IntValue())
		}
	}

	ack, err := h.dispatcher.Dispatch(context.Background(), ic.GuildID, usecases.ActionVolume,
		usecases.Payload{Volume: level})
	if err != nil {
		return respondDispatchError(r, err)
	}
	return respondSuccess(r, ack.Message)
}

// HandleQueue handles the /queue command.
func (h *Handlers) HandleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "list":
		return h.handleQueueList(i, r, subCmd.Options)
	case "remove":
		return h.handleQueueRemove(i, r, subCmd.Options)
	case "clear":
		return h.handleQueueClear(i, r)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *Handlers) handleQueueList(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ic, err := parseInteraction(i)
	if err != nil {
		return respondError(r, "Invalid interaction")
	}

	page := 1
	for _, opt := range options {
		if opt.Name == "page" {
			page = int(opt.IntValue())
		}
	}

	view, err := h.dispatcher.Snapshot(ic.GuildID)
	if err != nil {
		return respondError(r, "Nothing is playing.")
	}

	return respondQueueList(r, view, page)
}

func (h *Handlers) handleQueueRemove(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ic, err := parseInteraction(i)
	if err != nil {
		return respondError(r, "Invalid interaction")
	}

	var position int
	for _, opt := range options {
		if opt.Name == "position" {
			position = int(opt.IntValue())
		}
	}

	view, err := h.dispatcher.Snapshot(ic.GuildID)
	if err != nil {
		return respondError(r, "Nothing is playing.")
	}

	// Displayed positions are 1-based over the upcoming tracks; translate
	// to an absolute queue index past the cursor.
	removed, err := h.dispatcher.RemoveTrack(ic.GuildID, view.Position+position)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPosition) {
			return respondError(r, "No track at that position.")
		}
		return respondDispatchError(r, err)
	}

	return respondSuccess(r, fmt.Sprintf("Removed **%s** from the queue.", removed.Title))
}

func (h *Handlers) handleQueueClear(i *discordgo.InteractionCreate, r bot.Responder) error {
	ic, err := parseInteraction(i)
	if err != nil {
		return respondError(r, "Invalid interaction")
	}

	if err := h.dispatcher.ClearQueue(ic.GuildID); err != nil {
		return respondDispatchError(r, err)
	}
	return respondSuccess(r, "Cleared the queue.")
}

// respondDispatchError maps dispatcher errors to user-facing messages.
func respondDispatchError(r bot.Responder, err error) error {
	switch {
	case errors.Is(err, usecases.ErrSessionNotFound):
		return respondError(r, "Nothing is playing.")
	case errors.Is(err, domain.ErrStateConflict):
		return respondError(r, "That action does not apply right now.")
	case errors.Is(err, domain.ErrQueueEmpty):
		return respondError(r, "The queue is empty.")
	case errors.Is(err, domain.ErrInvalidTrack):
		return respondError(r, "That track cannot be played.")
	default:
		return respondError(r, "Something went wrong.")
	}
}

func respondSuccess(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: message,
					Color:       colorSuccess,
				},
			},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: message,
					Color:       colorError,
				},
			},
		},
	})
}

func respondQueueList(r bot.Responder, view domain.SessionView, page int) error {
	title := "Queue"
	switch view.LoopMode {
	case domain.LoopModeTrack:
		title = "Queue \U0001F502"
	case domain.LoopModeQueue:
		title = "Queue \U0001F501"
	}

	embed := &discordgo.MessageEmbed{
		Title: title,
	}

	if view.Current == nil && len(view.Upcoming) == 0 {
		embed.Description = "Queue is empty."
		return r.Respond(&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{embed},
			},
		})
	}

	totalPages := (len(view.Upcoming) + queuePageSize - 1) / queuePageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	var sb strings.Builder
	if view.Current != nil && page == 1 {
		sb.WriteString("### Now Playing\n")
		fmt.Fprintf(&sb, "**%s** - %s\n", view.Current.Title, view.Current.Artist)
	}

	start := (page - 1) * queuePageSize
	end := min(start+queuePageSize, len(view.Upcoming))
	if start < end {
		sb.WriteString("### Up Next\n")
		for idx, track := range view.Upcoming[start:end] {
			// Escape the period so Discord does not render a markdown list.
			fmt.Fprintf(&sb, "%d\\. **%s** - %s\n", start+idx+1, track.Title, track.Artist)
		}
	}

	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Page %d/%d | %d tracks | Volume %d%%",
			page, totalPages, view.QueueLength, view.Volume),
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

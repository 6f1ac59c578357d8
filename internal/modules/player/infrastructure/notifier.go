package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/mwarren09/melodeck/internal/modules/player/application/ports"
	"github.com/mwarren09/melodeck/internal/modules/player/domain"
)

const cardFilename = "now_playing.png"

// cardMessage remembers where a guild's current card lives so it can be
// replaced on the next render.
type cardMessage struct {
	channelID snowflake.ID
	messageID string
}

// CardNotifier implements ports.CardPresenter over a Discord session. Each
// guild has at most one live card message; posting a new card deletes the
// previous one.
type CardNotifier struct {
	session *discordgo.Session

	mu    sync.Mutex
	cards map[snowflake.ID]cardMessage
}

// NewCardNotifier creates a CardNotifier.
func NewCardNotifier(session *discordgo.Session) *CardNotifier {
	return &CardNotifier{
		session: session,
		cards:   make(map[snowflake.ID]cardMessage),
	}
}

// PresentCard posts the rendered PNG with the playback control row,
// replacing the guild's previous card.
func (n *CardNotifier) PresentCard(
	ctx context.Context,
	channelID snowflake.ID,
	png []byte,
	view domain.SessionView,
) error {
	n.deletePrevious(view.GuildID)

	msg, err := n.session.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Files: []*discordgo.File{
			{
				Name:        cardFilename,
				ContentType: "image/png",
				Reader:      bytes.NewReader(png),
			},
		},
		Components: controlComponents(view),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send card message: %w", err)
	}

	n.remember(view.GuildID, channelID, msg.ID)
	return nil
}

// PresentStatus posts a text-only status embed. Used when rendering fails
// or is unavailable; the previous card is still replaced so stale artwork
// never outlives the state it depicted.
func (n *CardNotifier) PresentStatus(
	ctx context.Context,
	channelID snowflake.ID,
	view domain.SessionView,
) error {
	n.deletePrevious(view.GuildID)

	embed := statusEmbed(view)

	msg, err := n.session.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: controlComponents(view),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send status message: %w", err)
	}

	n.remember(view.GuildID, channelID, msg.ID)
	return nil
}

// ClearCard removes the guild's last posted card, if any.
func (n *CardNotifier) ClearCard(ctx context.Context, guildID snowflake.ID) error {
	n.deletePrevious(guildID)
	return nil
}

func (n *CardNotifier) remember(guildID, channelID snowflake.ID, messageID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cards[guildID] = cardMessage{channelID: channelID, messageID: messageID}
}

func (n *CardNotifier) deletePrevious(guildID snowflake.ID) {
	n.mu.Lock()
	previous, exists := n.cards[guildID]
	delete(n.cards, guildID)
	n.mu.Unlock()

	if !exists {
		return
	}

	// Deleting a message the user already removed is not an error worth
	// surfacing.
	_ = n.session.ChannelMessageDelete(previous.channelID.String(), previous.messageID)
}

func statusEmbed(view domain.SessionView) *discordgo.MessageEmbed {
	if view.Current == nil {
		return &discordgo.MessageEmbed{
			Description: "Nothing is playing.",
		}
	}

	track := view.Current
	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing",
		},
		Title: track.Title,
		Color: track.Source.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artist", Value: orUnknown(track.Artist), Inline: true},
			{Name: "Album", Value: orUnknown(track.Album), Inline: true},
			{Name: "Duration", Value: track.FormattedDuration(), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Volume %d%% | %d in queue", view.Volume, view.QueueLength),
		},
	}

	if track.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.ArtworkURL}
	}
	return embed
}

func orUnknown(value string) string {
	if value == "" {
		return "Unknown"
	}
	return value
}

// controlComponents builds the playback button row attached to every card.
// Custom IDs are routed back to the dispatcher by the component handler.
func controlComponents(view domain.SessionView) []discordgo.MessageComponent {
	pauseResume := discordgo.Button{
		Label:    "Pause",
		Style:    discordgo.SecondaryButton,
		CustomID: "player:pause",
	}
	if view.State == domain.StatePaused {
		pauseResume = discordgo.Button{
			Label:    "Resume",
			Style:    discordgo.PrimaryButton,
			CustomID: "player:resume",
		}
	}

	loopLabel := "Loop: " + view.LoopMode.String()

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				pauseResume,
				discordgo.Button{
					Label:    "Skip",
					Style:    discordgo.SecondaryButton,
					CustomID: "player:skip",
				},
				discordgo.Button{
					Label:    loopLabel,
					Style:    discordgo.SecondaryButton,
					CustomID: "player:loop",
				},
				discordgo.Button{
					Label:    "Shuffle",
					Style:    discordgo.SecondaryButton,
					CustomID: "player:shuffle",
				},
				discordgo.Button{
					Label:    "Disconnect",
					Style:    discordgo.DangerButton,
					CustomID: "player:disconnect",
				},
			},
		},
	}
}

var _ ports.CardPresenter = (*CardNotifier)(nil)

package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"guildleague/internal/adapters/chat"
)

var buttonStyles = map[chat.ButtonStyle]discordgo.ButtonStyle{
	chat.StylePrimary:   discordgo.PrimaryButton,
	chat.StyleSecondary: discordgo.SecondaryButton,
	chat.StyleSuccess:   discordgo.SuccessButton,
	chat.StyleDanger:    discordgo.DangerButton,
}

func toEmbeds(embeds []chat.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.Footer != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if !e.Timestamp.IsZero() {
			embed.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		out = append(out, embed)
	}
	return out
}

func toComponents(rows [][]chat.Button) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		actions := discordgo.ActionsRow{}
		for _, b := range row {
			button := discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    buttonStyles[b.Style],
			}
			if b.Emoji != "" {
				button.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			actions.Components = append(actions.Components, button)
		}
		out = append(out, actions)
	}
	return out
}

// allowedMentions restricts pings to the listed users; everything else renders inert.
func allowedMentions(users []string) *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{},
		Users: users,
	}
}

func toMessageSend(msg chat.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         msg.Content,
		Embeds:          toEmbeds(msg.Embeds),
		Components:      toComponents(msg.Rows),
		AllowedMentions: allowedMentions(msg.Mentions),
	}
}

// toMessageEdit replaces embeds and content; controls only when msg.Rows is non-nil.
func toMessageEdit(channelID, messageID string, msg chat.Message) *discordgo.MessageEdit {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	embeds := toEmbeds(msg.Embeds)
	edit.Embeds = &embeds
	if msg.Content != "" {
		edit.Content = &msg.Content
	}
	if msg.Rows != nil {
		components := toComponents(msg.Rows)
		edit.Components = &components
	}
	edit.AllowedMentions = allowedMentions(msg.Mentions)
	return edit
}

// layoutOf recovers the embed title and button ids of a posted message.
func layoutOf(m *discordgo.Message) chat.Layout {
	var layout chat.Layout
	if len(m.Embeds) > 0 && m.Embeds[0] != nil {
		layout.Title = m.Embeds[0].Title
	}
	for _, c := range m.Components {
		layout.ButtonIDs = append(layout.ButtonIDs, buttonIDs(c)...)
	}
	return layout
}

func buttonIDs(c discordgo.MessageComponent) []string {
	switch v := c.(type) {
	case *discordgo.ActionsRow:
		return rowButtonIDs(v.Components)
	case discordgo.ActionsRow:
		return rowButtonIDs(v.Components)
	case *discordgo.Button:
		if v.CustomID != "" {
			return []string{v.CustomID}
		}
	case discordgo.Button:
		if v.CustomID != "" {
			return []string{v.CustomID}
		}
	}
	return nil
}

func rowButtonIDs(components []discordgo.MessageComponent) []string {
	var ids []string
	for _, c := range components {
		ids = append(ids, buttonIDs(c)...)
	}
	return ids
}

func textCapable(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildCategory, discordgo.ChannelTypeGuildForum,
		discordgo.ChannelTypeGuildMedia, discordgo.ChannelTypeGuildDirectory, discordgo.ChannelTypeGuildStore:
		return false
	}
	return true
}

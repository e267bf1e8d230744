package discord

import (
	"github.com/bwmarrin/discordgo"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/domain/nodewar"
)

// Slash command names.
const (
	cmdSetupLeague = "setup_league"
	cmdPostSignup  = "post_signup"
	cmdPostNodewar = "post_nodewar"
	cmdEditNodewar = "edit_nodewar"
	cmdSetName     = "set_name"
	cmdLeagueStats = "league_stats"
)

// publicCommands answer in the channel; everything else replies only to the caller.
var publicCommands = map[string]bool{cmdLeagueStats: true}

var adminOnly = func() *int64 {
	p := int64(discordgo.PermissionAdministrator)
	return &p
}()

func capRange() (*float64, float64) {
	lo := float64(nodewar.MinCap)
	return &lo, float64(nodewar.MaxCap)
}

// commandDefinitions lists the slash commands registered at startup.
func commandDefinitions() []*discordgo.ApplicationCommand {
	minCap, maxCap := capRange()
	return []*discordgo.ApplicationCommand{
		{
			Name:                     cmdSetupLeague,
			Description:              "Configure the guild league schedule",
			DefaultMemberPermissions: adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "day", Description: "Day of the week (e.g., Sunday)", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "ranges", Description: `Time ranges (e.g., "18:00-19:30, 21:30-22:30")`, Required: true},
			},
		},
		{
			Name:        cmdPostSignup,
			Description: "Post the signup message for a specific day",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "day", Description: "Day of the week to post signups for", Required: true},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "team",
					Description: "Team this post signs up for",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Team A", Value: "A"},
						{Name: "Team B", Value: "B"},
					},
				},
			},
		},
		{
			Name:        cmdPostNodewar,
			Description: "Post a Node War signup for today",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "day", Description: `Day/title for this signup (e.g., "Monday 02/03")`, Required: true},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "max",
					Description: "Maximum number of players (default: 100)",
					MinValue:    minCap,
					MaxValue:    maxCap,
				},
			},
		},
		{
			Name:                     cmdEditNodewar,
			Description:              "Edit the max signup cap for an active Node War post",
			DefaultMemberPermissions: adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "message_id", Description: "The message ID of the nodewar post", Required: true},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "max",
					Description: "New maximum number of players",
					Required:    true,
					MinValue:    minCap,
					MaxValue:    maxCap,
				},
			},
		},
		{
			Name:                     cmdSetName,
			Description:              "Set a display name override for a user",
			DefaultMemberPermissions: adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The Discord user to rename", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "The display name to use (leave empty to remove override)"},
			},
		},
		{
			Name:        cmdLeagueStats,
			Description: "View signup statistics",
		},
	}
}

// request is one interaction decoded away from gateway types.
type request struct {
	Command   string // slash command name; empty for button presses
	CustomID  string // button id; empty for slash commands
	GuildID   string
	ChannelID string
	MessageID string // message carrying the pressed button
	UserID    string
	UserName  string
	Strings   map[string]string
	Ints      map[string]int64
	Users     map[string]string // user option name -> user id
	UserNames map[string]string // resolved user id -> username
}

// reply is what the bot answers with. Empty replies send nothing.
type reply struct {
	Content string
	Embed   *chat.Embed
}

func decode(i *discordgo.Interaction) request {
	req := request{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Strings:   map[string]string{},
		Ints:      map[string]int64{},
		Users:     map[string]string{},
		UserNames: map[string]string{},
	}
	if u := invoker(i); u != nil {
		req.UserID = u.ID
		req.UserName = u.Username
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		req.Command = data.Name
		for _, o := range data.Options {
			switch o.Type {
			case discordgo.ApplicationCommandOptionString:
				req.Strings[o.Name] = o.StringValue()
			case discordgo.ApplicationCommandOptionInteger:
				req.Ints[o.Name] = o.IntValue()
			case discordgo.ApplicationCommandOptionUser:
				if id, ok := o.Value.(string); ok {
					req.Users[o.Name] = id
				}
			}
		}
		if data.Resolved != nil {
			for id, u := range data.Resolved.Users {
				req.UserNames[id] = u.Username
			}
		}
	case discordgo.InteractionMessageComponent:
		req.CustomID = i.MessageComponentData().CustomID
		if i.Message != nil {
			req.MessageID = i.Message.ID
		}
	}
	return req
}

// invoker is the member's user in guilds and the user in DMs.
func invoker(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

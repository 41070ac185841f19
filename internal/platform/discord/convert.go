package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/celerix-dev/celerix-guild/internal/dispatch"
)

// Capabilities maps Discord permission bits to dispatcher capabilities.
func Capabilities(perms int64) dispatch.Capabilities {
	var caps dispatch.Capabilities
	admin := perms&discordgo.PermissionAdministrator != 0
	if admin || perms&discordgo.PermissionBanMembers != 0 {
		caps = caps.With(dispatch.CapBanMembers)
	}
	if admin || perms&discordgo.PermissionKickMembers != 0 {
		caps = caps.With(dispatch.CapKickMembers)
	}
	return caps
}

// ConvertMessage builds a dispatcher message from a Discord message.
func ConvertMessage(m *discordgo.Message, perms int64) dispatch.Message {
	msg := dispatch.Message{
		ID:           m.ID,
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		Content:      m.Content,
		Capabilities: Capabilities(perms),
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorTag = m.Author.String()
		msg.AuthorBot = m.Author.Bot
	}
	for _, u := range m.Mentions {
		if u != nil {
			msg.Mentions = append(msg.Mentions, u.ID)
		}
	}
	return msg
}

// IsTextChannel reports whether messages can be posted to a channel of this type.
func IsTextChannel(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeDM:
		return true
	}
	return false
}

// FindRoleByName returns the id of the first role whose name matches exactly.
func FindRoleByName(roles []*discordgo.Role, name string) (string, bool) {
	for _, r := range roles {
		if r != nil && r.Name == name {
			return r.ID, true
		}
	}
	return "", false
}

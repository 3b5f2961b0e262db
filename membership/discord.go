package membership

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Discord adapts a discordgo session to the Platform interface for a single
// guild.
type Discord struct {
	Session *discordgo.Session
	GuildID string
}

func NewDiscord(session *discordgo.Session, guildID string) *Discord {
	return &Discord{Session: session, GuildID: guildID}
}

// LookupRoleByName scans the guild role list for an exact name match.
func (d *Discord) LookupRoleByName(ctx context.Context, name string) (*Role, error) {
	roles, err := d.Session.GuildRoles(d.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if role.Name == name {
			return &Role{ID: role.ID, Name: role.Name}, nil
		}
	}
	return nil, nil
}

// FetchMember returns nil without error when the member is no longer in the
// guild.
func (d *Discord) FetchMember(ctx context.Context, memberID string) (*Member, error) {
	m, err := d.Session.GuildMember(d.GuildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Message != nil &&
			restErr.Message.Code == discordgo.ErrCodeUnknownMember {
			return nil, nil
		}
		return nil, err
	}
	tag := m.Nick
	if tag == "" && m.User != nil {
		tag = m.User.Username
	}
	return &Member{ID: memberID, DisplayTag: tag, RoleIDs: m.Roles}, nil
}

func (d *Discord) AddRole(ctx context.Context, memberID, roleID string) error {
	return d.Session.GuildMemberRoleAdd(d.GuildID, memberID, roleID, discordgo.WithContext(ctx))
}

func (d *Discord) RemoveRoles(ctx context.Context, memberID string, roleIDs []string) error {
	for _, roleID := range roleIDs {
		if err := d.Session.GuildMemberRoleRemove(d.GuildID, memberID, roleID, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// DisplayTagOf formats a member reference for record keeping.
func DisplayTagOf(m *Member) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.DisplayTag)
}

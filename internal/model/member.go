package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ===== Identifiers =====

// Snowflake is an opaque platform-assigned identifier.
type Snowflake uint64

// String returns the decimal form used by the platform API.
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// IsZero reports whether the identifier is unset.
func (s Snowflake) IsZero() bool {
	return s == 0
}

// ParseSnowflake parses a decimal identifier. Empty input yields zero.
func ParseSnowflake(s string) (Snowflake, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse snowflake %q: %w", s, err)
	}
	return Snowflake(v), nil
}

// SnowflakeOrZero parses s and returns zero when it is not a valid identifier.
func SnowflakeOrZero(s string) Snowflake {
	v, _ := ParseSnowflake(s)
	return v
}

// ===== Member =====

// Member is an account holder of a guild as seen by the bot.
type Member struct {
	ID        Snowflake   `json:"id"`
	GuildID   Snowflake   `json:"guild_id"`
	Username  string      `json:"username"`
	Nickname  string      `json:"nickname,omitempty"`
	Bot       bool        `json:"bot"`
	RoleIDs   []Snowflake `json:"role_ids"`
	JoinedAt  time.Time   `json:"joined_at"`
	AvatarURL string      `json:"avatar_url,omitempty"`
}

// DisplayName returns the nickname when set, otherwise the username.
func (m *Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.Username
}

// Mention returns the platform mention markup for the member.
func (m *Member) Mention() string {
	return "<@" + m.ID.String() + ">"
}

// HasRole reports whether the member currently holds the role.
func (m *Member) HasRole(roleID Snowflake) bool {
	if roleID.IsZero() {
		return false
	}
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Role is a guild role.
type Role struct {
	ID       Snowflake `json:"id"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
}

// Guild is a minimal guild descriptor used by the debug surface.
type Guild struct {
	ID          Snowflake `json:"id"`
	Name        string    `json:"name"`
	MemberCount int       `json:"member_count"`
}

// Channel is a minimal channel descriptor used by the debug surface.
type Channel struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
	Type string    `json:"type"`
}

package model

import "time"

// ===== Messages =====

// Embed colors. Green marks members with an attributable inviter.
const (
	ColorGreen    = 0x2ECC71
	ColorOrange   = 0xE67E22
	ColorBlue     = 0x3498DB
	ColorDarkBlue = 0x206694
	ColorRed      = 0xE74C3C
	ColorGrey     = 0x2F3136
)

// Embed is a structured message attachment.
type Embed struct {
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description,omitempty"`
	Color        int       `json:"color,omitempty"`
	Footer       string    `json:"footer,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Timestamp    time.Time `json:"timestamp,omitempty"`
}

// Message is a channel message as returned by the platform.
type Message struct {
	ID         Snowflake   `json:"id"`
	ChannelID  Snowflake   `json:"channel_id"`
	AuthorID   Snowflake   `json:"author_id"`
	AuthorName string      `json:"author_name"`
	AuthorBot  bool        `json:"author_bot"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	MentionIDs []Snowflake `json:"mention_ids,omitempty"`
	Embeds     []*Embed    `json:"embeds,omitempty"`
}

// Mentions reports whether the message mentions the given id.
func (m *Message) Mentions(id Snowflake) bool {
	for _, mid := range m.MentionIDs {
		if mid == id {
			return true
		}
	}
	return false
}

// ===== Interview =====

// Question is one fixed interview prompt.
type Question struct {
	Key    string `json:"key" mapstructure:"key"`
	Prompt string `json:"prompt" mapstructure:"prompt"`
}

// Answer is a member's verbatim reply to a question.
type Answer struct {
	Key        string    `json:"key"`
	Question   string    `json:"question"`
	Text       string    `json:"text"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Answers is an ordered set of answers.
type Answers []Answer

// Get returns the answer text for key, or an empty string.
func (a Answers) Get(key string) string {
	for _, ans := range a {
		if ans.Key == key {
			return ans.Text
		}
	}
	return ""
}

// ===== Commands =====

// CommandName identifies a user-facing command.
type CommandName string

const (
	CommandJoin        CommandName = "join"
	CommandStory       CommandName = "story"
	CommandInvite      CommandName = "invite"
	CommandPromote     CommandName = "promote"
	CommandDeleteStory CommandName = "deletestory"
)

// CommandInvocation carries a command from the platform to the onboarding service.
type CommandInvocation struct {
	Name      CommandName
	GuildID   Snowflake
	ChannelID Snowflake
	Invoker   *Member
	Target    *Member
}

// CommandReply is what the bot answers to a command.
type CommandReply struct {
	Content   string
	Embed     *Embed
	Ephemeral bool
}

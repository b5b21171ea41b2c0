package interview

import (
	"time"

	"github.com/google/uuid"

	"github.com/devmob/onboard/internal/model"
)

// State is the lifecycle position of a session.
type State string

const (
	StateCreated        State = "created"
	StateAwaitingAnswer State = "awaiting_answer"
	StateCompleted      State = "completed"
	StateTimedOut       State = "timed_out"
	StateErrored        State = "errored"
)

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateErrored
}

// Session is one member's interview. It is owned by the goroutine running it.
type Session struct {
	ID             uuid.UUID
	MemberID       model.Snowflake
	GuildID        model.Snowflake
	ChannelID      model.Snowflake
	State          State
	QuestionIndex  int
	Answers        model.Answers
	QuestionSentAt time.Time
	Deadline       time.Time
	StartedAt      time.Time
	FinishedAt     time.Time
}

func newSession(member *model.Member, now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		MemberID:  member.ID,
		GuildID:   member.GuildID,
		State:     StateCreated,
		StartedAt: now,
	}
}

// Completed reports whether every question was answered.
func (s *Session) Completed() bool {
	return s.State == StateCompleted
}

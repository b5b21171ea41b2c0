package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	"github.com/devmob/onboard/internal/utils/metrics"
)

// Config holds interview configuration.
type Config struct {
	AnswerTimeout   time.Duration
	PollInterval    time.Duration
	HistoryLimit    int
	FreshnessWindow time.Duration // 0 disables
	UseThreads      bool
	Questions       []model.Question
	StoryChannelID  model.Snowflake
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		AnswerTimeout: 180 * time.Second,
		PollInterval:  time.Second,
		HistoryLimit:  10,
		UseThreads:    true,
		Questions:     DefaultQuestions(),
	}
}

// Request starts an interview.
type Request struct {
	Member *model.Member
	// ParentChannelID is where a private thread is opened.
	ParentChannelID model.Snowflake
	// ChannelID reuses an existing channel instead of opening a thread.
	ChannelID model.Snowflake
}

// Orchestrator runs interviews, at most one per member at a time.
type Orchestrator struct {
	platform outbound.PlatformPort
	config   *Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[model.Snowflake]*Session
}

// NewOrchestrator creates a new interview orchestrator.
func NewOrchestrator(platform outbound.PlatformPort, config *Config, m *metrics.Metrics, logger *zap.Logger) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Questions) == 0 {
		config.Questions = DefaultQuestions()
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		platform: platform,
		config:   config,
		metrics:  m,
		logger:   logger.Named("interview"),
		now:      time.Now,
		sessions: make(map[model.Snowflake]*Session),
	}
}

// Questions returns the configured question list.
func (o *Orchestrator) Questions() []model.Question {
	return append([]model.Question(nil), o.config.Questions...)
}

// IsActive reports whether the member has a live session.
func (o *Orchestrator) IsActive(memberID model.Snowflake) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.sessions[memberID]
	return ok
}

// ActiveCount returns the number of live sessions.
func (o *Orchestrator) ActiveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}

func (o *Orchestrator) register(s *Session) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.sessions[s.MemberID]; ok {
		return false
	}
	o.sessions[s.MemberID] = s
	return true
}

func (o *Orchestrator) deregister(s *Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cur, ok := o.sessions[s.MemberID]; ok && cur == s {
		delete(o.sessions, s.MemberID)
	}
}

// Run conducts the interview and returns the finished session. A timed out
// session returns ErrInterviewTimeout; any other failure wraps ErrInterviewFailed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Session, error) {
	if req.Member == nil {
		return nil, fmt.Errorf("%w: no member", ErrInterviewFailed)
	}
	if len(o.config.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	s := newSession(req.Member, o.now())
	if !o.register(s) {
		o.metrics.InterviewRejected()
		return nil, ErrSessionActive
	}
	defer o.deregister(s)

	log := o.logger.With(
		zap.String("session_id", s.ID.String()),
		zap.String("member_id", s.MemberID.String()),
		zap.String("guild_id", s.GuildID.String()),
	)

	o.metrics.InterviewStarted()
	defer func() {
		if !s.State.IsTerminal() {
			s.State = StateErrored
		}
		s.FinishedAt = o.now()
		o.metrics.InterviewFinished(string(s.State), s.FinishedAt.Sub(s.StartedAt))
		log.Info("interview finished",
			zap.String("state", string(s.State)),
			zap.Int("answers", len(s.Answers)),
		)
	}()

	if err := o.run(ctx, s, req, log); err != nil {
		if errors.Is(err, ErrInterviewTimeout) {
			s.State = StateTimedOut
			return s, err
		}
		s.State = StateErrored
		return s, fmt.Errorf("%w: %w", ErrInterviewFailed, err)
	}
	s.State = StateCompleted
	return s, nil
}

func (o *Orchestrator) run(ctx context.Context, s *Session, req Request, log *zap.Logger) error {
	channelID, err := o.openChannel(ctx, req)
	if err != nil {
		return err
	}
	s.ChannelID = channelID
	log = log.With(zap.String("channel_id", channelID.String()))
	log.Info("interview started")

	if _, err := o.platform.SendMessage(ctx, channelID, req.Member.Mention(), welcomeEmbed(req.Member, len(o.config.Questions))); err != nil {
		o.metrics.RecordPlatformError("send_message")
		return fmt.Errorf("send welcome: %w", err)
	}

	total := len(o.config.Questions)
	for i, q := range o.config.Questions {
		s.State = StateAwaitingAnswer
		s.QuestionIndex = i

		sent, err := o.platform.SendMessage(ctx, channelID, "", questionEmbed(q, i, total))
		if err != nil {
			o.metrics.RecordPlatformError("send_message")
			return fmt.Errorf("send question %d: %w", i+1, err)
		}
		s.QuestionSentAt = sent.Timestamp
		s.Deadline = o.now().Add(o.config.AnswerTimeout)

		msg, err := o.awaitAnswer(ctx, s, req.Member.ID, sent.Timestamp, log)
		if err != nil {
			if errors.Is(err, ErrInterviewTimeout) {
				log.Info("answer timed out", zap.Int("question", i+1))
				o.notifyTimeout(ctx, channelID, req.Member, log)
			}
			return err
		}

		s.Answers = append(s.Answers, model.Answer{
			Key:        q.Key,
			Question:   q.Prompt,
			Text:       msg.Content,
			AnsweredAt: msg.Timestamp,
		})
		log.Debug("answer received", zap.Int("question", i+1))
	}

	if _, err := o.platform.SendMessage(ctx, channelID, "", completionEmbed(o.config.StoryChannelID)); err != nil {
		o.metrics.RecordPlatformError("send_message")
		log.Warn("failed to send completion message", zap.Error(err))
	}
	return nil
}

func (o *Orchestrator) openChannel(ctx context.Context, req Request) (model.Snowflake, error) {
	if !req.ChannelID.IsZero() {
		return req.ChannelID, nil
	}
	if req.ParentChannelID.IsZero() {
		return 0, errors.New("no interview channel")
	}
	if !o.config.UseThreads {
		return req.ParentChannelID, nil
	}
	id, err := o.platform.CreatePrivateThread(ctx, req.ParentChannelID, req.Member)
	if err != nil {
		o.metrics.RecordPlatformError("create_thread")
		return 0, fmt.Errorf("create thread: %w", err)
	}
	return id, nil
}

// awaitAnswer polls the channel until the member answers, the deadline passes
// or ctx is cancelled. Failed polls are logged and retried.
func (o *Orchestrator) awaitAnswer(ctx context.Context, s *Session, memberID model.Snowflake, after time.Time, log *zap.Logger) (*model.Message, error) {
	deadline := time.NewTimer(o.config.AnswerTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(o.config.PollInterval)
	defer ticker.Stop()

	for {
		msgs, err := o.platform.FetchRecentMessages(ctx, s.ChannelID, o.config.HistoryLimit)
		if err != nil {
			o.metrics.RecordPlatformError("fetch_messages")
			log.Warn("failed to poll for answer", zap.Error(err))
		} else if msg := o.selectAnswer(msgs, s.ChannelID, memberID, after); msg != nil {
			return msg, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrInterviewTimeout
		case <-ticker.C:
		}
	}
}

// selectAnswer returns the earliest message written by the member after the
// question. msgs is newest first.
func (o *Orchestrator) selectAnswer(msgs []*model.Message, channelID, memberID model.Snowflake, after time.Time) *model.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.AuthorID != memberID || m.AuthorBot {
			continue
		}
		if !m.ChannelID.IsZero() && m.ChannelID != channelID {
			continue
		}
		if !m.Timestamp.After(after) {
			continue
		}
		if o.config.FreshnessWindow > 0 && o.now().Sub(m.Timestamp) > o.config.FreshnessWindow {
			continue
		}
		return m
	}
	return nil
}

func (o *Orchestrator) notifyTimeout(ctx context.Context, channelID model.Snowflake, member *model.Member, log *zap.Logger) {
	// The run context may already be done; the notice still goes out.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	content := fmt.Sprintf("%s you ran out of time. Use `/join` to start the interview again.", member.Mention())
	if _, err := o.platform.SendMessage(notifyCtx, channelID, content, nil); err != nil {
		o.metrics.RecordPlatformError("send_message")
		log.Warn("failed to send timeout notice", zap.Error(err))
	}
}

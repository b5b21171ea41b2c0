package membership

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	"github.com/devmob/onboard/internal/utils/metrics"
)

// Reason explains why a member was classified as returning.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonStore   Reason = "store"
	ReasonMention Reason = "mention"
	ReasonName    Reason = "name"
)

// NameMatchMode controls the name heuristic over announcement history.
type NameMatchMode string

const (
	// NameMatchExact matches the name as a whole token, case-insensitively.
	NameMatchExact NameMatchMode = "exact"
	// NameMatchSubstring matches the name anywhere in the text.
	NameMatchSubstring NameMatchMode = "substring"
	// NameMatchOff disables the heuristic.
	NameMatchOff NameMatchMode = "off"
)

// ClassifierConfig holds returning-member detection settings.
type ClassifierConfig struct {
	AnnouncementChannelID model.Snowflake
	ScanLimit             int
	NameMatch             NameMatchMode
}

// DefaultClassifierConfig returns default configuration.
func DefaultClassifierConfig() *ClassifierConfig {
	return &ClassifierConfig{
		ScanLimit: 200,
		NameMatch: NameMatchExact,
	}
}

// Classifier decides whether a member has been through onboarding before.
type Classifier struct {
	stories  outbound.StoryStorePort
	platform outbound.PlatformPort
	config   *ClassifierConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewClassifier creates a new membership classifier.
func NewClassifier(
	stories outbound.StoryStorePort,
	platform outbound.PlatformPort,
	config *ClassifierConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Classifier {
	if config == nil {
		config = DefaultClassifierConfig()
	}
	if config.ScanLimit <= 0 {
		config.ScanLimit = 200
	}
	if config.NameMatch == "" {
		config.NameMatch = NameMatchExact
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		stories:  stories,
		platform: platform,
		config:   config,
		metrics:  m,
		logger:   logger.Named("membership"),
	}
}

// IsReturning reports whether the member already has a biography or was
// announced before. Lookup failures count as "not returning".
func (c *Classifier) IsReturning(ctx context.Context, member *model.Member) (bool, Reason) {
	log := c.logger.With(zap.String("member_id", member.ID.String()))

	if c.stories != nil {
		_, found, err := c.stories.Get(ctx, member.ID)
		if err != nil {
			c.metrics.RecordPersistenceError("stories")
			log.Warn("failed to check story store", zap.Error(err))
		} else if found {
			return c.returning(log, ReasonStore)
		}
	}

	if c.config.AnnouncementChannelID.IsZero() {
		return false, ReasonNone
	}

	msgs, err := c.platform.FetchRecentMessages(ctx, c.config.AnnouncementChannelID, c.config.ScanLimit)
	if err != nil {
		c.metrics.RecordPlatformError("fetch_messages")
		log.Warn("failed to scan announcement channel", zap.Error(err))
		return false, ReasonNone
	}

	names := candidateNames(member)
	for _, msg := range msgs {
		if msg.Mentions(member.ID) || strings.Contains(msg.Content, "<@"+member.ID.String()+">") {
			return c.returning(log, ReasonMention)
		}
		if c.config.NameMatch == NameMatchOff {
			continue
		}
		for _, text := range messageTexts(msg) {
			for _, name := range names {
				if matchName(text, name, c.config.NameMatch) {
					return c.returning(log, ReasonName)
				}
			}
		}
	}
	return false, ReasonNone
}

func (c *Classifier) returning(log *zap.Logger, reason Reason) (bool, Reason) {
	c.metrics.RecordReturning(string(reason))
	log.Info("returning member detected", zap.String("reason", string(reason)))
	return true, reason
}

func candidateNames(member *model.Member) []string {
	var names []string
	for _, n := range []string{member.Username, member.Nickname} {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// messageTexts returns the parts of a message where the bot writes member
// names: embed titles and footers, and the content of its own messages.
// Embed descriptions hold generated biographies and are not scanned.
func messageTexts(msg *model.Message) []string {
	var texts []string
	if msg.AuthorBot {
		texts = append(texts, msg.Content)
	}
	for _, e := range msg.Embeds {
		texts = append(texts, e.Title, e.Footer)
	}
	return texts
}

// matchName reports whether name occurs in text under the given mode.
func matchName(text, name string, mode NameMatchMode) bool {
	if text == "" || name == "" {
		return false
	}
	lt, ln := strings.ToLower(text), strings.ToLower(name)

	switch mode {
	case NameMatchSubstring:
		return strings.Contains(lt, ln)
	case NameMatchExact:
		for from := 0; from < len(lt); {
			i := strings.Index(lt[from:], ln)
			if i < 0 {
				return false
			}
			start := from + i
			end := start + len(ln)
			if boundaryBefore(lt, start) && boundaryAfter(lt, end) {
				return true
			}
			from = start + 1
		}
		return false
	default:
		return false
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

// Package sqlite provides a SQLite-backed story and invite history store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS stories (
	member_id  TEXT PRIMARY KEY,
	story      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS invite_history (
	member_id    TEXT PRIMARY KEY,
	inviter_name TEXT NOT NULL,
	inviter_id   TEXT NOT NULL,
	invite_code  TEXT NOT NULL,
	join_date    INTEGER NOT NULL
);`

// Store persists biographies and invite history in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Compile-time checks
var (
	_ outbound.StoryStorePort    = (*Store)(nil)
	_ outbound.InviteHistoryPort = historyView{}
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and creates its tables.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// ===== StoryStorePort =====

// Get returns the member's biography.
func (s *Store) Get(ctx context.Context, memberID model.Snowflake) (string, bool, error) {
	var story string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT story FROM stories WHERE member_id = ?`, memberID.String(),
	).Scan(&story)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.Persistence("stories.get", err)
	}
	return story, true, nil
}

// Save stores the member's biography, replacing any previous one.
func (s *Store) Save(ctx context.Context, memberID model.Snowflake, story string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO stories (member_id, story, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(member_id) DO UPDATE SET story = excluded.story, updated_at = excluded.updated_at`,
		memberID.String(), story, toMillis(time.Now()),
	)
	if err != nil {
		return apperrors.Persistence("stories.save", err)
	}
	return nil
}

// Delete removes the member's biography.
func (s *Store) Delete(ctx context.Context, memberID model.Snowflake) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM stories WHERE member_id = ?`, memberID.String())
	if err != nil {
		return false, apperrors.Persistence("stories.delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Persistence("stories.delete", err)
	}
	return n > 0, nil
}

// ===== InviteHistoryPort =====

// History returns the store as an invite history. Story and history lookups
// share method names, so the history side lives on a separate view.
func (s *Store) History() outbound.InviteHistoryPort {
	return historyView{s}
}

type historyView struct {
	s *Store
}

func (h historyView) Get(ctx context.Context, memberID model.Snowflake) (*model.InviteHistoryRecord, error) {
	return h.s.GetInviteHistory(ctx, memberID)
}

func (h historyView) SaveIfAbsent(ctx context.Context, memberID model.Snowflake, record *model.InviteHistoryRecord) (bool, error) {
	return h.s.SaveIfAbsent(ctx, memberID, record)
}

// GetInviteHistory returns the member's join record, or nil.
func (s *Store) GetInviteHistory(ctx context.Context, memberID model.Snowflake) (*model.InviteHistoryRecord, error) {
	var (
		rec       model.InviteHistoryRecord
		inviterID string
		joinDate  int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT inviter_name, inviter_id, invite_code, join_date FROM invite_history WHERE member_id = ?`,
		memberID.String(),
	).Scan(&rec.InviterName, &inviterID, &rec.InviteCode, &joinDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Persistence("invite_history.get", err)
	}
	rec.InviterID = model.SnowflakeOrZero(inviterID)
	rec.JoinDate = fromMillis(joinDate)
	return &rec, nil
}

// SaveIfAbsent writes the member's join record unless one exists.
func (s *Store) SaveIfAbsent(ctx context.Context, memberID model.Snowflake, record *model.InviteHistoryRecord) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO invite_history (member_id, inviter_name, inviter_id, invite_code, join_date)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT(member_id) DO NOTHING`,
		memberID.String(), record.InviterName, record.InviterID.String(), record.InviteCode, toMillis(record.JoinDate),
	)
	if err != nil {
		return false, apperrors.Persistence("invite_history.save", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Persistence("invite_history.save", err)
	}
	return n > 0, nil
}

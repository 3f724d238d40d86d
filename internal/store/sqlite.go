// Package store implements the durable adapters over SQLite: the session
// store, the participant identity table and the reward ledger.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playperu/reflexduel/internal/duel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const sessionColumns = `id, join_code, host_id, guest_id, status,
	host_score, guest_score, round, max_rounds,
	target_x, target_y, target_spawned_at,
	winner_id, created_at, started_at, ended_at`

func (s *Store) Create(ctx context.Context, sess duel.Session) (duel.Session, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, join_code, host_id, status, round, max_rounds, created_at)
		VALUES (lower(hex(randomblob(16))), ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, sess.JoinCode, sess.HostID, sess.Status, sess.Round, sess.MaxRounds,
		formatTime(sess.CreatedAt)).Scan(&sess.ID)
	if isUniqueViolation(err) {
		return duel.Session{}, duel.ErrConflict
	}
	if err != nil {
		return duel.Session{}, fmt.Errorf("inserting session: %w", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (duel.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// GetByJoinCode prefers the waiting session holding the code. Codes are only
// unique among waiting sessions, so an old finished session may share one; a
// join against it must still report InvalidState rather than NotFound.
func (s *Store) GetByJoinCode(ctx context.Context, code string) (duel.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE join_code = ?
		ORDER BY CASE WHEN status = 'waiting' THEN 0 ELSE 1 END, created_at DESC
		LIMIT 1
	`, code)
	return scanSession(row)
}

// ConditionalUpdate is the compare-and-swap the whole protocol leans on: the
// round acts as the version counter, and the write commits only if the stored
// round still matches. SQLite serializes writers per database, so exactly one
// of two racing updates for the same expected round changes a row.
func (s *Store) ConditionalUpdate(ctx context.Context, id string, expectedRound int, g duel.Guard, next duel.Session) (bool, error) {
	where := "id = ? AND round = ?"
	args := []any{id, expectedRound}
	if g.Status != "" {
		where += " AND status = ?"
		args = append(args, g.Status)
	}
	switch g.Target {
	case duel.TargetPresent:
		where += " AND target_x IS NOT NULL"
	case duel.TargetAbsent:
		where += " AND target_x IS NULL"
	}

	var tx, ty any
	var spawnedAt any
	if next.Target != nil {
		tx, ty = next.Target.X, next.Target.Y
		spawnedAt = formatTime(next.Target.SpawnedAt)
	}

	set := []any{
		next.Status, next.HostScore, next.GuestScore, next.Round,
		tx, ty, spawnedAt,
		nullString(next.WinnerID), nullTime(next.StartedAt), nullTime(next.EndedAt),
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = ?, host_score = ?, guest_score = ?, round = ?,
			target_x = ?, target_y = ?, target_spawned_at = ?,
			winner_id = ?, started_at = ?, ended_at = ?
		WHERE `+where,
		append(set, args...)...)
	if err != nil {
		return false, fmt.Errorf("conditional update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetGuest fills the guest slot. The slot is guest-owned, but the write still
// carries its own precondition so two joiners cannot both take it.
func (s *Store) SetGuest(ctx context.Context, id, guestID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET guest_id = ?
		WHERE id = ? AND status = 'waiting' AND guest_id IS NULL
	`, guestID, id)
	if err != nil {
		return false, fmt.Errorf("setting guest: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClearGuest empties the guest slot and writes the reset play state in one
// statement. Unconditional by design: guest departure wins over whatever
// round-level write it races with.
func (s *Store) ClearGuest(ctx context.Context, id string, next duel.Session) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			guest_id = NULL, status = ?, host_score = ?, guest_score = ?, round = ?,
			target_x = NULL, target_y = NULL, target_spawned_at = NULL,
			winner_id = NULL, started_at = NULL, ended_at = NULL
		WHERE id = ?
	`, next.Status, next.HostScore, next.GuestScore, next.Round, id)
	if err != nil {
		return fmt.Errorf("clearing guest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return duel.ErrNotFound
	}
	return nil
}

// CommitStart flips waiting → playing. The guest check happens here, at
// commit time, not merely at call time: a guest who left during the countdown
// makes this a no-op.
func (s *Store) CommitStart(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = 'playing', started_at = ?
		WHERE id = ? AND status = 'waiting' AND guest_id IS NOT NULL
	`, formatTime(startedAt), id)
	if err != nil {
		return false, fmt.Errorf("committing start: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return duel.ErrNotFound
	}
	return nil
}

func scanSession(row *sql.Row) (duel.Session, error) {
	var sess duel.Session
	var guestID, winnerID sql.NullString
	var tx, ty sql.NullFloat64
	var spawnedAt, createdAt sql.NullString
	var startedAt, endedAt sql.NullString

	err := row.Scan(
		&sess.ID, &sess.JoinCode, &sess.HostID, &guestID, &sess.Status,
		&sess.HostScore, &sess.GuestScore, &sess.Round, &sess.MaxRounds,
		&tx, &ty, &spawnedAt,
		&winnerID, &createdAt, &startedAt, &endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return duel.Session{}, duel.ErrNotFound
	}
	if err != nil {
		return duel.Session{}, fmt.Errorf("scanning session: %w", err)
	}

	if guestID.Valid {
		sess.GuestID = &guestID.String
	}
	if winnerID.Valid {
		sess.WinnerID = &winnerID.String
	}
	if tx.Valid && ty.Valid && spawnedAt.Valid {
		at, err := parseTime(spawnedAt.String)
		if err != nil {
			return duel.Session{}, err
		}
		sess.Target = &duel.Target{X: tx.Float64, Y: ty.Float64, SpawnedAt: at}
	}
	if createdAt.Valid {
		if sess.CreatedAt, err = parseTime(createdAt.String); err != nil {
			return duel.Session{}, err
		}
	}
	if startedAt.Valid {
		at, err := parseTime(startedAt.String)
		if err != nil {
			return duel.Session{}, err
		}
		sess.StartedAt = &at
	}
	if endedAt.Valid {
		at, err := parseTime(endedAt.String)
		if err != nil {
			return duel.Session{}, err
		}
		sess.EndedAt = &at
	}
	return sess, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

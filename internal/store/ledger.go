package store

import (
	"context"
	"fmt"
)

// CreditReward records a reward credit. INSERT OR IGNORE on the idempotency
// key makes replays of the same (session, winner) credit a no-op.
func (s *Store) CreditReward(ctx context.Context, participantID string, amount int64, idempotencyKey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO reward_credits (idempotency_key, participant_id, amount)
		VALUES (?, ?, ?)
	`, idempotencyKey, participantID, amount)
	if err != nil {
		return fmt.Errorf("crediting reward: %w", err)
	}
	return nil
}

// RewardCredited reports whether the idempotency key has already been paid.
func (s *Store) RewardCredited(ctx context.Context, idempotencyKey string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reward_credits WHERE idempotency_key = ?
	`, idempotencyKey).Scan(&n)
	return n > 0, err
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playperu/reflexduel/internal/duel"
)

// CreateParticipant registers a display identity and mints its bearer token.
func (s *Store) CreateParticipant(ctx context.Context, displayName, avatarRef string) (duel.Participant, string, error) {
	var p duel.Participant
	var token string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO participants (display_name, avatar_ref)
		VALUES (?, ?)
		RETURNING id, display_name, avatar_ref, token
	`, displayName, avatarRef).Scan(&p.ID, &p.DisplayName, &p.AvatarRef, &token)
	if err != nil {
		return duel.Participant{}, "", fmt.Errorf("inserting participant: %w", err)
	}
	return p, token, nil
}

// GetParticipant implements the identity lookup consumed by the engine.
func (s *Store) GetParticipant(ctx context.Context, id string) (duel.Participant, error) {
	var p duel.Participant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, avatar_ref FROM participants WHERE id = ?
	`, id).Scan(&p.ID, &p.DisplayName, &p.AvatarRef)
	if errors.Is(err, sql.ErrNoRows) {
		return duel.Participant{}, duel.ErrNotFound
	}
	return p, err
}

// ParticipantByToken resolves a bearer token to its participant.
func (s *Store) ParticipantByToken(ctx context.Context, token string) (duel.Participant, error) {
	var p duel.Participant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, avatar_ref FROM participants WHERE token = ?
	`, token).Scan(&p.ID, &p.DisplayName, &p.AvatarRef)
	if errors.Is(err, sql.ErrNoRows) {
		return duel.Participant{}, duel.ErrNotFound
	}
	return p, err
}

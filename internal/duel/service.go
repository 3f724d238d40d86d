package duel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// TargetGuard constrains target presence in a conditional update.
type TargetGuard int

const (
	TargetAny TargetGuard = iota
	TargetPresent
	TargetAbsent
)

// Guard is the extra condition a conditional write carries beyond the round
// check. A zero Guard checks the round only.
type Guard struct {
	Status Status
	Target TargetGuard
}

// Store is the durable session store adapter. It must provide per-row
// linearizable conditional writes; that is the only consistency primitive the
// engine relies on.
type Store interface {
	Create(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	GetByJoinCode(ctx context.Context, code string) (Session, error)

	// ConditionalUpdate commits next only if the stored round still equals
	// expectedRound and the guard holds. It reports whether any row changed;
	// false means the caller lost the race and must re-read.
	ConditionalUpdate(ctx context.Context, id string, expectedRound int, g Guard, next Session) (bool, error)

	// SetGuest and CommitStart are the role-owned writes: the guest slot by
	// the joining guest, the waiting→playing flip by the host. Both carry
	// their precondition into the write itself so a join/start race cannot
	// slip through.
	SetGuest(ctx context.Context, id, guestID string) (bool, error)
	ClearGuest(ctx context.Context, id string, next Session) error
	CommitStart(ctx context.Context, id string, startedAt time.Time) (bool, error)

	Delete(ctx context.Context, id string) error
}

// Bridge fans committed session changes out to subscribed participants. Full
// records, not diffs: reconciliation stays a single Reconcile call on the
// receiving side. Delivery is at-least-once and may reorder.
type Bridge interface {
	Publish(ctx context.Context, s Session) error
	Subscribe(sessionID string) (events <-chan Session, unsubscribe func())
}

// Ledger credits a duel reward. Implementations must be idempotent on
// idempotencyKey.
type Ledger interface {
	CreditReward(ctx context.Context, participantID string, amount int64, idempotencyKey string) error
}

// Identity resolves a participant id to a display identity. Read-only.
type Identity interface {
	GetParticipant(ctx context.Context, id string) (Participant, error)
}

const (
	createAttempts = 5
	countdownSteps = 3
)

// Service is the duel orchestrator: the facade participant clients call. It
// composes the store, the bridge and the reward ledger, and drives round
// progression.
type Service struct {
	store  Store
	bridge Bridge
	ledger Ledger
	logger *slog.Logger

	rewardAmount int64

	// CountdownStep paces the pre-game countdown; SpawnDelay paces target
	// spawns. Both are overridable so tests run without wall-clock waits.
	CountdownStep time.Duration
	SpawnDelay    func() time.Duration
}

func NewService(store Store, bridge Bridge, ledger Ledger, logger *slog.Logger, rewardAmount int64) *Service {
	return &Service{
		store:         store,
		bridge:        bridge,
		ledger:        ledger,
		logger:        logger,
		rewardAmount:  rewardAmount,
		CountdownStep: time.Second,
		SpawnDelay:    SpawnDelay,
	}
}

// CreateSession opens a new waiting room for hostID. Join-code collisions are
// retried with a fresh code; persistent conflict surfaces as ErrConflict.
func (s *Service) CreateSession(ctx context.Context, hostID string, maxRounds int) (Session, error) {
	for range createAttempts {
		created, err := s.store.Create(ctx, New(hostID, NewJoinCode(), maxRounds, time.Now().UTC()))
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return Session{}, fmt.Errorf("creating session: %w", err)
		}
		return created, nil
	}
	return Session{}, ErrConflict
}

// JoinSession fills the guest slot of the waiting session matching joinCode.
func (s *Service) JoinSession(ctx context.Context, joinCode, guestID string) (Session, error) {
	sess, err := s.store.GetByJoinCode(ctx, NormalizeJoinCode(joinCode))
	if err != nil {
		return Session{}, err
	}

	if _, err := sess.WithGuest(guestID); err != nil {
		return Session{}, err
	}

	ok, err := s.store.SetGuest(ctx, sess.ID, guestID)
	if err != nil {
		return Session{}, fmt.Errorf("joining session: %w", err)
	}
	if !ok {
		// Another guest won the slot, or the host started/left meanwhile.
		return Session{}, ErrInvalidState
	}

	joined, err := s.store.Get(ctx, sess.ID)
	if err != nil {
		return Session{}, err
	}
	s.publish(ctx, joined)
	return joined, nil
}

// StartSession runs the 3-step countdown, commits waiting → playing and
// schedules the first spawn. The countdown is local, non-persisted UX pacing;
// the commit-time guest check is what actually gates play. Only the host may
// start. A stale start against a session that already moved on is a silent
// no-op.
func (s *Service) StartSession(ctx context.Context, sessionID, hostID string) error {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.HostID != hostID {
		return ErrPermission
	}
	if _, err := sess.Started(time.Now().UTC()); err != nil {
		return err
	}

	for range countdownSteps {
		time.Sleep(s.CountdownStep)
	}

	ok, err := s.store.CommitStart(ctx, sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	if !ok {
		return nil
	}

	started, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	s.publish(ctx, started)
	s.scheduleSpawn(started.ID, started.Round)
	return nil
}

// SubmitClaim applies a participant's claim for the given round. The store's
// conditional write is the sole arbiter: exactly one of two concurrent claims
// for a round commits, and the loser gets Accepted=false with the fresh
// state, never an error. Replays
// of an already-applied claim fail the round check the same way.
func (s *Service) SubmitClaim(ctx context.Context, sessionID, claimantID string, round int) (ClaimResult, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return ClaimResult{}, err
	}
	if !sess.IsParticipant(claimantID) {
		return ClaimResult{}, ErrPermission
	}
	if sess.Status != StatusPlaying || sess.Round != round || sess.Target == nil {
		return ClaimResult{Session: sess}, nil
	}

	next, err := sess.Claimed(claimantID, time.Now().UTC())
	if err != nil {
		return ClaimResult{Session: sess}, nil
	}

	ok, err := s.store.ConditionalUpdate(ctx, sessionID, round, Guard{Status: StatusPlaying, Target: TargetPresent}, next)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("applying claim: %w", err)
	}
	if !ok {
		lost, err := s.store.Get(ctx, sessionID)
		if err != nil {
			return ClaimResult{}, err
		}
		return ClaimResult{Session: lost}, nil
	}

	s.publish(ctx, next)

	if next.Status == StatusFinished {
		s.creditWinner(ctx, next)
	} else {
		s.scheduleSpawn(next.ID, next.Round)
	}
	return ClaimResult{Accepted: true, Session: next}, nil
}

// LeaveSession removes participantID from the session: the host leaving
// deletes the room, the guest leaving clears the slot and resets play.
func (s *Service) LeaveSession(ctx context.Context, sessionID, participantID string) error {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	switch {
	case participantID == sess.HostID:
		if err := s.store.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
		return nil
	case sess.GuestID != nil && *sess.GuestID == participantID:
		if err := s.store.ClearGuest(ctx, sessionID, sess.GuestLeft()); err != nil {
			return fmt.Errorf("clearing guest: %w", err)
		}
		cleared, err := s.store.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		s.publish(ctx, cleared)
		return nil
	default:
		return ErrPermission
	}
}

// RequestRematch resets a finished session back to waiting. Host only.
func (s *Service) RequestRematch(ctx context.Context, sessionID, hostID string) error {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.HostID != hostID {
		return ErrPermission
	}
	next, err := sess.Rematch(time.Now().UTC())
	if err != nil {
		return err
	}

	ok, err := s.store.ConditionalUpdate(ctx, sessionID, sess.Round, Guard{Status: StatusFinished}, next)
	if err != nil {
		return fmt.Errorf("resetting session: %w", err)
	}
	if !ok {
		// Raced with a concurrent rematch or departure; the incoming event
		// carries whatever won.
		return nil
	}
	s.publish(ctx, next)
	return nil
}

// GetSession is the poll-on-reconnect read: clients that missed push
// deliveries re-derive current state from the authoritative row.
func (s *Service) GetSession(ctx context.Context, sessionID string) (Session, error) {
	return s.store.Get(ctx, sessionID)
}

// scheduleSpawn places the next target for round after a randomized delay.
// The conditional write guards on the round and target absence, so whichever
// process spawns first wins and duplicates are no-ops.
func (s *Service) scheduleSpawn(sessionID string, round int) {
	go func() {
		time.Sleep(s.SpawnDelay())

		ctx := context.Background()
		sess, err := s.store.Get(ctx, sessionID)
		if err != nil {
			return
		}
		next, err := sess.Spawned(NewTarget(time.Now().UTC()))
		if err != nil {
			return
		}

		ok, err := s.store.ConditionalUpdate(ctx, sessionID, round, Guard{Status: StatusPlaying, Target: TargetAbsent}, next)
		if err != nil {
			s.logger.Error("target spawn failed", "session_id", sessionID, "round", round, "error", err)
			return
		}
		if ok {
			s.publish(ctx, next)
		}
	}()
}

// creditWinner issues the reward exactly once per (session, winner). A
// duplicated finished-event delivery hits the same idempotency key and
// cannot double-credit. Ties credit nobody.
func (s *Service) creditWinner(ctx context.Context, sess Session) {
	if sess.WinnerID == nil {
		return
	}
	key := sess.ID + ":" + *sess.WinnerID
	if err := s.ledger.CreditReward(ctx, *sess.WinnerID, s.rewardAmount, key); err != nil {
		s.logger.Error("reward credit failed", "session_id", sess.ID, "winner_id", *sess.WinnerID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, sess Session) {
	if err := s.bridge.Publish(ctx, sess); err != nil {
		s.logger.Error("publishing session event", "session_id", sess.ID, "error", err)
	}
}

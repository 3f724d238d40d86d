package duel

import "time"

// New builds a fresh waiting session for hostID. The store assigns the ID on
// insert.
func New(hostID, joinCode string, maxRounds int, now time.Time) Session {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return Session{
		JoinCode:  joinCode,
		HostID:    hostID,
		Status:    StatusWaiting,
		Round:     1,
		MaxRounds: maxRounds,
		CreatedAt: now,
	}
}

// WithGuest fills the guest slot. The session stays in waiting until the host
// starts it.
func (s Session) WithGuest(guestID string) (Session, error) {
	if guestID == s.HostID {
		return s, ErrSelfJoin
	}
	if s.Status != StatusWaiting {
		return s, ErrInvalidState
	}
	if s.GuestID != nil && *s.GuestID != guestID {
		return s, ErrInvalidState
	}
	s.GuestID = &guestID
	return s, nil
}

// Started transitions waiting → playing. The guest slot must be filled; the
// store re-checks that at commit time to close the join/start race.
func (s Session) Started(now time.Time) (Session, error) {
	if s.Status != StatusWaiting {
		return s, ErrInvalidState
	}
	if s.GuestID == nil {
		return s, ErrPrecondition
	}
	s.Status = StatusPlaying
	s.StartedAt = &now
	return s, nil
}

// Spawned places a live target for the current round. Spawning over an
// already-active target is illegal; the store's conditional write turns a
// duplicate spawn attempt into a no-op.
func (s Session) Spawned(t Target) (Session, error) {
	if s.Status != StatusPlaying || s.Target != nil {
		return s, ErrInvalidState
	}
	s.Target = &t
	return s, nil
}

// Claimed awards the current round to claimantID: the scorer's score and the
// round advance together, and the target is cleared. Crossing MaxRounds
// finishes the session in the same mutation, computing the winner by score
// comparison (ties map to nil).
func (s Session) Claimed(claimantID string, now time.Time) (Session, error) {
	if !s.IsParticipant(claimantID) {
		return s, ErrPermission
	}
	if s.Status != StatusPlaying || s.Target == nil {
		return s, ErrInvalidState
	}

	if claimantID == s.HostID {
		s.HostScore++
	} else {
		s.GuestScore++
	}
	s.Round++
	s.Target = nil

	if s.Round > s.MaxRounds {
		s.Status = StatusFinished
		s.EndedAt = &now
		switch {
		case s.HostScore > s.GuestScore:
			s.WinnerID = &s.HostID
		case s.GuestScore > s.HostScore:
			s.WinnerID = s.GuestID
		}
	}
	return s, nil
}

// Rematch resets a finished session back to waiting with the same pairing.
func (s Session) Rematch(now time.Time) (Session, error) {
	if s.Status != StatusFinished {
		return s, ErrPrecondition
	}
	s.Status = StatusWaiting
	s.HostScore = 0
	s.GuestScore = 0
	s.Round = 1
	s.Target = nil
	s.WinnerID = nil
	s.StartedAt = nil
	s.EndedAt = nil
	return s, nil
}

// GuestLeft clears the guest slot and returns the session to a clean waiting
// state. Scores and round reset with it: a half-played session with no guest
// has no meaningful score to keep.
func (s Session) GuestLeft() Session {
	s.GuestID = nil
	s.Status = StatusWaiting
	s.HostScore = 0
	s.GuestScore = 0
	s.Round = 1
	s.Target = nil
	s.WinnerID = nil
	s.StartedAt = nil
	s.EndedAt = nil
	return s
}

// statusRank orders lifecycle phases for reconciliation at equal rounds.
func statusRank(st Status) int {
	switch st {
	case StatusPlaying:
		return 1
	case StatusFinished:
		return 2
	}
	return 0
}

// Reconcile picks between a local optimistic copy and an incoming change
// event: the freshest round wins. At equal rounds the further-progressed
// status wins, and a live target beats a cleared one, so replayed or
// reordered deliveries never roll a client backwards.
func Reconcile(local, incoming Session) Session {
	if incoming.Round != local.Round {
		if incoming.Round > local.Round {
			return incoming
		}
		return local
	}
	if ir, lr := statusRank(incoming.Status), statusRank(local.Status); ir != lr {
		if ir > lr {
			return incoming
		}
		return local
	}
	if incoming.Target != nil && local.Target == nil {
		return incoming
	}
	return local
}

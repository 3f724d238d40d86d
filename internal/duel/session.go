// Package duel defines the core domain of the duel session engine.
// It has no external dependencies.
package duel

import (
	"errors"
	"time"
)

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// DefaultMaxRounds is used when a session is created without an explicit limit.
const DefaultMaxRounds = 5

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidState = errors.New("operation not allowed in current session state")
	ErrPermission   = errors.New("caller lacks the required role")
	ErrPrecondition = errors.New("precondition not met")
	ErrConflict     = errors.New("join code conflict")
	ErrSelfJoin     = errors.New("host cannot join own session")
)

// Target is a live stimulus. Coordinates are normalized to [0,100] on each
// axis.
type Target struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	SpawnedAt time.Time `json:"spawnedAt"`
}

// Session is the durable record representing one duel instance. Participant
// processes hold optimistic copies of it; the store row is authoritative.
//
// Round doubles as the monotonic version counter for conditional writes: it
// advances exactly once per accepted claim, so hostScore+guestScore == round-1
// while playing.
type Session struct {
	ID         string     `json:"id"`
	JoinCode   string     `json:"joinCode"`
	HostID     string     `json:"hostId"`
	GuestID    *string    `json:"guestId"`
	Status     Status     `json:"status"`
	HostScore  int        `json:"hostScore"`
	GuestScore int        `json:"guestScore"`
	Round      int        `json:"round"`
	MaxRounds  int        `json:"maxRounds"`
	Target     *Target    `json:"activeTarget"`
	WinnerID   *string    `json:"winnerId"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt"`
}

// Participant is a resolved display identity.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
}

// ClaimResult reports the outcome of a claim submission. Accepted=false is a
// normal outcome, not an error: it means the other participant's claim (or a
// replay of this one) won the round.
type ClaimResult struct {
	Accepted bool    `json:"accepted"`
	Session  Session `json:"session"`
}

// IsParticipant reports whether id is the host or the joined guest.
func (s Session) IsParticipant(id string) bool {
	if id == s.HostID {
		return true
	}
	return s.GuestID != nil && *s.GuestID == id
}

package duel

import (
	"crypto/rand"
	"strings"
)

// Join codes are 6 characters, case-insensitive alphanumeric. Uniqueness is
// only required among waiting sessions and is enforced by the store at
// creation time.
const (
	JoinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewJoinCode returns a random join code. Collisions are possible and are
// surfaced by the store as ErrConflict; callers retry with a fresh code.
func NewJoinCode() string {
	buf := make([]byte, JoinCodeLength)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf)
}

// NormalizeJoinCode maps user input onto the stored form.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

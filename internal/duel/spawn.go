package duel

import (
	"math/rand/v2"
	"time"
)

// Spawn policy: targets land uniformly inside a 10-90% inset of the
// normalized field, away from the edges, after a 1-3s randomized delay so
// the timing is not trivially predictable.
const (
	spawnInsetMin = 10.0
	spawnInsetMax = 90.0

	spawnDelayMin = 1 * time.Second
	spawnDelayMax = 3 * time.Second
)

// NewTarget draws a random target position for a stimulus spawned at now.
func NewTarget(now time.Time) Target {
	span := spawnInsetMax - spawnInsetMin
	return Target{
		X:         spawnInsetMin + rand.Float64()*span,
		Y:         spawnInsetMin + rand.Float64()*span,
		SpawnedAt: now,
	}
}

// SpawnDelay returns the randomized pause before the next target appears.
func SpawnDelay() time.Duration {
	return spawnDelayMin + rand.N(spawnDelayMax-spawnDelayMin)
}

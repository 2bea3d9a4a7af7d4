package load

import (
	"fmt"
	"math/rand"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// ThinkPacer paces hits the way simulated users would: each active user
// sends one request, thinks for a uniformly random pause between Min and
// Max, then sends the next. Users ramp up at SpawnRate per second until
// Users are active.
type ThinkPacer struct {
	Min time.Duration
	Max time.Duration

	Users     uint64
	SpawnRate float64
}

var _ vegeta.Pacer = ThinkPacer{}

// Pace waits one think pause divided across the currently active users.
func (p ThinkPacer) Pace(elapsed time.Duration, hits uint64) (time.Duration, bool) {
	return p.think() / time.Duration(p.active(elapsed)), false
}

// Rate reports the expected hits per second once elapsed time has passed.
func (p ThinkPacer) Rate(elapsed time.Duration) float64 {
	mean := (p.Min + p.Max).Seconds() / 2
	if mean <= 0 {
		return 0
	}
	return float64(p.active(elapsed)) / mean
}

func (p ThinkPacer) String() string {
	return fmt.Sprintf("%d users, spawn rate %g/s, think [%s, %s]", p.Users, p.SpawnRate, p.Min, p.Max)
}

func (p ThinkPacer) active(elapsed time.Duration) uint64 {
	spawned := uint64(p.SpawnRate * elapsed.Seconds())
	if spawned < 1 {
		spawned = 1
	}
	if p.Users > 0 && spawned > p.Users {
		spawned = p.Users
	}
	return spawned
}

func (p ThinkPacer) think() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + time.Duration(rand.Int63n(int64(p.Max-p.Min)))
}

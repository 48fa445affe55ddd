// Package strategies defines the bet decision policy interface and the
// registry that makes policies selectable by name at configure time.
package strategies

import (
	"github.com/betbot/dicebot/internal/domain"
)

// Input is everything a policy may look at when sizing one bet.
type Input struct {
	Prediction float64
	Confidence float64
	Currency   string
	UseFaucet  bool
	Stakes     domain.StakeTiers

	// LossStreak counts consecutive losses at decision time, zero
	// after any win and at session start. Progression policies key
	// their stake off it.
	LossStreak int
}

// Policy maps one prediction pair onto a concrete bet. Implementations
// must be pure: no I/O, no clocks, no randomness. Identical inputs
// yield identical intents, which is what makes decisions auditable and
// replayable.
type Policy interface {
	ID() string
	Decide(in Input) domain.BetIntent
}

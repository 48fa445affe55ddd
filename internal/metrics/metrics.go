package metrics

import "expvar"

var (
	BetsPlaced    = expvar.NewInt("bets_placed")
	BetsWon       = expvar.NewInt("bets_won")
	BetsLost      = expvar.NewInt("bets_lost")
	CycleErrors   = expvar.NewInt("cycle_errors")
	RatePauses    = expvar.NewInt("rate_pauses")
	SessionFaults = expvar.NewInt("session_faults")
	SeedRotations = expvar.NewInt("seed_rotations")
)

// BetSettled records one completed bet.
func BetSettled(won bool) {
	BetsPlaced.Add(1)
	if won {
		BetsWon.Add(1)
	} else {
		BetsLost.Add(1)
	}
}

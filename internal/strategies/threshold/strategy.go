// Package threshold implements the stock confidence-tier policy:
// stronger conviction buys a wider chance window and the larger stake.
package threshold

import (
	"github.com/betbot/dicebot/internal/domain"
	"github.com/betbot/dicebot/internal/strategies"
)

const ID = "threshold"

func init() { strategies.Register(&Strategy{}) }

// Strategy is stateless; every decision is a function of the input
// alone.
type Strategy struct{}

func (s *Strategy) ID() string { return ID }

func (s *Strategy) Decide(in strategies.Input) domain.BetIntent {
	return domain.BetIntent{
		Currency:  in.Currency,
		Chance:    chanceFor(in.Confidence),
		Direction: domain.DirectionForPrediction(in.Prediction),
		Amount:    in.Stakes.ForConfidence(in.Confidence),
		UseFaucet: in.UseFaucet,
	}
}

// chanceFor widens the win window as confidence grows. Boundaries are
// half-open: 0.7 still sits in the middle tier, 0.5 in the lowest.
func chanceFor(confidence float64) float64 {
	switch {
	case confidence > 0.7:
		return 50.0
	case confidence > 0.5:
		return 40.0
	default:
		return 30.0
	}
}

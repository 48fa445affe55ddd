// Package martingale implements a loss progression policy: the stake
// doubles after every loss and falls back to the standard tier after a
// win.
package martingale

import (
	"github.com/shopspring/decimal"

	"github.com/betbot/dicebot/internal/domain"
	"github.com/betbot/dicebot/internal/strategies"
)

const ID = "martingale"

// The progression assumes a near-2x payout, so the chance stays fixed
// just under even odds regardless of confidence.
const chance = 49.5

func init() { strategies.Register(&Strategy{Factor: 2, MaxDoublings: 6}) }

// Strategy sizes the next bet off the current loss streak.
// MaxDoublings caps the progression so one losing run cannot grow the
// stake without bound.
type Strategy struct {
	Factor       int64
	MaxDoublings int
}

func (s *Strategy) ID() string { return ID }

func (s *Strategy) Decide(in strategies.Input) domain.BetIntent {
	doublings := in.LossStreak
	if doublings > s.MaxDoublings {
		doublings = s.MaxDoublings
	}
	amount := in.Stakes.Standard
	factor := decimal.NewFromInt(s.Factor)
	for i := 0; i < doublings; i++ {
		amount = amount.Mul(factor)
	}
	return domain.BetIntent{
		Currency:  in.Currency,
		Chance:    chance,
		Direction: domain.DirectionForPrediction(in.Prediction),
		Amount:    amount,
		UseFaucet: in.UseFaucet,
	}
}

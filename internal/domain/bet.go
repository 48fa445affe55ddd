package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Direction is the side of a dice bet: the roll must land above or
// below the chance window.
type Direction string

const (
	DirectionHigh Direction = "high"
	DirectionLow  Direction = "low"
)

// IsHigh reports the wire form of the direction (the play endpoint
// takes a boolean, not a string).
func (d Direction) IsHigh() bool { return d == DirectionHigh }

// DirectionForPrediction maps a strategy prediction to a side. Values
// above the midpoint bet high, everything else bets low.
func DirectionForPrediction(prediction float64) Direction {
	if prediction > 50.0 {
		return DirectionHigh
	}
	return DirectionLow
}

// BetIntent is a fully resolved decision: everything the client needs
// to place one bet. Produced by a strategy, validated before any
// request is built from it.
type BetIntent struct {
	Currency  string
	Chance    float64
	Direction Direction
	Amount    decimal.Decimal
	UseFaucet bool
}

// Validate rejects intents that the provider would reject anyway.
// Chance is exclusive on both ends: 0 never wins, 100 is not a bet.
func (i BetIntent) Validate() error {
	if i.Currency == "" {
		return errors.New("bet intent: currency is empty")
	}
	if i.Chance <= 0 || i.Chance >= 100 {
		return errors.Errorf("bet intent: chance %.4f outside (0, 100)", i.Chance)
	}
	if !i.Amount.IsPositive() {
		return errors.Errorf("bet intent: amount %s is not positive", i.Amount)
	}
	if i.Direction != DirectionHigh && i.Direction != DirectionLow {
		return errors.Errorf("bet intent: unknown direction %q", i.Direction)
	}
	return nil
}

// BetResult is one settled bet as reported by the provider, plus the
// prediction/confidence pair that produced it. The Won flag and the
// Balance string are authoritative; nothing here is recomputed locally.
// Session names the configured run the bet belongs to.
type BetResult struct {
	Session    string          `json:"session,omitempty"`
	Hash       string          `json:"hash"`
	Currency   string          `json:"currency"`
	Direction  Direction       `json:"direction"`
	Chance     float64         `json:"chance"`
	Won        bool            `json:"won"`
	Number     int             `json:"number"`
	Payout     float64         `json:"payout"`
	Amount     decimal.Decimal `json:"amount"`
	WinAmount  decimal.Decimal `json:"winAmount"`
	Profit     decimal.Decimal `json:"profit"`
	Balance    string          `json:"balance"`
	Nonce      uint64          `json:"nonce"`
	Prediction float64         `json:"prediction"`
	Confidence float64         `json:"confidence"`
	PlacedAt   time.Time       `json:"placedAt"`
}

package martingale

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/betbot/dicebot/internal/domain"
	"github.com/betbot/dicebot/internal/strategies"
)

func input(lossStreak int) strategies.Input {
	return strategies.Input{
		Prediction: 75.0,
		Confidence: 0.8,
		Currency:   "BTC",
		Stakes:     domain.DefaultStakeTiers(),
		LossStreak: lossStreak,
	}
}

func TestProgression(t *testing.T) {
	s := &Strategy{Factor: 2, MaxDoublings: 6}
	base := domain.DefaultStakeTiers().Standard

	tests := []struct {
		streak int
		mult   int64
	}{
		{0, 1},
		{1, 2},
		{2, 4},
		{3, 8},
		{6, 64},
		{7, 64},  // capped
		{50, 64}, // still capped
	}
	for _, tt := range tests {
		intent := s.Decide(input(tt.streak))
		want := base.Mul(decimal.NewFromInt(tt.mult))
		if !intent.Amount.Equal(want) {
			t.Errorf("streak %d: amount = %s, want %s", tt.streak, intent.Amount, want)
		}
		if err := intent.Validate(); err != nil {
			t.Errorf("streak %d: invalid intent: %v", tt.streak, err)
		}
	}
}

func TestWinResetsToBase(t *testing.T) {
	s := &Strategy{Factor: 2, MaxDoublings: 6}
	base := domain.DefaultStakeTiers().Standard

	deep := s.Decide(input(4))
	if intent := s.Decide(input(0)); !intent.Amount.Equal(base) {
		t.Fatalf("streak 0 after %s stake = %s, want base %s", deep.Amount, intent.Amount, base)
	}
}

func TestChanceFixedNearEvenOdds(t *testing.T) {
	s := &Strategy{Factor: 2, MaxDoublings: 6}
	for _, confidence := range []float64{0.1, 0.6, 0.9} {
		in := input(0)
		in.Confidence = confidence
		if intent := s.Decide(in); intent.Chance != 49.5 {
			t.Fatalf("confidence %v: chance = %v, want 49.5", confidence, intent.Chance)
		}
	}
}

func TestDirectionFollowsPrediction(t *testing.T) {
	s := &Strategy{Factor: 2, MaxDoublings: 6}

	in := input(0)
	in.Prediction = 20.0
	if intent := s.Decide(in); intent.Direction != domain.DirectionLow {
		t.Fatalf("prediction 20: direction = %v", intent.Direction)
	}
	in.Prediction = 80.0
	if intent := s.Decide(in); intent.Direction != domain.DirectionHigh {
		t.Fatalf("prediction 80: direction = %v", intent.Direction)
	}
}

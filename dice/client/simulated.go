package client

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/betbot/dicebot/dice/types"
)

// housePayout is the payout numerator the simulator uses, i.e. a 2.5%
// effective edge: multiplier = housePayout / chance.
const housePayout = 97.5

// Simulated mirrors the remote contract without network I/O. Rolls are
// drawn locally in [0,10000) with the same win-window semantics as the
// real site, and the balance is tracked against the simulated results.
// A fixed RNG seed makes runs reproducible, which the tests rely on.
//
// The single simulated pot is reported as both the main and faucet
// balance so dry-run sessions work in either mode.
type Simulated struct {
	mu         sync.Mutex
	rng        *rand.Rand
	currency   string
	balance    decimal.Decimal
	nonce      uint64
	clientSeed string
}

// NewSimulated returns a simulator holding startBalance of currency.
func NewSimulated(currency string, startBalance decimal.Decimal, seed int64) *Simulated {
	return &Simulated{
		rng:      rand.New(rand.NewSource(seed)),
		currency: currency,
		balance:  startBalance,
	}
}

// UserInfo reports the simulated account.
func (s *Simulated) UserInfo(_ context.Context) (*types.UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal := s.balance.StringFixed(8)
	return &types.UserInfo{
		Hash:     "sim",
		Username: "simulated",
		Level:    1,
		Balances: []types.Balance{{
			Currency: s.currency,
			Main:     &bal,
			Faucet:   &bal,
		}},
	}, nil
}

// PlaceBet settles one wager against a local roll.
func (s *Simulated) PlaceBet(_ context.Context, req *types.BetRequest) (*types.BetResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount := decimal.NewFromFloat(req.Amount)
	if amount.GreaterThan(s.balance) {
		return nil, &types.APIError{Message: "insufficient balance"}
	}

	roll := s.rng.Intn(10000)
	window := int(req.Chance * 100)
	var won bool
	if req.IsHigh {
		won = roll >= 10000-window
	} else {
		won = roll < window
	}

	payout := housePayout / req.Chance
	winAmount := decimal.Zero
	profit := amount.Neg()
	choice := "low"
	if req.IsHigh {
		choice = "high"
	}
	if won {
		winAmount = amount.Mul(decimal.NewFromFloat(payout)).Round(8)
		profit = winAmount.Sub(amount)
	}
	s.balance = s.balance.Add(profit)
	s.nonce++

	return &types.BetResponse{
		Bet: types.BetInfo{
			Hash:      fmt.Sprintf("sim-%06d", s.nonce),
			Symbol:    req.Symbol,
			Choice:    choice,
			Result:    won,
			Number:    roll,
			Chance:    req.Chance,
			Payout:    payout,
			BetAmount: amount.StringFixed(8),
			WinAmount: winAmount.StringFixed(8),
			Profit:    profit.StringFixed(8),
			Nonce:     s.nonce,
		},
		User: types.BetUser{
			Hash:     "sim",
			Username: "simulated",
			Balance:  s.balance.StringFixed(8),
		},
	}, nil
}

// RandomizeSeed stores the new client seed. Nothing depends on it; the
// call exists so dry-run sessions exercise the same rotation path.
func (s *Simulated) RandomizeSeed(_ context.Context, seed string) error {
	s.mu.Lock()
	s.clientSeed = seed
	s.mu.Unlock()
	return nil
}

package client

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/betbot/dicebot/dice/types"
)

// Mock is a scriptable site client for tests. Calls counts every
// method invocation by name; ErrorOnNext injects a one-shot error for
// a named method; BetResults are consumed in order and fall back to a
// canned winning response when exhausted.
type Mock struct {
	mu sync.RWMutex

	Calls       map[string]int
	ErrorOnNext map[string]error

	UserInfoResult *types.UserInfo
	BetResults     []*types.BetResponse

	LastBetRequest *types.BetRequest
	SeedHistory    []string
}

// NewMock returns a mock with empty call tracking.
func NewMock() *Mock {
	return &Mock{
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
	}
}

func (m *Mock) trackCall(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
	if err, ok := m.ErrorOnNext[name]; ok {
		delete(m.ErrorOnNext, name)
		return err
	}
	return nil
}

// CallCount reports how many times the named method ran.
func (m *Mock) CallCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Calls[name]
}

// FailNext arranges for the next invocation of the named method to
// return err.
func (m *Mock) FailNext(name string, err error) {
	m.mu.Lock()
	m.ErrorOnNext[name] = err
	m.mu.Unlock()
}

// UserInfo returns the scripted profile or a small default account.
func (m *Mock) UserInfo(_ context.Context) (*types.UserInfo, error) {
	if err := m.trackCall("UserInfo"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.UserInfoResult != nil {
		return m.UserInfoResult, nil
	}
	main := "0.00100000"
	faucet := "0.00000000"
	return &types.UserInfo{
		Hash:     "mock",
		Username: "mockuser",
		Level:    3,
		Balances: []types.Balance{{Currency: "BTC", Main: &main, Faucet: &faucet}},
	}, nil
}

// PlaceBet records the request and pops the next scripted result.
func (m *Mock) PlaceBet(_ context.Context, req *types.BetRequest) (*types.BetResponse, error) {
	if err := m.trackCall("PlaceBet"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastBetRequest = req
	if len(m.BetResults) > 0 {
		resp := m.BetResults[0]
		m.BetResults = m.BetResults[1:]
		return resp, nil
	}
	return WonBet(req, "0.00100050"), nil
}

// RandomizeSeed records the seed.
func (m *Mock) RandomizeSeed(_ context.Context, seed string) error {
	if err := m.trackCall("RandomizeSeed"); err != nil {
		return err
	}
	m.mu.Lock()
	m.SeedHistory = append(m.SeedHistory, seed)
	m.mu.Unlock()
	return nil
}

// WonBet builds a winning response for req reporting balance as the
// post-bet account balance.
func WonBet(req *types.BetRequest, balance string) *types.BetResponse {
	return betResult(req, true, balance)
}

// LostBet builds a losing response for req.
func LostBet(req *types.BetRequest, balance string) *types.BetResponse {
	return betResult(req, false, balance)
}

func betResult(req *types.BetRequest, won bool, balance string) *types.BetResponse {
	symbol := "BTC"
	chance := 50.0
	var amount float64
	if req != nil {
		symbol = req.Symbol
		chance = req.Chance
		amount = req.Amount
	}
	number := 1234
	if won {
		number = 8765
	}
	return &types.BetResponse{
		Bet: types.BetInfo{
			Hash:      "mock-bet",
			Symbol:    symbol,
			Choice:    "high",
			Result:    won,
			Number:    number,
			Chance:    chance,
			Payout:    housePayout / chance,
			BetAmount: decimal.NewFromFloat(amount).StringFixed(8),
			WinAmount: "0.00000000",
			Profit:    "0.00000000",
			Nonce:     1,
		},
		User: types.BetUser{Hash: "mock", Username: "mockuser", Balance: balance},
	}
}

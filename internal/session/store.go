// Package session holds the mutable state of one betting session:
// provider-reported balance, win/loss counters and the most recent
// prediction pair. Reads are cheap and lock-shared; every counter
// mutation goes through the single Apply path so no reader ever sees a
// half-updated session.
package session

import (
	"sync"
	"time"

	"github.com/betbot/dicebot/internal/domain"
)

// Store is the session state store. Zero value is not usable, create
// with NewStore.
type Store struct {
	mu sync.RWMutex

	balance        string
	totalBets      uint64
	wins           uint64
	lastPrediction float64
	lastConfidence float64

	lastResult domain.BetResult
	settled    bool

	startedAt time.Time
	updatedAt time.Time
}

// Snapshot is a consistent point-in-time copy of the session state.
type Snapshot struct {
	Balance        string            `json:"balance"`
	TotalBets      uint64            `json:"totalBets"`
	Wins           uint64            `json:"wins"`
	WinRate        float64           `json:"winRate"`
	LastPrediction float64           `json:"lastPrediction"`
	LastConfidence float64           `json:"lastConfidence"`
	LastResult     *domain.BetResult `json:"lastResult,omitempty"`
	StartedAt      time.Time         `json:"startedAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func NewStore() *Store {
	now := time.Now()
	return &Store{startedAt: now, updatedAt: now}
}

// SeedBalance records the balance reported during credential
// validation, before any bet has been placed. Counters are untouched.
func (s *Store) SeedBalance(balance string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = balance
	s.updatedAt = time.Now()
}

// Apply folds one settled bet into the session under a single lock
// acquisition. This is the only path that advances the counters:
// failed or skipped cycles never reach it, so totalBets counts
// completed bets only.
func (s *Store) Apply(result domain.BetResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalBets++
	if result.Won {
		s.wins++
	}
	s.balance = result.Balance
	s.lastPrediction = result.Prediction
	s.lastConfidence = result.Confidence
	s.lastResult = result
	s.settled = true
	s.updatedAt = time.Now()
}

// Balance returns the provider's last reported balance, stale by at
// most one cycle. Empty string before the first UserInfo call.
func (s *Store) Balance() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// WinRate is wins over completed bets, 0.0 for a fresh session.
func (s *Store) WinRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return winRate(s.wins, s.totalBets)
}

func (s *Store) Prediction() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPrediction
}

func (s *Store) Confidence() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastConfidence
}

func (s *Store) TotalBets() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalBets
}

// Snapshot returns a consistent copy of every field. LastResult is nil
// until the first bet settles.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Balance:        s.balance,
		TotalBets:      s.totalBets,
		Wins:           s.wins,
		WinRate:        winRate(s.wins, s.totalBets),
		LastPrediction: s.lastPrediction,
		LastConfidence: s.lastConfidence,
		StartedAt:      s.startedAt,
		UpdatedAt:      s.updatedAt,
	}
	if s.settled {
		last := s.lastResult
		snap.LastResult = &last
	}
	return snap
}

// Reset discards all session state, as Cleanup requires. The store is
// immediately reusable for the next Configure.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.balance = ""
	s.totalBets = 0
	s.wins = 0
	s.lastPrediction = 0
	s.lastConfidence = 0
	s.lastResult = domain.BetResult{}
	s.settled = false
	s.startedAt = now
	s.updatedAt = now
}

func winRate(wins, total uint64) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(wins) / float64(total)
}

package session

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"testing/quick"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/dicebot/internal/domain"
)

func settledBet(won bool, balance string, prediction, confidence float64) domain.BetResult {
	return domain.BetResult{
		Hash:       "bet-1",
		Currency:   "BTC",
		Direction:  domain.DirectionLow,
		Chance:     40.0,
		Won:        won,
		Amount:     decimal.RequireFromString("0.00000050"),
		Balance:    balance,
		Prediction: prediction,
		Confidence: confidence,
	}
}

func TestStoreFreshSession(t *testing.T) {
	store := NewStore()
	if got := store.WinRate(); got != 0.0 {
		t.Fatalf("fresh WinRate = %v, want 0.0", got)
	}
	if got := store.Balance(); got != "" {
		t.Fatalf("fresh Balance = %q, want empty", got)
	}
	if snap := store.Snapshot(); snap.LastResult != nil {
		t.Fatalf("fresh snapshot carries a result: %+v", snap.LastResult)
	}
}

func TestStoreSeedBalance(t *testing.T) {
	store := NewStore()
	store.SeedBalance("0.00100000")
	if got := store.Balance(); got != "0.00100000" {
		t.Fatalf("Balance = %q", got)
	}
	if got := store.TotalBets(); got != 0 {
		t.Fatalf("SeedBalance advanced counters: totalBets = %d", got)
	}
}

func TestStoreApply(t *testing.T) {
	store := NewStore()
	store.SeedBalance("0.00100000")

	store.Apply(settledBet(true, "0.00100050", 75.0, 0.8))
	store.Apply(settledBet(false, "0.00100000", 30.0, 0.4))

	snap := store.Snapshot()
	if snap.TotalBets != 2 || snap.Wins != 1 {
		t.Fatalf("counters = %d/%d, want 2/1", snap.TotalBets, snap.Wins)
	}
	if snap.WinRate != 0.5 {
		t.Fatalf("WinRate = %v, want 0.5", snap.WinRate)
	}
	if snap.Balance != "0.00100000" {
		t.Fatalf("Balance = %q, want last reported", snap.Balance)
	}
	if snap.LastPrediction != 30.0 || snap.LastConfidence != 0.4 {
		t.Fatalf("last pair = %v/%v, want 30.0/0.4", snap.LastPrediction, snap.LastConfidence)
	}
	if snap.LastResult == nil || snap.LastResult.Won {
		t.Fatalf("LastResult = %+v, want the losing bet", snap.LastResult)
	}
}

func TestStoreReset(t *testing.T) {
	store := NewStore()
	store.SeedBalance("0.00100000")
	store.Apply(settledBet(true, "0.00100050", 75.0, 0.8))

	store.Reset()

	snap := store.Snapshot()
	if snap.TotalBets != 0 || snap.Wins != 0 || snap.Balance != "" || snap.LastResult != nil {
		t.Fatalf("state survived Reset: %+v", snap)
	}
	// The store must be reusable after a reset.
	store.Apply(settledBet(false, "0.00099950", 20.0, 0.3))
	if got := store.TotalBets(); got != 1 {
		t.Fatalf("totalBets after reuse = %d, want 1", got)
	}
}

// Counters only ever move through Apply, so wins can never exceed
// totalBets and the win rate stays within [0, 1] for any outcome
// sequence.
func TestStoreCounterInvariants(t *testing.T) {
	property := func(outcomes []bool) bool {
		store := NewStore()
		wins := uint64(0)
		for i, won := range outcomes {
			if won {
				wins++
			}
			store.Apply(settledBet(won, fmt.Sprintf("0.%08d", i), 50.0, 0.5))
		}
		snap := store.Snapshot()
		if snap.Wins > snap.TotalBets {
			return false
		}
		if snap.TotalBets != uint64(len(outcomes)) || snap.Wins != wins {
			return false
		}
		return snap.WinRate >= 0.0 && snap.WinRate <= 1.0
	}
	cfg := &quick.Config{
		MaxCount: 100,
		Rand:     rand.New(rand.NewSource(42)),
	}
	if err := quick.Check(property, cfg); err != nil {
		t.Fatal(err)
	}
}

// Readers racing a writer must always observe a consistent pair of
// counters, never a torn update.
func TestStoreConcurrentReads(t *testing.T) {
	store := NewStore()
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			store.Apply(settledBet(i%2 == 0, "0.00100000", 50.0, 0.5))
		}
		close(done)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				snap := store.Snapshot()
				if snap.Wins > snap.TotalBets {
					t.Errorf("torn read: wins %d > totalBets %d", snap.Wins, snap.TotalBets)
					return
				}
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	waited := make(chan struct{})
	go func() { wg.Wait(); close(waited) }()
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent read test did not finish")
	}
}

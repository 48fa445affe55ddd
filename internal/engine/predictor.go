package engine

import (
	"context"
	"math/rand"
	"sync"
)

// Predictor supplies the signal the loop bets on: a scalar in [0, 100)
// and a confidence in [0, 1). The model behind it is not the engine's
// business; it is consumed as an opaque input.
type Predictor interface {
	Predict(ctx context.Context) (prediction, confidence float64, err error)
}

// RandomPredictor draws uniform predictions from a seeded source. It
// stands in wherever no external model is wired and gives tests a
// reproducible signal.
type RandomPredictor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomPredictor(seed int64) *RandomPredictor {
	return &RandomPredictor{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPredictor) Predict(ctx context.Context) (float64, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() * 100, p.rng.Float64(), nil
}

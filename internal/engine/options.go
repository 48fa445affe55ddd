package engine

import (
	"context"
	"time"

	"github.com/betbot/dicebot/dice/client"
	"github.com/betbot/dicebot/dice/types"
	"github.com/betbot/dicebot/internal/domain"
)

const (
	// DefaultCycleInterval is the pause between loop cycles.
	DefaultCycleInterval = 5 * time.Second

	// DefaultMaxRatePause caps how long a provider-requested pause may
	// stall the loop, whatever Retry-After says.
	DefaultMaxRatePause = 300 * time.Second

	// DefaultBackoffCeiling bounds the doubled wait after consecutive
	// transient failures.
	DefaultBackoffCeiling = 80 * time.Second

	// DefaultFaultThreshold is how many consecutive provider-reported
	// errors fault the session.
	DefaultFaultThreshold = 3

	poolWorkers = 2
)

// Client is the provider surface the engine drives. *client.Client,
// *client.Simulated and *client.Mock all satisfy it.
type Client interface {
	UserInfo(ctx context.Context) (*types.UserInfo, error)
	PlaceBet(ctx context.Context, req *types.BetRequest) (*types.BetResponse, error)
	RandomizeSeed(ctx context.Context, clientSeed string) error
}

// ClientFactory builds the provider client for a configured session.
// The factory runs once per Configure, after validation.
type ClientFactory func(cfg domain.SessionConfig) Client

// Options tune one engine instance. The zero value works: defaults
// fill in, the real client is dialed, predictions are random.
type Options struct {
	CycleInterval  time.Duration
	MaxRatePause   time.Duration
	BackoffCeiling time.Duration
	FaultThreshold int

	// SeedRotateEvery rotates the client seed after this many settled
	// bets. 0 disables rotation.
	SeedRotateEvery uint64

	// DisableLoop keeps the session manual: Configure validates and
	// seeds the balance, but only explicit PlaceBet calls bet.
	DisableLoop bool

	UseFaucet bool
	Stakes    domain.StakeTiers

	Predictor Predictor
	NewClient ClientFactory

	// OnResult runs after every settled bet, on the cycle's worker.
	// Keep it fast; slow sinks should buffer internally.
	OnResult func(domain.BetResult)
}

func (o *Options) setDefaults() {
	if o.CycleInterval <= 0 {
		o.CycleInterval = DefaultCycleInterval
	}
	if o.MaxRatePause <= 0 {
		o.MaxRatePause = DefaultMaxRatePause
	}
	if o.BackoffCeiling <= 0 {
		o.BackoffCeiling = DefaultBackoffCeiling
	}
	if o.FaultThreshold <= 0 {
		o.FaultThreshold = DefaultFaultThreshold
	}
	if o.Stakes.Standard.IsZero() && o.Stakes.Confident.IsZero() {
		o.Stakes = domain.DefaultStakeTiers()
	}
	if o.Predictor == nil {
		o.Predictor = NewRandomPredictor(time.Now().UnixNano())
	}
	if o.NewClient == nil {
		o.NewClient = func(cfg domain.SessionConfig) Client {
			return client.New(cfg.APIKey)
		}
	}
}

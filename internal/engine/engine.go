// Package engine owns the betting session: lifecycle state machine,
// the blocking caller boundary, and the autonomous loop that drives
// decide -> bet -> apply cycles against the provider.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/dicebot/dice/types"
	"github.com/betbot/dicebot/internal/domain"
	"github.com/betbot/dicebot/internal/metrics"
	"github.com/betbot/dicebot/internal/session"
	"github.com/betbot/dicebot/internal/strategies"
	"github.com/betbot/dicebot/pkg/bridge"
)

var log = logrus.WithField("component", "engine")

const stopTimeout = 30 * time.Second

// Engine is the blocking boundary of one betting session. Callers
// never perform I/O themselves: every operation runs on the bridge's
// worker pool while the caller waits for the plain result.
type Engine struct {
	opts Options

	mu              sync.RWMutex
	state           State
	cfg             domain.SessionConfig
	client          Client
	policy          strategies.Policy
	sessionID       string
	lastErr         error
	lossStreak      int
	betsSinceRotate uint64
	initialized     bool

	loopCancel context.CancelFunc
	loopDone   chan struct{}

	store  *session.Store
	bridge *bridge.Bridge

	// opMu is the single-flight gate: one configure/bet/seed operation
	// at a time. External callers fail fast with ErrBusy; the loop
	// waits its turn.
	opMu sync.Mutex
}

func New(opts Options) *Engine {
	opts.setDefaults()
	return &Engine{opts: opts, state: StateIdle}
}

// Initialize allocates the worker pool and an empty state store.
// Idempotent until Cleanup undoes it.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}
	e.store = session.NewStore()
	e.bridge = bridge.New(poolWorkers)
	e.bridge.Start(context.Background())
	e.state = StateIdle
	e.lastErr = nil
	e.initialized = true

	log.Info("engine initialized")
	return nil
}

// Configure validates the session setup, checks the credentials with
// one UserInfo call, seeds the balance and starts the loop. Callable
// from Idle or Faulted; a running session must be cleaned up first.
func (e *Engine) Configure(site, apiKey, currency, strategyID string) error {
	if !e.opMu.TryLock() {
		return bridge.ErrBusy
	}
	defer e.opMu.Unlock()

	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return ErrNotInitialized
	}
	if e.state != StateIdle && e.state != StateFaulted {
		state := e.state
		e.mu.Unlock()
		return &ConfigError{Err: errors.Errorf("session is %s, clean up before reconfiguring", state)}
	}
	prev := e.state
	e.mu.Unlock()

	parsedSite, err := domain.ParseSite(site)
	if err != nil {
		return &ConfigError{Err: err}
	}
	policy, err := strategies.Get(strategyID)
	if err != nil {
		return &ConfigError{Err: err}
	}
	cfg := domain.SessionConfig{
		Site:       parsedSite,
		APIKey:     apiKey,
		Currency:   strings.ToUpper(strings.TrimSpace(currency)),
		StrategyID: strategyID,
		UseFaucet:  e.opts.UseFaucet,
		Stakes:     e.opts.Stakes,
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	e.setState(StateConfiguring)
	cli := e.opts.NewClient(cfg)

	var info *types.UserInfo
	err = e.bridge.RunBlocking(context.Background(), "configure", func(ctx context.Context) error {
		var err error
		info, err = cli.UserInfo(ctx)
		return err
	})
	if err != nil {
		var authErr *types.AuthError
		if errors.As(err, &authErr) {
			e.fault(err)
			return err
		}
		e.setState(prev)
		return errors.Wrap(err, "validating credentials")
	}

	balance, err := sessionBalance(info, cfg)
	if err != nil {
		e.setState(prev)
		return &ConfigError{Err: err}
	}

	sid := uuid.NewString()

	e.mu.Lock()
	e.cfg = cfg
	e.client = cli
	e.policy = policy
	e.sessionID = sid
	e.lastErr = nil
	e.lossStreak = 0
	e.betsSinceRotate = 0
	e.mu.Unlock()

	e.store.Reset()
	e.store.SeedBalance(balance)

	e.startLoop()

	log.WithFields(logrus.Fields{
		"session":  sid,
		"site":     cfg.Site,
		"currency": cfg.Currency,
		"strategy": cfg.StrategyID,
		"faucet":   cfg.UseFaucet,
		"user":     info.Username,
		"balance":  balance,
	}).Info("session configured")
	return nil
}

// PlaceBet performs one synchronous decide -> bet -> update cycle with
// the given prediction pair and returns whether the bet won. Fails
// fast with ErrBusy while another operation or a loop cycle is in
// flight.
func (e *Engine) PlaceBet(prediction, confidence float64) (bool, error) {
	if !e.opMu.TryLock() {
		return false, bridge.ErrBusy
	}
	defer e.opMu.Unlock()

	if err := e.requireRunning(); err != nil {
		return false, err
	}

	var won bool
	err := e.bridge.RunBlocking(context.Background(), "place_bet", func(ctx context.Context) error {
		var err error
		won, err = e.step(ctx, prediction, confidence)
		return err
	})
	return won, err
}

// RandomizeSeed asks the provider for a fresh server seed pair using a
// new random client seed.
func (e *Engine) RandomizeSeed() error {
	if !e.opMu.TryLock() {
		return bridge.ErrBusy
	}
	defer e.opMu.Unlock()

	if err := e.requireRunning(); err != nil {
		return err
	}

	e.mu.RLock()
	cli := e.client
	e.mu.RUnlock()

	seed := newClientSeed()
	err := e.bridge.RunBlocking(context.Background(), "randomize_seed", func(ctx context.Context) error {
		return cli.RandomizeSeed(ctx, seed)
	})
	if err != nil {
		return err
	}
	metrics.SeedRotations.Add(1)
	log.WithField("client_seed", seed).Info("client seed rotated")
	return nil
}

// GetBalance returns the provider's last reported balance without
// touching the network. Empty until a session is configured.
func (e *Engine) GetBalance() string {
	s := e.sessionStore()
	if s == nil {
		return ""
	}
	bal := s.Balance()
	if bal == "" {
		return ""
	}
	// Fixed 8-decimal display form; the store keeps the provider's
	// string untouched.
	if d, err := decimal.NewFromString(bal); err == nil {
		return d.StringFixed(8)
	}
	return bal
}

// GetWinRate returns wins over completed bets, 0.0 for a fresh or
// uninitialized session.
func (e *Engine) GetWinRate() float64 {
	if s := e.sessionStore(); s != nil {
		return s.WinRate()
	}
	return 0.0
}

// GetPrediction returns the prediction recorded with the last settled
// bet. It never triggers a new cycle.
func (e *Engine) GetPrediction() float64 {
	if s := e.sessionStore(); s != nil {
		return s.Prediction()
	}
	return 0.0
}

// GetConfidence returns the confidence recorded with the last settled
// bet.
func (e *Engine) GetConfidence() float64 {
	if s := e.sessionStore(); s != nil {
		return s.Confidence()
	}
	return 0.0
}

// Cleanup stops the loop, waits out any in-flight operation, drains
// the pool and discards session state. Safe to call any number of
// times, in any state.
func (e *Engine) Cleanup() error {
	// The loop's cycles take opMu, so the loop must be dead before the
	// gate is held here or stopLoop would wait on a cycle that is
	// itself waiting on the gate.
	e.stopLoop()

	// Serialize teardown behind an in-flight Configure or bet; both
	// hold opMu across their blocking call. A Configure the gate waits
	// out commits its session and arms a fresh loop before releasing,
	// so initialized flips false here, before anything can configure
	// again.
	e.opMu.Lock()
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		e.opMu.Unlock()
		return nil
	}
	if e.state == StateRunning {
		e.state = StateStopping
	}
	br := e.bridge
	e.initialized = false
	e.mu.Unlock()
	e.opMu.Unlock()

	// Stop the loop a waited-out Configure armed. This runs after the
	// gate is released: that loop's first cycle may already be parked
	// in runCycle's opMu.Lock.
	e.stopLoop()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := br.Stop(ctx); err != nil {
		log.WithError(err).Warn("worker pool did not drain cleanly")
	}

	e.mu.Lock()
	e.store.Reset()
	e.cfg = domain.SessionConfig{}
	e.client = nil
	e.policy = nil
	e.sessionID = ""
	e.lastErr = nil
	e.lossStreak = 0
	e.betsSinceRotate = 0
	e.state = StateIdle
	e.mu.Unlock()

	log.Info("session cleaned up")
	return nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Err returns the error that faulted the session, nil otherwise.
func (e *Engine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// Status is a point-in-time view of the session for status surfaces.
type Status struct {
	State     State            `json:"state"`
	SessionID string           `json:"sessionId,omitempty"`
	Site      domain.Site      `json:"site,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Strategy  string           `json:"strategy,omitempty"`
	UseFaucet bool             `json:"useFaucet"`
	Stats     session.Snapshot `json:"stats"`
	LastError string           `json:"lastError,omitempty"`
}

func (e *Engine) Status() Status {
	e.mu.RLock()
	st := Status{
		State:     e.state,
		SessionID: e.sessionID,
		Site:      e.cfg.Site,
		Currency:  e.cfg.Currency,
		Strategy:  e.cfg.StrategyID,
		UseFaucet: e.cfg.UseFaucet,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	store := e.store
	e.mu.RUnlock()

	if store != nil {
		st.Stats = store.Snapshot()
	}
	return st
}

// step is one decide -> bet -> apply cycle. It runs on a pool worker
// with the gate held by the submitting side.
func (e *Engine) step(ctx context.Context, prediction, confidence float64) (bool, error) {
	e.mu.RLock()
	cfg := e.cfg
	cli := e.client
	policy := e.policy
	sid := e.sessionID
	streak := e.lossStreak
	e.mu.RUnlock()

	intent := policy.Decide(strategies.Input{
		Prediction: prediction,
		Confidence: confidence,
		Currency:   cfg.Currency,
		UseFaucet:  cfg.UseFaucet,
		Stakes:     cfg.Stakes,
		LossStreak: streak,
	})
	if err := intent.Validate(); err != nil {
		return false, errors.Wrapf(err, "strategy %s produced an invalid intent", policy.ID())
	}

	req := &types.BetRequest{
		Symbol: intent.Currency,
		Chance: intent.Chance,
		IsHigh: intent.Direction.IsHigh(),
		Amount: intent.Amount.InexactFloat64(),
	}
	if intent.UseFaucet {
		faucet := true
		req.Faucet = &faucet
	}

	resp, err := cli.PlaceBet(ctx, req)
	if err != nil {
		metrics.CycleErrors.Add(1)
		return false, err
	}

	result := buildResult(intent, resp, prediction, confidence)
	result.Session = sid
	e.store.Apply(result)

	e.mu.Lock()
	if result.Won {
		e.lossStreak = 0
	} else {
		e.lossStreak++
	}
	e.betsSinceRotate++
	e.mu.Unlock()

	metrics.BetSettled(result.Won)
	if e.opts.OnResult != nil {
		e.opts.OnResult(result)
	}

	log.WithFields(logrus.Fields{
		"direction": result.Direction,
		"chance":    result.Chance,
		"amount":    result.Amount,
		"won":       result.Won,
		"number":    result.Number,
		"profit":    result.Profit,
		"balance":   result.Balance,
		"nonce":     result.Nonce,
	}).Info("bet settled")
	return result.Won, nil
}

func (e *Engine) requireRunning() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch {
	case !e.initialized:
		return ErrNotInitialized
	case e.state == StateRunning:
		return nil
	case e.state == StateFaulted:
		return ErrFaulted
	default:
		return ErrNotConfigured
	}
}

func (e *Engine) sessionStore() *session.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) fault(err error) {
	e.mu.Lock()
	e.state = StateFaulted
	e.lastErr = err
	e.mu.Unlock()

	metrics.SessionFaults.Add(1)
	log.WithError(err).Error("session faulted")
}

// sessionBalance picks the session currency's balance out of a
// UserInfo response, honoring the faucet flag.
func sessionBalance(info *types.UserInfo, cfg domain.SessionConfig) (string, error) {
	bal := info.ForCurrency(cfg.Currency)
	if bal == nil {
		return "", errors.Errorf("currency %s not available on this account", cfg.Currency)
	}
	amount, ok := bal.Amount(cfg.UseFaucet)
	if !ok {
		kind := "main"
		if cfg.UseFaucet {
			kind = "faucet"
		}
		return "", errors.Errorf("no %s balance for %s", kind, cfg.Currency)
	}
	return amount, nil
}

// buildResult folds the provider response and the decision that
// produced it into one settled record. The provider's strings are
// authoritative; unparseable money fields degrade to the intent's
// values rather than failing a bet that already settled.
func buildResult(intent domain.BetIntent, resp *types.BetResponse, prediction, confidence float64) domain.BetResult {
	amount, err := decimal.NewFromString(resp.Bet.BetAmount)
	if err != nil {
		amount = intent.Amount
	}
	winAmount, err := decimal.NewFromString(resp.Bet.WinAmount)
	if err != nil {
		winAmount = decimal.Zero
	}
	profit, err := decimal.NewFromString(resp.Bet.Profit)
	if err != nil {
		profit = decimal.Zero
	}

	return domain.BetResult{
		Hash:       resp.Bet.Hash,
		Currency:   resp.Bet.Symbol,
		Direction:  intent.Direction,
		Chance:     resp.Bet.Chance,
		Won:        resp.Bet.Result,
		Number:     resp.Bet.Number,
		Payout:     resp.Bet.Payout,
		Amount:     amount,
		WinAmount:  winAmount,
		Profit:     profit,
		Balance:    resp.User.Balance,
		Nonce:      resp.Bet.Nonce,
		Prediction: prediction,
		Confidence: confidence,
		PlacedAt:   time.Now(),
	}
}

func newClientSeed() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

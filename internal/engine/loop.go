package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/betbot/dicebot/dice/types"
	"github.com/betbot/dicebot/internal/metrics"
)

// startLoop transitions to Running and, unless the session is manual,
// launches the autonomous loop goroutine.
func (e *Engine) startLoop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = StateRunning
	if e.opts.DisableLoop {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.loopCancel = cancel
	e.loopDone = done
	go e.runLoop(ctx, done)
}

// stopLoop requests a stop and waits for the loop to observe it at the
// next cycle boundary. An in-flight bet completes first; the wait is
// bounded by the client's own request timeout.
func (e *Engine) stopLoop() {
	e.mu.Lock()
	cancel := e.loopCancel
	done := e.loopDone
	e.loopCancel = nil
	e.loopDone = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// runLoop drives decide -> bet -> apply on a variable cadence: the
// plain interval after success, the provider's pause after a rate
// limit, a doubling backoff after transient failures. Cancellation is
// observed between cycles only, never mid-call.
func (e *Engine) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := e.opts.CycleInterval
	backoff := interval
	consecutiveAPI := 0

	log.WithField("interval", interval).Info("betting loop started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("betting loop stopped")
			return
		case <-timer.C:
		}

		wait := interval
		err := e.runCycle(ctx)
		switch {
		case err == nil:
			backoff = interval
			consecutiveAPI = 0

		case errors.Is(err, context.Canceled):
			log.Info("betting loop stopped")
			return

		default:
			var (
				authErr *types.AuthError
				rateErr *types.RateLimitError
				netErr  *types.NetworkError
				decErr  *types.DecodeError
				apiErr  *types.APIError
			)
			switch {
			case errors.As(err, &authErr):
				e.fault(err)
				return

			case errors.As(err, &rateErr):
				wait = rateErr.RetryAfter
				if wait <= 0 {
					wait = interval
				}
				if wait > e.opts.MaxRatePause {
					wait = e.opts.MaxRatePause
				}
				backoff = interval
				consecutiveAPI = 0
				metrics.RatePauses.Add(1)
				log.WithField("pause", wait).Warn("rate limited, pausing loop")

			case errors.As(err, &netErr), errors.As(err, &decErr):
				backoff *= 2
				if backoff > e.opts.BackoffCeiling {
					backoff = e.opts.BackoffCeiling
				}
				wait = backoff
				consecutiveAPI = 0
				log.WithError(err).WithField("next_try_in", wait).Warn("transient failure, backing off")

			case errors.As(err, &apiErr):
				consecutiveAPI++
				log.WithError(err).WithField("consecutive", consecutiveAPI).Warn("provider rejected bet")
				if consecutiveAPI >= e.opts.FaultThreshold {
					e.fault(errors.Wrapf(err, "%d consecutive provider errors", consecutiveAPI))
					return
				}

			default:
				log.WithError(err).Warn("cycle failed")
			}
		}

		timer.Reset(wait)
	}
}

// runCycle executes one loop cycle under the single-flight gate. The
// task context is detached from the loop context on purpose: a stop
// request must not abort an in-flight bet, only prevent the next one.
func (e *Engine) runCycle(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.bridge.RunBlocking(context.Background(), "cycle", func(taskCtx context.Context) error {
		prediction, confidence, err := e.opts.Predictor.Predict(taskCtx)
		if err != nil {
			return errors.Wrap(err, "prediction source")
		}
		_, err = e.step(taskCtx, prediction, confidence)
		return err
	})
	if err == nil {
		e.maybeRotateSeed(ctx)
	}
	return err
}

// maybeRotateSeed rotates the client seed between cycles once enough
// bets have settled. Failures are logged and skipped; the session does
// not depend on rotation.
func (e *Engine) maybeRotateSeed(ctx context.Context) {
	every := e.opts.SeedRotateEvery
	if every == 0 || ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	due := e.betsSinceRotate >= every
	if due {
		e.betsSinceRotate = 0
	}
	cli := e.client
	e.mu.Unlock()
	if !due || cli == nil {
		return
	}

	seed := newClientSeed()
	err := e.bridge.RunBlocking(context.Background(), "rotate_seed", func(taskCtx context.Context) error {
		return cli.RandomizeSeed(taskCtx, seed)
	})
	if err != nil {
		log.WithError(err).Warn("seed rotation failed")
		return
	}
	metrics.SeedRotations.Add(1)
	log.WithField("client_seed", seed).Info("client seed rotated")
}

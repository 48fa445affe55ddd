// Package server exposes the running betting session over local HTTP:
// status and journal reads, manual bet placement, seed rotation, a stop
// endpoint, and a websocket status stream for dashboards.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/betbot/dicebot/internal/engine"
	"github.com/betbot/dicebot/internal/journal"
)

// Engine is the slice of the betting engine the control plane drives.
// *engine.Engine satisfies it.
type Engine interface {
	Status() engine.Status
	PlaceBet(prediction, confidence float64) (bool, error)
	RandomizeSeed() error
	Cleanup() error
}

type Config struct {
	Addr string
}

type Server struct {
	cfg Config
	eng Engine
	jnl *journal.Journal
}

// New wires the control plane over an engine and an optional journal.
// A nil journal disables the /api/bets endpoints.
func New(cfg Config, eng Engine, jnl *journal.Journal) (*Server, error) {
	if cfg.Addr == "" {
		return nil, errors.New("listen addr is required")
	}
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	return &Server{cfg: cfg, eng: eng, jnl: jnl}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.wrap(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	api := r.Group("/api")
	api.GET("/status", s.wrap(s.handleStatus))
	api.GET("/status/stream", s.wrap(s.handleStatusStream))

	sess := api.Group("/session")
	sess.POST("/bet", s.wrap(s.handleSessionBet))
	sess.POST("/randomize-seed", s.wrap(s.handleSessionRandomizeSeed))
	sess.POST("/stop", s.wrap(s.handleSessionStop))

	bets := api.Group("/bets")
	bets.GET("/recent", s.wrap(s.handleBetsRecent))
	bets.GET("/summary", s.wrap(s.handleBetsSummary))

	return r
}

// Start serves the control plane without blocking and shuts it down
// when ctx is done.
func (s *Server) Start(ctx context.Context) (*http.Server, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Router(),
	}

	go func() {
		_ = srv.Serve(ln)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv, nil
}

// wrap adapts plain net/http handlers to gin.
func (s *Server) wrap(h func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(c.Writer, c.Request)
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/betbot/dicebot/internal/engine"
	"github.com/betbot/dicebot/pkg/bridge"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.eng.Status())
}

type sessionBetRequest struct {
	Prediction float64 `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

func (s *Server) handleSessionBet(w http.ResponseWriter, r *http.Request) {
	var req sessionBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json body")
		return
	}
	won, err := s.eng.PlaceBet(req.Prediction, req.Confidence)
	if err != nil {
		writeError(w, statusFor(err), fmt.Sprintf("place bet: %v", err))
		return
	}
	writeJSON(w, 200, map[string]any{"won": won, "status": s.eng.Status()})
}

func (s *Server) handleSessionRandomizeSeed(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.RandomizeSeed(); err != nil {
		writeError(w, statusFor(err), fmt.Sprintf("randomize seed: %v", err))
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Cleanup(); err != nil {
		writeError(w, 500, fmt.Sprintf("stop session: %v", err))
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "state": s.eng.Status().State})
}

func (s *Server) handleBetsRecent(w http.ResponseWriter, r *http.Request) {
	if s.jnl == nil {
		writeError(w, 404, "journal not enabled")
		return
	}
	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 2000 {
			limit = n
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	bets, err := s.jnl.Recent(ctx, limit)
	if err != nil {
		writeError(w, 500, fmt.Sprintf("db list bets: %v", err))
		return
	}
	writeJSON(w, 200, map[string]any{"bets": bets})
}

func (s *Server) handleBetsSummary(w http.ResponseWriter, r *http.Request) {
	if s.jnl == nil {
		writeError(w, 404, "journal not enabled")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	sum, err := s.jnl.Summary(ctx)
	if err != nil {
		writeError(w, 500, fmt.Sprintf("db summarize bets: %v", err))
		return
	}
	writeJSON(w, 200, sum)
}

// statusFor maps engine refusals onto HTTP codes. State conflicts
// (busy, not configured, faulted) are 409; everything else is a plain
// server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bridge.ErrBusy),
		errors.Is(err, engine.ErrNotInitialized),
		errors.Is(err, engine.ErrNotConfigured),
		errors.Is(err, engine.ErrFaulted):
		return 409
	default:
		return 500
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

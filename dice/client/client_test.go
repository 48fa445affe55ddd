package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betbot/dicebot/dice/types"
	"github.com/betbot/dicebot/pkg/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("test-key", WithBaseURL(srv.URL), WithTimeout(2*time.Second)), srv
}

func TestUserInfo(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/bot/user-info" {
			t.Errorf("path = %s, want /bot/user-info", r.URL.Path)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want test-key", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"hash": "abc123",
			"username": "roller",
			"createdAt": 1700000000,
			"level": 7,
			"balances": [
				{"currency": "BTC", "main": "0.00123456", "faucet": "0.00000010"},
				{"currency": "DOGE", "main": "100.00000000"}
			]
		}`))
	})

	info, err := c.UserInfo(context.Background())
	if err != nil {
		t.Fatalf("UserInfo() error: %v", err)
	}
	if info.Username != "roller" || info.Level != 7 {
		t.Fatalf("unexpected profile: %+v", info)
	}
	if len(info.Balances) != 2 {
		t.Fatalf("balances = %d, want 2", len(info.Balances))
	}

	btc := info.ForCurrency("BTC")
	if btc == nil {
		t.Fatalf("ForCurrency(BTC) = nil")
	}
	if got, ok := btc.Amount(false); !ok || got != "0.00123456" {
		t.Fatalf("main balance = %q (%v), want 0.00123456", got, ok)
	}
	if got, ok := btc.Amount(true); !ok || got != "0.00000010" {
		t.Fatalf("faucet balance = %q (%v), want 0.00000010", got, ok)
	}

	doge := info.ForCurrency("DOGE")
	if _, ok := doge.Amount(true); ok {
		t.Fatalf("DOGE faucet reported present, want absent")
	}
	if info.ForCurrency("ETH") != nil {
		t.Fatalf("ForCurrency(ETH) != nil for missing currency")
	}
}

func TestUserInfoAuthError(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		})
		_, err := c.UserInfo(context.Background())
		var authErr *types.AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("status %d: error = %v, want AuthError", code, err)
		}
		if authErr.Status != code {
			t.Fatalf("AuthError.Status = %d, want %d", authErr.Status, code)
		}
	}
}

func TestPlaceBetWireFormat(t *testing.T) {
	var body map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/play" {
			t.Errorf("path = %s, want /play", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Write([]byte(`{
			"bet": {"hash":"h","symbol":"BTC","choice":"high","result":true,"number":8765,
			        "chance":50,"payout":1.95,"betAmount":"0.00000100","winAmount":"0.00000195",
			        "profit":"0.00000095","nonce":42},
			"user": {"hash":"abc","username":"roller","balance":"0.00123551"}
		}`))
	})

	resp, err := c.PlaceBet(context.Background(), &types.BetRequest{
		Symbol: "BTC",
		Chance: 50.0,
		IsHigh: true,
		Amount: 0.00000100,
	})
	if err != nil {
		t.Fatalf("PlaceBet() error: %v", err)
	}

	if body["symbol"] != "BTC" || body["isHigh"] != true {
		t.Fatalf("request body = %v", body)
	}
	if _, present := body["faucet"]; present {
		t.Fatalf("faucet field present in body, want omitted when false")
	}
	if !resp.Bet.Result || resp.Bet.Nonce != 42 {
		t.Fatalf("unexpected bet: %+v", resp.Bet)
	}
	if resp.User.Balance != "0.00123551" {
		t.Fatalf("balance = %q, want 0.00123551", resp.User.Balance)
	}
}

func TestPlaceBetFaucetFlag(t *testing.T) {
	var body map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"bet":{"result":false,"number":1,"betAmount":"0.00000050","winAmount":"0","profit":"-0.00000050","nonce":1},"user":{"balance":"0.001"}}`))
	})

	faucet := true
	_, err := c.PlaceBet(context.Background(), &types.BetRequest{
		Symbol: "BTC", Chance: 30, IsHigh: false, Amount: 0.00000050, Faucet: &faucet,
	})
	if err != nil {
		t.Fatalf("PlaceBet() error: %v", err)
	}
	if body["faucet"] != true {
		t.Fatalf("faucet = %v, want true", body["faucet"])
	}
}

func TestPlaceBetRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter string
		want       time.Duration
	}{
		{"header present", "30", 30 * time.Second},
		{"header absent", "", 60 * time.Second},
		{"header malformed", "soon", 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(http.StatusTooManyRequests)
			})
			_, err := c.PlaceBet(context.Background(), &types.BetRequest{Symbol: "BTC", Chance: 50, Amount: 1e-6})
			var rl *types.RateLimitError
			if !errors.As(err, &rl) {
				t.Fatalf("error = %v, want RateLimitError", err)
			}
			if rl.RetryAfter != tt.want {
				t.Fatalf("RetryAfter = %v, want %v", rl.RetryAfter, tt.want)
			}
		})
	}
}

func TestPlaceBetAPIErrorInBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "bet amount below minimum"}`))
	})
	_, err := c.PlaceBet(context.Background(), &types.BetRequest{Symbol: "BTC", Chance: 50, Amount: 1e-9})
	var apiErr *types.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Message != "bet amount below minimum" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestPlaceBetDecodeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bet": [this is not json`))
	})
	_, err := c.PlaceBet(context.Background(), &types.BetRequest{Symbol: "BTC", Chance: 50, Amount: 1e-6})
	var decErr *types.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("error = %v, want DecodeError", err)
	}
}

func TestNetworkErrorOnClosedServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New("k", WithBaseURL(url), WithTimeout(time.Second))
	_, err := c.UserInfo(context.Background())
	var netErr *types.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
}

func TestRandomizeSeed(t *testing.T) {
	var body types.SeedRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/randomize" {
			t.Errorf("path = %s, want /randomize", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{}`))
	})

	if err := c.RandomizeSeed(context.Background(), "fresh-seed-1"); err != nil {
		t.Fatalf("RandomizeSeed() error: %v", err)
	}
	if body.ClientSeed != "fresh-seed-1" {
		t.Fatalf("clientSeed = %q, want fresh-seed-1", body.ClientSeed)
	}
}

func TestThrottleSurfacesRateLimit(t *testing.T) {
	hit := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hit++
		w.Write([]byte(`{"hash":"h","username":"u","balances":[]}`))
	})
	tb := ratelimit.NewTokenBucket(1, 0)
	WithThrottle(tb)(c)

	if _, err := c.UserInfo(context.Background()); err != nil {
		t.Fatalf("first call error: %v", err)
	}
	_, err := c.UserInfo(context.Background())
	var rl *types.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want RateLimitError from throttle", err)
	}
	if hit != 1 {
		t.Fatalf("server hits = %d, want 1 (throttled call must not reach the wire)", hit)
	}
}

package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBetRequestRoundTrip(t *testing.T) {
	req := BetRequest{
		Symbol: "BTC",
		Chance: 40.0,
		IsHigh: false,
		Amount: 0.00000050,
	}
	raw, err := json.Marshal(&req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"symbol"`, `"chance"`, `"isHigh"`, `"amount"`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("marshaled request %s missing %s", raw, key)
		}
	}
	if strings.Contains(string(raw), "faucet") {
		t.Fatalf("faucet serialized despite being unset: %s", raw)
	}

	// A provider response settling this bet reports the same amount and
	// currency; both must survive the trip unchanged.
	respJSON := `{
		"bet": {"hash":"h","symbol":"BTC","choice":"low","result":false,"number":7100,
		        "chance":40,"payout":2.4375,"betAmount":"0.00000050","winAmount":"0.00000000",
		        "profit":"-0.00000050","nonce":9},
		"user": {"hash":"u","username":"roller","balance":"0.00099950"}
	}`
	var resp BetResponse
	if err := json.Unmarshal([]byte(respJSON), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Bet.Symbol != req.Symbol {
		t.Fatalf("currency = %q, want %q", resp.Bet.Symbol, req.Symbol)
	}
	sent := decimal.NewFromFloat(req.Amount)
	settled := decimal.RequireFromString(resp.Bet.BetAmount)
	if !sent.Equal(settled) {
		t.Fatalf("amount = %s, want %s", settled, sent)
	}
}

func TestBalanceAmount(t *testing.T) {
	main := "0.5"
	faucet := "0.1"
	tests := []struct {
		name      string
		balance   Balance
		useFaucet bool
		want      string
		wantOK    bool
	}{
		{"main present", Balance{Currency: "BTC", Main: &main}, false, "0.5", true},
		{"faucet present", Balance{Currency: "BTC", Faucet: &faucet}, true, "0.1", true},
		{"main missing", Balance{Currency: "BTC", Faucet: &faucet}, false, "", false},
		{"faucet missing", Balance{Currency: "BTC", Main: &main}, true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.balance.Amount(tt.useFaucet)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("Amount(%v) = (%q, %v), want (%q, %v)", tt.useFaucet, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	if got := (&AuthError{Status: 401}).Error(); !strings.Contains(got, "401") {
		t.Fatalf("AuthError message %q missing status", got)
	}
	rl := &RateLimitError{RetryAfter: 30e9}
	if got := rl.Error(); !strings.Contains(got, "30s") {
		t.Fatalf("RateLimitError message %q missing duration", got)
	}
	api := &APIError{Message: "nope"}
	if got := api.Error(); got != "api error: nope" {
		t.Fatalf("APIError message = %q", got)
	}
	api.Status = 500
	if got := api.Error(); !strings.Contains(got, "500") {
		t.Fatalf("APIError with status = %q", got)
	}
}

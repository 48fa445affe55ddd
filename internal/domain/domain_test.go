package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func validIntent() BetIntent {
	return BetIntent{
		Currency:  "BTC",
		Chance:    40.0,
		Direction: DirectionLow,
		Amount:    decimal.RequireFromString("0.00000050"),
	}
}

func TestBetIntentValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BetIntent)
		wantErr bool
	}{
		{"valid", func(i *BetIntent) {}, false},
		{"chance zero", func(i *BetIntent) { i.Chance = 0 }, true},
		{"chance hundred", func(i *BetIntent) { i.Chance = 100 }, true},
		{"chance negative", func(i *BetIntent) { i.Chance = -5 }, true},
		{"chance just inside low", func(i *BetIntent) { i.Chance = 0.01 }, false},
		{"chance just inside high", func(i *BetIntent) { i.Chance = 99.99 }, false},
		{"amount zero", func(i *BetIntent) { i.Amount = decimal.Zero }, true},
		{"amount negative", func(i *BetIntent) { i.Amount = decimal.NewFromInt(-1) }, true},
		{"empty currency", func(i *BetIntent) { i.Currency = "" }, true},
		{"bad direction", func(i *BetIntent) { i.Direction = "sideways" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := validIntent()
			tt.mutate(&intent)
			err := intent.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDirectionForPrediction(t *testing.T) {
	tests := []struct {
		prediction float64
		want       Direction
	}{
		{75.0, DirectionHigh},
		{50.1, DirectionHigh},
		{50.0, DirectionLow}, // midpoint is not "above"
		{49.9, DirectionLow},
		{0.0, DirectionLow},
	}
	for _, tt := range tests {
		if got := DirectionForPrediction(tt.prediction); got != tt.want {
			t.Errorf("DirectionForPrediction(%v) = %v, want %v", tt.prediction, got, tt.want)
		}
	}
}

func TestStakeTiersForConfidence(t *testing.T) {
	tiers := DefaultStakeTiers()
	tests := []struct {
		confidence float64
		want       decimal.Decimal
	}{
		{0.9, tiers.Confident},
		{0.71, tiers.Confident},
		{0.7, tiers.Standard}, // threshold itself stays standard
		{0.5, tiers.Standard},
		{0.0, tiers.Standard},
	}
	for _, tt := range tests {
		if got := tiers.ForConfidence(tt.confidence); !got.Equal(tt.want) {
			t.Errorf("ForConfidence(%v) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}

func TestParseSite(t *testing.T) {
	for _, name := range []string{"duckdice", "DuckDice", "  DUCKDICE "} {
		site, err := ParseSite(name)
		if err != nil {
			t.Fatalf("ParseSite(%q): %v", name, err)
		}
		if site != SiteDuckDice {
			t.Fatalf("ParseSite(%q) = %v", name, site)
		}
	}
	if _, err := ParseSite("rolldice"); err == nil {
		t.Fatal("ParseSite accepted unknown site")
	}
}

func TestSessionConfigValidate(t *testing.T) {
	valid := SessionConfig{
		Site:       SiteDuckDice,
		APIKey:     "k",
		Currency:   "BTC",
		StrategyID: "threshold",
		Stakes:     DefaultStakeTiers(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*SessionConfig)
	}{
		{"bad site", func(c *SessionConfig) { c.Site = "rolldice" }},
		{"empty key", func(c *SessionConfig) { c.APIKey = "" }},
		{"empty currency", func(c *SessionConfig) { c.Currency = "" }},
		{"empty strategy", func(c *SessionConfig) { c.StrategyID = "" }},
		{"zero stake", func(c *SessionConfig) { c.Stakes.Standard = decimal.Zero }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate() accepted invalid config")
			}
		})
	}
}

package domain

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Site identifies a supported betting provider.
type Site string

const (
	SiteDuckDice Site = "duckdice"
)

func (s Site) Valid() bool {
	return s == SiteDuckDice
}

// ParseSite normalizes a user-supplied site name.
func ParseSite(name string) (Site, error) {
	site := Site(strings.ToLower(strings.TrimSpace(name)))
	if !site.Valid() {
		return "", errors.Errorf("unknown site %q (supported: %s)", name, SiteDuckDice)
	}
	return site, nil
}

// StakeTiers holds the two bet sizes a session may use. Which tier
// applies is a confidence decision, not a configuration one.
type StakeTiers struct {
	Standard  decimal.Decimal
	Confident decimal.Decimal
}

// DefaultStakeTiers returns the stock tiers: 50 and 100 satoshi
// respectively, expressed in whole coins.
func DefaultStakeTiers() StakeTiers {
	return StakeTiers{
		Standard:  decimal.RequireFromString("0.00000050"),
		Confident: decimal.RequireFromString("0.00000100"),
	}
}

// ForConfidence picks the tier for a confidence value. High conviction
// (above 0.7) earns the larger stake.
func (t StakeTiers) ForConfidence(confidence float64) decimal.Decimal {
	if confidence > 0.7 {
		return t.Confident
	}
	return t.Standard
}

func (t StakeTiers) Validate() error {
	if !t.Standard.IsPositive() {
		return errors.Errorf("stake tiers: standard %s is not positive", t.Standard)
	}
	if !t.Confident.IsPositive() {
		return errors.Errorf("stake tiers: confident %s is not positive", t.Confident)
	}
	return nil
}

// SessionConfig is the immutable identity of one betting session.
// Replacing any field means stopping the loop and configuring again.
type SessionConfig struct {
	Site       Site
	APIKey     string
	Currency   string
	StrategyID string
	UseFaucet  bool
	Stakes     StakeTiers
}

// Validate checks everything that can be checked without the network.
// Whether the strategy actually exists is the registry's call, and
// whether the key works is the provider's.
func (c SessionConfig) Validate() error {
	if !c.Site.Valid() {
		return errors.Errorf("session config: unknown site %q", c.Site)
	}
	if c.APIKey == "" {
		return errors.New("session config: api key is empty")
	}
	if c.Currency == "" {
		return errors.New("session config: currency is empty")
	}
	if c.StrategyID == "" {
		return errors.New("session config: strategy is empty")
	}
	return c.Stakes.Validate()
}

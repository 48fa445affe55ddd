// Package all imports every built-in policy so a single blank import
// in the entrypoint triggers their init() registration. Adding a
// policy means adding one line here, not touching main.
package all

import (
	_ "github.com/betbot/dicebot/internal/strategies/martingale"
	_ "github.com/betbot/dicebot/internal/strategies/threshold"
)

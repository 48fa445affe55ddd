// Package types defines the wire types and error taxonomy for the
// DuckDice bot API (https://duckdice.io/bot-api). Sites exposing an
// equivalent user-info/play/randomize contract can reuse these shapes.
package types

// UserInfo is the response of GET /bot/user-info.
type UserInfo struct {
	Hash      string    `json:"hash"`
	Username  string    `json:"username"`
	CreatedAt int64     `json:"createdAt"`
	Level     int       `json:"level"`
	Balances  []Balance `json:"balances"`
}

// Balance is one currency entry of the user-info balances list.
// The provider omits sub-balances the account does not have, so all
// three are optional strings.
type Balance struct {
	Currency  string  `json:"currency"`
	Main      *string `json:"main,omitempty"`
	Faucet    *string `json:"faucet,omitempty"`
	Affiliate *string `json:"affiliate,omitempty"`
}

// ForCurrency returns the balance entry matching symbol, or nil.
func (u *UserInfo) ForCurrency(symbol string) *Balance {
	for i := range u.Balances {
		if u.Balances[i].Currency == symbol {
			return &u.Balances[i]
		}
	}
	return nil
}

// Amount picks the faucet or main sub-balance. The second return is
// false when the provider did not report that sub-balance at all.
func (b *Balance) Amount(faucet bool) (string, bool) {
	var s *string
	if faucet {
		s = b.Faucet
	} else {
		s = b.Main
	}
	if s == nil {
		return "", false
	}
	return *s, true
}

// BetRequest is the body of POST /play. Amounts travel as JSON
// numbers; faucet is omitted entirely unless the faucet balance is
// being played.
type BetRequest struct {
	Symbol string  `json:"symbol"`
	Chance float64 `json:"chance"`
	IsHigh bool    `json:"isHigh"`
	Amount float64 `json:"amount"`
	Faucet *bool   `json:"faucet,omitempty"`
}

// BetResponse is the body of a successful POST /play.
type BetResponse struct {
	Bet  BetInfo `json:"bet"`
	User BetUser `json:"user"`
}

// BetInfo describes the settled bet. BetAmount/WinAmount/Profit are
// decimal strings exactly as reported; Result is authoritative and the
// engine never re-derives the outcome from Number.
type BetInfo struct {
	Hash      string  `json:"hash"`
	Symbol    string  `json:"symbol"`
	Choice    string  `json:"choice"`
	Result    bool    `json:"result"`
	Number    int     `json:"number"`
	Chance    float64 `json:"chance"`
	Payout    float64 `json:"payout"`
	BetAmount string  `json:"betAmount"`
	WinAmount string  `json:"winAmount"`
	Profit    string  `json:"profit"`
	Nonce     uint64  `json:"nonce"`
}

// BetUser is the account snapshot attached to a bet response. Balance
// is the post-bet balance for the played currency.
type BetUser struct {
	Hash     string `json:"hash"`
	Username string `json:"username"`
	Balance  string `json:"balance"`
}

// SeedRequest is the body of POST /randomize.
type SeedRequest struct {
	ClientSeed string `json:"clientSeed"`
}

// APIErrorBody is the error indicator some endpoints return with a
// 200 status instead of an HTTP error code.
type APIErrorBody struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

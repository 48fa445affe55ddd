// Package journal persists settled bets to a local sqlite file for the
// control plane and dashboard to read back. It is a diagnostic record,
// not session state: the engine never reads it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/betbot/dicebot/internal/domain"
)

// Journal is an append-only record of settled bets. A single sqlite
// connection keeps writes serialized; the engine settles one bet at a
// time, so there is no write contention to speak of.
type Journal struct {
	db *sql.DB
}

// Open creates the journal file (and its parent directory) if needed
// and brings the schema up to date.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS bets (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session TEXT NOT NULL,
  hash TEXT NOT NULL,
  currency TEXT NOT NULL,
  direction TEXT NOT NULL,
  chance REAL NOT NULL,
  won INTEGER NOT NULL,
  number INTEGER NOT NULL,
  payout REAL NOT NULL,
  amount TEXT NOT NULL,
  win_amount TEXT NOT NULL,
  profit TEXT NOT NULL,
  balance TEXT NOT NULL,
  nonce INTEGER NOT NULL,
  prediction REAL NOT NULL,
  confidence REAL NOT NULL,
  placed_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_bets_placed_at ON bets(placed_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_bets_currency ON bets(currency);`,
	}

	for _, q := range stmts {
		if _, err := j.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate exec failed: %w", err)
		}
	}
	return nil
}

// Record appends one settled bet. Exact amounts are stored as text so
// nothing is lost to float rounding.
func (j *Journal) Record(ctx context.Context, r domain.BetResult) error {
	_, err := j.db.ExecContext(ctx, `
INSERT INTO bets (session, hash, currency, direction, chance, won, number, payout, amount, win_amount, profit, balance, nonce, prediction, confidence, placed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
`, r.Session, r.Hash, r.Currency, string(r.Direction), r.Chance, boolToInt(r.Won), r.Number, r.Payout,
		r.Amount.String(), r.WinAmount.String(), r.Profit.String(), r.Balance,
		r.Nonce, r.Prediction, r.Confidence, r.PlacedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

// Recent returns up to limit settled bets, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]domain.BetResult, error) {
	if limit <= 0 || limit > 2000 {
		limit = 200
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT session, hash, currency, direction, chance, won, number, payout, amount, win_amount, profit, balance, nonce, prediction, confidence, placed_at
FROM bets
ORDER BY id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BetResult
	for rows.Next() {
		var (
			r         domain.BetResult
			direction string
			won       int
			amount    string
			winAmount string
			profit    string
			placedAt  string
		)
		if err := rows.Scan(&r.Session, &r.Hash, &r.Currency, &direction, &r.Chance, &won, &r.Number, &r.Payout,
			&amount, &winAmount, &profit, &r.Balance, &r.Nonce, &r.Prediction, &r.Confidence, &placedAt); err != nil {
			return nil, err
		}
		r.Direction = domain.Direction(direction)
		r.Won = won != 0
		r.Amount = parseAmount(amount)
		r.WinAmount = parseAmount(winAmount)
		r.Profit = parseAmount(profit)
		r.PlacedAt, _ = time.Parse(time.RFC3339Nano, placedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates the whole journal. Money sums are cast to REAL in
// sqlite, which is plenty for a dashboard figure.
type Summary struct {
	TotalBets    int64   `json:"totalBets"`
	Wins         int64   `json:"wins"`
	WinRate      float64 `json:"winRate"`
	TotalWagered float64 `json:"totalWagered"`
	NetProfit    float64 `json:"netProfit"`
}

func (j *Journal) Summary(ctx context.Context) (Summary, error) {
	row := j.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(won), 0),
       COALESCE(SUM(CAST(amount AS REAL)), 0),
       COALESCE(SUM(CAST(profit AS REAL)), 0)
FROM bets
`)
	var s Summary
	if err := row.Scan(&s.TotalBets, &s.Wins, &s.TotalWagered, &s.NetProfit); err != nil {
		return Summary{}, err
	}
	if s.TotalBets > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalBets)
	}
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseAmount reads an amount column written by Record. The bet behind
// it is already settled, so a corrupt cell degrades to zero rather than
// failing the whole read.
func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/betbot/dicebot/internal/domain"
	"github.com/betbot/dicebot/internal/engine"
	"github.com/betbot/dicebot/internal/journal"
)

const (
	pollInterval = time.Second
	recentRows   = 10
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")) // green

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")) // red

	faultStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("1"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))
)

// model is the dashboard state, refreshed once a second from the
// control plane's REST surface.
type model struct {
	addr  string
	httpc *http.Client

	status     *engine.Status
	summary    *journal.Summary
	recent     []domain.BetResult
	journalOn  bool
	lastPoll   time.Time
	lastAction string
	err        error
}

type tickMsg time.Time

type statusMsg engine.Status

type summaryMsg struct {
	ok  bool
	sum journal.Summary
}

type recentMsg struct {
	ok   bool
	bets []domain.BetResult
}

// actionMsg reports the outcome of a keyboard-triggered call.
type actionMsg string

type pollErrMsg struct{ err error }

func initialModel(addr string) model {
	return model{
		addr:  addr,
		httpc: &http.Client{Timeout: 5 * time.Second},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.fetchStatus,
		m.fetchSummary,
		m.fetchRecent,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "b":
			return m, m.manualBet
		case "r":
			return m, m.randomizeSeed
		case "x":
			return m, m.stopSession
		}

	case tickMsg:
		return m, tea.Batch(
			tickCmd(),
			m.fetchStatus,
			m.fetchSummary,
			m.fetchRecent,
		)

	case statusMsg:
		st := engine.Status(msg)
		m.status = &st
		m.lastPoll = time.Now()
		m.err = nil
		return m, nil

	case summaryMsg:
		m.journalOn = msg.ok
		if msg.ok {
			sum := msg.sum
			m.summary = &sum
		}
		return m, nil

	case recentMsg:
		if msg.ok {
			m.recent = msg.bets
		}
		return m, nil

	case actionMsg:
		m.lastAction = string(msg)
		// refresh right away so the action shows up
		return m, m.fetchStatus

	case pollErrMsg:
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	if m.status == nil {
		if m.err != nil {
			return fmt.Sprintf("cannot reach control plane at %s: %v\n\npress q to quit", m.addr, m.err)
		}
		return fmt.Sprintf("connecting to %s...\n\npress q to quit", m.addr)
	}

	st := m.status
	var s strings.Builder

	state := string(st.State)
	switch st.State {
	case engine.StateRunning:
		state = winStyle.Render(state)
	case engine.StateFaulted:
		state = faultStyle.Render(state)
	}
	header := headerStyle.Render(fmt.Sprintf("dicebot | %s | %s %s %s | polled %s ago",
		state, st.Site, st.Currency, st.Strategy,
		time.Since(m.lastPoll).Round(time.Second)))
	s.WriteString(header)
	s.WriteString("\n\n")

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		renderSession(*st), "  ", m.renderLifetime())
	s.WriteString(panes)
	s.WriteString("\n\n")

	if m.journalOn {
		s.WriteString(m.renderRecent())
		s.WriteString("\n\n")
	}

	if st.LastError != "" {
		s.WriteString(faultStyle.Render("fault: " + st.LastError))
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString(lossStyle.Render(fmt.Sprintf("poll error: %v", m.err)))
		s.WriteString("\n")
	}
	if m.lastAction != "" {
		s.WriteString(labelStyle.Render(m.lastAction))
		s.WriteString("\n")
	}

	s.WriteString("\nb bet (random prediction)  r randomize seed  x stop session  q quit")
	return s.String()
}

func renderSession(st engine.Status) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("session"))
	s.WriteString("\n\n")

	row := func(label, value string) {
		s.WriteString(fmt.Sprintf("%s  %s\n", labelStyle.Render(fmt.Sprintf("%-11s", label)), value))
	}

	balance := st.Stats.Balance
	if balance == "" {
		balance = "--"
	}
	row("balance", fmt.Sprintf("%s %s", balance, st.Currency))
	row("bets", fmt.Sprintf("%d (%d won)", st.Stats.TotalBets, st.Stats.Wins))
	row("win rate", fmt.Sprintf("%.1f%%", st.Stats.WinRate*100))
	row("prediction", fmt.Sprintf("%.2f @ %.2f", st.Stats.LastPrediction, st.Stats.LastConfidence))
	if last := st.Stats.LastResult; last != nil {
		outcome := lossStyle.Render("lost")
		if last.Won {
			outcome = winStyle.Render("won")
		}
		row("last bet", fmt.Sprintf("roll %d %s@%.0f %s %s",
			last.Number, last.Direction, last.Chance, outcome, last.Profit))
	}
	if !st.Stats.StartedAt.IsZero() {
		row("started", st.Stats.StartedAt.Local().Format("15:04:05"))
	}
	if st.UseFaucet {
		row("faucet", "on")
	}

	return borderStyle.Render(s.String())
}

func (m model) renderLifetime() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("lifetime"))
	s.WriteString("\n\n")

	row := func(label, value string) {
		s.WriteString(fmt.Sprintf("%s  %s\n", labelStyle.Render(fmt.Sprintf("%-11s", label)), value))
	}

	if !m.journalOn || m.summary == nil {
		s.WriteString(labelStyle.Render("journal not enabled"))
		s.WriteString("\n")
		return borderStyle.Render(s.String())
	}

	sum := m.summary
	row("bets", fmt.Sprintf("%d (%d won)", sum.TotalBets, sum.Wins))
	row("win rate", fmt.Sprintf("%.1f%%", sum.WinRate*100))
	row("wagered", fmt.Sprintf("%.8f", sum.TotalWagered))
	profit := fmt.Sprintf("%+.8f", sum.NetProfit)
	if sum.NetProfit >= 0 {
		profit = winStyle.Render(profit)
	} else {
		profit = lossStyle.Render(profit)
	}
	row("net profit", profit)

	return borderStyle.Render(s.String())
}

func (m model) renderRecent() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("recent bets"))
	s.WriteString("\n\n")

	if len(m.recent) == 0 {
		s.WriteString(labelStyle.Render("no bets yet"))
		s.WriteString("\n")
		return borderStyle.Render(s.String())
	}

	for _, r := range m.recent {
		profit := r.Profit.String()
		mark := lossStyle.Render("x")
		if r.Won {
			profit = "+" + profit
			mark = winStyle.Render("+")
		}
		s.WriteString(fmt.Sprintf("%s  %s  %4s@%-4.0f  %-12s  %s\n",
			mark,
			r.PlacedAt.Local().Format("15:04:05"),
			r.Direction, r.Chance,
			r.Amount, profit))
	}

	return borderStyle.Render(s.String())
}

// Commands

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) fetchStatus() tea.Msg {
	var st engine.Status
	if err := m.getJSON("/api/status", &st); err != nil {
		return pollErrMsg{err}
	}
	return statusMsg(st)
}

func (m model) fetchSummary() tea.Msg {
	resp, err := m.httpc.Get(m.addr + "/api/bets/summary")
	if err != nil {
		return pollErrMsg{err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return summaryMsg{ok: false}
	}
	var sum journal.Summary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		return pollErrMsg{err}
	}
	return summaryMsg{ok: true, sum: sum}
}

func (m model) fetchRecent() tea.Msg {
	resp, err := m.httpc.Get(fmt.Sprintf("%s/api/bets/recent?limit=%d", m.addr, recentRows))
	if err != nil {
		return pollErrMsg{err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return recentMsg{ok: false}
	}
	var body struct {
		Bets []domain.BetResult `json:"bets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return pollErrMsg{err}
	}
	return recentMsg{ok: true, bets: body.Bets}
}

// manualBet places one bet through the control plane. The prediction is
// drawn here, same as the engine's own random predictor would.
func (m model) manualBet() tea.Msg {
	req := map[string]float64{
		"prediction": rand.Float64() * 100,
		"confidence": rand.Float64(),
	}
	var resp struct {
		Won bool `json:"won"`
	}
	if err := m.postJSON("/api/session/bet", req, &resp); err != nil {
		return pollErrMsg{err}
	}
	if resp.Won {
		return actionMsg("manual bet: won")
	}
	return actionMsg("manual bet: lost")
}

func (m model) randomizeSeed() tea.Msg {
	if err := m.postJSON("/api/session/randomize-seed", nil, nil); err != nil {
		return pollErrMsg{err}
	}
	return actionMsg("client seed randomized")
}

func (m model) stopSession() tea.Msg {
	if err := m.postJSON("/api/session/stop", nil, nil); err != nil {
		return pollErrMsg{err}
	}
	return actionMsg("session stopped")
}

func (m model) getJSON(path string, out any) error {
	resp, err := m.httpc.Get(m.addr + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (m model) postJSON(path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := m.httpc.Post(m.addr+path, "application/json", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("POST %s: %s", path, e.Error)
		}
		return fmt.Errorf("POST %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func main() {
	addr := flag.String("addr", getenv("DICEBOT_CONTROL_URL", "http://127.0.0.1:8787"), "control plane base URL")
	flag.Parse()

	if len(os.Getenv("DEBUG")) > 0 {
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
	}

	p := tea.NewProgram(initialModel(strings.TrimRight(*addr, "/")), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("run tui failed: %v", err)
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

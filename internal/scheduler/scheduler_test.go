package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/app"
	"TradeDesk/internal/collector"
	"TradeDesk/internal/config"
	"TradeDesk/internal/ledger"
	"TradeDesk/internal/model"
)

var testNow = time.Date(2024, 6, 28, 15, 45, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// closes builds one bar per day ending on testNow.
func closes(vals ...float64) []model.PricePoint {
	pts := make([]model.PricePoint, len(vals))
	for i, v := range vals {
		pts[i] = model.PricePoint{Date: model.Day(testNow).AddDate(0, 0, i-len(vals)+1), Close: v, High: v, Low: v, Open: v}
	}
	return pts
}

// oversoldBounce is a 30 day slide followed by a bounce above MA9 (RSI about 23.5).
func oversoldBounce() []model.PricePoint {
	var vals []float64
	for p := 1300.0; p >= 1010; p -= 10 {
		vals = append(vals, p)
	}
	return closes(append(vals, 1050)...)
}

func flat(price float64) []model.PricePoint {
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = price
	}
	return closes(vals...)
}

func newTestScheduler(t *testing.T, feed *collector.MockFeed) (*Scheduler, *fakeSender) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Trading.InitialCash = 100000
	cfg.Trading.Commission = 20
	cfg.Trading.MinTrade = 1000
	cfg.Trading.MaxPositionPct = 0.2
	cfg.Trading.Currency = "INR"
	cfg.DataSource.LookbackDays = 100
	cfg.DataSource.Timeout = time.Second
	cfg.Watchlist = []string{"TCS", "INFY"}

	col := collector.NewCollector(feed, cfg.DataSource.LookbackDays, cfg.DataSource.Timeout)
	col.Now = func() time.Time { return testNow }
	desk := app.NewDesk(cfg, ledger.NewMemoryStore(), col)
	desk.Manager.Now = col.Now

	sender := &fakeSender{}
	s := NewScheduler(context.Background(), desk, sender)
	s.Now = col.Now
	return s, sender
}

func TestScanSendsOnlyActionableSignals(t *testing.T) {
	feed := &collector.MockFeed{Points: map[string][]model.PricePoint{
		"TCS":  oversoldBounce(),
		"INFY": flat(500),
	}}
	s, sender := newTestScheduler(t, feed)

	s.RunScanNow()
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "BUY TCS")
	assert.NotContains(t, msgs[0], "INFY")

	feed.Points["TCS"] = flat(1000)
	s.RunScanNow()
	assert.Len(t, sender.messages(), 1)
}

func TestScanReportsTotalFailure(t *testing.T) {
	s, sender := newTestScheduler(t, &collector.MockFeed{Err: errors.New("down")})
	s.RunScanNow()
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "scan failed for all 2 symbols")
}

func TestSnapshotTaskRecordsEquity(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFeed{Points: map[string][]model.PricePoint{"TCS": flat(1000)}})
	s.snapshotTask()

	hist, err := s.Desk.Store.EquityHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 100000.0, hist[0].TotalValue)
}

func TestHandleOrderCommands(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFeed{Points: map[string][]model.PricePoint{
		"TCS":  flat(1000),
		"INFY": flat(500),
	}})

	out := s.HandleCommand("/buy tcs 10")
	assert.Contains(t, out, "BUY 10 TCS")
	assert.Contains(t, out, "₹1,000.00")
	assert.Contains(t, out, "Cash: ₹89,980.00")

	out = s.HandleCommand("/sell TCS 4")
	assert.Contains(t, out, "SELL 4 TCS")
	assert.Contains(t, out, "Realized P/L: -₹20.00")

	out = s.HandleCommand("/exit TCS")
	assert.Contains(t, out, "SELL 6 TCS")

	assert.Contains(t, s.HandleCommand("/sell INFY 5"), "<b>insufficient_position</b>")
	assert.Contains(t, s.HandleCommand("/exit INFY"), "<b>insufficient_position</b>")
	assert.Contains(t, s.HandleCommand("/buy TCS ten"), "<b>validation</b>")
	assert.Contains(t, s.HandleCommand("/buy INFY 1"), "min_trade")
	assert.Contains(t, s.HandleCommand("/buy TCS"), "Usage: /buy SYMBOL QTY")
	assert.Contains(t, s.HandleCommand("/exit"), "Usage: /exit SYMBOL")

	trades, err := s.Desk.Store.Trades(context.Background())
	require.NoError(t, err)
	assert.Len(t, trades, 3)
}

func TestHandleQueryCommands(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFeed{Points: map[string][]model.PricePoint{
		"TCS":  oversoldBounce(),
		"INFY": flat(500),
	}})
	require.NotContains(t, s.HandleCommand("/buy INFY 10"), "❌")

	sig := s.HandleCommand("/signals signal")
	assert.Contains(t, sig, "TCS")
	assert.Less(t, strings.Index(sig, "TCS"), strings.Index(sig, "INFY"))

	assert.Contains(t, s.HandleCommand("/signals volume"), "❌")

	p := s.HandleCommand("/portfolio")
	assert.Contains(t, p, "INFY")
	assert.Contains(t, p, "₹94,980.00")

	assert.Contains(t, s.HandleCommand("/metrics"), "Win rate")
	assert.Contains(t, s.HandleCommand("/trades"), "#1")
	assert.Contains(t, s.HandleCommand("/help@tradedesk_bot"), "/signals")
	assert.Contains(t, s.HandleCommand("hello"), "/portfolio")
}

func TestRegisterAllRejectsBadCron(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFeed{})
	assert.NoError(t, s.RegisterAll("0 45 15 * * 1-5", "0 0 16 * * 1-5"))
	assert.Error(t, s.RegisterAll("not a cron", "0 0 16 * * 1-5"))
}

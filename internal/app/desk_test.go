package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/collector"
	"TradeDesk/internal/config"
	"TradeDesk/internal/ledger"
	"TradeDesk/internal/model"
)

var testNow = time.Date(2024, 6, 28, 10, 0, 0, 0, time.UTC)

func flat(price float64, days int) []model.PricePoint {
	pts := make([]model.PricePoint, days)
	for i := range pts {
		d := model.Day(testNow).AddDate(0, 0, i-days+1)
		pts[i] = model.PricePoint{Date: d, Open: price, High: price, Low: price, Close: price}
	}
	return pts
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Trading.InitialCash = 100000
	cfg.Trading.Commission = 20
	cfg.Trading.MinTrade = 1000
	cfg.Trading.MaxPositionPct = 0.2
	cfg.Trading.Currency = "INR"
	cfg.DataSource.Provider = "mock"
	cfg.DataSource.LookbackDays = 100
	cfg.DataSource.Timeout = time.Second
	cfg.Watchlist = []string{"TCS", "INFY"}
	return cfg
}

func newTestDesk(t *testing.T, feed collector.PriceFeed, store ledger.Store) *Desk {
	t.Helper()
	cfg := testConfig()
	col := collector.NewCollector(feed, cfg.DataSource.LookbackDays, cfg.DataSource.Timeout)
	col.Now = func() time.Time { return testNow }
	d := NewDesk(cfg, store, col)
	d.Manager.Now = col.Now
	return d
}

func fixedFeed() *collector.MockFeed {
	return &collector.MockFeed{Points: map[string][]model.PricePoint{
		"TCS":  flat(1000, 30),
		"INFY": flat(500, 30),
	}}
}

func TestOrderFillsAtLastClose(t *testing.T) {
	ctx := context.Background()
	d := newTestDesk(t, fixedFeed(), ledger.NewMemoryStore())

	tr, err := d.Order(ctx, model.Buy, "TCS", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, tr.Price)
	assert.Equal(t, 20.0, tr.Commission)

	tr, err = d.Order(ctx, model.Buy, "INFY", 10, 450)
	require.NoError(t, err)
	assert.Equal(t, 450.0, tr.Price)

	m, err := d.Metrics(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 100000-10000-20-4500-20, m.Cash, 1e-9)
	assert.InDelta(t, 10000+5000, m.PositionsValue, 1e-9)
	assert.InDelta(t, 500, m.UnrealizedPL, 1e-9)
	assert.Empty(t, m.Missing)
}

func TestOrderReportsFeedFailure(t *testing.T) {
	d := newTestDesk(t, &collector.MockFeed{Err: errors.New("down")}, ledger.NewMemoryStore())

	_, err := d.Order(context.Background(), model.Buy, "TCS", 10, 0)
	var fu *model.FeedUnavailableError
	require.ErrorAs(t, err, &fu)

	trades, err := d.Store.Trades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestExit(t *testing.T) {
	ctx := context.Background()
	d := newTestDesk(t, fixedFeed(), ledger.NewMemoryStore())

	_, err := d.Order(ctx, model.Buy, "TCS", 5, 0)
	require.NoError(t, err)
	tr, err := d.Exit(ctx, "TCS", 1100)
	require.NoError(t, err)
	assert.Equal(t, model.Sell, tr.Type)
	assert.Equal(t, int64(5), tr.Quantity)
	require.NotNil(t, tr.RealizedPL)
	assert.InDelta(t, 480, *tr.RealizedPL, 1e-9)
}

func TestMetricsListsUnpricedHoldings(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	d := newTestDesk(t, fixedFeed(), store)
	_, err := d.Order(ctx, model.Buy, "TCS", 10, 0)
	require.NoError(t, err)

	down := newTestDesk(t, &collector.MockFeed{Err: errors.New("down")}, store)
	m, err := down.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"TCS"}, m.Missing)
	assert.InDelta(t, 89980, m.TotalValue, 1e-9)
}

func TestMetricsDrawdownPricesClosedHoldings(t *testing.T) {
	ctx := context.Background()
	tcs := flat(1000, 30)
	dip := &tcs[len(tcs)-2]
	dip.Open, dip.High, dip.Low, dip.Close = 500, 500, 500, 500
	feed := &collector.MockFeed{Points: map[string][]model.PricePoint{
		"TCS":  tcs,
		"INFY": flat(500, 30),
	}}
	d := newTestDesk(t, feed, ledger.NewMemoryStore())
	day := testNow.AddDate(0, 0, -3)
	d.Manager.Now = func() time.Time {
		day = day.AddDate(0, 0, 1)
		return day
	}

	_, err := d.Order(ctx, model.Buy, "TCS", 20, 1000)
	require.NoError(t, err)
	_, err = d.Order(ctx, model.Buy, "INFY", 10, 500)
	require.NoError(t, err)
	_, err = d.Order(ctx, model.Sell, "TCS", 20, 1000)
	require.NoError(t, err)

	m, err := d.Metrics(ctx)
	require.NoError(t, err)
	require.Len(t, m.Positions, 1)
	assert.Equal(t, "INFY", m.Positions[0].Symbol)
	// 99980 after the first buy, 89960 with TCS at its 500 close.
	assert.InDelta(t, 10020.0/99980*100, m.MaxDrawdown, 1e-9)
}

func TestScanCachesSeries(t *testing.T) {
	ctx := context.Background()
	feed := fixedFeed()
	d := newTestDesk(t, feed, ledger.NewMemoryStore())

	quotes, errs := d.Scan(ctx, []string{"INFY", "TCS", "MISSING"})
	require.Len(t, quotes, 3)
	assert.Empty(t, errs)
	assert.Equal(t, "INFY", quotes[0].Symbol)

	feed.Err = errors.New("down")
	p, err := d.LastClose(ctx, "TCS")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, p)

	_, errs = d.Scan(ctx, nil)
	assert.Len(t, errs, 2)
}

func TestRecordEquity(t *testing.T) {
	ctx := context.Background()
	d := newTestDesk(t, fixedFeed(), ledger.NewMemoryStore())
	_, err := d.Order(ctx, model.Buy, "TCS", 10, 900)
	require.NoError(t, err)

	p, err := d.RecordEquity(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 90980, p.Cash, 1e-9)
	assert.InDelta(t, 10000, p.PositionsValue, 1e-9)
	assert.InDelta(t, 100980, p.TotalValue, 1e-9)

	hist, err := d.Store.EquityHistory(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, p.TotalValue, hist[0].TotalValue)
}

func TestOpenStore(t *testing.T) {
	mem, err := OpenStore(MemoryPath)
	require.NoError(t, err)
	assert.IsType(t, &ledger.MemoryStore{}, mem)

	s, err := OpenStore(filepath.Join(t.TempDir(), "nested", "dir", "desk.db"))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestNewFeed(t *testing.T) {
	cfg := testConfig()
	for _, provider := range []string{"mock", "yahoo", "stockdata"} {
		cfg.DataSource.Provider = provider
		cfg.DataSource.BaseURL = "http://localhost"
		f, err := NewFeed(cfg)
		require.NoError(t, err)
		assert.Equal(t, provider, f.Name())
	}

	cfg.DataSource.Provider = "bloomberg"
	_, err := NewFeed(cfg)
	assert.Error(t, err)
}

func TestTradeSignals(t *testing.T) {
	ctx := context.Background()
	feed := fixedFeed()
	d := newTestDesk(t, feed, ledger.NewMemoryStore())

	trades := []model.Trade{
		{ID: 1, Symbol: "TCS", Timestamp: testNow},
		{ID: 2, Symbol: "TCS", Timestamp: testNow.AddDate(-1, 0, 0)},
		{ID: 3, Symbol: "DOWN", Timestamp: testNow},
	}
	feed.Points["DOWN"] = nil
	sig := d.TradeSignals(ctx, trades)
	assert.Equal(t, map[int64]model.Signal{1: model.SignalHold}, sig)
}

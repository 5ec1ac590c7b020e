package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"TradeDesk/internal/collector"
	"TradeDesk/internal/config"
	"TradeDesk/internal/ledger"
	"TradeDesk/internal/metrics"
	"TradeDesk/internal/model"
	"TradeDesk/internal/portfolio"
	"TradeDesk/internal/strategy"
)

// MemoryPath selects the in-process ledger instead of a SQLite file.
const MemoryPath = ":memory:"

// Desk ties the feed, the indicator engine and the ledger together.
// It keeps the latest series per symbol so orders can fill at the last close.
type Desk struct {
	Config    *config.Config
	Store     ledger.Store
	Collector *collector.Collector
	Manager   *portfolio.Manager
	CacheTTL  time.Duration

	mu     sync.RWMutex
	series map[string]*model.Series
}

// New builds a Desk from configuration.
func New(cfg *config.Config) (*Desk, error) {
	feed, err := NewFeed(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] data source: %s", feed.Name())

	store, err := OpenStore(cfg.Database.SQLitePath)
	if err != nil {
		return nil, err
	}
	col := collector.NewCollector(feed, cfg.DataSource.LookbackDays, cfg.DataSource.Timeout)
	return NewDesk(cfg, store, col), nil
}

// NewDesk assembles a Desk from already built parts.
func NewDesk(cfg *config.Config, store ledger.Store, col *collector.Collector) *Desk {
	m := portfolio.NewManager(store, portfolio.Limits{
		InitialCash:    cfg.Trading.InitialCash,
		Commission:     cfg.Trading.Commission,
		MinTrade:       cfg.Trading.MinTrade,
		MaxPositionPct: cfg.Trading.MaxPositionPct,
	})
	return &Desk{
		Config:    cfg,
		Store:     store,
		Collector: col,
		Manager:   m,
		CacheTTL:  15 * time.Minute,
		series:    make(map[string]*model.Series),
	}
}

// NewFeed picks the price feed named by data_source.provider.
func NewFeed(cfg *config.Config) (collector.PriceFeed, error) {
	ds := cfg.DataSource
	switch ds.Provider {
	case "mock":
		return &collector.MockFeed{}, nil
	case "yahoo":
		return collector.NewYahooFeed(ds.Suffix, cfg.Proxy, ds.Timeout), nil
	case "stockdata":
		return collector.NewStockDataFeed(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.Timeout), nil
	}
	return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
}

// OpenStore opens the SQLite ledger at path, creating its directory.
func OpenStore(path string) (ledger.Store, error) {
	if path == MemoryPath {
		log.Println("[WARN] using in-memory ledger, trades will not survive a restart")
		return ledger.NewMemoryStore(), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &model.PersistenceError{Op: "create data dir", Err: err}
		}
	}
	return ledger.NewSQLiteStore(path)
}

// Close releases the ledger.
func (d *Desk) Close() error {
	return d.Store.Close()
}

func (d *Desk) cached(symbol string) (*model.Series, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.series[symbol]
	if !ok || d.Collector.Now().Sub(s.FetchedAt) > d.CacheTTL {
		return nil, false
	}
	return s, true
}

func (d *Desk) remember(s *model.Series) {
	d.mu.Lock()
	d.series[s.Symbol] = s
	d.mu.Unlock()
}

// Scan collects symbols (the watchlist when empty) and returns their quotes
// in input order, plus the symbols that failed.
func (d *Desk) Scan(ctx context.Context, symbols []string) ([]model.Quote, map[string]error) {
	if len(symbols) == 0 {
		symbols = d.Config.Watchlist
	}
	series, errs := d.Collector.CollectAll(ctx, symbols)
	quotes := make([]model.Quote, 0, len(series))
	for _, sym := range symbols {
		s, ok := series[sym]
		if !ok {
			continue
		}
		d.remember(s)
		quotes = append(quotes, s.Quote)
	}
	return quotes, errs
}

// Series returns the cached series of symbol, collecting it when stale.
func (d *Desk) Series(ctx context.Context, symbol string) (*model.Series, error) {
	if s, ok := d.cached(symbol); ok {
		return s, nil
	}
	s, err := d.Collector.Collect(ctx, symbol)
	if err != nil {
		return nil, err
	}
	d.remember(s)
	return s, nil
}

// LastClose is the fill price used for market orders.
func (d *Desk) LastClose(ctx context.Context, symbol string) (float64, error) {
	s, err := d.Series(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return s.Quote.Close, nil
}

// Order executes a BUY or SELL. A price of zero fills at the last close.
func (d *Desk) Order(ctx context.Context, typ model.TradeType, symbol string, qty int64, price float64) (model.Trade, error) {
	if price == 0 {
		p, err := d.LastClose(ctx, symbol)
		if err != nil {
			return model.Trade{}, err
		}
		price = p
	}
	return d.Manager.ExecuteOrder(ctx, typ, symbol, qty, price)
}

// Exit sells the whole position in symbol. A price of zero fills at the last close.
func (d *Desk) Exit(ctx context.Context, symbol string, price float64) (model.Trade, error) {
	if price == 0 {
		p, err := d.LastClose(ctx, symbol)
		if err != nil {
			return model.Trade{}, err
		}
		price = p
	}
	return d.Manager.ClosePosition(ctx, symbol, price)
}

// TradeSignals returns the indicator signal on the day of each trade that
// falls inside the collected history. Symbols that cannot be fetched are skipped.
func (d *Desk) TradeSignals(ctx context.Context, trades []model.Trade) map[int64]model.Signal {
	out := make(map[int64]model.Signal)
	failed := make(map[string]bool)
	for _, t := range trades {
		if failed[t.Symbol] {
			continue
		}
		s, err := d.Series(ctx, t.Symbol)
		if err != nil {
			log.Printf("[WARN] history for %s: %v", t.Symbol, err)
			failed[t.Symbol] = true
			continue
		}
		if sig, ok := strategy.SignalOn(s.Points, t.Timestamp); ok {
			out[t.ID] = sig
		}
	}
	return out
}

// Metrics values the portfolio at the latest closes. History is collected for
// every symbol ever traded so the equity curve prices closed holdings too.
// Symbols whose price cannot be fetched are reported as missing rather than failing.
func (d *Desk) Metrics(ctx context.Context) (model.PortfolioMetrics, error) {
	snap, err := d.Manager.Snapshot(ctx)
	if err != nil {
		return model.PortfolioMetrics{}, err
	}
	held := make(map[string]bool, len(snap.Positions))
	for _, p := range snap.Positions {
		held[p.Symbol] = true
	}
	prices := make(map[string]float64, len(snap.Positions))
	history := make(map[string][]model.PricePoint)
	seen := make(map[string]bool)
	for _, t := range snap.Transactions {
		if seen[t.Symbol] {
			continue
		}
		seen[t.Symbol] = true
		s, err := d.Series(ctx, t.Symbol)
		if err != nil {
			log.Printf("[WARN] price for %s: %v", t.Symbol, err)
			continue
		}
		if held[t.Symbol] {
			prices[t.Symbol] = s.Quote.Close
		}
		pts := make([]model.PricePoint, len(s.Points))
		for i, ip := range s.Points {
			pts[i] = ip.PricePoint
		}
		history[t.Symbol] = pts
	}
	return metrics.Compute(metrics.Input{
		Positions:   snap.Positions,
		Trades:      snap.Transactions,
		Prices:      prices,
		History:     history,
		InitialCash: d.Config.Trading.InitialCash,
		Now:         d.Collector.Now(),
	}), nil
}

// RecordEquity stores the current total value in the equity history.
func (d *Desk) RecordEquity(ctx context.Context) (model.EquityPoint, error) {
	m, err := d.Metrics(ctx)
	if err != nil {
		return model.EquityPoint{}, err
	}
	if len(m.Missing) > 0 {
		log.Printf("[WARN] equity snapshot excludes %v (no price)", m.Missing)
	}
	p := model.EquityPoint{
		Time:           d.Collector.Now().UTC(),
		Cash:           m.Cash,
		PositionsValue: m.PositionsValue,
		TotalValue:     m.TotalValue,
	}
	if err := d.Store.RecordEquity(ctx, p); err != nil {
		return model.EquityPoint{}, err
	}
	return p, nil
}

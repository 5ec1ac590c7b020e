package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"TradeDesk/internal/calculator"
	"TradeDesk/internal/model"
)

// Collector orchestrates history fetching and indicator computation.
type Collector struct {
	Feed     PriceFeed
	Lookback int           // calendar days of history to request
	Timeout  time.Duration // per-symbol feed timeout
	Workers  int
	Now      func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(feed PriceFeed, lookbackDays int, timeout time.Duration) *Collector {
	return &Collector{
		Feed:     feed,
		Lookback: lookbackDays,
		Timeout:  timeout,
		Workers:  4,
		Now:      time.Now,
	}
}

type fetchResult struct {
	points []model.PricePoint
	err    error
}

// fetch calls the feed and gives up at the timeout even if the feed itself
// does not honour the context.
func (c *Collector) fetch(ctx context.Context, symbol string, start, end time.Time) ([]model.PricePoint, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	ch := make(chan fetchResult, 1)
	go func() {
		pts, err := c.Feed.GetHistory(ctx, symbol, start, end)
		ch <- fetchResult{pts, err}
	}()

	select {
	case <-ctx.Done():
		return nil, unavailable(c.Feed.Name(), symbol, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			var fu *model.FeedUnavailableError
			if errors.As(r.err, &fu) {
				return nil, r.err
			}
			return nil, unavailable(c.Feed.Name(), symbol, r.err)
		}
		return r.points, nil
	}
}

// Collect fetches history for one symbol and computes its indicators.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.Series, error) {
	end := c.Now()
	start := end.AddDate(0, 0, -c.Lookback)

	raw, err := c.fetch(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	points := calculator.Normalize(raw)
	if len(points) == 0 {
		return nil, unavailable(c.Feed.Name(), symbol, fmt.Errorf("no data returned"))
	}
	if len(points) <= calculator.RSIPeriod {
		log.Printf("[WARN] %s: only %d points, RSI undefined", symbol, len(points))
	}

	ind := calculator.Compute(points)
	return &model.Series{
		Symbol:    symbol,
		Points:    ind,
		Quote:     calculator.Summarize(symbol, ind, len(ind)),
		FetchedAt: end,
	}, nil
}

// CollectAll collects every symbol with a bounded worker pool.
// Failed symbols are reported in the error map and absent from the series map.
func (c *Collector) CollectAll(ctx context.Context, symbols []string) (map[string]*model.Series, map[string]error) {
	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		series = make(map[string]*model.Series, len(symbols))
		errs   = make(map[string]error)
		jobs   = make(chan string)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				s, err := c.Collect(ctx, sym)
				mu.Lock()
				if err != nil {
					errs[sym] = err
				} else {
					series[sym] = s
				}
				mu.Unlock()
			}
		}()
	}
	for _, sym := range symbols {
		jobs <- sym
	}
	close(jobs)
	wg.Wait()

	for sym, err := range errs {
		log.Printf("[WARN] collect %s: %v", sym, err)
	}
	return series, errs
}

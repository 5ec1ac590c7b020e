package strategy

import (
	"fmt"
	"sort"
	"time"

	"TradeDesk/internal/model"
)

// SortKey selects the screener ordering.
type SortKey string

const (
	SortByName   SortKey = "name"
	SortByRSI    SortKey = "rsi"
	SortBySignal SortKey = "signal"
)

// ParseSortKey accepts "", "name", "rsi" and "signal".
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "", SortByName:
		return SortByName, nil
	case SortByRSI, SortBySignal:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// SortQuotes orders quotes in place. RSI sorts ascending with undefined
// RSI last; signal sorts BUY, HOLD, SELL. Ties fall back to the symbol.
func SortQuotes(quotes []model.Quote, key SortKey) {
	sort.SliceStable(quotes, func(i, j int) bool {
		a, b := quotes[i], quotes[j]
		switch key {
		case SortByRSI:
			switch {
			case a.RSI == nil && b.RSI == nil:
			case a.RSI == nil:
				return false
			case b.RSI == nil:
				return true
			case *a.RSI != *b.RSI:
				return *a.RSI < *b.RSI
			}
		case SortBySignal:
			if a.Signal.Rank() != b.Signal.Rank() {
				return a.Signal.Rank() > b.Signal.Rank()
			}
		}
		return a.Symbol < b.Symbol
	})
}

// SignalOn returns the signal of the point dated on the given calendar day.
func SignalOn(points []model.IndicatorPoint, day time.Time) (model.Signal, bool) {
	d := model.Day(day)
	i := sort.Search(len(points), func(i int) bool { return !points[i].Date.Before(d) })
	if i < len(points) && points[i].Date.Equal(d) {
		return points[i].Signal, true
	}
	return "", false
}

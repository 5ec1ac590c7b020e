package metrics

import (
	"sort"
	"time"

	"TradeDesk/internal/model"
	"TradeDesk/internal/portfolio"
)

// EquityCurve replays the log and values the portfolio after each trade.
// Each holding is priced at its latest close on or before the trade date,
// or at its last traded price when history has nothing that early.
func EquityCurve(trades []model.Trade, initialCash float64, history map[string][]model.PricePoint) []float64 {
	book := portfolio.Replay(nil, initialCash)
	lastTraded := make(map[string]float64)
	curve := make([]float64, 0, len(trades))

	for _, t := range trades {
		book.Apply(t)
		lastTraded[t.Symbol] = t.Price

		value := book.Cash()
		for _, p := range book.Positions() {
			price, ok := closeOnOrBefore(history[p.Symbol], t.Timestamp)
			if !ok {
				price = lastTraded[p.Symbol]
			}
			value += float64(p.Shares) * price
		}
		curve = append(curve, value)
	}
	return curve
}

func closeOnOrBefore(points []model.PricePoint, at time.Time) (float64, bool) {
	day := model.Day(at)
	i := sort.Search(len(points), func(i int) bool { return model.Day(points[i].Date).After(day) })
	if i == 0 {
		return 0, false
	}
	return points[i-1].Close, true
}

// MaxDrawdown returns the largest fall from a running peak, in percent.
func MaxDrawdown(values []float64) float64 {
	var peak, worst float64
	for i, v := range values {
		if i == 0 || v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}

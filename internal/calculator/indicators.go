package calculator

import (
	"sort"

	"TradeDesk/internal/model"
	"TradeDesk/internal/strategy"
)

// Normalize sorts points by date and keeps the last point of each calendar day.
// The input slice is not modified.
func Normalize(points []model.PricePoint) []model.PricePoint {
	out := make([]model.PricePoint, len(points))
	copy(out, points)
	for i := range out {
		out[i].Date = model.Day(out[i].Date)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, p := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(p.Date) {
			dedup[n-1] = p
			continue
		}
		dedup = append(dedup, p)
	}
	return dedup
}

// Compute derives MA9, RSI14 and the signal for every point of an
// ascending, date-unique series. Output has the same length as the input.
func Compute(points []model.PricePoint) []model.IndicatorPoint {
	closes := extractCloses(points)
	ma := MovingAverage(closes, MAPeriod)
	rsi := RSISeries(closes, RSIPeriod)

	out := make([]model.IndicatorPoint, len(points))
	for i, p := range points {
		r := rsi[i]
		out[i] = model.IndicatorPoint{
			PricePoint: p,
			MA9:        ma[i],
			Change:     r.Change,
			Gain:       r.Gain,
			Loss:       r.Loss,
			AvgGain:    r.AvgGain,
			AvgLoss:    r.AvgLoss,
			RSI:        r.RSI,
			Signal:     strategy.Evaluate(r.RSI, ma[i], p.Close),
		}
	}
	return out
}

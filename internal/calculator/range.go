package calculator

import (
	"errors"
	"math"

	"TradeDesk/internal/model"
)

// CalculateRange scans the most recent `lookback` points and returns the high and low.
// A non-positive lookback scans the whole series.
func CalculateRange(points []model.IndicatorPoint, lookback int) (high, low float64, err error) {
	if len(points) == 0 {
		return 0, 0, errors.New("no points provided")
	}
	n := len(points)
	start := 0
	if lookback > 0 && n > lookback {
		start = n - lookback
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if points[i].High > high {
			high = points[i].High
		}
		if points[i].Low < low {
			low = points[i].Low
		}
	}
	return high, low, nil
}

// Summarize builds the screener quote from the latest point of a series.
func Summarize(symbol string, points []model.IndicatorPoint, lookback int) model.Quote {
	q := model.Quote{Symbol: symbol, Signal: model.SignalHold}
	if len(points) == 0 {
		return q
	}
	latest := points[len(points)-1]
	q.Date = latest.Date
	q.Close = latest.Close
	q.MA9 = latest.MA9
	q.RSI = latest.RSI
	q.Signal = latest.Signal
	if len(points) > 1 {
		q.PrevClose = points[len(points)-2].Close
		q.Change = q.Close - q.PrevClose
		if q.PrevClose != 0 {
			q.ChangePct = q.Change / q.PrevClose * 100
		}
	}
	if h, l, err := CalculateRange(points, lookback); err == nil {
		q.High, q.Low = h, l
	}
	return q
}

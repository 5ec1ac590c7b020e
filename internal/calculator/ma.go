package calculator

import (
	"errors"

	"TradeDesk/internal/model"
)

// MAPeriod is the moving average window used by the screener.
const MAPeriod = 9

// CalculateSMA computes the simple moving average of the last `period` prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverage returns the trailing SMA at every index, nil where fewer
// than `period` prices are available.
func MovingAverage(prices []float64, period int) []*float64 {
	out := make([]*float64, len(prices))
	for i := range prices {
		if ma, err := CalculateSMA(prices[:i+1], period); err == nil {
			out[i] = model.Float(ma)
		}
	}
	return out
}

func extractCloses(points []model.PricePoint) []float64 {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return closes
}

package calculator

import "TradeDesk/internal/model"

// RSIPeriod is the RSI window used by the screener.
const RSIPeriod = 14

// RSIPoint carries the intermediate RSI values at one index.
type RSIPoint struct {
	Change  float64
	Gain    float64
	Loss    float64
	AvgGain *float64
	AvgLoss *float64
	RSI     *float64
}

// RSISeries computes the Wilder-smoothed RSI at every index.
// Index 0 has no previous close, so its change is 0. Averages start at
// index `period` with the simple mean of the first `period` changes.
func RSISeries(closes []float64, period int) []RSIPoint {
	out := make([]RSIPoint, len(closes))
	if period <= 0 {
		return out
	}
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		out[i].Change = change
		if change > 0 {
			out[i].Gain = change
		} else {
			out[i].Loss = -change
		}
	}

	var avgGain, avgLoss float64
	for i := period; i < len(closes); i++ {
		if i == period {
			for j := 1; j <= period; j++ {
				avgGain += out[j].Gain
				avgLoss += out[j].Loss
			}
			avgGain /= float64(period)
			avgLoss /= float64(period)
		} else {
			avgGain = (avgGain*float64(period-1) + out[i].Gain) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + out[i].Loss) / float64(period)
		}
		out[i].AvgGain = model.Float(avgGain)
		out[i].AvgLoss = model.Float(avgLoss)
		out[i].RSI = model.Float(rsiFrom(avgGain, avgLoss))
	}
	return out
}

// rsiFrom maps average gain/loss to the 0..100 oscillator.
// A zero average loss is maximal strength.
func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

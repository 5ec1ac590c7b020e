package strategy

import "TradeDesk/internal/model"

// RSI thresholds for the signal rule.
const (
	Oversold   = 30.0
	Overbought = 70.0
)

// Evaluate maps one point's RSI, MA9 and close to a signal.
//   - BUY: RSI < 30 and close above MA9
//   - SELL: RSI > 70 and close below MA9
//   - HOLD otherwise, and whenever RSI or MA9 is undefined
func Evaluate(rsi, ma9 *float64, close float64) model.Signal {
	if rsi == nil || ma9 == nil {
		return model.SignalHold
	}
	switch {
	case *rsi < Oversold && close > *ma9:
		return model.SignalBuy
	case *rsi > Overbought && close < *ma9:
		return model.SignalSell
	default:
		return model.SignalHold
	}
}

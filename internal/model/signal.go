package model

// Signal is the per-point trading recommendation.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Rank orders signals for the screener: BUY > HOLD > SELL.
func (s Signal) Rank() int {
	switch s {
	case SignalBuy:
		return 2
	case SignalHold:
		return 1
	default:
		return 0
	}
}

package portfolio

import (
	"fmt"
	"math"

	"TradeDesk/internal/model"
)

// Limits are the trading rules enforced on every order.
type Limits struct {
	InitialCash    float64
	Commission     float64 // flat, per trade
	MinTrade       float64 // minimum BUY notional
	MaxPositionPct float64 // BUY notional cap as a fraction of InitialCash
}

// MaxPosition is the largest BUY notional allowed.
func (l Limits) MaxPosition() float64 {
	return l.MaxPositionPct * l.InitialCash
}

// validate checks an order against the limits, the replayed cash and the
// held position. It never mutates anything.
func (l Limits) validate(typ model.TradeType, symbol string, qty int64, price, cash float64, pos model.Position, held bool) error {
	if symbol == "" {
		return &model.ValidationError{Rule: "symbol", Message: "symbol is required"}
	}
	if qty <= 0 {
		return &model.ValidationError{Rule: "quantity", Message: fmt.Sprintf("quantity must be positive, got %d", qty)}
	}
	if !finite(price) || price <= 0 {
		return &model.ValidationError{Rule: "price", Message: fmt.Sprintf("price must be positive, got %.2f", price)}
	}
	if !finite(l.Commission) || l.Commission < 0 {
		return &model.ValidationError{Rule: "commission", Message: fmt.Sprintf("commission must be non-negative, got %.2f", l.Commission)}
	}

	notional := float64(qty) * price
	switch typ {
	case model.Buy:
		if notional < l.MinTrade {
			return &model.ValidationError{Rule: "min_trade",
				Message: fmt.Sprintf("trade value %.2f is below the minimum of %.2f", notional, l.MinTrade)}
		}
		if limit := l.MaxPosition(); notional > limit {
			return &model.ValidationError{Rule: "max_position",
				Message: fmt.Sprintf("trade value %.2f exceeds the maximum of %.2f (%.0f%% of capital)", notional, limit, l.MaxPositionPct*100)}
		}
		if notional+l.Commission > cash {
			return &model.ValidationError{Rule: "insufficient_funds",
				Message: fmt.Sprintf("need %.2f including commission, have %.2f", notional+l.Commission, cash)}
		}
	case model.Sell:
		var have int64
		if held {
			have = pos.Shares
		}
		if have < qty {
			return &model.InsufficientPositionError{Symbol: symbol, Held: have, Requested: qty}
		}
	default:
		return &model.ValidationError{Rule: "type", Message: fmt.Sprintf("unknown trade type %q", typ)}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

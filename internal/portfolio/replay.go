package portfolio

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"TradeDesk/internal/model"
)

// Book is the state derived by replaying a trade log from the initial cash.
type Book struct {
	cash      decimal.Decimal
	positions map[string]model.Position
	// RealizedPL holds the P/L recomputed for every SELL, keyed by trade id.
	RealizedPL map[int64]float64
	// Warnings collects the inconsistencies met while replaying.
	Warnings []error
}

// Replay folds trades (in log order) over initialCash. It has no side effects,
// so replaying the same log twice yields the same Book.
func Replay(trades []model.Trade, initialCash float64) *Book {
	b := &Book{
		cash:       decimal.NewFromFloat(initialCash),
		positions:  make(map[string]model.Position),
		RealizedPL: make(map[int64]float64),
	}
	for _, t := range trades {
		b.Apply(t)
	}
	return b
}

// Apply folds one trade into the book.
func (b *Book) Apply(t model.Trade) {
	b.cash = b.cash.Add(cashDelta(t))

	pos, ok := b.positions[t.Symbol]
	next, pl, warn := applyTrade(pos, ok, t)
	if warn != nil {
		b.Warnings = append(b.Warnings, warn)
	}
	if pl != nil {
		b.RealizedPL[t.ID] = *pl
	}
	if next.Shares > 0 {
		b.positions[t.Symbol] = next
	} else {
		delete(b.positions, t.Symbol)
	}
}

// Cash returns the replayed cash balance.
func (b *Book) Cash() float64 {
	f, _ := b.cash.Float64()
	return f
}

// Positions returns the open positions ordered by symbol.
func (b *Book) Positions() []model.Position {
	out := make([]model.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Position returns the replayed position of symbol.
func (b *Book) Position(symbol string) (model.Position, bool) {
	p, ok := b.positions[symbol]
	return p, ok
}

// cashDelta is −(notional+commission) for a BUY and notional−commission for a SELL.
func cashDelta(t model.Trade) decimal.Decimal {
	notional := decimal.NewFromInt(t.Quantity).Mul(decimal.NewFromFloat(t.Price))
	commission := decimal.NewFromFloat(t.Commission)
	if t.Type == model.Buy {
		return notional.Add(commission).Neg()
	}
	return notional.Sub(commission)
}

// applyTrade returns the position after t. ok reports whether pos was held.
// A result with zero shares means the position is closed. For a SELL the
// realized P/L is returned as well. warn is non-nil when the ledger
// contradicts itself; the trade is still applied with a fallback.
func applyTrade(pos model.Position, ok bool, t model.Trade) (next model.Position, pl *float64, warn error) {
	qty := decimal.NewFromInt(t.Quantity)
	price := decimal.NewFromFloat(t.Price)

	if t.Type == model.Buy {
		if !ok || pos.Shares <= 0 {
			return model.Position{Symbol: t.Symbol, Shares: t.Quantity, AvgPrice: t.Price, OpenedAt: t.Timestamp}, nil, nil
		}
		held := decimal.NewFromInt(pos.Shares)
		total := held.Add(qty)
		avg, _ := held.Mul(decimal.NewFromFloat(pos.AvgPrice)).Add(qty.Mul(price)).Div(total).Float64()
		pos.Shares += t.Quantity
		pos.AvgPrice = avg
		return pos, nil, nil
	}

	basis := price
	if !ok {
		warn = &model.InconsistentStateError{
			Symbol:  t.Symbol,
			Message: fmt.Sprintf("sell of %d shares (trade %d) with no position, using sale price as cost basis", t.Quantity, t.ID),
		}
	} else {
		basis = decimal.NewFromFloat(pos.AvgPrice)
		if pos.Shares < t.Quantity {
			warn = &model.InconsistentStateError{
				Symbol:  t.Symbol,
				Message: fmt.Sprintf("trade %d sells %d shares but only %d are held", t.ID, t.Quantity, pos.Shares),
			}
		}
	}

	v, _ := price.Sub(basis).Mul(qty).Sub(decimal.NewFromFloat(t.Commission)).Float64()
	pl = model.Float(v)

	if !ok {
		return model.Position{Symbol: t.Symbol}, pl, warn
	}
	pos.Shares -= t.Quantity
	if pos.Shares < 0 {
		pos.Shares = 0
	}
	return pos, pl, warn
}

// NetQuantities returns BUY minus SELL quantity per symbol, omitting symbols that net to zero.
func NetQuantities(trades []model.Trade) map[string]int64 {
	net := make(map[string]int64)
	for _, t := range trades {
		if t.Type == model.Buy {
			net[t.Symbol] += t.Quantity
		} else {
			net[t.Symbol] -= t.Quantity
		}
	}
	for sym, q := range net {
		if q == 0 {
			delete(net, sym)
		}
	}
	return net
}

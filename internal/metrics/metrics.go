package metrics

import (
	"math"
	"sort"
	"time"

	"TradeDesk/internal/model"
	"TradeDesk/internal/portfolio"
)

// Input is everything the calculator reads. Nothing in it is modified.
type Input struct {
	Positions   []model.Position
	Trades      []model.Trade
	Prices      map[string]float64            // current price per symbol
	History     map[string][]model.PricePoint // ascending closes, used for the equity curve
	InitialCash float64
	Now         time.Time
}

// Compute derives the portfolio statistics. Positions without a current
// price are left out of every aggregate and listed in Missing.
func Compute(in Input) model.PortfolioMetrics {
	book := portfolio.Replay(in.Trades, in.InitialCash)
	out := model.PortfolioMetrics{
		Cash:      book.Cash(),
		Positions: []model.PositionMetrics{},
		Missing:   []string{},
	}

	var returns []float64
	for _, p := range in.Positions {
		price, ok := in.Prices[p.Symbol]
		if !ok || price <= 0 {
			out.Missing = append(out.Missing, p.Symbol)
			continue
		}
		pm := Position(p, price, in.Now)
		out.Positions = append(out.Positions, pm)
		out.PositionsValue += pm.Value
		out.UnrealizedPL += pm.UnrealizedPL

		if pm.ReturnPct == nil {
			continue
		}
		r := *pm.ReturnPct
		returns = append(returns, r)
		if out.Best == nil || r > out.Best.ReturnPct {
			out.Best = &model.Performer{Symbol: p.Symbol, ReturnPct: r}
		}
		if out.Worst == nil || r < out.Worst.ReturnPct {
			out.Worst = &model.Performer{Symbol: p.Symbol, ReturnPct: r}
		}
	}
	sort.Strings(out.Missing)

	out.TotalValue = out.Cash + out.PositionsValue
	out.RealizedPL = RealizedPL(in.Trades)
	out.WinRate = WinRate(returns)
	out.SharpeRatio = Sharpe(returns)
	out.MaxDrawdown = MaxDrawdown(EquityCurve(in.Trades, in.InitialCash, in.History))
	return out
}

// Position values one holding at price.
func Position(p model.Position, price float64, now time.Time) model.PositionMetrics {
	value := float64(p.Shares) * price
	cost := p.CostBasis()
	pm := model.PositionMetrics{
		Symbol:       p.Symbol,
		Shares:       p.Shares,
		AvgPrice:     p.AvgPrice,
		CurrentPrice: price,
		Value:        value,
		CostBasis:    cost,
		UnrealizedPL: value - cost,
	}
	if cost != 0 {
		pm.ReturnPct = model.Float((value - cost) / cost * 100)
	}
	if !p.OpenedAt.IsZero() && now.After(p.OpenedAt) {
		pm.DaysHeld = int(now.Sub(p.OpenedAt).Hours() / 24)
	}
	return pm
}

// RealizedPL sums the realized P/L of every trade that has one.
func RealizedPL(trades []model.Trade) float64 {
	var sum float64
	for _, t := range trades {
		if t.RealizedPL != nil {
			sum += *t.RealizedPL
		}
	}
	return sum
}

// WinRate is the percentage of returns above zero, 0 for none.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns)) * 100
}

// Sharpe is mean over population standard deviation, 0 when undefined.
func Sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std
}

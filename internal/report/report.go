// Package report renders desk state as markdown for the terminal.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"TradeDesk/internal/model"
)

// Renderer builds markdown documents. Money formats an amount in the desk currency.
type Renderer struct {
	Money func(float64) string
}

func (r Renderer) money(v float64) string {
	if r.Money == nil {
		return fmt.Sprintf("%.2f", v)
	}
	return r.Money(v)
}

func opt(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

// Signals renders the screener table.
func (r Renderer) Signals(quotes []model.Quote, failed map[string]error, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Signals %s\n\n", at.Format("2006-01-02 15:04"))
	if len(quotes) > 0 {
		fmt.Fprintln(&b, "| Symbol | Close | Change | RSI | MA9 | Signal |")
		fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|:---:|")
		for _, q := range quotes {
			fmt.Fprintf(&b, "| %s | %s | %+.2f%% | %s | %s | %s |\n",
				q.Symbol, r.money(q.Close), q.ChangePct, opt(q.RSI, "%.1f"), opt(q.MA9, "%.2f"), q.Signal)
		}
	} else {
		fmt.Fprintln(&b, "No data.")
	}
	if len(failed) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "## Unavailable")
		fmt.Fprintln(&b)
		for _, sym := range sortedKeys(failed) {
			fmt.Fprintf(&b, "- **%s**: %v\n", sym, failed[sym])
		}
	}
	return b.String()
}

// Positions renders cash and holdings valued at current prices.
func (r Renderer) Positions(m model.PortfolioMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio\n\n")
	fmt.Fprintf(&b, "- Cash: %s\n", r.money(m.Cash))
	fmt.Fprintf(&b, "- Holdings: %s\n", r.money(m.PositionsValue))
	fmt.Fprintf(&b, "- Total: **%s**\n\n", r.money(m.TotalValue))

	if len(m.Positions) == 0 {
		fmt.Fprintln(&b, "No open positions.")
	} else {
		fmt.Fprintln(&b, "| Symbol | Shares | Avg price | Price | Value | P/L | Return | Days |")
		fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|---:|---:|")
		for _, p := range m.Positions {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | %d |\n",
				p.Symbol, p.Shares, r.money(p.AvgPrice), r.money(p.CurrentPrice), r.money(p.Value),
				r.money(p.UnrealizedPL), opt(p.ReturnPct, "%+.2f%%"), p.DaysHeld)
		}
	}
	if len(m.Missing) > 0 {
		fmt.Fprintf(&b, "\nNo price for: %s\n", strings.Join(m.Missing, ", "))
	}
	return b.String()
}

// Metrics renders the aggregate statistics.
func (r Renderer) Metrics(m model.PortfolioMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Metrics\n\n")
	fmt.Fprintln(&b, "| Metric | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Total value | %s |\n", r.money(m.TotalValue))
	fmt.Fprintf(&b, "| Unrealized P/L | %s |\n", r.money(m.UnrealizedPL))
	fmt.Fprintf(&b, "| Realized P/L | %s |\n", r.money(m.RealizedPL))
	fmt.Fprintf(&b, "| Win rate | %.1f%% |\n", m.WinRate)
	fmt.Fprintf(&b, "| Sharpe ratio | %.2f |\n", m.SharpeRatio)
	fmt.Fprintf(&b, "| Max drawdown | %.2f%% |\n", m.MaxDrawdown)
	if m.Best != nil {
		fmt.Fprintf(&b, "| Best | %s (%+.2f%%) |\n", m.Best.Symbol, m.Best.ReturnPct)
	}
	if m.Worst != nil {
		fmt.Fprintf(&b, "| Worst | %s (%+.2f%%) |\n", m.Worst.Symbol, m.Worst.ReturnPct)
	}
	return b.String()
}

// Trades renders the trade log, oldest first. signals holds the indicator
// signal on each trade's day, keyed by trade ID, and may be nil.
func (r Renderer) Trades(trades []model.Trade, signals map[int64]model.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trades\n\n")
	if len(trades) == 0 {
		fmt.Fprintln(&b, "No trades yet.")
		return b.String()
	}
	fmt.Fprintln(&b, "| ID | Time | Type | Symbol | Qty | Price | Commission | Realized P/L | Signal |")
	fmt.Fprintln(&b, "|---:|:---|:---:|:---|---:|---:|---:|---:|:---:|")
	for _, t := range trades {
		pl := ""
		if t.RealizedPL != nil {
			pl = r.money(*t.RealizedPL)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %s | %s | %s | %s |\n",
			t.ID, t.Timestamp.Local().Format("2006-01-02 15:04"), t.Type, t.Symbol, t.Quantity,
			r.money(t.Price), r.money(t.Commission), pl, signals[t.ID])
	}
	return b.String()
}

// Equity renders the recorded equity history.
func (r Renderer) Equity(points []model.EquityPoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Equity history\n\n")
	if len(points) == 0 {
		fmt.Fprintln(&b, "No snapshots recorded.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Time | Cash | Holdings | Total |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|")
	for _, p := range points {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			p.Time.Local().Format("2006-01-02 15:04"), r.money(p.Cash), r.money(p.PositionsValue), r.money(p.TotalValue))
	}
	return b.String()
}

// Print writes md to w, styled for the terminal unless plain is set.
func Print(w io.Writer, md string, plain bool) error {
	if plain {
		_, err := io.WriteString(w, md)
		return err
	}
	tr, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return fmt.Errorf("init markdown renderer: %w", err)
	}
	out, err := tr.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

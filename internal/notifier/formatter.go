package notifier

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"TradeDesk/internal/model"
)

// Formatter renders desk data as Telegram HTML.
type Formatter struct {
	Currency string // ISO code, e.g. "INR"
}

// Money formats v in the configured currency, e.g. ₹1,234.50.
func (f Formatter) Money(v float64) string {
	cur := money.GetCurrency(f.Currency)
	if cur == nil {
		return fmt.Sprintf("%.2f %s", v, f.Currency)
	}
	minor := decimal.NewFromFloat(v).Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return money.New(minor.IntPart(), cur.Code).Display()
}

func signalIcon(s model.Signal) string {
	switch s {
	case model.SignalBuy:
		return "🟢"
	case model.SignalSell:
		return "🔴"
	}
	return "⚪"
}

func optional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

// FormatSignals renders one line per quote, followed by the symbols that failed.
func (f Formatter) FormatSignals(quotes []model.Quote, failed map[string]error, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Signal scan</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	if len(quotes) == 0 {
		b.WriteString("No data.\n")
	}
	for _, q := range quotes {
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %s  %s (%+.2f%%)\n   RSI %s | MA9 %s\n",
			signalIcon(q.Signal), html.EscapeString(q.Symbol), q.Signal, f.Money(q.Close), q.ChangePct,
			optional(q.RSI, "%.1f"), optional(q.MA9, "%.2f")))
	}
	if len(failed) > 0 {
		b.WriteString("\n⚠️ Unavailable: ")
		b.WriteString(html.EscapeString(strings.Join(sortedKeys(failed), ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatAlerts lists only the actionable quotes. It returns "" when there are none.
func (f Formatter) FormatAlerts(quotes []model.Quote, at time.Time) string {
	var actionable []model.Quote
	for _, q := range quotes {
		if q.Signal == model.SignalBuy || q.Signal == model.SignalSell {
			actionable = append(actionable, q)
		}
	}
	if len(actionable) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>Signals</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	for _, q := range actionable {
		b.WriteString(fmt.Sprintf("%s <b>%s %s</b> at %s (RSI %s, MA9 %s)\n",
			signalIcon(q.Signal), q.Signal, html.EscapeString(q.Symbol), f.Money(q.Close),
			optional(q.RSI, "%.1f"), optional(q.MA9, "%.2f")))
	}
	return b.String()
}

// FormatPortfolio renders cash and holdings valued at current prices.
func (f Formatter) FormatPortfolio(m model.PortfolioMetrics) string {
	var b strings.Builder
	b.WriteString("💼 <b>Portfolio</b>\n\n")
	b.WriteString(fmt.Sprintf("Cash: %s\n", f.Money(m.Cash)))
	b.WriteString(fmt.Sprintf("Holdings: %s\n", f.Money(m.PositionsValue)))
	b.WriteString(fmt.Sprintf("Total: <b>%s</b>\n", f.Money(m.TotalValue)))

	if len(m.Positions) == 0 && len(m.Missing) == 0 {
		b.WriteString("\nNo open positions.\n")
		return b.String()
	}
	b.WriteString("\n")
	for _, p := range m.Positions {
		b.WriteString(fmt.Sprintf("<b>%s</b> %d @ %s → %s\n   P/L %s (%s) | %dd\n",
			html.EscapeString(p.Symbol), p.Shares, f.Money(p.AvgPrice), f.Money(p.CurrentPrice),
			f.Money(p.UnrealizedPL), optional(p.ReturnPct, "%+.2f%%"), p.DaysHeld))
	}
	if len(m.Missing) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ No price for: %s\n", html.EscapeString(strings.Join(m.Missing, ", "))))
	}
	return b.String()
}

// FormatMetrics renders the aggregate statistics.
func (f Formatter) FormatMetrics(m model.PortfolioMetrics) string {
	var b strings.Builder
	b.WriteString("📈 <b>Metrics</b>\n\n")
	b.WriteString(fmt.Sprintf("Total value: %s\n", f.Money(m.TotalValue)))
	b.WriteString(fmt.Sprintf("Unrealized P/L: %s\n", f.Money(m.UnrealizedPL)))
	b.WriteString(fmt.Sprintf("Realized P/L: %s\n", f.Money(m.RealizedPL)))
	b.WriteString(fmt.Sprintf("Win rate: %.1f%%\n", m.WinRate))
	b.WriteString(fmt.Sprintf("Sharpe: %.2f\n", m.SharpeRatio))
	b.WriteString(fmt.Sprintf("Max drawdown: %.2f%%\n", m.MaxDrawdown))
	if m.Best != nil {
		b.WriteString(fmt.Sprintf("Best: %s (%+.2f%%)\n", html.EscapeString(m.Best.Symbol), m.Best.ReturnPct))
	}
	if m.Worst != nil {
		b.WriteString(fmt.Sprintf("Worst: %s (%+.2f%%)\n", html.EscapeString(m.Worst.Symbol), m.Worst.ReturnPct))
	}
	return b.String()
}

// FormatTrades renders the most recent limit trades, newest first.
func (f Formatter) FormatTrades(trades []model.Trade, limit int) string {
	var b strings.Builder
	b.WriteString("🧾 <b>Trades</b>\n\n")
	if len(trades) == 0 {
		b.WriteString("No trades yet.\n")
		return b.String()
	}
	shown := 0
	for i := len(trades) - 1; i >= 0 && (limit <= 0 || shown < limit); i-- {
		t := trades[i]
		line := fmt.Sprintf("#%d %s %s %d @ %s", t.ID, t.Timestamp.Format("01-02 15:04"), t.Type, t.Quantity, f.Money(t.Price))
		b.WriteString(fmt.Sprintf("%s <b>%s</b>", line, html.EscapeString(t.Symbol)))
		if t.RealizedPL != nil {
			b.WriteString(fmt.Sprintf(" | P/L %s", f.Money(*t.RealizedPL)))
		}
		b.WriteString("\n")
		shown++
	}
	if shown < len(trades) {
		b.WriteString(fmt.Sprintf("… %d older\n", len(trades)-shown))
	}
	return b.String()
}

// FormatTrade confirms an executed order.
func (f Formatter) FormatTrade(t model.Trade, cash float64) string {
	var b strings.Builder
	icon := "🟢"
	if t.Type == model.Sell {
		icon = "🔴"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s %d %s</b> @ %s\n", icon, t.Type, t.Quantity, html.EscapeString(t.Symbol), f.Money(t.Price)))
	b.WriteString(fmt.Sprintf("Commission: %s\n", f.Money(t.Commission)))
	if t.RealizedPL != nil {
		b.WriteString(fmt.Sprintf("Realized P/L: %s\n", f.Money(*t.RealizedPL)))
	}
	b.WriteString(fmt.Sprintf("Cash: %s\n", f.Money(cash)))
	return b.String()
}

// FormatError renders err with its kind when it has one.
func FormatError(err error) string {
	var ke model.KindError
	if errors.As(err, &ke) {
		return fmt.Sprintf("❌ <b>%s</b>: %s", ke.Kind(), html.EscapeString(ke.Error()))
	}
	return fmt.Sprintf("❌ %s", html.EscapeString(err.Error()))
}

// HelpText lists the chat commands.
func HelpText() string {
	return strings.Join([]string{
		"🤖 <b>TradeDesk</b>",
		"",
		"/signals [name|rsi|signal] - scan the watchlist",
		"/portfolio - cash and holdings",
		"/metrics - performance statistics",
		"/trades - recent trades",
		"/buy SYMBOL QTY - buy at the last close",
		"/sell SYMBOL QTY - sell at the last close",
		"/exit SYMBOL - sell the whole position",
		"/help - this message",
	}, "\n")
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

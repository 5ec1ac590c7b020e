package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"TradeDesk/internal/app"
	"TradeDesk/internal/model"
	"TradeDesk/internal/strategy"
)

var signalsSort string

var signalsCmd = &cobra.Command{
	Use:   "signals [symbol...]",
	Short: "Scan the watchlist (or the given symbols) for signals",
	RunE:  runWithDesk(runSignals),
}

var positionsCmd = &cobra.Command{
	Use:     "positions",
	Aliases: []string{"portfolio"},
	Short:   "Show cash and open positions at current prices",
	Args:    cobra.NoArgs,
	RunE: runWithDesk(func(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
		m, err := desk.Metrics(ctx)
		if err != nil {
			return err
		}
		return printMarkdown(cmd, renderer(desk).Positions(m))
	}),
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show performance statistics",
	Args:  cobra.NoArgs,
	RunE: runWithDesk(func(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
		m, err := desk.Metrics(ctx)
		if err != nil {
			return err
		}
		return printMarkdown(cmd, renderer(desk).Metrics(m))
	}),
}

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List the trade log",
	Args:  cobra.NoArgs,
	RunE: runWithDesk(func(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
		trades, err := desk.Store.Trades(ctx)
		if err != nil {
			return err
		}
		return printMarkdown(cmd, renderer(desk).Trades(trades, desk.TradeSignals(ctx, trades)))
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded equity snapshots",
	Args:  cobra.NoArgs,
	RunE: runWithDesk(func(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
		points, err := desk.Store.EquityHistory(ctx)
		if err != nil {
			return err
		}
		return printMarkdown(cmd, renderer(desk).Equity(points))
	}),
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Record the current portfolio value in the equity history",
	Args:  cobra.NoArgs,
	RunE: runWithDesk(func(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
		p, err := desk.RecordEquity(ctx)
		if err != nil {
			return err
		}
		return printMarkdown(cmd, renderer(desk).Equity([]model.EquityPoint{p}))
	}),
}

func init() {
	rootCmd.AddCommand(signalsCmd, positionsCmd, metricsCmd, tradesCmd, historyCmd, snapshotCmd)
	signalsCmd.Flags().StringVarP(&signalsSort, "sort", "s", "name", "order by name, rsi or signal")
}

func runSignals(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
	key, err := strategy.ParseSortKey(signalsSort)
	if err != nil {
		return err
	}
	quotes, failed := desk.Scan(ctx, normalize(args))
	strategy.SortQuotes(quotes, key)
	return printMarkdown(cmd, renderer(desk).Signals(quotes, failed, time.Now()))
}

func normalize(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

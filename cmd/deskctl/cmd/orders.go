package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"TradeDesk/internal/app"
	"TradeDesk/internal/model"
)

var orderPrice float64

var buyCmd = &cobra.Command{
	Use:   "buy <symbol> <qty>",
	Short: "Buy shares at the last close or --price",
	Args:  cobra.ExactArgs(2),
	RunE:  runWithDesk(orderRunner(model.Buy)),
}

var sellCmd = &cobra.Command{
	Use:   "sell <symbol> <qty>",
	Short: "Sell shares at the last close or --price",
	Args:  cobra.ExactArgs(2),
	RunE:  runWithDesk(orderRunner(model.Sell)),
}

var exitCmd = &cobra.Command{
	Use:   "exit <symbol>",
	Short: "Sell the whole position in a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithDesk(runExit),
}

var deleteTradeCmd = &cobra.Command{
	Use:   "delete-trade <trade-id>",
	Short: "Remove a trade and re-derive positions from the remaining log",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithDesk(runDeleteTrade),
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute positions and realized P/L from the trade log",
	Args:  cobra.NoArgs,
	RunE:  runWithDesk(runRebuild),
}

func init() {
	rootCmd.AddCommand(buyCmd, sellCmd, exitCmd, deleteTradeCmd, rebuildCmd)
	for _, c := range []*cobra.Command{buyCmd, sellCmd, exitCmd} {
		c.Flags().Float64VarP(&orderPrice, "price", "p", 0, "fill price (default: last close)")
	}
}

func orderRunner(typ model.TradeType) func(context.Context, *cobra.Command, *app.Desk, []string) error {
	return func(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
		qty, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return &model.ValidationError{Rule: "quantity", Message: fmt.Sprintf("quantity %q is not a whole number", args[1])}
		}
		t, err := desk.Order(ctx, typ, strings.ToUpper(args[0]), qty, orderPrice)
		if err != nil {
			return err
		}
		return printTrade(ctx, cmd, desk, t)
	}
}

func runExit(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
	t, err := desk.Exit(ctx, strings.ToUpper(args[0]), orderPrice)
	if err != nil {
		return err
	}
	return printTrade(ctx, cmd, desk, t)
}

func printTrade(ctx context.Context, cmd *cobra.Command, desk *app.Desk, t model.Trade) error {
	snap, err := desk.Manager.Snapshot(ctx)
	if err != nil {
		return err
	}
	r := renderer(desk)
	md := r.Trades([]model.Trade{t}, nil) + fmt.Sprintf("\nCash: **%s**\n", r.Money(snap.Cash))
	return printMarkdown(cmd, md)
}

func runDeleteTrade(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("trade id %q: %w", args[0], err)
	}
	if err := desk.Manager.DeleteTrade(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted trade %d\n", id)
	return nil
}

func runRebuild(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error {
	drifted, err := desk.Manager.Drift(ctx)
	if err != nil {
		return err
	}
	if len(drifted) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "positions out of line with the trade log: %s\n", strings.Join(drifted, ", "))
	}
	positions, err := desk.Manager.Rebuild(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d positions\n", len(positions))
	return nil
}

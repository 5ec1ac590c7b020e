package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"TradeDesk/internal/app"
	"TradeDesk/internal/config"
	"TradeDesk/internal/notifier"
	"TradeDesk/internal/report"
)

var (
	cfgPath string
	plain   bool
)

var rootCmd = &cobra.Command{
	Use:   "deskctl",
	Short: "Operate the TradeDesk paper-trading ledger from the terminal",
	Long: `deskctl reads and writes the same ledger as the desk service.

It can:
  - scan the watchlist for RSI/MA9 signals
  - place paper orders at the last close or an explicit price
  - show positions, trades, metrics and the equity history
  - delete a mistaken trade and rebuild positions from the log`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.Path(), "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "print raw markdown instead of styled output")
}

// runWithDesk opens the desk for the duration of fn. Ctrl+C cancels fn's context.
func runWithDesk(fn func(ctx context.Context, cmd *cobra.Command, desk *app.Desk, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		desk, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("open desk: %w", err)
		}
		defer desk.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return fn(ctx, cmd, desk, args)
	}
}

func renderer(desk *app.Desk) report.Renderer {
	return report.Renderer{Money: notifier.Formatter{Currency: desk.Config.Trading.Currency}.Money}
}

func printMarkdown(cmd *cobra.Command, md string) error {
	return report.Print(cmd.OutOrStdout(), md, plain)
}

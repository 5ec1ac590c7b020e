package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/model"
)

func setup(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"DATA_PROVIDER", "SQLITE_PATH", "DB_PATH", "INITIAL_CASH", "COMMISSION", "WATCHLIST", "HTTPS_PROXY"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	yaml := "data_source:\n  provider: mock\n" +
		"database:\n  sqlite_path: " + filepath.Join(dir, "data", "desk.db") + "\n" +
		"watchlist: [TCS, INFY]\n"
	require.NoError(t, os.WriteFile(cfg, []byte(yaml), 0o644))
	return cfg
}

func execute(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", cfg, "--plain"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestOrderLifecycle(t *testing.T) {
	cfg := setup(t)

	out, err := execute(t, cfg, "buy", "tcs", "5", "--price", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "| BUY | TCS | 5 | ₹1,000.00 | ₹20.00 |")
	assert.Contains(t, out, "Cash: **₹94,980.00**")

	_, err = execute(t, cfg, "sell", "TCS", "10", "--price", "1000")
	var ip *model.InsufficientPositionError
	assert.ErrorAs(t, err, &ip)

	_, err = execute(t, cfg, "buy", "TCS", "five", "--price", "1000")
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)

	out, err = execute(t, cfg, "trades")
	require.NoError(t, err)
	assert.Contains(t, out, "| 1 |")

	out, err = execute(t, cfg, "rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "rebuilt 1 positions")

	out, err = execute(t, cfg, "delete-trade", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted trade 1")

	out, err = execute(t, cfg, "trades")
	require.NoError(t, err)
	assert.Contains(t, out, "No trades yet.")

	_, err = execute(t, cfg, "delete-trade", "1")
	assert.Error(t, err)
}

func TestViews(t *testing.T) {
	cfg := setup(t)

	out, err := execute(t, cfg, "signals", "infy", "--sort", "rsi")
	require.NoError(t, err)
	assert.Contains(t, out, "| INFY |")
	assert.NotContains(t, out, "| TCS |")

	_, err = execute(t, cfg, "signals", "--sort", "volume")
	assert.Error(t, err)

	out, err = execute(t, cfg, "positions")
	require.NoError(t, err)
	assert.Contains(t, out, "No open positions.")

	out, err = execute(t, cfg, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshots recorded.")

	out, err = execute(t, cfg, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "₹100,000.00")

	out, err = execute(t, cfg, "metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "| Win rate | 0.0% |")
}

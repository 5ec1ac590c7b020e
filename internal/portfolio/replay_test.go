package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeDesk/internal/model"
)

func logOf(trades ...model.Trade) []model.Trade {
	at := time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)
	for i := range trades {
		trades[i].ID = int64(i + 1)
		trades[i].Timestamp = at.Add(time.Duration(i) * time.Hour)
		if trades[i].Commission == 0 {
			trades[i].Commission = 20
		}
	}
	return trades
}

func TestReplayIsIdempotent(t *testing.T) {
	trades := logOf(
		model.Trade{Symbol: "TCS", Type: model.Buy, Quantity: 3, Price: 3400.55},
		model.Trade{Symbol: "INFY", Type: model.Buy, Quantity: 7, Price: 1499.9},
		model.Trade{Symbol: "TCS", Type: model.Sell, Quantity: 1, Price: 3500.1},
	)
	a := Replay(trades, 100000)
	b := Replay(trades, 100000)
	assert.Equal(t, a.Cash(), b.Cash())
	assert.Equal(t, a.Positions(), b.Positions())
	assert.Equal(t, a.RealizedPL, b.RealizedPL)
	assert.Empty(t, a.Warnings)
}

func TestReplayCashFormula(t *testing.T) {
	trades := logOf(
		model.Trade{Symbol: "A", Type: model.Buy, Quantity: 10, Price: 0.1},
		model.Trade{Symbol: "A", Type: model.Buy, Quantity: 10, Price: 0.2, Commission: 0.3},
		model.Trade{Symbol: "A", Type: model.Sell, Quantity: 20, Price: 0.3, Commission: 0.1},
	)
	b := Replay(trades, 1000)
	// 1000 - (1+20) - (2+0.3) + (6-0.1)
	assert.Equal(t, 982.6, b.Cash())
	assert.Empty(t, b.Positions())
	assert.InDelta(t, (0.3-0.15)*20-0.1, b.RealizedPL[3], 1e-9)
}

func TestReplaySellWithoutPosition(t *testing.T) {
	trades := logOf(model.Trade{Symbol: "GHOST", Type: model.Sell, Quantity: 5, Price: 100})
	b := Replay(trades, 1000)

	require.Len(t, b.Warnings, 1)
	var ise *model.InconsistentStateError
	require.ErrorAs(t, b.Warnings[0], &ise)
	assert.Equal(t, "GHOST", ise.Symbol)
	assert.Equal(t, -20.0, b.RealizedPL[1])
	assert.Equal(t, 1480.0, b.Cash())
	_, ok := b.Position("GHOST")
	assert.False(t, ok)
}

func TestReplayOversell(t *testing.T) {
	trades := logOf(
		model.Trade{Symbol: "X", Type: model.Buy, Quantity: 2, Price: 10},
		model.Trade{Symbol: "X", Type: model.Sell, Quantity: 3, Price: 10},
	)
	b := Replay(trades, 1000)
	assert.Len(t, b.Warnings, 1)
	_, ok := b.Position("X")
	assert.False(t, ok)
}

func TestReplayReopenedPositionResetsOpenedAt(t *testing.T) {
	trades := logOf(
		model.Trade{Symbol: "X", Type: model.Buy, Quantity: 2, Price: 10},
		model.Trade{Symbol: "X", Type: model.Sell, Quantity: 2, Price: 10},
		model.Trade{Symbol: "X", Type: model.Buy, Quantity: 1, Price: 12},
	)
	b := Replay(trades, 1000)
	p, ok := b.Position("X")
	require.True(t, ok)
	assert.Equal(t, trades[2].Timestamp, p.OpenedAt)
	assert.Equal(t, 12.0, p.AvgPrice)
}

func TestNetQuantities(t *testing.T) {
	trades := logOf(
		model.Trade{Symbol: "A", Type: model.Buy, Quantity: 10},
		model.Trade{Symbol: "B", Type: model.Buy, Quantity: 4},
		model.Trade{Symbol: "A", Type: model.Sell, Quantity: 3},
		model.Trade{Symbol: "B", Type: model.Sell, Quantity: 4},
	)
	assert.Equal(t, map[string]int64{"A": 7}, NetQuantities(trades))
	assert.Empty(t, NetQuantities(nil))
}

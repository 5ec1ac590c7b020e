package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"TradeDesk/internal/ledger"
	"TradeDesk/internal/model"
)

// Manager validates and executes orders against the ledger.
// Every read-validate-write sequence runs inside one ledger transaction,
// and the ledger admits a single writer at a time.
type Manager struct {
	store  ledger.Store
	limits Limits
	Now    func() time.Time
}

// NewManager creates a Manager over store.
func NewManager(store ledger.Store, limits Limits) *Manager {
	return &Manager{store: store, limits: limits, Now: time.Now}
}

// Limits returns the trading rules in force.
func (m *Manager) Limits() Limits { return m.limits }

// Store returns the underlying ledger.
func (m *Manager) Store() ledger.Store { return m.store }

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ExecuteOrder validates and records a BUY or SELL at price.
// On any error the ledger is left unchanged.
func (m *Manager) ExecuteOrder(ctx context.Context, typ model.TradeType, symbol string, qty int64, price float64) (model.Trade, error) {
	symbol = normalizeSymbol(symbol)
	var saved model.Trade
	err := m.store.Update(ctx, func(tx ledger.Tx) error {
		var err error
		saved, err = m.execute(ctx, tx, typ, symbol, qty, price)
		return err
	})
	if err != nil {
		return model.Trade{}, err
	}
	log.Printf("[INFO] executed %s %d %s @ %.2f (trade %d)", saved.Type, saved.Quantity, saved.Symbol, saved.Price, saved.ID)
	return saved, nil
}

// ClosePosition sells every held share of symbol at price.
func (m *Manager) ClosePosition(ctx context.Context, symbol string, price float64) (model.Trade, error) {
	symbol = normalizeSymbol(symbol)
	var saved model.Trade
	err := m.store.Update(ctx, func(tx ledger.Tx) error {
		pos, ok, err := tx.Position(ctx, symbol)
		if err != nil {
			return err
		}
		if !ok || pos.Shares == 0 {
			return &model.InsufficientPositionError{Symbol: symbol}
		}
		saved, err = m.execute(ctx, tx, model.Sell, symbol, pos.Shares, price)
		return err
	})
	if err != nil {
		return model.Trade{}, err
	}
	log.Printf("[INFO] closed %s: sold %d @ %.2f (trade %d)", symbol, saved.Quantity, saved.Price, saved.ID)
	return saved, nil
}

func (m *Manager) execute(ctx context.Context, tx ledger.Tx, typ model.TradeType, symbol string, qty int64, price float64) (model.Trade, error) {
	trades, err := tx.Trades(ctx)
	if err != nil {
		return model.Trade{}, err
	}
	cash := Replay(trades, m.limits.InitialCash).Cash()

	pos, held, err := tx.Position(ctx, symbol)
	if err != nil {
		return model.Trade{}, err
	}
	if err := m.limits.validate(typ, symbol, qty, price, cash, pos, held); err != nil {
		return model.Trade{}, err
	}

	saved, err := tx.AppendTrade(ctx, model.Trade{
		Symbol:     symbol,
		Type:       typ,
		Quantity:   qty,
		Price:      price,
		Commission: m.limits.Commission,
		Timestamp:  m.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		return model.Trade{}, err
	}

	next, pl, warn := applyTrade(pos, held, saved)
	if warn != nil {
		log.Printf("[WARN] %v", warn)
	}
	if pl != nil {
		if err := tx.SetRealizedPL(ctx, saved.ID, *pl); err != nil {
			return model.Trade{}, err
		}
		saved.RealizedPL = pl
	}
	if next.Shares > 0 {
		err = tx.UpsertPosition(ctx, next)
	} else {
		err = tx.DeletePosition(ctx, symbol)
	}
	if err != nil {
		return model.Trade{}, err
	}
	return saved, nil
}

// Snapshot reconstructs cash and positions from the trade log.
func (m *Manager) Snapshot(ctx context.Context) (model.Snapshot, error) {
	trades, err := m.store.Trades(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	book := Replay(trades, m.limits.InitialCash)
	if trades == nil {
		trades = []model.Trade{}
	}
	return model.Snapshot{
		Cash:         book.Cash(),
		Positions:    book.Positions(),
		Transactions: trades,
	}, nil
}

// DeleteTrade removes a trade and re-derives positions and realized P/L from
// the remaining log. It refuses if the remaining log would sell shares that
// were never bought.
func (m *Manager) DeleteTrade(ctx context.Context, id int64) error {
	err := m.store.Update(ctx, func(tx ledger.Tx) error {
		trades, err := tx.Trades(ctx)
		if err != nil {
			return err
		}
		remaining := make([]model.Trade, 0, len(trades))
		found := false
		for _, t := range trades {
			if t.ID == id {
				found = true
				continue
			}
			remaining = append(remaining, t)
		}
		if !found {
			return fmt.Errorf("trade %d: %w", id, ledger.ErrTradeNotFound)
		}

		book := Replay(remaining, m.limits.InitialCash)
		if len(book.Warnings) > 0 {
			var ise *model.InconsistentStateError
			if errors.As(book.Warnings[0], &ise) {
				return &model.InconsistentStateError{Symbol: ise.Symbol,
					Message: fmt.Sprintf("deleting trade %d would leave an invalid log: %s", id, ise.Message)}
			}
			return book.Warnings[0]
		}
		if err := tx.DeleteTrade(ctx, id); err != nil {
			return err
		}
		return writeBook(ctx, tx, book)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] deleted trade %d", id)
	return nil
}

// Rebuild re-derives the position table and realized P/L from the trade log,
// which is authoritative.
func (m *Manager) Rebuild(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position
	err := m.store.Update(ctx, func(tx ledger.Tx) error {
		trades, err := tx.Trades(ctx)
		if err != nil {
			return err
		}
		book := Replay(trades, m.limits.InitialCash)
		for _, w := range book.Warnings {
			log.Printf("[WARN] rebuild: %v", w)
		}
		positions = book.Positions()
		return writeBook(ctx, tx, book)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] rebuilt %d positions from the trade log", len(positions))
	return positions, nil
}

// Drift lists the symbols whose stored share count disagrees with the net
// quantity of the trade log. It does not write.
func (m *Manager) Drift(ctx context.Context) ([]string, error) {
	trades, err := m.store.Trades(ctx)
	if err != nil {
		return nil, fmt.Errorf("drift: %w", err)
	}
	stored, err := m.store.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("drift: %w", err)
	}
	net := NetQuantities(trades)
	var drifted []string
	for _, p := range stored {
		if net[p.Symbol] != p.Shares {
			drifted = append(drifted, p.Symbol)
		}
		delete(net, p.Symbol)
	}
	for sym := range net {
		drifted = append(drifted, sym)
	}
	sort.Strings(drifted)
	return drifted, nil
}

// writeBook replaces the stored positions and realized P/L with the book's.
func writeBook(ctx context.Context, tx ledger.Tx, book *Book) error {
	stored, err := tx.Positions(ctx)
	if err != nil {
		return err
	}
	for _, p := range stored {
		if _, ok := book.Position(p.Symbol); !ok {
			if err := tx.DeletePosition(ctx, p.Symbol); err != nil {
				return err
			}
		}
	}
	for _, p := range book.Positions() {
		if err := tx.UpsertPosition(ctx, p); err != nil {
			return err
		}
	}
	for id, pl := range book.RealizedPL {
		if err := tx.SetRealizedPL(ctx, id, pl); err != nil {
			return err
		}
	}
	return nil
}

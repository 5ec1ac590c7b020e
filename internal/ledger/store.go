package ledger

import (
	"context"
	"errors"

	"TradeDesk/internal/model"
)

// ErrTradeNotFound is returned by DeleteTrade for an unknown id.
var ErrTradeNotFound = errors.New("trade not found")

// Reader is the read side of the ledger.
type Reader interface {
	// Trades returns the full log ordered by timestamp, then id.
	Trades(ctx context.Context) ([]model.Trade, error)
	// Positions returns every open position ordered by symbol.
	Positions(ctx context.Context) ([]model.Position, error)
	Position(ctx context.Context, symbol string) (model.Position, bool, error)
}

// Tx is a write transaction handed to Store.Update.
type Tx interface {
	Reader
	// AppendTrade stores t and returns it with its assigned id.
	AppendTrade(ctx context.Context, t model.Trade) (model.Trade, error)
	SetRealizedPL(ctx context.Context, id int64, pl float64) error
	UpsertPosition(ctx context.Context, p model.Position) error
	DeletePosition(ctx context.Context, symbol string) error
	DeleteTrade(ctx context.Context, id int64) error
}

// Store persists trades, positions and the equity history.
//
// Update runs fn in a single transaction. Writers are serialized, so a
// read-validate-write sequence inside fn never interleaves with another.
// If fn returns an error nothing it wrote is kept.
type Store interface {
	Reader
	Update(ctx context.Context, fn func(tx Tx) error) error
	RecordEquity(ctx context.Context, p model.EquityPoint) error
	EquityHistory(ctx context.Context) ([]model.EquityPoint, error)
	Close() error
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *model.PersistenceError
	if errors.As(err, &pe) || errors.Is(err, ErrTradeNotFound) {
		return err
	}
	return &model.PersistenceError{Op: op, Err: err}
}

package collector

import (
	"context"
	"time"

	"TradeDesk/internal/model"
)

// PriceFeed returns daily history for a symbol, ascending by date.
// Implementations report every failure as *model.FeedUnavailableError.
type PriceFeed interface {
	GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.PricePoint, error)
	Name() string
}

func unavailable(source, symbol string, err error) error {
	return &model.FeedUnavailableError{Source: source, Symbol: symbol, Err: err}
}

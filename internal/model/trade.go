package model

import (
	"fmt"
	"strings"
	"time"
)

// TradeType is the side of a trade.
type TradeType string

const (
	Buy  TradeType = "BUY"
	Sell TradeType = "SELL"
)

// ParseTradeType accepts "buy"/"sell" in any case.
func ParseTradeType(s string) (TradeType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	}
	return "", &ValidationError{Rule: "type", Message: fmt.Sprintf("unknown trade type %q", s)}
}

// Trade is one entry of the append-only trade log.
type Trade struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Type       TradeType `json:"type"`
	Quantity   int64     `json:"quantity"`
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
	RealizedPL *float64  `json:"realizedPL"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notional returns quantity × price.
func (t Trade) Notional() float64 {
	return float64(t.Quantity) * t.Price
}

// Position is the derived holding of one symbol at weighted-average cost.
type Position struct {
	Symbol   string    `json:"symbol"`
	Shares   int64     `json:"shares"`
	AvgPrice float64   `json:"avgPrice"`
	OpenedAt time.Time `json:"openedAt"`
}

// CostBasis returns shares × avgPrice.
func (p Position) CostBasis() float64 {
	return float64(p.Shares) * p.AvgPrice
}

// Snapshot is the portfolio state reconstructed from the trade log.
type Snapshot struct {
	Cash         float64    `json:"cash"`
	Positions    []Position `json:"positions"`
	Transactions []Trade    `json:"transactions"`
}

// EquityPoint is the total portfolio value at a point in time.
type EquityPoint struct {
	Time           time.Time `json:"time"`
	Cash           float64   `json:"cash"`
	PositionsValue float64   `json:"positionsValue"`
	TotalValue     float64   `json:"totalValue"`
}

// Float returns a pointer to v, for the nullable fields.
func Float(v float64) *float64 {
	return &v
}

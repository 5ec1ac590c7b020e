package model

// PositionMetrics holds the valuation of one position at the current price.
type PositionMetrics struct {
	Symbol       string   `json:"symbol"`
	Shares       int64    `json:"shares"`
	AvgPrice     float64  `json:"avgPrice"`
	CurrentPrice float64  `json:"currentPrice"`
	Value        float64  `json:"value"`
	CostBasis    float64  `json:"costBasis"`
	UnrealizedPL float64  `json:"unrealizedPL"`
	ReturnPct    *float64 `json:"returnPct"` // nil when cost basis is 0
	DaysHeld     int      `json:"daysHeld"`
}

// Performer names the position with the best or worst return.
type Performer struct {
	Symbol    string  `json:"symbol"`
	ReturnPct float64 `json:"returnPct"`
}

// PortfolioMetrics aggregates statistics for presentation.
type PortfolioMetrics struct {
	Cash           float64           `json:"cash"`
	PositionsValue float64           `json:"positionsValue"`
	TotalValue     float64           `json:"totalValue"`
	UnrealizedPL   float64           `json:"unrealizedPL"`
	RealizedPL     float64           `json:"realizedPL"`
	WinRate        float64           `json:"winRate"`
	SharpeRatio    float64           `json:"sharpeRatio"`
	MaxDrawdown    float64           `json:"maxDrawdown"` // percent
	Best           *Performer        `json:"best"`
	Worst          *Performer        `json:"worst"`
	Positions      []PositionMetrics `json:"positions"`
	Missing        []string          `json:"missing"` // symbols without a current price
}

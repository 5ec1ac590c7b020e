package model

import "time"

// PricePoint represents a single daily OHLCV bar.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IndicatorPoint is a PricePoint with the derived indicator fields.
// Nil pointers mean the value is not defined yet for that index.
type IndicatorPoint struct {
	PricePoint
	MA9     *float64 `json:"ma9"`
	Change  float64  `json:"change"`
	Gain    float64  `json:"gain"`
	Loss    float64  `json:"loss"`
	AvgGain *float64 `json:"avgGain"`
	AvgLoss *float64 `json:"avgLoss"`
	RSI     *float64 `json:"rsi"`
	Signal  Signal   `json:"signal"`
}

// Quote summarizes the latest state of a symbol for the screener.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Close     float64   `json:"close"`
	PrevClose float64   `json:"prevClose"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"changePct"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	MA9       *float64  `json:"ma9"`
	RSI       *float64  `json:"rsi"`
	Signal    Signal    `json:"signal"`
}

// Series holds the computed indicator series for one symbol.
type Series struct {
	Symbol    string
	Points    []IndicatorPoint
	Quote     Quote
	FetchedAt time.Time
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

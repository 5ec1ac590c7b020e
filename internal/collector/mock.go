package collector

import (
	"context"
	"math/rand"
	"time"

	"TradeDesk/internal/model"
)

// MockFeed returns generated or fixed data for development and testing.
// Generated series are a deterministic random walk seeded by the symbol.
type MockFeed struct {
	Points map[string][]model.PricePoint // fixed data per symbol, used when present
	Err    error                         // forced failure
	Delay  time.Duration                 // simulated latency
}

func (m *MockFeed) Name() string { return "mock" }

func (m *MockFeed) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.PricePoint, error) {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, unavailable(m.Name(), symbol, ctx.Err())
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return nil, unavailable(m.Name(), symbol, m.Err)
	}
	if pts, ok := m.Points[symbol]; ok {
		return filterRange(pts, start, end), nil
	}
	return generateMockSeries(symbol, start, end), nil
}

func generateMockSeries(symbol string, start, end time.Time) []model.PricePoint {
	h := symbolHash(symbol)
	price := float64(abs(h%4900) + 100)
	volatility := float64(abs(h)%15+5) / 1000
	r := rand.New(rand.NewSource(int64(h)))

	var points []model.PricePoint
	for d := model.Day(start); !d.After(model.Day(end)); d = d.AddDate(0, 0, 1) {
		price += (r.Float64() - 0.5) * 2 * price * volatility
		if price < 1 {
			price = 1
		}
		points = append(points, model.PricePoint{
			Date:   d,
			Open:   price - r.Float64()*price*0.01,
			High:   price + r.Float64()*price*0.02,
			Low:    price - r.Float64()*price*0.02,
			Close:  price,
			Volume: float64(r.Intn(10000000) + 1000000),
		})
	}
	return points
}

// symbolHash is the 32-bit string hash (h*31 + c) used to pick the
// starting price and volatility of a generated series.
func symbolHash(s string) int32 {
	var h int32
	for _, c := range s {
		h = (h << 5) - h + int32(c)
	}
	return h
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func filterRange(points []model.PricePoint, start, end time.Time) []model.PricePoint {
	s, e := model.Day(start), model.Day(end)
	out := make([]model.PricePoint, 0, len(points))
	for _, p := range points {
		d := model.Day(p.Date)
		if d.Before(s) || d.After(e) {
			continue
		}
		out = append(out, p)
	}
	return out
}

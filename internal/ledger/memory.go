package ledger

import (
	"context"
	"sort"
	"sync"

	"TradeDesk/internal/model"
)

// MemoryStore is an in-process Store used in tests and when no database is configured.
// Each Update works on a copy that replaces the committed state only if fn succeeds.
type MemoryStore struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *memState
	equity  []model.EquityPoint
}

type memState struct {
	trades    []model.Trade
	positions map[string]model.Position
	nextID    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{positions: make(map[string]model.Position), nextID: 1}}
}

func (s *memState) clone() *memState {
	c := &memState{
		trades:    make([]model.Trade, len(s.trades)),
		positions: make(map[string]model.Position, len(s.positions)),
		nextID:    s.nextID,
	}
	for i, t := range s.trades {
		if t.RealizedPL != nil {
			t.RealizedPL = model.Float(*t.RealizedPL)
		}
		c.trades[i] = t
	}
	for k, v := range s.positions {
		c.positions[k] = v
	}
	return c
}

func (s *memState) sortedTrades() []model.Trade {
	out := s.clone().trades
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memState) sortedPositions() []model.Position {
	out := make([]model.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (m *MemoryStore) Trades(_ context.Context) ([]model.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.sortedTrades(), nil
}

func (m *MemoryStore) Positions(_ context.Context) ([]model.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.sortedPositions(), nil
}

func (m *MemoryStore) Position(_ context.Context, symbol string) (model.Position, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.state.positions[symbol]
	return p, ok, nil
}

func (m *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return &model.PersistenceError{Op: "begin", Err: err}
	}

	m.mu.RLock()
	work := m.state.clone()
	m.mu.RUnlock()

	if err := fn(&memTx{s: work}); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = work
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) RecordEquity(_ context.Context, p model.EquityPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, p)
	return nil
}

func (m *MemoryStore) EquityHistory(_ context.Context) ([]model.EquityPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.EquityPoint, len(m.equity))
	copy(out, m.equity)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

type memTx struct {
	s *memState
}

func (t *memTx) Trades(_ context.Context) ([]model.Trade, error) {
	return t.s.sortedTrades(), nil
}

func (t *memTx) Positions(_ context.Context) ([]model.Position, error) {
	return t.s.sortedPositions(), nil
}

func (t *memTx) Position(_ context.Context, symbol string) (model.Position, bool, error) {
	p, ok := t.s.positions[symbol]
	return p, ok, nil
}

func (t *memTx) AppendTrade(_ context.Context, tr model.Trade) (model.Trade, error) {
	tr.ID = t.s.nextID
	t.s.nextID++
	if tr.RealizedPL != nil {
		tr.RealizedPL = model.Float(*tr.RealizedPL)
	}
	t.s.trades = append(t.s.trades, tr)
	return tr, nil
}

func (t *memTx) find(id int64) int {
	for i := range t.s.trades {
		if t.s.trades[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *memTx) SetRealizedPL(_ context.Context, id int64, pl float64) error {
	i := t.find(id)
	if i < 0 {
		return ErrTradeNotFound
	}
	t.s.trades[i].RealizedPL = model.Float(pl)
	return nil
}

func (t *memTx) UpsertPosition(_ context.Context, p model.Position) error {
	t.s.positions[p.Symbol] = p
	return nil
}

func (t *memTx) DeletePosition(_ context.Context, symbol string) error {
	delete(t.s.positions, symbol)
	return nil
}

func (t *memTx) DeleteTrade(_ context.Context, id int64) error {
	i := t.find(id)
	if i < 0 {
		return ErrTradeNotFound
	}
	t.s.trades = append(t.s.trades[:i], t.s.trades[i+1:]...)
	return nil
}

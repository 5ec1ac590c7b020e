package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"TradeDesk/internal/model"
)

// SQLiteStore persists the ledger to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // one writer at a time
	reader
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &model.PersistenceError{Op: "open", Err: err}
	}

	// WAL lets the CLI read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &model.PersistenceError{Op: "set WAL mode", Err: err}
	}

	s := &SQLiteStore{db: db, reader: reader{q: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &model.PersistenceError{Op: "migrate", Err: err}
	}

	log.Printf("[INFO] sqlite ledger opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT NOT NULL,
			quantity   INTEGER NOT NULL,
			price      REAL NOT NULL,
			type       TEXT NOT NULL,
			commission REAL,
			pl         REAL,
			timestamp  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp, id)`,

		`CREATE TABLE IF NOT EXISTS positions (
			symbol    TEXT PRIMARY KEY,
			shares    INTEGER NOT NULL,
			avg_price REAL NOT NULL,
			opened_at INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS equity_history (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			cash            REAL,
			positions_value REAL,
			total_value     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equity_ts ON equity_history(timestamp)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec %q: %w", q[:40], err)
		}
	}

	// Databases created before commission and P/L tracking lack these columns.
	if err := s.addMissingColumns("trades", map[string]string{
		"commission": "REAL",
		"pl":         "REAL",
	}); err != nil {
		return err
	}
	return s.addMissingColumns("positions", map[string]string{"opened_at": "INTEGER"})
}

func (s *SQLiteStore) addMissingColumns(table string, cols map[string]string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("table_info %s: %w", table, err)
	}
	have := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("scan table_info %s: %w", table, err)
		}
		have[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for name, typ := range cols {
		if have[name] {
			continue
		}
		if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, name, typ)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, name, err)
		}
		log.Printf("[INFO] added column %s to %s table", name, table)
	}
	return nil
}

// Update runs fn inside one transaction under the writer lock.
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &model.PersistenceError{Op: "begin", Err: err}
	}
	if err := fn(&sqliteTx{reader: reader{q: sqlTx}, tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			log.Printf("[ERROR] rollback: %v", rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return &model.PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

func (s *SQLiteStore) RecordEquity(ctx context.Context, p model.EquityPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO equity_history
		(timestamp, cash, positions_value, total_value) VALUES (?,?,?,?)`,
		p.Time.UnixMilli(), p.Cash, p.PositionsValue, p.TotalValue,
	)
	return persistErr("record equity", err)
}

func (s *SQLiteStore) EquityHistory(ctx context.Context) ([]model.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, cash, positions_value, total_value
		FROM equity_history ORDER BY timestamp, id`)
	if err != nil {
		return nil, persistErr("equity history", err)
	}
	defer rows.Close()

	var out []model.EquityPoint
	for rows.Next() {
		var (
			ts int64
			p  model.EquityPoint
		)
		if err := rows.Scan(&ts, &p.Cash, &p.PositionsValue, &p.TotalValue); err != nil {
			return nil, persistErr("equity history", err)
		}
		p.Time = time.UnixMilli(ts).UTC()
		out = append(out, p)
	}
	return out, persistErr("equity history", rows.Err())
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite ledger")
	return s.db.Close()
}

// reader implements Reader over a querier.
type reader struct {
	q querier
}

func (r reader) Trades(ctx context.Context) ([]model.Trade, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, symbol, type, quantity, price, commission, pl, timestamp
		FROM trades ORDER BY timestamp, id`)
	if err != nil {
		return nil, persistErr("list trades", err)
	}
	defer rows.Close()

	var out []model.Trade
	for rows.Next() {
		var (
			t          model.Trade
			typ        string
			commission sql.NullFloat64
			pl         sql.NullFloat64
			ts         int64
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &typ, &t.Quantity, &t.Price, &commission, &pl, &ts); err != nil {
			return nil, persistErr("list trades", err)
		}
		if t.Type, err = model.ParseTradeType(typ); err != nil {
			return nil, persistErr("list trades", fmt.Errorf("trade %d: %w", t.ID, err))
		}
		t.Commission = commission.Float64
		if pl.Valid {
			t.RealizedPL = model.Float(pl.Float64)
		}
		t.Timestamp = time.UnixMilli(ts).UTC()
		out = append(out, t)
	}
	return out, persistErr("list trades", rows.Err())
}

func (r reader) Positions(ctx context.Context) ([]model.Position, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT symbol, shares, avg_price, opened_at
		FROM positions ORDER BY symbol`)
	if err != nil {
		return nil, persistErr("list positions", err)
	}
	defer rows.Close()

	var out []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, persistErr("list positions", err)
		}
		out = append(out, p)
	}
	return out, persistErr("list positions", rows.Err())
}

func (r reader) Position(ctx context.Context, symbol string) (model.Position, bool, error) {
	row := r.q.QueryRowContext(ctx, `SELECT symbol, shares, avg_price, opened_at
		FROM positions WHERE symbol = ?`, symbol)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return model.Position{}, false, nil
	}
	if err != nil {
		return model.Position{}, false, persistErr("get position", err)
	}
	return p, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(sc scanner) (model.Position, error) {
	var (
		p      model.Position
		opened sql.NullInt64
	)
	if err := sc.Scan(&p.Symbol, &p.Shares, &p.AvgPrice, &opened); err != nil {
		return model.Position{}, err
	}
	if opened.Valid {
		p.OpenedAt = time.UnixMilli(opened.Int64).UTC()
	}
	return p, nil
}

// sqliteTx implements Tx on an open transaction.
type sqliteTx struct {
	reader
	tx *sql.Tx
}

func (t *sqliteTx) AppendTrade(ctx context.Context, tr model.Trade) (model.Trade, error) {
	var pl any
	if tr.RealizedPL != nil {
		pl = *tr.RealizedPL
	}
	res, err := t.tx.ExecContext(ctx, `INSERT INTO trades
		(symbol, quantity, price, type, commission, pl, timestamp) VALUES (?,?,?,?,?,?,?)`,
		tr.Symbol, tr.Quantity, tr.Price, string(tr.Type), tr.Commission, pl, tr.Timestamp.UnixMilli(),
	)
	if err != nil {
		return model.Trade{}, persistErr("append trade", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Trade{}, persistErr("append trade", err)
	}
	tr.ID = id
	return tr, nil
}

func (t *sqliteTx) SetRealizedPL(ctx context.Context, id int64, pl float64) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE trades SET pl = ? WHERE id = ?`, pl, id)
	if err != nil {
		return persistErr("set realized pl", err)
	}
	return affected(res, "set realized pl")
}

func (t *sqliteTx) UpsertPosition(ctx context.Context, p model.Position) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO positions (symbol, shares, avg_price, opened_at)
		VALUES (?,?,?,?)
		ON CONFLICT(symbol) DO UPDATE SET shares = excluded.shares, avg_price = excluded.avg_price,
		opened_at = excluded.opened_at`,
		p.Symbol, p.Shares, p.AvgPrice, p.OpenedAt.UnixMilli(),
	)
	return persistErr("upsert position", err)
}

func (t *sqliteTx) DeletePosition(ctx context.Context, symbol string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM positions WHERE symbol = ?`, symbol)
	return persistErr("delete position", err)
}

func (t *sqliteTx) DeleteTrade(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return persistErr("delete trade", err)
	}
	return affected(res, "delete trade")
}

func affected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(op, err)
	}
	if n == 0 {
		return ErrTradeNotFound
	}
	return nil
}

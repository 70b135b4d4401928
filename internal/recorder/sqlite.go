package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the journal to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id                 TEXT PRIMARY KEY,
			timestamp          INTEGER NOT NULL,
			duration_ms        INTEGER,
			symbol             TEXT,
			bid                REAL,
			ask                REAL,
			equity             REAL,
			ema_short          REAL,
			ema_long           REAL,
			atr                REAL,
			closest_support    REAL,
			closest_resistance REAL,
			direction          TEXT,
			volume             REAL,
			reason             TEXT,
			result             TEXT NOT NULL,
			error              TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			cycle_id    TEXT,
			symbol      TEXT,
			side        TEXT,
			volume      REAL,
			price       REAL,
			sl          REAL,
			tp          REAL,
			order_id    INTEGER,
			retcode     INTEGER,
			comment     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_ts ON orders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS closes (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			cycle_id  TEXT,
			ticket    INTEGER,
			price     REAL,
			volume    REAL,
			retcode   INTEGER,
			reason    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_closes_ts ON closes(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// finite maps the ±Inf "no level" markers to NULL.
func finite(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (r *SQLiteRecorder) RecordCycle(rec *CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO cycles
		(id, timestamp, duration_ms, symbol, bid, ask, equity,
		 ema_short, ema_long, atr, closest_support, closest_resistance,
		 direction, volume, reason, result, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.StartedAt.Unix(), rec.Duration.Milliseconds(), rec.Symbol,
		rec.Bid, rec.Ask, rec.Equity,
		finite(rec.EMAShort), finite(rec.EMALong), finite(rec.ATR),
		finite(rec.ClosestSupport), finite(rec.ClosestResistance),
		rec.Direction, rec.Volume, rec.Reason, rec.Result, rec.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordOrder(rec *OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO orders
		(timestamp, cycle_id, symbol, side, volume, price, sl, tp, order_id, retcode, comment)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.CycleID, rec.Symbol, rec.Side, rec.Volume,
		rec.Price, rec.StopLoss, rec.TakeProfit, rec.Order, rec.Retcode, rec.Comment,
	)
	return err
}

func (r *SQLiteRecorder) RecordClose(rec *CloseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO closes
		(timestamp, cycle_id, ticket, price, volume, retcode, reason)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.CycleID, rec.Ticket, rec.Price, rec.Volume, rec.Retcode, rec.Reason,
	)
	return err
}

// Summary counts cycles by outcome since the given time.
func (r *SQLiteRecorder) Summary(since time.Time) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT result, direction, COUNT(*) FROM cycles
		WHERE timestamp >= ? GROUP BY result, direction`, since.Unix())
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	var s Summary
	for rows.Next() {
		var result, direction string
		var n int
		if err := rows.Scan(&result, &direction, &n); err != nil {
			return Summary{}, err
		}
		s.Cycles += n
		if direction == "BUY" || direction == "SELL" {
			s.Signals += n
		}
		switch result {
		case ResultTraded:
			s.Traded += n
		case ResultRejected:
			s.Rejected += n
		case ResultError:
			s.Errors += n
		}
	}
	return s, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

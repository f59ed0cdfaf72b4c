package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"scannerpro/internal/model"
)

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
	mu  sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, log *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL for concurrent reads while a sync writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	// Cascade from tickers to prices requires foreign keys on.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tickers (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL DEFAULT '',
			sector     TEXT NOT NULL DEFAULT '',
			is_active  INTEGER NOT NULL DEFAULT 1,
			last_sync  INTEGER,
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS prices (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker_id INTEGER NOT NULL REFERENCES tickers(id) ON DELETE CASCADE,
			date      TEXT NOT NULL,
			open      REAL NOT NULL,
			high      REAL NOT NULL,
			low       REAL NOT NULL,
			close     REAL NOT NULL,
			volume    INTEGER NOT NULL,
			UNIQUE(ticker_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_ticker_date ON prices(ticker_id, date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) CreateTicker(ctx context.Context, t *model.Ticker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tickers (symbol, name, sector, is_active, created_at) VALUES (?,?,?,?,?)`,
		t.Symbol, t.Name, t.Sector, boolToInt(t.IsActive), time.Now().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateSymbol
		}
		return fmt.Errorf("insert ticker: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("ticker id: %w", err)
	}
	t.ID = id
	return nil
}

func (s *SQLiteStore) TickerByID(ctx context.Context, id int64) (*model.Ticker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, symbol, name, sector, is_active, last_sync FROM tickers WHERE id = ?`, id)
	return scanTicker(row)
}

func (s *SQLiteStore) TickerBySymbol(ctx context.Context, symbol string) (*model.Ticker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, symbol, name, sector, is_active, last_sync FROM tickers WHERE symbol = ?`, symbol)
	return scanTicker(row)
}

// sortColumns whitelists user-facing sort keys against the schema.
var sortColumns = map[string]string{
	"symbol":     "symbol",
	"name":       "name",
	"sector":     "sector",
	"last_sync":  "last_sync",
	"created_at": "created_at",
}

func (s *SQLiteStore) ListTickers(ctx context.Context, opts ListOptions) ([]model.Ticker, int, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if opts.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, boolToInt(*opts.IsActive))
	}
	if opts.Sector != "" {
		where = append(where, "sector = ?")
		args = append(args, opts.Sector)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tickers"+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tickers: %w", err)
	}

	col, ok := sortColumns[opts.SortBy]
	if !ok {
		col = "symbol"
	}
	order := "ASC"
	if strings.EqualFold(opts.SortOrder, "desc") {
		order = "DESC"
	}
	page, perPage := opts.Page, opts.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	query := fmt.Sprintf(`SELECT id, symbol, name, sector, is_active, last_sync
		FROM tickers%s ORDER BY %s %s LIMIT ? OFFSET ?`, cond, col, order)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []model.Ticker
	for rows.Next() {
		t, err := scanTickerRows(rows)
		if err != nil {
			return nil, 0, err
		}
		tickers = append(tickers, *t)
	}
	return tickers, total, rows.Err()
}

func (s *SQLiteStore) DeleteTicker(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM tickers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ticker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ticker rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteEmptyTickers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tickers WHERE last_sync IS NOT NULL
		 AND id NOT IN (SELECT DISTINCT ticker_id FROM prices)`)
	if err != nil {
		return 0, fmt.Errorf("delete empty tickers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete empty tickers rows: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) LatestPriceDate(ctx context.Context, tickerID int64) (time.Time, bool, error) {
	var dateStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT date FROM prices WHERE ticker_id = ? ORDER BY date DESC LIMIT 1`, tickerID).Scan(&dateStr)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest price date: %w", err)
	}
	d, err := time.ParseInLocation(model.DateLayout, dateStr, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse price date %q: %w", dateStr, err)
	}
	return d, true, nil
}

func (s *SQLiteStore) PriceDates(ctx context.Context, tickerID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date FROM prices WHERE ticker_id = ?`, tickerID)
	if err != nil {
		return nil, fmt.Errorf("price dates: %w", err)
	}
	defer rows.Close()

	dates := make(map[string]struct{})
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan price date: %w", err)
		}
		dates[d] = struct{}{}
	}
	return dates, rows.Err()
}

func (s *SQLiteStore) Prices(ctx context.Context, tickerID int64) ([]model.OHLCV, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, open, high, low, close, volume
		 FROM prices WHERE ticker_id = ? ORDER BY date ASC`, tickerID)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var b model.OHLCV
		var dateStr string
		if err := rows.Scan(&dateStr, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		b.Date, err = time.ParseInLocation(model.DateLayout, dateStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse price date %q: %w", dateStr, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLiteStore) InsertPrices(ctx context.Context, tickerID int64, bars []model.OHLCV, syncedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert prices: %w", err)
	}
	defer tx.Rollback()

	// OR IGNORE turns a duplicate-date insert (lost race with another sync of
	// the same ticker) into a no-op instead of an error.
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO prices (ticker_id, date, open, high, low, close, volume)
		 VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert prices: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, b := range bars {
		res, err := stmt.ExecContext(ctx, tickerID, b.Date.Format(model.DateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return 0, fmt.Errorf("insert price %s: %w", b.Date.Format(model.DateLayout), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert price rows: %w", err)
		}
		inserted += int(n)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tickers SET last_sync = ? WHERE id = ?`, syncedAt.Unix(), tickerID); err != nil {
		return 0, fmt.Errorf("update last_sync: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert prices: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickers`).Scan(&st.TotalTickers); err != nil {
		return st, fmt.Errorf("count tickers: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickers WHERE is_active = 1`).Scan(&st.ActiveTickers); err != nil {
		return st, fmt.Errorf("count active tickers: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prices`).Scan(&st.TotalPrices); err != nil {
		return st, fmt.Errorf("count prices: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicker(row *sql.Row) (*model.Ticker, error) {
	t, err := scanTickerRows(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

func scanTickerRows(row rowScanner) (*model.Ticker, error) {
	var t model.Ticker
	var active int
	var lastSync sql.NullInt64
	if err := row.Scan(&t.ID, &t.Symbol, &t.Name, &t.Sector, &active, &lastSync); err != nil {
		return nil, err
	}
	t.IsActive = active != 0
	if lastSync.Valid {
		ts := time.Unix(lastSync.Int64, 0).UTC()
		t.LastSync = &ts
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"options-screener/internal/models"
	"options-screener/pkg/utils"
)

// SQLiteLedger implements AlertLedger using SQLite.
type SQLiteLedger struct {
	db *sql.DB

	mu        sync.RWMutex
	today     []models.AlertRecord
	todayDate time.Time
}

// NewSQLiteLedger creates a new SQLite-backed alert ledger.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ledger := &SQLiteLedger{db: db}

	if err := ledger.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return ledger, nil
}

func (s *SQLiteLedger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS alerts (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol       TEXT NOT NULL,
		time         DATETIME NOT NULL,
		move         TEXT,
		ltp          REAL,

		move_pct     REAL,
		dce          REAL,
		dpe          REAL,
		skew         REAL,
		doi_put      INTEGER,

		call_vol     REAL,
		trend        TEXT,
		flag         TEXT,

		ivd_ce       REAL,
		ivd_pe       REAL,
		iv_flag      TEXT,

		signal       TEXT,
		call_result  TEXT,
		put_result   TEXT,
		error_note   TEXT,

		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);
	CREATE INDEX IF NOT EXISTS idx_alerts_time ON alerts(time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

// Append adds a record to the ledger and the in-process today view.
// Strictly additive: there is no update or delete path.
func (s *SQLiteLedger) Append(ctx context.Context, rec *models.AlertRecord) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (
			symbol, time, move, ltp, move_pct, dce, dpe, skew, doi_put,
			call_vol, trend, flag, ivd_ce, ivd_pe, iv_flag,
			signal, call_result, put_result, error_note
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Symbol,
		rec.Time,
		rec.Move,
		nullFloat(rec.Spot),
		nullFloat(rec.MovePct),
		nullFloat(rec.DeltaCE),
		nullFloat(rec.DeltaPE),
		nullFloat(rec.Skew),
		nullInt(rec.DOIPut),
		nullFloat(rec.VolumeRatio),
		rec.Trend,
		rec.Flag,
		nullFloat(rec.IVDeltaCE),
		nullFloat(rec.IVDeltaPE),
		rec.IVFlag,
		rec.Signal,
		rec.CallResult,
		rec.PutResult,
		rec.ErrorNote,
	)
	if err != nil {
		return fmt.Errorf("failed to append alert: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}

	s.appendToday(*rec)
	return nil
}

// appendToday maintains the working view, dropping prior-day records when
// the trading date rolls over.
func (s *SQLiteLedger) appendToday(rec models.AlertRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := utils.TradingDate(rec.Time)
	if !day.Equal(s.todayDate) {
		s.today = nil
		s.todayDate = day
	}
	s.today = append(s.today, rec)
}

// Today returns a copy of the current trading day's records.
func (s *SQLiteLedger) Today() []models.AlertRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AlertRecord, len(s.today))
	copy(out, s.today)
	return out
}

// QueryByDate returns the durable records whose event time falls on the
// requested IST calendar date.
func (s *SQLiteLedger) QueryByDate(ctx context.Context, date time.Time) ([]models.AlertRecord, error) {
	from := utils.TradingDate(date)
	to := from.AddDate(0, 0, 1)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, time, move, ltp, move_pct, dce, dpe, skew, doi_put,
		       call_vol, trend, flag, ivd_ce, ivd_pe, iv_flag,
		       signal, call_result, put_result, error_note
		FROM alerts
		WHERE time >= ? AND time < ?
		ORDER BY id ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var records []models.AlertRecord
	for rows.Next() {
		var rec models.AlertRecord
		var (
			ltp, movePct, dce, dpe, skew, callVol, ivdCE, ivdPE sql.NullFloat64
			doiPut                                              sql.NullInt64
			move, trend, flag, ivFlag, signal                   sql.NullString
			callResult, putResult, errorNote                    sql.NullString
		)

		if err := rows.Scan(
			&rec.ID, &rec.Symbol, &rec.Time, &move, &ltp, &movePct,
			&dce, &dpe, &skew, &doiPut,
			&callVol, &trend, &flag, &ivdCE, &ivdPE, &ivFlag,
			&signal, &callResult, &putResult, &errorNote,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		rec.Move = move.String
		rec.Spot = floatPtr(ltp)
		rec.MovePct = floatPtr(movePct)
		rec.DeltaCE = floatPtr(dce)
		rec.DeltaPE = floatPtr(dpe)
		rec.Skew = floatPtr(skew)
		rec.DOIPut = intPtr(doiPut)
		rec.VolumeRatio = floatPtr(callVol)
		rec.Trend = trend.String
		rec.Flag = flag.String
		rec.IVDeltaCE = floatPtr(ivdCE)
		rec.IVDeltaPE = floatPtr(ivdPE)
		rec.IVFlag = ivFlag.String
		rec.Signal = signal.String
		rec.CallResult = callResult.String
		rec.PutResult = putResult.String
		rec.ErrorNote = errorNote.String

		records = append(records, rec)
	}

	return records, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

// Ensure SQLiteLedger implements AlertLedger
var _ AlertLedger = (*SQLiteLedger)(nil)

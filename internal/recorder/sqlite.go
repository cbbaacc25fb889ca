package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"FundPilot/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists decisions and NAV history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decision_log (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			run_id           TEXT,
			fund_code        TEXT NOT NULL,
			fund_name        TEXT,
			asset_class      TEXT,
			estimate_nav     REAL,
			estimate_change  REAL,
			percentile_250   REAL,
			ma_deviation     REAL,
			quant_decision   TEXT,
			quant_confidence REAL,
			quant_zone       TEXT,
			ai_decision      TEXT,
			ai_confidence    REAL,
			final_decision   TEXT NOT NULL,
			confidence       TEXT,
			confidence_score REAL,
			consistent       INTEGER,
			method           TEXT,
			rationale        TEXT,
			market_summary   TEXT,
			payload          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decision_ts ON decision_log(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_decision_fund ON decision_log(fund_code)`,

		`CREATE TABLE IF NOT EXISTS nav_history (
			fund_code  TEXT NOT NULL,
			date       TEXT NOT NULL,
			nav        REAL NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(fund_code, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nav_fund_date ON nav_history(fund_code, date)`,

		`CREATE TABLE IF NOT EXISTS holdings_cache (
			fund_code  TEXT NOT NULL,
			stock_code TEXT NOT NULL,
			stock_name TEXT NOT NULL,
			weight     REAL NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(fund_code, stock_code)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordDecision(rec *DecisionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := rec.Decision
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	var aiDecision sql.NullString
	var aiConfidence sql.NullFloat64
	if d.Advice != nil {
		aiDecision = sql.NullString{String: d.Advice.Decision.String(), Valid: true}
		aiConfidence = sql.NullFloat64{Float64: d.Advice.Confidence, Valid: true}
	}
	at := rec.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}

	_, err = r.db.Exec(`INSERT INTO decision_log
		(timestamp, run_id, fund_code, fund_name, asset_class,
		 estimate_nav, estimate_change, percentile_250, ma_deviation,
		 quant_decision, quant_confidence, quant_zone,
		 ai_decision, ai_confidence,
		 final_decision, confidence, confidence_score, consistent, method, rationale,
		 market_summary, payload)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		at.Unix(), rec.RunID, d.FundCode, d.FundName, d.AssetClass,
		rec.EstimateNAV, rec.EstimateChange, rec.Percentile250, rec.MADeviation,
		d.Quant.Decision.String(), d.Quant.Confidence, string(d.Quant.Zone),
		aiDecision, aiConfidence,
		d.Final.String(), string(d.Confidence), d.ConfidenceScore, d.Consistent, d.Method, d.Rationale,
		rec.MarketSummary, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the latest records, newest first.
func (r *SQLiteRecorder) RecentDecisions(limit int) ([]DecisionRecord, error) {
	rows, err := r.db.Query(`SELECT timestamp, run_id, estimate_nav, estimate_change,
		percentile_250, ma_deviation, market_summary, payload
		FROM decision_log ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var (
			ts      int64
			rec     DecisionRecord
			payload string
		)
		if err := rows.Scan(&ts, &rec.RunID, &rec.EstimateNAV, &rec.EstimateChange,
			&rec.Percentile250, &rec.MADeviation, &rec.MarketSummary, &payload); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		rec.RecordedAt = time.Unix(ts, 0)
		if err := json.Unmarshal([]byte(payload), &rec.Decision); err != nil {
			return nil, fmt.Errorf("decode decision: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveNAVHistory upserts points keyed by (fund, date).
func (r *SQLiteRecorder) SaveNAVHistory(code string, points []model.NAVPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO nav_history (fund_code, date, nav, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(fund_code, date) DO UPDATE SET nav = excluded.nav, updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, p := range points {
		if _, err := stmt.Exec(code, p.Date.Format(dateLayout), p.NAV, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s %s: %w", code, p.Date.Format(dateLayout), err)
		}
	}
	return tx.Commit()
}

// LoadNAVHistory returns up to limit points, most recent first.
func (r *SQLiteRecorder) LoadNAVHistory(code string, limit int) ([]model.NAVPoint, error) {
	rows, err := r.db.Query(`SELECT date, nav FROM nav_history
		WHERE fund_code = ? ORDER BY date DESC LIMIT ?`, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.NAVPoint
	for rows.Next() {
		var (
			date string
			nav  float64
		)
		if err := rows.Scan(&date, &nav); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		out = append(out, model.NAVPoint{Date: d, NAV: nav})
	}
	return out, rows.Err()
}

// SaveHoldings replaces the cached holdings of a fund.
func (r *SQLiteRecorder) SaveHoldings(code string, holdings []model.StockHolding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM holdings_cache WHERE fund_code = ?`, code); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear holdings %s: %w", code, err)
	}
	now := time.Now().Unix()
	for _, h := range holdings {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO holdings_cache (fund_code, stock_code, stock_name, weight, updated_at)
			VALUES (?,?,?,?,?)`, code, h.Code, h.Name, h.Weight, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert holding %s %s: %w", code, h.Code, err)
		}
	}
	return tx.Commit()
}

// LoadHoldings returns cached holdings by descending weight and when they were
// saved. An empty cache returns a zero time.
func (r *SQLiteRecorder) LoadHoldings(code string) ([]model.StockHolding, time.Time, error) {
	rows, err := r.db.Query(`SELECT stock_code, stock_name, weight, updated_at FROM holdings_cache
		WHERE fund_code = ? ORDER BY weight DESC`, code)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	var (
		out    []model.StockHolding
		latest int64
	)
	for rows.Next() {
		var (
			h  model.StockHolding
			ts int64
		)
		if err := rows.Scan(&h.Code, &h.Name, &h.Weight, &ts); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan holding: %w", err)
		}
		latest = max(latest, ts)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	if len(out) == 0 {
		return nil, time.Time{}, nil
	}
	return out, time.Unix(latest, 0), nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB is the single-file advice log.
type SQLiteDB struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps "database is locked" out of concurrent handlers
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) Close()                         { _ = s.db.Close() }
func (s *SQLiteDB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteDB) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS advice_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			advisor TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			dealer TEXT NOT NULL,
			player TEXT NOT NULL,
			total INTEGER NOT NULL,
			soft INTEGER NOT NULL DEFAULT 0,
			pair INTEGER NOT NULL DEFAULT 0,
			action TEXT NOT NULL,
			confidence INTEGER NOT NULL,
			win_probability INTEGER,
			explanation TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_advice_logs_advisor ON advice_logs(advisor)`,
		`CREATE TABLE IF NOT EXISTS advice_eval (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			advice_id INTEGER NOT NULL UNIQUE REFERENCES advice_logs(id) ON DELETE CASCADE,
			table_action TEXT NOT NULL,
			agrees INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("sqlite migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteDB) InsertAdvice(ctx context.Context, rec AdviceRecord) (int64, error) {
	player, err := json.Marshal(rec.Player)
	if err != nil {
		return 0, err
	}
	var wp any
	if rec.WinProbability != nil {
		wp = *rec.WinProbability
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO advice_logs(
			request_id, advisor, model, dealer, player,
			total, soft, pair,
			action, confidence, win_probability, explanation, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RequestID, rec.Advisor, strings.TrimSpace(rec.Model), rec.Dealer, string(player),
		rec.Total, rec.Soft, rec.Pair,
		rec.Action, rec.Confidence, wp, rec.Explanation, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const sqliteSelectAdvice = `
	SELECT l.id, l.request_id, l.advisor, l.model, l.dealer, l.player,
	       l.total, l.soft, l.pair, l.action, l.confidence, l.win_probability,
	       l.explanation, l.created_at
	  FROM advice_logs l`

func (s *SQLiteDB) RecentAdvice(ctx context.Context, limit int) ([]AdviceRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectAdvice+` ORDER BY l.id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanSQLiteAdvice(rows)
}

func (s *SQLiteDB) UngradedAdvice(ctx context.Context) ([]AdviceRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectAdvice+`
	  LEFT JOIN advice_eval e ON e.advice_id = l.id
	 WHERE e.id IS NULL AND l.advisor <> 'table'
	 ORDER BY l.id`)
	if err != nil {
		return nil, err
	}
	return scanSQLiteAdvice(rows)
}

func scanSQLiteAdvice(rows *sql.Rows) ([]AdviceRecord, error) {
	defer rows.Close()
	out := []AdviceRecord{}
	for rows.Next() {
		var (
			r       AdviceRecord
			player  string
			wp      sql.NullInt64
			created int64
		)
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Advisor, &r.Model, &r.Dealer, &player,
			&r.Total, &r.Soft, &r.Pair, &r.Action, &r.Confidence, &wp,
			&r.Explanation, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(player), &r.Player); err != nil {
			return nil, fmt.Errorf("advice %d player: %w", r.ID, err)
		}
		if wp.Valid {
			v := int(wp.Int64)
			r.WinProbability = &v
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) InsertAdviceEval(ctx context.Context, adviceID int64, tableAction string, agrees bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO advice_eval(advice_id, table_action, agrees, created_at)
		VALUES (?,?,?,?)
		ON CONFLICT(advice_id) DO UPDATE SET
			table_action = excluded.table_action,
			agrees = excluded.agrees`,
		adviceID, tableAction, agrees, time.Now().UnixMilli())
	return err
}

func (s *SQLiteDB) AdvisorAccuracy(ctx context.Context) (map[string]JudgeAccuracy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.advisor,
		       SUM(CASE WHEN e.agrees THEN 1 ELSE 0 END),
		       COUNT(*)
		  FROM advice_eval e
		  JOIN advice_logs l ON l.id = e.advice_id
		 GROUP BY l.advisor`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]JudgeAccuracy)
	for rows.Next() {
		var name string
		var acc JudgeAccuracy
		if err := rows.Scan(&name, &acc.Good, &acc.Total); err != nil {
			return nil, err
		}
		out[name] = acc
	}
	return out, rows.Err()
}

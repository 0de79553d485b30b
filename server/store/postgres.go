package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type DB struct{ *pgxpool.Pool }

func OpenPostgres(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &DB{p}, nil
}

func (db *DB) Close()                         { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.Exec(ctx, schema)
	return err
}

func (db *DB) InsertAdvice(ctx context.Context, rec AdviceRecord) (int64, error) {
	var model any
	if v := strings.TrimSpace(rec.Model); v != "" {
		model = v
	}
	var wp any
	if rec.WinProbability != nil {
		wp = *rec.WinProbability
	}
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO advice_logs(
            request_id, advisor, model, dealer, player,
            total, soft, pair,
            action, confidence, win_probability, explanation
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id
    `, rec.RequestID, rec.Advisor, model, rec.Dealer, rec.Player,
		rec.Total, rec.Soft, rec.Pair,
		rec.Action, rec.Confidence, wp, rec.Explanation,
	).Scan(&id)
	return id, err
}

const pgSelectAdvice = `
    SELECT l.id, l.request_id, l.advisor, COALESCE(l.model, ''), l.dealer, l.player,
           l.total, l.soft, l.pair, l.action, l.confidence, l.win_probability,
           l.explanation, l.created_at
      FROM advice_logs l`

func (db *DB) RecentAdvice(ctx context.Context, limit int) ([]AdviceRecord, error) {
	rows, err := db.Query(ctx, pgSelectAdvice+` ORDER BY l.id DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return collectAdvice(rows)
}

func (db *DB) UngradedAdvice(ctx context.Context) ([]AdviceRecord, error) {
	rows, err := db.Query(ctx, pgSelectAdvice+`
      LEFT JOIN advice_eval e ON e.advice_id = l.id
     WHERE e.id IS NULL AND l.advisor <> 'table'
     ORDER BY l.id`)
	if err != nil {
		return nil, err
	}
	return collectAdvice(rows)
}

func collectAdvice(rows pgx.Rows) ([]AdviceRecord, error) {
	defer rows.Close()
	out := []AdviceRecord{}
	for rows.Next() {
		var r AdviceRecord
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Advisor, &r.Model, &r.Dealer, &r.Player,
			&r.Total, &r.Soft, &r.Pair, &r.Action, &r.Confidence, &r.WinProbability,
			&r.Explanation, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertAdviceEval is idempotent per advice row.
func (db *DB) InsertAdviceEval(ctx context.Context, adviceID int64, tableAction string, agrees bool) error {
	_, err := db.Exec(ctx, `
        INSERT INTO advice_eval(advice_id, table_action, agrees)
        VALUES ($1,$2,$3)
        ON CONFLICT (advice_id) DO UPDATE SET
            table_action = EXCLUDED.table_action,
            agrees = EXCLUDED.agrees
    `, adviceID, tableAction, agrees)
	return err
}

func (db *DB) AdvisorAccuracy(ctx context.Context) (map[string]JudgeAccuracy, error) {
	rows, err := db.Query(ctx, `
        SELECT l.advisor,
               SUM(CASE WHEN e.agrees THEN 1 ELSE 0 END)::int AS good,
               COUNT(*)::int AS total
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

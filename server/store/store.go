package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store is the advice log. Postgres (pgx) in production, SQLite for a
// laptop or tests.
type Store interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()

	InsertAdvice(ctx context.Context, rec AdviceRecord) (int64, error)
	RecentAdvice(ctx context.Context, limit int) ([]AdviceRecord, error)
	// UngradedAdvice returns non-table advice that has no advice_eval row yet.
	UngradedAdvice(ctx context.Context) ([]AdviceRecord, error)
	InsertAdviceEval(ctx context.Context, adviceID int64, tableAction string, agrees bool) error
	AdvisorAccuracy(ctx context.Context) (map[string]JudgeAccuracy, error)
}

type AdviceRecord struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"request_id"`
	Advisor        string    `json:"advisor"`
	Model          string    `json:"model,omitempty"`
	Dealer         string    `json:"dealer"`
	Player         []string  `json:"player"`
	Total          int       `json:"total"`
	Soft           bool      `json:"soft"`
	Pair           bool      `json:"pair"`
	Action         string    `json:"action"`
	Confidence     int       `json:"confidence"`
	WinProbability *int      `json:"win_probability"`
	Explanation    string    `json:"explanation"`
	CreatedAt      time.Time `json:"created_at"`
}

type JudgeAccuracy struct {
	Good  int `json:"good"`
	Total int `json:"total"`
}

func (ja JudgeAccuracy) Ratio() float64 {
	if ja.Total <= 0 {
		return 0
	}
	return float64(ja.Good) / float64(ja.Total)
}

var ErrUnsupportedDSN = errors.New("unsupported DATABASE_URL")

// Open picks the driver from the DSN: postgres:// or postgresql:// → pgx,
// sqlite:<path>, file:<path> or a *.db path → SQLite.
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		db, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case strings.HasPrefix(lower, "sqlite:"):
		dsn = strings.TrimPrefix(dsn[len("sqlite:"):], "//")
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
	}
	db, err := OpenSQLite(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return 20
	}
	if n > 500 {
		return 500
	}
	return n
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizdesk-service/internal/domain"
)

// ResultStore persists result documents as JSONB rows.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) CreateResult(ctx context.Context, result domain.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (id, user_id, completed_at, data) VALUES ($1, $2, $3, $4)`,
		result.ID, result.UserID, result.CompletedAt, raw)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) ListResults(ctx context.Context) ([]domain.Result, error) {
	return s.list(ctx, `SELECT data FROM results ORDER BY completed_at DESC`)
}

func (s *ResultStore) ListResultsByUser(ctx context.Context, userID string) ([]domain.Result, error) {
	return s.list(ctx, `SELECT data FROM results WHERE user_id = $1 ORDER BY completed_at DESC`, userID)
}

func (s *ResultStore) list(ctx context.Context, query string, args ...interface{}) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.Result
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

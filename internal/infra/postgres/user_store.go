package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizdesk-service/internal/domain"
)

const uniqueViolation = "23505"

// UserStore persists user documents as JSONB rows. Username and email live
// in their own unique-indexed columns so the database enforces uniqueness.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// userDoc is the JSONB payload; the password hash is excluded from the
// domain type's JSON encoding, so it is carried explicitly here.
type userDoc struct {
	domain.User
	PasswordHash string `json:"passwordHash"`
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	raw, err := json.Marshal(userDoc{User: user, PasswordHash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, created_at, data) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.CreatedAt, raw)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.getUser(ctx, `SELECT data FROM users WHERE username = $1`, username)
}

func (s *UserStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, `SELECT data FROM users WHERE id = $1`, id)
}

func (s *UserStore) getUser(ctx context.Context, query, arg string) (domain.User, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return decodeUser(raw)
}

func (s *UserStore) GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	users := make(map[string]domain.User, len(ids))
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user, err := decodeUser(raw)
		if err != nil {
			return nil, err
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

func decodeUser(raw []byte) (domain.User, error) {
	var doc userDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	user := doc.User
	user.PasswordHash = doc.PasswordHash
	return user, nil
}

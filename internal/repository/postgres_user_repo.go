package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/btcdash/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const selectUserColumns = `SELECT id, username, password_hash, created_at, updated_at FROM users`

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE id = $1`, id)
}

// FindByUsername はログインIDでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE username = $1`, username)
}

// GetOrCreate はログインIDでユーザーを取得し、存在しなければ作成する。
// INSERT ... ON CONFLICT DO NOTHING で作成を試み、その後に取得する。
func (r *PostgresUserRepo) GetOrCreate(ctx context.Context, username string) (*model.User, bool, error) {
	now := time.Now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (username) DO NOTHING`,
		uuid.New().String(), username, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	user, err := r.FindByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, fmt.Errorf("user vanished after upsert: %s", username)
	}

	return user, rowsAffected == 1, nil
}

// SetPasswordHash はパスワードハッシュを保存する。
func (r *PostgresUserRepo) SetPasswordHash(ctx context.Context, userID, hash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, hash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg string) (*model.User, error) {
	user := &model.User{}
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &hash, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if hash.Valid {
		user.PasswordHash = &hash.String
	}
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

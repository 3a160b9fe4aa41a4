package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/btcdash/internal/model"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation         = "23505"
	profileClientIDConstraint = "profiles_client_id_key"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	p := &model.Profile{}
	var code sql.NullString
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, client_id, must_set_password, otp_code, otp_expires_at, created_at
		 FROM profiles
		 WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.ClientID, &p.MustSetPassword, &code, &expiresAt, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	if code.Valid && expiresAt.Valid {
		p.OTPCode = &code.String
		t := expiresAt.Time
		p.OTPExpiresAt = &t
	}
	return p, nil
}

// CreateIfAbsent はプロフィールが無ければ作成する。
// user_idの競合は既存扱い、client_idの競合はErrClientIDTakenとして返す。
func (r *PostgresProfileRepo) CreateIfAbsent(ctx context.Context, profile *model.Profile) (bool, error) {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, client_id, must_set_password, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO NOTHING`,
		profile.UserID, profile.ClientID, profile.MustSetPassword, profile.CreatedAt,
	)
	if err != nil {
		if isClientIDViolation(err) {
			return false, ErrClientIDTaken
		}
		return false, fmt.Errorf("failed to insert profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// SaveOTP はOTPコードと有効期限を組で保存する。
func (r *PostgresProfileRepo) SaveOTP(ctx context.Context, userID, code string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET otp_code = $2, otp_expires_at = $3 WHERE user_id = $1`,
		userID, code, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", userID)
	}
	return nil
}

// ConsumeOTP はコードが一致し期限内である場合に限りOTPを消去する。
// 条件付きUPDATEのため、同一コードの同時検証は高々1件しか成功しない。
func (r *PostgresProfileRepo) ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET otp_code = NULL, otp_expires_at = NULL
		 WHERE user_id = $1 AND otp_code = $2 AND otp_expires_at >= $3`,
		userID, code, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// MarkPasswordSet はmust_set_passwordをfalseにする。
func (r *PostgresProfileRepo) MarkPasswordSet(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET must_set_password = FALSE WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark password set: %w", err)
	}
	return nil
}

// isClientIDViolation はerrがclient_idのUNIQUE制約違反かどうかを判定する。
func isClientIDViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pqUniqueViolation && pqErr.Constraint == profileClientIDConstraint
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)

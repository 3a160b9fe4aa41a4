// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/btcdash/internal/model"
)

// ErrClientIDTaken はclient_idのUNIQUE制約違反を表す。
// 呼び出し側は新しいclient_idを生成して再試行する。
var ErrClientIDTaken = errors.New("client_id already taken")

// UserRepository はユーザー（認証主体）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はログインIDでユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// GetOrCreate はログインIDでユーザーを取得し、存在しなければ作成する。
	// usernameのUNIQUE制約に依存するため、同時実行でも重複作成されない。
	GetOrCreate(ctx context.Context, username string) (user *model.User, created bool, err error)

	// SetPasswordHash はパスワードハッシュを保存する。
	SetPasswordHash(ctx context.Context, userID, hash string) error
}

// ProfileRepository はプロフィールとOTP状態の永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// CreateIfAbsent はプロフィールが無ければ作成する。
	// 既に存在する場合はcreated=falseを返す。
	// client_idが他ユーザーと衝突した場合はErrClientIDTakenを返す。
	CreateIfAbsent(ctx context.Context, profile *model.Profile) (created bool, err error)

	// SaveOTP はOTPコードと有効期限を組で保存する。未消費の既存コードは上書きされる。
	SaveOTP(ctx context.Context, userID, code string, expiresAt time.Time) error

	// ConsumeOTP はコードが一致し期限内である場合に限りOTPを消去する。
	// 消去できた場合のみtrueを返す（1回限りの使用を保証する）。
	ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error)

	// MarkPasswordSet はmust_set_passwordをfalseにする。
	MarkPasswordSet(ctx context.Context, userID string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// PriceRepository はBTC価格履歴の読み取りインターフェース。
type PriceRepository interface {
	// ListSince はsince以降（当日を含む）の価格を日付昇順で返す。
	ListSince(ctx context.Context, since time.Time) ([]model.PricePoint, error)
}

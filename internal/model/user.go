// Package model はドメインモデルを定義する。
package model

import "time"

// User はログインIDとパスワードハッシュを保持する認証主体を表す。
// 初回のOTP発行時に遅延作成される。
type User struct {
	ID           string
	Username     string
	PasswordHash *string // パスワード設定前はnil
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword は恒久パスワードが設定済みかどうかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Profile はUserと1対1で紐づくユーザーメタデータを表す。
// OTPCodeとOTPExpiresAtは常に両方nilか両方設定済みのいずれか。
type Profile struct {
	UserID          string
	ClientID        string // 10桁の数字。全体で一意
	MustSetPassword bool
	OTPCode         *string
	OTPExpiresAt    *time.Time
	CreatedAt       time.Time
}

// HasPendingOTP は未消費のOTPが保存されているかどうかを返す。
func (p *Profile) HasPendingOTP() bool {
	return p.OTPCode != nil && p.OTPExpiresAt != nil
}

// OTPMatches は指定時刻において入力コードが有効かどうかを判定する。
// 未発行、期限切れ、不一致のいずれかの場合はfalseを返す。比較は完全一致。
func (p *Profile) OTPMatches(code string, now time.Time) bool {
	if !p.HasPendingOTP() {
		return false
	}
	if now.After(*p.OTPExpiresAt) {
		return false
	}
	return *p.OTPCode == code
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// 画面にインライン表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUsernameRequired    = "USERNAME_REQUIRED"
	ErrCodeOTPRequired         = "OTP_REQUIRED"
	ErrCodeOTPNotIssued        = "OTP_NOT_ISSUED"
	ErrCodeOTPInvalidOrExpired = "OTP_INVALID_OR_EXPIRED"
	ErrCodePasswordTooShort    = "PASSWORD_TOO_SHORT"
	ErrCodePasswordMismatch    = "PASSWORD_MISMATCH"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
)

const categoryValidation = "validation"

// NewUsernameRequiredError はログインID未入力エラーを生成する。
func NewUsernameRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameRequired,
		Message:  "ログインIDを入力してください。",
		Category: categoryValidation,
		Action:   "ログインIDを入力してから再度お試しください。",
	}
}

// NewOTPRequiredError はワンタイムパスワード未入力エラーを生成する。
func NewOTPRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPRequired,
		Message:  "ワンタイムパスワードを入力してください。",
		Category: categoryValidation,
		Action:   "発行されたワンタイムパスワードを入力してください。",
	}
}

// NewOTPNotIssuedError はOTP未発行エラーを生成する。
// 存在しないログインIDに対する検証もこのエラーとして扱う。
func NewOTPNotIssuedError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPNotIssued,
		Message:  "ワンタイムパスワードが発行されていません。",
		Category: categoryValidation,
		Action:   "先にワンタイムパスワードを発行してください。",
	}
}

// NewOTPInvalidOrExpiredError はOTPの不一致・期限切れ・使用済みエラーを生成する。
func NewOTPInvalidOrExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPInvalidOrExpired,
		Message:  "ワンタイムパスワードが正しくないか、有効期限が切れています。",
		Category: categoryValidation,
		Action:   "新しいワンタイムパスワードを発行してください。",
	}
}

// NewPasswordTooShortError はパスワード長不足エラーを生成する。
func NewPasswordTooShortError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodePasswordTooShort,
		Message:  fmt.Sprintf("パスワードは%d文字以上で入力してください。", minLength),
		Category: categoryValidation,
		Action:   "より長いパスワードを入力してください。",
	}
}

// NewPasswordMismatchError は確認用パスワード不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "パスワードが一致しません。",
		Category: categoryValidation,
		Action:   "同じパスワードを2回入力してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// IsValidationError はerrが画面にインライン表示すべき入力エラーかどうかを返す。
func IsValidationError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Category == categoryValidation
}

// HasCode はerrが指定コードのAPIErrorかどうかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

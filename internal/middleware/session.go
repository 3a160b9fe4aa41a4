// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/btcdash/internal/model"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_id"

// loginPath は未認証時のリダイレクト先。
const loginPath = "/login"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// sessionIDContextKey はリクエストコンテキストにセッションIDを格納するためのキー。
	sessionIDContextKey = contextKey("session_id")
)

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// SessionOption はセッションミドルウェアの挙動を変更する。
type SessionOption func(*sessionGate)

// WithStoreErrorHandler はセッションストア障害時の応答を差し替える。
// HTML画面ではエラーページを返すために使う。
func WithStoreErrorHandler(h http.Handler) SessionOption {
	return func(g *sessionGate) {
		g.onStoreError = h
	}
}

type sessionGate struct {
	onStoreError http.Handler
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みユーザーIDとセッションIDをリクエストコンテキストに注入する。
// Cookieなし・不明・期限切れの場合は/loginへ302でリダイレクトする。
// ストア障害の場合は500を返す（既定ではJSONの汎用エラー）。
func NewSessionMiddleware(sessionFinder SessionFinder, opts ...SessionOption) func(next http.Handler) http.Handler {
	gate := &sessionGate{
		onStoreError: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			WriteInternalServerError(w)
		}),
	}
	for _, opt := range opts {
		opt(gate)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				gate.onStoreError.ServeHTTP(w, r)
				return
			}
			if session == nil {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			if info := requestInfoFromContext(r.Context()); info != nil {
				info.userID = session.UserID
			}

			ctx := ContextWithSession(r.Context(), session.ID, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
// 見つからない場合は空文字列を返す。
func SessionIDFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(sessionIDContextKey).(string)
	return sessionID
}

// ContextWithSession はコンテキストにセッションIDとユーザーIDを注入する。
func ContextWithSession(ctx context.Context, sessionID, userID string) context.Context {
	ctx = context.WithValue(ctx, sessionIDContextKey, sessionID)
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// Package auth はOTPログイン、パスワード設定、セッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/btcdash/internal/metrics"
	"github.com/hitoshi/btcdash/internal/model"
	"github.com/hitoshi/btcdash/internal/repository"
)

// ErrInvalidCredentials はログインIDまたはパスワードが一致しないことを表す。
var ErrInvalidCredentials = errors.New("invalid credentials")

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge       int           // セッション有効期間（秒）
	OTPTTL              time.Duration // OTP有効期間
	ClientIDMaxAttempts int           // client_id衝突時の最大試行回数
	PasswordMinLength   int           // パスワード最小文字数

	// Now は現在時刻を返す。nilの場合はtime.Nowを使う。
	Now func() time.Time
	// Digits はn桁の数字文字列を生成する。nilの場合はRandomDigitsを使う。
	Digits func(n int) (string, error)
}

// IssuedOTP は発行したOTPの情報を表す。
// デモ用途のため、コードは画面にそのまま表示される。
type IssuedOTP struct {
	Username  string
	Code      string
	ExpiresAt time.Time
	ClientID  string
}

// LoginResult はOTP検証成功時の結果を表す。
type LoginResult struct {
	Session         *model.Session
	MustSetPassword bool
}

// RedirectPath はログイン成功後の遷移先を返す。
func (r *LoginResult) RedirectPath() string {
	if r.MustSetPassword {
		return "/set-password"
	}
	return "/dashboard"
}

// Account はユーザーとプロフィールの組を表す。
type Account struct {
	User    *model.User
	Profile *model.Profile
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	metrics     metrics.MetricsCollector
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Digits == nil {
		config.Digits = RandomDigits
	}
	if config.ClientIDMaxAttempts <= 0 {
		config.ClientIDMaxAttempts = 100
	}
	if config.PasswordMinLength <= 0 {
		config.PasswordMinLength = 6
	}
	if config.OTPTTL <= 0 {
		config.OTPTTL = 5 * time.Minute
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		metrics:     collector,
		config:      config,
	}
}

// IssueOTP はログインIDに対してOTPを発行する。
// 未登録のログインIDの場合はユーザーとプロフィールを作成する。
// 未消費の既存コードは新しいコードで上書きされる。
func (s *Service) IssueOTP(ctx context.Context, username string) (*IssuedOTP, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.NewUsernameRequiredError()
	}

	user, created, err := s.userRepo.GetOrCreate(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	if created {
		s.metrics.RecordAccountCreated()
		slog.Info("new user created",
			slog.String("user_id", user.ID),
			slog.String("username", user.Username),
		)
	}

	profile, err := s.ensureProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	code, err := s.config.Digits(OTPLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}
	expiresAt := s.config.Now().Add(s.config.OTPTTL)

	if err := s.profileRepo.SaveOTP(ctx, user.ID, code, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to save otp: %w", err)
	}

	s.metrics.RecordOTPIssued()
	slog.Info("otp issued",
		slog.String("user_id", user.ID),
		slog.Time("expires_at", expiresAt),
	)

	return &IssuedOTP{
		Username:  user.Username,
		Code:      code,
		ExpiresAt: expiresAt,
		ClientID:  profile.ClientID,
	}, nil
}

// ensureProfile はプロフィールを取得し、無ければ一意なclient_idで作成する。
// client_idの重複はストアのUNIQUE制約で検出し、新しい値で再試行する。
func (s *Service) ensureProfile(ctx context.Context, userID string) (*model.Profile, error) {
	existing, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	for attempt := 1; attempt <= s.config.ClientIDMaxAttempts; attempt++ {
		clientID, err := s.config.Digits(ClientIDLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate client_id: %w", err)
		}

		profile := &model.Profile{
			UserID:          userID,
			ClientID:        clientID,
			MustSetPassword: true,
			CreatedAt:       s.config.Now(),
		}

		created, err := s.profileRepo.CreateIfAbsent(ctx, profile)
		if errors.Is(err, repository.ErrClientIDTaken) {
			slog.Warn("client_id collision, retrying",
				slog.String("user_id", userID),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		if created {
			return profile, nil
		}

		// 並行リクエストが先にプロフィールを作成した
		existing, err = s.profileRepo.FindByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to find profile: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("profile for user %s vanished after concurrent create", userID)
		}
		return existing, nil
	}

	return nil, fmt.Errorf("failed to allocate unique client_id after %d attempts", s.config.ClientIDMaxAttempts)
}

// VerifyOTP はOTPを検証し、成功した場合はコードを消費してセッションを発行する。
// パスワードの照合は行わない。
func (s *Service) VerifyOTP(ctx context.Context, username, code string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.NewUsernameRequiredError()
	}
	if strings.TrimSpace(code) == "" {
		return nil, model.NewOTPRequiredError()
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordOTPVerification(metrics.VerifyNotIssued)
		return nil, model.NewOTPNotIssuedError()
	}

	profile, err := s.profileRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		s.metrics.RecordOTPVerification(metrics.VerifyNotIssued)
		return nil, model.NewOTPNotIssuedError()
	}

	now := s.config.Now()
	if !profile.OTPMatches(code, now) {
		s.metrics.RecordOTPVerification(metrics.VerifyInvalid)
		return nil, model.NewOTPInvalidOrExpiredError()
	}

	consumed, err := s.profileRepo.ConsumeOTP(ctx, user.ID, code, now)
	if err != nil {
		return nil, fmt.Errorf("failed to consume otp: %w", err)
	}
	if !consumed {
		// 並行リクエストが先に同じコードを消費した
		s.metrics.RecordOTPVerification(metrics.VerifyInvalid)
		return nil, model.NewOTPInvalidOrExpiredError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordOTPVerification(metrics.VerifySuccess)
	slog.Info("user logged in with otp",
		slog.String("user_id", user.ID),
		slog.Bool("must_set_password", profile.MustSetPassword),
	)

	return &LoginResult{
		Session:         session,
		MustSetPassword: profile.MustSetPassword,
	}, nil
}

// SetPassword は恒久パスワードを設定し、セッションを再発行する。
// 入力エラーの場合はストアを変更しない。
func (s *Service) SetPassword(ctx context.Context, userID, currentSessionID, password, confirm string) (*model.Session, error) {
	minLen := s.config.PasswordMinLength
	if utf8.RuneCountInString(password) < minLen || utf8.RuneCountInString(confirm) < minLen {
		return nil, model.NewPasswordTooShortError(minLen)
	}
	if password != confirm {
		return nil, model.NewPasswordMismatchError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to save password: %w", err)
	}
	if err := s.profileRepo.MarkPasswordSet(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	// パスワードは保存済みのため、再認証の失敗では処理を止めない
	if _, err := s.VerifyPassword(ctx, user.Username, password); err != nil {
		slog.Warn("re-authentication after password set failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	// 新しいセッションを作成できるまで現在のセッションは残す
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if currentSessionID != "" {
		if err := s.sessionRepo.DeleteByID(ctx, currentSessionID); err != nil {
			slog.Warn("failed to delete old session",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.metrics.RecordPasswordSet()
	slog.Info("password set", slog.String("user_id", user.ID))

	return session, nil
}

// VerifyPassword はログインIDとパスワードを照合し、一致したユーザーを返す。
// 一致しない場合やパスワード未設定の場合はErrInvalidCredentialsを返す。
func (s *Service) VerifyPassword(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(*user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CurrentAccount は指定ユーザーのユーザー情報とプロフィールを取得する。
func (s *Service) CurrentAccount(ctx context.Context, userID string) (*Account, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError()
	}

	return &Account{User: user, Profile: profile}, nil
}

// Logout はセッションを破棄する。セッションIDが空の場合は何もしない。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.config.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

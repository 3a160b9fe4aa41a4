package handler

import (
	"context"
	"html/template"
	"time"

	"github.com/hitoshi/btcdash/internal/auth"
	"github.com/hitoshi/btcdash/internal/chart"
	"github.com/hitoshi/btcdash/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	issueOTPFn       func(ctx context.Context, username string) (*auth.IssuedOTP, error)
	verifyOTPFn      func(ctx context.Context, username, code string) (*auth.LoginResult, error)
	setPasswordFn    func(ctx context.Context, userID, sessionID, password, confirm string) (*model.Session, error)
	currentAccountFn func(ctx context.Context, userID string) (*auth.Account, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) IssueOTP(ctx context.Context, username string) (*auth.IssuedOTP, error) {
	if m.issueOTPFn != nil {
		return m.issueOTPFn(ctx, username)
	}
	return nil, nil
}

func (m *mockAuthService) VerifyOTP(ctx context.Context, username, code string) (*auth.LoginResult, error) {
	if m.verifyOTPFn != nil {
		return m.verifyOTPFn(ctx, username, code)
	}
	return nil, nil
}

func (m *mockAuthService) SetPassword(ctx context.Context, userID, sessionID, password, confirm string) (*model.Session, error) {
	if m.setPasswordFn != nil {
		return m.setPasswordFn(ctx, userID, sessionID, password, confirm)
	}
	return nil, nil
}

func (m *mockAuthService) CurrentAccount(ctx context.Context, userID string) (*auth.Account, error) {
	if m.currentAccountFn != nil {
		return m.currentAccountFn(ctx, userID)
	}
	return &auth.Account{
		User:    &model.User{ID: userID, Username: "alice"},
		Profile: &model.Profile{UserID: userID, ClientID: "0123456789", MustSetPassword: true},
	}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockChartService struct {
	seriesFn func(ctx context.Context, now time.Time) (*chart.Series, error)
}

func (m *mockChartService) Series(ctx context.Context, now time.Time) (*chart.Series, error) {
	if m.seriesFn != nil {
		return m.seriesFn(ctx, now)
	}
	return &chart.Series{Dates: []string{}, Prices: []float64{}}, nil
}

type mockStaticPages struct {
	pageFn func(name string) (template.HTML, error)
}

func (m *mockStaticPages) Page(name string) (template.HTML, error) {
	if m.pageFn != nil {
		return m.pageFn(name)
	}
	return template.HTML("<h1>" + name + "</h1>"), nil
}

type mockSessionFinder struct {
	err error
}

// FindByID は"sess-1"のみ有効なセッションとして扱う。
func (m *mockSessionFinder) FindByID(_ context.Context, id string) (*model.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	if id != "sess-1" {
		return nil, nil
	}
	return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(_ context.Context) error {
	return m.err
}

// --- compile-time interface checks ---
var _ AuthServiceInterface = (*mockAuthService)(nil)
var _ ChartServiceInterface = (*mockChartService)(nil)
var _ StaticPages = (*mockStaticPages)(nil)
var _ HealthChecker = (*mockHealthChecker)(nil)

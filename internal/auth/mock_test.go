package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/btcdash/internal/metrics"
	"github.com/hitoshi/btcdash/internal/model"
	"github.com/hitoshi/btcdash/internal/repository"
)

// --- インメモリストア ---

// memStore はテスト用のインメモリストア。
// UNIQUE制約と条件付き更新をリポジトリ実装と同じ意味で再現する。
type memStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	profiles  map[string]*model.Profile
	sessions  map[string]*model.Session
	clientIDs map[string]string // client_id -> user_id
	nextID    int

	getOrCreateErr   error
	saveOTPErr       error
	createSessionErr error
	deleteSessionErr error
	calls            int
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]*model.User),
		profiles:  make(map[string]*model.Profile),
		sessions:  make(map[string]*model.Session),
		clientIDs: make(map[string]string),
	}
}

func (s *memStore) findUserByUsername(username string) *model.User {
	for _, u := range s.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls++
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls++
	u := r.s.findUserByUsername(username)
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetOrCreate(_ context.Context, username string) (*model.User, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls++
	if r.s.getOrCreateErr != nil {
		return nil, false, r.s.getOrCreateErr
	}
	if u := r.s.findUserByUsername(username); u != nil {
		cp := *u
		return &cp, false, nil
	}
	r.s.nextID++
	u := &model.User{ID: fmt.Sprintf("user-%d", r.s.nextID), Username: username}
	r.s.users[u.ID] = u
	cp := *u
	return &cp, true, nil
}

func (r *memUserRepo) SetPasswordHash(_ context.Context, userID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls++
	u, ok := r.s.users[userID]
	if !ok {
		return fmt.Errorf("user %s not found", userID)
	}
	u.PasswordHash = &hash
	return nil
}

type memProfileRepo struct{ s *memStore }

func (r *memProfileRepo) FindByUserID(_ context.Context, userID string) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls++
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProfileRepo) CreateIfAbsent(_ context.Context, profile *model.Profile) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls++
	if _, ok := r.s.profiles[profile.UserID]; ok {
		return false, nil
	}
	if _, taken := r.s.clientIDs[profile.ClientID]; taken {
		return false, repository.ErrClientIDTaken
	}
	cp := *profile
	r.s.profiles[profile.UserID] = &cp
	r.s.clientIDs[profile.ClientID] = profile.UserID
	return true, nil
}

func (r *memProfileRepo) SaveOTP(_ context.Context, userID, code string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls++
	if r.s.saveOTPErr != nil {
		return r.s.saveOTPErr
	}
	p, ok := r.s.profiles[userID]
	if !ok {
		return fmt.Errorf("profile %s not found", userID)
	}
	p.OTPCode = &code
	p.OTPExpiresAt = &expiresAt
	return nil
}

func (r *memProfileRepo) ConsumeOTP(_ context.Context, userID, code string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls++
	p, ok := r.s.profiles[userID]
	if !ok || !p.OTPMatches(code, now) {
		return false, nil
	}
	p.OTPCode = nil
	p.OTPExpiresAt = nil
	return true, nil
}

func (r *memProfileRepo) MarkPasswordSet(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls++
	p, ok := r.s.profiles[userID]
	if !ok {
		return fmt.Errorf("profile %s not found", userID)
	}
	p.MustSetPassword = false
	return nil
}

type memSessionRepo struct{ s *memStore }

func (r *memSessionRepo) Create(_ context.Context, session *model.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createSessionErr != nil {
		return r.s.createSessionErr
	}
	cp := *session
	r.s.sessions[session.ID] = &cp
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (r *memSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.deleteSessionErr != nil {
		return r.s.deleteSessionErr
	}
	delete(r.s.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

// --- その他のモック ---

// plainHasher はテスト高速化のためのPasswordHasher。
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return fmt.Errorf("mismatch")
	}
	return nil
}

// rejectingHasher は照合が常に失敗するPasswordHasher。
type rejectingHasher struct{ plainHasher }

func (rejectingHasher) Compare(_, _ string) error {
	return fmt.Errorf("mismatch")
}

// recordingMetrics は記録されたメトリクスを数える。
type recordingMetrics struct {
	mu          sync.Mutex
	issued      int
	created     int
	passwordSet int
	verify      map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{verify: make(map[string]int)}
}

func (m *recordingMetrics) RecordOTPIssued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
}

func (m *recordingMetrics) RecordAccountCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *recordingMetrics) RecordOTPVerification(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verify[result]++
}

func (m *recordingMetrics) RecordPasswordSet() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwordSet++
}

func (m *recordingMetrics) RecordHTTPStatus(_ int) {}

// testClock は手動で進められる時計。
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// queuedDigits は指定した値を順に返し、尽きたらRandomDigitsに委譲する。
type queuedDigits struct {
	values []string
}

func (q *queuedDigits) Next(n int) (string, error) {
	if len(q.values) > 0 {
		v := q.values[0]
		q.values = q.values[1:]
		return v, nil
	}
	return RandomDigits(n)
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*memUserRepo)(nil)
var _ repository.ProfileRepository = (*memProfileRepo)(nil)
var _ repository.SessionRepository = (*memSessionRepo)(nil)
var _ PasswordHasher = plainHasher{}
var _ PasswordHasher = rejectingHasher{}
var _ metrics.MetricsCollector = (*recordingMetrics)(nil)

// testEnv はテスト対象のServiceと依存をまとめる。
type testEnv struct {
	svc     *Service
	store   *memStore
	clock   *testClock
	digits  *queuedDigits
	metrics *recordingMetrics
}

func newTestEnv(opts ...func(*ServiceConfig)) *testEnv {
	store := newMemStore()
	clock := &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	digits := &queuedDigits{}
	rec := newRecordingMetrics()

	cfg := ServiceConfig{
		SessionMaxAge:       86400,
		OTPTTL:              5 * time.Minute,
		ClientIDMaxAttempts: 100,
		PasswordMinLength:   6,
		Now:                 clock.Now,
		Digits:              digits.Next,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	svc := NewService(
		&memUserRepo{s: store},
		&memProfileRepo{s: store},
		&memSessionRepo{s: store},
		plainHasher{},
		rec,
		cfg,
	)
	return &testEnv{svc: svc, store: store, clock: clock, digits: digits, metrics: rec}
}

package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shari-ar/Assets/internal/audit"
	"github.com/shari-ar/Assets/internal/auth"
	"github.com/shari-ar/Assets/internal/domain"
	apperrors "github.com/shari-ar/Assets/pkg/errors"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// --- Mock Refresh Token Repository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	args := m.Called(ctx, id, usedAt)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Capturing auditor ---

// captureAuditor records every audit event handed to it. ok mimics a
// degraded audit store when false.
type captureAuditor struct {
	mu     sync.Mutex
	events []audit.Event
	ok     bool
}

func newCaptureAuditor() *captureAuditor {
	return &captureAuditor{ok: true}
}

func (c *captureAuditor) Record(_ context.Context, ev audit.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.ok
}

func (c *captureAuditor) byAction(action domain.AuditAction) []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []audit.Event
	for _, ev := range c.events {
		if ev.Action == action {
			out = append(out, ev)
		}
	}
	return out
}

// --- Stub throttle ---

type stubThrottle struct {
	blocked  bool
	failures int
	resets   int
}

func (s *stubThrottle) Blocked(context.Context, string, string) (bool, error) {
	return s.blocked, nil
}

func (s *stubThrottle) RecordFailure(context.Context, string, string) error {
	s.failures++
	return nil
}

func (s *stubThrottle) Reset(context.Context, string, string) error {
	s.resets++
	return nil
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCodec() *auth.TokenCodec {
	return auth.NewTokenCodec("test-secret-key-for-testing", 15*time.Minute)
}

func newTestService(users *mockUserRepository, tokens *mockRefreshTokenRepository, auditor Auditor, throttle Throttle) *AuthService {
	return NewAuthService(users, tokens, newTestCodec(), auditor, nil, throttle, 14*24*time.Hour, newTestLogger())
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func activeUser(password string) *domain.User {
	return &domain.User{
		ID:           "7c32e9e1-3f3b-4b59-9f7a-2f5f6cbb7f10",
		Email:        "a@example.com",
		PasswordHash: hashForTest(password),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         domain.RoleUser,
		IsActive:     true,
		DateJoined:   time.Now().UTC().Add(-24 * time.Hour),
	}
}

var testClient = ClientInfo{UserAgent: "go-test", IPAddress: "203.0.113.7"}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	user := activeUser("P@ss123!")
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)

	var stored *domain.RefreshToken
	tokens.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*domain.RefreshToken)
		}).
		Return(nil)

	session, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "P@ss123!"}, testClient)

	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	// The stored record holds the hash of the raw secret, never the secret.
	require.NotNil(t, stored)
	assert.Equal(t, auth.HashSecret(session.RefreshToken), stored.TokenHash)
	assert.NotEqual(t, session.RefreshToken, stored.TokenHash)
	assert.Equal(t, user.ID, stored.UserID)
	assert.False(t, stored.Revoked)
	assert.Equal(t, "go-test", stored.UserAgent)
	assert.Equal(t, "203.0.113.7", stored.IPAddress)

	// Access token claims decode back to the user's identity and role.
	claims, err := newTestCodec().Validate(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, "a@example.com", claims.Email)

	logins := auditor.byAction(domain.AuditLogin)
	require.Len(t, logins, 1)
	assert.True(t, logins[0].Successful)
	assert.Equal(t, user.ID, logins[0].UserID)

	users.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestLogin_UnknownUser(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.NotFound("user", "ghost@example.com"))

	session, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "whatever1A"}, testClient)

	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	logins := auditor.byAction(domain.AuditLogin)
	require.Len(t, logins, 1)
	assert.False(t, logins[0].Successful)
}

func TestLogin_WrongPassword_SameFailureAsUnknownUser(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	user := activeUser("Correct1!")
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)

	session, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "Wrong1!!"}, testClient)

	assert.Nil(t, session)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// The message must not reveal whether the account exists.
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid email or password", appErr.Message)
}

func TestLogin_InactiveAccount(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	user := activeUser("P@ss123!")
	user.IsActive = false
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)

	session, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "P@ss123!"}, testClient)

	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	logins := auditor.byAction(domain.AuditLogin)
	require.Len(t, logins, 1)
	assert.False(t, logins[0].Successful)
	assert.Equal(t, user.ID, logins[0].UserID)
}

func TestLogin_Throttled(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	throttle := &stubThrottle{blocked: true}
	svc := newTestService(users, tokens, auditor, throttle)
	ctx := context.Background()

	session, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "P@ss123!"}, testClient)

	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
	users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestLogin_FailureCountsTowardThrottle(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	throttle := &stubThrottle{}
	svc := newTestService(users, tokens, auditor, throttle)
	ctx := context.Background()

	user := activeUser("Correct1!")
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "Wrong1!!"}, testClient)

	assert.Error(t, err)
	assert.Equal(t, 1, throttle.failures)
	assert.Equal(t, 0, throttle.resets)
}

func TestLogin_SuccessResetsThrottle(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	throttle := &stubThrottle{}
	svc := newTestService(users, tokens, auditor, throttle)
	ctx := context.Background()

	user := activeUser("P@ss123!")
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)
	tokens.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	_, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "P@ss123!"}, testClient)

	require.NoError(t, err)
	assert.Equal(t, 1, throttle.resets)
	assert.Equal(t, 0, throttle.failures)
}

func TestLogin_AuditStoreFailureDoesNotPropagate(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	auditor.ok = false
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	user := activeUser("P@ss123!")
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)
	tokens.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	session, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "P@ss123!"}, testClient)

	require.NoError(t, err)
	assert.NotNil(t, session)
}

// --- Refresh Tests ---

func usableRecord(userID string, raw string) *domain.RefreshToken {
	now := time.Now().UTC()
	return &domain.RefreshToken{
		ID:        "9f0e2a51-4f42-43df-93b0-6f3b82c9a111",
		UserID:    userID,
		TokenHash: auth.HashSecret(raw),
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestRefresh_Success(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	user := activeUser("P@ss123!")
	raw, _, err := auth.NewRefreshSecret()
	require.NoError(t, err)
	record := usableRecord(user.ID, raw)

	tokens.On("GetByHash", ctx, record.TokenHash).Return(record, nil)
	users.On("GetByID", ctx, user.ID).Return(user, nil)
	tokens.On("MarkUsed", ctx, record.ID, mock.AnythingOfType("time.Time")).Return(nil)
	tokens.On("Revoke", ctx, record.TokenHash).Return(true, nil)

	var issued *domain.RefreshToken
	tokens.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).
		Run(func(args mock.Arguments) {
			issued = args.Get(1).(*domain.RefreshToken)
		}).
		Return(nil)

	session, err := svc.Refresh(ctx, raw, testClient)

	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEqual(t, raw, session.RefreshToken)

	require.NotNil(t, issued)
	assert.Equal(t, auth.HashSecret(session.RefreshToken), issued.TokenHash)
	assert.NotEqual(t, record.TokenHash, issued.TokenHash)

	refreshes := auditor.byAction(domain.AuditRefresh)
	require.Len(t, refreshes, 1)
	assert.True(t, refreshes[0].Successful)
	assert.Equal(t, issued.ID, refreshes[0].Metadata["refresh_token_id"])

	tokens.AssertExpectations(t)
}

func TestRefresh_UnknownToken(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	tokens.On("GetByHash", ctx, mock.AnythingOfType("string")).
		Return(nil, apperrors.NotFound("refresh token", "unknown"))

	session, err := svc.Refresh(ctx, "not-a-real-secret", testClient)

	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_RevokedToken_DefensivelyReRevoked(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	raw, _, err := auth.NewRefreshSecret()
	require.NoError(t, err)
	record := usableRecord("user-1", raw)
	record.Revoked = true

	tokens.On("GetByHash", ctx, record.TokenHash).Return(record, nil)
	tokens.On("Revoke", ctx, record.TokenHash).Return(false, nil)

	session, err := svc.Refresh(ctx, raw, testClient)

	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	tokens.AssertCalled(t, "Revoke", ctx, record.TokenHash)
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRefresh_ExpiryBoundaryIsExpired(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	raw, _, err := auth.NewRefreshSecret()
	require.NoError(t, err)
	record := usableRecord("user-1", raw)
	// Expiry in the past by the time Refresh compares; boundary equality
	// counts as expired too (strict > comparison in Usable).
	record.ExpiresAt = time.Now().UTC()

	tokens.On("GetByHash", ctx, record.TokenHash).Return(record, nil)
	tokens.On("Revoke", ctx, record.TokenHash).Return(true, nil)

	session, err := svc.Refresh(ctx, raw, testClient)

	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_InactiveOwner(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	user := activeUser("P@ss123!")
	user.IsActive = false
	raw, _, err := auth.NewRefreshSecret()
	require.NoError(t, err)
	record := usableRecord(user.ID, raw)

	tokens.On("GetByHash", ctx, record.TokenHash).Return(record, nil)
	users.On("GetByID", ctx, user.ID).Return(user, nil)
	tokens.On("RevokeAllForUser", ctx, user.ID).Return(nil)

	session, err := svc.Refresh(ctx, raw, testClient)

	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	// Deactivation forfeits every session the user holds, not just this one.
	tokens.AssertCalled(t, "RevokeAllForUser", ctx, user.ID)

	revocations := auditor.byAction(domain.AuditTokenRevoked)
	require.Len(t, revocations, 1)
}

func TestRefresh_ConcurrentRotation_LoserFails(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	user := activeUser("P@ss123!")
	raw, _, err := auth.NewRefreshSecret()
	require.NoError(t, err)
	record := usableRecord(user.ID, raw)

	tokens.On("GetByHash", ctx, record.TokenHash).Return(record, nil)
	users.On("GetByID", ctx, user.ID).Return(user, nil)
	tokens.On("MarkUsed", ctx, record.ID, mock.AnythingOfType("time.Time")).Return(nil)
	// Another request won the compare-and-set on the revoked flag.
	tokens.On("Revoke", ctx, record.TokenHash).Return(false, nil)

	session, err := svc.Refresh(ctx, raw, testClient)

	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// --- Rotation sequence with an in-memory store ---

// memoryTokenStore gives the rotation tests real single-use semantics
// without a database.
type memoryTokenStore struct {
	mu     sync.Mutex
	byHash map[string]*domain.RefreshToken
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{byHash: make(map[string]*domain.RefreshToken)}
}

func (s *memoryTokenStore) Create(_ context.Context, token *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.byHash[token.TokenHash] = &cp
	return nil
}

func (s *memoryTokenStore) GetByHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byHash[tokenHash]
	if !ok {
		return nil, apperrors.NotFound("refresh token", tokenHash)
	}
	cp := *rec
	return &cp, nil
}

func (s *memoryTokenStore) MarkUsed(_ context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.byHash {
		if rec.ID == id {
			rec.LastUsedAt = &usedAt
		}
	}
	return nil
}

func (s *memoryTokenStore) Revoke(_ context.Context, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byHash[tokenHash]
	if !ok || rec.Revoked {
		return false, nil
	}
	rec.Revoked = true
	return true, nil
}

func (s *memoryTokenStore) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.byHash {
		if rec.UserID == userID {
			rec.Revoked = true
		}
	}
	return nil
}

func (s *memoryTokenStore) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.byHash {
		if !rec.Revoked {
			n++
		}
	}
	return n
}

func TestRefresh_ReplayAfterRotationFails(t *testing.T) {
	users := new(mockUserRepository)
	store := newMemoryTokenStore()
	auditor := newCaptureAuditor()
	svc := NewAuthService(users, store, newTestCodec(), auditor, nil, nil, 14*24*time.Hour, newTestLogger())
	ctx := context.Background()

	user := activeUser("P@ss123!")
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)
	users.On("GetByID", ctx, user.ID).Return(user, nil)

	session, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "P@ss123!"}, testClient)
	require.NoError(t, err)

	first, err := svc.Refresh(ctx, session.RefreshToken, testClient)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Replaying the rotated secret must fail, not mint another session.
	second, err := svc.Refresh(ctx, session.RefreshToken, testClient)
	assert.Nil(t, second)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_SequentialRotationsLeaveOneActiveToken(t *testing.T) {
	users := new(mockUserRepository)
	store := newMemoryTokenStore()
	auditor := newCaptureAuditor()
	svc := NewAuthService(users, store, newTestCodec(), auditor, nil, nil, 14*24*time.Hour, newTestLogger())
	ctx := context.Background()

	user := activeUser("P@ss123!")
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)
	users.On("GetByID", ctx, user.ID).Return(user, nil)

	session, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "P@ss123!"}, testClient)
	require.NoError(t, err)

	secret := session.RefreshToken
	const rotations = 5
	for i := 0; i < rotations; i++ {
		next, err := svc.Refresh(ctx, secret, testClient)
		require.NoError(t, err, "rotation %d", i)
		secret = next.RefreshToken
	}

	assert.Equal(t, 1, store.activeCount())
}

func TestRefresh_DeactivatedOwnerLosesEverySession(t *testing.T) {
	users := new(mockUserRepository)
	store := newMemoryTokenStore()
	auditor := newCaptureAuditor()
	svc := NewAuthService(users, store, newTestCodec(), auditor, nil, nil, 14*24*time.Hour, newTestLogger())
	ctx := context.Background()

	user := activeUser("P@ss123!")
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)
	users.On("GetByID", ctx, user.ID).Return(user, nil)

	// Two concurrent sessions (say laptop and phone).
	first, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "P@ss123!"}, testClient)
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "P@ss123!"}, testClient)
	require.NoError(t, err)
	require.Equal(t, 2, store.activeCount())

	user.IsActive = false

	session, err := svc.Refresh(ctx, first.RefreshToken, testClient)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// The other session's token is gone too.
	assert.Equal(t, 0, store.activeCount())
}

// --- Logout Tests ---

func TestLogout_RevokesKnownToken(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	raw, _, err := auth.NewRefreshSecret()
	require.NoError(t, err)
	record := usableRecord("user-1", raw)

	tokens.On("GetByHash", ctx, record.TokenHash).Return(record, nil)
	tokens.On("Revoke", ctx, record.TokenHash).Return(true, nil)

	svc.Logout(ctx, raw, testClient)

	tokens.AssertExpectations(t)

	logouts := auditor.byAction(domain.AuditLogout)
	require.Len(t, logouts, 1)
	assert.True(t, logouts[0].Successful)
	assert.Equal(t, record.ID, logouts[0].Metadata["refresh_token_id"])
}

func TestLogout_NoToken_StillAudited(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)

	svc.Logout(context.Background(), "", testClient)

	logouts := auditor.byAction(domain.AuditLogout)
	require.Len(t, logouts, 1)
	assert.True(t, logouts[0].Successful)
	assert.Equal(t, "no refresh token", logouts[0].Metadata["reason"])
}

func TestLogout_UnknownToken_StillSucceeds(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	tokens.On("GetByHash", ctx, mock.AnythingOfType("string")).
		Return(nil, apperrors.NotFound("refresh token", "gone"))

	svc.Logout(ctx, "some-stale-secret", testClient)

	logouts := auditor.byAction(domain.AuditLogout)
	require.Len(t, logouts, 1)
	assert.True(t, logouts[0].Successful)
	assert.Equal(t, "unknown refresh token", logouts[0].Metadata["reason"])
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	var created *domain.User
	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.User)
		}).
		Return(nil)

	input := RegisterInput{
		FullName: "Grace Brewster Hopper",
		Email:    "Grace@Example.com",
		Password: "SecurePass123",
	}

	user, err := svc.Register(ctx, input, testClient)

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Equal(t, "Grace", user.FirstName)
	assert.Equal(t, "Brewster Hopper", user.LastName)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, user.IsActive)

	require.NotNil(t, created)
	assert.NotEqual(t, "SecurePass123", created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("SecurePass123")))

	registers := auditor.byAction(domain.AuditRegister)
	require.Len(t, registers, 1)
	assert.True(t, registers[0].Successful)

	users.AssertExpectations(t)
}

func TestRegister_WeakPassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1"},
		{"no uppercase", "securepass123"},
		{"no digit", "SecurePassword"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := new(mockUserRepository)
			tokens := new(mockRefreshTokenRepository)
			auditor := newCaptureAuditor()
			svc := newTestService(users, tokens, auditor, nil)

			input := RegisterInput{
				FullName: "Jane Doe",
				Email:    "jane@example.com",
				Password: tc.password,
			}

			user, err := svc.Register(context.Background(), input, testClient)

			assert.Nil(t, user)
			require.ErrorIs(t, err, apperrors.ErrValidation)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Contains(t, appErr.Fields, "password")

			// No user record is created; exactly one failed audit entry.
			users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			registers := auditor.byAction(domain.AuditRegister)
			require.Len(t, registers, 1)
			assert.False(t, registers[0].Successful)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	auditor := newCaptureAuditor()
	svc := newTestService(users, tokens, auditor, nil)
	ctx := context.Background()

	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.Conflict("an account with this email already exists"))

	input := RegisterInput{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Password: "SecurePass123",
	}

	user, err := svc.Register(ctx, input, testClient)

	assert.Nil(t, user)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "email")

	registers := auditor.byAction(domain.AuditRegister)
	require.Len(t, registers, 1)
	assert.False(t, registers[0].Successful)
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edupay/edupay-api/internal/models"
	appErrors "github.com/edupay/edupay-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]models.User
	byEmail       map[string]string
	refreshTokens map[string]models.RefreshToken
	auditLogs     []models.AuditLog
	revokedUsers  []string
	lastLogin     *time.Time
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         make(map[string]models.User),
		byEmail:       make(map[string]string),
		refreshTokens: make(map[string]models.RefreshToken),
	}
}

func (m *mockAuthRepo) addUser(user models.User) {
	m.users[user.ID] = user
	m.byEmail[user.Email] = user.ID
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if id, ok := m.byEmail[email]; ok {
		u := m.users[id]
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Count(ctx context.Context) (int, error) {
	return len(m.users), nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.addUser(*user)
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin = &ts
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = *token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			m.refreshTokens[key] = t
		}
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	for key, t := range m.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
			m.refreshTokens[key] = t
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "edupay-api",
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceRegisterFirstUserBecomesAdmin(t *testing.T) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "first@example.com",
		Password: "secret123",
		FullName: "First User",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, info.Role)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRegister, repo.auditLogs[0].Action)
}

func TestAuthServiceRegisterLaterUsersDefaultToStaff(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{ID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "second@example.com",
		Password: "secret123",
		FullName: "Second User",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, info.Role)
}

func TestAuthServiceRegisterIgnoresRequestedAdminRole(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{ID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "intruder@example.com",
		Password: "secret123",
		FullName: "Intruder",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, info.Role)

	stored, err := repo.FindByEmail(context.Background(), "intruder@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, stored.Role)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{ID: "u-1", Email: "taken@example.com"})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "taken@example.com",
		Password: "secret123",
		FullName: "Dup",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:           "u-1",
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		FullName:     "User",
		Role:         models.RoleStaff,
		Active:       true,
	})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "u-1", resp.User.ID)
	require.NotNil(t, repo.lastLogin)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:           "u-1",
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Active:       true,
	})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:           "u-1",
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Active:       false,
	})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{ID: "u-1", Email: "user@example.com", Active: true})
	repo.refreshTokens["old-token"] = models.RefreshToken{
		ID:        "rt-1",
		UserID:    "u-1",
		Token:     "old-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.True(t, repo.refreshTokens["old-token"].Revoked)
}

func TestAuthServiceRefreshRejectsExpiredToken(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{ID: "u-1", Active: true})
	repo.refreshTokens["stale"] = models.RefreshToken{
		ID:        "rt-1",
		UserID:    "u-1",
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := newMockAuthRepo()
	repo.refreshTokens["token"] = models.RefreshToken{
		ID:        "rt-1",
		UserID:    "owner",
		Token:     "token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.Logout(context.Background(), "token", "intruder", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePasswordRevokesSessions(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:           "u-1",
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "oldpass1"),
		Active:       true,
	})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u-1", models.ChangePasswordRequest{
		OldPassword: "oldpass1",
		NewPassword: "newpass1",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedUsers, "u-1")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u-1"].PasswordHash), []byte("newpass1")))
}

func TestAuthServiceChangePasswordWrongOldPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{
		ID:           "u-1",
		PasswordHash: hashPassword(t, "oldpass1"),
	})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u-1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newpass1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(models.User{ID: "u-1", Email: "user@example.com", PasswordHash: hashPassword(t, "secret123"), Active: true})
	issuer := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret123"})
	require.NoError(t, err)

	other := testAuthConfig()
	other.AccessTokenSecret = "different-secret"
	verifier := NewAuthService(repo, validator.New(), zap.NewNop(), other)

	_, err = verifier.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

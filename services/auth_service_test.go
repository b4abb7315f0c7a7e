package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyward-io/keyward/cache"
	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/errors"
	"github.com/keyward-io/keyward/internal/auth"
)

// --- Mock Implementations ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) AssignRole(ctx context.Context, userID, roleName string) error {
	args := m.Called(ctx, userID, roleName)
	return args.Error(0)
}

func (m *MockUserRepository) RemoveRole(ctx context.Context, userID, roleName string) error {
	args := m.Called(ctx, userID, roleName)
	return args.Error(0)
}

type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Store(ctx context.Context, token *domain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) GetByValue(ctx context.Context, value string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) DeleteByValue(ctx context.Context, value string) (bool, error) {
	args := m.Called(ctx, value)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefreshTokenRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) DeleteExpired(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Test fixtures ---

func newTestAuthService(t *testing.T, userRepo domain.UserRepository) (*AuthService, *cache.MemoryRefreshStore) {
	t.Helper()
	store := cache.NewMemoryRefreshStore()
	t.Cleanup(func() { _ = store.Close() })
	tokens := NewTokenService(store, testAccessSecret, 15*time.Minute, 7*24*time.Hour)
	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	return NewAuthService(userRepo, store, tokens, hasher, domain.RoleUser), store
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.NewBcryptPasswordHasher(bcrypt.MinCost).Hash(password)
	require.NoError(t, err)
	return hash
}

func activeUser(t *testing.T, password string) *domain.User {
	return &domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: hashPassword(t, password),
		Provider:     domain.ProviderLocal,
		IsActive:     true,
		Roles:        []string{domain.RoleUser},
	}
}

// --- Register ---

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("successful registration", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		userRepo.On("GetUserByEmail", ctx, "new@example.com").Return(nil, errors.NewNotFound("user not found"))
		userRepo.On("CreateUser", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
		userRepo.On("AssignRole", ctx, mock.AnythingOfType("string"), domain.RoleUser).Return(nil)

		user, pair, err := svc.Register(ctx, RegisterInput{
			Email:     "New@Example.com",
			Password:  "password123",
			FirstName: "New",
			LastName:  "User",
		})
		require.NoError(t, err)
		require.NotNil(t, pair)

		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, domain.ProviderLocal, user.Provider)
		assert.True(t, user.IsActive)
		assert.Contains(t, user.Roles, domain.RoleUser)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "password123", user.PasswordHash)

		userRepo.AssertExpectations(t)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		userRepo.On("GetUserByEmail", ctx, "taken@example.com").Return(activeUser(t, "pw"), nil)

		_, _, err := svc.Register(ctx, RegisterInput{Email: "taken@example.com", Password: "password123"})
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("duplicate surfacing from the store is a conflict", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		// A concurrent registration can slip between the lookup and the
		// insert; the unique index reports it.
		userRepo.On("GetUserByEmail", ctx, "race@example.com").Return(nil, errors.NewNotFound("user not found"))
		userRepo.On("CreateUser", ctx, mock.Anything).Return(errors.NewConflict("user with this email already exists"))

		_, _, err := svc.Register(ctx, RegisterInput{Email: "race@example.com", Password: "password123"})
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		_, _, err := svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "password123"})
		assert.True(t, errors.IsValidation(err))

		_, _, err = svc.Register(ctx, RegisterInput{Email: "ok@example.com", Password: "short"})
		assert.True(t, errors.IsValidation(err))
	})
}

// --- Login ---

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, store := newTestAuthService(t, userRepo)

		userRepo.On("GetUserByEmail", ctx, "alice@example.com").Return(activeUser(t, "password123"), nil)
		userRepo.On("UpdateUser", ctx, mock.Anything).Return(nil)

		user, pair, err := svc.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.NotNil(t, user.LastLoginAt)

		record, err := store.GetByValue(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", record.UserID)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		userRepo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, errors.NewNotFound("user not found"))
		userRepo.On("GetUserByEmail", ctx, "alice@example.com").Return(activeUser(t, "password123"), nil)

		_, _, errUnknown := svc.Login(ctx, "ghost@example.com", "whatever")
		require.Error(t, errUnknown)
		assert.True(t, errors.IsUnauthorized(errUnknown))

		_, _, errWrongPw := svc.Login(ctx, "alice@example.com", "wrong-password")
		require.Error(t, errWrongPw)
		assert.True(t, errors.IsUnauthorized(errWrongPw))

		assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
	})

	t.Run("federated-only account cannot password login", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		federated := &domain.User{
			ID:       "user-2",
			Email:    "fed@example.com",
			Provider: domain.ProviderGoogle,
			IsActive: true,
		}
		userRepo.On("GetUserByEmail", ctx, "fed@example.com").Return(federated, nil)
		userRepo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, errors.NewNotFound("user not found"))

		_, _, err := svc.Login(ctx, "fed@example.com", "anything")
		require.Error(t, err)
		assert.True(t, errors.IsUnauthorized(err))

		// Same message as an unknown email.
		_, _, errUnknown := svc.Login(ctx, "ghost@example.com", "anything")
		assert.Equal(t, errUnknown.Error(), err.Error())
	})

	t.Run("disabled account is rejected after password check", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		disabled := activeUser(t, "password123")
		disabled.IsActive = false
		userRepo.On("GetUserByEmail", ctx, "alice@example.com").Return(disabled, nil)

		_, _, err := svc.Login(ctx, "alice@example.com", "password123")
		require.Error(t, err)
		assert.True(t, errors.IsUnauthorized(err))
		assert.Contains(t, err.Error(), "disabled")
	})
}

// --- Refresh ---

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation kills the old value", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		userRepo.On("GetUserByEmail", ctx, "alice@example.com").Return(activeUser(t, "password123"), nil)
		userRepo.On("GetUserByID", ctx, "user-1").Return(activeUser(t, "password123"), nil)
		userRepo.On("UpdateUser", ctx, mock.Anything).Return(nil)

		_, pair, err := svc.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)

		newPair, err := svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

		// The consumed value is permanently dead.
		_, err = svc.Refresh(ctx, pair.RefreshToken)
		require.Error(t, err)
		assert.True(t, errors.IsUnauthorized(err))

		// The new value still works.
		_, err = svc.Refresh(ctx, newPair.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("unknown value is unauthorized", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		_, err := svc.Refresh(ctx, "no-such-value")
		require.Error(t, err)
		assert.True(t, errors.IsUnauthorized(err))
	})

	t.Run("losing the delete race is unauthorized", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		refreshRepo := new(MockRefreshTokenRepository)
		tokens := NewTokenService(refreshRepo, testAccessSecret, 15*time.Minute, 7*24*time.Hour)
		svc := NewAuthService(userRepo, refreshRepo, tokens, auth.NewBcryptPasswordHasher(bcrypt.MinCost), domain.RoleUser)

		record := &domain.RefreshToken{
			Token:     "contested",
			UserID:    "user-1",
			ExpiresAt: time.Now().Add(time.Hour),
		}
		refreshRepo.On("GetByValue", ctx, "contested").Return(record, nil)
		refreshRepo.On("DeleteByValue", ctx, "contested").Return(false, nil)

		_, err := svc.Refresh(ctx, "contested")
		require.Error(t, err)
		assert.True(t, errors.IsUnauthorized(err))
		refreshRepo.AssertExpectations(t)
	})

	t.Run("deactivated owner cannot refresh", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		refreshRepo := new(MockRefreshTokenRepository)
		tokens := NewTokenService(refreshRepo, testAccessSecret, 15*time.Minute, 7*24*time.Hour)
		svc := NewAuthService(userRepo, refreshRepo, tokens, auth.NewBcryptPasswordHasher(bcrypt.MinCost), domain.RoleUser)

		record := &domain.RefreshToken{
			Token:     "stale",
			UserID:    "user-1",
			ExpiresAt: time.Now().Add(time.Hour),
		}
		disabled := activeUser(t, "pw")
		disabled.IsActive = false

		refreshRepo.On("GetByValue", ctx, "stale").Return(record, nil)
		refreshRepo.On("DeleteByValue", ctx, "stale").Return(true, nil)
		userRepo.On("GetUserByID", ctx, "user-1").Return(disabled, nil)

		_, err := svc.Refresh(ctx, "stale")
		require.Error(t, err)
		assert.True(t, errors.IsUnauthorized(err))
	})
}

// --- Logout ---

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	svc, store := newTestAuthService(t, userRepo)

	userRepo.On("GetUserByEmail", ctx, "alice@example.com").Return(activeUser(t, "password123"), nil)
	userRepo.On("UpdateUser", ctx, mock.Anything).Return(nil)

	_, pair, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	_, err = store.GetByValue(ctx, pair.RefreshToken)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	// Logout is idempotent.
	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, svc.Logout(ctx, ""))
}

// --- Federated login ---

func TestAuthService_FederatedLogin(t *testing.T) {
	ctx := context.Background()

	profile := &domain.ExternalProfile{
		Provider:       domain.ProviderGoogle,
		ProviderUserID: "google-sub-1",
		Email:          "Fed@Example.com",
		FirstName:      "Fed",
		LastName:       "User",
		AvatarURL:      "https://example.com/a.png",
	}

	t.Run("first contact creates a verified account", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		userRepo.On("GetUserByEmail", ctx, "fed@example.com").Return(nil, errors.NewNotFound("user not found"))
		userRepo.On("CreateUser", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == "fed@example.com" &&
				u.Provider == domain.ProviderGoogle &&
				u.ProviderID == "google-sub-1" &&
				u.PasswordHash == "" &&
				u.IsEmailVerified && u.IsActive
		})).Return(nil)
		userRepo.On("AssignRole", ctx, mock.AnythingOfType("string"), domain.RoleUser).Return(nil)
		userRepo.On("UpdateUser", ctx, mock.Anything).Return(nil)

		user, pair, err := svc.FederatedLogin(ctx, profile)
		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.True(t, user.IsEmailVerified)
		userRepo.AssertExpectations(t)
	})

	t.Run("existing local account keeps its credential", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		local := activeUser(t, "password123")
		local.Email = "fed@example.com"
		originalHash := local.PasswordHash

		userRepo.On("GetUserByEmail", ctx, "fed@example.com").Return(local, nil)
		userRepo.On("UpdateUser", ctx, mock.Anything).Return(nil)

		user, pair, err := svc.FederatedLogin(ctx, profile)
		require.NoError(t, err)
		require.NotNil(t, pair)

		assert.Equal(t, originalHash, user.PasswordHash)
		assert.Equal(t, domain.ProviderLocal, user.Provider)
		userRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("missing email is a validation error", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		_, _, err := svc.FederatedLogin(ctx, &domain.ExternalProfile{
			Provider:       domain.ProviderGitHub,
			ProviderUserID: "42",
		})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))

		_, _, err = svc.FederatedLogin(ctx, nil)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("disabled account cannot federated login", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(t, userRepo)

		disabled := activeUser(t, "pw")
		disabled.Email = "fed@example.com"
		disabled.IsActive = false
		userRepo.On("GetUserByEmail", ctx, "fed@example.com").Return(disabled, nil)

		_, _, err := svc.FederatedLogin(ctx, profile)
		require.Error(t, err)
		assert.True(t, errors.IsUnauthorized(err))
	})
}

// --- Deactivate ---

func TestAuthService_Deactivate(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	svc, store := newTestAuthService(t, userRepo)

	user := activeUser(t, "password123")
	userRepo.On("GetUserByEmail", ctx, "alice@example.com").Return(user, nil)
	userRepo.On("GetUserByID", ctx, "user-1").Return(user, nil)
	userRepo.On("UpdateUser", ctx, mock.Anything).Return(nil)

	_, pair, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, "user-1"))
	assert.False(t, user.IsActive)

	// All refresh tokens for the identity are gone.
	_, err = store.GetByValue(ctx, pair.RefreshToken)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestAuthService_Deactivate_UnknownUser(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	svc, _ := newTestAuthService(t, userRepo)

	userRepo.On("GetUserByID", ctx, "nope").Return(nil, errors.NewNotFound("user not found"))

	err := svc.Deactivate(ctx, "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/errors"
	"github.com/keyward-io/keyward/internal/audit"
	"github.com/keyward-io/keyward/internal/metrics"
)

const minPasswordLength = 8

// invalidCredentialsMsg is returned for unknown emails and wrong passwords
// alike so a caller cannot probe which addresses are registered.
const invalidCredentialsMsg = "invalid credentials"

// AuthService orchestrates the session flows: register, login, refresh,
// logout, federated login and deactivation.
type AuthService struct {
	userRepo     domain.UserRepository
	refreshRepo  domain.RefreshTokenRepository
	tokenService *TokenService
	hasher       PasswordHasher
	defaultRole  string
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo domain.UserRepository,
	refreshRepo domain.RefreshTokenRepository,
	tokenService *TokenService,
	hasher PasswordHasher,
	defaultRole string,
) *AuthService {
	if defaultRole == "" {
		defaultRole = domain.RoleUser
	}
	return &AuthService{
		userRepo:     userRepo,
		refreshRepo:  refreshRepo,
		tokenService: tokenService,
		hasher:       hasher,
		defaultRole:  defaultRole,
	}
}

// RegisterInput carries the fields of a local registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a local identity and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, *domain.TokenPair, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, errors.NewValidation("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, nil, errors.NewValidation("password must be at least 8 characters")
	}

	if existing, err := s.userRepo.GetUserByEmail(ctx, email); err == nil && existing != nil {
		audit.Log("AuthService", "Register", email, "", "Email already registered", false, nil)
		return nil, nil, errors.NewConflict("email is already registered")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		log.Error().Err(err).Msg("Register: failed to hash password")
		return nil, nil, errors.NewInternal("failed to process credentials").Wrap(err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Provider:     domain.ProviderLocal,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		audit.Log("AuthService", "Register", email, "", "Failed to create user", false, err)
		if errors.IsConflict(err) {
			return nil, nil, errors.NewConflict("email is already registered")
		}
		return nil, nil, err
	}

	// The role assignment is a second write with no transaction around it.
	// A crash in between leaves a user without the default role; login still
	// works, authorization simply grants nothing until the role is fixed up.
	if !user.HasRole(s.defaultRole) {
		if err := s.userRepo.AssignRole(ctx, user.ID, s.defaultRole); err != nil && !errors.IsConflict(err) {
			log.Warn().Err(err).Str("userID", user.ID).Str("role", s.defaultRole).
				Msg("Register: failed to assign default role")
		} else {
			user.Roles = append(user.Roles, s.defaultRole)
		}
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		audit.Log("AuthService", "Register", user.ID, user.ID, "Failed to generate token pair", false, err)
		return nil, nil, errors.NewInternal("could not generate tokens").Wrap(err)
	}

	audit.Log("AuthService", "Register", user.ID, user.ID, "", true, nil)
	metrics.UserRegisteredTotal.Inc()
	return user, pair, nil
}

// Login verifies a password credential and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	email = normalizeEmail(email)
	log.Debug().Str("email", email).Msg("Login attempt")

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		audit.Log("AuthService", "Login", email, "", "User not found", false, err)
		metrics.LoginFailureTotal.Inc()
		return nil, nil, errors.NewUnauthorized(invalidCredentialsMsg)
	}

	// Federated-only accounts have no stored hash and can never pass a
	// password login. Same message as an unknown email.
	if user.PasswordHash == "" {
		audit.Log("AuthService", "Login", user.ID, user.ID, "No local credential", false, nil)
		metrics.LoginFailureTotal.Inc()
		return nil, nil, errors.NewUnauthorized(invalidCredentialsMsg)
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		audit.Log("AuthService", "Login", user.ID, user.ID, "Incorrect password", false, err)
		metrics.LoginFailureTotal.Inc()
		return nil, nil, errors.NewUnauthorized(invalidCredentialsMsg)
	}

	if !user.IsActive {
		audit.Log("AuthService", "Login", user.ID, user.ID, "Account disabled", false, nil)
		metrics.LoginFailureTotal.Inc()
		return nil, nil, errors.NewUnauthorized("account is disabled")
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		audit.Log("AuthService", "Login", user.ID, user.ID, "Failed to generate token pair", false, err)
		return nil, nil, errors.NewInternal("could not generate tokens").Wrap(err)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		log.Warn().Err(err).Str("userID", user.ID).Msg("Login: failed to update LastLoginAt")
	}

	audit.Log("AuthService", "Login", user.ID, user.ID, "", true, nil)
	metrics.LoginSuccessTotal.Inc()
	return user, pair, nil
}

// Refresh rotates a refresh token: the presented value is consumed and a
// fresh pair is issued. Concurrent presentations of the same value race on
// the store's delete; exactly one wins, the rest are rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	record, err := s.refreshRepo.GetByValue(ctx, refreshToken)
	if err != nil || record == nil {
		if err != nil && !errors.IsNotFound(err) {
			log.Error().Err(err).Msg("Refresh: failed to look up refresh token")
			return nil, errors.NewInternal("could not look up refresh token").Wrap(err)
		}
		metrics.RefreshReuseTotal.Inc()
		return nil, errors.NewUnauthorized("invalid or expired refresh token")
	}

	deleted, err := s.refreshRepo.DeleteByValue(ctx, refreshToken)
	if err != nil {
		log.Error().Err(err).Msg("Refresh: failed to consume refresh token")
		return nil, errors.NewInternal("could not rotate refresh token").Wrap(err)
	}
	if !deleted {
		// Another caller consumed the value between our lookup and delete.
		audit.Log("AuthService", "Refresh", record.UserID, "", "Lost rotation race", false, nil)
		metrics.RefreshReuseTotal.Inc()
		return nil, errors.NewUnauthorized("invalid or expired refresh token")
	}

	user, err := s.userRepo.GetUserByID(ctx, record.UserID)
	if err != nil || user == nil {
		audit.Log("AuthService", "Refresh", record.UserID, "", "Owner not found", false, err)
		return nil, errors.NewUnauthorized("invalid or expired refresh token")
	}
	if !user.IsActive {
		audit.Log("AuthService", "Refresh", user.ID, user.ID, "Account disabled", false, nil)
		return nil, errors.NewUnauthorized("account is disabled")
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		// The old value is already dead; the caller must log in again.
		audit.Log("AuthService", "Refresh", user.ID, user.ID, "Failed to generate token pair", false, err)
		return nil, errors.NewInternal("could not generate tokens").Wrap(err)
	}

	audit.Log("AuthService", "Refresh", user.ID, user.ID, "", true, nil)
	metrics.TokensRefreshedTotal.Inc()
	return pair, nil
}

// Logout invalidates the presented refresh token. It is idempotent; an
// unknown or already consumed value is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if _, err := s.refreshRepo.DeleteByValue(ctx, refreshToken); err != nil {
		log.Error().Err(err).Msg("Logout: failed to delete refresh token")
		return errors.NewInternal("could not invalidate refresh token").Wrap(err)
	}
	return nil
}

// FederatedLogin signs in an identity authenticated by an external provider,
// creating the account on first contact. An existing local credential is
// never overwritten.
func (s *AuthService) FederatedLogin(ctx context.Context, profile *domain.ExternalProfile) (*domain.User, *domain.TokenPair, error) {
	if profile == nil || profile.Email == "" {
		return nil, nil, errors.NewValidation("provider profile carries no email")
	}
	email := normalizeEmail(profile.Email)

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		now := time.Now()
		user = &domain.User{
			ID:              uuid.NewString(),
			Email:           email,
			FirstName:       profile.FirstName,
			LastName:        profile.LastName,
			AvatarURL:       profile.AvatarURL,
			Provider:        profile.Provider,
			ProviderID:      profile.ProviderUserID,
			IsActive:        true,
			IsEmailVerified: true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.userRepo.CreateUser(ctx, user); err != nil {
			audit.Log("AuthService", "FederatedLogin", email, "", "Failed to create user", false, err)
			return nil, nil, err
		}
		if !user.HasRole(s.defaultRole) {
			if err := s.userRepo.AssignRole(ctx, user.ID, s.defaultRole); err != nil && !errors.IsConflict(err) {
				log.Warn().Err(err).Str("userID", user.ID).Str("role", s.defaultRole).
					Msg("FederatedLogin: failed to assign default role")
			} else {
				user.Roles = append(user.Roles, s.defaultRole)
			}
		}
	}

	if !user.IsActive {
		audit.Log("AuthService", "FederatedLogin", user.ID, user.ID, "Account disabled", false, nil)
		return nil, nil, errors.NewUnauthorized("account is disabled")
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		audit.Log("AuthService", "FederatedLogin", user.ID, user.ID, "Failed to generate token pair", false, err)
		return nil, nil, errors.NewInternal("could not generate tokens").Wrap(err)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		log.Warn().Err(err).Str("userID", user.ID).Msg("FederatedLogin: failed to update LastLoginAt")
	}

	audit.Log("AuthService", "FederatedLogin", user.ID, user.ID, string(profile.Provider), true, nil)
	metrics.FederatedLoginTotal.Inc()
	return user, pair, nil
}

// Deactivate disables an identity and revokes all its refresh tokens.
// Live access tokens stay valid until their natural expiry.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		return errors.NewNotFound("user not found")
	}
	user.IsActive = false
	user.UpdatedAt = time.Now()
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		audit.Log("AuthService", "Deactivate", userID, userID, "Failed to update user", false, err)
		return errors.NewInternal("could not deactivate user").Wrap(err)
	}
	if err := s.refreshRepo.DeleteAllForUser(ctx, userID); err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Deactivate: failed to revoke refresh tokens")
		return errors.NewInternal("could not revoke refresh tokens").Wrap(err)
	}
	audit.Log("AuthService", "Deactivate", userID, userID, "", true, nil)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

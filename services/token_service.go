package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/errors"
	"github.com/keyward-io/keyward/internal/metrics"
)

// refreshTokenBytes is the entropy of an opaque refresh-token value. The
// hex-encoded value is twice this long.
const refreshTokenBytes = 64

// TokenService mints and verifies access tokens and issues opaque refresh
// tokens backed by the refresh store.
type TokenService struct {
	refreshRepo  domain.RefreshTokenRepository
	accessSecret []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(
	refreshRepo domain.RefreshTokenRepository,
	accessSecret []byte,
	accessTTL, refreshTTL time.Duration,
) *TokenService {
	return &TokenService{
		refreshRepo:  refreshRepo,
		accessSecret: accessSecret,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

// IssueAccessToken mints an HS256-signed JWT for the user. The claim set is
// self-contained; verification never touches a store.
func (s *TokenService) IssueAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   jwt.NewNumericDate(now).Unix(),
		"exp":   jwt.NewNumericDate(now.Add(s.accessTTL)).Unix(),
		"jti":   uuid.NewString(),
	}
	if len(user.Roles) > 0 {
		claims["roles"] = user.Roles
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken parses and verifies an access token, returning its
// decoded claims. Expiry, signature and malformed failures all surface as
// unauthorized errors with distinct messages.
func (s *TokenService) VerifyAccessToken(tokenStr string) (*domain.AccessClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.accessSecret, nil
	})
	if err != nil {
		switch {
		case stderrors.Is(err, jwt.ErrTokenExpired):
			return nil, errors.NewUnauthorized("access token expired").Wrap(err)
		case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.NewUnauthorized("invalid token signature").Wrap(err)
		default:
			return nil, errors.NewUnauthorized("malformed access token").Wrap(err)
		}
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.NewUnauthorized("malformed access token")
	}
	return claimsFromMap(mapClaims)
}

// claimsFromMap converts raw JWT claims into the typed claim set.
func claimsFromMap(m jwt.MapClaims) (*domain.AccessClaims, error) {
	sub, _ := m["sub"].(string)
	if sub == "" {
		return nil, errors.NewUnauthorized("access token carries no subject")
	}
	claims := &domain.AccessClaims{UserID: sub}
	claims.Email, _ = m["email"].(string)

	if raw, ok := m["roles"].([]any); ok {
		claims.Roles = make([]string, 0, len(raw))
		for _, r := range raw {
			if name, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, name)
			}
		}
	}
	if iat, err := m.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// IssueRefreshToken mints a fresh opaque refresh value for the user and
// persists its record. The value carries no structure; only the store can
// tie it back to an identity.
func (s *TokenService) IssueRefreshToken(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	value := hex.EncodeToString(buf)

	now := time.Now()
	record := &domain.RefreshToken{
		Token:     value,
		UserID:    userID,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.refreshRepo.Store(ctx, record); err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Failed to store refresh token")
		return "", err
	}
	return value, nil
}

// GenerateTokenPair issues a new access and refresh token for the user.
func (s *TokenService) GenerateTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	metrics.TokensCreatedTotal.Inc()
	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

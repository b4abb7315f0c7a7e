package federation

import (
	"encoding/json"
	"fmt"

	"github.com/keyward-io/keyward/domain"
)

// GoogleProvider normalizes Google's OIDC userinfo document
// (https://www.googleapis.com/oauth2/v3/userinfo).
type GoogleProvider struct{}

func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{}
}

func (g *GoogleProvider) Name() domain.AuthProvider {
	return domain.ProviderGoogle
}

// ParseProfile normalizes a Google userinfo payload.
func (g *GoogleProvider) ParseProfile(payload []byte) (*domain.ExternalProfile, error) {
	var rawUserInfo struct {
		Sub           string `json:"sub"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Locale        string `json:"locale"`
		HD            string `json:"hd"` // Hosted domain for Workspace users
	}
	if err := json.Unmarshal(payload, &rawUserInfo); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProfile, err)
	}
	if rawUserInfo.Sub == "" {
		return nil, ErrMissingProviderID
	}

	firstName, lastName := rawUserInfo.GivenName, rawUserInfo.FamilyName
	if firstName == "" && lastName == "" {
		firstName, lastName = parseName(rawUserInfo.Name)
	}

	return &domain.ExternalProfile{
		Provider:       domain.ProviderGoogle,
		ProviderUserID: rawUserInfo.Sub,
		Email:          rawUserInfo.Email,
		FirstName:      firstName,
		LastName:       lastName,
		AvatarURL:      rawUserInfo.Picture,
	}, nil
}

var _ ProfileProvider = (*GoogleProvider)(nil)

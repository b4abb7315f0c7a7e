package federation

import (
	"encoding/json"
	"fmt"

	"github.com/keyward-io/keyward/domain"
)

// GitHubProvider normalizes GitHub's user document (https://api.github.com/user).
// GitHub often hides the email on the main profile; callers holding the
// /user/emails payload as well should use ParseProfileWithEmails.
type GitHubProvider struct{}

func NewGitHubProvider() *GitHubProvider {
	return &GitHubProvider{}
}

func (g *GitHubProvider) Name() domain.AuthProvider {
	return domain.ProviderGitHub
}

// ParseProfile normalizes a GitHub user payload.
func (g *GitHubProvider) ParseProfile(payload []byte) (*domain.ExternalProfile, error) {
	return g.ParseProfileWithEmails(payload, nil)
}

// ParseProfileWithEmails normalizes a GitHub user payload together with the
// /user/emails payload. The primary verified email wins; any verified email
// is the fallback when the profile email is private.
func (g *GitHubProvider) ParseProfileWithEmails(userPayload, emailsPayload []byte) (*domain.ExternalProfile, error) {
	var rawUserInfo struct {
		ID        json.Number `json:"id"` // GitHub user IDs are numeric
		Login     string      `json:"login"`
		Name      string      `json:"name"`
		Email     string      `json:"email"` // May be null when the user keeps it private
		AvatarURL string      `json:"avatar_url"`
	}
	if err := json.Unmarshal(userPayload, &rawUserInfo); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProfile, err)
	}
	if rawUserInfo.ID.String() == "" {
		return nil, ErrMissingProviderID
	}

	firstName, lastName := parseName(rawUserInfo.Name)
	if rawUserInfo.Name == "" && rawUserInfo.Login != "" {
		firstName = rawUserInfo.Login
	}

	primaryEmail := rawUserInfo.Email
	if len(emailsPayload) > 0 {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := json.Unmarshal(emailsPayload, &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					primaryEmail = e.Email
					break
				}
			}
			if primaryEmail == "" {
				for _, e := range emails {
					if e.Verified {
						primaryEmail = e.Email
						break
					}
				}
			}
		}
	}

	return &domain.ExternalProfile{
		Provider:       domain.ProviderGitHub,
		ProviderUserID: rawUserInfo.ID.String(),
		Email:          primaryEmail,
		FirstName:      firstName,
		LastName:       lastName,
		AvatarURL:      rawUserInfo.AvatarURL,
	}, nil
}

var _ ProfileProvider = (*GitHubProvider)(nil)

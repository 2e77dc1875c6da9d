package forge

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// appJWTLifetime is the validity window of the signed app JWT. GitHub
// rejects anything above ten minutes.
const appJWTLifetime = 9 * time.Minute

// AppConfig holds the credentials of a GitHub App installation.
type AppConfig struct {
	// AppID is the numeric GitHub App ID.
	AppID int64

	// InstallationID identifies the installation to mint tokens for.
	InstallationID int64

	// PrivateKey is the app's RSA private key in PEM form.
	PrivateKey []byte

	// BaseURL overrides the GitHub API endpoint, for GitHub Enterprise.
	BaseURL string
}

// appTokenSource exchanges a signed app JWT for installation tokens.
type appTokenSource struct {
	cfg AppConfig
	key *rsa.PrivateKey
}

// NewAppTokenSource creates an oauth2 token source that authenticates as
// a GitHub App installation. Tokens are cached until they expire.
func NewAppTokenSource(cfg AppConfig) (oauth2.TokenSource, error) {
	if cfg.AppID == 0 || cfg.InstallationID == 0 {
		return nil, fmt.Errorf("app ID and installation ID are required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse app private key: %w", err)
	}

	return oauth2.ReuseTokenSource(nil, &appTokenSource{cfg: cfg, key: key}), nil
}

// Token mints a fresh installation token.
func (s *appTokenSource) Token() (*oauth2.Token, error) {
	appJWT, err := signAppJWT(s.cfg.AppID, s.key, time.Now())
	if err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: appJWT})
	client := github.NewClient(oauth2.NewClient(context.Background(), ts))
	if s.cfg.BaseURL != "" {
		client, err = client.WithEnterpriseURLs(s.cfg.BaseURL, s.cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("set enterprise URL: %w", err)
		}
	}

	tok, _, err := client.Apps.CreateInstallationToken(context.Background(),
		s.cfg.InstallationID, &github.InstallationTokenOptions{})
	if err != nil {
		return nil, fmt.Errorf("create installation token: %w", err)
	}

	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		Expiry:      tok.GetExpiresAt().Time,
	}, nil
}

// signAppJWT builds the short-lived RS256 JWT GitHub Apps authenticate
// with. The issued-at claim is backdated to tolerate clock drift.
func signAppJWT(appID int64, key *rsa.PrivateKey, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign app JWT: %w", err)
	}
	return signed, nil
}

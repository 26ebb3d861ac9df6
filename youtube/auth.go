// Package youtube authorizes against and uploads videos to YouTube.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"

	"github.com/drewmudry/scriptcast/internal/platform"
)

// ErrNoToken means the channel has not been connected yet.
var ErrNoToken = errors.New("youtube: no stored OAuth token, connect the channel first")

// Authenticator owns the OAuth client configuration and the stored token.
type Authenticator struct {
	Config    *oauth2.Config
	TokenFile string
}

// NewAuthenticator reads the client secret JSON downloaded from the Google
// console.
func NewAuthenticator(cfg platform.YouTubeConfig) (*Authenticator, error) {
	b, err := os.ReadFile(cfg.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, yt.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}
	if cfg.RedirectURL != "" {
		conf.RedirectURL = cfg.RedirectURL
	}
	return &Authenticator{Config: conf, TokenFile: cfg.TokenFile}, nil
}

// AuthCodeURL is where the user grants upload access. Offline access is
// requested so the token can be refreshed without the user.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the callback code for a token and stores it.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := a.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := SaveToken(a.TokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Client returns an HTTP client that signs requests with the stored token,
// refreshing and re-saving it when it has expired.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	tok, err := LoadToken(a.TokenFile)
	if err != nil {
		return nil, err
	}

	ts := a.Config.TokenSource(ctx, tok)
	fresh, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if fresh.AccessToken != tok.AccessToken {
		if err := SaveToken(a.TokenFile, fresh); err != nil {
			return nil, err
		}
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(fresh, ts)), nil
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes tok as JSON, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

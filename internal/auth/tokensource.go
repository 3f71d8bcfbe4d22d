package auth

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// expirySlack refreshes a little early so a token never dies mid-request.
const expirySlack = time.Minute

// TokenSource trades the stored refresh token for short-lived access tokens
// on demand and caches them until shortly before expiry. The zero value is
// unusable; construct through the Service.
type TokenSource struct {
	svc *Service

	mu      sync.Mutex
	token   string
	expires time.Time
}

func (s *Service) TokenSource() *TokenSource {
	return &TokenSource{svc: s}
}

// Token returns a valid bearer token, refreshing if the cached one expired.
// ErrNoCredential means nobody has signed in yet.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expires.Add(-expirySlack)) {
		return t.token, nil
	}

	cred, err := t.svc.vault.Load()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("refresh_token", cred.RefreshToken)
	form.Set("client_id", t.svc.cfg.ClientID)
	form.Set("client_secret", t.svc.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")

	tr, err := t.svc.postTokenForm(ctx, form)
	if err != nil {
		return "", err
	}

	t.token = tr.AccessToken
	t.expires = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return t.token, nil
}

// Invalidate drops the cached token, forcing a refresh on next use.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()
}

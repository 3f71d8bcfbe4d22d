// Package auth implements the Google OAuth 2.0 code flow and turns its
// outcome into a local session cookie plus a stored YouTube credential.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	session "github.com/example/tubeview/internal/platform/auth"
	"github.com/example/tubeview/internal/platform/config"
	"github.com/example/tubeview/internal/platform/signing"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleUserinfo = "https://openidconnect.googleapis.com/v1/userinfo"
	googleScope    = "openid email https://www.googleapis.com/auth/youtube.readonly"

	stateTTL = 10 * time.Minute
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	IDToken      string `json:"id_token"`
}

type userInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

// Service drives the sign-in flow and owns the session cookie lifecycle.
type Service struct {
	cfg      config.GoogleConfig
	sessions *session.Sessions
	signer   *signing.Signer
	vault    *Vault
	client   *http.Client
	log      *zap.Logger

	// Endpoint URLs are fields so tests can point them at a local server.
	authURL     string
	tokenURL    string
	userinfoURL string
}

func NewService(cfg config.GoogleConfig, sessions *session.Sessions, signer *signing.Signer, vault *Vault, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cfg:         cfg,
		sessions:    sessions,
		signer:      signer,
		vault:       vault,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log.Named("auth"),
		authURL:     googleAuthURL,
		tokenURL:    googleTokenURL,
		userinfoURL: googleUserinfo,
	}
}

func (s *Service) Routes(r chi.Router) {
	r.Get("/auth/google/login", s.handleLogin)
	r.Get("/auth/google/callback", s.handleCallback)
	r.Post("/auth/logout", s.handleLogout)
}

// Sessions exposes the session verifier for route middleware.
func (s *Service) Sessions() *session.Sessions {
	return s.sessions
}

func (s *Service) configured() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != "" && s.cfg.RedirectURL != ""
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		http.Redirect(w, r, "/auth/error?reason=not_configured", http.StatusFound)
		return
	}

	redirect := r.URL.Query().Get("redirect")
	if redirect == "" || !strings.HasPrefix(redirect, "/") {
		redirect = "/"
	}
	state := s.signer.Encode(uuid.NewString(), redirect, time.Now().Add(stateTTL))

	v := url.Values{}
	v.Set("client_id", s.cfg.ClientID)
	v.Set("redirect_uri", s.cfg.RedirectURL)
	v.Set("response_type", "code")
	v.Set("scope", googleScope)
	v.Set("state", state)
	v.Set("access_type", "offline")
	v.Set("prompt", "consent")

	http.Redirect(w, r, s.authURL+"?"+v.Encode(), http.StatusFound)
}

func (s *Service) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		http.Redirect(w, r, "/auth/error?reason=not_configured", http.StatusFound)
		return
	}

	q := r.URL.Query()
	if errStr := q.Get("error"); errStr != "" {
		s.log.Warn("google returned error", zap.String("error", errStr))
		http.Redirect(w, r, "/auth/error?reason=denied", http.StatusFound)
		return
	}

	state, err := s.signer.Decode(q.Get("state"))
	if err != nil {
		s.log.Warn("state verification failed", zap.Error(err))
		http.Redirect(w, r, "/auth/error?reason=bad_state", http.StatusFound)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, "/auth/error?reason=missing_code", http.StatusFound)
		return
	}

	tr, err := s.exchangeCode(r.Context(), code)
	if err != nil {
		s.log.Warn("code exchange failed", zap.Error(err))
		http.Redirect(w, r, "/auth/error?reason=exchange_failed", http.StatusFound)
		return
	}

	ui, err := s.fetchUserinfo(r.Context(), tr.AccessToken)
	if err != nil {
		s.log.Warn("userinfo fetch failed", zap.Error(err))
		http.Redirect(w, r, "/auth/error?reason=userinfo_failed", http.StatusFound)
		return
	}

	email := strings.TrimSpace(strings.ToLower(ui.Email))
	if email == "" || ui.Sub == "" {
		http.Redirect(w, r, "/auth/error?reason=userinfo_failed", http.StatusFound)
		return
	}

	if tr.RefreshToken != "" {
		if err := s.vault.Store(Credential{Email: email, RefreshToken: tr.RefreshToken}); err != nil {
			s.log.Error("storing credential failed", zap.Error(err))
			http.Redirect(w, r, "/auth/error?reason=storage_failed", http.StatusFound)
			return
		}
	}

	token, err := s.sessions.Issue(ui.Sub, email)
	if err != nil {
		s.log.Error("issuing session failed", zap.Error(err))
		http.Redirect(w, r, "/auth/error?reason=session_failed", http.StatusFound)
		return
	}
	s.sessions.SetCookie(w, token, r.TLS != nil)

	s.log.Info("signed in", zap.String("email", email))
	http.Redirect(w, r, state.Redirect, http.StatusFound)
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	if err := s.vault.Clear(); err != nil {
		s.log.Warn("clearing credential failed", zap.Error(err))
	}
	http.Redirect(w, r, "/auth/signin", http.StatusFound)
}

func (s *Service) exchangeCode(ctx context.Context, code string) (tokenResponse, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("redirect_uri", s.cfg.RedirectURL)
	form.Set("grant_type", "authorization_code")
	return s.postTokenForm(ctx, form)
}

func (s *Service) postTokenForm(ctx context.Context, form url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("auth: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tokenResponse{}, fmt.Errorf("auth: token endpoint returned %d", resp.StatusCode)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return tokenResponse{}, fmt.Errorf("auth: decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return tokenResponse{}, fmt.Errorf("auth: token response missing access_token")
	}
	return tr, nil
}

func (s *Service) fetchUserinfo(ctx context.Context, accessToken string) (userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return userInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return userInfo{}, fmt.Errorf("auth: userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return userInfo{}, fmt.Errorf("auth: userinfo returned %d", resp.StatusCode)
	}
	var ui userInfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return userInfo{}, fmt.Errorf("auth: decode userinfo: %w", err)
	}
	return ui, nil
}

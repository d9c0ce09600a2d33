package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/service"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	_ TokenSource              = (*Session)(nil)
	_ service.IdentityProvider = (*Session)(nil)
)

// Session authenticates against the remote store and supplies the
// owner identity and bearer credential for gateway calls. It
// implements both TokenSource and service.IdentityProvider.
type Session struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client

	mu     sync.RWMutex
	token  string
	userID string
	email  string
}

// authResponse is the wire shape of a successful password grant.
type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// NewSession creates an unauthenticated session client.
func NewSession(baseURL, anonKey string) *Session {
	return &Session{
		baseURL: baseURL,
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SignIn exchanges the email/password pair for a bearer credential.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	if !emailPattern.MatchString(email) {
		return common.NewValidationError("email", "must be a valid address")
	}
	if len(password) < 6 {
		return common.NewValidationError("password", "must have at least 6 characters")
	}

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusBadRequest {
		return common.NewUserError("invalid email or password", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sign in returned %d", resp.StatusCode)
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	if parsed.AccessToken == "" || parsed.User.ID == "" {
		return fmt.Errorf("auth response missing token or user")
	}

	s.mu.Lock()
	s.token = parsed.AccessToken
	s.userID = parsed.User.ID
	s.email = parsed.User.Email
	s.mu.Unlock()

	return nil
}

// Resume restores previously persisted credentials without a network
// round trip.
func (s *Session) Resume(token, userID string) {
	s.mu.Lock()
	s.token = token
	s.userID = userID
	s.mu.Unlock()
}

// Validate confirms the stored credential is still accepted by the
// auth endpoint and refreshes the cached user identity.
func (s *Session) Validate(ctx context.Context) error {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return common.ErrNoIdentity
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		s.SignOut()
		return common.ErrAuthExpired
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session check returned %d", resp.StatusCode)
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return fmt.Errorf("failed to decode user: %w", err)
	}

	s.mu.Lock()
	s.userID = user.ID
	s.email = user.Email
	s.mu.Unlock()
	return nil
}

// SignOut discards the stored credentials.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.token = ""
	s.userID = ""
	s.email = ""
	s.mu.Unlock()
}

// Token implements TokenSource.
func (s *Session) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", common.ErrNoIdentity
	}
	return s.token, nil
}

// OwnerID implements service.IdentityProvider. An empty id with a nil
// error means no one is signed in.
func (s *Session) OwnerID(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, nil
}

// AccessToken returns the raw credential for persistence.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Email returns the signed-in user's email, if known.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

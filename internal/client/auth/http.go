package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/logging"
)

const (
	apiKeyHeader = "apikey"
	maxBodySize  = 1 << 20
)

// Config configures an HTTPGateway.
//
// BaseURL is the project root (the gateway appends /auth/v1/...). APIKey is
// sent in the apikey header on every call. CallbackURL is the deep link the
// emailed link redirects to. Pending defaults to an in-memory store, Client
// to http.DefaultClient and Now to time.Now.
type Config struct {
	BaseURL     string
	APIKey      string
	CallbackURL string
	Client      *http.Client
	Pending     PendingStore
	Logger      logging.Logger
	Now         func() time.Time
}

// HTTPGateway implements Gateway and Pinger over the GoTrue REST API.
type HTTPGateway struct {
	baseURL     string
	apiKey      string
	callbackURL string
	client      *http.Client
	pending     PendingStore
	logger      logging.Logger
	now         func() time.Time

	mu      sync.RWMutex
	session *models.Session
}

func NewHTTPGateway(cfg Config) (*HTTPGateway, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid auth base url %q", cfg.BaseURL)
	}
	if _, err := url.Parse(cfg.CallbackURL); err != nil || cfg.CallbackURL == "" {
		return nil, fmt.Errorf("invalid callback url %q", cfg.CallbackURL)
	}

	g := &HTTPGateway{
		baseURL:     base.String(),
		apiKey:      cfg.APIKey,
		callbackURL: cfg.CallbackURL,
		client:      cfg.Client,
		pending:     cfg.Pending,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	if g.pending == nil {
		g.pending = &memoryPending{}
	}
	if g.logger == nil {
		g.logger = logging.Nop()
	}
	if g.now == nil {
		g.now = time.Now
	}
	g.logger = g.logger.With("component", "auth_gateway")
	return g, nil
}

type otpRequest struct {
	Email               string `json:"email"`
	CreateUser          bool   `json:"create_user"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
}

type pkceRequest struct {
	AuthCode     string `json:"auth_code"`
	CodeVerifier string `json:"code_verifier"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

// RequestSignIn asks the service to email a magic link for email.
// Every call starts a new PKCE exchange and replaces the pending one.
func (g *HTTPGateway) RequestSignIn(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}

	verifier := newCodeVerifier()
	if err := g.pending.SavePending(ctx, email, verifier); err != nil {
		return fmt.Errorf("save pending sign-in: %w", err)
	}

	q := url.Values{}
	q.Set("redirect_to", g.callbackURL)
	body := otpRequest{
		Email:               email,
		CreateUser:          true,
		CodeChallenge:       codeChallenge(verifier),
		CodeChallengeMethod: codeChallengeMethod,
	}

	if err := g.call(ctx, http.MethodPost, "/otp", q, "", body, nil); err != nil {
		return mapStatus(err, ErrRequestRejected)
	}

	g.logger.Info(ctx, "magic link requested", "email", email)
	return nil
}

// ExchangeCallback turns a deep link into a Session. On success the session
// becomes the gateway's current session.
func (g *HTTPGateway) ExchangeCallback(ctx context.Context, rawURL string) (*models.Session, error) {
	p, err := parseCallback(rawURL, g.callbackURL)
	if err != nil {
		return nil, err
	}

	if p.Error != "" || p.Description != "" {
		msg := p.Description
		if msg == "" {
			msg = p.Error
		}
		if p.ErrorCode != "" {
			msg = p.ErrorCode + ": " + msg
		}
		return nil, fmt.Errorf("%w: %s", ErrExchangeRejected, msg)
	}

	var tr *tokenResponse
	if p.Code != "" {
		tr, err = g.exchangeCode(ctx, p.Code)
	} else {
		tr, err = g.exchangeTokens(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	s, err := g.buildSession(tr)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.session = s
	g.mu.Unlock()

	g.logger.Info(ctx, "session established", "user_id", s.UserID)
	return s, nil
}

func (g *HTTPGateway) exchangeCode(ctx context.Context, code string) (*tokenResponse, error) {
	_, verifier, err := g.pending.LoadPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending sign-in: %w", err)
	}
	if verifier == "" {
		return nil, fmt.Errorf("%w: no sign-in pending on this device", ErrExchangeRejected)
	}

	q := url.Values{}
	q.Set("grant_type", "pkce")

	var tr tokenResponse
	if err := g.call(ctx, http.MethodPost, "/token", q, "", pkceRequest{AuthCode: code, CodeVerifier: verifier}, &tr); err != nil {
		return nil, mapStatus(err, ErrExchangeRejected)
	}

	if err := g.pending.ClearPending(ctx); err != nil {
		g.logger.Warn(ctx, "clear pending sign-in failed", "err", err)
	}
	return &tr, nil
}

// exchangeTokens validates implicit-flow tokens by asking the service who
// they belong to.
func (g *HTTPGateway) exchangeTokens(ctx context.Context, p callbackParams) (*tokenResponse, error) {
	var user userResponse
	if err := g.call(ctx, http.MethodGet, "/user", nil, p.AccessToken, nil, &user); err != nil {
		return nil, mapStatus(err, ErrExchangeRejected)
	}

	tr := &tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		User:         user,
	}
	if v, err := strconv.ParseInt(p.ExpiresAt, 10, 64); err == nil {
		tr.ExpiresAt = v
	}
	if v, err := strconv.ParseInt(p.ExpiresIn, 10, 64); err == nil {
		tr.ExpiresIn = v
	}
	return tr, nil
}

func (g *HTTPGateway) buildSession(tr *tokenResponse) (*models.Session, error) {
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token issued", ErrExchangeRejected)
	}

	claims, _ := parseAccessClaims(tr.AccessToken)

	s := &models.Session{
		UserID:       tr.User.ID,
		Email:        tr.User.Email,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if claims != nil {
		if s.UserID == "" {
			s.UserID = claims.Subject
		}
		if s.Email == "" {
			s.Email = claims.Email
		}
	}

	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0).UTC()
	case tr.ExpiresIn > 0:
		s.ExpiresAt = g.now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
	default:
		s.ExpiresAt = claims.expiry()
	}

	if s.UserID == "" {
		return nil, fmt.Errorf("%w: session has no user", ErrExchangeRejected)
	}
	return s, nil
}

// SignOut clears the local session first and then invalidates it remotely.
// A remote failure is logged and not returned.
func (g *HTTPGateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	s := g.session
	g.session = nil
	g.mu.Unlock()

	if s == nil {
		return nil
	}

	if err := g.call(ctx, http.MethodPost, "/logout", nil, s.AccessToken, nil, nil); err != nil {
		g.logger.Warn(ctx, "remote sign-out failed", "user_id", s.UserID, "err", err)
		return nil
	}

	g.logger.Info(ctx, "signed out", "user_id", s.UserID)
	return nil
}

func (g *HTTPGateway) CurrentSession() *models.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session
}

// Ping checks the service health endpoint.
func (g *HTTPGateway) Ping(ctx context.Context) error {
	if err := g.call(ctx, http.MethodGet, "/health", nil, "", nil, nil); err != nil {
		return mapStatus(err, ErrNetwork)
	}
	return nil
}

// statusError is a non-2xx answer from the service.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("status %d", e.code)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.msg)
}

// mapStatus turns a server error into ErrNetwork and a client error into
// rejected. Transport errors are already ErrNetwork.
func mapStatus(err error, rejected error) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	if se.code >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %v", ErrNetwork, se)
	}
	return fmt.Errorf("%w: %v", rejected, se)
}

func (g *HTTPGateway) call(ctx context.Context, method, path string, q url.Values, bearer string, in, out any) error {
	endpoint := g.baseURL + "/auth/v1" + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.apiKey != "" {
		req.Header.Set(apiKeyHeader, g.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode, msg: errorMessage(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decode response: %w", ErrNetwork, err)
		}
	}
	return nil
}

// errorMessage pulls a human readable message out of the error payloads the
// service uses.
func errorMessage(data []byte) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(data, &e) != nil {
		return strings.TrimSpace(string(data))
	}
	for _, s := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

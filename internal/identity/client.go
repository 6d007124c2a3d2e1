package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/breaker"
	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

var _ Service = (*Client)(nil)

// Client talks to a GoTrue-compatible auth REST API (the /auth/v1 routes of a
// hosted project).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	log     *zap.Logger
	now     func() time.Time
}

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Breaker breaker.Config
}

func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/auth/v1",
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:  breaker.New[[]byte]("identity", cfg.Breaker, log, isSuccessful),
		log: log,
		now: time.Now,
	}
}

// Rejections are answers from a healthy service and must not trip the breaker.
func isSuccessful(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < http.StatusInternalServerError
	}
	return err == nil || errors.Is(err, context.Canceled)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u userResponse) toDomain() domain.User {
	return domain.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *userResponse `json:"user"`
}

func (t tokenResponse) toDomain(now time.Time) domain.Session {
	s := domain.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}
	if t.User != nil {
		s.User = t.User.toDomain()
	}
	return s
}

type errorResponse struct {
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) (domain.User, error) {
	body, err := c.do(ctx, http.MethodPost, "/signup", "", credentials{Email: email, Password: password})
	if err != nil {
		return domain.User{}, err
	}

	// Depending on email confirmation settings the service answers with
	// either a bare user or a session wrapping one.
	var resp struct {
		userResponse
		User *userResponse `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.User{}, fmt.Errorf("decode signup response: %w", err)
	}
	if resp.User != nil {
		return resp.User.toDomain(), nil
	}
	return resp.userResponse.toDomain(), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	body, err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", credentials{Email: email, Password: password})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnauthorized) {
			return domain.Session{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Error())
		}
		return domain.Session{}, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Session{}, fmt.Errorf("decode token response: %w", err)
	}
	return resp.toDomain(c.now()), nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/logout", accessToken, nil)
	return c.authError(err)
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (domain.User, error) {
	body, err := c.do(ctx, http.MethodGet, "/user", accessToken, nil)
	if err != nil {
		return domain.User{}, c.authError(err)
	}

	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.User{}, fmt.Errorf("decode user response: %w", err)
	}
	return resp.toDomain(), nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/recover", "", credentials{Email: email})
	return err
}

func (c *Client) authError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, payload interface{}) ([]byte, error) {
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, accessToken, payload)
	})
	if breaker.IsOpen(err) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, method, path, accessToken string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("auth request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return apiErr
	}
	apiErr.Code = er.ErrorCode
	if apiErr.Code == "" {
		apiErr.Code = er.Error
	}
	for _, m := range []string{er.ErrorDescription, er.Msg, er.Message, er.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	return apiErr
}

// Package api implements the JSON client for the remote storefront API.
// Only the session store talks to it; cart state never leaves the client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mhmdrezaafshar11/public-site/internal/domain"
)

const defaultTimeout = 30 * time.Second

// APIError is a failure reported by the remote API itself, carrying the
// human-readable message from its error payload.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetToken installs the bearer token sent on every subsequent request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken removes the default authorization header.
func (c *Client) ClearToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp, "login error")
	if err != nil {
		return nil, "", err
	}
	return resp.User, resp.Token, nil
}

func (c *Client) Register(ctx context.Context, data domain.RegisterData) (*domain.User, string, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", data, &resp, "registration error")
	if err != nil {
		return nil, "", err
	}
	return resp.User, resp.Token, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var resp userResponse
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp, "authentication error")
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	var resp userResponse
	err := c.do(ctx, http.MethodPut, "/auth/profile", update, &resp, "profile update error")
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, defaultMessage string) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Use the API's message when the payload carries one,
		// fall back to the per-endpoint default otherwise.
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: defaultMessage}
		var payload errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}

	return nil
}

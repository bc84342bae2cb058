package helpdesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/email-qc/internal/scoring"
)

const defaultTimeout = 10 * time.Second

var (
	ErrUserNotFound  = errors.New("helpdesk user not found")
	ErrUnauthorized  = errors.New("helpdesk rejected the api token")
	ErrNotConfigured = errors.New("helpdesk url is not configured")
)

// User is the subset of a helpdesk user record the service reads.
type User struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}

// FullName joins the first and last name the way agents are displayed.
func (u User) FullName() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// Client talks to the helpdesk REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient returns a client for baseURL authenticating with token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("helpdesk-client")
	return c, nil
}

// GetUser fetches GET /api/v1/users/{id}.
func (c *Client) GetUser(ctx context.Context, id int64) (User, error) {
	url := fmt.Sprintf("%s/api/v1/users/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return User{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token token="+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return User{}, fmt.Errorf("%w: %d", ErrUserNotFound, id)
	case http.StatusUnauthorized, http.StatusForbidden:
		return User{}, ErrUnauthorized
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return User{}, fmt.Errorf("get user %d: unexpected status %d: %s", id, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return User{}, fmt.Errorf("decode user %d: %w", id, err)
	}
	c.logger.Debug("fetched helpdesk user", zap.Int64("user_id", id))
	return u, nil
}

// LookupAgent resolves a helpdesk user into an agent.
func (c *Client) LookupAgent(ctx context.Context, id int64) (scoring.Agent, error) {
	u, err := c.GetUser(ctx, id)
	if err != nil {
		return scoring.Agent{}, err
	}
	return scoring.Agent{ID: id, Name: u.FullName(), Email: u.Email}, nil
}

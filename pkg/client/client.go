// Package client is a Go client for the Wisdom Pavilion HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperengineering/pavilion/internal/types"
)

// SessionHeader carries the session ID on every request.
const SessionHeader = "X-Pavilion-Session"

// ErrNoBaseURL is returned by New when no server URL is given.
var ErrNoBaseURL = errors.New("pavilion base URL is required")

// APIError is a non-2xx response decoded from its problem+json body.
type APIError struct {
	Status int    `json:"status"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("pavilion: %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("pavilion: %d %s", e.Status, http.StatusText(e.Status))
}

// Client talks to one Pavilion server as one session.
type Client struct {
	baseURL string
	apiKey  string
	session string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithSession selects the portal session. The server default is used otherwise.
func WithSession(id string) Option {
	return func(c *Client) { c.session = id }
}

// WithHTTPClient replaces the default client, which times out after 60s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the session ID the client sends, or "" for the default.
func (c *Client) Session() string { return c.session }

// do sends an authenticated request and decodes a JSON reply into out.
// A nil out discards the body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.session != "" {
		req.Header.Set(SessionHeader, c.session)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		// Non-problem bodies leave only the status set
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// call sends a request and decodes the reply into a new T.
func call[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports server, gateway and store status. It needs no API key.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	return call[types.HealthResponse](ctx, c, http.MethodGet, "/health", nil)
}

// Categories lists the shelf categories.
func (c *Client) Categories(ctx context.Context) ([]types.Category, error) {
	out, err := call[[]types.Category](ctx, c, http.MethodGet, "/categories", nil)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// Catalog lists the seed library. A non-empty category also becomes the
// session's active filter.
func (c *Client) Catalog(ctx context.Context, category string) (*types.CatalogResponse, error) {
	path := "/catalog"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	return call[types.CatalogResponse](ctx, c, http.MethodGet, path, nil)
}

// State returns the session's view state.
func (c *Client) State(ctx context.Context) (*types.PortalState, error) {
	return call[types.PortalState](ctx, c, http.MethodGet, "/state", nil)
}

// SetView switches the main view.
func (c *Client) SetView(ctx context.Context, view types.View) (*types.PortalState, error) {
	return call[types.PortalState](ctx, c, http.MethodPut, "/view", types.ViewRequest{View: string(view)})
}

// OpenBook opens the reader on a catalog or search-result book ID.
func (c *Client) OpenBook(ctx context.Context, id string) (*types.ReaderState, error) {
	return call[types.ReaderState](ctx, c, http.MethodPost, "/reader", types.OpenReaderRequest{BookID: id})
}

// CloseReader closes the reader overlay.
func (c *Client) CloseReader(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/reader", nil, nil)
}

// AdvanceProgress moves the open book's progress forward one step.
func (c *Client) AdvanceProgress(ctx context.Context) (*types.ReaderState, error) {
	return call[types.ReaderState](ctx, c, http.MethodPost, "/reader/progress", nil)
}

// ReadingHistory lists recently opened books, most recent first.
func (c *Client) ReadingHistory(ctx context.Context) ([]types.Book, error) {
	out, err := call[[]types.Book](ctx, c, http.MethodGet, "/history/reading", nil)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// SearchHistory lists recent search terms, most recent first.
func (c *Client) SearchHistory(ctx context.Context) ([]string, error) {
	out, err := call[[]string](ctx, c, http.MethodGet, "/history/search", nil)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// Search runs a trending-book search.
func (c *Client) Search(ctx context.Context, query string) (*types.SearchSession, error) {
	return call[types.SearchSession](ctx, c, http.MethodPost, "/search", types.SearchRequest{Query: query})
}

// Chat sends one message to the scholar.
func (c *Client) Chat(ctx context.Context, message string) (*types.ChatResponse, error) {
	return call[types.ChatResponse](ctx, c, http.MethodPost, "/chat", types.ChatRequest{Message: message})
}

// Transcript returns the session's chat so far.
func (c *Client) Transcript(ctx context.Context) ([]types.ConversationTurn, error) {
	out, err := call[[]types.ConversationTurn](ctx, c, http.MethodGet, "/chat", nil)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// Quiz loads today's quiz.
func (c *Client) Quiz(ctx context.Context) (*types.QuizState, error) {
	return call[types.QuizState](ctx, c, http.MethodGet, "/quiz", nil)
}

// AnswerQuiz picks a quiz option. Only the first pick of the day counts.
func (c *Client) AnswerQuiz(ctx context.Context, option int) (*types.QuizState, error) {
	return call[types.QuizState](ctx, c, http.MethodPost, "/quiz/answer", types.QuizAnswerRequest{Option: option})
}

// Wisdom loads today's wisdom card.
func (c *Client) Wisdom(ctx context.Context) (*types.WisdomResponse, error) {
	return call[types.WisdomResponse](ctx, c, http.MethodGet, "/wisdom", nil)
}

// Guide asks for a reading guide to title.
func (c *Client) Guide(ctx context.Context, title string) (*types.GuideResponse, error) {
	return call[types.GuideResponse](ctx, c, http.MethodGet, "/guide?title="+url.QueryEscape(title), nil)
}

// CheckIn records today's check-in.
func (c *Client) CheckIn(ctx context.Context) (*types.CheckInStatus, error) {
	return call[types.CheckInStatus](ctx, c, http.MethodPost, "/checkin", nil)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

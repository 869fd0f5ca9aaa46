// Package stackexchange fetches questions, answers and comments from the
// Stack Exchange API v2.3. Every request is admitted and retried by a
// resilience.Invoker.
package stackexchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/WessleyAI/overflow-mcp/engine/domain"
	"github.com/WessleyAI/overflow-mcp/pkg/resilience"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.stackexchange.com/2.3"

// Filter tokens select which fields the API returns per endpoint.
const (
	FilterSearch   = "!*MZqiDl8Y0c)yVzXS"
	FilterAnswers  = "!*MZqiDl8Y0c)yVzXS"
	FilterComments = "!*Mg-gxeRLu"
	FilterListing  = "!nKzQUR30W7"
)

const userAgent = "overflow-mcp/0.1 (+https://github.com/WessleyAI/overflow-mcp)"

// Config configures a Client.
type Config struct {
	BaseURL     string
	Site        string
	Key         string
	AccessToken string
	Timeout     time.Duration
}

// Client is a rate-governed Stack Exchange API client. It is safe for
// concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	invoke *resilience.Invoker
}

// NewClient creates a Client whose requests all run through inv.
func NewClient(cfg Config, inv *resilience.Invoker) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Site == "" {
		cfg.Site = "stackoverflow"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		invoke: inv,
	}
}

// Query narrows a question search or listing.
type Query struct {
	Text     string
	Tags     []string
	PageSize int
}

// Search runs GET /search/advanced.
func (c *Client) Search(ctx context.Context, q Query) ([]domain.Question, error) {
	params := c.params(FilterSearch)
	if q.Text != "" {
		params.Set("q", q.Text)
	}
	q.apply(params)
	qs, err := fetch[domain.Question](ctx, c, "/search/advanced", params)
	if err != nil {
		return nil, fmt.Errorf("stackexchange: search: %w", err)
	}
	return qs, nil
}

// QuestionsByTags runs GET /questions, the tag listing endpoint.
func (c *Client) QuestionsByTags(ctx context.Context, q Query) ([]domain.Question, error) {
	params := c.params(FilterListing)
	q.apply(params)
	qs, err := fetch[domain.Question](ctx, c, "/questions", params)
	if err != nil {
		return nil, fmt.Errorf("stackexchange: questions: %w", err)
	}
	return qs, nil
}

// Answers runs GET /questions/{id}/answers, highest score first.
func (c *Client) Answers(ctx context.Context, questionID int64) ([]domain.Answer, error) {
	path := "/questions/" + strconv.FormatInt(questionID, 10) + "/answers"
	as, err := fetch[domain.Answer](ctx, c, path, c.params(FilterAnswers))
	if err != nil {
		return nil, fmt.Errorf("stackexchange: answers for %d: %w", questionID, err)
	}
	return as, nil
}

// Comments runs GET /posts/{id}/comments. postID may be a question or an
// answer.
func (c *Client) Comments(ctx context.Context, postID int64) ([]domain.Comment, error) {
	path := "/posts/" + strconv.FormatInt(postID, 10) + "/comments"
	cs, err := fetch[domain.Comment](ctx, c, path, c.params(FilterComments))
	if err != nil {
		return nil, fmt.Errorf("stackexchange: comments for %d: %w", postID, err)
	}
	return cs, nil
}

func (q Query) apply(params url.Values) {
	if len(q.Tags) > 0 {
		params.Set("tagged", strings.Join(q.Tags, ";"))
	}
	if q.PageSize > 0 {
		params.Set("pagesize", strconv.Itoa(q.PageSize))
	}
}

func (c *Client) params(filter string) url.Values {
	v := url.Values{}
	v.Set("site", c.cfg.Site)
	v.Set("sort", "votes")
	v.Set("order", "desc")
	v.Set("filter", filter)
	if c.cfg.Key != "" {
		v.Set("key", c.cfg.Key)
	}
	if c.cfg.AccessToken != "" {
		v.Set("access_token", c.cfg.AccessToken)
	}
	return v
}

// wrapper is the common response envelope.
type wrapper[T any] struct {
	Items        []T    `json:"items"`
	ErrorID      int    `json:"error_id,omitempty"`
	ErrorName    string `json:"error_name,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	QuotaMax     int    `json:"quota_max,omitempty"`
	Remaining    int    `json:"quota_remaining,omitempty"`
}

func fetch[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	return resilience.Call(ctx, c.invoke, func(ctx context.Context) ([]T, error) {
		body, err := c.httpGet(ctx, c.cfg.BaseURL+path+"?"+params.Encode())
		if err != nil {
			return nil, err
		}
		defer body.Close()

		var w wrapper[T]
		if err := json.NewDecoder(body).Decode(&w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if w.Items == nil {
			return []T{}, nil
		}
		return w.Items, nil
	})
}

func (c *Client) httpGet(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, upstreamError(resp)
	}
	return resp.Body, nil
}

// upstreamError reads the error envelope from a non-2xx response. The
// message falls back to the status text when the body carries none.
func upstreamError(resp *http.Response) *domain.UpstreamError {
	var w wrapper[json.RawMessage]
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := ""
	if json.Unmarshal(data, &w) == nil {
		msg = w.ErrorMessage
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &domain.UpstreamError{Status: resp.StatusCode, Message: msg}
}

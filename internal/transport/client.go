package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/pkg/boarddto"
)

const (
	pathMove             = "/move"
	pathFieldsOccupation = "/fieldsOccupation"
)

// HeaderProvider supplies per-request headers.
type HeaderProvider func() map[string]string

// Client talks to the authority's HTTP API. Snapshots it fetches through
// RequestSnapshot are delivered to the registered handler.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int

	handlerM sync.RWMutex
	handler  Handler
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the dialer, e.g. with an in-memory listener in tests.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnEvent sets the handler that receives fetched snapshots.
func (c *Client) OnEvent(h Handler) {
	c.handlerM.Lock()
	c.handler = h
	c.handlerM.Unlock()
}

func (c *Client) SendMove(ctx context.Context, req board.MoveRequest) error {
	return c.doJSON(ctx, fasthttp.MethodPost, pathMove, req.DTO(), nil, false)
}

// Snapshot fetches the current position.
func (c *Client) Snapshot(ctx context.Context) ([]board.Occupation, error) {
	var dto []boarddto.FieldOccupation
	if err := c.doJSON(ctx, fasthttp.MethodGet, pathFieldsOccupation, nil, &dto, true); err != nil {
		return nil, err
	}
	occ, err := board.OccupationsFromDTO(dto)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return occ, nil
}

// RequestSnapshot fetches a snapshot and hands it to the event handler.
func (c *Client) RequestSnapshot(ctx context.Context) error {
	occ, err := c.Snapshot(ctx)
	if err != nil {
		return err
	}
	c.handlerM.RLock()
	h := c.handler
	c.handlerM.RUnlock()
	if h != nil {
		h(Event{Kind: EventSnapshot, Snapshot: occ})
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = max(c.retryMax, 1)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := statusError(status, resp.Body())
			if attempt == attempts || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// statusError prefers the authority's structured error body.
func statusError(status int, body []byte) error {
	var de boarddto.DomainError
	if err := json.Unmarshal(body, &de); err == nil && (de.Code != "" || de.Message != "") {
		return fmt.Errorf("board api error: status=%d: %w", status, de)
	}
	return fmt.Errorf("board api error: status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

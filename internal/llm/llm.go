package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/pavelanni/tutor/internal/metrics"
	"github.com/pavelanni/tutor/internal/model"
)

// Request is a single generation call.
type Request struct {
	SystemInstruction string
	Content           string
	Temperature       float32
	// JSON asks the backend for a JSON object response where supported.
	JSON bool
}

// Backend is a language generation provider.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Pinger is implemented by backends that support a cheap health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusError carries the HTTP status a backend reported for a failed call.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	Timeout        time.Duration // per attempt; 0 disables
	MaxRetries     int
	InitialBackoff time.Duration // doubled after each retry
	MaxBackoff     time.Duration
	Metrics        *metrics.Metrics
}

// Client wraps a Backend with a per-attempt timeout and bounded retry of
// transient failures. All failures are reported as model.ErrGenerationFailed.
type Client struct {
	backend Backend
	opts    Options
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a new LLM client.
func New(backend Backend, opts Options) *Client {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Client{backend: backend, opts: opts, sleep: sleepCtx}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return c.backend.Name()
}

// Ping runs the backend health check if it has one.
func (c *Client) Ping(ctx context.Context) error {
	p, ok := c.backend.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// Generate sends the request and returns the trimmed response text.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, req)
	c.opts.Metrics.LLMRequest(c.backend.Name(), time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrGenerationFailed, err)
	}
	slog.Debug("LLM response", "backend", c.backend.Name(), "raw", text)
	return text, nil
}

func (c *Client) generate(ctx context.Context, req Request) (string, error) {
	backoff := c.opts.InitialBackoff

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := c.attempt(ctx, req)
		if err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				return "", errors.New("backend returned an empty response")
			}
			return text, nil
		}

		if ctx.Err() != nil || !IsRetryable(err) || attempt >= c.opts.MaxRetries {
			return "", err
		}

		slog.Warn("LLM request retrying",
			"backend", c.backend.Name(),
			"attempt", attempt+1,
			"max_retries", c.opts.MaxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		if err := c.sleep(ctx, backoff); err != nil {
			return "", err
		}
		backoff = min(backoff*2, c.opts.MaxBackoff)
	}
}

func (c *Client) attempt(ctx context.Context, req Request) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	return c.backend.Generate(ctx, req)
}

// IsRetryable reports whether err is a transient backend failure: a timeout,
// a rate limit, or a server-side error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 408 || se.Code == 429 || se.Code >= 500
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

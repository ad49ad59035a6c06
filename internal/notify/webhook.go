package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/config"
	"github.com/riskscope/riskscope/pkg/export"
	"github.com/riskscope/riskscope/pkg/report"
)

var errTransport = errors.New("webhook transport error")

// StatusError is returned when the webhook endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.StatusCode, e.Body)
}

// Poster posts JSON payloads to one webhook URL with a bounded timeout,
// a rate limit and retries.
type Poster struct {
	url        string
	secret     []byte
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	logger     *slog.Logger
}

// PosterOption customises a Poster.
type PosterOption func(*Poster)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) PosterOption {
	return func(p *Poster) { p.httpClient = c }
}

// WithRetry replaces the retry policy.
func WithRetry(cfg RetryConfig) PosterOption {
	return func(p *Poster) { p.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PosterOption {
	return func(p *Poster) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPoster creates a Poster from export config.
func NewPoster(cfg config.ExportConfig, opts ...PosterOption) (*Poster, error) {
	if cfg.WebhookURL == "" {
		return nil, errors.New("webhook url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	rc := DefaultRetryConfig()
	if cfg.Retries >= 0 {
		rc.MaxAttempts = cfg.Retries + 1
	}

	p := &Poster{
		url:        cfg.WebhookURL,
		secret:     []byte(cfg.WebhookSecret),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		retry:      rc,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Post marshals payload and sends it, retrying transient failures.
func (p *Poster) Post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	attempt := 0
	return retry(ctx, p.retry, func() error {
		attempt++
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		err := p.send(ctx, body)
		if err != nil {
			p.logger.Debug("webhook post failed", "attempt", attempt, "error", err)
		}
		return err
	})
}

func (p *Poster) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "riskscope")
	if len(p.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(body, p.secret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", errTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// WebhookTarget shares reports to a Slack or Teams webhook. It implements export.Target.
type WebhookTarget struct {
	Poster   *Poster
	Platform export.Platform
}

func (t *WebhookTarget) Name() string { return "webhook:" + string(t.Platform) }

func (t *WebhookTarget) Deliver(ctx context.Context, r *report.Report) error {
	payload, err := export.WebhookPayload(r, t.Platform)
	if err != nil {
		return err
	}
	return t.Poster.Post(ctx, payload)
}

// DeliverBatch posts a batch summary message.
func (t *WebhookTarget) DeliverBatch(ctx context.Context, s batch.Summary) error {
	payload, err := export.BatchWebhookPayload(s, t.Platform)
	if err != nil {
		return err
	}
	return t.Poster.Post(ctx, payload)
}

// NewWebhookTarget builds a target from export config, or returns nil if no URL is configured.
func NewWebhookTarget(cfg config.ExportConfig, logger *slog.Logger) (*WebhookTarget, error) {
	if cfg.WebhookURL == "" {
		return nil, nil
	}
	platform, err := export.ParsePlatform(cfg.WebhookPlatform)
	if err != nil {
		return nil, err
	}
	poster, err := NewPoster(cfg, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &WebhookTarget{Poster: poster, Platform: platform}, nil
}

package mentorship

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"portal-booking/internal/models"
)

const (
	availabilityPath = "/mentorship/availability"
	bookPath         = "/mentorship/book"
)

var ErrUnexpectedResponse = errors.New("unexpected response from booking backend")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("booking backend returned status=%d body=%s", e.StatusCode, e.Body)
}

func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type tokenKey struct{}

// WithBearerToken makes requests issued with ctx carry "Authorization: Bearer token".
func WithBearerToken(ctx context.Context, token string) context.Context {
	if strings.TrimSpace(token) == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func bearerToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type Client struct {
	baseURL         string
	httpClient      *http.Client
	log             *slog.Logger
	maxAttempts     uint
	initialInterval time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetry bounds availability reads to attempts tries, starting at initial backoff.
func WithRetry(attempts uint, initial time.Duration) Option {
	return func(c *Client) {
		if attempts == 0 {
			attempts = 1
		}
		c.maxAttempts = attempts
		c.initialInterval = initial
	}
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:             log,
		maxAttempts:     3,
		initialInterval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BookedSlots returns the time labels already taken on date (YYYY-MM-DD, local calendar day).
func (c *Client) BookedSlots(ctx context.Context, date string) ([]string, error) {
	endpoint := c.baseURL + availabilityPath + "?" + url.Values{"date": {date}}.Encode()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initialInterval
	expo.MaxInterval = 2 * time.Second

	operation := func() ([]string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("availability create request: %w", err))
		}
		var out models.AvailabilityResponse
		if err := c.do(req, &out); err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Temporary() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if out.BookedSlots == nil {
			out.BookedSlots = []string{}
		}
		return out.BookedSlots, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(c.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Warn("mentorship availability: retrying",
				slog.String("date", date),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()),
			)
		}),
	)
}

// CreateBooking posts the booking once; retries are left to the caller.
func (c *Client) CreateBooking(ctx context.Context, booking models.BookingRequest) (models.BookingAck, error) {
	raw, err := json.Marshal(booking)
	if err != nil {
		return models.BookingAck{}, fmt.Errorf("booking marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+bookPath, bytes.NewReader(raw))
	if err != nil {
		return models.BookingAck{}, fmt.Errorf("booking create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	var ack models.BookingAck
	if err := c.do(req, &ack); err != nil {
		return models.BookingAck{}, err
	}
	return ack, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("accept", "application/json")
	if token := bearerToken(req.Context()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("booking backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("booking backend read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

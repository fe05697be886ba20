package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTransport is returned once every attempt failed before a response arrived.
var ErrTransport = errors.New("transport failure")

type requestOptions struct {
	Header http.Header
	Body   []byte
}

// RetryClient executes requests, retrying only transport failures
// (timeouts, refused or reset connections). Any HTTP response, whatever
// its status, is handed back to the caller.
type RetryClient struct {
	client      *http.Client
	userAgent   string
	maxAttempts int
	base        time.Duration
	logger      *slog.Logger

	// timer is nil outside tests
	timer backoff.Timer
}

func NewRetryClient(client *http.Client, userAgent string, maxAttempts int, base time.Duration, logger *slog.Logger) *RetryClient {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryClient{
		client:      client,
		userAgent:   userAgent,
		maxAttempts: maxAttempts,
		base:        base,
		logger:      logger,
	}
}

// newBackOff yields base, 2*base, 4*base, ... with no jitter.
func (c *RetryClient) newBackOff(ctx context.Context) backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         24 * time.Hour,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)), ctx)
}

func (c *RetryClient) Execute(ctx context.Context, method, url string, opts requestOptions) (*http.Response, error) {
	attempts := 0
	var lastTransportErr error

	operation := func() (*http.Response, error) {
		attempts++

		var body io.Reader
		if opts.Body != nil {
			body = bytes.NewReader(opts.Body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if opts.Header != nil {
			req.Header = opts.Header.Clone()
		}
		if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, backoff.Permanent(ctxErr)
			}
			lastTransportErr = err
			return nil, err
		}
		return resp, nil
	}

	notify := func(err error, d time.Duration) {
		c.logger.Warn("request failed, backing off",
			"method", method,
			"url", url,
			"attempt", attempts,
			"delay", d,
			"error", err,
		)
	}

	resp, err := backoff.RetryNotifyWithTimerAndData(operation, c.newBackOff(ctx), notify, c.timer)
	if err != nil {
		if lastTransportErr != nil && errors.Is(err, lastTransportErr) {
			return nil, fmt.Errorf("%w: %s %s after %d attempts: %w", ErrTransport, method, url, attempts, err)
		}
		return nil, err
	}

	return resp, nil
}

package xtream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrThrottled marks an upstream 429. It is retried with backoff by the
// transport; once retries are exhausted it reaches the caller, who treats it
// as a transient fetch failure.
var ErrThrottled = errors.New("upstream throttled the request")

// transport serialises all upstream calls behind a fixed minimum delay and
// retries throttled responses with exponential backoff. Xtream panels ban
// clients that hammer player_api.php, so every request in the process shares
// one limiter.
type transport struct {
	client    *http.Client
	limiter   *rate.Limiter
	attempts  uint
	baseDelay time.Duration
}

func newTransport(requestDelay time.Duration, retries int, baseDelay time.Duration) *transport {
	if requestDelay <= 0 {
		requestDelay = 50 * time.Millisecond
	}
	if retries < 0 {
		retries = 0
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &transport{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(requestDelay), 1),
		attempts:  uint(retries) + 1,
		baseDelay: baseDelay,
	}
}

// getJSON fetches url and decodes the response into v, applying the request
// spacing and the throttle-retry policy.
func (t *transport) getJSON(ctx context.Context, url string, v interface{}) error {
	return retry.Do(
		func() error {
			return t.fetchOnce(ctx, url, v)
		},
		retry.Context(ctx),
		retry.Attempts(t.attempts),
		retry.Delay(t.baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrThrottled)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Uint("attempt", n+1).Err(err).Msg("Upstream throttled, backing off")
		}),
	)
}

func (t *transport) fetchOnce(ctx context.Context, url string, v interface{}) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return ErrThrottled
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

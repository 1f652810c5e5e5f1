package httpx

import (
	"math"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy controls the retry behaviour for transient failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
	RetryIf    func(resp *http.Response, err error) bool
}

// DefaultRetryPolicy performs a single attempt. Callers opt into retries
// explicitly because not every Base write is idempotent.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 0,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     0.25,
}

// TransientRetryPolicy retries throttling and 5xx responses a few times.
var TransientRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     0.25,
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// backoff returns a fresh exponential backoff; go-retry backoffs are stateful
// so every request gets its own.
func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	if p.Jitter > 0 {
		b = retry.WithJitterPercent(uint64(math.Min(p.Jitter, 1)*100), b)
	}
	b = retry.WithCappedDuration(p.MaxDelay, b)
	return retry.WithMaxRetries(uint64(p.MaxRetries), b)
}

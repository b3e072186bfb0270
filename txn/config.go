package txn

import (
	"os"
	"strconv"
	"time"
)

// RetryPolicy bounds how many times a read-only step is retried on a
// transient error, and the backoff between attempts.
type RetryPolicy struct {
	MaxRetries int
	Backoff    Backoff
}

// DefaultRetryPolicy returns the default policy: 2 retries, 50ms base
// backoff, 500ms max backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Backoff: Backoff{Base: 50 * time.Millisecond, Max: 500 * time.Millisecond}}
}

// RetryPolicyFromEnv reads EXO_DB_RETRY_MAX, EXO_DB_RETRY_BASE_MS, and
// EXO_DB_RETRY_MAX_MS, falling back to DefaultRetryPolicy for any unset or
// unparsable value, using plain os.Getenv rather than pulling in a config
// framework.
func RetryPolicyFromEnv() RetryPolicy {
	p := DefaultRetryPolicy()
	if v, ok := envInt("EXO_DB_RETRY_MAX"); ok {
		p.MaxRetries = v
	}
	if v, ok := envInt("EXO_DB_RETRY_BASE_MS"); ok {
		p.Backoff.Base = time.Duration(v) * time.Millisecond
	}
	if v, ok := envInt("EXO_DB_RETRY_MAX_MS"); ok {
		p.Backoff.Max = time.Duration(v) * time.Millisecond
	}
	return p
}

func envInt(name string) (int, bool) {
	s := os.Getenv(name)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

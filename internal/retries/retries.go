package retries

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 100 * time.Millisecond

	HealthAttempts  = 2
	HealthBaseDelay = 50 * time.Millisecond

	// The identity provider rate-limits GetUser hard; five retries starting
	// at 250ms cover roughly eight seconds.
	IdentityAttempts  = 5
	IdentityBaseDelay = 250 * time.Millisecond
)

// Retry calls fn until it succeeds, isRetriable rejects the error, the
// context ends, or attempts retries have been spent. Delays double from
// baseDelay.
func Retry(
	ctx context.Context,
	attempts int,
	baseDelay time.Duration,
	fn func() error,
	isRetriable func(error) bool,
) error {
	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isRetriable != nil && !isRetriable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(op, backoff.WithContext(newBackOff(attempts, baseDelay), ctx))
}

func newBackOff(attempts int, baseDelay time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0

	if attempts < 0 {
		attempts = 0
	}
	return backoff.WithMaxRetries(b, uint64(attempts))
}

var retriableDbCodes = map[string]struct{}{
	"ProvisionedThroughputExceededException": {},
	"RequestLimitExceeded":                   {},
	"ThrottlingException":                    {},
	"InternalServerError":                    {},
	"ServiceUnavailable":                     {},
	"LimitExceededException":                 {},
}

func IsRetriableDbError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := retriableDbCodes[apiErr.ErrorCode()]
		return ok
	}
	return false
}

func IsThrottled(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException", "ThrottlingException", "ProvisionedThroughputExceededException":
			return true
		}
	}
	return false
}

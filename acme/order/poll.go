package order

import (
	"context"
	"fmt"
	"time"

	"github.com/acmecore/acmecore/acme"
	"github.com/acmecore/acmecore/acme/client"
	"github.com/acmecore/acmecore/acme/resources"

	"github.com/cenkalti/backoff/v4"
)

// PollPolicy bounds how long and how often waitForOrderStatus and
// waitForAuthorizationStatus re-poll an order
// or authorization while it sits in "processing"/"pending". The original
// polling loop this is grounded on ran forever; PollPolicy's MaxElapsedTime
// is the fix for that unbounded wait.
type PollPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultPollPolicy polls every second, backing off to at most 5s between
// attempts, and gives up after one minute.
var DefaultPollPolicy = PollPolicy{
	InitialInterval: time.Second,
	MaxInterval:     5 * time.Second,
	MaxElapsedTime:  time.Minute,
}

func (p PollPolicy) normalize() PollPolicy {
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultPollPolicy.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultPollPolicy.MaxInterval
	}
	if p.MaxElapsedTime <= 0 {
		p.MaxElapsedTime = DefaultPollPolicy.MaxElapsedTime
	}
	return p
}

func (p PollPolicy) backOff(ctx context.Context) backoff.BackOff {
	p = p.normalize()
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = p.MaxElapsedTime
	return backoff.WithContext(eb, ctx)
}

// waitForOrderStatus POST-as-GETs orderURL until its status is no longer
// "processing", or until ctx/policy expires. It does not require the final
// status to be "valid" — callers decide whether "invalid" is an error.
func waitForOrderStatus(ctx context.Context, s *client.Session, orderURL string, policy PollPolicy) (*resources.Order, error) {
	var last resources.Order

	operation := func() error {
		var updated resources.Order
		_, err := s.Call(orderURL, nil, &updated)
		if err != nil {
			return backoff.Permanent(err)
		}
		updated.ID = orderURL
		last = updated

		if updated.Status == acme.StatusProcessing {
			return fmt.Errorf("order %s still processing", orderURL)
		}
		return nil
	}

	if err := backoff.Retry(operation, policy.backOff(ctx)); err != nil {
		return nil, fmt.Errorf("waiting for order %s to leave processing: %w", orderURL, err)
	}
	return &last, nil
}

// waitForAuthorizationStatus POST-as-GETs authzURL until its status is no
// longer "pending", or until ctx/policy expires.
func waitForAuthorizationStatus(ctx context.Context, s *client.Session, authzURL string, policy PollPolicy) (*resources.Authorization, error) {
	var last resources.Authorization

	operation := func() error {
		var updated resources.Authorization
		_, err := s.Call(authzURL, nil, &updated)
		if err != nil {
			return backoff.Permanent(err)
		}
		updated.ID = authzURL
		last = updated

		if updated.Status == acme.StatusPending {
			return fmt.Errorf("authorization %s still pending", authzURL)
		}
		return nil
	}

	if err := backoff.Retry(operation, policy.backOff(ctx)); err != nil {
		return nil, fmt.Errorf("waiting for authorization %s to leave pending: %w", authzURL, err)
	}
	return &last, nil
}

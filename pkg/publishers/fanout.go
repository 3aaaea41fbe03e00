package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/avast/retry-go/v4"
)

// Fanout dispatches events to all configured publishers.
type Fanout struct {
	publishers []Publisher
	attempts   uint
	delay      time.Duration
}

// FanoutOption customises a Fanout.
type FanoutOption func(*Fanout)

// WithRetry retries each publisher up to attempts times with exponential backoff
// starting at delay.
func WithRetry(attempts uint, delay time.Duration) FanoutOption {
	return func(f *Fanout) {
		if attempts > 0 {
			f.attempts = attempts
		}
		if delay > 0 {
			f.delay = delay
		}
	}
}

// NewFanout builds a dispatcher that fans out events across publishers.
func NewFanout(pubs []Publisher, opts ...FanoutOption) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	f := &Fanout{publishers: cp, attempts: 1, delay: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Publish forwards the event to every registered publisher.
// It returns the number of publishers that successfully handled the event.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	var errs []error
	successful := 0
	for _, p := range f.publishers {
		err := retry.Do(func() error {
			return p.Publish(ctx, evt)
		},
			retry.Context(ctx),
			retry.Attempts(f.attempts),
			retry.Delay(f.delay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
		} else {
			successful++
		}
	}
	return successful, errors.Join(errs...)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases publishers that hold clients open.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.publishers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

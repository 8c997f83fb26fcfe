package upload

import (
	"context"
	"time"
)

const (
	defaultPollInterval    = time.Second
	defaultPollMaxAttempts = 60
	defaultPollMaxWait     = 10 * time.Minute
)

// PollPolicy bounds the STATUS loop.
type PollPolicy struct {
	// DefaultInterval is used when the server gives no check_after_secs. It is also the floor.
	DefaultInterval time.Duration
	// MaxAttempts caps the number of STATUS calls.
	MaxAttempts int
	// MaxWait caps the total time spent polling. Negative disables the wall-clock bound.
	MaxWait time.Duration
}

// DefaultPollPolicy returns the bounds used when none are configured.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		DefaultInterval: defaultPollInterval,
		MaxAttempts:     defaultPollMaxAttempts,
		MaxWait:         defaultPollMaxWait,
	}
}

func (p PollPolicy) normalized() PollPolicy {
	if p.DefaultInterval <= 0 {
		p.DefaultInterval = defaultPollInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultPollMaxAttempts
	}
	if p.MaxWait == 0 {
		p.MaxWait = defaultPollMaxWait
	}
	return p
}

// delayFor never returns less than what the server asked for.
func (p PollPolicy) delayFor(info ProcessingInfo) time.Duration {
	if suggested := info.CheckAfter(); suggested > 0 {
		return suggested
	}
	return p.DefaultInterval
}

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package channel

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"lookaway/internal/reminder"
	logx "lookaway/pkg/logx"
)

type RetryConfig struct {
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	RatePerSec    int
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 10 * time.Second
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 2
	}
	return c
}

type permanentError struct{ err error }

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) Permanent() bool { return true }

// Permanent marks err as not worth retrying (bad credentials, missing settings).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether any error in the chain has Permanent() true.
func IsPermanent(err error) bool {
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}

// Retrying wraps a channel with a token-bucket rate limit and exponential
// backoff retries. Every attempt shares the caller's deadline.
type Retrying struct {
	id      reminder.ChannelID
	next    reminder.Channel
	cfg     RetryConfig
	limiter *rate.Limiter
	log     logx.Logger
}

func Retry(id reminder.ChannelID, next reminder.Channel, cfg RetryConfig, log logx.Logger) *Retrying {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Retrying{
		id:      id,
		next:    next,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		log:     log,
	}
}

func (r *Retrying) Send(ctx context.Context, text string, kind reminder.Kind) error {
	attempts := 1 + r.cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		err := r.next.Send(ctx, text, kind)
		if err == nil {
			return nil
		}
		lastErr = err
		if IsPermanent(err) || attempt == attempts {
			break
		}
		delay := retryDelay(r.cfg, attempt)
		r.log.Debug("channel send failed; retrying",
			logx.String("channel", string(r.id)),
			logx.Int("attempt", attempt),
			logx.Int("max", attempts),
			logx.Duration("backoff", delay),
			logx.Err(err),
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return lastErr
		case <-t.C:
		}
	}
	return lastErr
}

// retryDelay is base*2^(attempt-1), capped, with 0.7..1.3 jitter.
func retryDelay(cfg RetryConfig, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt && d < cfg.RetryMaxDelay; i++ {
		d *= 2
	}
	d = min(d, cfg.RetryMaxDelay)
	d = time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
	return min(max(d, 0), cfg.RetryMaxDelay)
}

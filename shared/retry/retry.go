package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config describes an exponential backoff policy
type Config struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxTries        uint          `mapstructure:"max_tries"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// DefaultConfig is used for store and bus calls when nothing is configured
func DefaultConfig() Config {
	return Config{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxTries:        5,
		MaxElapsedTime:  15 * time.Second,
	}
}

// NoRetry runs the operation exactly once
func NoRetry() Config {
	return Config{MaxTries: 1}
}

// Do runs op until it succeeds, returns a permanent error, or the policy is
// exhausted. The last error is returned.
func Do(ctx context.Context, cfg Config, op func() error) error {
	_, err := Value(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// Value is Do for operations that produce a result
func Value[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(b)}
	if cfg.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(cfg.MaxTries))
	}
	if cfg.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(cfg.MaxElapsedTime))
	}

	return backoff.Retry(ctx, backoff.Operation[T](op), opts...)
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

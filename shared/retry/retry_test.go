package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var errUnavailable = errors.New("store unavailable")

func fastConfig(tries uint) Config {
	return Config{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxTries:        tries,
	}
}

func TestDo(t *testing.T) {
	tests := []struct {
		name          string
		failures      int
		permanent     bool
		tries         uint
		expectedCalls int
		expectError   bool
	}{
		{name: "succeeds first time", failures: 0, tries: 3, expectedCalls: 1},
		{name: "succeeds after transient failures", failures: 2, tries: 3, expectedCalls: 3},
		{name: "gives up when tries are exhausted", failures: 5, tries: 3, expectedCalls: 3, expectError: true},
		{name: "stops on permanent error", failures: 5, permanent: true, tries: 3, expectedCalls: 1, expectError: true},
		{name: "no retry runs once", failures: 1, tries: 1, expectedCalls: 1, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastConfig(tt.tries), func() error {
				calls++
				if calls <= tt.failures {
					if tt.permanent {
						return Permanent(errUnavailable)
					}
					return errUnavailable
				}
				return nil
			})

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectError {
				assert.ErrorIs(t, err, errUnavailable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValue(t *testing.T) {
	calls := 0
	got, err := Value(context.Background(), fastConfig(3), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errUnavailable
		}
		return "saga", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "saga", got)
	assert.Equal(t, 2, calls)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

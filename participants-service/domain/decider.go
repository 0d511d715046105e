package domain

import (
	"context"
	"math/rand/v2"
)

// Decider makes a participant's opaque business decision for one order
type Decider interface {
	Decide(ctx context.Context, orderID string) bool
}

// DeciderFunc adapts a function to Decider
type DeciderFunc func(ctx context.Context, orderID string) bool

func (f DeciderFunc) Decide(ctx context.Context, orderID string) bool {
	return f(ctx, orderID)
}

// FixedDecider always answers the same
type FixedDecider bool

func (d FixedDecider) Decide(context.Context, string) bool {
	return bool(d)
}

// RandomDecider succeeds with probability SuccessRate
type RandomDecider struct {
	SuccessRate float64
}

// NewRandomDecider clamps rate to [0, 1]
func NewRandomDecider(rate float64) *RandomDecider {
	switch {
	case rate < 0:
		rate = 0
	case rate > 1:
		rate = 1
	}
	return &RandomDecider{SuccessRate: rate}
}

func (d *RandomDecider) Decide(context.Context, string) bool {
	return rand.Float64() < d.SuccessRate
}

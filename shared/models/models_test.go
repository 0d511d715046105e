package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
	}{
		{name: "valid uuid", input: "550e8400-e29b-41d4-a716-446655440000"},
		{name: "generated uuid", input: GenerateUUID().String()},
		{name: "not a uuid", input: "order-1", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewID(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				assert.True(t, id.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestDeriveID(t *testing.T) {
	base := GenerateUUID()

	first := DeriveID(base, "compensate-payment/PAY9")
	assert.Equal(t, first, DeriveID(base, "compensate-payment/PAY9"))
	assert.NotEqual(t, first, DeriveID(base, "compensate-payment/PAY8"))
	assert.NotEqual(t, first, DeriveID(GenerateUUID(), "compensate-payment/PAY9"))

	_, err := NewID(first.String())
	require.NoError(t, err)

	assert.Equal(t, DeriveID("not-a-uuid", "x"), DeriveID("not-a-uuid", "x"))
}

func TestTimestamps_Update(t *testing.T) {
	ts := NewTimestamps()
	assert.Equal(t, ts.CreatedAt, ts.UpdatedAt)
	assert.Equal(t, time.UTC, ts.CreatedAt.Location())

	time.Sleep(2 * time.Millisecond)
	updated := ts.Update()

	assert.Equal(t, ts.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(ts.UpdatedAt))
}

func TestVersion_Next(t *testing.T) {
	v := NewVersion()
	assert.Equal(t, 0, v.Value)
	assert.Equal(t, 1, v.Next().Value)
	assert.Equal(t, 0, v.Value)
}

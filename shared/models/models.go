package models

import (
	"time"

	"github.com/google/uuid"
)

// ID represents a unique identifier
type ID string

// GenerateUUID creates a new UUID
func GenerateUUID() ID {
	return ID(uuid.New().String())
}

// DeriveID returns a stable UUID for name within base, so the same inputs
// always give the same ID
func DeriveID(base ID, name string) ID {
	namespace, err := uuid.Parse(string(base))
	if err != nil {
		namespace = uuid.NameSpaceOID
	}
	return ID(uuid.NewSHA1(namespace, []byte(name)).String())
}

// NewID creates an ID from string
func NewID(id string) (ID, error) {
	_, err := uuid.Parse(id)
	if err != nil {
		return "", err
	}
	return ID(id), nil
}

// String returns string representation
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is unset
func (id ID) IsZero() bool {
	return id == ""
}

// Now returns the current time in UTC, truncated to microseconds so values
// survive a round trip through every supported store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Timestamps represents creation and update times
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTimestamps creates new timestamps
func NewTimestamps() Timestamps {
	now := Now()
	return Timestamps{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Update updates the UpdatedAt timestamp
func (t Timestamps) Update() Timestamps {
	t.UpdatedAt = Now()
	return t
}

// Age returns how long ago the entity was created
func (t Timestamps) Age() time.Duration {
	return Now().Sub(t.CreatedAt)
}

// Version represents entity version for optimistic locking
type Version struct {
	Value int
}

// NewVersion creates the version of a never-persisted entity
func NewVersion() Version {
	return Version{Value: 0}
}

// Next returns the version the entity will have after its next save
func (v Version) Next() Version {
	v.Value++
	return v
}

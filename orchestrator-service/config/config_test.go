package config

import (
	"testing"
	"time"

	sharedinfra "github.com/draftea/order-saga/shared/infrastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_LocalFile(t *testing.T) {
	t.Setenv("ENVIRONMENT", "local")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, "orchestrator-service", cfg.ServiceName)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, sharedinfra.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, sharedinfra.BusDriverMemory, cfg.Bus.Driver)
	assert.Equal(t, LockerDriverMemory, cfg.Locker.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Reconcile.StepTimeout)
	assert.Equal(t, 3, cfg.Reconcile.MaxAttempts)
	assert.True(t, cfg.Participants.Embedded)
	assert.Equal(t, "orchestrator-service", cfg.Logging.ServiceName)
}

func TestReadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("ENVIRONMENT", "does-not-exist")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 0.9, cfg.Participants.Simulation.Payment.SuccessRate)
	assert.Equal(t, 0.8, cfg.Participants.Simulation.Inventory.SuccessRate)
	assert.Positive(t, cfg.Outbox.BatchSize)
	assert.Positive(t, cfg.Retry.MaxTries)
}

func TestReadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "local")
	t.Setenv("SAGA_PORT", "9090")
	t.Setenv("SAGA_DATABASE_DRIVER", "memory")
	t.Setenv("SAGA_RECONCILE_MAX_ATTEMPTS", "5")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Reconcile.MaxAttempts)
}

func TestReadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{
			name:    "unknown database driver",
			key:     "SAGA_DATABASE_DRIVER",
			value:   "mysql",
			wantErr: `unsupported database driver "mysql"`,
		},
		{
			name:    "unknown locker driver",
			key:     "SAGA_LOCKER_DRIVER",
			value:   "etcd",
			wantErr: `unsupported locker driver "etcd"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "local")
			t.Setenv(tt.key, tt.value)

			_, err := ReadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildDependencies_InMemory(t *testing.T) {
	t.Setenv("ENVIRONMENT", "does-not-exist")
	t.Setenv("SAGA_DATABASE_DRIVER", "memory")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	deps, err := BuildDependencies(t.Context(), cfg)
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.Redis)
	assert.NotNil(t, deps.SagaRepository)
	assert.Same(t, deps.SagaRepository, deps.OutboxStore)
	assert.NotNil(t, deps.ParticipantEventHandlers)
	require.NoError(t, deps.Subscribe(t.Context()))
}

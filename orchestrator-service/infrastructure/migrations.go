package infrastructure

import (
	"context"
	"sort"

	"github.com/Masterminds/semver/v3"
	sharedinfra "github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Migration is one schema change. Statements are keyed by driver name.
type Migration struct {
	Version     string
	Description string
	Statements  func(driver string) []string
}

var migrations = []Migration{
	{
		Version:     "1.0.0",
		Description: "create order_sagas",
		Statements: func(string) []string {
			return []string{`
				CREATE TABLE IF NOT EXISTS order_sagas (
					order_id VARCHAR(64) PRIMARY KEY,
					customer_id VARCHAR(255) NOT NULL,
					product_id VARCHAR(255) NOT NULL,
					quantity INTEGER NOT NULL,
					amount DOUBLE PRECISION NOT NULL,
					status VARCHAR(32) NOT NULL,
					current_step VARCHAR(32) NOT NULL,
					payment_id VARCHAR(255) NULL,
					reservation_id VARCHAR(255) NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL,
					version INTEGER NOT NULL
				)`,
			}
		},
	},
	{
		Version:     "1.1.0",
		Description: "create saga_outbox",
		Statements:  sharedinfra.OutboxSchema,
	},
	{
		Version:     "1.2.0",
		Description: "track attempts and failure reason for reconciliation",
		Statements: func(string) []string {
			return []string{
				`ALTER TABLE order_sagas ADD COLUMN attempts INTEGER NOT NULL DEFAULT 0`,
				`ALTER TABLE order_sagas ADD COLUMN failure_reason TEXT NOT NULL DEFAULT ''`,
				`CREATE INDEX IF NOT EXISTS idx_order_sagas_status_updated ON order_sagas (status, updated_at)`,
			}
		},
	},
	{
		Version:     "1.3.0",
		Description: "dead outbox entries",
		Statements:  sharedinfra.OutboxDeadSchema,
	},
}

// Migrate applies every migration newer than the recorded schema version,
// each in its own transaction.
func Migrate(ctx context.Context, db *sqlx.DB, driver string, logger zerolog.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(32) PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return errors.Wrap(err, "failed to create schema_migrations")
	}

	var applied []string
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return errors.Wrap(err, "failed to read schema_migrations")
	}

	current := semver.MustParse("0.0.0")
	for _, v := range applied {
		parsed, err := semver.NewVersion(v)
		if err != nil {
			return errors.Wrapf(err, "invalid recorded schema version %q", v)
		}
		if parsed.GreaterThan(current) {
			current = parsed
		}
	}

	pending, err := pendingMigrations(current)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := applyMigration(ctx, db, driver, m); err != nil {
			return err
		}
		logger.Info().Str("version", m.Version).Str("description", m.Description).Msg("schema migration applied")
	}

	return nil
}

func pendingMigrations(current *semver.Version) ([]Migration, error) {
	type versioned struct {
		version   *semver.Version
		migration Migration
	}

	var pending []versioned
	for _, m := range migrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid migration version %q", m.Version)
		}
		if v.GreaterThan(current) {
			pending = append(pending, versioned{v, m})
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].version.LessThan(pending[j].version)
	})

	out := make([]Migration, len(pending))
	for i, p := range pending {
		out[i] = p.migration
	}
	return out, nil
}

func applyMigration(ctx context.Context, db *sqlx.DB, driver string, m Migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements(driver) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration %s failed", m.Version)
		}
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`),
		m.Version, m.Description, models.Now(),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record migration %s", m.Version)
	}

	return tx.Commit()
}

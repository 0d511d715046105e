package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/outbox"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ outbox.Store = (*SQLOutboxStore)(nil)

// SQLOutboxStore implements outbox.Store on the saga_outbox table
type SQLOutboxStore struct {
	db *sqlx.DB
}

// NewSQLOutboxStore creates a new SQLOutboxStore
func NewSQLOutboxStore(db *sqlx.DB) *SQLOutboxStore {
	return &SQLOutboxStore{db: db}
}

// outboxRow represents an outbox entry in database
type outboxRow struct {
	ID          int64          `db:"id"`
	EventID     string         `db:"event_id"`
	OrderID     string         `db:"order_id"`
	Topic       string         `db:"topic"`
	Payload     string         `db:"payload"`
	CreatedAt   time.Time      `db:"created_at"`
	PublishedAt sql.NullTime   `db:"published_at"`
	Attempts    int            `db:"attempts"`
	LastError   sql.NullString `db:"last_error"`
}

// InsertOutboxEvents writes events inside the caller's transaction
func InsertOutboxEvents(ctx context.Context, tx *sqlx.Tx, evts []*events.Event) error {
	return insertOutboxEvents(ctx, tx, evts, "")
}

// InsertOutboxEventsOnce is InsertOutboxEvents but skips events whose id is
// already in the outbox
func InsertOutboxEventsOnce(ctx context.Context, tx *sqlx.Tx, evts []*events.Event) error {
	return insertOutboxEvents(ctx, tx, evts, " ON CONFLICT (event_id) DO NOTHING")
}

func insertOutboxEvents(ctx context.Context, tx *sqlx.Tx, evts []*events.Event, onConflict string) error {
	query := `
		INSERT INTO saga_outbox (
			event_id, order_id, topic, payload, created_at, attempts
		) VALUES (
			:event_id, :order_id, :topic, :payload, :created_at, 0
		)` + onConflict

	for _, event := range evts {
		row, err := toOutboxRow(event)
		if err != nil {
			return errors.Wrap(err, "failed to convert event")
		}

		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return errors.Wrap(err, "failed to insert outbox entry")
		}
	}

	return nil
}

// Pending returns unpublished entries in insertion order
func (s *SQLOutboxStore) Pending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	query := s.db.Rebind(`
		SELECT id, event_id, order_id, topic, payload, created_at, published_at, attempts, last_error
		FROM saga_outbox
		WHERE published_at IS NULL AND dead_at IS NULL
		ORDER BY id ASC
		LIMIT ?`)

	var rows []outboxRow
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "failed to get pending outbox entries")
	}

	entries := make([]*outbox.Entry, 0, len(rows))
	for i := range rows {
		entry, err := toOutboxEntry(&rows[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// MarkPublished records that the entry reached the bus
func (s *SQLOutboxStore) MarkPublished(ctx context.Context, id int64) error {
	query := s.db.Rebind(`UPDATE saga_outbox SET published_at = ?, attempts = attempts + 1 WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, models.Now(), id); err != nil {
		return errors.Wrap(err, "failed to mark outbox entry published")
	}
	return nil
}

// MarkFailed records a failed publish attempt
func (s *SQLOutboxStore) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := s.db.Rebind(`UPDATE saga_outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, reason, id); err != nil {
		return errors.Wrap(err, "failed to mark outbox entry failed")
	}
	return nil
}

// MarkDead takes the entry out of the pending set for good
func (s *SQLOutboxStore) MarkDead(ctx context.Context, id int64, reason string) error {
	query := s.db.Rebind(`UPDATE saga_outbox SET dead_at = ?, attempts = attempts + 1, last_error = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, models.Now(), reason, id); err != nil {
		return errors.Wrap(err, "failed to mark outbox entry dead")
	}
	return nil
}

// CountPending returns the number of unpublished entries
func (s *SQLOutboxStore) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM saga_outbox WHERE published_at IS NULL AND dead_at IS NULL`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count pending outbox entries")
	}
	return count, nil
}

func toOutboxRow(event *events.Event) (*outboxRow, error) {
	payload, err := event.ToJSON()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event")
	}

	return &outboxRow{
		EventID:   event.ID.String(),
		OrderID:   event.Key(),
		Topic:     event.Topic.String(),
		Payload:   string(payload),
		CreatedAt: event.Timestamp,
	}, nil
}

func toOutboxEntry(row *outboxRow) (*outbox.Entry, error) {
	event, err := events.FromJSON([]byte(row.Payload))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal outbox entry %d", row.ID)
	}

	return &outbox.Entry{
		ID:        row.ID,
		Event:     event,
		Attempts:  row.Attempts,
		LastError: row.LastError.String,
		CreatedAt: row.CreatedAt,
	}, nil
}

// OutboxSchema returns the DDL of the saga_outbox table for driver
func OutboxSchema(driver string) []string {
	id := "BIGSERIAL PRIMARY KEY"
	if driver == DriverSQLite {
		id = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS saga_outbox (
			id ` + id + `,
			event_id VARCHAR(64) NOT NULL UNIQUE,
			order_id VARCHAR(64) NOT NULL,
			topic VARCHAR(128) NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			published_at TIMESTAMP NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_saga_outbox_pending ON saga_outbox (published_at, id)`,
	}
}

// OutboxDeadSchema adds the dead_at column entries get once the relay gives
// up on them
func OutboxDeadSchema(string) []string {
	return []string{
		`ALTER TABLE saga_outbox ADD COLUMN dead_at TIMESTAMP NULL`,
		`CREATE INDEX IF NOT EXISTS idx_saga_outbox_live ON saga_outbox (published_at, dead_at, id)`,
	}
}

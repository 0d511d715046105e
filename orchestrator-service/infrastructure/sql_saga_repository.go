package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/shared/events"
	sharedinfra "github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ domain.SagaRepository = (*SQLSagaRepository)(nil)

const sagaColumns = `
	order_id, customer_id, product_id, quantity, amount, status, current_step,
	payment_id, reservation_id, failure_reason, attempts, created_at, updated_at, version`

// SQLSagaRepository implements SagaRepository on Postgres or SQLite
type SQLSagaRepository struct {
	db *sqlx.DB
}

// NewSQLSagaRepository creates a new SQLSagaRepository
func NewSQLSagaRepository(db *sqlx.DB) *SQLSagaRepository {
	return &SQLSagaRepository{db: db}
}

// sqlSaga represents a saga in database
type sqlSaga struct {
	OrderID       string         `db:"order_id"`
	CustomerID    string         `db:"customer_id"`
	ProductID     string         `db:"product_id"`
	Quantity      int            `db:"quantity"`
	Amount        float64        `db:"amount"`
	Status        string         `db:"status"`
	CurrentStep   string         `db:"current_step"`
	PaymentID     sql.NullString `db:"payment_id"`
	ReservationID sql.NullString `db:"reservation_id"`
	FailureReason string         `db:"failure_reason"`
	Attempts      int            `db:"attempts"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	Version       int            `db:"version"`
	OldVersion    int            `db:"old_version"`
}

// Create inserts a new saga and its outbound messages
func (r *SQLSagaRepository) Create(ctx context.Context, saga *domain.OrderSaga) error {
	query := `
		INSERT INTO order_sagas (` + sagaColumns + `
		) VALUES (
			:order_id, :customer_id, :product_id, :quantity, :amount, :status, :current_step,
			:payment_id, :reservation_id, :failure_reason, :attempts, :created_at, :updated_at, :version
		)`

	next := saga.Version.Next()
	row := r.toSQL(saga, next)

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			if sharedinfra.IsUniqueViolation(err) {
				return errors.Wrap(domain.ErrDuplicateOrder, saga.OrderID.String())
			}
			return errors.Wrap(err, "failed to insert saga")
		}
		return sharedinfra.InsertOutboxEvents(ctx, tx, saga.Events())
	})
	if err != nil {
		return err
	}

	saga.Version = next
	saga.ClearEvents()
	return nil
}

// Save updates a saga with an optimistic version check and stores its
// outbound messages
func (r *SQLSagaRepository) Save(ctx context.Context, saga *domain.OrderSaga) error {
	query := `
		UPDATE order_sagas
		SET status = :status, current_step = :current_step, payment_id = :payment_id,
			reservation_id = :reservation_id, failure_reason = :failure_reason,
			attempts = :attempts, updated_at = :updated_at, version = :version
		WHERE order_id = :order_id AND version = :old_version`

	next := saga.Version.Next()
	row := r.toSQL(saga, next)

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, query, row)
		if err != nil {
			return errors.Wrap(err, "failed to update saga")
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "failed to read affected rows")
		}
		if affected == 0 {
			return errors.Wrapf(domain.ErrConcurrentUpdate, "order %s at version %d", saga.OrderID, saga.Version.Value)
		}

		return sharedinfra.InsertOutboxEvents(ctx, tx, saga.Events())
	})
	if err != nil {
		return err
	}

	saga.Version = next
	saga.ClearEvents()
	return nil
}

// Enqueue stores outbound messages without touching the saga row
func (r *SQLSagaRepository) Enqueue(ctx context.Context, orderID models.ID, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		return sharedinfra.InsertOutboxEventsOnce(ctx, tx, evts)
	})
}

// FindByOrderID finds a saga by its orderId
func (r *SQLSagaRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.OrderSaga, error) {
	query := r.db.Rebind(`SELECT ` + sagaColumns + ` FROM order_sagas WHERE order_id = ?`)

	var row sqlSaga
	err := r.db.GetContext(ctx, &row, query, orderID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find saga")
	}

	return r.toDomain(&row), nil
}

// List returns every saga, oldest first
func (r *SQLSagaRepository) List(ctx context.Context) ([]*domain.OrderSaga, error) {
	query := `SELECT ` + sagaColumns + ` FROM order_sagas ORDER BY created_at ASC, order_id ASC`

	var rows []sqlSaga
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to list sagas")
	}

	return r.toDomainList(rows), nil
}

// ListStale returns sagas in one of statuses last updated before olderThan
func (r *SQLSagaRepository) ListStale(ctx context.Context, statuses []domain.SagaStatus, olderThan time.Time) ([]*domain.OrderSaga, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}

	query, args, err := sqlx.In(
		`SELECT `+sagaColumns+` FROM order_sagas WHERE status IN (?) AND updated_at < ? ORDER BY updated_at ASC`,
		names, olderThan.UTC(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build stale saga query")
	}

	var rows []sqlSaga
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to list stale sagas")
	}

	return r.toDomainList(rows), nil
}

func (r *SQLSagaRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// toSQL converts a saga to its database row at the given version
func (r *SQLSagaRepository) toSQL(saga *domain.OrderSaga, version models.Version) *sqlSaga {
	return &sqlSaga{
		OrderID:       saga.OrderID.String(),
		CustomerID:    saga.CustomerID,
		ProductID:     saga.ProductID,
		Quantity:      saga.Quantity,
		Amount:        saga.Amount,
		Status:        saga.Status.String(),
		CurrentStep:   saga.CurrentStep.String(),
		PaymentID:     nullString(saga.PaymentID),
		ReservationID: nullString(saga.ReservationID),
		FailureReason: saga.FailureReason,
		Attempts:      saga.Attempts,
		CreatedAt:     saga.Timestamps.CreatedAt.UTC(),
		UpdatedAt:     saga.Timestamps.UpdatedAt.UTC(),
		Version:       version.Value,
		OldVersion:    saga.Version.Value,
	}
}

// toDomain converts a database row to a saga
func (r *SQLSagaRepository) toDomain(row *sqlSaga) *domain.OrderSaga {
	return &domain.OrderSaga{
		OrderID:       models.ID(row.OrderID),
		CustomerID:    row.CustomerID,
		ProductID:     row.ProductID,
		Quantity:      row.Quantity,
		Amount:        row.Amount,
		Status:        domain.SagaStatus(row.Status),
		CurrentStep:   domain.SagaStep(row.CurrentStep),
		PaymentID:     row.PaymentID.String,
		ReservationID: row.ReservationID.String,
		FailureReason: row.FailureReason,
		Attempts:      row.Attempts,
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt.UTC(),
			UpdatedAt: row.UpdatedAt.UTC(),
		},
		Version: models.Version{Value: row.Version},
	}
}

func (r *SQLSagaRepository) toDomainList(rows []sqlSaga) []*domain.OrderSaga {
	sagas := make([]*domain.OrderSaga, len(rows))
	for i := range rows {
		sagas[i] = r.toDomain(&rows[i])
	}
	return sagas
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

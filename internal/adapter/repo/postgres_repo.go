package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PostgresOrderRepo struct {
	Pool *pgxpool.Pool
}

func NewPostgresOrderRepo(pool *pgxpool.Pool) *PostgresOrderRepo {
	return &PostgresOrderRepo{Pool: pool}
}

const orderColumns = `id, order_id, customer_wa, size, items, totals, pickup_slot, slot_reserved,
	payment_id, payment_status, status, notes, source, created_at, updated_at`

func (r *PostgresOrderRepo) Create(ctx context.Context, o domain.Order) (domain.Order, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "marshal items")
	}
	totals, err := json.Marshal(o.Totals)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "marshal totals")
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	err = pgx.BeginFunc(ctx, r.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO orders(`+orderColumns+`)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			o.ID, o.OrderID, o.CustomerWA, o.Size, items, totals, o.PickupSlot, o.SlotReserved,
			o.PaymentID, o.PaymentStatus, o.Status, o.Notes, o.Source, o.CreatedAt, o.UpdatedAt); err != nil {
			return err
		}
		return logStatus(ctx, tx, o.OrderID, o.Status)
	})
	if err != nil {
		return domain.Order{}, errors.Wrapf(err, "insert order %s", o.OrderID)
	}
	return o, nil
}

func (r *PostgresOrderRepo) Find(ctx context.Context, orderID string) (domain.Order, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, errors.Wrapf(err, "select order %s", orderID)
	}
	return o, nil
}

// UpdateStatus only moves an order that is still in status from.
func (r *PostgresOrderRepo) UpdateStatus(ctx context.Context, orderID string, from, to domain.Status) error {
	return pgx.BeginFunc(ctx, r.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE orders SET status = $3, updated_at = now()
			WHERE order_id = $1 AND status = $2`, orderID, from, to)
		if err != nil {
			return errors.Wrapf(err, "update status of %s", orderID)
		}
		if tag.RowsAffected() == 0 {
			if _, err := currentPaymentStatus(ctx, tx, orderID); err != nil {
				return err
			}
			return domain.ErrStaleStatus
		}
		return logStatus(ctx, tx, orderID, to)
	})
}

func (r *PostgresOrderRepo) SetPayment(ctx context.Context, orderID, paymentID string) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE orders SET payment_id = $2, updated_at = now() WHERE order_id = $1`, orderID, paymentID)
	if err != nil {
		return errors.Wrapf(err, "set payment of %s", orderID)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApplyPaymentStatus is a conditional update: a repeated payment status changes
// nothing, and the order must still be in status from.
func (r *PostgresOrderRepo) ApplyPaymentStatus(ctx context.Context, orderID string, ps domain.PaymentStatus, from, to domain.Status) (bool, error) {
	changed := false
	err := pgx.BeginFunc(ctx, r.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE orders SET payment_status = $2, status = $4, updated_at = now()
			WHERE order_id = $1 AND payment_status <> $2 AND status = $3`, orderID, ps, from, to)
		if err != nil {
			return errors.Wrapf(err, "apply payment status to %s", orderID)
		}
		if tag.RowsAffected() == 0 {
			current, err := currentPaymentStatus(ctx, tx, orderID)
			if err != nil {
				return err
			}
			if current != ps {
				return domain.ErrStaleStatus
			}
			return nil
		}
		changed = true
		return logStatus(ctx, tx, orderID, to)
	})
	return changed, err
}

// currentPaymentStatus returns the payment status of an order, or ErrNotFound.
func currentPaymentStatus(ctx context.Context, tx pgx.Tx, orderID string) (domain.PaymentStatus, error) {
	var ps domain.PaymentStatus
	err := tx.QueryRow(ctx, `SELECT payment_status FROM orders WHERE order_id = $1`, orderID).Scan(&ps)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return ps, errors.Wrapf(err, "lookup order %s", orderID)
}

func (r *PostgresOrderRepo) LoadAll(ctx context.Context, fn func(o domain.Order) error) error {
	rows, err := r.Pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at`)
	if err != nil {
		return errors.Wrap(err, "select orders")
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return rows.Err()
}

// StatusHistory returns the recorded statuses of an order, oldest first.
func (r *PostgresOrderRepo) StatusHistory(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	rows, err := r.Pool.Query(ctx, `SELECT status, changed_at FROM order_status_log WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "select status log of %s", orderID)
	}
	history, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.StatusChange])
	if err != nil {
		return nil, errors.Wrapf(err, "scan status log of %s", orderID)
	}
	if len(history) == 0 {
		return nil, domain.ErrNotFound
	}
	return history, nil
}

func logStatus(ctx context.Context, tx pgx.Tx, orderID string, status domain.Status) error {
	_, err := tx.Exec(ctx, `INSERT INTO order_status_log(order_id, status) VALUES($1, $2)`, orderID, status)
	return errors.Wrapf(err, "log status of %s", orderID)
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o             domain.Order
		items, totals []byte
	)
	if err := row.Scan(&o.ID, &o.OrderID, &o.CustomerWA, &o.Size, &items, &totals, &o.PickupSlot, &o.SlotReserved,
		&o.PaymentID, &o.PaymentStatus, &o.Status, &o.Notes, &o.Source, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return domain.Order{}, errors.Wrapf(err, "decode items of %s", o.OrderID)
	}
	if err := json.Unmarshal(totals, &o.Totals); err != nil {
		return domain.Order{}, errors.Wrapf(err, "decode totals of %s", o.OrderID)
	}
	return o, nil
}

var (
	_ domain.OrderRepository = (*PostgresOrderRepo)(nil)
	_ domain.StatusLog       = (*PostgresOrderRepo)(nil)
)

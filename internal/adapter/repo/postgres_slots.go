package repo

import (
	"context"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// PostgresSlotRepo — слоты самовывоза с атомарным списанием вместимости.
type PostgresSlotRepo struct {
	Pool *pgxpool.Pool
}

func NewPostgresSlotRepo(pool *pgxpool.Pool) *PostgresSlotRepo {
	return &PostgresSlotRepo{Pool: pool}
}

func (r *PostgresSlotRepo) List(ctx context.Context, from, to time.Time) ([]domain.Slot, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, slot_time, capacity, available, is_active, created_at, updated_at
		FROM slots WHERE is_active AND slot_time >= $1 AND slot_time < $2 ORDER BY slot_time`, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "select slots")
	}
	slots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Slot, error) {
		var s domain.Slot
		err := row.Scan(&s.ID, &s.SlotTime, &s.Capacity, &s.Available, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
		return s, err
	})
	return slots, errors.Wrap(err, "scan slots")
}

func (r *PostgresSlotRepo) Seed(ctx context.Context, slots []domain.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(`INSERT INTO slots(id, slot_time, capacity, available, is_active)
			VALUES($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			s.ID, s.SlotTime, s.Capacity, s.Available, s.IsActive)
	}
	return errors.Wrap(r.Pool.SendBatch(ctx, batch).Close(), "seed slots")
}

// Reserve takes one place in a slot; the WHERE clause keeps concurrent bookings from overselling.
func (r *PostgresSlotRepo) Reserve(ctx context.Context, slotID string) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE slots SET available = available - 1, updated_at = now()
		WHERE id = $1 AND is_active AND available > 0`, slotID)
	if err != nil {
		return errors.Wrapf(err, "reserve slot %s", slotID)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.missingOrFull(ctx, slotID)
}

func (r *PostgresSlotRepo) Release(ctx context.Context, slotID string) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE slots SET available = LEAST(available + 1, capacity), updated_at = now()
		WHERE id = $1`, slotID)
	if err != nil {
		return errors.Wrapf(err, "release slot %s", slotID)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresSlotRepo) missingOrFull(ctx context.Context, slotID string) error {
	var active bool
	err := r.Pool.QueryRow(ctx, `SELECT is_active FROM slots WHERE id = $1`, slotID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "lookup slot %s", slotID)
	}
	return domain.ErrSlotFull
}

var _ domain.SlotRepository = (*PostgresSlotRepo)(nil)

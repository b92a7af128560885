package sqlite

import (
	"context"
	"database/sql"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
)

type keySlotsRepo struct {
	db dbtx
}

func (r *keySlotsRepo) GetKeySlotCounter(ctx context.Context) (domain.KeySlotCounter, error) {
	var (
		c          domain.KeySlotCounter
		lastUpdate int64
		lastReset  sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT slot_index, calls_made, max_calls, max_slots, last_update, last_reset
		   FROM key_slot_counter WHERE id = 1`,
	).Scan(&c.SlotIndex, &c.CallsMade, &c.MaxCalls, &c.MaxSlots, &lastUpdate, &lastReset)
	if err != nil {
		return domain.KeySlotCounter{}, mapNotFound(err)
	}
	c.LastUpdate = fromMillis(lastUpdate)
	c.LastReset = mapNullMillisPtr(lastReset)
	return c, nil
}

func (r *keySlotsRepo) exec(ctx context.Context, query string, args ...any) error {
	return expectOne(r.db.ExecContext(ctx, query, args...))
}

func (r *keySlotsRepo) AddSlotIndex(ctx context.Context, delta int) error {
	return r.exec(ctx,
		`UPDATE key_slot_counter SET slot_index = slot_index + ?, last_update = ? WHERE id = 1`,
		delta, toMillis(now()))
}

func (r *keySlotsRepo) ResetCalls(ctx context.Context) error {
	ts := toMillis(now())
	return r.exec(ctx,
		`UPDATE key_slot_counter SET calls_made = 0, last_update = ?, last_reset = ? WHERE id = 1`,
		ts, ts)
}

func (r *keySlotsRepo) SetCalls(ctx context.Context, calls int) error {
	return r.exec(ctx,
		`UPDATE key_slot_counter SET calls_made = ?, last_update = ? WHERE id = 1`,
		calls, toMillis(now()))
}

func (r *keySlotsRepo) IncrementCalls(ctx context.Context, n int) error {
	return r.exec(ctx,
		`UPDATE key_slot_counter SET calls_made = calls_made + ?, last_update = ? WHERE id = 1`,
		n, toMillis(now()))
}

func (r *keySlotsRepo) SetLimits(ctx context.Context, maxCalls, maxSlots int) error {
	return r.exec(ctx,
		`UPDATE key_slot_counter SET max_calls = ?, max_slots = ?, last_update = ? WHERE id = 1`,
		maxCalls, maxSlots, toMillis(now()))
}

func (r *keySlotsRepo) ResetCounter(ctx context.Context) error {
	ts := toMillis(now())
	return r.exec(ctx,
		`UPDATE key_slot_counter SET slot_index = 1, calls_made = 0, last_update = ?, last_reset = ? WHERE id = 1`,
		ts, ts)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
	"github.com/HackDavis/admissions-portal-sub000/pkg/mailchimp"
	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
)

// CredentialSource resolves the notification credentials for a slot.
type CredentialSource interface {
	Credentials(slot int) (mailchimp.Credentials, error)
}

// KeyReserver hands out credential slot assignments ahead of a batch of
// notification calls. Reservations are serialized by a process mutex and run
// inside one store transaction.
type KeyReserver struct {
	Store       store.Store
	Credentials CredentialSource
	Metrics     *Metrics

	mu sync.Mutex
}

// reservation is the simulated outcome of assigning count calls.
type reservation struct {
	indices    []int
	rotations  int
	finalCalls int // calls made on the last slot after the batch
}

// planReservation assigns count sequential calls. A slot rotates once calls
// reach MaxCalls-1. Rotation past MaxSlots, or any assigned slot without
// credentials (the starting one included), fails the whole plan.
func planReservation(c domain.KeySlotCounter, count int, creds CredentialSource) (reservation, error) {
	if c.MaxCalls < 2 || c.MaxSlots < 1 || c.SlotIndex < 1 {
		return reservation{}, fmt.Errorf("%w: max_calls=%d max_slots=%d slot=%d",
			ErrInvalidKeyLimits, c.MaxCalls, c.MaxSlots, c.SlotIndex)
	}
	if c.SlotIndex > c.MaxSlots {
		return reservation{}, fmt.Errorf("%w: slot %d of %d", ErrKeysExhausted, c.SlotIndex, c.MaxSlots)
	}

	slot, calls := c.SlotIndex, c.CallsMade
	indices := make([]int, 0, count)

	for range count {
		if calls >= c.MaxCalls-1 {
			next := slot + 1
			if next > c.MaxSlots {
				return reservation{}, fmt.Errorf("%w: %d calls requested, %d available",
					ErrKeysExhausted, count, c.Remaining())
			}
			slot, calls = next, 0
		}
		// Every slot the batch lands on must resolve before anything is written.
		if len(indices) == 0 || indices[len(indices)-1] != slot {
			if _, err := creds.Credentials(slot); err != nil {
				return reservation{}, fmt.Errorf("%w: slot %d: %w", ErrMissingEnvironment, slot, err)
			}
		}
		indices = append(indices, slot)
		calls++
	}

	return reservation{
		indices:    indices,
		rotations:  slot - c.SlotIndex,
		finalCalls: calls,
	}, nil
}

// ReserveIndices returns one slot index per upcoming call. Nothing is
// persisted when the reservation fails.
func (r *KeyReserver) ReserveIndices(ctx context.Context, count int) ([]int, error) {
	if count <= 0 {
		return nil, nil
	}
	log := slogx.FromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	var plan reservation
	err := r.Store.WithTx(ctx, func(tx store.Tx) error {
		keys := tx.KeySlots()

		c, err := keys.GetKeySlotCounter(ctx)
		if err != nil {
			return fmt.Errorf("read key slot counter: %w", err)
		}

		plan, err = planReservation(c, count, r.Credentials)
		if err != nil {
			return err
		}

		if plan.rotations == 0 {
			return keys.IncrementCalls(ctx, count)
		}
		if err := keys.AddSlotIndex(ctx, plan.rotations); err != nil {
			return err
		}
		if err := keys.ResetCalls(ctx); err != nil {
			return err
		}
		return keys.SetCalls(ctx, plan.finalCalls)
	})
	if err != nil {
		log.Error("key reservation failed", slog.Int("count", count), slog.Any("error", err))
		return nil, err
	}

	r.Metrics.rotations(plan.rotations)
	log.Debug("key slots reserved",
		slog.Int("count", count),
		slog.Int("rotations", plan.rotations),
		slog.Int("final_slot", plan.indices[len(plan.indices)-1]),
	)
	return plan.indices, nil
}

// Status returns the current counter record.
func (r *KeyReserver) Status(ctx context.Context) (domain.KeySlotCounter, error) {
	return r.Store.KeySlots().GetKeySlotCounter(ctx)
}

// Reset returns the counter to slot 1 with zero calls.
func (r *KeyReserver) Reset(ctx context.Context) (domain.KeySlotCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.Store.KeySlots().ResetCounter(ctx); err != nil {
		return domain.KeySlotCounter{}, err
	}
	slogx.FromContext(ctx).Info("key slot counter reset")
	return r.Store.KeySlots().GetKeySlotCounter(ctx)
}

// ApplyLimits sets max calls per slot and max slots.
func (r *KeyReserver) ApplyLimits(ctx context.Context, maxCalls, maxSlots int) error {
	if maxCalls < 2 || maxSlots < 1 {
		return fmt.Errorf("%w: max_calls=%d max_slots=%d", ErrInvalidKeyLimits, maxCalls, maxSlots)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Store.KeySlots().SetLimits(ctx, maxCalls, maxSlots)
}

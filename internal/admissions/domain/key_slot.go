package domain

import "time"

const (
	DefaultMaxCalls = 500
	DefaultMaxSlots = 1
)

// KeySlotCounter is the persisted usage record for notification credential slots.
type KeySlotCounter struct {
	SlotIndex  int        `json:"slot_index"` // 1-based
	CallsMade  int        `json:"calls_made"`
	MaxCalls   int        `json:"max_calls"`
	MaxSlots   int        `json:"max_slots"`
	LastUpdate time.Time  `json:"last_update"`
	LastReset  *time.Time `json:"last_reset,omitempty"`
}

// Remaining is the number of calls that can still be reserved, keeping a
// one-call buffer on every slot.
func (c KeySlotCounter) Remaining() int {
	if c.MaxCalls < 2 {
		return 0
	}
	perSlot := c.MaxCalls - 1
	onCurrent := max(perSlot-c.CallsMade, 0)
	return onCurrent + max(c.MaxSlots-c.SlotIndex, 0)*perSlot
}

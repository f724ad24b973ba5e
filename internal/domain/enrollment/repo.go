package enrollment

import "context"

// SlotRepository is the only way the allocator touches the participant pool.
// MarkUsedIf must be an atomic compare-and-set: it updates the slot only if
// id_used is still false and reports how many rows it changed.
type SlotRepository interface {
	SelectUnused(ctx context.Context) (*Slot, error)
	MarkUsedIf(ctx context.Context, participantNumber string, group Group) (int64, error)
	Stats(ctx context.Context) (*PoolStats, error)
	Import(ctx context.Context, slots []Slot) (int, error)
}

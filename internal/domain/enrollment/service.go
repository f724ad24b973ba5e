package enrollment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/pretest/internal/platform/telemetry"
)

// DefaultMaxAttempts bounds how many times Claim retries after losing a race
// for a slot.
const DefaultMaxAttempts = 5

// markTimeout bounds the conditional update once it has been issued. The
// update runs detached from the caller's context so a disconnect cannot
// leave a slot marked used without its credentials being returned.
const markTimeout = 5 * time.Second

// RandomSource picks the study arm. Intn must return a value in [0, n).
type RandomSource interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.IntN(n) }

// DefaultRandom draws from the process-wide math/rand/v2 source, which is
// safe for concurrent use.
var DefaultRandom RandomSource = globalRand{}

// Allocator claims participant slots. It holds no pool state of its own;
// every claim goes through the repository's conditional update.
type Allocator struct {
	slots       SlotRepository
	rnd         RandomSource
	maxAttempts int
	logger      zerolog.Logger
	metrics     *telemetry.Registry
}

func NewAllocator(slots SlotRepository, rnd RandomSource, maxAttempts int, logger zerolog.Logger) *Allocator {
	if rnd == nil {
		rnd = DefaultRandom
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		slots:       slots,
		rnd:         rnd,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// SetMetrics attaches an optional counter registry.
func (a *Allocator) SetMetrics(m *telemetry.Registry) {
	a.metrics = m
}

// Claim marks exactly one unused slot as used, assigns it a uniformly random
// arm and returns its credentials. It fails with PoolExhausted when no unused
// slot remains, AllocationConflict when every attempt lost the conditional
// update to a concurrent claimant, and TransportError on store failures.
func (a *Allocator) Claim(ctx context.Context) (*Credentials, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, a.fail(KindTransport, attempt-1, err)
		}

		slot, err := a.slots.SelectUnused(ctx)
		if errors.Is(err, ErrNoUnusedSlot) {
			return nil, a.fail(KindPoolExhausted, attempt, nil)
		}
		if err != nil {
			return nil, a.fail(KindTransport, attempt, err)
		}

		group := a.pickGroup()
		n, err := a.markUsed(ctx, slot.ParticipantNumber, group)
		if err != nil {
			return nil, a.fail(KindTransport, attempt, err)
		}
		if n > 0 {
			a.metrics.Inc(telemetry.ClaimsTotal, telemetry.L("outcome", "claimed"))
			a.logger.Info().
				Str("participant_number", slot.ParticipantNumber).
				Str("group", string(group)).
				Int("attempt", attempt).
				Msg("participant slot claimed")
			return &Credentials{
				ParticipantNumber: slot.ParticipantNumber,
				Password:          slot.ParticipantPassword,
				Group:             group,
			}, nil
		}

		a.logger.Debug().
			Str("participant_number", slot.ParticipantNumber).
			Int("attempt", attempt).
			Msg("slot claimed concurrently, retrying")
	}
	return nil, a.fail(KindAllocationConflict, a.maxAttempts, nil)
}

func (a *Allocator) markUsed(ctx context.Context, number string, group Group) (int64, error) {
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancel()
	return a.slots.MarkUsedIf(mctx, number, group)
}

func (a *Allocator) pickGroup() Group {
	return Groups[a.rnd.Intn(len(Groups))]
}

func (a *Allocator) fail(kind ErrorKind, attempts int, err error) error {
	outcome := map[ErrorKind]string{
		KindPoolExhausted:      "pool_exhausted",
		KindAllocationConflict: "conflict",
		KindTransport:          "transport_error",
	}[kind]
	a.metrics.Inc(telemetry.ClaimsTotal, telemetry.L("outcome", outcome))

	evt := a.logger.Warn()
	if kind == KindTransport {
		evt = a.logger.Error().Err(err)
	}
	evt.Str("kind", string(kind)).Int("attempts", attempts).Msg("participant slot claim failed")

	return &AllocationError{Kind: kind, Attempts: attempts, Err: err}
}

// Stats reports pool usage.
func (a *Allocator) Stats(ctx context.Context) (*PoolStats, error) {
	return a.slots.Stats(ctx)
}

// ImportSlots provisions new slots. Passwords must be non-empty and numbers
// unique within the batch.
func (a *Allocator) ImportSlots(ctx context.Context, slots []Slot) (int, error) {
	seen := make(map[string]bool, len(slots))
	for i, s := range slots {
		if s.ParticipantNumber == "" {
			return 0, fmt.Errorf("slot %d: participant_number is required", i+1)
		}
		if s.ParticipantPassword == "" {
			return 0, fmt.Errorf("slot %s: participant_password is required", s.ParticipantNumber)
		}
		if seen[s.ParticipantNumber] {
			return 0, fmt.Errorf("slot %s: duplicate participant_number", s.ParticipantNumber)
		}
		seen[s.ParticipantNumber] = true
	}
	return a.slots.Import(ctx, slots)
}

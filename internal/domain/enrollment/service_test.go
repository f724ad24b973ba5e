package enrollment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/ehr/pretest/internal/platform/telemetry"
)

// ── Mock Repository ──

type mockSlotRepo struct {
	mu    sync.Mutex
	slots map[string]*Slot
	order []string

	selectErr error
	markErr   error
	statsErr  error
	// stolen makes MarkUsedIf lose the race this many times by claiming the
	// slot for someone else before the caller's update lands.
	stolen int
}

func newMockSlotRepo(numbers ...string) *mockSlotRepo {
	m := &mockSlotRepo{slots: map[string]*Slot{}}
	for _, n := range numbers {
		m.slots[n] = &Slot{ParticipantNumber: n, ParticipantPassword: "pw-" + n}
		m.order = append(m.order, n)
	}
	return m
}

func (m *mockSlotRepo) SelectUnused(_ context.Context) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	for _, n := range m.order {
		if s := m.slots[n]; !s.IDUsed {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNoUnusedSlot
}

func (m *mockSlotRepo) MarkUsedIf(_ context.Context, number string, group Group) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return 0, m.markErr
	}
	s, ok := m.slots[number]
	if !ok {
		return 0, nil
	}
	if m.stolen > 0 {
		m.stolen--
		s.IDUsed = true
		s.Group = GroupControl
		return 0, nil
	}
	if s.IDUsed {
		return 0, nil
	}
	s.IDUsed = true
	s.Group = group
	return 1, nil
}

// cancelOnMark cancels the caller's request while the conditional update is
// in flight and fails the update the way a driver does when its context ends
// first.
type cancelOnMark struct {
	*mockSlotRepo
	cancel context.CancelFunc
}

func (c *cancelOnMark) MarkUsedIf(ctx context.Context, number string, group Group) (int64, error) {
	c.cancel()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.mockSlotRepo.MarkUsedIf(ctx, number, group)
}

func (m *mockSlotRepo) Stats(_ context.Context) (*PoolStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	st := &PoolStats{Total: len(m.slots)}
	for _, s := range m.slots {
		if s.IDUsed {
			st.Used++
		}
		switch s.Group {
		case GroupIntervention:
			st.Intervention++
		case GroupControl:
			st.Control++
		}
	}
	st.Unused = st.Total - st.Used
	return st, nil
}

func (m *mockSlotRepo) Import(_ context.Context, slots []Slot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range slots {
		if _, ok := m.slots[s.ParticipantNumber]; ok {
			continue
		}
		cp := s
		m.slots[s.ParticipantNumber] = &cp
		m.order = append(m.order, s.ParticipantNumber)
		n++
	}
	return n, nil
}

// fixedRandom returns the queued values in order, then repeats the last one.
type fixedRandom struct {
	mu   sync.Mutex
	vals []int
}

func (f *fixedRandom) Intn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.vals[0]
	if len(f.vals) > 1 {
		f.vals = f.vals[1:]
	}
	return v % n
}

// alternating flips deterministically between the two arms.
type alternating struct{ n atomic.Int64 }

func (a *alternating) Intn(n int) int { return int(a.n.Add(1)) % n }

func numbers(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("P-%03d", i+1)
	}
	return out
}

// ── Tests ──

func TestClaim_SingleSlot(t *testing.T) {
	repo := newMockSlotRepo("P-042")
	repo.slots["P-042"].ParticipantPassword = "x7Q9"
	alloc := NewAllocator(repo, &fixedRandom{vals: []int{0}}, 3, zerolog.Nop())

	creds, err := alloc.Claim(context.Background())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if creds.ParticipantNumber != "P-042" || creds.Password != "x7Q9" {
		t.Errorf("unexpected credentials %+v", creds)
	}
	if creds.Group != GroupIntervention {
		t.Errorf("expected Intervention for coin 0, got %s", creds.Group)
	}
	if !repo.slots["P-042"].IDUsed || repo.slots["P-042"].Group != GroupIntervention {
		t.Errorf("slot not persisted as used: %+v", repo.slots["P-042"])
	}

	_, err = alloc.Claim(context.Background())
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted on second claim, got %v", err)
	}
}

func TestClaim_CoinMapsToControl(t *testing.T) {
	repo := newMockSlotRepo("P-001")
	alloc := NewAllocator(repo, &fixedRandom{vals: []int{1}}, 1, zerolog.Nop())
	creds, err := alloc.Claim(context.Background())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if creds.Group != GroupControl {
		t.Errorf("expected Control for coin 1, got %s", creds.Group)
	}
}

func TestClaim_EmptyPool(t *testing.T) {
	alloc := NewAllocator(newMockSlotRepo(), nil, 0, zerolog.Nop())
	_, err := alloc.Claim(context.Background())
	if KindOf(err) != KindPoolExhausted {
		t.Fatalf("expected PoolExhausted, got %v", err)
	}
	var ae *AllocationError
	if !errors.As(err, &ae) {
		t.Fatal("expected *AllocationError")
	}
	if ae.UserMessage() != "No available participant slots found. Please contact the administrator." {
		t.Errorf("unexpected message %q", ae.UserMessage())
	}
}

func TestClaim_RetriesAfterLostRace(t *testing.T) {
	repo := newMockSlotRepo("P-001", "P-002", "P-003")
	repo.stolen = 2
	metrics := telemetry.NewRegistry()
	alloc := NewAllocator(repo, &fixedRandom{vals: []int{0}}, 3, zerolog.Nop())
	alloc.SetMetrics(metrics)

	creds, err := alloc.Claim(context.Background())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if creds.ParticipantNumber != "P-003" {
		t.Errorf("expected third slot after two lost races, got %s", creds.ParticipantNumber)
	}
	if got := metrics.Get(telemetry.ClaimsTotal, telemetry.L("outcome", "claimed")); got != 1 {
		t.Errorf("expected 1 claimed, got %d", got)
	}
}

func TestClaim_ConflictAfterMaxAttempts(t *testing.T) {
	repo := newMockSlotRepo(numbers(10)...)
	repo.stolen = 10
	metrics := telemetry.NewRegistry()
	alloc := NewAllocator(repo, nil, 3, zerolog.Nop())
	alloc.SetMetrics(metrics)

	_, err := alloc.Claim(context.Background())
	if !errors.Is(err, ErrAllocationConflict) {
		t.Fatalf("expected ErrAllocationConflict, got %v", err)
	}
	var ae *AllocationError
	errors.As(err, &ae)
	if ae.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", ae.Attempts)
	}
	if got := metrics.Get(telemetry.ClaimsTotal, telemetry.L("outcome", "conflict")); got != 1 {
		t.Errorf("expected 1 conflict, got %d", got)
	}
}

func TestClaim_TransportErrors(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("select", func(t *testing.T) {
		repo := newMockSlotRepo("P-001")
		repo.selectErr = boom
		_, err := NewAllocator(repo, nil, 3, zerolog.Nop()).Claim(context.Background())
		if !errors.Is(err, ErrTransport) || !errors.Is(err, boom) {
			t.Fatalf("expected transport error wrapping cause, got %v", err)
		}
	})

	t.Run("update", func(t *testing.T) {
		repo := newMockSlotRepo("P-001")
		repo.markErr = boom
		_, err := NewAllocator(repo, nil, 3, zerolog.Nop()).Claim(context.Background())
		if KindOf(err) != KindTransport {
			t.Fatalf("expected TransportError, got %v", err)
		}
		if repo.slots["P-001"].IDUsed {
			t.Error("slot must stay unused after a failed update")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewAllocator(newMockSlotRepo("P-001"), nil, 3, zerolog.Nop()).Claim(ctx)
		if KindOf(err) != KindTransport {
			t.Fatalf("expected TransportError, got %v", err)
		}
	})
}

func TestClaim_CancelDuringUpdateStillReturnsCredentials(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := &cancelOnMark{mockSlotRepo: newMockSlotRepo("P-001"), cancel: cancel}

	creds, err := NewAllocator(repo, &fixedRandom{vals: []int{1}}, 3, zerolog.Nop()).Claim(ctx)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("caller context should have been cancelled during the update")
	}
	if creds.ParticipantNumber != "P-001" || creds.Password != "pw-P-001" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
	s := repo.slots["P-001"]
	if !s.IDUsed || s.Group != creds.Group {
		t.Errorf("slot state = used:%v group:%q, want used with group %q", s.IDUsed, s.Group, creds.Group)
	}
}

func TestClaim_ConcurrentExactlyOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	const poolSize = 20
	const claimants = 50
	repo := newMockSlotRepo(numbers(poolSize)...)
	alloc := NewAllocator(repo, nil, poolSize+1, zerolog.Nop())

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		claimed   = map[string]int{}
		exhausted atomic.Int64
		other     atomic.Int64
	)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			creds, err := alloc.Claim(context.Background())
			switch {
			case err == nil:
				mu.Lock()
				claimed[creds.ParticipantNumber]++
				mu.Unlock()
			case errors.Is(err, ErrPoolExhausted):
				exhausted.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	if len(claimed) != poolSize {
		t.Errorf("expected %d distinct claims, got %d", poolSize, len(claimed))
	}
	for n, c := range claimed {
		if c != 1 {
			t.Errorf("slot %s handed out %d times", n, c)
		}
	}
	if exhausted.Load() != claimants-poolSize {
		t.Errorf("expected %d exhausted, got %d", claimants-poolSize, exhausted.Load())
	}
	if other.Load() != 0 {
		t.Errorf("expected no other failures, got %d", other.Load())
	}
}

func TestClaim_GroupSplit(t *testing.T) {
	const n = 1000
	repo := newMockSlotRepo(numbers(n)...)
	alloc := NewAllocator(repo, &alternating{}, 1, zerolog.Nop())
	for i := 0; i < n; i++ {
		if _, err := alloc.Claim(context.Background()); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	st, _ := alloc.Stats(context.Background())
	if st.Intervention != n/2 || st.Control != n/2 {
		t.Errorf("expected even split, got %d/%d", st.Intervention, st.Control)
	}
	if st.Unused != 0 || st.Used != n {
		t.Errorf("unexpected usage %+v", st)
	}
}

func TestClaim_DefaultRandomRoughlyBalanced(t *testing.T) {
	const n = 4000
	repo := newMockSlotRepo(numbers(n)...)
	alloc := NewAllocator(repo, nil, 1, zerolog.Nop())
	for i := 0; i < n; i++ {
		if _, err := alloc.Claim(context.Background()); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	st, _ := alloc.Stats(context.Background())
	// 6 standard deviations of Binomial(4000, 0.5) is about 190.
	if st.Intervention < n/2-190 || st.Intervention > n/2+190 {
		t.Errorf("intervention count %d outside expected band", st.Intervention)
	}
}

func TestImportSlots(t *testing.T) {
	repo := newMockSlotRepo("P-001")
	alloc := NewAllocator(repo, nil, 1, zerolog.Nop())

	n, err := alloc.ImportSlots(context.Background(), []Slot{
		{ParticipantNumber: "P-001", ParticipantPassword: "a"},
		{ParticipantNumber: "P-002", ParticipantPassword: "b"},
	})
	if err != nil {
		t.Fatalf("ImportSlots: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 new slot, got %d", n)
	}

	bad := [][]Slot{
		{{ParticipantNumber: "", ParticipantPassword: "a"}},
		{{ParticipantNumber: "P-9", ParticipantPassword: ""}},
		{{ParticipantNumber: "P-9", ParticipantPassword: "a"}, {ParticipantNumber: "P-9", ParticipantPassword: "b"}},
	}
	for i, batch := range bad {
		if _, err := alloc.ImportSlots(context.Background(), batch); err == nil {
			t.Errorf("batch %d: expected validation error", i)
		}
	}
}

func TestParseGroup(t *testing.T) {
	if g, err := ParseGroup("Intervention"); err != nil || g != GroupIntervention {
		t.Errorf("ParseGroup(Intervention) = %q, %v", g, err)
	}
	if g, err := ParseGroup(""); err != nil || g != "" {
		t.Errorf("ParseGroup(\"\") = %q, %v", g, err)
	}
	if _, err := ParseGroup("Placebo"); err == nil {
		t.Error("expected error for unknown group")
	}
}

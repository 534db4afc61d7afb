package reservation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagepass/internal/domain"
	"stagepass/internal/repository"
	"stagepass/internal/service/reservation"
)

// fakeSeatStore mimics the all-or-nothing conditional transition and the
// stale-hold sweep of the postgres repo over an in-memory map guarded by a
// mutex.
type fakeSeatStore struct {
	mu         sync.Mutex
	seats      map[uuid.UUID]*domain.Seat
	pendingRef map[uuid.UUID]bool // seat backs a pending booking's ticket
}

func newFakeSeatStore() *fakeSeatStore {
	return &fakeSeatStore{
		seats:      make(map[uuid.UUID]*domain.Seat),
		pendingRef: make(map[uuid.UUID]bool),
	}
}

func (f *fakeSeatStore) add(eventID uuid.UUID, status domain.SeatStatus, price int64) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.seats[id] = &domain.Seat{ID: id, EventID: eventID, Status: status, PriceKobo: price}
	return id
}

func (f *fakeSeatStore) addHold(eventID uuid.UUID, reservedAt time.Time, backsPending bool) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	at := reservedAt
	f.seats[id] = &domain.Seat{
		ID: id, EventID: eventID, Status: domain.SeatReserved,
		PriceKobo: 1500_00, ReservedAt: &at,
	}
	f.pendingRef[id] = backsPending
	return id
}

func (f *fakeSeatStore) status(id uuid.UUID) domain.SeatStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seats[id].Status
}

func (f *fakeSeatStore) Transition(
	_ context.Context,
	eventID uuid.UUID,
	seatIDs []uuid.UUID,
	from []domain.SeatStatus,
	to domain.SeatStatus,
) ([]domain.SeatLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var missing []uuid.UUID
	events := map[uuid.UUID]struct{}{}
	if eventID != uuid.Nil {
		events[eventID] = struct{}{}
	}
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		events[s.EventID] = struct{}{}
	}
	if len(missing) > 0 {
		return nil, &repository.SeatsNotFoundError{SeatIDs: missing}
	}
	if len(events) > 1 {
		return nil, repository.ErrCrossEvent
	}

	eligible := func(st domain.SeatStatus) bool {
		for _, fs := range from {
			if st == fs {
				return true
			}
		}
		return false
	}

	var okIDs []uuid.UUID
	for _, id := range seatIDs {
		if eligible(f.seats[id].Status) {
			okIDs = append(okIDs, id)
		}
	}
	if len(okIDs) != len(seatIDs) {
		return nil, &repository.SeatConflictError{Attempted: seatIDs, Eligible: okIDs}
	}

	locks := make([]domain.SeatLock, 0, len(seatIDs))
	for _, id := range seatIDs {
		f.seats[id].Status = to
		locks = append(locks, domain.SeatLock{ID: id, PriceKobo: f.seats[id].PriceKobo})
	}
	return locks, nil
}

func (f *fakeSeatStore) ReleaseStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var released int64
	for id, s := range f.seats {
		if s.Status != domain.SeatReserved || s.ReservedAt == nil {
			continue
		}
		if s.ReservedAt.After(cutoff) || f.pendingRef[id] {
			continue
		}
		s.Status = domain.SeatAvailable
		s.ReservedAt = nil
		released++
	}
	return released, nil
}

func TestReserve_Success(t *testing.T) {
	store := newFakeSeatStore()
	eventID := uuid.New()
	a := store.add(eventID, domain.SeatAvailable, 1500_00)
	b := store.add(eventID, domain.SeatAvailable, 1500_00)

	svc := reservation.New(store, nil, nil, reservation.Config{})

	locks, err := svc.Reserve(context.Background(), eventID, []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Len(t, locks, 2)
	assert.Equal(t, domain.SeatReserved, store.status(a))
	assert.Equal(t, domain.SeatReserved, store.status(b))
}

func TestReserve_PartialConflict_NoSideEffects(t *testing.T) {
	store := newFakeSeatStore()
	eventID := uuid.New()
	free := store.add(eventID, domain.SeatAvailable, 1500_00)
	taken := store.add(eventID, domain.SeatBooked, 1500_00)

	svc := reservation.New(store, nil, nil, reservation.Config{})

	_, err := svc.Reserve(context.Background(), eventID, []uuid.UUID{free, taken})
	require.Error(t, err)

	var conflict *reservation.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, reservation.ErrSeatsUnavailable)
	assert.ElementsMatch(t, []uuid.UUID{free, taken}, conflict.Attempted)
	assert.ElementsMatch(t, []uuid.UUID{free}, conflict.Eligible)

	// the eligible seat was not touched
	assert.Equal(t, domain.SeatAvailable, store.status(free))
}

func TestBook_ConcurrentContestedSeat_OneWinner(t *testing.T) {
	store := newFakeSeatStore()
	eventID := uuid.New()
	contested := store.add(eventID, domain.SeatAvailable, 2500_00)

	svc := reservation.New(store, nil, nil, reservation.Config{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Book(context.Background(), eventID, []uuid.UUID{contested})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, reservation.ErrSeatsUnavailable)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, domain.SeatBooked, store.status(contested))
}

func TestBook_AcceptsReservedSeats(t *testing.T) {
	store := newFakeSeatStore()
	eventID := uuid.New()
	reserved := store.add(eventID, domain.SeatReserved, 800_00)
	available := store.add(eventID, domain.SeatAvailable, 800_00)

	svc := reservation.New(store, nil, nil, reservation.Config{})

	locks, err := svc.Book(context.Background(), eventID, []uuid.UUID{reserved, available})
	require.NoError(t, err)
	assert.Len(t, locks, 2)
	assert.Equal(t, domain.SeatBooked, store.status(reserved))
	assert.Equal(t, domain.SeatBooked, store.status(available))
}

func TestRelease_OnlyReservedEligible(t *testing.T) {
	store := newFakeSeatStore()
	eventID := uuid.New()
	booked := store.add(eventID, domain.SeatBooked, 800_00)

	svc := reservation.New(store, nil, nil, reservation.Config{})

	_, err := svc.Release(context.Background(), eventID, []uuid.UUID{booked})
	assert.ErrorIs(t, err, reservation.ErrSeatsUnavailable)
	assert.Equal(t, domain.SeatBooked, store.status(booked))
}

func TestUnbook_ReturnsSeatsToPool(t *testing.T) {
	store := newFakeSeatStore()
	eventID := uuid.New()
	booked := store.add(eventID, domain.SeatBooked, 800_00)

	svc := reservation.New(store, nil, nil, reservation.Config{})

	_, err := svc.Unbook(context.Background(), eventID, []uuid.UUID{booked})
	require.NoError(t, err)
	assert.Equal(t, domain.SeatAvailable, store.status(booked))
}

func TestTransition_CrossEventRejected(t *testing.T) {
	store := newFakeSeatStore()
	eventA := uuid.New()
	eventB := uuid.New()
	seatA := store.add(eventA, domain.SeatAvailable, 800_00)
	seatB := store.add(eventB, domain.SeatAvailable, 800_00)

	svc := reservation.New(store, nil, nil, reservation.Config{})

	_, err := svc.Reserve(context.Background(), eventA, []uuid.UUID{seatA, seatB})
	assert.ErrorIs(t, err, reservation.ErrCrossEvent)
	assert.Equal(t, domain.SeatAvailable, store.status(seatA))
}

func TestTransition_UnknownSeat(t *testing.T) {
	store := newFakeSeatStore()
	eventID := uuid.New()
	known := store.add(eventID, domain.SeatAvailable, 800_00)
	unknown := uuid.New()

	svc := reservation.New(store, nil, nil, reservation.Config{})

	_, err := svc.Reserve(context.Background(), eventID, []uuid.UUID{known, unknown})

	var missing *reservation.SeatsNotFoundError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []uuid.UUID{unknown}, missing.SeatIDs)
}

func TestTransition_RejectsDuplicateSeatIDs(t *testing.T) {
	store := newFakeSeatStore()
	eventID := uuid.New()
	seat := store.add(eventID, domain.SeatAvailable, 800_00)

	svc := reservation.New(store, nil, nil, reservation.Config{})

	_, err := svc.Reserve(context.Background(), eventID, []uuid.UUID{seat, seat})
	assert.ErrorIs(t, err, reservation.ErrDuplicateSeats)
	assert.Equal(t, domain.SeatAvailable, store.status(seat))
}

func TestReleaseStale_FreesAbandonedHoldsOnly(t *testing.T) {
	store := newFakeSeatStore()
	eventID := uuid.New()
	now := time.Now()

	stale := store.addHold(eventID, now.Add(-30*time.Minute), false)
	fresh := store.addHold(eventID, now.Add(-1*time.Minute), false)
	awaitingPayment := store.addHold(eventID, now.Add(-30*time.Minute), true)

	svc := reservation.New(store, nil, nil, reservation.Config{HoldTTL: 15 * time.Minute})

	released, err := svc.ReleaseStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	assert.Equal(t, domain.SeatAvailable, store.status(stale))
	assert.Equal(t, domain.SeatReserved, store.status(fresh))
	// a hold backing a pending booking is settled by payment confirmation,
	// never by the reaper
	assert.Equal(t, domain.SeatReserved, store.status(awaitingPayment))
}

func TestTransition_ValidatesInput(t *testing.T) {
	store := newFakeSeatStore()
	svc := reservation.New(store, nil, nil, reservation.Config{})

	_, err := svc.Reserve(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, reservation.ErrNoSeatsSelected)

	_, err = svc.Reserve(context.Background(), uuid.Nil, []uuid.UUID{uuid.New()})
	assert.Error(t, err)
}

package ledger_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagepass/internal/domain"
	"stagepass/internal/repository"
	"stagepass/internal/service/ledger"
)

// fakeBookingStore reproduces the transactional behavior of the postgres
// store: SettlePending applies the whole write set at most once per booking,
// or not at all when the seat transition conflicts.
type fakeBookingStore struct {
	mu         sync.Mutex
	bookings   map[string]*domain.Booking
	tickets    map[uuid.UUID][]domain.Ticket
	seatStatus map[uuid.UUID]domain.SeatStatus
	settles    int

	// failSeatSettle simulates a seat transition conflict inside the settle
	// transaction; the booking must stay pending.
	failSeatSettle bool
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{
		bookings:   make(map[string]*domain.Booking),
		tickets:    make(map[uuid.UUID][]domain.Ticket),
		seatStatus: make(map[uuid.UUID]domain.SeatStatus),
	}
}

func (f *fakeBookingStore) CreateWithTickets(_ context.Context, b *domain.Booking, tickets []domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.bookings[b.Reference]; exists {
		return repository.ErrConflict
	}
	cp := *b
	f.bookings[b.Reference] = &cp
	f.tickets[b.ID] = append([]domain.Ticket(nil), tickets...)
	for _, t := range tickets {
		f.seatStatus[t.SeatID] = domain.SeatBooked
	}
	return nil
}

func (f *fakeBookingStore) ByReference(_ context.Context, reference string) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[reference]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingStore) SeatIDsByBooking(_ context.Context, bookingID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for _, t := range f.tickets[bookingID] {
		ids = append(ids, t.SeatID)
	}
	return ids, nil
}

func (f *fakeBookingStore) SettlePending(_ context.Context, stl repository.Settlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var b *domain.Booking
	for _, cand := range f.bookings {
		if cand.ID == stl.BookingID {
			b = cand
			break
		}
	}
	if b == nil || b.Status != domain.BookingPending {
		return repository.ErrAlreadyFinalized
	}

	if f.failSeatSettle {
		return &repository.SeatConflictError{Attempted: stl.SeatIDs}
	}

	b.Status = stl.Status
	b.PaymentStatus = stl.Payment
	if stl.CancelTickets {
		ts := f.tickets[b.ID]
		for i := range ts {
			if ts[i].Status == domain.TicketActive {
				ts[i].Status = domain.TicketCancelled
			}
		}
	}
	for _, id := range stl.SeatIDs {
		f.seatStatus[id] = stl.SeatTo
	}
	f.settles++
	return nil
}

func (f *fakeBookingStore) settleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settles
}

type fakeEngine struct {
	mu      sync.Mutex
	settled []uuid.UUID
}

func (f *fakeEngine) SeatsSettled(_ context.Context, eventID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, eventID)
}

func (f *fakeEngine) settledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.settled)
}

func createPending(t *testing.T, svc *ledger.Service, store *fakeBookingStore) *domain.Booking {
	t.Helper()

	locked := []domain.SeatLock{
		{ID: uuid.New(), PriceKobo: 1500_00},
		{ID: uuid.New(), PriceKobo: 2500_00},
	}
	ref := ledger.NewBookingReference()

	b, err := svc.CreatePending(context.Background(), "user-1", uuid.New(), locked, "card", ref, ref)
	require.NoError(t, err)
	return b
}

func TestCreatePending_BuildsBookingAndTickets(t *testing.T) {
	store := newFakeBookingStore()
	svc := ledger.New(store, store, &fakeEngine{}, nil)

	b := createPending(t, svc, store)

	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, domain.PaymentPending, b.PaymentStatus)
	assert.Equal(t, int64(4000_00), b.TotalKobo)
	assert.True(t, strings.HasPrefix(b.Reference, "BK-"))

	tickets := store.tickets[b.ID]
	require.Len(t, tickets, 2)
	for _, tk := range tickets {
		assert.Equal(t, domain.TicketActive, tk.Status)
		assert.True(t, strings.HasPrefix(tk.Number, "TKT-"))
		assert.Contains(t, tk.QRPayload, tk.Number)
	}
}

func TestCreatePending_RequiresSeats(t *testing.T) {
	store := newFakeBookingStore()
	svc := ledger.New(store, store, &fakeEngine{}, nil)

	_, err := svc.CreatePending(context.Background(), "user-1", uuid.New(), nil, "card", "BK-1", "BK-1")
	assert.ErrorIs(t, err, ledger.ErrNoSeatsLocked)
}

func TestFinalize_Paid_ConfirmsBookingAndSeats(t *testing.T) {
	store := newFakeBookingStore()
	engine := &fakeEngine{}
	svc := ledger.New(store, store, engine, nil)

	b := createPending(t, svc, store)

	require.NoError(t, svc.Finalize(context.Background(), b.Reference, ledger.OutcomePaid))

	got, err := store.ByReference(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, got.Status)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)
	for _, tk := range store.tickets[b.ID] {
		assert.Equal(t, domain.SeatBooked, store.seatStatus[tk.SeatID])
	}
	assert.Equal(t, 1, engine.settledCount())
}

func TestFinalize_Failed_CancelsTicketsAndReleasesSeats(t *testing.T) {
	store := newFakeBookingStore()
	engine := &fakeEngine{}
	svc := ledger.New(store, store, engine, nil)

	b := createPending(t, svc, store)

	require.NoError(t, svc.Finalize(context.Background(), b.Reference, ledger.OutcomeFailed))

	got, err := store.ByReference(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, got.Status)
	assert.Equal(t, domain.PaymentFailed, got.PaymentStatus)
	for _, tk := range store.tickets[b.ID] {
		assert.Equal(t, domain.TicketCancelled, tk.Status)
		assert.Equal(t, domain.SeatAvailable, store.seatStatus[tk.SeatID])
	}
	assert.Equal(t, 1, engine.settledCount())
}

func TestFinalize_DuplicateDelivery_NoOp(t *testing.T) {
	store := newFakeBookingStore()
	engine := &fakeEngine{}
	svc := ledger.New(store, store, engine, nil)

	b := createPending(t, svc, store)

	require.NoError(t, svc.Finalize(context.Background(), b.Reference, ledger.OutcomePaid))
	require.NoError(t, svc.Finalize(context.Background(), b.Reference, ledger.OutcomePaid))
	require.NoError(t, svc.Finalize(context.Background(), b.Reference, ledger.OutcomeFailed))

	// settled once, seats stayed booked
	got, err := store.ByReference(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, got.Status)
	assert.Equal(t, 1, store.settleCount())
	assert.Equal(t, 1, engine.settledCount())
}

func TestFinalize_ConcurrentDeliveries_OneWinner(t *testing.T) {
	store := newFakeBookingStore()
	engine := &fakeEngine{}
	svc := ledger.New(store, store, engine, nil)

	b := createPending(t, svc, store)

	const deliveries = 6
	var wg sync.WaitGroup
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Finalize(context.Background(), b.Reference, ledger.OutcomePaid)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, store.settleCount())
	assert.Equal(t, 1, engine.settledCount())
}

func TestFinalize_SeatSettleConflict_LeavesBookingPending(t *testing.T) {
	store := newFakeBookingStore()
	engine := &fakeEngine{}
	svc := ledger.New(store, store, engine, nil)

	b := createPending(t, svc, store)
	store.failSeatSettle = true

	err := svc.Finalize(context.Background(), b.Reference, ledger.OutcomePaid)
	require.Error(t, err)

	// the settle transaction rolled back as a whole
	got, lookupErr := store.ByReference(context.Background(), b.Reference)
	require.NoError(t, lookupErr)
	assert.Equal(t, domain.BookingPending, got.Status)
	assert.Equal(t, 0, engine.settledCount())
}

func TestFinalize_UnknownReference(t *testing.T) {
	store := newFakeBookingStore()
	svc := ledger.New(store, store, &fakeEngine{}, nil)

	err := svc.Finalize(context.Background(), "BK-0-UNKNOWN", ledger.OutcomePaid)

	var nf *ledger.BookingNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "BK-0-UNKNOWN", nf.Reference)
}

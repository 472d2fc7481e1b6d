package wizard

import (
	"context"
	"errors"
	"testing"

	"velora/internal/events"
	"velora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSubmit_SingleService(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	catalog := new(MockCatalog)
	m := newTestManager(backend, catalog)

	state := fillToReview(t, m, catalog, manicure)

	backend.On("CurrentActorID", ctx).Return("", nil)
	backend.On("CreateBooking", ctx, mock.MatchedBy(func(r models.BookingRecord) bool {
		return r.ServiceID == "svc-1" && r.Notes == "ring the bell" && r.UserID == ""
	})).Return(&models.Booking{ID: "b-1", OrderNumber: "ORD-1234", Status: models.StatusPending}, nil)

	result, err := m.Submit(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StepConfirmation, result.Step)
	assert.Equal(t, "ORD-1234", result.OrderNumber)

	// single service: no secondary batch insert
	backend.AssertNotCalled(t, "CreateBookings", mock.Anything, mock.Anything)
	backend.AssertExpectations(t)
}

func TestSubmit_SecondariesAnnotatedWithOrderNumber(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	catalog := new(MockCatalog)
	m := newTestManager(backend, catalog)

	state := fillToReview(t, m, catalog, manicure, pedicure)

	backend.On("CurrentActorID", ctx).Return("user-7", nil)
	backend.On("CreateBooking", ctx, mock.MatchedBy(func(r models.BookingRecord) bool {
		return r.ServiceID == "svc-1" && r.UserID == "user-7"
	})).Return(&models.Booking{ID: "b-1", OrderNumber: "ORD-7777", Status: models.StatusPending}, nil)
	backend.On("CreateBookings", ctx, mock.MatchedBy(func(records []models.BookingRecord) bool {
		return len(records) == 1 &&
			records[0].ServiceID == "svc-2" &&
			records[0].Notes == "Additional service for booking ORD-7777" &&
			records[0].BookingDate == state.Draft.Date &&
			records[0].BookingTime == "10:00"
	})).Return([]models.Booking{{ID: "b-2", OrderNumber: "ORD-7778"}}, nil)

	result, err := m.Submit(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StepConfirmation, result.Step)
	assert.Equal(t, "ORD-7777", result.OrderNumber)
	backend.AssertExpectations(t)
}

func TestSubmit_ValidatesBeforeAnyNetworkCall(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	catalog := new(MockCatalog)
	m := newTestManager(backend, catalog)

	state := fillToReview(t, m, catalog, manicure)

	// wipe the time slot behind the guard's back
	stored, err := m.states.GetState(ctx, state.SessionID)
	require.NoError(t, err)
	stored.Draft.Time = ""
	require.NoError(t, m.states.SetState(ctx, stored))

	_, err = m.Submit(ctx, state.SessionID)
	assert.ErrorIs(t, err, ErrMissingSchedule)

	backend.AssertNotCalled(t, "CurrentActorID", mock.Anything)
	backend.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestSubmit_WrongStep(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	m := newTestManager(backend, new(MockCatalog))

	state, err := m.Start(ctx, &manicure)
	require.NoError(t, err)

	_, err = m.Submit(ctx, state.SessionID)
	assert.ErrorIs(t, err, ErrWrongStep)
	backend.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestSubmit_PrimaryFailureStaysOnReview(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	catalog := new(MockCatalog)
	m := newTestManager(backend, catalog)

	state := fillToReview(t, m, catalog, manicure)

	backend.On("CurrentActorID", ctx).Return("", nil)
	backend.On("CreateBooking", ctx, mock.Anything).Return(nil, errors.New("backend down"))

	_, err := m.Submit(ctx, state.SessionID)
	require.Error(t, err)

	// session survived on review, retry is possible
	reloaded, err := m.Get(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StepReview, reloaded.Step)
	assert.Empty(t, reloaded.OrderNumber)
}

func TestSubmit_SecondaryFailureIsPartial(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	catalog := new(MockCatalog)
	m := newTestManager(backend, catalog)

	state := fillToReview(t, m, catalog, manicure, pedicure)

	backend.On("CurrentActorID", ctx).Return("", nil)
	backend.On("CreateBooking", ctx, mock.Anything).
		Return(&models.Booking{ID: "b-1", OrderNumber: "ORD-5555"}, nil)
	backend.On("CreateBookings", ctx, mock.Anything).Return(nil, errors.New("insert failed"))

	_, err := m.Submit(ctx, state.SessionID)
	require.Error(t, err)

	var partial *PartialSubmissionError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "ORD-5555", partial.OrderNumber)

	reloaded, err := m.Get(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StepReview, reloaded.Step)
}

func TestSubmit_InFlightGuard(t *testing.T) {
	ctx := context.Background()
	catalog := new(MockCatalog)
	m := newTestManager(new(MockBackend), catalog)

	state := fillToReview(t, m, catalog, manicure)

	m.inflight.Store(state.SessionID, struct{}{})
	defer m.inflight.Delete(state.SessionID)

	_, err := m.Submit(ctx, state.SessionID)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	// navigation is blocked too while the submission runs
	_, err = m.Back(ctx, state.SessionID)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	_, err = m.ToggleService(ctx, state.SessionID, "svc-1")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
}

func TestSubmit_AnonymousWhenActorLookupFails(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	catalog := new(MockCatalog)
	m := newTestManager(backend, catalog)

	state := fillToReview(t, m, catalog, manicure)

	backend.On("CurrentActorID", ctx).Return("", errors.New("auth service timeout"))
	backend.On("CreateBooking", ctx, mock.MatchedBy(func(r models.BookingRecord) bool {
		return r.UserID == ""
	})).Return(&models.Booking{ID: "b-1", OrderNumber: "ORD-0001"}, nil)

	result, err := m.Submit(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-0001", result.OrderNumber)
	backend.AssertExpectations(t)
}

func TestSubmit_PublishesEvent(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	catalog := new(MockCatalog)

	bus := events.NewEventBus()
	var published []*events.Event
	bus.Subscribe(events.EventBookingSubmitted, func(e *events.Event) error {
		published = append(published, e)
		return nil
	})

	m := newTestManager(backend, catalog)
	m.events = bus

	state := fillToReview(t, m, catalog, manicure, pedicure)

	backend.On("CurrentActorID", ctx).Return("", nil)
	backend.On("CreateBooking", ctx, mock.Anything).
		Return(&models.Booking{ID: "b-1", OrderNumber: "ORD-9000"}, nil)
	backend.On("CreateBookings", ctx, mock.Anything).
		Return([]models.Booking{{ID: "b-2"}}, nil)

	_, err := m.Submit(ctx, state.SessionID)
	require.NoError(t, err)

	require.Len(t, published, 1)
	assert.Contains(t, string(published[0].Payload), "ORD-9000")
	// at-home total: 40 + 60 + 25 travel fee
	assert.Contains(t, string(published[0].Payload), `"total":125`)
}

func TestQuote(t *testing.T) {
	m := newTestManager(new(MockBackend), new(MockCatalog))
	state := &models.WizardState{
		Draft: models.BookingDraft{
			SelectedServices: []models.Service{manicure, pedicure},
			ServiceLocation:  models.LocationAtHome,
		},
	}

	quote := m.Quote(state)
	assert.Equal(t, 100.0, quote.Subtotal)
	assert.Equal(t, 25.0, quote.TravelFee)
	assert.Equal(t, 125.0, quote.Total)
	assert.Equal(t, 75, quote.TotalDuration)
}

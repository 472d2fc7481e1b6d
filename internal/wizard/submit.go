package wizard

import (
	"context"
	"fmt"
	"time"

	"velora/internal/events"
	"velora/internal/models"
	"velora/internal/pricing"
)

// Submit turns the validated draft into persisted records and moves the
// session to the confirmation step. Exactly one submission may be in flight
// per session; on any failure the session stays on the review step and the
// user may retry.
func (m *Manager) Submit(ctx context.Context, sessionID string) (*models.WizardState, error) {
	if _, loaded := m.inflight.LoadOrStore(sessionID, struct{}{}); loaded {
		return nil, ErrSubmissionInFlight
	}
	defer m.inflight.Delete(sessionID)

	state, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepReview {
		return nil, ErrWrongStep
	}

	// Все проверки до первого сетевого вызова
	if err := ValidateDraft(state.Draft, m.cfg, time.Now()); err != nil {
		return nil, err
	}

	// Анонимное бронирование допустимо, ошибка резолва не фатальна
	actorID, err := m.backend.CurrentActorID(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("actor lookup failed, booking anonymously")
		actorID = ""
	}

	records := buildRecords(state.Draft, actorID)

	primary, err := m.backend.CreateBooking(ctx, records[0])
	if err != nil {
		m.logger.Error().Err(err).Str("session_id", sessionID).Msg("primary booking insert failed")
		return nil, fmt.Errorf("create primary booking: %w", err)
	}

	if len(records) > 1 {
		secondaries := records[1:]
		for i := range secondaries {
			secondaries[i].Notes = fmt.Sprintf("Additional service for booking %s", primary.OrderNumber)
		}
		if _, err := m.backend.CreateBookings(ctx, secondaries); err != nil {
			// The primary row already exists server-side; no compensating
			// delete is attempted. Log the order number for reconciliation.
			m.logger.Error().Err(err).
				Str("session_id", sessionID).
				Str("order_number", primary.OrderNumber).
				Int("secondary_count", len(secondaries)).
				Msg("secondary bookings insert failed after primary was created")
			return nil, &PartialSubmissionError{OrderNumber: primary.OrderNumber, Err: err}
		}
	}

	state.Step = models.StepConfirmation
	state.OrderNumber = primary.OrderNumber
	if err := m.save(ctx, state); err != nil {
		return nil, err
	}

	m.publishSubmitted(state, actorID)

	m.logger.Info().
		Str("session_id", sessionID).
		Str("order_number", primary.OrderNumber).
		Int("services", len(records)).
		Msg("booking submitted")
	return state, nil
}

// buildRecords maps the draft to one insert payload per selected service.
// Every record shares the customer, schedule and location fields; only the
// first one carries the customer's own notes.
func buildRecords(draft models.BookingDraft, actorID string) []models.BookingRecord {
	records := make([]models.BookingRecord, 0, len(draft.SelectedServices))
	for i, svc := range draft.SelectedServices {
		record := models.BookingRecord{
			ServiceID:       svc.ID,
			CustomerName:    draft.Customer.Name,
			CustomerEmail:   draft.Customer.Email,
			CustomerPhone:   draft.Customer.Phone,
			BookingDate:     draft.Date,
			BookingTime:     draft.Time,
			ServiceLocation: draft.ServiceLocation,
			UserID:          actorID,
		}
		if i == 0 {
			record.Notes = draft.Notes
		}
		records = append(records, record)
	}
	return records
}

func (m *Manager) publishSubmitted(state *models.WizardState, actorID string) {
	if m.events == nil {
		return
	}

	serviceIDs := make([]string, 0, len(state.Draft.SelectedServices))
	for _, svc := range state.Draft.SelectedServices {
		serviceIDs = append(serviceIDs, svc.ID)
	}
	quote := pricing.Build(state.Draft.SelectedServices, state.Draft.ServiceLocation, m.cfg.TravelFee)

	payload := events.BookingSubmittedPayload{
		OrderNumber: state.OrderNumber,
		ServiceIDs:  serviceIDs,
		Total:       quote.Total,
		Location:    state.Draft.ServiceLocation,
		Date:        state.Draft.Date,
		Time:        state.Draft.Time,
		Anonymous:   actorID == "",
	}
	if err := m.events.PublishJSON(events.EventBookingSubmitted, payload); err != nil {
		m.logger.Error().Err(err).Str("order_number", state.OrderNumber).Msg("publish event error")
	}
}

// Quote aggregates the draft's price and duration with the configured
// travel fee.
func (m *Manager) Quote(state *models.WizardState) pricing.Quote {
	return pricing.Build(state.Draft.SelectedServices, state.Draft.ServiceLocation, m.cfg.TravelFee)
}

package wizard

import (
	"context"
	"strings"
	"sync"
	"time"

	"velora/internal/config"
	"velora/internal/domain"
	"velora/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// stepBack maps each step to its backward transition. Backward moves are
// always permitted and lossless.
var stepBack = map[string]string{
	models.StepPersonal: models.StepServices,
	models.StepDateTime: models.StepPersonal,
	models.StepReview:   models.StepDateTime,
}

var stepNext = map[string]string{
	models.StepServices: models.StepPersonal,
	models.StepPersonal: models.StepDateTime,
	models.StepDateTime: models.StepReview,
}

// StepTitle is the display title of a wizard step.
func StepTitle(step string) string {
	switch step {
	case models.StepServices:
		return "Book Your Services"
	case models.StepPersonal:
		return "Personal Information"
	case models.StepDateTime:
		return "Select Date & Time"
	case models.StepReview:
		return "Review Booking"
	case models.StepConfirmation:
		return "Booking Confirmed"
	default:
		return "Book Appointment"
	}
}

// Manager owns the wizard sessions: one draft per session walked through
// the linear step sequence and submitted to the hosted backend.
type Manager struct {
	states  domain.StateRepository
	catalog domain.CatalogService
	backend domain.BackendClient
	events  domain.EventPublisher
	cfg     config.BookingConfig
	logger  *zerolog.Logger

	// одна отправка на сессию; блокирует и навигацию назад
	inflight sync.Map
}

func NewManager(
	states domain.StateRepository,
	catalog domain.CatalogService,
	backend domain.BackendClient,
	events domain.EventPublisher,
	cfg config.BookingConfig,
	logger *zerolog.Logger,
) *Manager {
	return &Manager{
		states:  states,
		catalog: catalog,
		backend: backend,
		events:  events,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start opens a new session. With a preselected service the wizard enters
// at the personal step with that single service selected; otherwise it
// enters at the services step with an empty selection.
func (m *Manager) Start(ctx context.Context, preselected *models.Service) (*models.WizardState, error) {
	now := time.Now()
	state := &models.WizardState{
		SessionID: uuid.NewString(),
		Step:      models.StepServices,
		Draft: models.BookingDraft{
			ServiceLocation: models.LocationInSalon,
		},
		CreatedAt: now,
	}

	if preselected != nil {
		state.Step = models.StepPersonal
		state.Draft.SelectedServices = []models.Service{*preselected}
	}

	if err := m.save(ctx, state); err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("session_id", state.SessionID).
		Str("step", state.Step).
		Msg("wizard session started")
	return state, nil
}

func (m *Manager) Get(ctx context.Context, sessionID string) (*models.WizardState, error) {
	return m.load(ctx, sessionID)
}

// Close discards the session entirely. Reopening always yields a fresh
// draft with default fields.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	if err := m.states.ClearState(ctx, sessionID); err != nil {
		m.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to clear wizard session")
		return err
	}
	return nil
}

// ToggleService selects the service, or deselects it when already in the
// draft. The service is resolved through the catalog so the draft carries
// its price and duration.
func (m *Manager) ToggleService(ctx context.Context, sessionID, serviceID string) (*models.WizardState, error) {
	state, err := m.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	svc, err := m.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	state.Draft.ToggleService(*svc)
	if err := m.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetCustomer updates the contact fields and, when given, the service
// location.
func (m *Manager) SetCustomer(ctx context.Context, sessionID string, customer models.Customer, location string) (*models.WizardState, error) {
	state, err := m.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if location != "" {
		if !validLocation(location) {
			return nil, ErrInvalidLocation
		}
		state.Draft.ServiceLocation = location
	}
	state.Draft.Customer = customer

	if err := m.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetSchedule updates date, time slot and notes. Empty date or slot clears
// the field; non-empty values are validated against the business calendar.
func (m *Manager) SetSchedule(ctx context.Context, sessionID, date, slot, notes string) (*models.WizardState, error) {
	state, err := m.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if date != "" {
		if err := validateDate(date, m.cfg, time.Now()); err != nil {
			return nil, err
		}
	}
	if slot != "" {
		if err := validateSlot(slot, m.cfg); err != nil {
			return nil, err
		}
	}

	state.Draft.Date = date
	state.Draft.Time = slot
	state.Draft.Notes = strings.TrimSpace(notes)

	if err := m.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Next advances one step when the current step's guard holds; otherwise it
// is a no-op and the unchanged state is returned.
func (m *Manager) Next(ctx context.Context, sessionID string) (*models.WizardState, error) {
	state, err := m.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next, ok := stepNext[state.Step]
	if !ok || !canAdvance(state, m.cfg) {
		return state, nil
	}

	state.Step = next
	if err := m.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Back moves one step backwards, preserving all draft data. At the first
// step it is a no-op. Blocked while a submission is in flight.
func (m *Manager) Back(ctx context.Context, sessionID string) (*models.WizardState, error) {
	state, err := m.editable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prev, ok := stepBack[state.Step]
	if !ok {
		return state, nil
	}

	state.Step = prev
	if err := m.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (m *Manager) load(ctx context.Context, sessionID string) (*models.WizardState, error) {
	state, err := m.states.GetState(ctx, sessionID)
	if err != nil {
		m.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to load wizard session")
		return nil, err
	}
	if state == nil {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

// editable loads the session and rejects mutation while a submission is in
// flight or after confirmation.
func (m *Manager) editable(ctx context.Context, sessionID string) (*models.WizardState, error) {
	if m.submitting(sessionID) {
		return nil, ErrSubmissionInFlight
	}

	state, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Step == models.StepConfirmation {
		return nil, ErrWrongStep
	}
	return state, nil
}

func (m *Manager) submitting(sessionID string) bool {
	_, ok := m.inflight.Load(sessionID)
	return ok
}

func (m *Manager) save(ctx context.Context, state *models.WizardState) error {
	state.UpdatedAt = time.Now()
	if err := m.states.SetState(ctx, state); err != nil {
		m.logger.Error().Err(err).Str("session_id", state.SessionID).Msg("failed to save wizard session")
		return err
	}
	return nil
}

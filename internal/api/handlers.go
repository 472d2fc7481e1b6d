package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"velora/internal/backend"
	"velora/internal/metrics"
	"velora/internal/models"
	"velora/internal/pricing"
	"velora/internal/service"
	"velora/internal/wizard"
)

type wizardResponse struct {
	Session *models.WizardState `json:"session"`
	Title   string              `json:"title"`
	Quote   pricing.Quote       `json:"quote"`
}

func (s *HTTPServer) wizardResponse(state *models.WizardState) wizardResponse {
	return wizardResponse{
		Session: state,
		Title:   wizard.StepTitle(state.Step),
		Quote:   pricing.Build(state.Draft.SelectedServices, state.Draft.ServiceLocation, s.booking.TravelFee),
	}
}

// actorContext forwards the caller's bearer token so the backend can
// attribute the booking to a signed-in user.
func actorContext(r *http.Request) context.Context {
	ctx := r.Context()
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		ctx = backend.WithActorToken(ctx, strings.TrimSpace(token))
	}
	return ctx
}

func (s *HTTPServer) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		ServiceID string `json:"service_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	ctx := actorContext(r)

	var preselected *models.Service
	if body.ServiceID != "" {
		svc, err := s.catalog.GetService(ctx, body.ServiceID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		preselected = svc
	}

	state, err := s.wizard.Start(ctx, preselected)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.wizardResponse(state))
}

func (s *HTTPServer) handleWizard(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/wizard/"
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	segments := strings.Split(rest, "/")
	if rest == "" || len(segments) > 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	sessionID := segments[0]
	ctx := actorContext(r)

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			state, err := s.wizard.Get(ctx, sessionID)
			if err != nil {
				s.writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, s.wizardResponse(state))
		case http.MethodDelete:
			if err := s.wizard.Close(ctx, sessionID); err != nil {
				s.writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch segments[1] {
	case "services":
		s.handleToggleService(ctx, w, r, sessionID)
	case "customer":
		s.handleSetCustomer(ctx, w, r, sessionID)
	case "schedule":
		s.handleSetSchedule(ctx, w, r, sessionID)
	case "next", "back":
		s.handleStep(ctx, w, r, sessionID, segments[1])
	case "submit":
		s.handleSubmit(ctx, w, r, sessionID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleToggleService(ctx context.Context, w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		ServiceID string `json:"service_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.ServiceID) == "" {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	state, err := s.wizard.ToggleService(ctx, sessionID, body.ServiceID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.wizardResponse(state))
}

func (s *HTTPServer) handleSetCustomer(ctx context.Context, w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	customer := models.Customer{Name: body.Name, Email: body.Email, Phone: body.Phone}
	state, err := s.wizard.SetCustomer(ctx, sessionID, customer, body.Location)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.wizardResponse(state))
}

func (s *HTTPServer) handleSetSchedule(ctx context.Context, w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Date  string `json:"date"`
		Time  string `json:"time"`
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	state, err := s.wizard.SetSchedule(ctx, sessionID, body.Date, body.Time, body.Notes)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.wizardResponse(state))
}

func (s *HTTPServer) handleStep(ctx context.Context, w http.ResponseWriter, r *http.Request, sessionID, direction string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var state *models.WizardState
	var err error
	if direction == "next" {
		state, err = s.wizard.Next(ctx, sessionID)
	} else {
		state, err = s.wizard.Back(ctx, sessionID)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.wizardResponse(state))
}

func (s *HTTPServer) handleSubmit(ctx context.Context, w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	state, err := s.wizard.Submit(ctx, sessionID)
	if err != nil {
		var partial *wizard.PartialSubmissionError
		if errors.As(err, &partial) {
			metrics.IncSubmission("partial")
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error":        "some services could not be booked",
				"order_number": partial.OrderNumber,
			})
			return
		}
		metrics.IncSubmission("error")
		s.writeDomainError(w, err)
		return
	}

	metrics.IncSubmission("ok")
	writeJSON(w, http.StatusOK, s.wizardResponse(state))
}

func (s *HTTPServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	categories, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	categoryID := strings.TrimSpace(r.URL.Query().Get("category_id"))
	if categoryID == "" {
		writeError(w, http.StatusBadRequest, "category_id is required")
		return
	}

	services, err := s.catalog.ListServices(r.Context(), categoryID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": wizard.TimeSlots(s.booking)})
}

func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	view, err := s.admin.Dashboard(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleAdminBooking(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/admin/bookings/"
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	segments := strings.Split(rest, "/")

	if rest == "export" {
		s.handleExport(w, r)
		return
	}

	if len(segments) != 2 || segments[1] != "status" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Action) == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	view, err := s.admin.ApplyAction(r.Context(), segments[0], models.Action(body.Action))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	metrics.IncStatusTransition(body.Action)
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "export is not configured")
		return
	}

	view, err := s.admin.Dashboard(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := s.exporter.Write(w, view.Bookings); err != nil {
		s.logger.Error().Err(err).Msg("export write error")
	}
}

// writeDomainError maps domain sentinels to HTTP status codes. Anything
// unrecognized is treated as an upstream failure.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound),
		errors.Is(err, backend.ErrNotFound),
		errors.Is(err, service.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, wizard.ErrSubmissionInFlight),
		errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, service.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wizard.ErrEmptySelection),
		errors.Is(err, wizard.ErrMissingContact),
		errors.Is(err, wizard.ErrMissingSchedule),
		errors.Is(err, wizard.ErrInvalidLocation),
		errors.Is(err, wizard.ErrInvalidDate),
		errors.Is(err, wizard.ErrPastDate),
		errors.Is(err, wizard.ErrClosedDay),
		errors.Is(err, wizard.ErrDateTooFar),
		errors.Is(err, wizard.ErrInvalidTimeSlot):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusBadGateway, "backend error")
	}
}

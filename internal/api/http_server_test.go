package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"velora/internal/backend"
	"velora/internal/config"
	"velora/internal/models"
	"velora/internal/service"
	"velora/internal/wizard"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWizard struct {
	mock.Mock
}

func (m *MockWizard) Start(ctx context.Context, preselected *models.Service) (*models.WizardState, error) {
	args := m.Called(ctx, preselected)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WizardState), args.Error(1)
}

func (m *MockWizard) Get(ctx context.Context, sessionID string) (*models.WizardState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WizardState), args.Error(1)
}

func (m *MockWizard) ToggleService(ctx context.Context, sessionID, serviceID string) (*models.WizardState, error) {
	args := m.Called(ctx, sessionID, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WizardState), args.Error(1)
}

func (m *MockWizard) SetCustomer(ctx context.Context, sessionID string, customer models.Customer, location string) (*models.WizardState, error) {
	args := m.Called(ctx, sessionID, customer, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WizardState), args.Error(1)
}

func (m *MockWizard) SetSchedule(ctx context.Context, sessionID, date, slot, notes string) (*models.WizardState, error) {
	args := m.Called(ctx, sessionID, date, slot, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WizardState), args.Error(1)
}

func (m *MockWizard) Next(ctx context.Context, sessionID string) (*models.WizardState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WizardState), args.Error(1)
}

func (m *MockWizard) Back(ctx context.Context, sessionID string) (*models.WizardState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WizardState), args.Error(1)
}

func (m *MockWizard) Submit(ctx context.Context, sessionID string) (*models.WizardState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WizardState), args.Error(1)
}

func (m *MockWizard) Close(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListCategories(ctx context.Context) ([]models.ServiceCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ServiceCategory), args.Error(1)
}

func (m *MockCatalog) ListServices(ctx context.Context, categoryID string) ([]models.Service, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Service), args.Error(1)
}

func (m *MockCatalog) GetService(ctx context.Context, id string) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

type MockAdmin struct {
	mock.Mock
}

func (m *MockAdmin) Dashboard(ctx context.Context) (*models.DashboardView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardView), args.Error(1)
}

func (m *MockAdmin) ApplyAction(ctx context.Context, bookingID string, action models.Action) (*models.DashboardView, error) {
	args := m.Called(ctx, bookingID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardView), args.Error(1)
}

type stubExporter struct{}

func (stubExporter) Write(w io.Writer, bookings []models.Booking) error {
	_, err := w.Write([]byte("xlsx"))
	return err
}

func newTestServer(wz *MockWizard, catalog *MockCatalog, admin *MockAdmin) *HTTPServer {
	logger := zerolog.Nop()
	cfg := config.APIConfig{} // auth disabled
	booking := config.BookingConfig{
		TravelFee:           25,
		ClosedDay:           "sunday",
		DayStart:            "09:00",
		DayEnd:              "17:30",
		SlotIntervalMinutes: 30,
		MaxBookingDays:      365,
	}
	return NewHTTPServer(cfg, booking, wz, catalog, admin, stubExporter{}, &logger)
}

func doRequest(t *testing.T, srv *HTTPServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func sessionFixture(step string) *models.WizardState {
	return &models.WizardState{
		SessionID: "sess-1",
		Step:      step,
		Draft: models.BookingDraft{
			SelectedServices: []models.Service{{ID: "svc-1", Name: "Manicure", Price: 40, Duration: 30}},
			ServiceLocation:  models.LocationAtHome,
		},
	}
}

func TestHandleWizardStart(t *testing.T) {
	t.Run("Fresh", func(t *testing.T) {
		wz := new(MockWizard)
		srv := newTestServer(wz, new(MockCatalog), new(MockAdmin))

		wz.On("Start", mock.Anything, (*models.Service)(nil)).
			Return(&models.WizardState{SessionID: "sess-1", Step: models.StepServices}, nil)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard", nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp wizardResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "sess-1", resp.Session.SessionID)
		assert.Equal(t, "Book Your Services", resp.Title)
	})

	t.Run("Preselected", func(t *testing.T) {
		wz := new(MockWizard)
		catalog := new(MockCatalog)
		srv := newTestServer(wz, catalog, new(MockAdmin))

		svc := &models.Service{ID: "svc-1", Name: "Manicure", Price: 40}
		catalog.On("GetService", mock.Anything, "svc-1").Return(svc, nil)
		wz.On("Start", mock.Anything, svc).
			Return(sessionFixture(models.StepPersonal), nil)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard", map[string]string{"service_id": "svc-1"})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp wizardResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		// at-home quote: 40 + 25 travel fee
		assert.Equal(t, 65.0, resp.Quote.Total)
	})

	t.Run("UnknownPreselectedService", func(t *testing.T) {
		catalog := new(MockCatalog)
		srv := newTestServer(new(MockWizard), catalog, new(MockAdmin))

		catalog.On("GetService", mock.Anything, "nope").Return(nil, backend.ErrNotFound)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard", map[string]string{"service_id": "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		srv := newTestServer(new(MockWizard), new(MockCatalog), new(MockAdmin))
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/wizard", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleWizardSession(t *testing.T) {
	t.Run("GetUnknownSession", func(t *testing.T) {
		wz := new(MockWizard)
		srv := newTestServer(wz, new(MockCatalog), new(MockAdmin))

		wz.On("Get", mock.Anything, "ghost").Return(nil, wizard.ErrSessionNotFound)

		rec := doRequest(t, srv, http.MethodGet, "/api/v1/wizard/ghost", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Delete", func(t *testing.T) {
		wz := new(MockWizard)
		srv := newTestServer(wz, new(MockCatalog), new(MockAdmin))

		wz.On("Close", mock.Anything, "sess-1").Return(nil)

		rec := doRequest(t, srv, http.MethodDelete, "/api/v1/wizard/sess-1", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("ToggleRequiresServiceID", func(t *testing.T) {
		srv := newTestServer(new(MockWizard), new(MockCatalog), new(MockAdmin))
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard/sess-1/services", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Toggle", func(t *testing.T) {
		wz := new(MockWizard)
		srv := newTestServer(wz, new(MockCatalog), new(MockAdmin))

		wz.On("ToggleService", mock.Anything, "sess-1", "svc-1").
			Return(sessionFixture(models.StepServices), nil)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard/sess-1/services", map[string]string{"service_id": "svc-1"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("SchedulePastDate", func(t *testing.T) {
		wz := new(MockWizard)
		srv := newTestServer(wz, new(MockCatalog), new(MockAdmin))

		wz.On("SetSchedule", mock.Anything, "sess-1", "2020-01-01", "10:00", "").
			Return(nil, wizard.ErrPastDate)

		rec := doRequest(t, srv, http.MethodPut, "/api/v1/wizard/sess-1/schedule",
			map[string]string{"date": "2020-01-01", "time": "10:00"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("CustomerWrongMethod", func(t *testing.T) {
		srv := newTestServer(new(MockWizard), new(MockCatalog), new(MockAdmin))
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard/sess-1/customer", map[string]string{})
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("UnknownSubresource", func(t *testing.T) {
		srv := newTestServer(new(MockWizard), new(MockCatalog), new(MockAdmin))
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard/sess-1/teleport", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleSubmit(t *testing.T) {
	t.Run("Confirmed", func(t *testing.T) {
		wz := new(MockWizard)
		srv := newTestServer(wz, new(MockCatalog), new(MockAdmin))

		confirmed := sessionFixture(models.StepConfirmation)
		confirmed.OrderNumber = "ORD-1234"
		wz.On("Submit", mock.Anything, "sess-1").Return(confirmed, nil)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard/sess-1/submit", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp wizardResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ORD-1234", resp.Session.OrderNumber)
		assert.Equal(t, "Booking Confirmed", resp.Title)
	})

	t.Run("Partial", func(t *testing.T) {
		wz := new(MockWizard)
		srv := newTestServer(wz, new(MockCatalog), new(MockAdmin))

		wz.On("Submit", mock.Anything, "sess-1").
			Return(nil, &wizard.PartialSubmissionError{OrderNumber: "ORD-5555", Err: io.ErrUnexpectedEOF})

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard/sess-1/submit", nil)
		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "ORD-5555")
	})

	t.Run("InFlight", func(t *testing.T) {
		wz := new(MockWizard)
		srv := newTestServer(wz, new(MockCatalog), new(MockAdmin))

		wz.On("Submit", mock.Anything, "sess-1").Return(nil, wizard.ErrSubmissionInFlight)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/wizard/sess-1/submit", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandleCatalog(t *testing.T) {
	t.Run("Categories", func(t *testing.T) {
		catalog := new(MockCatalog)
		srv := newTestServer(new(MockWizard), catalog, new(MockAdmin))

		catalog.On("ListCategories", mock.Anything).
			Return([]models.ServiceCategory{{ID: "cat-1", Name: "Nails"}}, nil)

		rec := doRequest(t, srv, http.MethodGet, "/api/v1/categories", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Nails")
	})

	t.Run("ServicesRequireCategory", func(t *testing.T) {
		srv := newTestServer(new(MockWizard), new(MockCatalog), new(MockAdmin))
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/services", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Services", func(t *testing.T) {
		catalog := new(MockCatalog)
		srv := newTestServer(new(MockWizard), catalog, new(MockAdmin))

		catalog.On("ListServices", mock.Anything, "cat-1").
			Return([]models.Service{{ID: "svc-1", Name: "Manicure"}}, nil)

		rec := doRequest(t, srv, http.MethodGet, "/api/v1/services?category_id=cat-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Manicure")
	})

	t.Run("Slots", func(t *testing.T) {
		srv := newTestServer(new(MockWizard), new(MockCatalog), new(MockAdmin))

		rec := doRequest(t, srv, http.MethodGet, "/api/v1/slots", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Slots []string `json:"slots"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Slots, 18)
	})
}

func TestHandleAdmin(t *testing.T) {
	view := &models.DashboardView{
		Bookings: []models.Booking{{ID: "b-1", OrderNumber: "ORD-0001", Status: models.StatusPending}},
		Stats:    models.BookingStats{Total: 1, Pending: 1},
	}

	t.Run("Dashboard", func(t *testing.T) {
		admin := new(MockAdmin)
		srv := newTestServer(new(MockWizard), new(MockCatalog), admin)

		admin.On("Dashboard", mock.Anything).Return(view, nil)

		rec := doRequest(t, srv, http.MethodGet, "/api/v1/admin/bookings", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ORD-0001")
	})

	t.Run("ApplyAction", func(t *testing.T) {
		admin := new(MockAdmin)
		srv := newTestServer(new(MockWizard), new(MockCatalog), admin)

		admin.On("ApplyAction", mock.Anything, "b-1", models.ActionConfirm).Return(view, nil)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/admin/bookings/b-1/status",
			map[string]string{"action": "confirm"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("IllegalTransition", func(t *testing.T) {
		admin := new(MockAdmin)
		srv := newTestServer(new(MockWizard), new(MockCatalog), admin)

		admin.On("ApplyAction", mock.Anything, "b-1", models.ActionComplete).
			Return(nil, service.ErrIllegalTransition)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/admin/bookings/b-1/status",
			map[string]string{"action": "complete"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		admin := new(MockAdmin)
		srv := newTestServer(new(MockWizard), new(MockCatalog), admin)

		admin.On("ApplyAction", mock.Anything, "b-1", models.Action("archive")).
			Return(nil, service.ErrUnknownAction)

		rec := doRequest(t, srv, http.MethodPost, "/api/v1/admin/bookings/b-1/status",
			map[string]string{"action": "archive"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ActionRequired", func(t *testing.T) {
		srv := newTestServer(new(MockWizard), new(MockCatalog), new(MockAdmin))
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/admin/bookings/b-1/status", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Export", func(t *testing.T) {
		admin := new(MockAdmin)
		srv := newTestServer(new(MockWizard), new(MockCatalog), admin)

		admin.On("Dashboard", mock.Anything).Return(view, nil)

		rec := doRequest(t, srv, http.MethodGet, "/api/v1/admin/bookings/export", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "bookings.xlsx")
	})
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/api/v1/wizard", "/api/v1/wizard"},
		{"/api/v1/wizard/abc-123", "/api/v1/wizard/:id"},
		{"/api/v1/wizard/abc-123/submit", "/api/v1/wizard/:id/submit"},
		{"/api/v1/admin/bookings/b-9/status", "/api/v1/admin/bookings/:id/status"},
		{"/api/v1/admin/bookings/export", "/api/v1/admin/bookings/export"},
		{"/api/v1/categories", "/api/v1/categories"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, endpointLabel(tt.path), tt.path)
	}
}

package domain

import (
	"context"

	"velora/internal/models"
)

// BackendClient is the capability contract of the hosted data backend. All
// persistence, order-number generation and joins live on the other side.
type BackendClient interface {
	ListCategories(ctx context.Context) ([]models.ServiceCategory, error)
	ListServices(ctx context.Context, categoryID string) ([]models.Service, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
	CreateBooking(ctx context.Context, record models.BookingRecord) (*models.Booking, error)
	CreateBookings(ctx context.Context, records []models.BookingRecord) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status string) error
	ListBookings(ctx context.Context) ([]models.Booking, error)
	CurrentActorID(ctx context.Context) (string, error)
}

// StateRepository stores wizard session state keyed by session id.
type StateRepository interface {
	GetState(ctx context.Context, sessionID string) (*models.WizardState, error)
	SetState(ctx context.Context, state *models.WizardState) error
	ClearState(ctx context.Context, sessionID string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type CatalogService interface {
	ListCategories(ctx context.Context) ([]models.ServiceCategory, error)
	ListServices(ctx context.Context, categoryID string) ([]models.Service, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
}

// WizardManager drives one booking draft per session through the step
// sequence up to submission.
type WizardManager interface {
	Start(ctx context.Context, preselected *models.Service) (*models.WizardState, error)
	Get(ctx context.Context, sessionID string) (*models.WizardState, error)
	ToggleService(ctx context.Context, sessionID, serviceID string) (*models.WizardState, error)
	SetCustomer(ctx context.Context, sessionID string, customer models.Customer, location string) (*models.WizardState, error)
	SetSchedule(ctx context.Context, sessionID, date, slot, notes string) (*models.WizardState, error)
	Next(ctx context.Context, sessionID string) (*models.WizardState, error)
	Back(ctx context.Context, sessionID string) (*models.WizardState, error)
	Submit(ctx context.Context, sessionID string) (*models.WizardState, error)
	Close(ctx context.Context, sessionID string) error
}

// AdminDashboard is the staff-facing view over persisted bookings.
type AdminDashboard interface {
	Dashboard(ctx context.Context) (*models.DashboardView, error)
	ApplyAction(ctx context.Context, bookingID string, action models.Action) (*models.DashboardView, error)
}

package models

import "time"

type ServiceCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

type Service struct {
	ID          string  `json:"id"`
	CategoryID  string  `json:"category_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Duration    int     `json:"duration"` // минуты
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url,omitempty"`
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// BookingDraft is the in-progress booking accumulated by the wizard.
// It exists only for the lifetime of one wizard session.
type BookingDraft struct {
	SelectedServices []Service `json:"selected_services"`
	Customer         Customer  `json:"customer"`
	ServiceLocation  string    `json:"service_location"`
	Date             string    `json:"date,omitempty"` // DateLayout
	Time             string    `json:"time,omitempty"` // ClockLayout
	Notes            string    `json:"notes,omitempty"`
}

// HasService reports whether the service id is already selected.
func (d *BookingDraft) HasService(id string) bool {
	for _, s := range d.SelectedServices {
		if s.ID == id {
			return true
		}
	}
	return false
}

// ToggleService adds the service to the selection, or removes it when the
// same id is already selected. Insertion order is preserved.
func (d *BookingDraft) ToggleService(svc Service) {
	for i, s := range d.SelectedServices {
		if s.ID == svc.ID {
			d.SelectedServices = append(d.SelectedServices[:i], d.SelectedServices[i+1:]...)
			return
		}
	}
	d.SelectedServices = append(d.SelectedServices, svc)
}

// WizardState is the persisted snapshot of one wizard session.
type WizardState struct {
	SessionID   string       `json:"session_id"`
	Step        string       `json:"step"`
	Draft       BookingDraft `json:"draft"`
	OrderNumber string       `json:"order_number,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ServiceSummary is the joined service projection returned with bookings.
type ServiceSummary struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Duration int     `json:"duration"`
}

// Booking is a persisted record owned by the hosted backend. A draft with
// several services produces one row per service; the first row is the
// primary one whose order number is surfaced to the customer.
type Booking struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	ServiceID       string          `json:"service_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	BookingDate     string          `json:"booking_date"`
	BookingTime     string          `json:"booking_time"`
	ServiceLocation string          `json:"service_location"`
	Notes           string          `json:"notes,omitempty"`
	UserID          string          `json:"user_id,omitempty"`
	Status          string          `json:"status"`
	Service         *ServiceSummary `json:"services,omitempty"`
	CreatedAt       time.Time       `json:"created_at,omitempty"`
}

// BookingRecord is the insert payload for a new booking row. The order
// number and status are assigned by the backend.
type BookingRecord struct {
	ServiceID       string `json:"service_id"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	BookingDate     string `json:"booking_date"`
	BookingTime     string `json:"booking_time"`
	ServiceLocation string `json:"service_location"`
	Notes           string `json:"notes,omitempty"`
	UserID          string `json:"user_id,omitempty"`
}

// DashboardView is the admin dashboard payload: the full booking list plus
// the aggregate counters derived from it.
type DashboardView struct {
	Bookings []Booking    `json:"bookings"`
	Stats    BookingStats `json:"stats"`
}

type BookingStats struct {
	Total     int     `json:"total"`
	Pending   int     `json:"pending"`
	Confirmed int     `json:"confirmed"`
	Completed int     `json:"completed"`
	Revenue   float64 `json:"revenue"`
}

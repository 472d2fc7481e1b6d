package service

import (
	"context"
	"errors"
	"fmt"

	"velora/internal/domain"
	"velora/internal/events"
	"velora/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrUnknownAction     = errors.New("unknown action")
	ErrIllegalTransition = errors.New("illegal status transition")
)

// AdminService is the staff-facing side: the dashboard listing with
// aggregate counters and the status lifecycle actions.
type AdminService struct {
	backend domain.BackendClient
	events  domain.EventPublisher
	logger  *zerolog.Logger
}

func NewAdminService(backend domain.BackendClient, events domain.EventPublisher, logger *zerolog.Logger) *AdminService {
	return &AdminService{
		backend: backend,
		events:  events,
		logger:  logger,
	}
}

// Dashboard returns every booking, newest first, with the counters derived
// from the same snapshot.
func (s *AdminService) Dashboard(ctx context.Context) (*models.DashboardView, error) {
	bookings, err := s.backend.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return &models.DashboardView{
		Bookings: bookings,
		Stats:    buildStats(bookings),
	}, nil
}

// ApplyAction moves one booking along the status lifecycle and returns a
// refreshed dashboard. The transition is checked against the booking's
// current server-side status, not whatever the caller last saw.
func (s *AdminService) ApplyAction(ctx context.Context, bookingID string, action models.Action) (*models.DashboardView, error) {
	target, ok := models.ActionTarget(action)
	if !ok {
		return nil, ErrUnknownAction
	}

	bookings, err := s.backend.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	booking := findBooking(bookings, bookingID)
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	if !models.CanTransition(booking.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, booking.Status, target)
	}

	if err := s.backend.UpdateBookingStatus(ctx, bookingID, target); err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	s.logger.Info().
		Str("booking_id", bookingID).
		Str("order_number", booking.OrderNumber).
		Str("from", booking.Status).
		Str("to", target).
		Msg("booking status changed")

	if s.events != nil {
		payload := events.StatusChangedPayload{
			BookingID:   bookingID,
			OrderNumber: booking.OrderNumber,
			From:        booking.Status,
			To:          target,
		}
		if err := s.events.PublishJSON(events.EventBookingStatusChanged, payload); err != nil {
			s.logger.Error().Err(err).Str("booking_id", bookingID).Msg("publish event error")
		}
	}

	return s.Dashboard(ctx)
}

func findBooking(bookings []models.Booking, id string) *models.Booking {
	for i := range bookings {
		if bookings[i].ID == id {
			return &bookings[i]
		}
	}
	return nil
}

// buildStats derives the dashboard counters. Revenue counts completed
// bookings only; the joined service price is the source of truth.
func buildStats(bookings []models.Booking) models.BookingStats {
	stats := models.BookingStats{Total: len(bookings)}
	for _, b := range bookings {
		switch b.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusConfirmed:
			stats.Confirmed++
		case models.StatusCompleted:
			stats.Completed++
			if b.Service != nil {
				stats.Revenue += b.Service.Price
			}
		}
	}
	return stats
}

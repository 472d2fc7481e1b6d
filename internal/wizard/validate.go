package wizard

import (
	"strings"
	"time"

	"velora/internal/config"
	"velora/internal/models"
)

// TimeSlots builds the bookable slot grid of the working day, both bounds
// inclusive (09:00-17:30 at 30 minutes gives 18 slots).
func TimeSlots(cfg config.BookingConfig) []string {
	start, err := time.Parse(models.ClockLayout, cfg.DayStart)
	if err != nil {
		return nil
	}
	end, err := time.Parse(models.ClockLayout, cfg.DayEnd)
	if err != nil {
		return nil
	}

	var slots []string
	for t := start; !t.After(end); t = t.Add(time.Duration(cfg.SlotIntervalMinutes) * time.Minute) {
		slots = append(slots, t.Format(models.ClockLayout))
	}
	return slots
}

func hasContact(c models.Customer) bool {
	return strings.TrimSpace(c.Name) != "" &&
		strings.TrimSpace(c.Email) != "" &&
		strings.TrimSpace(c.Phone) != ""
}

func validLocation(location string) bool {
	return location == models.LocationInSalon || location == models.LocationAtHome
}

// canAdvance is the forward-transition guard for the current step.
func canAdvance(state *models.WizardState, cfg config.BookingConfig) bool {
	switch state.Step {
	case models.StepServices:
		return len(state.Draft.SelectedServices) > 0
	case models.StepPersonal:
		return hasContact(state.Draft.Customer)
	case models.StepDateTime:
		return state.Draft.Date != "" && state.Draft.Time != ""
	default:
		// review advances only through submission; confirmation is final
		return false
	}
}

func validateDate(date string, cfg config.BookingConfig, now time.Time) error {
	day, err := time.ParseInLocation(models.DateLayout, date, now.Location())
	if err != nil {
		return ErrInvalidDate
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return ErrPastDate
	}

	closed, err := cfg.ClosedWeekday()
	if err == nil && day.Weekday() == closed {
		return ErrClosedDay
	}

	if cfg.MaxBookingDays > 0 && day.After(today.AddDate(0, 0, cfg.MaxBookingDays)) {
		return ErrDateTooFar
	}

	return nil
}

func validateSlot(slot string, cfg config.BookingConfig) error {
	for _, s := range TimeSlots(cfg) {
		if s == slot {
			return nil
		}
	}
	return ErrInvalidTimeSlot
}

// ValidateDraft checks every submission precondition. It is re-run right
// before the network call regardless of which steps the caller walked.
func ValidateDraft(d models.BookingDraft, cfg config.BookingConfig, now time.Time) error {
	if len(d.SelectedServices) == 0 {
		return ErrEmptySelection
	}
	if !hasContact(d.Customer) {
		return ErrMissingContact
	}
	if !validLocation(d.ServiceLocation) {
		return ErrInvalidLocation
	}
	if d.Date == "" || d.Time == "" {
		return ErrMissingSchedule
	}
	if err := validateDate(d.Date, cfg, now); err != nil {
		return err
	}
	return validateSlot(d.Time, cfg)
}

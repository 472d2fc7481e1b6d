package pricing

import (
	"fmt"

	"velora/internal/models"
)

// Quote is the aggregated price and duration of a selection. All fields are
// derived; a quote is never stored.
type Quote struct {
	Subtotal      float64 `json:"subtotal"`
	TravelFee     float64 `json:"travel_fee"`
	Total         float64 `json:"total"`
	TotalDuration int     `json:"total_duration"` // минуты
}

// Build aggregates the selected services. The travel fee applies only for
// at-home service; an empty selection yields a total equal to the fee rules
// (zero in-salon).
func Build(services []models.Service, location string, travelFee float64) Quote {
	var q Quote
	for _, s := range services {
		q.Subtotal += s.Price
		q.TotalDuration += s.Duration
	}
	if location == models.LocationAtHome {
		q.TravelFee = travelFee
	}
	q.Total = q.Subtotal + q.TravelFee
	return q
}

// FormatDuration renders minutes as "45m", "1h" or "1h 15m".
func FormatDuration(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60
	if hours > 0 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", mins)
}

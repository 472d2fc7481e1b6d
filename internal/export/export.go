package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"velora/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var columns = []struct {
	header string
	width  float64
}{
	{"Order #", 14},
	{"Status", 12},
	{"Service", 22},
	{"Price", 10},
	{"Customer", 20},
	{"Email", 24},
	{"Phone", 16},
	{"Date", 12},
	{"Time", 8},
	{"Location", 12},
	{"Notes", 30},
}

// Exporter builds xlsx snapshots of the booking list for the staff.
type Exporter struct {
	path   string
	logger *zerolog.Logger
}

func NewExporter(path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

// Workbook renders the bookings into a ready-to-serialize workbook. Rows
// keep the order they were given in; each row is tinted by status.
func (e *Exporter) Workbook(bookings []models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, col.header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)

		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, name, name, col.width)
	}

	for i, booking := range bookings {
		row := i + 2

		serviceName := ""
		var price float64
		if booking.Service != nil {
			serviceName = booking.Service.Name
			price = booking.Service.Price
		}

		values := []interface{}{
			booking.OrderNumber,
			booking.Status,
			serviceName,
			price,
			booking.CustomerName,
			booking.CustomerEmail,
			booking.CustomerPhone,
			booking.BookingDate,
			booking.BookingTime,
			booking.ServiceLocation,
			booking.Notes,
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}

		if styleID, err := statusStyle(f, booking.Status); err == nil {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(columns), row)
			_ = f.SetCellStyle(sheetName, first, last, styleID)
		}
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// Write serializes the workbook straight into w, e.g. an HTTP response.
func (e *Exporter) Write(w io.Writer, bookings []models.Booking) error {
	f, err := e.Workbook(bookings)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %v", err)
	}
	return nil
}

// Save writes the workbook into the configured export directory and returns
// the file path.
func (e *Exporter) Save(bookings []models.Booking) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f, err := e.Workbook(bookings)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Excel file created")
	return filePath, nil
}

// statusStyle tints the row by lifecycle stage: yellow while pending, green
// once confirmed or completed, red when cancelled.
func statusStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.StatusPending:
		color = "#FFEB9C"
	case models.StatusConfirmed, models.StatusCompleted:
		color = "#C6EFCE"
	case models.StatusCancelled:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

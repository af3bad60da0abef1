package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
	"github.com/noah-isme/guardguys-scheduler/pkg/export"
)

// ExportFormat selects the rendering of a week export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var weekHeaders = []string{"Day", "Date", "Start", "End", "Event", "Onsite", "Assignee", "Notes"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders a week of events into downloadable documents.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger}
}

// ParseExportFormat validates a user supplied format name.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case ExportFormatCSV, ExportFormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", raw)
	}
}

// RenderWeek renders the events of week in the requested format.
func (s *ExportService) RenderWeek(week *WeekResult, members []models.User, format ExportFormat) ([]byte, error) {
	if week == nil {
		return nil, fmt.Errorf("week nil")
	}
	dataset := WeekDataset(week.Events, members)
	s.logger.Debug("rendering week export", zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))

	switch format {
	case ExportFormatCSV:
		return s.csv.Render(dataset)
	case ExportFormatPDF:
		start := dateutil.FirstDayOfWeek(week.Anchor)
		return s.pdf.Render(dataset, "Week of "+dateutil.LocalDateString(start))
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

// Filename suggests a file name for a week export.
func Filename(week *WeekResult, format ExportFormat) string {
	return fmt.Sprintf("schedule_%s.%s", dateutil.LocalDateString(dateutil.FirstDayOfWeek(week.Anchor)), format)
}

// SortEvents returns a chronological copy of events. Events with a malformed
// timestamp come last.
func SortEvents(events []models.Event) []models.Event {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := sorted[i].Start()
		b, bok := sorted[j].Start()
		if aok != bok {
			return aok
		}
		return a.Before(b)
	})
	return sorted
}

// WeekDataset flattens events into export rows in chronological order.
// Events with a malformed timestamp are listed last with empty time columns.
func WeekDataset(events []models.Event, members []models.User) export.Dataset {
	sorted := SortEvents(events)
	rows := make([]map[string]string, 0, len(sorted))
	for _, event := range sorted {
		row := map[string]string{
			"Event":  event.Event,
			"Onsite": strconv.FormatBool(event.Onsite),
			"Notes":  event.Notes,
		}
		if start, ok := event.Start(); ok {
			row["Day"] = dateutil.DayLabel(start)
			row["Date"] = dateutil.LocalDateString(start)
			row["Start"] = dateutil.WireToLocalTimeString(event.Date, 0)
			row["End"] = dateutil.WireToLocalTimeString(event.Date, event.Duration)
		}
		if assignee := Assignee(event, members); assignee != nil {
			row["Assignee"] = assignee.Username
		}
		rows = append(rows, row)
	}

	return export.Dataset{Headers: weekHeaders, Rows: rows}
}

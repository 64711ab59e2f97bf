package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rhyrak/localsearch/internal/csvio"
	"github.com/rhyrak/localsearch/pkg/model"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatICS  Format = "ics"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// UnsupportedFormatError is returned for unknown formats.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q", e.Format)
}

// ParseFormat accepts a format name or a file extension, e.g. "pdf" or ".pdf".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatICS, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", &UnsupportedFormatError{Format: s}
	}
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatICS:
		return "text/calendar"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// Calendar maps abstract periods onto wall-clock time: PeriodsPerDay
// consecutive slots of PeriodLength per day, starting at Start.
type Calendar struct {
	Start         time.Time
	PeriodLength  time.Duration
	PeriodsPerDay int
}

// At returns the start time of period p.
func (c Calendar) At(p int) time.Time {
	perDay := c.PeriodsPerDay
	if perDay <= 0 {
		perDay = 1
	}
	day, slot := p/perDay, p%perDay
	return c.Start.AddDate(0, 0, day).Add(time.Duration(slot) * c.PeriodLength)
}

// Label renders period p as "Day N HH:MM".
func (c Calendar) Label(p int) string {
	perDay := c.PeriodsPerDay
	if perDay <= 0 {
		perDay = 1
	}
	return fmt.Sprintf("Day %d %s", p/perDay+1, c.At(p).Format("15:04"))
}

// Options carries what every exporter may need.
type Options struct {
	Delimiter rune
	Calendar  Calendar
	Title     string
}

// Write encodes placements of inst to w in format f.
func Write(w io.Writer, f Format, inst *model.Instance, placements []model.Placement, opts Options) error {
	switch f {
	case FormatCSV:
		delim := opts.Delimiter
		if delim == 0 {
			delim = ','
		}
		return csvio.WriteSchedule(w, inst.Rows(placements), delim)
	case FormatICS:
		return WriteICS(w, inst, placements, opts.Calendar)
	case FormatXLSX:
		return WriteXLSX(w, inst, placements, opts.Calendar)
	case FormatPDF:
		return WritePDF(w, inst, placements, opts.Calendar, opts.Title)
	default:
		return &UnsupportedFormatError{Format: string(f)}
	}
}

// WriteFile picks the format from the file extension and replaces path.
func WriteFile(path string, inst *model.Instance, placements []model.Placement, opts Options) (err error) {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	if f == FormatCSV {
		delim := opts.Delimiter
		if delim == 0 {
			delim = ','
		}
		return csvio.ExportSchedule(inst, placements, path, delim)
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := Write(out, f, inst, placements, opts); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// sortedRows orders export rows by period, location, event.
func sortedRows(inst *model.Instance, placements []model.Placement) []*model.ScheduleCSVRow {
	rows := inst.Rows(placements)
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		return a.EventID < b.EventID
	})
	return rows
}

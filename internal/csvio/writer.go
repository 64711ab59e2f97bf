package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/rhyrak/localsearch/pkg/model"
)

// ExportSchedule formats the placements into ScheduleCSVRow structs and
// writes them to the CSV file specified by the given path, replacing it.
func ExportSchedule(inst *model.Instance, placements []model.Placement, path string, delim rune) error {
	rows := inst.Rows(placements)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if err := WriteSchedule(out, rows, delim); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteSchedule marshals rows to w using delim as separator.
func WriteSchedule(w io.Writer, rows []*model.ScheduleCSVRow, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	return gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(writer))
}

// PrintSchedule prints the schedule grouped by period.
func PrintSchedule(w io.Writer, inst *model.Instance, placements []model.Placement) {
	rows := inst.Rows(placements)
	slices.SortFunc(rows, func(a, b *model.ScheduleCSVRow) int {
		if p := a.Period - b.Period; p != 0 {
			return p
		}
		if loc := strings.Compare(a.Location, b.Location); loc != 0 {
			return loc
		}
		return strings.Compare(a.EventID, b.EventID)
	})
	period := 0
	for i, r := range rows {
		if i == 0 || r.Period != period {
			period = r.Period
			title := fmt.Sprintf("Period %d", period)
			fmt.Fprintf(w, "\n%s %s %s\n", strings.Repeat("-", (32-len(title))/2), title, strings.Repeat("-", (33-len(title))/2))
		}
		fmt.Fprintf(w, "%-12s %-12s %-24s %dx%d\n", r.Location, r.EventID, r.Name, r.Duration, r.Size)
	}
	fmt.Fprintf(w, "Printed rows: %d\n", len(rows))
}

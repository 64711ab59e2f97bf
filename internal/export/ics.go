package export

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/rhyrak/localsearch/pkg/model"
)

// WriteICS renders one VEVENT per placed event.
func WriteICS(w io.Writer, inst *model.Instance, placements []model.Placement, cal Calendar) error {
	c := ics.NewCalendar()
	c.SetMethod(ics.MethodPublish)
	c.SetProductId("-//rhyrak//localsearch//EN")

	stamp := cal.Start.UTC()
	for _, r := range sortedRows(inst, placements) {
		start := cal.At(r.Period)
		end := start.Add(time.Duration(r.Duration) * cal.PeriodLength)

		ev := c.AddEvent(fmt.Sprintf("%s@%s", r.EventID, r.Resource))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		summary := r.Name
		if summary == "" {
			summary = r.EventID
		}
		ev.SetSummary(summary)
		if r.Location != "" {
			ev.SetLocation(r.Location)
		}
		ev.SetDescription(fmt.Sprintf("event %s on resource %s, size %d", r.EventID, r.Resource, r.Size))
	}

	_, err := io.WriteString(w, c.Serialize())
	return err
}

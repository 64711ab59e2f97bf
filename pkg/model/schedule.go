package model

// Placement is one row of a finished schedule.
type Placement struct {
	Event    EventID    `json:"event"`
	Resource ResourceID `json:"resource"`
	Period   int        `json:"period"`
	Location string     `json:"location"`
	Duration int        `json:"duration"`
}

type ScheduleCSVRow struct {
	EventID  string `csv:"event_id"`
	Name     string `csv:"name"`
	Resource string `csv:"resource_id"`
	Period   int    `csv:"period"`
	Location string `csv:"location"`
	Duration int    `csv:"duration"`
	Size     int    `csv:"size"`
}

/* Rows joins placements with the event catalog for export. Unknown events are skipped. */
func (inst *Instance) Rows(placements []Placement) []*ScheduleCSVRow {
	rows := make([]*ScheduleCSVRow, 0, len(placements))
	for _, p := range placements {
		i, ok := inst.eventIndex[p.Event]
		if !ok {
			continue
		}
		ev := inst.Events[i]
		rows = append(rows, &ScheduleCSVRow{
			EventID:  string(ev.ID),
			Name:     ev.Name,
			Resource: string(p.Resource),
			Period:   p.Period,
			Location: p.Location,
			Duration: ev.Duration,
			Size:     ev.Size,
		})
	}
	return rows
}

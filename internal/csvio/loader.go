package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/rhyrak/localsearch/pkg/model"
)

// Files names the CSV inputs of one instance. Conflicts and Rules are optional.
type Files struct {
	Events    string
	Resources string
	Conflicts string
	Rules     string
}

// listSeparator splits multi-valued cells such as kinds or periods.
const listSeparator = "|"

// LoadInstance reads every file, resolves conflicts and rule groups, and
// validates the result with model.NewInstance.
func LoadInstance(files Files, delim rune, weights model.Weights) (*model.Instance, error) {
	events, err := loadFile(files.Events, delim, LoadEvents)
	if err != nil {
		return nil, err
	}
	resources, err := loadFile(files.Resources, delim, LoadResources)
	if err != nil {
		return nil, err
	}
	if files.Conflicts != "" {
		conflicts, err := loadFile(files.Conflicts, delim, LoadConflicts)
		if err != nil {
			return nil, err
		}
		events = AttachConflicts(events, conflicts)
	}
	var rules []model.RuleSpec
	if files.Rules != "" {
		if rules, err = loadFile(files.Rules, delim, LoadRules); err != nil {
			return nil, err
		}
	}
	return model.NewInstance(events, resources, rules, weights)
}

func loadFile[T any](path string, delim rune, load func(io.Reader, rune) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	out, err := load(f, delim)
	if err != nil {
		return zero, fmt.Errorf("failed to parse data from %s: %w", path, err)
	}
	return out, nil
}

func newReader(in io.Reader, delim rune) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.Comma = delim
	r.TrimLeadingSpace = true
	return r
}

// LoadEvents parses the events table and its '|'-separated kinds and
// preferred_periods columns.
func LoadEvents(in io.Reader, delim rune) ([]model.Event, error) {
	rows := []*model.Event{}
	if err := gocsv.UnmarshalCSV(newReader(in, delim), &rows); err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(rows))
	for line, e := range rows {
		e.Kinds = splitList(e.KindsSTR)
		preferred, err := parsePeriods(e.PrefSTR)
		if err != nil {
			return nil, fmt.Errorf("event %s (row %d): preferred_periods: %w", e.ID, line+1, err)
		}
		e.Preferred = preferred
		events = append(events, *e)
	}
	return events, nil
}

// LoadResources parses the resources table.
func LoadResources(in io.Reader, delim rune) ([]model.Resource, error) {
	rows := []*model.Resource{}
	if err := gocsv.UnmarshalCSV(newReader(in, delim), &rows); err != nil {
		return nil, err
	}
	resources := make([]model.Resource, 0, len(rows))
	for _, r := range rows {
		resources = append(resources, *r)
	}
	return resources, nil
}

// LoadConflicts parses the symmetric conflict pairs.
func LoadConflicts(in io.Reader, delim rune) ([]model.ConflictCSV, error) {
	rows := []*model.ConflictCSV{}
	if err := gocsv.UnmarshalCSV(newReader(in, delim), &rows); err != nil {
		return nil, err
	}
	out := make([]model.ConflictCSV, 0, len(rows))
	for _, c := range rows {
		out = append(out, *c)
	}
	return out, nil
}

// AttachConflicts records each pair on its first event. Pairs naming unknown
// events are kept so instance validation can report them.
func AttachConflicts(events []model.Event, conflicts []model.ConflictCSV) []model.Event {
	index := make(map[model.EventID]int, len(events))
	for i, e := range events {
		index[e.ID] = i
	}
	for _, c := range conflicts {
		i, ok := index[c.EventA]
		if !ok {
			i, ok = index[c.EventB]
			if !ok {
				continue
			}
			c.EventA, c.EventB = c.EventB, c.EventA
		}
		events[i].Conflicts = append(events[i].Conflicts, c.EventB)
	}
	return events
}

// LoadRules parses the rules table. Rows with an empty group are top-level
// rules; rows sharing a group become the children of one group rule, placed
// where the group first appears.
func LoadRules(in io.Reader, delim rune) ([]model.RuleSpec, error) {
	rows := []*model.RuleCSV{}
	if err := gocsv.UnmarshalCSV(newReader(in, delim), &rows); err != nil {
		return nil, err
	}

	var rules []model.RuleSpec
	groups := map[string]int{}
	for line, row := range rows {
		spec, err := ruleFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("rule row %d: %w", line+1, err)
		}
		if row.Group == "" {
			rules = append(rules, spec)
			continue
		}
		mode := model.RuleKind(strings.ToLower(strings.TrimSpace(row.GroupMode)))
		if mode == "" {
			mode = model.RuleEvery
		}
		if !mode.IsGroup() {
			return nil, fmt.Errorf("rule row %d: unknown group_mode %q", line+1, row.GroupMode)
		}
		at, seen := groups[row.Group]
		if !seen {
			at = len(rules)
			groups[row.Group] = at
			rules = append(rules, model.RuleSpec{Kind: mode})
		} else if rules[at].Kind != mode {
			return nil, fmt.Errorf("rule row %d: group %s mixes %s and %s", line+1, row.Group, rules[at].Kind, mode)
		}
		rules[at].Children = append(rules[at].Children, spec)
	}
	return rules, nil
}

func ruleFromRow(row *model.RuleCSV) (model.RuleSpec, error) {
	periods, err := parsePeriods(row.PeriodsSTR)
	if err != nil {
		return model.RuleSpec{}, fmt.Errorf("periods: %w", err)
	}
	return model.RuleSpec{
		Kind:    model.RuleKind(strings.ToLower(strings.TrimSpace(row.Rule))),
		Event:   model.EventID(strings.TrimSpace(row.Event)),
		Target:  model.EventID(strings.TrimSpace(row.Target)),
		Periods: periods,
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePeriods(s string) ([]int, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid period %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

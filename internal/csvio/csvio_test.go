package csvio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhyrak/localsearch/internal/scheduler"
	"github.com/rhyrak/localsearch/pkg/model"
)

const eventsCSV = `event_id;name;duration;size;kinds;preferred_periods
calc;Calculus;2;30;lecture;0|1
chem;Chemistry Lab;1;12;lab;
hist;History;1;25;;3
`

const resourcesCSV = `resource_id;period;location;kind;capacity
A0;0;A;lecture;40
A1;1;A;lecture;40
A2;2;A;lecture;40
A3;3;A;lecture;40
L1;1;L;lab;15
`

const conflictsCSV = `event_a;event_b
calc;chem
`

const rulesCSV = `rule;event;target;periods;group;group_mode
precedes;calc;hist;;;
restrict;chem;;1|2;lab;any
exclude;chem;;0;lab;any
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testFiles(t *testing.T) Files {
	dir := t.TempDir()
	return Files{
		Events:    writeFile(t, dir, "events.csv", eventsCSV),
		Resources: writeFile(t, dir, "resources.csv", resourcesCSV),
		Conflicts: writeFile(t, dir, "conflicts.csv", conflictsCSV),
		Rules:     writeFile(t, dir, "rules.csv", rulesCSV),
	}
}

func TestLoadInstance(t *testing.T) {
	inst, err := LoadInstance(testFiles(t), ';', model.Weights{Preference: 1})
	require.NoError(t, err)

	require.Len(t, inst.Events, 3)
	calc := inst.Events[0]
	assert.Equal(t, model.EventID("calc"), calc.ID)
	assert.Equal(t, "Calculus", calc.Name)
	assert.Equal(t, 2, calc.Duration)
	assert.Equal(t, []string{"lecture"}, calc.Kinds)
	assert.Equal(t, []int{0, 1}, calc.Preferred)
	assert.Equal(t, []model.EventID{"chem"}, calc.Conflicts)
	assert.Nil(t, inst.Events[2].Kinds)
	assert.Equal(t, []int{3}, inst.Events[2].Preferred)

	require.Len(t, inst.Resources, 5)
	assert.Equal(t, model.Resource{ID: "L1", Period: 1, Location: "L", Kind: "lab", Capacity: 15}, inst.Resources[4])

	assert.Equal(t, []model.RuleSpec{
		{Kind: model.RulePrecedes, Event: "calc", Target: "hist"},
		{Kind: model.RuleAny, Children: []model.RuleSpec{
			{Kind: model.RuleRestrict, Event: "chem", Periods: []int{1, 2}},
			{Kind: model.RuleExclude, Event: "chem", Periods: []int{0}},
		}},
	}, inst.Rules)

	calcIdx, _ := inst.EventIndex("calc")
	assert.Equal(t, []int{0, 1, 2}, inst.Compatible(calcIdx))
}

func TestLoadInstanceErrors(t *testing.T) {
	files := testFiles(t)

	missing := files
	missing.Events = filepath.Join(t.TempDir(), "nope.csv")
	_, err := LoadInstance(missing, ';', model.Weights{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")

	dir := t.TempDir()
	bad := files
	bad.Resources = writeFile(t, dir, "resources.csv", "resource_id;period;location;kind;capacity\nA0;zero;A;lecture;40\n")
	_, err = LoadInstance(bad, ';', model.Weights{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse data from")

	empty := files
	empty.Resources = writeFile(t, dir, "empty.csv", "resource_id;period;location;kind;capacity\n")
	_, err = LoadInstance(empty, ';', model.Weights{})
	var invalid *model.InvalidInstanceError
	require.True(t, errors.As(err, &invalid))
}

func TestLoadRulesRejectsMixedGroups(t *testing.T) {
	in := strings.NewReader("rule,event,target,periods,group,group_mode\nrestrict,a,,1,g,any\nexclude,a,,2,g,none\n")
	_, err := LoadRules(in, ',')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixes")

	in = strings.NewReader("rule,event,target,periods,group,group_mode\nrestrict,a,,x,,\n")
	_, err = LoadRules(in, ',')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid period")
}

func TestAttachConflictsSkipsUnknownSide(t *testing.T) {
	events := []model.Event{{ID: "a"}, {ID: "b"}}
	out := AttachConflicts(events, []model.ConflictCSV{
		{EventA: "ghost", EventB: "b"},
		{EventA: "a", EventB: "ghost"},
		{EventA: "x", EventB: "y"},
	})
	assert.Equal(t, []model.EventID{"ghost"}, out[0].Conflicts)
	assert.Equal(t, []model.EventID{"ghost"}, out[1].Conflicts)
}

func TestExportSchedule(t *testing.T) {
	inst, err := LoadInstance(testFiles(t), ';', model.Weights{})
	require.NoError(t, err)
	placements := []model.Placement{
		{Event: "calc", Resource: "A0", Period: 0, Location: "A", Duration: 2},
		{Event: "chem", Resource: "L1", Period: 1, Location: "L", Duration: 1},
	}

	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, ExportSchedule(inst, placements, path, ';'))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "event_id;name;resource_id;period;location;duration;size\n"+
		"calc;Calculus;A0;0;A;2;30\n"+
		"chem;Chemistry Lab;L1;1;L;1;12\n", string(data))

	var buf bytes.Buffer
	PrintSchedule(&buf, inst, placements)
	assert.Contains(t, buf.String(), "Period 0")
	assert.Contains(t, buf.String(), "Period 1")
	assert.Contains(t, buf.String(), "Printed rows: 2")
}

func TestExportBench(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts", "bench.csv")
	records := []*BenchRecord{
		NewBenchRecord(scheduler.HillClimbing, scheduler.EnsembleStats{Runs: 4, Feasible: 3, BestHard: 0, BestSoft: 12}),
		NewBenchRecord(scheduler.SimulatedAnnealing, scheduler.EnsembleStats{Runs: 4, Feasible: 4, MeanElapsed: 1500 * time.Microsecond}),
	}
	require.NoError(t, ExportBench(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "strategy,runs,feasible,hard_best,hard_mean,hard_std,soft_best,soft_mean,soft_std,time_mean_ms", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "HillClimbing,4,3,0,"))
	assert.True(t, strings.HasPrefix(lines[2], "SimulatedAnnealing,4,4,"))
	assert.Equal(t, 1.5, records[1].MeanElapsedMs)
}

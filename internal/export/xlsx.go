package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rhyrak/localsearch/pkg/model"
)

const sheetName = "Schedule"

// WriteXLSX writes a grid with one row per period and one column per
// location. Cells list the events starting there.
func WriteXLSX(w io.Writer, inst *model.Instance, placements []model.Placement, cal Calendar) error {
	rows := sortedRows(inst, placements)

	var locations []string
	seen := make(map[string]bool)
	for _, res := range inst.Resources {
		if !seen[res.Location] {
			seen[res.Location] = true
			locations = append(locations, res.Location)
		}
	}
	sort.Strings(locations)
	column := make(map[string]int, len(locations))
	for i, loc := range locations {
		column[loc] = i + 2
	}

	cells := make(map[int]map[string][]string)
	for _, r := range rows {
		if cells[r.Period] == nil {
			cells[r.Period] = make(map[string][]string)
		}
		cells[r.Period][r.Location] = append(cells[r.Period][r.Location], r.EventID)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	f.SetColWidth(sheetName, "A", "A", 16)
	if len(locations) > 0 {
		last, _ := excelize.ColumnNumberToName(len(locations) + 1)
		f.SetColWidth(sheetName, "B", last, 22)
	}

	f.SetCellValue(sheetName, "A1", "Period")
	for _, loc := range locations {
		name, _ := excelize.CoordinatesToCellName(column[loc], 1)
		f.SetCellValue(sheetName, name, loc)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(locations)+1, 1)
	f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle)

	for i, p := range inst.Periods() {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), cal.Label(p))
		for _, loc := range locations {
			name, _ := excelize.CoordinatesToCellName(column[loc], row)
			if ids := cells[p][loc]; len(ids) > 0 {
				f.SetCellValue(sheetName, name, strings.Join(ids, ", "))
			} else {
				f.SetCellValue(sheetName, name, "-")
			}
		}
	}

	return f.Write(w)
}

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/rhyrak/localsearch/pkg/model"
)

var pdfHeaders = []string{"Period", "Location", "Event", "Name", "Duration", "Size"}

// WritePDF renders the placements as a table ordered by period.
func WritePDF(w io.Writer, inst *model.Instance, placements []model.Placement, cal Calendar, title string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(pdfHeaders))
	for _, header := range pdfHeaders {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, r := range sortedRows(inst, placements) {
		for _, value := range []string{
			cal.Label(r.Period),
			r.Location,
			r.EventID,
			r.Name,
			fmt.Sprint(r.Duration),
			fmt.Sprint(r.Size),
		} {
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

package leadfile

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// ExportRow is one line of a lead export.
type ExportRow struct {
	Name        string `csv:"name"`
	Role        string `csv:"role"`
	Company     string `csv:"company"`
	Industry    string `csv:"industry"`
	Location    string `csv:"location"`
	LinkedInBio string `csv:"linkedin_bio"`
	Score       *int   `csv:"score"`
	Intent      string `csv:"intent"`
	Reasoning   string `csv:"reasoning"`
}

// ExportHeader is the column order of every export.
var ExportHeader = []string{
	"name", "role", "company", "industry", "location", "linkedin_bio", "score", "intent", "reasoning",
}

// NewExportRow flattens a lead. Unscored leads have empty score columns.
func NewExportRow(l *model.Lead) ExportRow {
	row := ExportRow{
		Name:        l.Name,
		Role:        l.Role,
		Company:     l.Company,
		Industry:    l.Industry,
		Location:    l.Location,
		LinkedInBio: l.LinkedInBio,
	}
	if l.Scoring != nil {
		total := l.TotalScore
		row.Score = &total
		row.Intent = l.Intent.Label()
		row.Reasoning = l.Reasoning
	}
	return row
}

// WriteCSV writes leads as CSV with a header row. Values containing commas,
// quotes or newlines are quoted.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(ExportRow{}); err != nil {
		return eris.Wrap(err, "leadfile: write csv header")
	}
	for i := range leads {
		if err := enc.Encode(NewExportRow(&leads[i])); err != nil {
			return eris.Wrapf(err, "leadfile: write csv row %d", i+1)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "leadfile: flush csv")
}

// WriteXLSX writes leads as a single-sheet workbook with the same columns as
// WriteCSV. Scores are numeric cells.
func WriteXLSX(w io.Writer, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "leadfile: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range ExportHeader {
		header.AddCell().SetString(h)
	}

	for i := range leads {
		r := NewExportRow(&leads[i])
		row := sheet.AddRow()
		for _, v := range []string{r.Name, r.Role, r.Company, r.Industry, r.Location, r.LinkedInBio} {
			row.AddCell().SetString(v)
		}
		score := row.AddCell()
		if r.Score != nil {
			score.SetInt(*r.Score)
		}
		row.AddCell().SetString(r.Intent)
		row.AddCell().SetString(r.Reasoning)
	}

	return eris.Wrap(f.Write(w), "leadfile: write xlsx")
}

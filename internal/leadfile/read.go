// Package leadfile reads lead spreadsheets and writes scored lead exports.
package leadfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Format is a supported spreadsheet format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// FormatOf picks the format from a file name's extension.
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	}
	return "", model.Validation("Invalid file format. Please upload a CSV or XLSX file.", "file: "+filename)
}

// ParseResult holds the leads read from a file and a message for every data
// row that was skipped.
type ParseResult struct {
	Leads   []model.Lead
	Skipped []string
	Rows    int
}

// Read parses a lead file in the given format.
func Read(r io.Reader, f Format) (*ParseResult, error) {
	switch f {
	case CSV:
		return ReadCSV(r)
	case XLSX:
		return ReadXLSX(r)
	}
	return nil, eris.Errorf("leadfile: unsupported format %q", f)
}

// ReadCSV parses a CSV lead file. The first record is the header; columns are
// read by position.
func ReadCSV(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // short rows are reported, not fatal
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, model.Validation("Failed to read CSV file", err.Error())
	}
	return parseRecords(records, false)
}

// ReadXLSX parses the first sheet of a workbook. Trailing empty cells are
// often omitted by spreadsheet tools, so rows are padded to the lead width.
func ReadXLSX(r io.Reader) (*ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "leadfile: read xlsx")
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, model.Validation("Failed to read XLSX file", err.Error())
	}
	if len(f.Sheets) == 0 {
		return nil, model.Validation("XLSX file has no sheets")
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		records = append(records, cells)
	}
	return parseRecords(records, true)
}

func parseRecords(records [][]string, pad bool) (*ParseResult, error) {
	if len(records) == 0 {
		return nil, model.Validation("File is empty")
	}
	checkHeader(records[0])

	res := &ParseResult{}
	for i, rec := range records[1:] {
		line := i + 2
		if blank(rec) {
			continue
		}
		res.Rows++

		if pad && len(rec) < len(model.LeadColumns) {
			rec = append(rec, make([]string, len(model.LeadColumns)-len(rec))...)
		}
		if len(rec) < len(model.LeadColumns) {
			res.skip(line, fmt.Sprintf("expected %d columns, found %d", len(model.LeadColumns), len(rec)))
			continue
		}

		var fields [6]string
		copy(fields[:], rec)
		lead, err := model.NewLeadFromRow(fields)
		if err != nil {
			res.skip(line, "name is required")
			continue
		}
		res.Leads = append(res.Leads, lead)
	}
	return res, nil
}

func (r *ParseResult) skip(line int, reason string) {
	msg := fmt.Sprintf("Row %d skipped: %s", line, reason)
	zap.L().Warn("leadfile: skipped row", zap.Int("line", line), zap.String("reason", reason))
	r.Skipped = append(r.Skipped, msg)
}

// checkHeader only warns: files with renamed columns are still read by position.
func checkHeader(header []string) {
	for i, want := range model.LeadColumns {
		got := ""
		if i < len(header) {
			got = normalizeHeader(header[i])
		}
		if got != want {
			zap.L().Warn("leadfile: header mismatch",
				zap.Int("position", i),
				zap.String("expected", want),
				zap.String("found", got),
			)
		}
	}
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

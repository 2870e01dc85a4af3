// Package spreadsheet reads roster imports locally so a file can be checked
// before it is uploaded.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/khrees2412/rosterctl/pkg/models"
	"github.com/xuri/excelize/v2"
)

const maxXLSRows = 100000

var (
	ErrEmpty       = errors.New("worksheet is empty")
	ErrNoWorksheet = errors.New("no worksheet found")
	ErrUnknownKind = errors.New("unsupported spreadsheet type")
)

// header aliases, compared after normalizeHeader
var (
	nameHeaders  = []string{"name", "full name", "candidate name", "candidate"}
	emailHeaders = []string{"email", "e-mail", "email address", "mail"}
	tagHeaders   = []string{"tags", "tag", "labels"}
)

// Columns holds the detected column index for each field, -1 when absent
type Columns struct {
	Name  int
	Email int
	Tags  int
}

// Missing lists required columns that were not found
func (c Columns) Missing() []string {
	var missing []string
	if c.Name < 0 {
		missing = append(missing, "name")
	}
	if c.Email < 0 {
		missing = append(missing, "email")
	}
	return missing
}

// Problem is a data row that cannot be imported as is. Line is 1-based and
// counts the header.
type Problem struct {
	Line   int
	Reason string
}

// Report summarizes a spreadsheet
type Report struct {
	FileName string
	Sheet    string
	Headers  []string
	Columns  Columns
	Rows     []models.NewRow
	Problems []Problem
}

// Ready reports whether every required column was found and no row has problems
func (r *Report) Ready() bool {
	return len(r.Columns.Missing()) == 0 && len(r.Problems) == 0
}

// Preview returns at most n parsed rows
func (r *Report) Preview(n int) []models.NewRow {
	if n < 0 || n > len(r.Rows) {
		n = len(r.Rows)
	}
	return r.Rows[:n]
}

// Inspect reads the first worksheet of a csv, xlsx or xls file and maps its
// rows to candidates
func Inspect(name string, r io.Reader) (*Report, error) {
	rows, sheet, err := ReadRows(name, r)
	if err != nil {
		return nil, err
	}

	report := &Report{FileName: filepath.Base(name), Sheet: sheet}
	report.Headers = make([]string, len(rows[0]))
	for i, h := range rows[0] {
		report.Headers[i] = strings.TrimSpace(h)
	}
	report.Columns = DetectColumns(rows[0])

	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := i + 2
		newRow := models.NewRow{
			Name:  cellValue(row, report.Columns.Name),
			Email: cellValue(row, report.Columns.Email),
			Tags:  models.ParseTags(cellValue(row, report.Columns.Tags)),
		}
		report.Rows = append(report.Rows, newRow)

		switch {
		case newRow.Name == "" && newRow.Email == "":
			report.Problems = append(report.Problems, Problem{Line: line, Reason: "missing name and email"})
		case newRow.Name == "":
			report.Problems = append(report.Problems, Problem{Line: line, Reason: "missing name"})
		case newRow.Email == "":
			report.Problems = append(report.Problems, Problem{Line: line, Reason: "missing email"})
		case !strings.Contains(newRow.Email, "@"):
			report.Problems = append(report.Problems, Problem{Line: line, Reason: fmt.Sprintf("invalid email %q", newRow.Email)})
		}
	}

	return report, nil
}

// DetectColumns finds the name, email and tags columns in a header row
func DetectColumns(header []string) Columns {
	index := map[string]int{}
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}
	return Columns{
		Name:  lookup(index, nameHeaders),
		Email: lookup(index, emailHeaders),
		Tags:  lookup(index, tagHeaders),
	}
}

// ReadRows returns every row of the first worksheet and the sheet's name.
// CSV files have no sheet name.
func ReadRows(name string, r io.Reader) ([][]string, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", filepath.Base(name), err)
	}

	var (
		rows  [][]string
		sheet string
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err = readCSV(data)
	case ".xlsx":
		rows, sheet, err = readXLSX(data)
	case ".xls":
		rows, sheet, err = readXLS(data)
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownKind, filepath.Base(name))
	}
	if err != nil {
		return nil, "", err
	}
	if len(rows) == 0 {
		return nil, "", ErrEmpty
	}
	return rows, sheet, nil
}

func readCSV(data []byte) ([][]string, error) {
	// drop a UTF-8 byte order mark written by spreadsheet exports
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, "", ErrNoWorksheet
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, sheet, nil
}

func readXLS(data []byte) ([][]string, string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, "", fmt.Errorf("open workbook: %w", err)
	}
	if workbook == nil || workbook.NumSheets() == 0 {
		return nil, "", ErrNoWorksheet
	}
	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, "", ErrNoWorksheet
	}

	last := int(sheet.MaxRow)
	if last >= maxXLSRows {
		last = maxXLSRows - 1
	}
	rows := make([][]string, 0, last+1)
	for i := 0; i <= last; i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// cells written without a ROW record leave LastCol at 0
		width := row.LastCol()
		if len(rows) > 0 && len(rows[0]) > width {
			width = len(rows[0])
		}
		cells := make([]string, width)
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 1 && len(rows[0]) == 0 {
		return nil, sheet.Name, nil
	}
	return rows, sheet.Name, nil
}

// xlsRow returns row i of the sheet, or nil when the sheet has no such row.
// WorkSheet.Row dereferences a missing map entry, hence the recover.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func lookup(index map[string]int, aliases []string) int {
	for _, alias := range aliases {
		if i, ok := index[alias]; ok {
			return i
		}
	}
	return -1
}

func normalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(header)), " ")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

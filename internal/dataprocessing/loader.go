package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "rfmcli/internal/errors"
	"rfmcli/pkg/contracts/domain"
)

// ErrMissingColumn is returned when the input table lacks a required column
var ErrMissingColumn = errors.New("missing required column")

// Column keys of the transaction table, in source order
const (
	ColInvoice     = "Invoice"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColPrice       = "Price"
	ColCustomerID  = "Customer ID"
	ColCountry     = "Country"
)

// RequiredColumns lists every column the loader maps
var RequiredColumns = []string{
	ColInvoice, ColStockCode, ColDescription, ColQuantity,
	ColInvoiceDate, ColPrice, ColCustomerID, ColCountry,
}

// headerAliases maps normalized header text to a column key
var headerAliases = map[string]string{
	"invoice":     ColInvoice,
	"invoiceno":   ColInvoice,
	"stockcode":   ColStockCode,
	"description": ColDescription,
	"quantity":    ColQuantity,
	"invoicedate": ColInvoiceDate,
	"price":       ColPrice,
	"unitprice":   ColPrice,
	"customerid":  ColCustomerID,
	"country":     ColCountry,
}

// dateLayouts are tried in order for textual timestamps
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
}

// Table is the raw transaction table read from one source
type Table struct {
	Source  string               `json:"source"`
	Sheet   string               `json:"sheet,omitempty"`
	Columns []string             `json:"columns"`
	Rows    []domain.Transaction `json:"-"`
}

// LoadOptions controls how LoadTable reads its input
type LoadOptions struct {
	// Format is "xlsx", "csv" or "auto" (by extension)
	Format string
	// Sheet is the preferred workbook sheet
	Sheet  string
	Logger *slog.Logger
}

// LoadTable reads the transaction table at path
func LoadTable(path string, opts LoadOptions) (*Table, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	format := strings.ToLower(opts.Format)
	if format == "" || format == "auto" {
		format = DetectFormat(path)
	}

	var (
		table *Table
		err   error
	)
	switch format {
	case "xlsx":
		table, err = LoadWorkbook(path, opts.Sheet)
	case "csv":
		table, err = LoadCSV(path)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported input format for %s", filepath.Base(path)), nil).
			WithContext("path", path)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("transaction table loaded",
		slog.String("source", table.Source),
		slog.String("sheet", table.Sheet),
		slog.Int("rows", len(table.Rows)),
		slog.Int("columns", len(table.Columns)))
	return table, nil
}

// DetectFormat guesses the input format from the file extension
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".csv", ".txt":
		return "csv"
	default:
		return ""
	}
}

// LoadWorkbook reads the transaction sheet of an xlsx workbook. When the
// preferred sheet does not exist, the first sheet carrying every required
// header is used.
func LoadWorkbook(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	opts := excelize.Options{RawCellValue: true}

	if sheet != "" {
		if idx, _ := f.GetSheetIndex(sheet); idx >= 0 {
			rows, err := f.GetRows(sheet, opts)
			if err != nil {
				return nil, apperrors.NewParsingError("failed to read sheet", err).WithContext("sheet", sheet)
			}
			return buildTable(path, sheet, rows, true)
		}
	}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, opts)
		if err != nil {
			continue
		}
		if header := firstNonEmpty(rows); header >= 0 {
			if _, err := mapColumns(rows[header]); err == nil {
				return buildTable(path, name, rows, true)
			}
		}
	}

	return nil, apperrors.NewSchemaError("no sheet carries the transaction columns", ErrMissingColumn).
		WithContext("path", path).
		WithContext("sheet", sheet)
}

// LoadCSV reads a comma separated transaction file
func LoadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open csv", err).WithContext("path", path)
	}
	defer file.Close()

	table, err := ReadCSV(file)
	if err != nil {
		return nil, err
	}
	table.Source = path
	return table, nil
}

// ReadCSV reads a transaction table from r
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read csv", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return buildTable("", "", rows, false)
}

// buildTable maps the header row and converts every data row
func buildTable(source, sheet string, rows [][]string, excelDates bool) (*Table, error) {
	header := firstNonEmpty(rows)
	if header < 0 {
		return nil, apperrors.NewSchemaError("input table is empty", ErrMissingColumn).
			WithContext("column", RequiredColumns[0])
	}

	columns, err := mapColumns(rows[header])
	if err != nil {
		return nil, err
	}

	table := &Table{
		Source:  source,
		Sheet:   sheet,
		Columns: trimmedHeader(rows[header]),
		Rows:    make([]domain.Transaction, 0, len(rows)-header-1),
	}

	for i := header + 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		tx, err := parseRow(rows[i], columns, excelDates)
		if err != nil {
			return nil, apperrors.NewParsingError("invalid transaction row", err).WithContext("row", i+1)
		}
		table.Rows = append(table.Rows, tx)
	}

	return table, nil
}

// mapColumns resolves the position of every required column
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(RequiredColumns))
	for i, h := range header {
		key, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}

	for _, col := range RequiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, apperrors.NewSchemaError(fmt.Sprintf("required column %q not found", col),
				fmt.Errorf("%w: %s", ErrMissingColumn, col)).
				WithContext("column", col)
		}
	}
	return columns, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func trimmedHeader(header []string) []string {
	out := make([]string, 0, len(header))
	for _, h := range header {
		out = append(out, strings.TrimSpace(h))
	}
	// drop trailing blank header cells
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func parseRow(row []string, columns map[string]int, excelDates bool) (domain.Transaction, error) {
	cell := func(col string) string {
		idx := columns[col]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	tx := domain.Transaction{
		Invoice:     optionalString(cell(ColInvoice)),
		StockCode:   cell(ColStockCode),
		Description: optionalString(cell(ColDescription)),
		CustomerID:  parseCustomerID(cell(ColCustomerID)),
		Country:     cell(ColCountry),
	}

	if raw := cell(ColQuantity); raw != "" {
		q, err := parseQuantity(raw)
		if err != nil {
			return tx, fmt.Errorf("quantity %q: %w", raw, err)
		}
		tx.Quantity = &q
	}

	if raw := cell(ColPrice); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return tx, fmt.Errorf("price %q: %w", raw, err)
		}
		tx.Price = &p
	}

	if raw := cell(ColInvoiceDate); raw != "" {
		ts, err := parseTimestamp(raw, excelDates)
		if err != nil {
			return tx, fmt.Errorf("invoice date %q: %w", raw, err)
		}
		tx.InvoiceDate = &ts
	}

	return tx, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseCustomerID normalizes numeric identifiers read as floats ("12346.0")
func parseCustomerID(raw string) *string {
	if raw == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		id := strconv.FormatInt(int64(f), 10)
		return &id
	}
	return &raw
}

func parseQuantity(raw string) (int64, error) {
	if q, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return q, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole number")
	}
	return int64(f), nil
}

// parseTimestamp accepts Excel serial dates (workbooks only) and the common
// textual layouts. Serial dates are rounded to the second.
func parseTimestamp(raw string, excelDates bool) (time.Time, error) {
	if excelDates {
		if serial, err := strconv.ParseFloat(raw, 64); err == nil {
			ts, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return time.Time{}, err
			}
			return ts.Round(time.Second), nil
		}
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp layout")
}

func firstNonEmpty(rows [][]string) int {
	for i, row := range rows {
		if !isBlank(row) {
			return i
		}
	}
	return -1
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// RetailHeader is the column layout of the online retail workbook
var RetailHeader = []string{
	"Invoice", "StockCode", "Description", "Quantity",
	"InvoiceDate", "Price", "Customer ID", "Country",
}

// Order is one order line of a fixture table. Empty strings and a zero
// Date are written as blank cells.
type Order struct {
	Invoice     string
	StockCode   string
	Description string
	Quantity    int64
	Price       float64
	Date        time.Time
	CustomerID  string
	Country     string
}

// Line is a complete order line for customer on date
func Line(invoice, customer string, date time.Time, quantity int64, price float64) Order {
	return Order{
		Invoice:     invoice,
		StockCode:   "85123A",
		Description: "WHITE HANGING HEART T-LIGHT HOLDER",
		Quantity:    quantity,
		Price:       price,
		Date:        date,
		CustomerID:  customer,
		Country:     "United Kingdom",
	}
}

// FourCustomerOrders builds a table of four customers ranked strictly on
// every metric: 12346 is the most recent, frequent and valuable, 12349 the
// least. With the reference date 2011-12-10 they score 555, 444, 222 and 111.
// Two canceled lines and one line without a customer are mixed in.
func FourCustomerOrders() []Order {
	day := func(d, h int) time.Time { return time.Date(2011, 12, d, h, 0, 0, 0, time.UTC) }

	orders := []Order{
		Line("536001", "12346", day(9, 10), 10, 5),
		Line("536002", "12346", day(8, 10), 10, 5),
		Line("536003", "12346", day(7, 10), 10, 5),
		Line("536004", "12346", day(6, 10), 10, 5),

		Line("536101", "12347", day(5, 10), 5, 5),
		Line("536102", "12347", day(4, 10), 5, 5),
		Line("536103", "12347", day(3, 10), 5, 5),

		Line("536201", "12348", day(2, 10), 2, 5),
		Line("536202", "12348", day(1, 10), 2, 5),

		Line("536301", "12349", day(1, 8), 1, 5),
	}

	canceled := Line("C536400", "12349", day(9, 12), -1, 5)
	canceledAnon := Line("C536401", "", day(9, 13), -3, 2)
	anonymous := Line("536500", "", day(9, 14), 6, 1.25)
	anonymous.Description = "JUMBO BAG RED RETROSPOT"

	return append(orders, canceled, canceledAnon, anonymous)
}

// WriteWorkbook saves orders as an xlsx workbook with one sheet
func WriteWorkbook(t *testing.T, path, sheet string, orders []Order) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		t.Fatalf("failed to name sheet: %v", err)
	}

	header := make([]interface{}, len(RetailHeader))
	for i, h := range RetailHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}

	for i, o := range orders {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			blankString(o.Invoice), o.StockCode, blankString(o.Description), o.Quantity,
			blankTime(o.Date), o.Price, blankString(o.CustomerID), o.Country,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("failed to write row %d: %v", i+2, err)
		}
	}

	mkdirFor(t, path)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}

// WriteCSV saves orders as a CSV file using the workbook header
func WriteCSV(t *testing.T, path string, orders []Order) string {
	t.Helper()

	mkdirFor(t, path)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create csv: %v", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(RetailHeader); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for _, o := range orders {
		date := ""
		if !o.Date.IsZero() {
			date = o.Date.Format("2006-01-02 15:04:05")
		}
		record := []string{
			o.Invoice, o.StockCode, o.Description, fmt.Sprintf("%d", o.Quantity),
			date, fmt.Sprintf("%g", o.Price), o.CustomerID, o.Country,
		}
		if err := w.Write(record); err != nil {
			t.Fatalf("failed to write record: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("failed to flush csv: %v", err)
	}
	return path
}

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	mkdirFor(t, path)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

func mkdirFor(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
}

func blankString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func blankTime(ts time.Time) interface{} {
	if ts.IsZero() {
		return nil
	}
	return ts
}

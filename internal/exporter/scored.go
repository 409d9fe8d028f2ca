package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"rfmcli/pkg/contracts/domain"
)

// ScoredSheetName is the worksheet of the scored workbook
const ScoredSheetName = "RFM"

// ScoredHeaders are the columns of the scored customer table
var ScoredHeaders = []string{
	"CustomerID", "Recency", "Frequency", "Monetary",
	"RecencyScore", "FrequencyScore", "MonetaryScore", "RFMScore", "Segment",
}

// ScoredExporter writes the full scored customer table
type ScoredExporter struct {
	writer *CSVWriter
	logger *slog.Logger
}

// NewScoredExporter creates a scored table exporter
func NewScoredExporter(writer *CSVWriter, logger *slog.Logger) *ScoredExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoredExporter{
		writer: writer,
		logger: logger.With("component", "scored_exporter"),
	}
}

// Export writes customers to filePath: a workbook for .xlsx targets and a
// CSV otherwise. It returns the resolved path.
func (e *ScoredExporter) Export(ctx context.Context, customers []domain.ScoredCustomer, filePath string) (string, error) {
	var (
		fullPath string
		err      error
	)
	if strings.EqualFold(filepath.Ext(filePath), ".xlsx") {
		fullPath = e.writer.ResolvePath(filePath)
		err = writeAtomic(fullPath, func(w io.Writer) error {
			return writeScoredWorkbook(w, customers)
		})
	} else {
		fullPath, err = e.writer.WriteCSV(filePath, WriteOptions{
			Headers: ScoredHeaders,
			Records: scoredRecords(customers),
		})
	}
	if err != nil {
		return "", err
	}

	e.logger.InfoContext(ctx, "scored table exported",
		slog.String("path", fullPath),
		slog.Int("customers", len(customers)))
	return fullPath, nil
}

func scoredRecords(customers []domain.ScoredCustomer) [][]string {
	records := make([][]string, len(customers))
	for i, c := range customers {
		records[i] = []string{
			c.CustomerID,
			formatInt(c.Recency),
			formatInt(c.Frequency),
			formatFloat(c.Monetary),
			formatInt(c.RecencyScore),
			formatInt(c.FrequencyScore),
			formatInt(c.MonetaryScore),
			c.RFMCode,
			c.Segment.String(),
		}
	}
	return records
}

func writeScoredWorkbook(w io.Writer, customers []domain.ScoredCustomer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ScoredSheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(ScoredHeaders))
	for i, h := range ScoredHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(ScoredSheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, c := range customers {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			c.CustomerID, c.Recency, c.Frequency, c.Monetary,
			c.RecencyScore, c.FrequencyScore, c.MonetaryScore, c.RFMCode, c.Segment.String(),
		}
		if err := f.SetSheetRow(ScoredSheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(ScoredSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}

	_, err := f.WriteTo(w)
	return err
}

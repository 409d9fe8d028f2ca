package exporter

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"rfmcli/internal/config"
	"rfmcli/pkg/contracts/domain"
)

// SegmentExporter writes the identifiers of one segment
type SegmentExporter struct {
	writer    *CSVWriter
	logger    *slog.Logger
	column    string
	bomPrefix bool
}

// SegmentExporterOption customizes a SegmentExporter
type SegmentExporterOption func(*SegmentExporter)

// WithColumnName overrides the header of the identifier column
func WithColumnName(name string) SegmentExporterOption {
	return func(e *SegmentExporter) { e.column = name }
}

// WithBOM prefixes the file with a UTF-8 byte order mark
func WithBOM(enabled bool) SegmentExporterOption {
	return func(e *SegmentExporter) { e.bomPrefix = enabled }
}

// NewSegmentExporter creates a segment exporter. Unless overridden, the
// identifier column is named after the exported segment (see ColumnName).
func NewSegmentExporter(writer *CSVWriter, logger *slog.Logger, opts ...SegmentExporterOption) *SegmentExporter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &SegmentExporter{
		writer: writer,
		logger: logger.With("component", "segment_exporter"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes the identifiers of the customers in segment, in their given
// order, and returns how many were written. An empty segment still produces
// a file holding only the header.
func (e *SegmentExporter) Export(ctx context.Context, customers []domain.ScoredCustomer, segment domain.Segment, filePath string) (int, error) {
	records := make([][]string, 0)
	for _, c := range customers {
		if c.Segment == segment {
			records = append(records, []string{c.CustomerID})
		}
	}

	column := e.column
	if column == "" {
		column = ColumnName(segment)
	}

	fullPath, err := e.writer.WriteCSV(filePath, WriteOptions{
		Headers:   []string{column},
		Records:   records,
		BOMPrefix: e.bomPrefix,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "segment export failed",
			slog.String("segment", segment.String()),
			slog.String("path", filePath),
			slog.String("error", err.Error()))
		return 0, err
	}

	e.logger.InfoContext(ctx, "segment exported",
		slog.String("segment", segment.String()),
		slog.String("path", fullPath),
		slog.Int("customers", len(records)))
	return len(records), nil
}

// ColumnName is the identifier header for segment: its label with only
// letters and digits kept, followed by "ID" (LoyalCustomersID, CantLoseID)
func ColumnName(segment domain.Segment) string {
	if segment == domain.SegmentLoyalCustomers {
		return config.LoyalColumnName
	}
	var b strings.Builder
	for _, r := range segment.String() {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	b.WriteString("ID")
	return b.String()
}

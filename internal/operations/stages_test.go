package operations

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfmcli/internal/config"
	"rfmcli/internal/dataprocessing"
	apperrors "rfmcli/internal/errors"
	"rfmcli/internal/rfm"
	"rfmcli/internal/testutil"
	"rfmcli/pkg/contracts/domain"
)

func testOptions(t *testing.T, input string) Options {
	t.Helper()
	return Options{
		InputPath:          input,
		Sheet:              config.DefaultSheetName,
		Format:             "auto",
		Reference:          time.Date(2011, 12, 10, 0, 0, 0, 0, time.UTC),
		CancellationMarker: "C",
		Outliers:           dataprocessing.DefaultOutlierOptions(),
		TopN:               3,
		OutputDir:          filepath.Join(t.TempDir(), "output"),
		LoyalFile:          config.DefaultLoyalFile,
		TargetSegment:      domain.SegmentLoyalCustomers,
	}
}

func runPipeline(t *testing.T, opts Options) (*RunState, error) {
	t.Helper()
	logger, _ := testutil.CreateTestSlogLogger()
	m, err := NewPipeline(opts, logger, nil)
	require.NoError(t, err)
	return m.Execute(context.Background())
}

func TestPipeline_Workbook(t *testing.T) {
	input := testutil.WriteWorkbook(t, filepath.Join(t.TempDir(), "retail.xlsx"), config.DefaultSheetName, testutil.FourCustomerOrders())
	opts := testOptions(t, input)
	opts.ScoredFile = "scored.xlsx"

	state, err := runPipeline(t, opts)
	require.NoError(t, err)

	ids := make([]string, len(state.Steps))
	for i, s := range state.Steps {
		ids[i] = s.ID
	}
	assert.Equal(t, StageOrder, ids)
	res := state.Result
	assert.Equal(t, domain.CleanReport{InputRows: 13, CanceledRows: 2, IncompleteRows: 1, CleanRows: 10}, res.CleanReport)
	require.NotNil(t, res.Overview)
	assert.Equal(t, 13, res.Overview.Rows)

	require.Len(t, res.Scored, 4)
	codes := map[string]string{}
	for _, c := range res.Scored {
		codes[c.CustomerID] = c.RFMCode
	}
	assert.Equal(t, map[string]string{"12346": "555", "12347": "444", "12348": "222", "12349": "111"}, codes)

	assert.Equal(t, 1, res.Exported)
	content, err := os.ReadFile(res.LoyalPath)
	require.NoError(t, err)
	assert.Equal(t, "LoyalCustomersID\n12347\n", string(content))

	assert.Equal(t, filepath.Join(opts.OutputDir, "scored.xlsx"), res.ScoredPath)
	assert.FileExists(t, res.ScoredPath)

	assert.Nil(t, res.Outliers, "outlier scan is off by default")
	assert.Equal(t, StepStatusSkipped, state.GetStage(StageIDOutliers).GetStatus())
}

func TestPipeline_CSVMatchesWorkbook(t *testing.T) {
	dir := t.TempDir()
	orders := testutil.FourCustomerOrders()
	xlsx := testutil.WriteWorkbook(t, filepath.Join(dir, "retail.xlsx"), config.DefaultSheetName, orders)
	csv := testutil.WriteCSV(t, filepath.Join(dir, "retail.csv"), orders)

	fromXLSX, err := runPipeline(t, testOptions(t, xlsx))
	require.NoError(t, err)
	fromCSV, err := runPipeline(t, testOptions(t, csv))
	require.NoError(t, err)

	assert.Equal(t, fromXLSX.Result.Scored, fromCSV.Result.Scored)
}

func TestPipeline_DefaultReference(t *testing.T) {
	input := testutil.WriteCSV(t, filepath.Join(t.TempDir(), "retail.csv"), testutil.FourCustomerOrders())
	opts := testOptions(t, input)
	opts.Reference = time.Time{}

	state, err := runPipeline(t, opts)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2011, 12, 10, 0, 0, 0, 0, time.UTC), state.Result.Reference)
}

func TestPipeline_OutlierScan(t *testing.T) {
	input := testutil.WriteCSV(t, filepath.Join(t.TempDir(), "retail.csv"), testutil.FourCustomerOrders())
	opts := testOptions(t, input)
	opts.ScanOutliers = true

	state, err := runPipeline(t, opts)
	require.NoError(t, err)

	require.NotNil(t, state.Result.Outliers)
	assert.Equal(t, 10, state.Result.Outliers.Rows)
	assert.Len(t, state.Result.Outliers.Features, len(domain.NumericFeatures))
	assert.Len(t, state.Result.Cleaned, 10, "scan never removes rows")
}

func TestPipeline_Idempotent(t *testing.T) {
	input := testutil.WriteCSV(t, filepath.Join(t.TempDir(), "retail.csv"), testutil.FourCustomerOrders())
	opts := testOptions(t, input)

	first, err := runPipeline(t, opts)
	require.NoError(t, err)
	before, err := os.ReadFile(first.Result.LoyalPath)
	require.NoError(t, err)

	second, err := runPipeline(t, opts)
	require.NoError(t, err)
	after, err := os.ReadFile(second.Result.LoyalPath)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, first.Result.Scored, second.Result.Scored)
}

func TestPipeline_ReferenceBeforeData(t *testing.T) {
	input := testutil.WriteCSV(t, filepath.Join(t.TempDir(), "retail.csv"), testutil.FourCustomerOrders())
	opts := testOptions(t, input)
	opts.Reference = time.Date(2011, 12, 1, 0, 0, 0, 0, time.UTC)

	state, err := runPipeline(t, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, rfm.ErrReferenceBeforeData)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Equal(t, StepStatusFailed, state.GetStage(StageIDAggregate).GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStage(StageIDExport).GetStatus())
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, opts.LoyalFile))
}

func TestPipeline_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retail.csv")
	require.NoError(t, os.WriteFile(path, []byte("Invoice,StockCode,Quantity\n536365,85123A,6\n"), 0o644))

	state, err := runPipeline(t, testOptions(t, path))
	require.Error(t, err)
	assert.ErrorIs(t, err, dataprocessing.ErrMissingColumn)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	assert.Equal(t, StepStatusFailed, state.GetStage(StageIDLoad).GetStatus())
}

func TestPipeline_MissingInputPath(t *testing.T) {
	state, err := runPipeline(t, testOptions(t, ""))
	require.Error(t, err)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ErrorTypeValidation, opErr.Type)
	assert.Equal(t, StageIDLoad, opErr.Step)
	assert.Equal(t, OperationStatusFailed, state.GetStatus())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Input.Path = "retail.xlsx"
	cfg.Analysis.ReferenceDate = "2011-12-10"
	cfg.Analysis.ScanOutliers = true

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "retail.xlsx", opts.InputPath)
	assert.Equal(t, time.Date(2011, 12, 10, 0, 0, 0, 0, time.UTC), opts.Reference)
	assert.Equal(t, domain.SegmentLoyalCustomers, opts.TargetSegment)
	assert.True(t, opts.ScanOutliers)
	assert.Equal(t, 1.5, opts.Outliers.Multiplier)

	cfg.Output.TargetSegment = "Whales"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)

	cfg.Output.TargetSegment = config.DefaultTargetSegment
	cfg.Analysis.ReferenceDate = "soon"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}

func TestPipeline_InputFormatMismatch(t *testing.T) {
	input := testutil.WriteCSV(t, filepath.Join(t.TempDir(), "retail.csv"), testutil.FourCustomerOrders())
	opts := testOptions(t, input)
	opts.Format = "xlsx"

	state, err := runPipeline(t, opts)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Nil(t, state.Result.Table)
}

func TestPipeline_DirectoryInputUsesLatestFile(t *testing.T) {
	dir := t.TempDir()
	older := testutil.CreateTestFile(t, dir, "2009.csv", "Invoice,StockCode\n")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))
	latest := testutil.WriteCSV(t, filepath.Join(dir, "2011.csv"), testutil.FourCustomerOrders())

	state, err := runPipeline(t, testOptions(t, dir))
	require.NoError(t, err)
	assert.Equal(t, latest, state.Result.Table.Source)
	assert.Equal(t, 1, state.Result.Exported)
}

func TestPipeline_EmptyInputDirectory(t *testing.T) {
	state, err := runPipeline(t, testOptions(t, t.TempDir()))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Equal(t, StepStatusFailed, state.GetStage(StageIDLoad).GetStatus())
}

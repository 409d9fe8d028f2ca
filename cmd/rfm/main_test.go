package main

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfmcli/internal/config"
	"rfmcli/internal/testutil"
	"rfmcli/pkg/contracts"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.ConfigFileEnv, "")
	t.Setenv("RFM_LOGGING_LEVEL", "error")
}

func TestExecute_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, exitUsage, execute(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: rfm")

	stderr.Reset()
	assert.Equal(t, exitUsage, execute([]string{"bogus"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "bogus"`)

	assert.Equal(t, exitOK, execute([]string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "serve")
}

func TestExecute_Version(t *testing.T) {
	var stdout bytes.Buffer
	assert.Equal(t, exitOK, execute([]string{"version"}, &stdout, io.Discard))
	assert.Contains(t, stdout.String(), contracts.Version)
}

func TestRun_ExportsLoyalCustomers(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := testutil.WriteWorkbook(t, filepath.Join(dir, "retail.xlsx"), config.DefaultSheetName, testutil.FourCustomerOrders())
	outDir := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	code := execute([]string{"run",
		"-in", input,
		"-out", outDir,
		"-ref", "2011-12-10",
		"-scored", "scored.csv",
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "rows: 13 loaded, 2 canceled, 1 incomplete, 10 clean")
	assert.Contains(t, out, "reference date: 2011-12-10")
	assert.Contains(t, out, "Loyal Customers")
	assert.Contains(t, out, "exported 1 customers")

	content, err := os.ReadFile(filepath.Join(outDir, config.DefaultLoyalFile))
	require.NoError(t, err)
	assert.Equal(t, "LoyalCustomersID\n12347\n", string(content))

	_, err = os.Stat(filepath.Join(outDir, "scored.csv"))
	assert.NoError(t, err)
}

func TestRun_OtherSegment(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := testutil.WriteCSV(t, filepath.Join(dir, "retail.csv"), testutil.FourCustomerOrders())

	var stderr bytes.Buffer
	code := execute([]string{"run",
		"-in", input,
		"-out", dir,
		"-loyal", "hibernating.csv",
		"-ref", "2011-12-10",
		"-segment", "Hibernating",
	}, io.Discard, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	content, err := os.ReadFile(filepath.Join(dir, "hibernating.csv"))
	require.NoError(t, err)
	assert.Equal(t, "HibernatingID\n12348\n12349\n", string(content))
}

func TestRun_ReferenceBeforeData(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	input := testutil.WriteCSV(t, filepath.Join(dir, "retail.csv"), testutil.FourCustomerOrders())

	var stderr bytes.Buffer
	code := execute([]string{"run", "-in", input, "-out", dir, "-ref", "2009-01-01"}, io.Discard, &stderr)

	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "pipeline failed at step aggregate")
	_, err := os.Stat(filepath.Join(dir, config.DefaultLoyalFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_ConfigErrors(t *testing.T) {
	isolateEnv(t)

	var stderr bytes.Buffer
	assert.Equal(t, exitUsage, execute([]string{"run"}, io.Discard, &stderr))
	assert.Contains(t, stderr.String(), "configuration error")

	stderr.Reset()
	assert.Equal(t, exitUsage, execute([]string{"run", "-in", "x.csv", "-ref", "10/12/2011"}, io.Discard, &stderr))
	assert.Contains(t, stderr.String(), "ReferenceDate")

	assert.Equal(t, exitUsage, execute([]string{"run", "-nope"}, io.Discard, io.Discard))
}

func TestPipelineFlags_Overrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("RFM_OUTPUT_DIR", "from-env")
	t.Setenv("RFM_INPUT_SHEET", "EnvSheet")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := bindPipelineFlags(fs)
	require.NoError(t, fs.Parse([]string{"-in", "retail.csv", "-sheet", "Year 2010-2011", "-outliers", "-bom"}))

	cfg, err := flags.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "retail.csv", cfg.Input.Path)
	assert.Equal(t, "Year 2010-2011", cfg.Input.Sheet, "flag wins over env")
	assert.Equal(t, "from-env", cfg.Output.Dir, "unset flag keeps env value")
	assert.True(t, cfg.Analysis.ScanOutliers)
	assert.True(t, cfg.Output.BOMPrefix)
}

func TestPipelineFlags_ConfigFile(t *testing.T) {
	isolateEnv(t)
	path := testutil.CreateTestFile(t, t.TempDir(), "rfm.yaml", "input:\n  path: from-file.csv\noutput:\n  target_segment: Champions\n")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := bindPipelineFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", path}))

	cfg, err := flags.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file.csv", cfg.Input.Path)
	assert.Equal(t, "Champions", cfg.Output.TargetSegment)
}

func TestPipelineFlags_ConfigUsageNamesEnv(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	bindPipelineFlags(fs)

	usage := fs.Lookup("config").Usage
	assert.Contains(t, usage, "$"+config.ConfigFileEnv)
	assert.Equal(t, "RFM_CONFIG", config.ConfigFileEnv)
}

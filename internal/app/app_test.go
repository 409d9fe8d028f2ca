package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfmcli/internal/config"
	"rfmcli/internal/operations"
	"rfmcli/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Input.Path = testutil.WriteCSV(t, filepath.Join(dir, "retail.csv"), testutil.FourCustomerOrders())
	cfg.Output.Dir = filepath.Join(dir, "output")
	cfg.Analysis.ReferenceDate = "2011-12-10"
	cfg.Telemetry.EnableMetrics = true
	cfg.Server.RateLimit = 0
	return cfg
}

func TestApplication_RunPipeline(t *testing.T) {
	cfg := testConfig(t)
	logger, _ := testutil.CreateTestSlogLogger()

	a, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.False(t, a.Report.Loaded())

	state, err := a.RunPipeline(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsComplete())
	assert.True(t, a.Report.Loaded())

	content, err := os.ReadFile(filepath.Join(cfg.Output.Dir, config.DefaultLoyalFile))
	require.NoError(t, err)
	assert.Equal(t, "LoyalCustomersID\n12347\n", string(content))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/customers/12346", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "555", body["rfm_score"])
}

func TestApplication_RunPipelineFailureKeepsReportEmpty(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.ReferenceDate = "2009-01-01"

	a, err := NewApplication(cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	state, err := a.RunPipeline(context.Background())
	require.Error(t, err)
	require.NotNil(t, state)
	assert.False(t, a.Report.Loaded())
}

func TestApplication_RunPipelineRejectsUnknownSegment(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.TargetSegment = "Whales"

	a, err := NewApplication(cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	state, err := a.RunPipeline(context.Background())
	assert.Error(t, err)
	assert.Nil(t, state)
}

func TestApplication_ServeAndShutdown(t *testing.T) {
	cfg := testConfig(t)
	logger, handler := testutil.CreateTestSlogLogger()

	a, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	_, err = a.RunPipeline(context.Background())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := fmt.Sprintf("http://%s", ln.Addr().String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, handler.HasMessage("report server started"))
	assert.True(t, handler.HasMessage("startup health check passed"))

	_, err = http.Get(base + "/api/health")
	assert.Error(t, err)
}

func TestApplication_StartupHealthCheckWarnsWithoutReport(t *testing.T) {
	cfg := testConfig(t)
	a, err := NewApplication(cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	err = a.performStartupHealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pipeline result loaded")
}

func TestApplication_StartupHealthCheckWarnsOnUnwritableOutput(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.Output.Dir = filepath.Join(blocker, "output")

	a, err := NewApplication(cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())
	a.Report.Load(completedRun(t))

	err = a.performStartupHealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory not writable")
	assert.NotContains(t, err.Error(), "no pipeline result loaded")
}

func TestApplication_StartupHealthCheckPasses(t *testing.T) {
	cfg := testConfig(t)
	a, err := NewApplication(cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())
	a.Report.Load(completedRun(t))

	assert.NoError(t, a.performStartupHealthCheck(context.Background()))
	assert.DirExists(t, cfg.Output.Dir)
}

func completedRun(t *testing.T) *operations.RunState {
	t.Helper()
	state := operations.NewRunState("run-health")
	state.Start()
	state.Complete()
	return state
}

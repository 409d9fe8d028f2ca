package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfmcli/internal/config"
	"rfmcli/internal/dataprocessing"
	"rfmcli/internal/infrastructure"
	"rfmcli/internal/operations"
	"rfmcli/internal/services"
	"rfmcli/internal/testutil"
	"rfmcli/pkg/contracts/domain"
)

type testServer struct {
	handler http.Handler
	report  *services.ReportService
}

func newTestServer(t *testing.T, loaded bool) *testServer {
	t.Helper()
	logger, _ := testutil.CreateTestSlogLogger()

	tel, err := infrastructure.NewTelemetry(config.TelemetryConfig{EnableMetrics: true}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { tel.Shutdown(context.Background()) })

	report := services.NewReportService(nil, logger)
	if loaded {
		input := testutil.WriteCSV(t, filepath.Join(t.TempDir(), "retail.csv"), testutil.FourCustomerOrders())
		m, err := operations.NewPipeline(operations.Options{
			InputPath:          input,
			Format:             "auto",
			Reference:          time.Date(2011, 12, 10, 0, 0, 0, 0, time.UTC),
			CancellationMarker: "C",
			ScanOutliers:       true,
			Outliers:           dataprocessing.DefaultOutlierOptions(),
			TopN:               3,
			OutputDir:          t.TempDir(),
			LoyalFile:          config.DefaultLoyalFile,
			TargetSegment:      domain.SegmentLoyalCustomers,
		}, logger, tel)
		require.NoError(t, err)
		state, err := m.Execute(context.Background())
		require.NoError(t, err)
		report.Load(state)
	}

	handler := NewRouter(RouterDeps{
		Report:  report,
		Health:  services.NewHealthService("test", report, logger),
		Metrics: tel.Handler(),
		Tracer:  tel.Tracer,
		Server:  config.ServerConfig{RateLimit: 1000, RateBurst: 1000},
		Logger:  logger,
	})
	return &testServer{handler: handler, report: report}
}

func (s *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := newTestServer(t, true).get(t, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var status services.HealthStatus
	decode(t, rec, &status)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "test", status.Version)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealth_NoReport(t *testing.T) {
	rec := newTestServer(t, false).get(t, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRun(t *testing.T) {
	rec := newTestServer(t, true).get(t, "/api/run")
	require.Equal(t, http.StatusOK, rec.Code)

	var info services.RunInfo
	decode(t, rec, &info)
	assert.Equal(t, "completed", info.Status)
	assert.Equal(t, "2011-12-10", info.ReferenceDate)
	assert.Equal(t, 4, info.Customers)
	assert.Equal(t, 1, info.Exported)
	assert.Len(t, info.Steps, len(operations.StageOrder))
}

func TestSegments(t *testing.T) {
	rec := newTestServer(t, true).get(t, "/api/segments")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary []domain.SegmentSummary
	decode(t, rec, &summary)

	counts := map[domain.Segment]int{}
	for _, s := range summary {
		counts[s.Segment] = s.Customers
	}
	assert.Equal(t, map[domain.Segment]int{
		domain.SegmentHibernating:    2,
		domain.SegmentLoyalCustomers: 1,
		domain.SegmentChampions:      1,
	}, counts)
}

func TestSegmentCustomers(t *testing.T) {
	rec := newTestServer(t, true).get(t, "/api/segments/Loyal%20Customers/customers")
	require.Equal(t, http.StatusOK, rec.Code)

	var list CustomerList
	decode(t, rec, &list)
	assert.Equal(t, "Loyal Customers", list.Segment)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "12347", list.Customers[0].CustomerID)
	assert.Equal(t, "444", list.Customers[0].RFMCode)
}

func TestSegmentCustomers_Empty(t *testing.T) {
	rec := newTestServer(t, true).get(t, "/api/segments/At%20Risk/customers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"segment":"At Risk","count":0,"customers":[]}`, rec.Body.String())
}

func TestSegmentCustomers_Unknown(t *testing.T) {
	rec := newTestServer(t, true).get(t, "/api/segments/Whales/customers")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/validation")
}

func TestCodeCustomers(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.get(t, "/api/codes/555/customers")
	require.Equal(t, http.StatusOK, rec.Code)
	var list CustomerList
	decode(t, rec, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "12346", list.Customers[0].CustomerID)

	assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/codes/560/customers").Code)
}

func TestCustomer(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.get(t, "/api/customers/12349")
	require.Equal(t, http.StatusOK, rec.Code)
	var c domain.ScoredCustomer
	decode(t, rec, &c)
	assert.Equal(t, "111", c.RFMCode)
	assert.Equal(t, domain.SegmentHibernating, c.Segment)
	assert.Equal(t, 1, c.Frequency)

	missing := s.get(t, "/api/customers/99999")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Contains(t, missing.Body.String(), `"customer_id":"99999"`)
}

func TestOutliers(t *testing.T) {
	rec := newTestServer(t, true).get(t, "/api/outliers")
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.OutlierReport
	decode(t, rec, &report)
	assert.Equal(t, 10, report.Rows)
	assert.Len(t, report.Features, 3)
}

func TestNoReport(t *testing.T) {
	rec := newTestServer(t, false).get(t, "/api/segments")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := newTestServer(t, true).get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/not-found")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newTestServer(t, true).get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rfm_segment_customers{segment="Champions"} 1`)
	assert.Contains(t, rec.Body.String(), "rfm_customers_scored_total 4")
}

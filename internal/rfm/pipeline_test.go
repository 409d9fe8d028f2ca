package rfm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfmcli/internal/dataprocessing"
	"rfmcli/internal/testutil"
	"rfmcli/pkg/contracts/domain"
)

func runFixture(t *testing.T, path string) []domain.ScoredCustomer {
	t.Helper()

	table, err := dataprocessing.LoadTable(path, dataprocessing.LoadOptions{Sheet: "Year 2010-2011"})
	require.NoError(t, err)

	cleaned, _ := dataprocessing.Clean(table.Rows, "C")
	metrics, err := Aggregate(cleaned, reference)
	require.NoError(t, err)
	scored, err := Score(metrics)
	require.NoError(t, err)
	return Segment(scored)
}

func TestPipeline_FourCustomers(t *testing.T) {
	path := testutil.WriteWorkbook(t, filepath.Join(t.TempDir(), "retail.xlsx"), "Year 2010-2011", testutil.FourCustomerOrders())

	customers := runFixture(t, path)
	require.Len(t, customers, 4)

	byID := make(map[string]domain.ScoredCustomer)
	for _, c := range customers {
		byID[c.CustomerID] = c
	}
	assert.Equal(t, "555", byID["12346"].RFMCode)
	assert.Equal(t, domain.SegmentChampions, byID["12346"].Segment)
	assert.Equal(t, "444", byID["12347"].RFMCode)
	assert.Equal(t, domain.SegmentLoyalCustomers, byID["12347"].Segment)
	assert.Equal(t, "111", byID["12349"].RFMCode)
	assert.Equal(t, domain.SegmentHibernating, byID["12349"].Segment)

	// the canceled return of 12349 does not count
	assert.Equal(t, 1, byID["12349"].Frequency)
	assert.Equal(t, 5.0, byID["12349"].Monetary)

	assert.Equal(t, []string{"12346"}, ids(FilterByCode(customers, "555")))
	assert.Equal(t, []string{"12349"}, ids(FilterByCode(customers, "111")))
}

func TestPipeline_Idempotent(t *testing.T) {
	dir := t.TempDir()
	xlsx := testutil.WriteWorkbook(t, filepath.Join(dir, "retail.xlsx"), "Year 2010-2011", testutil.FourCustomerOrders())
	csvPath := testutil.WriteCSV(t, filepath.Join(dir, "retail.csv"), testutil.FourCustomerOrders())

	first := runFixture(t, xlsx)
	second := runFixture(t, xlsx)
	fromCSV := runFixture(t, csvPath)

	assert.Equal(t, first, second)
	assert.Equal(t, first, fromCSV)
}

func ids(customers []domain.ScoredCustomer) []string {
	out := make([]string, len(customers))
	for i, c := range customers {
		out[i] = c.CustomerID
	}
	return out
}

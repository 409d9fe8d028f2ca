package exporter

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfmcli/internal/testutil"
	"rfmcli/pkg/contracts/domain"
)

func scored(id string, r, f int, segment domain.Segment) domain.ScoredCustomer {
	return domain.ScoredCustomer{
		CustomerMetrics: domain.CustomerMetrics{CustomerID: id},
		RecencyScore:    r,
		FrequencyScore:  f,
		Segment:         segment,
	}
}

func TestSegmentExporter_SingleLoyalCustomer(t *testing.T) {
	logger, handler := testutil.CreateTestSlogLogger()
	exp := NewSegmentExporter(NewCSVWriter(t.TempDir()), logger)

	customers := []domain.ScoredCustomer{
		scored("12346", 5, 5, domain.SegmentChampions),
		scored("12347", 3, 4, domain.SegmentLoyalCustomers),
		scored("12348", 1, 1, domain.SegmentHibernating),
	}

	n, err := exp.Export(context.Background(), customers, domain.SegmentLoyalCustomers, "loyal.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	content, err := os.ReadFile(exp.writer.ResolvePath("loyal.csv"))
	require.NoError(t, err)
	assert.Equal(t, "LoyalCustomersID\n12347\n", string(content))
	assert.True(t, handler.HasMessage("segment exported"))
}

func TestSegmentExporter_PreservesOrder(t *testing.T) {
	exp := NewSegmentExporter(NewCSVWriter(t.TempDir()), nil)

	customers := []domain.ScoredCustomer{
		scored("17850", 4, 4, domain.SegmentLoyalCustomers),
		scored("12346", 5, 5, domain.SegmentChampions),
		scored("12350", 3, 3, domain.SegmentNeedAttention),
		scored("13047", 3, 5, domain.SegmentLoyalCustomers),
	}

	n, err := exp.Export(context.Background(), customers, domain.SegmentLoyalCustomers, "loyal.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	content, err := os.ReadFile(exp.writer.ResolvePath("loyal.csv"))
	require.NoError(t, err)
	assert.Equal(t, "LoyalCustomersID\n17850\n13047\n", string(content))
}

func TestSegmentExporter_EmptySegmentWritesHeader(t *testing.T) {
	exp := NewSegmentExporter(NewCSVWriter(t.TempDir()), nil)

	n, err := exp.Export(context.Background(), []domain.ScoredCustomer{
		scored("12346", 5, 5, domain.SegmentChampions),
	}, domain.SegmentLoyalCustomers, "loyal.csv")
	require.NoError(t, err)
	assert.Zero(t, n)

	content, err := os.ReadFile(exp.writer.ResolvePath("loyal.csv"))
	require.NoError(t, err)
	assert.Equal(t, "LoyalCustomersID\n", string(content))
}

func TestSegmentExporter_Options(t *testing.T) {
	exp := NewSegmentExporter(NewCSVWriter(t.TempDir()), nil, WithColumnName("ChampionID"), WithBOM(true))

	_, err := exp.Export(context.Background(), []domain.ScoredCustomer{
		scored("12346", 5, 5, domain.SegmentChampions),
	}, domain.SegmentChampions, "champions.csv")
	require.NoError(t, err)

	content, err := os.ReadFile(exp.writer.ResolvePath("champions.csv"))
	require.NoError(t, err)
	assert.Equal(t, "\ufeffChampionID\n12346\n", string(content))
}

func TestSegmentExporter_HeaderFollowsSegment(t *testing.T) {
	exp := NewSegmentExporter(NewCSVWriter(t.TempDir()), nil)

	customers := []domain.ScoredCustomer{
		scored("12346", 5, 5, domain.SegmentChampions),
		scored("12348", 1, 1, domain.SegmentHibernating),
		scored("12349", 1, 2, domain.SegmentHibernating),
	}

	n, err := exp.Export(context.Background(), customers, domain.SegmentHibernating, "hibernating.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	content, err := os.ReadFile(exp.writer.ResolvePath("hibernating.csv"))
	require.NoError(t, err)
	assert.Equal(t, "HibernatingID\n12348\n12349\n", string(content))
}

func TestColumnName(t *testing.T) {
	tests := map[domain.Segment]string{
		domain.SegmentLoyalCustomers:     "LoyalCustomersID",
		domain.SegmentCantLose:           "CantLoseID",
		domain.SegmentAboutToSleep:       "AbouttoSleepID",
		domain.SegmentPotentialLoyalists: "PotentialLoyalistsID",
		domain.SegmentChampions:          "ChampionsID",
	}
	for segment, want := range tests {
		assert.Equal(t, want, ColumnName(segment), segment.String())
	}
}

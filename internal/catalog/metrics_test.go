package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// manualMeter installs a meter provider backed by a manual reader for the
// duration of the test.
func manualMeter(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
		_ = mp.Shutdown(context.Background())
	})
	return reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is %T", name, m.Data)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestUpdateEntry_CountsPropagatedCopies(t *testing.T) {
	reader := manualMeter(t)
	svc, db := setupService(t)
	ctx := context.Background()

	entry, _, err := svc.ResolveOrCreate(ctx, jungkook(nil))
	require.NoError(t, err)
	for _, user := range []string{"user-a", "user-b", "user-c"} {
		insertCopy(t, db, user, entry)
	}
	insertCopy(t, db, "user-a", nil)
	assert.Zero(t, counterValue(t, reader, "catalog.propagated_copies"))

	_, err = svc.UpdateEntry(ctx, entry.ID, Changes{ImageURL: strPtr("/jk.png")}, creator)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counterValue(t, reader, "catalog.propagated_copies"))

	// Rejected edits record nothing.
	_, err = svc.UpdateEntry(ctx, entry.ID, Changes{ImageURL: strPtr("/x.png")}, stranger)
	require.Error(t, err)
	_, err = svc.UpdateEntry(ctx, uuid.New(), Changes{ImageURL: strPtr("/x.png")}, creator)
	require.Error(t, err)
	assert.Equal(t, int64(3), counterValue(t, reader, "catalog.propagated_copies"))
}

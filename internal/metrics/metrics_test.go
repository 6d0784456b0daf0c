package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, ClientRequestsTotal)
	assert.NotNil(t, ClientRequestDuration)
	assert.NotNil(t, SessionExpiriesTotal)
	assert.NotNil(t, ListingPagesFetchedTotal)
	assert.NotNil(t, AggregationFailuresTotal)
	assert.NotNil(t, FavoritesResolvedTotal)
	assert.NotNil(t, FavoritesDroppedTotal)
	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)
}

func TestClientRequestsTotal_Labels(t *testing.T) {
	t.Parallel()

	c := ClientRequestsTotal.WithLabelValues("PATCH", "418")
	before := testutil.ToFloat64(c)
	c.Inc()

	var m dto.Metric
	require.NoError(t, c.Write(&m))
	require.NotNil(t, m.GetCounter())
	assert.InDelta(t, before+1, m.GetCounter().GetValue(), 0.0001)

	labels := map[string]string{}
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, map[string]string{"method": "PATCH", "status": "418"}, labels)
}

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordScan(t *testing.T) {
	m := New(DefaultConfig("box-tracking-service"))

	m.RecordScan("outbound", "P2", true, 20*time.Millisecond)
	m.RecordScan("outbound", "P2", false, 5*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ScansTotal.WithLabelValues("box-tracking-service", "outbound", "P2", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ScansTotal.WithLabelValues("box-tracking-service", "outbound", "P2", "error")))
}

func TestRecordBoxCreated(t *testing.T) {
	m := New(DefaultConfig("box-tracking-service"))

	m.RecordBoxCreated("P1", "good", 100)
	m.RecordBoxCreated("P1", "good", 50)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.BoxesCreated.WithLabelValues("box-tracking-service", "P1", "good")))
	assert.Equal(t, float64(150), testutil.ToFloat64(m.UnitsDispatched.WithLabelValues("box-tracking-service", "P1", "good")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(DefaultConfig("box-tracking-service"))
	m.RecordReconciliation("degraded")
	m.RecordDegraded("inbound_quantity")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "wms_quantity_reconciliations_total"))
	assert.True(t, strings.Contains(string(body), "wms_degraded_operations_total"))
}

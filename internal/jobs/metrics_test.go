package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	_ = m.Track("sales:watch").End(nil)
	err := m.Track("sales:watch").End(errors.New("boom"))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sales:watch", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sales:watch", "failure")))
}

func TestQueueChanged(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.QueueChanged(4)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queueChanges))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.pending))

	var none *Metrics
	none.QueueChanged(1)
	assert.NoError(t, none.Track("x").End(nil))
}

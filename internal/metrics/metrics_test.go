package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRanking(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRanking("weighted", 12, 3*time.Millisecond, nil)
	m.ObserveRanking("weighted", 4, time.Millisecond, nil)
	m.ObserveRanking("topological", 0, time.Millisecond, errors.New("bad input"))
	m.ObserveInvariantViolation("topological")

	assert.InDelta(t, 2, testutil.ToFloat64(m.Rankings.WithLabelValues("weighted", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Rankings.WithLabelValues("topological", "invalid_input")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.InvariantViolations), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.RankingSeconds))
}

package perf_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"lottery/util/perf"
)

func TestCompile(t *testing.T) {
}

func TestNilMetrics(t *testing.T) {
	var m *perf.Metrics
	m.Charge(1)
	m.Idle()
	m.Dispatch()
	m.SetWeight(1, 10, 10)
	m.ResetWeights()
	m.ObserveCritical(time.Microsecond)
}

func TestCounters(t *testing.T) {
	m := perf.NewMetrics()
	m.Charge(1)
	m.Charge(1)
	m.Charge(3)
	m.Dispatch()
	m.Idle()
	m.SetWeight(3, 1500, 300)

	expected := `
# HELP lottery_user_ticks_total Quanta charged to each user.
# TYPE lottery_user_ticks_total counter
lottery_user_ticks_total{uid="1"} 2
lottery_user_ticks_total{uid="3"} 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "lottery_user_ticks_total")
	assert.Nil(t, err, "GatherAndCompare %v", err)

	expected = `
# HELP lottery_user_capped_weight_tickets A user's weight in the inter-user draw at the last draw.
# TYPE lottery_user_capped_weight_tickets gauge
lottery_user_capped_weight_tickets{uid="3"} 300
`
	err = testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "lottery_user_capped_weight_tickets")
	assert.Nil(t, err, "GatherAndCompare %v", err)
}

func TestHandler(t *testing.T) {
	m := perf.NewMetrics()
	m.Idle()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "lottery_idle_quanta_total 1")
}

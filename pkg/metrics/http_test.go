package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCountsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRequestMetrics(reg)

	m.Observe("GET", "/watchlist", 200, 15*time.Millisecond)
	m.Observe("GET", "/watchlist", 200, 5*time.Millisecond)
	m.Observe("POST", "/watchlist", 400, time.Millisecond)

	if got := testutil.CollectAndCount(reg, "http_requests_total"); got != 2 {
		t.Fatalf("expected 2 labeled series, got %d", got)
	}
}

func TestNilReceiverAndEmptyRouteAreSafe(t *testing.T) {
	var m *RequestMetrics
	m.Observe("GET", "", 200, time.Millisecond)

	unregistered := NewRequestMetrics(nil)
	unregistered.Observe("GET", "", 500, time.Millisecond)
}

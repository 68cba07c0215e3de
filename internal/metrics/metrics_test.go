package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveLedgerOperations(t *testing.T) {
	m := New("rewards")

	m.ObserveAccrual(OutcomeSuccess, 14, true)
	m.ObserveAccrual(OutcomeSuccess, 6, false)
	m.ObserveAccrual(OutcomeNotFound, 0, false)
	m.ObserveRedemption(OutcomeSuccess, 15)
	m.ObserveRedemption(OutcomeInsufficient, 0)

	body := scrape(t, m)
	assert.Contains(t, body, "rewards_points_accrued_total 20")
	assert.Contains(t, body, "rewards_points_redeemed_total 15")
	assert.Contains(t, body, "rewards_balances_opened_total 1")
	assert.Contains(t, body, `rewards_ledger_operations_total{operation="accrue",outcome="success"} 2`)
	assert.Contains(t, body, `rewards_ledger_operations_total{operation="accrue",outcome="not_found"} 1`)
	assert.Contains(t, body, `rewards_ledger_operations_total{operation="redeem",outcome="insufficient_points"} 1`)
}

func TestObserveRequest(t *testing.T) {
	m := New("")

	m.ObserveRequest("/vendors/{vendor_id}", http.MethodGet, http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest("/vendors/{vendor_id}", http.MethodGet, http.StatusNotFound, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `rewards_http_requests_total{method="GET",route="/vendors/{vendor_id}",status="200"} 1`)
	assert.Contains(t, body, `rewards_http_requests_total{method="GET",route="/vendors/{vendor_id}",status="404"} 1`)
	assert.Contains(t, body, `rewards_http_request_duration_seconds_count{method="GET",route="/vendors/{vendor_id}"} 2`)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAccrual(OutcomeSuccess, 1, true)
		m.ObserveRedemption(OutcomeSuccess, 1)
		m.ObserveRequest("/", http.MethodGet, http.StatusOK, time.Millisecond)
	})
}

package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHubMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHubMetrics(reg)
	require.NotNil(t, m)

	m.Joined()
	m.Message("update", OutcomeApplied)
	m.Broadcast(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["gridshare_hub_active_connections"])
	assert.True(t, names["gridshare_hub_connections_total"])
	assert.True(t, names["gridshare_hub_messages_total"])
	assert.True(t, names["gridshare_hub_broadcast_recipients"])
}

func TestNewHubMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewHubMetrics(reg)

	assert.Panics(t, func() { NewHubMetrics(reg) })
}

func TestHubMetrics_JoinLeave(t *testing.T) {
	m := NewHubMetrics(prometheus.NewRegistry())

	m.Joined()
	m.Joined()
	m.Left(ReasonDisconnect)
	m.Left(ReasonSendFailed)
	m.Joined()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ConnectionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DisconnectsTotal.WithLabelValues(ReasonDisconnect)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DisconnectsTotal.WithLabelValues(ReasonSendFailed)))
}

func TestHubMetrics_Messages(t *testing.T) {
	m := NewHubMetrics(prometheus.NewRegistry())

	m.Message("update", OutcomeApplied)
	m.Message("update", OutcomeApplied)
	m.Message("update", OutcomeIgnored)
	m.Message("unknown", OutcomeMalformed)
	m.SendFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("update", OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("update", OutcomeIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("unknown", OutcomeMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SendFailuresTotal))
}

func TestHubMetrics_NilIsNoop(t *testing.T) {
	var m *HubMetrics

	assert.NotPanics(t, func() {
		m.Joined()
		m.Left(ReasonIdle)
		m.Message("reset", OutcomeApplied)
		m.SendFailed()
		m.Broadcast(10)
	})
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	m := NewHubMetrics(reg)
	m.Joined()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "gridshare_hub_active_connections 1")
	assert.Contains(t, body, "go_goroutines")
}

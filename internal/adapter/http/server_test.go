package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/nws-alert-relay/internal/adapter/http"
	"github.com/couchcryptid/nws-alert-relay/internal/domain"
	"github.com/couchcryptid/nws-alert-relay/internal/manager"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockStore struct {
	alerts []*domain.Alert
}

func (m *mockStore) Active() []*domain.Alert { return m.alerts }

func (m *mockStore) ByState(state string) []*domain.Alert {
	var out []*domain.Alert
	for _, a := range m.alerts {
		for _, ugc := range a.AffectedAreas {
			if len(ugc) >= 2 && ugc[:2] == state {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func (m *mockStore) Get(id string) (*domain.Alert, bool) {
	for _, a := range m.alerts {
		if a.ProductID == id {
			return a, true
		}
	}
	return nil, false
}

func (m *mockStore) Statistics() manager.Statistics {
	return manager.Statistics{TotalAlerts: len(m.alerts)}
}

func (m *mockStore) RecentProducts(limit int) []manager.RecentProduct {
	products := make([]manager.RecentProduct, 0, len(m.alerts))
	for _, a := range m.alerts {
		products = append(products, manager.RecentProduct{ProductID: a.ProductID})
	}
	if limit < len(products) {
		products = products[:limit]
	}
	return products
}

type mockClients struct{ n int }

func (m *mockClients) ClientCount() int { return m.n }

func newTestServer(store *mockStore, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", store, &mockClients{n: 3}, &mockReadiness{err: readyErr}, slog.New(slog.DiscardHandler))
}

func storeWithAlerts() *mockStore {
	return &mockStore{alerts: []*domain.Alert{
		{ProductID: "TO.CLE.0045", Phenomenon: "TO", EventName: "Tornado Warning", AffectedAreas: []string{"OHC049"}},
		{ProductID: "SV.IND.0012", Phenomenon: "SV", EventName: "Severe Thunderstorm Warning", AffectedAreas: []string{"INC003"}},
	}}
}

func get(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(storeWithAlerts(), nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		rec := get(t, newTestServer(storeWithAlerts(), nil), "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		rec := get(t, newTestServer(storeWithAlerts(), fmt.Errorf("no products processed yet")), "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(storeWithAlerts(), nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAlerts(t *testing.T) {
	srv := newTestServer(storeWithAlerts(), nil)

	t.Run("all alerts", func(t *testing.T) {
		rec := get(t, srv, "/alerts")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Count  int             `json:"count"`
			Alerts []*domain.Alert `json:"alerts"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Count)
	})

	t.Run("filtered by state", func(t *testing.T) {
		rec := get(t, srv, "/alerts?state=IN")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Count  int             `json:"count"`
			Alerts []*domain.Alert `json:"alerts"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, 1, body.Count)
		assert.Equal(t, "SV.IND.0012", body.Alerts[0].ProductID)
	})

	t.Run("single alert", func(t *testing.T) {
		rec := get(t, srv, "/alerts/TO.CLE.0045")
		require.Equal(t, http.StatusOK, rec.Code)

		var alert domain.Alert
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))
		assert.Equal(t, "Tornado Warning", alert.EventName)
	})

	t.Run("unknown alert is 404", func(t *testing.T) {
		rec := get(t, srv, "/alerts/TO.CLE.9999")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRecentProducts(t *testing.T) {
	rec := get(t, newTestServer(storeWithAlerts(), nil), "/products/recent?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count    int                     `json:"count"`
		Products []manager.RecentProduct `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestStatus(t *testing.T) {
	rec := get(t, newTestServer(storeWithAlerts(), nil), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Statistics       manager.Statistics `json:"statistics"`
		ConnectedClients int                `json:"connected_clients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Statistics.TotalAlerts)
	assert.Equal(t, 3, body.ConnectedClients)
}

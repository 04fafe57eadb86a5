package manager

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/nws-alert-relay/internal/domain"
	"github.com/couchcryptid/nws-alert-relay/internal/observability"
)

func newTestManager(clk clockwork.Clock) *Manager {
	return New(time.Minute, clk, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())
}

func makeAlert(id string, priority domain.Priority, issued time.Time) *domain.Alert {
	iss := issued
	exp := issued.Add(time.Hour)
	return &domain.Alert{
		ProductID:      id,
		Source:         "nwws",
		Phenomenon:     "TO",
		Significance:   domain.SignificanceWarning,
		EventName:      "Tornado Warning",
		Headline:       "TORNADO WARNING FOR STARK COUNTY",
		Description:    "A tornado warning is in effect.",
		IssuedTime:     &iss,
		ExpirationTime: &exp,
		AffectedAreas:  []string{"OHC151"},
		FIPSCodes:      []string{"39151"},
		Status:         domain.StatusActive,
		Priority:       priority,
		ParsedAt:       issued,
		LastUpdated:    issued,
	}
}

func drainEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event emitted")
		return Event{}
	}
}

func requireNoEvent(t *testing.T, events <-chan Event) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s for %s", ev.Type, ev.Alert.ProductID)
	default:
	}
}

func TestUpsert(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC))
	now := clk.Now()

	t.Run("new alert is added", func(t *testing.T) {
		m := newTestManager(clk)
		events := m.Subscribe()
		alert := makeAlert("TO.CLE.0045", domain.PriorityFor("TO", domain.SignificanceWarning), now)

		assert.True(t, m.Upsert(alert))
		assert.Equal(t, 1, m.Count())

		ev := drainEvent(t, events)
		assert.Equal(t, EventAlertNew, ev.Type)
		assert.Equal(t, "TO.CLE.0045", ev.Alert.ProductID)

		recent := m.RecentProducts(10)
		require.Len(t, recent, 1)
		assert.Equal(t, "TO.CLE.0045", recent[0].ProductID)
	})

	t.Run("update merges non-empty fields", func(t *testing.T) {
		m := newTestManager(clk)
		events := m.Subscribe()
		first := makeAlert("TO.CLE.0045", 1, now)
		gust := 70
		first.Threat.MaxWindGustMPH = &gust
		require.True(t, m.Upsert(first))
		drainEvent(t, events)

		update := makeAlert("TO.CLE.0045", 1, now)
		update.Headline = "TORNADO WARNING CONTINUES"
		update.Instruction = ""
		update.Threat = domain.Threat{} // follow-up with no tags keeps the old threat
		later := now.Add(30 * time.Minute).Add(time.Hour)
		update.ExpirationTime = &later
		require.True(t, m.Upsert(update))

		got, ok := m.Get("TO.CLE.0045")
		require.True(t, ok)
		assert.Equal(t, "TORNADO WARNING CONTINUES", got.Headline)
		assert.Equal(t, "A tornado warning is in effect.", got.Description)
		require.NotNil(t, got.Threat.MaxWindGustMPH)
		assert.Equal(t, 70, *got.Threat.MaxWindGustMPH)
		assert.Equal(t, later, *got.ExpirationTime)
		assert.Equal(t, domain.StatusUpdated, got.Status)
		assert.Equal(t, 1, got.UpdateCount)

		ev := drainEvent(t, events)
		assert.Equal(t, EventAlertUpdate, ev.Type)

		// Updates do not re-enter the recent product feed.
		assert.Len(t, m.RecentProducts(10), 1)
	})

	t.Run("update with new tornado tag replaces threat", func(t *testing.T) {
		m := newTestManager(clk)
		first := makeAlert("TO.CLE.0045", 1, now)
		gust := 60
		first.Threat.MaxWindGustMPH = &gust
		require.True(t, m.Upsert(first))

		update := makeAlert("TO.CLE.0045", 1, now)
		observed := "OBSERVED"
		update.Threat = domain.Threat{TornadoDetection: &observed}
		require.True(t, m.Upsert(update))

		got, _ := m.Get("TO.CLE.0045")
		require.NotNil(t, got.Threat.TornadoDetection)
		assert.Equal(t, "OBSERVED", *got.Threat.TornadoDetection)
		assert.Nil(t, got.Threat.MaxWindGustMPH)
	})

	t.Run("cancellation removes existing alert", func(t *testing.T) {
		m := newTestManager(clk)
		events := m.Subscribe()
		require.True(t, m.Upsert(makeAlert("TO.CLE.0045", 1, now)))
		drainEvent(t, events)

		cancel := makeAlert("TO.CLE.0045", 1, now)
		cancel.Status = domain.StatusCancelled
		assert.True(t, m.Upsert(cancel))
		assert.Equal(t, 0, m.Count())

		ev := drainEvent(t, events)
		assert.Equal(t, EventAlertRemove, ev.Type)
		assert.Equal(t, "cancelled", ev.Reason)
		assert.Equal(t, domain.StatusCancelled, ev.Alert.Status)
	})

	t.Run("cancellation for unknown id is ignored", func(t *testing.T) {
		m := newTestManager(clk)
		events := m.Subscribe()
		cancel := makeAlert("SV.ILN.0199", 3, now)
		cancel.Status = domain.StatusCancelled

		assert.False(t, m.Upsert(cancel))
		assert.Equal(t, 0, m.Count())
		requireNoEvent(t, events)
	})

	t.Run("alert without product id is dropped", func(t *testing.T) {
		m := newTestManager(clk)
		assert.False(t, m.Upsert(&domain.Alert{}))
		assert.False(t, m.Upsert(nil))
	})
}

func TestActiveOrdering(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC))
	now := clk.Now()
	m := newTestManager(clk)

	m.Upsert(makeAlert("SV.CLE.0101", 3, now.Add(-10*time.Minute)))
	m.Upsert(makeAlert("TO.CLE.0045", 1, now.Add(-30*time.Minute)))
	m.Upsert(makeAlert("SV.CLE.0102", 3, now.Add(-5*time.Minute)))

	active := m.Active()
	require.Len(t, active, 3)
	assert.Equal(t, "TO.CLE.0045", active[0].ProductID)
	assert.Equal(t, "SV.CLE.0102", active[1].ProductID) // newer first within a priority
	assert.Equal(t, "SV.CLE.0101", active[2].ProductID)

	// Snapshots are copies; mutating one must not touch the stored alert.
	active[0].Headline = "mutated"
	got, _ := m.Get("TO.CLE.0045")
	assert.NotEqual(t, "mutated", got.Headline)
}

func TestByState(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC))
	m := newTestManager(clk)

	ohio := makeAlert("TO.CLE.0045", 1, clk.Now())
	m.Upsert(ohio)

	indiana := makeAlert("SV.IND.0012", 3, clk.Now())
	indiana.AffectedAreas = []string{"INC003"}
	m.Upsert(indiana)

	assert.Len(t, m.ByState("OH"), 1)
	assert.Len(t, m.ByState("IN"), 1)
	assert.Empty(t, m.ByState("KY"))
}

func TestSweepExpired(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC))
	m := newTestManager(clk)
	events := m.Subscribe()

	m.Upsert(makeAlert("TO.CLE.0045", 1, clk.Now())) // expires at 16:00
	longLived := makeAlert("WS.CLE.0003", 10, clk.Now())
	farOut := clk.Now().Add(12 * time.Hour)
	longLived.ExpirationTime = &farOut
	m.Upsert(longLived)
	drainEvent(t, events)
	drainEvent(t, events)

	assert.Equal(t, 0, m.SweepExpired())

	clk.Advance(90 * time.Minute)
	assert.Equal(t, 1, m.SweepExpired())
	assert.Equal(t, 1, m.Count())

	ev := drainEvent(t, events)
	assert.Equal(t, EventAlertRemove, ev.Type)
	assert.Equal(t, "expired", ev.Reason)
	assert.Equal(t, domain.StatusExpired, ev.Alert.Status)
	_, ok := m.Get("TO.CLE.0045")
	assert.False(t, ok)
}

func TestRunSweepsOnInterval(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC))
	m := newTestManager(clk)
	m.Upsert(makeAlert("TO.CLE.0045", 1, clk.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	clk.BlockUntil(1)
	clk.Advance(2 * time.Hour)

	require.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, time.Millisecond)
}

func TestRecentProducts(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC))
	m := newTestManager(clk)

	for i := 0; i < recentProductsCap+10; i++ {
		m.Upsert(makeAlert(fmt.Sprintf("SV.CLE.%04d", i), 3, clk.Now()))
	}

	recent := m.RecentProducts(0)
	require.Len(t, recent, recentProductsCap)
	assert.Equal(t, fmt.Sprintf("SV.CLE.%04d", recentProductsCap+9), recent[0].ProductID)

	assert.Len(t, m.RecentProducts(5), 5)
}

func TestStatistics(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC))
	m := newTestManager(clk)

	tor := makeAlert("TO.CLE.0045", domain.PriorityFor("TO", domain.SignificanceWarning), clk.Now())
	m.Upsert(tor)

	watch := makeAlert("TOA.SPC.0245", domain.PriorityFor("TO", domain.SignificanceWatch), clk.Now())
	watch.Phenomenon = "TO"
	watch.Significance = domain.SignificanceWatch
	watch.Source = "api"
	m.Upsert(watch)

	stats := m.Statistics()
	assert.Equal(t, 2, stats.TotalAlerts)
	assert.Equal(t, 1, stats.Warnings)
	assert.Equal(t, 1, stats.Watches)
	assert.Equal(t, 2, stats.ByPhenomenon["TO"])
	assert.Equal(t, 1, stats.BySource["nwws"])
	assert.Equal(t, 1, stats.BySource["api"])
	assert.GreaterOrEqual(t, stats.HighPriority, 1)
	require.NotNil(t, stats.LastUpdated)
}

func TestPersistence(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC))
	path := filepath.Join(t.TempDir(), "alerts.json")

	m := newTestManager(clk)
	m.Upsert(makeAlert("TO.CLE.0045", 1, clk.Now())) // expires 16:00
	late := makeAlert("WS.CLE.0003", 10, clk.Now())
	farOut := clk.Now().Add(12 * time.Hour)
	late.ExpirationTime = &farOut
	m.Upsert(late)
	require.NoError(t, m.SaveToFile(path))

	t.Run("expired alerts are skipped on load", func(t *testing.T) {
		laterClk := clockwork.NewFakeClockAt(clk.Now().Add(2 * time.Hour))
		m2 := newTestManager(laterClk)
		events := m2.Subscribe()
		loaded, err := m2.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded)

		_, ok := m2.Get("WS.CLE.0003")
		assert.True(t, ok)
		_, ok = m2.Get("TO.CLE.0045")
		assert.False(t, ok)
		requireNoEvent(t, events)
	})

	t.Run("missing file loads nothing", func(t *testing.T) {
		m3 := newTestManager(clk)
		loaded, err := m3.LoadFromFile(filepath.Join(t.TempDir(), "absent.json"))
		require.NoError(t, err)
		assert.Equal(t, 0, loaded)
	})
}

func TestGeometryBackfillAccessors(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC))
	m := newTestManager(clk)
	events := m.Subscribe()

	bare := makeAlert("TO.CLE.0045", 1, clk.Now())
	withPolygon := makeAlert("SV.CLE.0101", 3, clk.Now())
	withPolygon.Polygon = []domain.Ring{{{41.0, -81.5}, {41.1, -81.4}, {40.9, -81.3}, {41.0, -81.5}}}
	m.Upsert(bare)
	m.Upsert(withPolygon)
	drainEvent(t, events)
	drainEvent(t, events)

	missing := m.MissingGeometry()
	require.Len(t, missing, 1)
	assert.Equal(t, "TO.CLE.0045", missing[0].ProductID)

	rings := []domain.Ring{{{39.0, -84.5}, {39.1, -84.4}, {38.9, -84.3}, {39.0, -84.5}}}
	centroid := domain.Centroid(rings)
	assert.True(t, m.SetGeometry("TO.CLE.0045", rings, centroid))

	got, ok := m.Get("TO.CLE.0045")
	require.True(t, ok)
	assert.Equal(t, rings, got.Polygon)
	assert.Equal(t, 0, got.UpdateCount)
	assert.Empty(t, m.MissingGeometry())
	requireNoEvent(t, events)

	assert.False(t, m.SetGeometry("FF.CLE.9999", rings, centroid))
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTextPolygon(t *testing.T) {
	t.Run("packed hundredths with negated longitude", func(t *testing.T) {
		text := "LAT...LON 4105 8145 4110 8130 4095 8125\n\n"
		ring := ParseTextPolygon(text)

		require.Len(t, ring, 4) // three vertices plus closure
		assert.Equal(t, LatLon{41.05, -81.45}, ring[0])
		assert.Equal(t, LatLon{41.10, -81.30}, ring[1])
		assert.Equal(t, LatLon{40.95, -81.25}, ring[2])
		assert.Equal(t, ring[0], ring[3])
	})

	t.Run("stops at storm motion line", func(t *testing.T) {
		text := "LAT...LON 4105 8145 4110 8130 4095 8125\nTIME...MOT...LOC 1530Z 245DEG 35KT 4100 8135"
		ring := ParseTextPolygon(text)
		require.Len(t, ring, 4)
	})

	t.Run("out of bounds vertices dropped", func(t *testing.T) {
		// 10.00N is south of the continental US window
		text := "LAT...LON 1000 8145 4110 8130 4095 8125 4100 8140\n\n"
		ring := ParseTextPolygon(text)
		require.Len(t, ring, 4)
		assert.Equal(t, LatLon{41.10, -81.30}, ring[0])
	})

	t.Run("odd coordinate count rejected", func(t *testing.T) {
		assert.Nil(t, ParseTextPolygon("LAT...LON 4105 8145 4110\n\n"))
	})

	t.Run("no block", func(t *testing.T) {
		assert.Nil(t, ParseTextPolygon("A SEVERE THUNDERSTORM WAS LOCATED NEAR AKRON"))
	})
}

func TestParseXMLPolygon(t *testing.T) {
	text := `<polygon>41.05,-81.45 41.10,-81.30 40.95,-81.25</polygon>`
	ring := ParseXMLPolygon(text)

	require.Len(t, ring, 4)
	assert.Equal(t, LatLon{41.05, -81.45}, ring[0])
	assert.Equal(t, ring[0], ring[3])
}

func TestRingFromGeoJSON(t *testing.T) {
	t.Run("polygon outer ring reorders to lat lon", func(t *testing.T) {
		var geom GeoJSONGeometry
		raw := `{"type":"Polygon","coordinates":[[[-81.45,41.05],[-81.30,41.10],[-81.25,40.95],[-81.45,41.05]]]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &geom))

		ring := RingFromGeoJSON(&geom)
		require.Len(t, ring, 4)
		assert.Equal(t, LatLon{41.05, -81.45}, ring[0])
	})

	t.Run("multipolygon takes first polygon", func(t *testing.T) {
		var geom GeoJSONGeometry
		raw := `{"type":"MultiPolygon","coordinates":[[[[-81.45,41.05],[-81.30,41.10],[-81.25,40.95],[-81.45,41.05]]],[[[-80.0,40.0],[-80.1,40.1],[-80.2,40.0],[-80.0,40.0]]]]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &geom))

		ring := RingFromGeoJSON(&geom)
		require.Len(t, ring, 4)
		assert.Equal(t, LatLon{41.05, -81.45}, ring[0])
	})

	t.Run("unsupported type", func(t *testing.T) {
		assert.Nil(t, RingFromGeoJSON(&GeoJSONGeometry{Type: "Point", Coordinates: []any{-81.45, 41.05}}))
		assert.Nil(t, RingFromGeoJSON(nil))
	})
}

func TestRingsFromGeoJSON(t *testing.T) {
	t.Run("multipolygon keeps every polygon", func(t *testing.T) {
		var geom GeoJSONGeometry
		raw := `{"type":"MultiPolygon","coordinates":[[[[-81.45,41.05],[-81.30,41.10],[-81.25,40.95],[-81.45,41.05]]],[[[-80.0,40.0],[-80.1,40.1],[-80.2,40.0],[-80.0,40.0]]]]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &geom))

		rings := RingsFromGeoJSON(&geom)
		require.Len(t, rings, 2)
		assert.Equal(t, LatLon{41.05, -81.45}, rings[0][0])
		assert.Equal(t, LatLon{40.0, -80.0}, rings[1][0])
	})

	t.Run("polygon yields one ring", func(t *testing.T) {
		var geom GeoJSONGeometry
		raw := `{"type":"Polygon","coordinates":[[[-81.45,41.05],[-81.30,41.10],[-81.25,40.95],[-81.45,41.05]]]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &geom))

		rings := RingsFromGeoJSON(&geom)
		require.Len(t, rings, 1)
		assert.Equal(t, LatLon{41.05, -81.45}, rings[0][0])
	})
}

func TestCentroid(t *testing.T) {
	ring := Ring{{41.0, -81.0}, {42.0, -81.0}, {42.0, -82.0}, {41.0, -82.0}}
	c := Centroid([]Ring{ring})

	require.NotNil(t, c)
	assert.InDelta(t, 41.5, c[0], 0.001)
	assert.InDelta(t, -81.5, c[1], 0.001)

	t.Run("averages across rings", func(t *testing.T) {
		second := Ring{{43.0, -83.0}, {44.0, -83.0}, {44.0, -84.0}, {43.0, -84.0}}
		c := Centroid([]Ring{ring, second})
		require.NotNil(t, c)
		assert.InDelta(t, 42.5, c[0], 0.001)
		assert.InDelta(t, -82.5, c[1], 0.001)
	})

	assert.Nil(t, Centroid(nil))
}

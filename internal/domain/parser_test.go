package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tornadoWarningText = `WFUS53 KCLE 201528

BULLETIN - EAS ACTIVATION REQUESTED
Tornado Warning
National Weather Service Cleveland OH
1028 AM EST Mon Jan 20 2025

OHC049-041-201615-
/O.NEW.KCLE.TO.W.0045.250120T1530Z-250120T1630Z/

...A TORNADO WARNING IS IN EFFECT UNTIL 1130 AM EST...

AT 1027 AM EST A SEVERE THUNDERSTORM CAPABLE OF PRODUCING A TORNADO WAS
LOCATED NEAR COLUMBUS MOVING NE AT 35 MPH.

TORNADO...RADAR INDICATED.
MAX HAIL SIZE...1.00 IN

LAT...LON 4105 8145 4110 8130 4095 8125
TIME...MOT...LOC 1530Z 245DEG 35KT 4100 8135

$$
`

const spsText = `WWUS81 KCLE 202039

SPECIAL WEATHER STATEMENT
NATIONAL WEATHER SERVICE CLEVELAND OH
339 PM EST Mon Jan 20 2025

OHZ089-202200-

...STRONG THUNDERSTORMS WITH GUSTY WINDS WILL AFFECT THE AREA...

GUSTS UP TO 50 MPH AND PEA SIZE HAIL ARE POSSIBLE.

$$
`

func newTestParser(opts ParseOptions) *Parser {
	return NewParser(opts)
}

func TestParseTextAlert(t *testing.T) {
	mockClock := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 16, 0, 0, 0, time.UTC))
	SetClock(mockClock)
	defer SetClock(nil)

	p := newTestParser(ParseOptions{FilterStates: []string{"OH", "IN"}})

	t.Run("tornado warning end to end", func(t *testing.T) {
		alert, err := p.ParseTextAlert(tornadoWarningText, "nwws")
		require.NoError(t, err)

		assert.Equal(t, "TO.CLE.0045", alert.ProductID)
		assert.Equal(t, "nwws", alert.Source)
		assert.Equal(t, "TO", alert.Phenomenon)
		assert.Equal(t, SignificanceWarning, alert.Significance)
		assert.Equal(t, "Tornado Warning", alert.EventName)
		assert.Equal(t, PriorityTornadoWarning, alert.Priority)
		assert.Equal(t, StatusActive, alert.Status)
		assert.Equal(t, "KCLE", alert.SenderOffice)
		assert.Equal(t, "NWS Cleveland OH", alert.SenderName)

		assert.Equal(t, []string{"OHC041", "OHC049"}, alert.AffectedAreas)
		assert.Equal(t, []string{"39041", "39049"}, alert.FIPSCodes)

		require.NotNil(t, alert.ExpirationTime)
		assert.Equal(t, time.Date(2025, 1, 20, 16, 30, 0, 0, time.UTC), *alert.ExpirationTime)

		require.Len(t, alert.Polygon, 1)
		require.Len(t, alert.Polygon[0], 4)
		assert.Equal(t, LatLon{41.05, -81.45}, alert.Polygon[0][0])
		require.NotNil(t, alert.Centroid)

		require.NotNil(t, alert.Threat.TornadoDetection)
		assert.Equal(t, "RADAR INDICATED", *alert.Threat.TornadoDetection)
		require.NotNil(t, alert.Threat.MaxHailSizeInches)
		assert.Equal(t, 1.0, *alert.Threat.MaxHailSizeInches)
		require.NotNil(t, alert.Threat.StormMotion)
		assert.Equal(t, 245, *alert.Threat.StormMotion.DirectionDegrees)

		assert.True(t, alert.IsActive(mockClock.Now()))
		assert.True(t, alert.IsHighPriority())
	})

	t.Run("cancellation sets status", func(t *testing.T) {
		text := "OHC049-201615-\n/O.CAN.KCLE.TO.W.0045.000000T0000Z-250120T1630Z/\n"
		alert, err := p.ParseTextAlert(text, "nwws")
		require.NoError(t, err)

		assert.Equal(t, "TO.CLE.0045", alert.ProductID)
		assert.Equal(t, StatusCancelled, alert.Status)
	})

	t.Run("informational product rejected", func(t *testing.T) {
		_, err := p.ParseTextAlert("HAZARDOUS WEATHER OUTLOOK\nNATIONAL WEATHER SERVICE", "nwws")
		assert.ErrorIs(t, err, ErrInformationalProduct)
		assert.Equal(t, "informational", RejectReason(err))
	})

	t.Run("out of area product rejected", func(t *testing.T) {
		text := "PAC003-201615-\n/O.NEW.KPBZ.SV.W.0012.250120T1530Z-250120T1630Z/\n"
		_, err := p.ParseTextAlert(text, "nwws")
		assert.ErrorIs(t, err, ErrStateFiltered)
	})

	t.Run("office filter rejects other offices", func(t *testing.T) {
		po := newTestParser(ParseOptions{FilterOffices: []string{"KILN"}})
		_, err := po.ParseTextAlert(tornadoWarningText, "nwws")
		assert.ErrorIs(t, err, ErrOfficeFiltered)
		assert.Equal(t, "office", RejectReason(err))
	})

	t.Run("office filter passes listed office", func(t *testing.T) {
		po := newTestParser(ParseOptions{FilterOffices: []string{"KCLE"}})
		alert, err := po.ParseTextAlert(tornadoWarningText, "nwws")
		require.NoError(t, err)
		assert.Equal(t, "KCLE", alert.SenderOffice)
	})

	t.Run("multi state product prunes to filter states", func(t *testing.T) {
		text := "OHC049-PAC003-201615-\n/O.NEW.KPBZ.SV.W.0013.250120T1530Z-250120T1630Z/\n"
		alert, err := p.ParseTextAlert(text, "nwws")
		require.NoError(t, err)

		assert.Equal(t, []string{"OHC049"}, alert.AffectedAreas)
		assert.Equal(t, []string{"39049"}, alert.FIPSCodes)
		assert.Equal(t, "OH (1 county)", alert.DisplayLocations)
	})

	t.Run("default lifetime when no expiration found", func(t *testing.T) {
		text := "OHC049-\n/O.NEW.KCLE.TO.W.0046.250120T1530Z-000000T0000Z/\n"
		alert, err := p.ParseTextAlert(text, "nwws")
		require.NoError(t, err)

		require.NotNil(t, alert.ExpirationTime)
		assert.Equal(t, mockClock.Now().UTC().Add(time.Hour), *alert.ExpirationTime)
	})

	t.Run("phenomena provider consulted per product", func(t *testing.T) {
		codes := []string{"SV"}
		pp := newTestParser(ParseOptions{PhenomenaProvider: func() []string { return codes }})

		_, err := pp.ParseTextAlert(tornadoWarningText, "nwws")
		assert.ErrorIs(t, err, ErrPhenomenonFiltered)

		codes = []string{"SV", "TO"}
		alert, err := pp.ParseTextAlert(tornadoWarningText, "nwws")
		require.NoError(t, err)
		assert.Equal(t, "TO", alert.Phenomenon)
	})

	t.Run("watch header fallback identity", func(t *testing.T) {
		text := "OHC049-041-210400-\nTORNADO WATCH NUMBER 245\nNATIONAL WEATHER SERVICE\n"
		alert, err := p.ParseTextAlert(text, "nwws")
		require.NoError(t, err)

		assert.Equal(t, "TOA.SPC.0245", alert.ProductID)
		assert.Equal(t, "TO", alert.Phenomenon)
		assert.Equal(t, SignificanceWatch, alert.Significance)
		assert.Equal(t, "Tornado Watch", alert.EventName)
	})
}

func TestParseTextAlertSPS(t *testing.T) {
	mockClock := clockwork.NewFakeClockAt(time.Date(2025, 1, 20, 16, 0, 0, 0, time.UTC))
	SetClock(mockClock)
	defer SetClock(nil)

	p := newTestParser(ParseOptions{FilterStates: []string{"OH"}})

	t.Run("thunderstorm statement accepted with stable id", func(t *testing.T) {
		first, err := p.ParseTextAlert(spsText, "nwws")
		require.NoError(t, err)
		second, err := p.ParseTextAlert(spsText, "nwws")
		require.NoError(t, err)

		assert.Equal(t, "SPS", first.Phenomenon)
		assert.Equal(t, PrioritySpecialWeatherStatement, first.Priority)
		assert.Contains(t, first.ProductID, "SPS.adhoc.202501202039.")
		assert.Equal(t, first.ProductID, second.ProductID)

		require.NotNil(t, first.Threat.MaxWindGustMPH)
		assert.Equal(t, 50, *first.Threat.MaxWindGustMPH)
		require.NotNil(t, first.Threat.MaxHailSizeInches)
		assert.Equal(t, 0.25, *first.Threat.MaxHailSizeInches)
	})

	t.Run("non thunderstorm statement rejected", func(t *testing.T) {
		text := "SPECIAL WEATHER STATEMENT\n339 PM EST Mon Jan 20 2025\nOHZ089-202200-\n...DENSE FOG THROUGH THE MORNING...\n"
		_, err := p.ParseTextAlert(text, "nwws")
		assert.ErrorIs(t, err, ErrIrrelevantSPS)
		assert.Equal(t, "sps_irrelevant", RejectReason(err))
	})
}

func TestParseAPIAlert(t *testing.T) {
	mockClock := clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC))
	SetClock(mockClock)
	defer SetClock(nil)

	p := newTestParser(ParseOptions{FilterStates: []string{"OH"}})

	baseFeature := func() *APIFeature {
		return &APIFeature{
			ID: "https://api.weather.gov/alerts/urn:oid:2.49.0.1.840.0.abc.001.1",
			Properties: APIProperties{
				ID:          "urn:oid:2.49.0.1.840.0.abc.001.1",
				Event:       "Severe Thunderstorm Warning",
				Headline:    "Severe Thunderstorm Warning issued for Franklin County",
				Description: "At 500 PM, a severe thunderstorm was located near Columbus.",
				AreaDesc:    "Franklin, OH",
				SenderName:  "NWS Cleveland OH",
				Sent:        "2025-06-15T21:00:00-00:00",
				Effective:   "2025-06-15T21:00:00Z",
				Expires:     "2025-06-15T21:45:00Z",
				Ends:        "2025-06-15T22:00:00Z",
				Geocode: APIGeocode{
					UGC:  []string{"OHC049"},
					SAME: []string{"039049"},
				},
				Parameters: map[string][]any{
					"VTEC": {"/O.NEW.KCLE.SV.W.0101.250615T2100Z-250615T2200Z/"},
				},
			},
			Geometry: &GeoJSONGeometry{
				Type: "Polygon",
				Coordinates: []any{
					[]any{
						[]any{-81.45, 41.05}, []any{-81.30, 41.10},
						[]any{-81.25, 40.95}, []any{-81.45, 41.05},
					},
				},
			},
		}
	}

	t.Run("warning feature with VTEC parameter", func(t *testing.T) {
		alert, err := p.ParseAPIAlert(baseFeature(), "api")
		require.NoError(t, err)

		assert.Equal(t, "SV.CLE.0101", alert.ProductID)
		assert.Equal(t, "api", alert.Source)
		assert.Equal(t, "SV", alert.Phenomenon)
		assert.Equal(t, PrioritySevereThunderstormWarning, alert.Priority)
		assert.Equal(t, []string{"OHC049"}, alert.AffectedAreas)
		assert.Equal(t, []string{"39049"}, alert.FIPSCodes)
		assert.Equal(t, "Franklin, OH", alert.DisplayLocations)
		assert.Equal(t, "NWS Cleveland OH", alert.SenderName)

		// "ends" wins over "expires"
		require.NotNil(t, alert.ExpirationTime)
		assert.Equal(t, time.Date(2025, 6, 15, 22, 0, 0, 0, time.UTC), *alert.ExpirationTime)

		require.Len(t, alert.Polygon, 1)
		require.Len(t, alert.Polygon[0], 4)
		assert.Equal(t, LatLon{41.05, -81.45}, alert.Polygon[0][0])
	})

	t.Run("threat parameters override weaker text values", func(t *testing.T) {
		f := baseFeature()
		f.Properties.Description = "GUSTS UP TO 40 MPH ARE POSSIBLE."
		f.Properties.Parameters["maxWindGust"] = []any{"60 MPH"}
		f.Properties.Parameters["maxHailSize"] = []any{"1.75"}
		f.Properties.Parameters["tornadoDetection"] = []any{"Radar Indicated"}

		alert, err := p.ParseAPIAlert(f, "api")
		require.NoError(t, err)

		require.NotNil(t, alert.Threat.MaxWindGustMPH)
		assert.Equal(t, 60, *alert.Threat.MaxWindGustMPH)
		require.NotNil(t, alert.Threat.MaxHailSizeInches)
		assert.Equal(t, 1.75, *alert.Threat.MaxHailSizeInches)
		require.NotNil(t, alert.Threat.TornadoDetection)
		assert.Equal(t, "RADAR INDICATED", *alert.Threat.TornadoDetection)
	})

	t.Run("cancellation action sets status", func(t *testing.T) {
		f := baseFeature()
		f.Properties.Parameters["VTEC"] = []any{"/O.CAN.KCLE.SV.W.0101.000000T0000Z-250615T2200Z/"}

		alert, err := p.ParseAPIAlert(f, "api")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, alert.Status)
		assert.Equal(t, "SV.CLE.0101", alert.ProductID)
	})

	t.Run("zone URLs recover UGC when geocode is empty", func(t *testing.T) {
		f := baseFeature()
		f.Properties.Geocode = APIGeocode{}
		f.Properties.AffectedZones = []string{
			"https://api.weather.gov/zones/forecast/OHZ089",
			"https://api.weather.gov/zones/county/OHC049",
		}

		alert, err := p.ParseAPIAlert(f, "api")
		require.NoError(t, err)
		assert.Equal(t, []string{"OHC049", "OHZ089"}, alert.AffectedAreas)
	})

	t.Run("out of area feature rejected", func(t *testing.T) {
		f := baseFeature()
		f.Properties.Geocode = APIGeocode{UGC: []string{"PAC003"}}
		f.Properties.AffectedZones = nil
		f.Properties.Parameters["VTEC"] = []any{"/O.NEW.KPBZ.SV.W.0055.250615T2100Z-250615T2200Z/"}

		_, err := p.ParseAPIAlert(f, "api")
		assert.ErrorIs(t, err, ErrStateFiltered)
	})

	t.Run("sps feature without VTEC gets adhoc id", func(t *testing.T) {
		f := baseFeature()
		f.Properties.Event = "Special Weather Statement"
		f.Properties.Description = "Strong thunderstorms with gusty winds will affect the area."
		f.Properties.Parameters = nil
		f.Properties.Ends = ""

		alert, err := p.ParseAPIAlert(f, "api")
		require.NoError(t, err)

		assert.Equal(t, "SPS", alert.Phenomenon)
		assert.Contains(t, alert.ProductID, "SPS.adhoc.202506152100.")
	})
}

func TestGenerateSPSID(t *testing.T) {
	issued := time.Date(2025, 1, 20, 20, 39, 0, 0, time.UTC)

	t.Run("order independent", func(t *testing.T) {
		a := GenerateSPSID([]string{"OHZ089", "OHZ088"}, issued)
		b := GenerateSPSID([]string{"OHZ088", "OHZ089"}, issued)
		assert.Equal(t, a, b)
	})

	t.Run("different areas differ", func(t *testing.T) {
		a := GenerateSPSID([]string{"OHZ089"}, issued)
		b := GenerateSPSID([]string{"OHZ088"}, issued)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty areas yield no id", func(t *testing.T) {
		assert.Empty(t, GenerateSPSID(nil, issued))
	})
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThreatTornado(t *testing.T) {
	t.Run("radar indicated", func(t *testing.T) {
		threat := ParseThreat("HAZARD...TORNADO.\n\nTORNADO...RADAR INDICATED.", false)
		require.NotNil(t, threat.TornadoDetection)
		assert.Equal(t, "RADAR INDICATED", *threat.TornadoDetection)
		assert.True(t, threat.HasTornado())
	})

	t.Run("observed with damage threat", func(t *testing.T) {
		text := "TORNADO...OBSERVED.\nTORNADO DAMAGE THREAT...CONSIDERABLE."
		threat := ParseThreat(text, false)

		require.NotNil(t, threat.TornadoDetection)
		assert.Equal(t, "OBSERVED", *threat.TornadoDetection)
		require.NotNil(t, threat.TornadoDamage)
		assert.Equal(t, "CONSIDERABLE", *threat.TornadoDamage)
		assert.True(t, threat.IsPDS())
	})

	t.Run("absent", func(t *testing.T) {
		threat := ParseThreat("SEVERE THUNDERSTORM WARNING", false)
		assert.Nil(t, threat.TornadoDetection)
		assert.False(t, threat.HasTornado())
		assert.False(t, threat.IsPDS())
	})
}

func TestParseThreatWind(t *testing.T) {
	t.Run("max wind gust tag", func(t *testing.T) {
		threat := ParseThreat("MAX WIND GUST...70 MPH", false)
		require.NotNil(t, threat.MaxWindGustMPH)
		assert.Equal(t, 70, *threat.MaxWindGustMPH)
		assert.Equal(t, 61, *threat.MaxWindGustKts)
	})

	t.Run("knots convert to mph", func(t *testing.T) {
		threat := ParseThreat("GUSTS UP TO 60 KT", false)
		require.NotNil(t, threat.MaxWindGustMPH)
		assert.Equal(t, 69, *threat.MaxWindGustMPH)
		assert.Equal(t, 60, *threat.MaxWindGustKts)
	})

	t.Run("maximum wins over several mentions", func(t *testing.T) {
		text := "GUSTS UP TO 50 MPH EXPECTED. ISOLATED GUSTS TO 70 MPH POSSIBLE."
		threat := ParseThreat(text, false)

		require.NotNil(t, threat.MaxWindGustMPH)
		assert.Equal(t, 70, *threat.MaxWindGustMPH)
	})

	t.Run("sustained wind phrase is not a gust", func(t *testing.T) {
		text := "WINDS 25 TO 35 MPH WITH GUSTS UP TO 60 MPH."
		threat := ParseThreat(text, false)

		require.NotNil(t, threat.MaxWindGustMPH)
		assert.Equal(t, 60, *threat.MaxWindGustMPH)
	})

	t.Run("destructive damage threat", func(t *testing.T) {
		threat := ParseThreat("WIND DAMAGE THREAT...DESTRUCTIVE", false)
		require.NotNil(t, threat.WindDamage)
		assert.Equal(t, "DESTRUCTIVE", *threat.WindDamage)
		assert.True(t, threat.IsPDS())
	})

	t.Run("out of range rejected", func(t *testing.T) {
		threat := ParseThreat("GUSTS UP TO 900 MPH", false)
		assert.Nil(t, threat.MaxWindGustMPH)
	})
}

func TestParseThreatHail(t *testing.T) {
	t.Run("numeric tag", func(t *testing.T) {
		threat := ParseThreat("MAX HAIL SIZE...1.75 IN", false)
		require.NotNil(t, threat.MaxHailSizeInches)
		assert.Equal(t, 1.75, *threat.MaxHailSizeInches)
	})

	t.Run("descriptor", func(t *testing.T) {
		threat := ParseThreat("GOLF BALL SIZE HAIL IS POSSIBLE", false)
		require.NotNil(t, threat.MaxHailSizeInches)
		assert.Equal(t, 1.75, *threat.MaxHailSizeInches)
	})

	t.Run("out of range rejected", func(t *testing.T) {
		threat := ParseThreat("MAX HAIL SIZE...9.00 IN", false)
		assert.Nil(t, threat.MaxHailSizeInches)
	})
}

func TestParseThreatWinter(t *testing.T) {
	t.Run("snow range", func(t *testing.T) {
		threat := ParseThreat("SNOW ACCUMULATIONS OF 4 TO 8 INCHES.", false)
		require.NotNil(t, threat.SnowMinInches)
		assert.Equal(t, 4.0, *threat.SnowMinInches)
		assert.Equal(t, 8.0, *threat.SnowMaxInches)
	})

	t.Run("no snow context means no amount", func(t *testing.T) {
		threat := ParseThreat("RAINFALL AMOUNTS OF 4 TO 8 INCHES.", false)
		assert.Nil(t, threat.SnowMinInches)
	})

	t.Run("reversed range swaps", func(t *testing.T) {
		threat := ParseThreat("SNOW ACCUMULATIONS OF 8 TO 4 INCHES.", false)
		require.NotNil(t, threat.SnowMinInches)
		assert.Equal(t, 4.0, *threat.SnowMinInches)
		assert.Equal(t, 8.0, *threat.SnowMaxInches)
	})

	t.Run("ice takes upper bound", func(t *testing.T) {
		threat := ParseThreat("ICE ACCUMULATION...0.1 TO 0.25 INCH.", false)
		require.NotNil(t, threat.IceInches)
		assert.Equal(t, 0.25, *threat.IceInches)
	})
}

func TestParseStormMotion(t *testing.T) {
	t.Run("time mot loc line", func(t *testing.T) {
		threat := ParseThreat("TIME...MOT...LOC 1530Z 245DEG 35KT 4105 8145", false)
		m := threat.StormMotion

		require.NotNil(t, m)
		assert.True(t, m.IsValid())
		assert.Equal(t, 245, *m.DirectionDegrees)
		assert.Equal(t, 35, *m.SpeedKts)
		assert.Equal(t, 40, *m.SpeedMPH)
		assert.Equal(t, "WSW", *m.DirectionFrom)
	})

	t.Run("prose moving phrase", func(t *testing.T) {
		threat := ParseThreat("THIS STORM WAS MOVING NE AT 35 MPH.", false)
		m := threat.StormMotion

		require.NotNil(t, m)
		assert.Equal(t, 225, *m.DirectionDegrees) // moving toward NE, from SW
		assert.Equal(t, "SW", *m.DirectionFrom)
		assert.Equal(t, 35, *m.SpeedMPH)
		assert.Equal(t, 30, *m.SpeedKts)
	})

	t.Run("absent", func(t *testing.T) {
		threat := ParseThreat("NO MOTION INFORMATION", false)
		assert.Nil(t, threat.StormMotion)
	})
}

func TestUnitConversions(t *testing.T) {
	assert.Equal(t, 52, MPHToKts(60))
	assert.Equal(t, 69, KtsToMPH(60))
	assert.Equal(t, "N", DegreesToCardinal(0))
	assert.Equal(t, "S", DegreesToCardinal(180))
	assert.Equal(t, "WSW", DegreesToCardinal(245))
	assert.Equal(t, "N", DegreesToCardinal(355))
}

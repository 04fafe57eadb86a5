package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// cardinalToDegrees converts the cardinal a storm is moving TOWARD into the
// meteorological direction-of-motion bearing. A storm moving to the north
// comes from the south, hence N=180.
var cardinalToDegrees = map[string]int{
	"N": 180, "NNE": 202, "NE": 225, "ENE": 247,
	"E": 270, "ESE": 292, "SE": 315, "SSE": 337,
	"S": 0, "SSW": 22, "SW": 45, "WSW": 67,
	"W": 90, "WNW": 112, "NW": 135, "NNW": 157,
}

var oppositeCardinals = map[string]string{
	"N": "S", "NNE": "SSW", "NE": "SW", "ENE": "WSW",
	"E": "W", "ESE": "WNW", "SE": "NW", "SSE": "NNW",
	"S": "N", "SSW": "NNE", "SW": "NE", "WSW": "ENE",
	"W": "E", "WNW": "ESE", "NW": "SE", "NNW": "SSE",
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// MPHToKts converts miles per hour to knots, rounded to the nearest knot.
func MPHToKts(mph int) int {
	return int(math.Round(float64(mph) * 0.868976))
}

// KtsToMPH converts knots to miles per hour, rounded to the nearest mile.
func KtsToMPH(kts int) int {
	return int(math.Round(float64(kts) * 1.15078))
}

// DegreesToCardinal converts a direction-of-motion bearing to the compass
// point the storm is moving FROM.
func DegreesToCardinal(degrees int) string {
	degrees = ((degrees % 360) + 360) % 360
	idx := int(math.Round(float64(degrees)/22.5)) % 16
	return compassPoints[idx]
}

// ParseThreat extracts all hazard magnitudes from product text.
func ParseThreat(text string, isXML bool) Threat {
	var t Threat

	t.TornadoDetection = matchUpper(tornadoDetectionRe, text)
	t.TornadoDamage = matchUpper(tornadoDamageRe, text)

	t.MaxWindGustMPH, t.MaxWindGustKts = parseWindGust(text, isXML)
	t.WindDamage = matchUpper(windDamageRe, text)

	t.MaxHailSizeInches = parseHailSize(text, isXML)
	t.HailDamage = matchUpper(hailDamageRe, text)

	t.SnowMinInches, t.SnowMaxInches = parseSnowAmount(text)
	t.IceInches = parseIceAmount(text)

	t.FlashFloodDetection = matchUpper(floodDetectionRe, text)
	t.FlashFloodDamage = matchUpper(floodDamageRe, text)

	t.StormMotion = parseStormMotion(text)

	return t
}

// parseWindGust finds the maximum gust stated anywhere in the product. A
// product can mention several values ("gusts up to 50 mph ... isolated gusts
// to 70 mph"); the maximum wins. Values matched inside a sustained-wind
// phrase ("winds 25 to 35 mph") are not gusts and are skipped.
func parseWindGust(text string, isXML bool) (*int, *int) {
	if isXML {
		if m := windGustXMLRe.FindStringSubmatch(text); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				if strings.Contains(strings.ToLower(m[0]), "mph") {
					kts := MPHToKts(v)
					return &v, &kts
				}
				mph := KtsToMPH(v)
				return &mph, &v
			}
		}
	}

	sustainedSpans := sustainedWindRe.FindAllStringIndex(text, -1)

	var bestMPH, bestKts int
	found := false
	for _, loc := range windGustRe.FindAllStringSubmatchIndex(text, -1) {
		if withinAny(loc[0], loc[1], sustainedSpans) {
			continue
		}

		matchText := strings.ToUpper(text[loc[0]:loc[1]])
		valueStr := firstGroup(text, loc, 4)
		if valueStr == "" {
			continue
		}
		v, err := strconv.Atoi(valueStr)
		if err != nil {
			continue
		}
		if v < 10 || v > 300 {
			continue
		}

		var mph, kts int
		if strings.Contains(matchText, "KT") {
			kts = v
			mph = KtsToMPH(v)
		} else {
			mph = v
			kts = MPHToKts(v)
		}
		if !found || mph > bestMPH {
			bestMPH, bestKts = mph, kts
			found = true
		}
	}

	if !found {
		return nil, nil
	}
	return &bestMPH, &bestKts
}

// parseHailSize resolves a hail size in inches from a numeric statement or a
// descriptor like "GOLF BALL SIZE HAIL".
func parseHailSize(text string, isXML bool) *float64 {
	if isXML {
		if m := hailSizeXMLRe.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0.25 && v <= 6.0 {
				return &v
			}
		}
	}

	if m := hailSizeRe.FindStringSubmatch(text); m != nil {
		valueStr := m[1]
		if valueStr == "" {
			valueStr = m[2]
		}
		if v, err := strconv.ParseFloat(valueStr, 64); err == nil {
			if v >= 0.25 && v <= 6.0 {
				return &v
			}
		}
	}

	if m := hailDescRe.FindStringSubmatch(text); m != nil {
		desc := strings.ToUpper(m[1])
		if desc == "" {
			desc = strings.ToUpper(m[2])
		}
		if size, ok := hailDescriptorSizes[desc]; ok {
			return &size
		}
	}

	return nil
}

// parseSnowAmount extracts a snow accumulation range. Requires snow context
// in the text so "4 TO 8 INCHES" of something else does not register.
// Reversed ranges swap; values outside 0.1-60 inches are rejected.
func parseSnowAmount(text string) (*float64, *float64) {
	upper := strings.ToUpper(text)
	if !strings.Contains(upper, "SNOW") && !strings.Contains(upper, "ACCUMULATION") {
		return nil, nil
	}

	m := snowAmountRe.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}

	minStr, maxStr := firstPair(m[1:])
	if minStr == "" {
		return nil, nil
	}
	minVal, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		return nil, nil
	}
	maxVal := minVal
	if maxStr != "" {
		if v, err := strconv.ParseFloat(maxStr, 64); err == nil {
			maxVal = v
		}
	}

	if minVal > maxVal {
		minVal, maxVal = maxVal, minVal
	}
	if minVal < 0.1 || minVal > 60 || maxVal < 0.1 || maxVal > 60 {
		return nil, nil
	}
	return &minVal, &maxVal
}

// firstPair walks the alternation groups pairwise and returns the first
// populated (min, max) pair; the single-value alternative has no max.
func firstPair(groups []string) (string, string) {
	for i := 0; i+1 < len(groups); i += 2 {
		if groups[i] != "" {
			return groups[i], groups[i+1]
		}
	}
	if len(groups) > 0 && groups[len(groups)-1] != "" {
		return groups[len(groups)-1], ""
	}
	return "", ""
}

// parseIceAmount extracts ice accretion; the upper bound of a range wins.
func parseIceAmount(text string) *float64 {
	m := iceAmountRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	valueStr := m[1]
	if m[2] != "" {
		valueStr = m[2]
	}
	v, err := strconv.ParseFloat(valueStr, 64)
	if err != nil || v < 0.01 || v > 3.0 {
		return nil
	}
	return &v
}

// parseStormMotion reads the TIME...MOT...LOC line, falling back to the prose
// "MOVING NE AT 35 MPH" form.
func parseStormMotion(text string) *StormMotion {
	if m := motionTextRe.FindStringSubmatch(text); m != nil {
		deg, err1 := strconv.Atoi(m[1])
		kts, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			mph := KtsToMPH(kts)
			from := DegreesToCardinal(deg)
			return &StormMotion{
				DirectionDegrees: &deg,
				DirectionFrom:    &from,
				SpeedMPH:         &mph,
				SpeedKts:         &kts,
			}
		}
	}

	if m := motionAltRe.FindStringSubmatch(text); m != nil {
		cardinal := strings.ToUpper(m[1])
		speed, err := strconv.Atoi(m[2])
		if err != nil {
			return nil
		}
		deg, ok := cardinalToDegrees[cardinal]
		if !ok {
			return nil
		}

		from := oppositeCardinals[cardinal]
		var mph, kts int
		if strings.Contains(strings.ToUpper(m[0]), "KT") {
			kts = speed
			mph = KtsToMPH(speed)
		} else {
			mph = speed
			kts = MPHToKts(speed)
		}
		return &StormMotion{
			DirectionDegrees: &deg,
			DirectionFrom:    &from,
			SpeedMPH:         &mph,
			SpeedKts:         &kts,
		}
	}

	return nil
}

// matchUpper returns the first capture group uppercased, or nil on no match.
func matchUpper(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.ToUpper(m[1])
	return &v
}

// firstGroup returns the first non-empty capture of n groups from submatch
// indexes.
func firstGroup(text string, loc []int, n int) string {
	for i := 1; i <= n; i++ {
		start, end := loc[2*i], loc[2*i+1]
		if start >= 0 && end > start {
			return text[start:end]
		}
	}
	return ""
}

// withinAny reports whether [start,end) overlaps any of the given spans.
func withinAny(start, end int, spans [][]int) bool {
	for _, span := range spans {
		if start < span[1] && end > span[0] {
			return true
		}
	}
	return false
}

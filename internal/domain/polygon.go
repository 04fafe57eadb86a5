package domain

import (
	"strconv"
	"strings"
)

// ParseTextPolygon decodes the LAT...LON block of a text product. Values are
// packed hundredths of degrees ("4105 8145" is 41.05N 81.45W); longitudes are
// western hemisphere and negated. Vertices outside continental US bounds are
// dropped, and a ring of three or more vertices is closed.
func ParseTextPolygon(text string) Ring {
	m := polygonTextRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	values := coordValueRe.FindAllString(m[1], -1)
	if len(values) < 2 || len(values)%2 != 0 {
		return nil
	}

	var ring Ring
	for i := 0; i+1 < len(values); i += 2 {
		latRaw, err1 := strconv.ParseFloat(values[i], 64)
		lonRaw, err2 := strconv.ParseFloat(values[i+1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		lat := latRaw / 100.0
		lon := -lonRaw / 100.0
		if lat < 20 || lat > 60 || lon < -130 || lon > -60 {
			continue
		}
		ring = append(ring, LatLon{lat, lon})
	}

	return closeRing(ring)
}

// ParseXMLPolygon decodes a CAP <polygon> list of "lat,lon" pairs.
func ParseXMLPolygon(text string) Ring {
	m := polygonXMLRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var ring Ring
	for _, pair := range strings.Fields(strings.TrimSpace(m[1])) {
		parts := strings.SplitN(pair, ",", 2)
		if len(parts) != 2 {
			continue
		}
		lat, err1 := strconv.ParseFloat(parts[0], 64)
		lon, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			continue
		}
		ring = append(ring, LatLon{lat, lon})
	}

	return closeRing(ring)
}

// GeoJSONGeometry is the geometry member of a GeoJSON feature. Coordinates
// stay raw because Polygon and MultiPolygon nest differently.
type GeoJSONGeometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// RingFromGeoJSON extracts the outer ring of a GeoJSON Polygon, or the first
// polygon's outer ring of a MultiPolygon, reordered to [lat, lon].
func RingFromGeoJSON(geom *GeoJSONGeometry) Ring {
	rings := RingsFromGeoJSON(geom)
	if len(rings) == 0 {
		return nil
	}
	return rings[0]
}

// RingsFromGeoJSON extracts the outer ring of a GeoJSON Polygon, or the outer
// ring of every polygon in a MultiPolygon, reordered to [lat, lon].
func RingsFromGeoJSON(geom *GeoJSONGeometry) []Ring {
	if geom == nil {
		return nil
	}

	switch geom.Type {
	case "Polygon":
		rings, ok := geom.Coordinates.([]any)
		if !ok || len(rings) == 0 {
			return nil
		}
		if outer := ringFromPositions(rings[0]); outer != nil {
			return []Ring{outer}
		}
	case "MultiPolygon":
		polys, ok := geom.Coordinates.([]any)
		if !ok {
			return nil
		}
		var out []Ring
		for _, polyAny := range polys {
			rings, ok := polyAny.([]any)
			if !ok || len(rings) == 0 {
				continue
			}
			if outer := ringFromPositions(rings[0]); outer != nil {
				out = append(out, outer)
			}
		}
		return out
	}
	return nil
}

// ringFromPositions converts a GeoJSON [lon, lat] position list to a Ring.
func ringFromPositions(positions any) Ring {
	list, ok := positions.([]any)
	if !ok {
		return nil
	}
	var ring Ring
	for _, posAny := range list {
		pos, ok := posAny.([]any)
		if !ok || len(pos) < 2 {
			continue
		}
		lon, ok1 := toFloat(pos[0])
		lat, ok2 := toFloat(pos[1])
		if !ok1 || !ok2 {
			continue
		}
		ring = append(ring, LatLon{lat, lon})
	}
	return ring
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// closeRing appends the first vertex when a ring of 3+ vertices is open.
func closeRing(ring Ring) Ring {
	if len(ring) < 3 {
		return ring
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// Centroid returns the vertex average across all rings, or nil when there
// are no vertices.
func Centroid(rings []Ring) *LatLon {
	var latSum, lonSum float64
	var n int
	for _, ring := range rings {
		for _, p := range ring {
			latSum += p[0]
			lonSum += p[1]
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return &LatLon{latSum / float64(n), lonSum / float64(n)}
}

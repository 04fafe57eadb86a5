// Package domain models and decodes National Weather Service (NWS) warning
// products from the public REST API and the NWWS-OI raw text feed.
//
// # VTEC
//
// Valid Time Event Code, the machine-readable line in most warning products:
//
//	/O.NEW.KCLE.TO.W.0045.250120T1530Z-250120T1630Z/
//	 |  |   |    |  |  |    begin time    end time
//	 |  |   |    |  |  event tracking number (ETN)
//	 |  |   |    |  significance: W warning, A watch, Y advisory, S statement
//	 |  |   |    phenomenon: TO tornado, SV severe tstorm, FF flash flood, ...
//	 |  |   issuing office (ICAO, "K" prefix for CONUS)
//	 |  action: NEW, CON, EXT, EXA, EXB, UPG, CAN, EXP, COR, ROU
//	 product class: O operational, T test, E experimental, X extreme
//
// Timestamps starting "0000" mean "until further notice" and decode to nil.
// Flood products carry a second H-VTEC line with a gauge id, severity,
// immediate cause, and crest time.
//
// # Product Identity
//
// Successive products for the same event must merge, so identity is derived
// rather than taken from a message id:
//
//	Warnings/advisories: {phenomenon}.{office}.{etn}    "TO.CLE.0045"
//	Watches:             {phenomenon}A.{etn}            "TOA.0123"
//	SPS (no VTEC):       SPS.adhoc.{yyyymmddhhmm}.{hash8 of sorted UGC}
//
// Watch ETNs are assigned centrally by the Storm Prediction Center and shared
// across offices, so the office is omitted and per-office watch segments
// collapse into one alert. See [BuildProductID] and [GenerateSPSID].
//
// # UGC
//
// Universal Geographic Code block, the affected-area header of text products:
//
//	OHC049-041-061>065-201530-
//
// "OHC049" is Franklin County OH (state + C county / Z zone + number); bare
// numbers reuse the previous prefix; "061>065" is an inclusive range; the
// trailing DDHHMM is the product expiration in UTC, resolved against the
// current month with rollover.
//
// # Threat Tags
//
// Impact-based warnings carry structured tags near the bottom of the product
// ("TORNADO...RADAR INDICATED", "MAX HAIL SIZE...1.75 IN",
// "THUNDERSTORM DAMAGE THREAT...CONSIDERABLE"), plus a storm motion line
// ("TIME...MOT...LOC 1530Z 245DEG 35KT"). [ParseThreat] extracts these; when a
// product states several wind gusts the maximum wins, ignoring values that are
// part of a sustained-wind phrase.
//
// # Polygons
//
// Text products encode the warning polygon as packed hundredths of degrees:
//
//	LAT...LON 4105 8145 4110 8130 4095 8125
//
// "4105 8145" is 41.05N 81.45W; longitudes are western hemisphere and negated.
// CAP XML uses "lat,lon" pairs and GeoJSON uses [lon, lat]; all decode to a
// closed [Ring] of [latitude, longitude] vertices.
package domain

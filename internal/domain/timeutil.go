package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timezoneOffsets maps the abbreviations found in product text to fixed UTC
// offsets in hours. NWS products are US-focused, so ambiguous abbreviations
// (CST, SST) resolve to their US meanings. Bare "ET"/"CT"/etc assume standard
// time.
var timezoneOffsets = map[string]int{
	"EST": -5, "EDT": -4, "ET": -5,
	"CST": -6, "CDT": -5, "CT": -6,
	"MST": -7, "MDT": -6, "MT": -7,
	"PST": -8, "PDT": -7, "PT": -8,
	"AKST": -9, "AKDT": -8, "AKT": -9,
	"HST": -10, "HDT": -9, "HAST": -10, "HADT": -9,
	"AST": -4, "ADT": -3,
	"CHST": 10,
	"SST":  -11,
	"UTC":  0, "GMT": 0, "Z": 0,
}

// wfoTimezones maps forecast office codes to IANA zone names so local times
// in products can be anchored when no abbreviation is given.
var wfoTimezones = map[string]string{
	// Eastern
	"CLE": "America/New_York", "ILN": "America/New_York", "PBZ": "America/New_York",
	"RLX": "America/New_York", "BUF": "America/New_York", "BGM": "America/New_York",
	"ALY": "America/New_York", "OKX": "America/New_York", "PHI": "America/New_York",
	"LWX": "America/New_York", "RNK": "America/New_York", "AKQ": "America/New_York",
	"MHX": "America/New_York", "RAH": "America/New_York", "ILM": "America/New_York",
	"CAE": "America/New_York", "CHS": "America/New_York", "GSP": "America/New_York",
	"FFC": "America/New_York", "JAX": "America/New_York", "MLB": "America/New_York",
	"MFL": "America/New_York", "TBW": "America/New_York", "TAE": "America/New_York",
	"CAR": "America/New_York", "GYX": "America/New_York", "BOX": "America/New_York",
	"MRX": "America/New_York", "LMK": "America/New_York", "JKL": "America/New_York",

	// Central
	"HUN": "America/Chicago", "BMX": "America/Chicago", "MOB": "America/Chicago",
	"JAN": "America/Chicago", "MEG": "America/Chicago", "OHX": "America/Chicago",
	"PAH": "America/Chicago", "LOT": "America/Chicago", "ILX": "America/Chicago",
	"DVN": "America/Chicago", "DMX": "America/Chicago", "ARX": "America/Chicago",
	"MKX": "America/Chicago", "GRB": "America/Chicago", "MPX": "America/Chicago",
	"DLH": "America/Chicago", "FGF": "America/Chicago", "BIS": "America/Chicago",
	"ABR": "America/Chicago", "FSD": "America/Chicago", "OAX": "America/Chicago",
	"GID": "America/Chicago", "LBF": "America/Chicago", "TOP": "America/Chicago",
	"ICT": "America/Chicago", "DDC": "America/Chicago", "GLD": "America/Chicago",
	"OUN": "America/Chicago", "TSA": "America/Chicago", "SHV": "America/Chicago",
	"LCH": "America/Chicago", "LIX": "America/Chicago", "FWD": "America/Chicago",
	"EWX": "America/Chicago", "HGX": "America/Chicago", "CRP": "America/Chicago",
	"BRO": "America/Chicago", "SJT": "America/Chicago", "MAF": "America/Chicago",
	"LUB": "America/Chicago", "AMA": "America/Chicago", "SGF": "America/Chicago",
	"LSX": "America/Chicago", "EAX": "America/Chicago", "LZK": "America/Chicago",

	// Indiana keeps its own zone database entries.
	"IWX": "America/Indiana/Indianapolis", "IND": "America/Indiana/Indianapolis",

	// Mountain
	"UNR": "America/Denver", "CYS": "America/Denver", "BOU": "America/Denver",
	"GJT": "America/Denver", "PUB": "America/Denver", "ABQ": "America/Denver",
	"EPZ": "America/Denver", "SLC": "America/Denver", "RIW": "America/Denver",
	"BYZ": "America/Denver", "TFX": "America/Denver", "MSO": "America/Denver",
	"GGW": "America/Denver",
	"PHX": "America/Phoenix", "FGZ": "America/Phoenix", "TWC": "America/Phoenix",
	"PIH": "America/Boise", "BOI": "America/Boise",

	// Pacific
	"LKN": "America/Los_Angeles", "VEF": "America/Los_Angeles", "REV": "America/Los_Angeles",
	"SEW": "America/Los_Angeles", "OTX": "America/Los_Angeles", "PDT": "America/Los_Angeles",
	"PQR": "America/Los_Angeles", "MFR": "America/Los_Angeles", "EKA": "America/Los_Angeles",
	"STO": "America/Los_Angeles", "MTR": "America/Los_Angeles", "HNX": "America/Los_Angeles",
	"LOX": "America/Los_Angeles", "SGX": "America/Los_Angeles",

	// Alaska and Pacific territories
	"AFC": "America/Anchorage", "AFG": "America/Anchorage", "AJK": "America/Juneau",
	"HFO": "Pacific/Honolulu", "GUM": "Pacific/Guam", "PPG": "Pacific/Pago_Pago",
	"SJU": "America/Puerto_Rico",
}

// LocationForAbbrev resolves a timezone abbreviation to a fixed-offset
// location. The second return is false for unrecognized abbreviations; the
// caller decides the fallback rather than silently assuming UTC.
func LocationForAbbrev(abbrev string) (*time.Location, bool) {
	key := strings.ToUpper(strings.TrimSpace(abbrev))
	if key == "" {
		return nil, false
	}
	offset, ok := timezoneOffsets[key]
	if !ok {
		return nil, false
	}
	if offset == 0 {
		return time.UTC, true
	}
	return time.FixedZone(key, offset*3600), true
}

// LocationForWFO resolves a forecast office code ("CLE" or "KCLE") to its
// IANA timezone.
func LocationForWFO(office string) (*time.Location, bool) {
	code := strings.ToUpper(strings.TrimSpace(office))
	if len(code) == 4 && code[0] == 'K' {
		code = code[1:]
	}
	name, ok := wfoTimezones[code]
	if !ok {
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// ParseVTECTimestamp decodes a VTEC timestamp (yymmddThhnnZ). The all-zeros
// form means "undefined" and returns (nil, nil). Years before 1971 are
// rejected; they show up in malformed products.
func ParseVTECTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0000") {
		return nil, nil
	}

	clean := strings.TrimSpace(strings.TrimSuffix(s, "Z"))
	if len(clean) != 11 || clean[6] != 'T' {
		return nil, fmt.Errorf("invalid VTEC timestamp %q", s)
	}

	yy, err1 := strconv.Atoi(clean[0:2])
	mm, err2 := strconv.Atoi(clean[2:4])
	dd, err3 := strconv.Atoi(clean[4:6])
	hh, err4 := strconv.Atoi(clean[7:9])
	nn, err5 := strconv.Atoi(clean[9:11])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return nil, fmt.Errorf("invalid VTEC timestamp %q", s)
	}

	year := 2000 + yy
	if yy >= 70 {
		year = 1900 + yy
	}

	if mm < 1 || mm > 12 {
		return nil, fmt.Errorf("invalid month %d in VTEC timestamp %q", mm, s)
	}
	if dd < 1 || dd > 31 {
		return nil, fmt.Errorf("invalid day %d in VTEC timestamp %q", dd, s)
	}
	if hh > 23 {
		return nil, fmt.Errorf("invalid hour %d in VTEC timestamp %q", hh, s)
	}
	if nn > 59 {
		return nil, fmt.Errorf("invalid minute %d in VTEC timestamp %q", nn, s)
	}
	if year < 1971 {
		return nil, fmt.Errorf("VTEC timestamp year %d predates the product era", year)
	}

	t := time.Date(year, time.Month(mm), dd, hh, nn, 0, 0, time.UTC)
	return &t, nil
}

// isoLayouts are the timestamp shapes seen in CAP XML and the REST API.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
}

// ParseISOTimestamp parses an ISO 8601 timestamp. Timestamps without zone
// information are assumed UTC.
func ParseISOTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Location() == time.Local {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		}
		utc := t.UTC()
		return &utc
	}
	return nil
}

var monthsByName = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// ParseIssuedLine extracts the issuance time from a raw product, e.g.
// "339 PM CDT Mon Aug 8 2022". Unrecognized timezone abbreviations fall
// back to UTC.
func ParseIssuedLine(text string) *time.Time {
	m := issuedTimeLineRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	hour, minute, ok := splitClockDigits(m[1])
	if !ok {
		return nil
	}
	hour = to24Hour(hour, m[2])

	month, ok := monthsByName[strings.ToUpper(m[5])]
	if !ok {
		return nil
	}
	day, err1 := strconv.Atoi(m[6])
	year, err2 := strconv.Atoi(m[7])
	if err1 != nil || err2 != nil || day < 1 || day > 31 {
		return nil
	}

	loc, ok := LocationForAbbrev(m[3])
	if !ok {
		loc = time.UTC
	}

	t := time.Date(year, month, day, hour, minute, 0, 0, loc).UTC()
	return &t
}

// ParseTextTime resolves a clock time like "530 PM EST" against the current
// date. A result already in the past rolls forward one day, since expiration
// phrases always point ahead of issuance.
func ParseTextTime(timeStr, amPM, tzAbbrev string) *time.Time {
	hour, minute, ok := splitClockDigits(timeStr)
	if !ok {
		return nil
	}

	if amPM != "" {
		if hour < 1 || hour > 12 {
			return nil
		}
		hour = to24Hour(hour, amPM)
	} else if hour > 23 {
		return nil
	}
	if minute > 59 {
		return nil
	}

	loc := time.UTC
	if tzAbbrev != "" {
		if l, ok := LocationForAbbrev(tzAbbrev); ok {
			loc = l
		}
	}

	now := clock.Now().In(loc)
	result := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	if result.Before(now) {
		result = result.AddDate(0, 0, 1)
	}
	utc := result.UTC()
	return &utc
}

// splitClockDigits splits "530" or "1145" into hour and minute.
func splitClockDigits(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	for len(s) < 4 {
		s = "0" + s
	}
	if len(s) > 4 {
		s = s[:4]
	}
	h, err1 := strconv.Atoi(s[:2])
	m, err2 := strconv.Atoi(s[2:])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return h, m, true
}

// to24Hour applies an AM/PM marker to a 12-hour clock value.
func to24Hour(hour int, amPM string) int {
	switch strings.ToUpper(amPM) {
	case "PM":
		if hour != 12 {
			return hour + 12
		}
	case "AM":
		if hour == 12 {
			return 0
		}
	}
	return hour
}

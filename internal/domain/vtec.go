package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// VTECResult is the outcome of decoding a VTEC string, including the
// non-fatal validation warnings a product carried.
type VTECResult struct {
	Info     *VTECInfo
	Raw      string
	Warnings []string
	Errors   []string
}

// Valid reports whether a usable VTECInfo was decoded.
func (r *VTECResult) Valid() bool {
	return r.Info != nil
}

var validActions = map[string]struct{}{
	"NEW": {}, "CON": {}, "EXT": {}, "EXA": {}, "EXB": {},
	"UPG": {}, "CAN": {}, "EXP": {}, "COR": {}, "ROU": {},
}

var validSignificance = map[string]struct{}{
	"W": {}, "A": {}, "Y": {}, "S": {}, "O": {}, "N": {}, "F": {},
}

// ParseVTEC decodes the first P-VTEC string found in text. Structural
// problems (bad action, significance, ETN) are errors; unusual-but-usable
// values (unknown phenomenon, out-of-range ETN, unparseable timestamps)
// become warnings on an otherwise valid result.
func ParseVTEC(text string) VTECResult {
	var result VTECResult

	simple := vtecSimpleRe.FindStringSubmatch(text)
	if simple == nil {
		result.Errors = append(result.Errors, "no VTEC string found in text")
		return result
	}
	result.Raw = simple[1]

	m := vtecRe.FindStringSubmatch(text)
	if m == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("VTEC string %q does not match expected format", result.Raw))
		return result
	}

	productClass, action, office, phenomenon, significance := m[1], m[2], m[3], m[4], m[5]
	etnStr, beginStr, endStr := m[6], m[7], m[8]

	if _, ok := validActions[action]; !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("invalid action code %q", action))
		return result
	}
	if _, ok := validSignificance[significance]; !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("invalid significance %q", significance))
		return result
	}
	if !IsKnownPhenomenon(phenomenon) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unknown phenomenon code %q", phenomenon))
	}

	etn, err := strconv.Atoi(etnStr)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("invalid ETN %q", etnStr))
		return result
	}
	if etn < 1 || etn > 9999 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("ETN %d outside typical range (1-9999)", etn))
	}

	begin, err := ParseVTECTimestamp(beginStr)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not parse begin time %q: %v", beginStr, err))
	}
	end, err := ParseVTECTimestamp(endStr)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not parse end time %q: %v", endStr, err))
	}

	result.Info = &VTECInfo{
		ProductClass:        productClass,
		Action:              Action(action),
		Office:              office,
		Phenomenon:          phenomenon,
		Significance:        Significance(significance),
		EventTrackingNumber: etn,
		BeginTime:           begin,
		EndTime:             end,
		Raw:                 result.Raw,
	}
	return result
}

// ParseAllVTEC decodes every VTEC string in a product. Upgrade products carry
// two (UPG for the old event, NEW for the replacement).
func ParseAllVTEC(text string) []VTECResult {
	var results []VTECResult
	for _, loc := range vtecRe.FindAllStringIndex(text, -1) {
		results = append(results, ParseVTEC(text[loc[0]:loc[1]]))
	}
	return results
}

// BuildProductID derives the stable identity used to merge successive
// products for the same event.
//
// Warnings and advisories: {phenomenon}.{office}.{etn} with the ICAO "K"
// stripped, e.g. "TO.CLE.0045". Watches: {phenomenon}A.{etn} with no office.
// Watch ETNs are assigned by SPC and shared by every office relaying the
// watch, so omitting the office lets per-office segments merge into one.
func BuildProductID(v *VTECInfo) string {
	if v.Significance == SignificanceWatch {
		return fmt.Sprintf("%sA.%04d", v.Phenomenon, v.EventTrackingNumber)
	}

	office := v.Office
	if len(office) == 4 && strings.HasPrefix(office, "K") {
		office = office[1:]
	}
	return fmt.Sprintf("%s.%s.%04d", v.Phenomenon, office, v.EventTrackingNumber)
}

// HVTEC severity, cause, and record flag descriptions, per NWSI 10-1703.
var (
	hvtecSeverities = map[string]string{
		"0": "None", "1": "Minor", "2": "Moderate", "3": "Major",
		"N": "None", "U": "Unknown",
	}

	hvtecCauses = map[string]string{
		"ER": "Excessive Rainfall",
		"SM": "Snowmelt",
		"RS": "Rain and Snowmelt",
		"DM": "Dam or Levee Failure",
		"IJ": "Ice Jam",
		"GO": "Glacier-Dammed Lake Outburst",
		"IC": "Rain and/or Snowmelt and/or Ice Jam",
		"FS": "Upstream Flooding plus Storm Surge",
		"FT": "Upstream Flooding plus Tidal Effects",
		"ET": "Elevated Upstream Flow plus Tidal Effects",
		"WT": "Wind and/or Tidal Effects",
		"DR": "Upstream Dam or Reservoir Release",
		"MC": "Multiple Causes",
		"OT": "Other Effects",
		"UU": "Unknown",
	}

	hvtecRecords = map[string]string{
		"NO": "A record flood is not expected",
		"NR": "Near record or record flood expected",
		"UU": "Flood without a period of record to compare",
		"OO": "For areal flood warnings, areal flash flood products, and flood advisories",
	}
)

// HVTECSeverityName returns the description for an H-VTEC severity code.
func HVTECSeverityName(code string) string {
	if name, ok := hvtecSeverities[code]; ok {
		return name
	}
	return "Unknown (" + code + ")"
}

// HVTECCauseName returns the description for an H-VTEC immediate cause code.
func HVTECCauseName(code string) string {
	if name, ok := hvtecCauses[code]; ok {
		return name
	}
	return "Unknown (" + code + ")"
}

// HVTECRecordName returns the description for an H-VTEC flood record code.
func HVTECRecordName(code string) string {
	if name, ok := hvtecRecords[code]; ok {
		return name
	}
	return "Unknown (" + code + ")"
}

// ParseHVTEC decodes the hydrologic VTEC line when present. Returns nil when
// the product has none.
func ParseHVTEC(text string) *HVTECInfo {
	m := hvtecRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	begin, _ := ParseVTECTimestamp(m[4])
	crest, _ := ParseVTECTimestamp(m[5])
	end, _ := ParseVTECTimestamp(m[6])

	return &HVTECInfo{
		NWSLI:      m[1],
		Severity:   m[2],
		Cause:      m[3],
		BeginTime:  begin,
		CrestTime:  crest,
		EndTime:    end,
		RecordFlag: m[7],
		Raw:        m[0],
	}
}

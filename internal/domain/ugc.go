package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// stateFIPS maps state abbreviations to their 2-digit FIPS prefixes.
var stateFIPS = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
	"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
	"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
	"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
	"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
	"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
	"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
	"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
	"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
	"WY": "56", "AS": "60", "GU": "66", "MP": "69", "PR": "72",
	"VI": "78",
}

// UGCData is the decoded geographic scope of a product.
type UGCData struct {
	Codes          []string // full UGC codes like "OHC049", deduplicated and sorted
	FIPSCodes      []string // 5-digit FIPS, county codes only
	States         []string
	ExpirationTime *time.Time
	RawBlock       string
	Warnings       []string
}

// Valid reports whether at least one code was decoded.
func (d *UGCData) Valid() bool {
	return len(d.Codes) > 0
}

var (
	ugcLineStartRe = regexp.MustCompile(`^[A-Z]{2}[CZ]\d{3}`)
	ugcPrefixRe    = regexp.MustCompile(`^([A-Z]{2}[CZ])(.*)$`)
	threeDigitRe   = regexp.MustCompile(`(\d{3})`)
)

// ParseUGC walks the product line by line collecting the UGC block. A block
// starts at a line like "OHC049-041-061>065-201530-" and may continue on
// bare digit/range lines; the trailing DDHHMM is the product expiration.
func ParseUGC(text string) UGCData {
	var result UGCData

	var codes []string
	var currentPrefix string
	inBlock := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case ugcLineStartRe.MatchString(line):
			inBlock = true
			result.RawBlock += line + "\n"

			lineCodes, prefix, exp, warns := parseUGCLine(line, currentPrefix)
			codes = append(codes, lineCodes...)
			result.Warnings = append(result.Warnings, warns...)
			if prefix != "" {
				currentPrefix = prefix
			}
			if exp != nil {
				result.ExpirationTime = exp
			}

		case inBlock && line != "" && !strings.HasPrefix(line, "."):
			if ugcContinuationRe.MatchString(line) {
				result.RawBlock += line + "\n"
				lineCodes, _, exp, warns := parseUGCLine(line, currentPrefix)
				codes = append(codes, lineCodes...)
				result.Warnings = append(result.Warnings, warns...)
				if exp != nil {
					result.ExpirationTime = exp
				}
			} else {
				inBlock = false
			}
		}
	}

	result.Codes = dedupSorted(codes)

	seenStates := map[string]struct{}{}
	for _, code := range result.Codes {
		if len(code) >= 2 {
			seenStates[code[:2]] = struct{}{}
		}
	}
	for state := range seenStates {
		result.States = append(result.States, state)
	}
	sort.Strings(result.States)

	result.FIPSCodes = UGCToFIPS(result.Codes)
	return result
}

// parseUGCLine decodes one UGC line, carrying the prefix from a prior line
// for continuations.
func parseUGCLine(line, currentPrefix string) (codes []string, newPrefix string, expiration *time.Time, warnings []string) {
	workingPrefix := currentPrefix

	line = strings.TrimRight(strings.TrimSpace(line), "-")

	// A continuation line may carry nothing but the DDHHMM stamp. Only a
	// fragment that decodes as a valid day/hour/minute is taken as the
	// expiration; anything else falls through as concatenated codes.
	if len(line) == 6 && isDigits(line) {
		if exp := parseUGCExpiration(line); exp != nil {
			return nil, "", exp, nil
		}
	}

	if m := ugcExpirationRe.FindStringSubmatchIndex(line + "-"); m != nil {
		expStr := (line + "-")[m[2]:m[3]]
		expiration = parseUGCExpiration(expStr)
		line = strings.TrimRight(line[:m[0]], "-")
	}

	for _, part := range strings.Split(line, "-") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if m := ugcPrefixRe.FindStringSubmatch(part); m != nil {
			workingPrefix = m[1]
			newPrefix = workingPrefix
			if m[2] != "" {
				codes = append(codes, expandUGCCodes(workingPrefix, m[2], &warnings)...)
			}
		} else if workingPrefix != "" {
			codes = append(codes, expandUGCCodes(workingPrefix, part, &warnings)...)
		} else if len(part) == 3 && isDigits(part) {
			warnings = append(warnings, fmt.Sprintf("UGC code %q has no prefix context", part))
		}
	}

	return codes, newPrefix, expiration, warnings
}

// expandUGCCodes turns a code fragment into full codes: "049" is one code,
// "049041" two concatenated codes, "061>065" a range. Reversed ranges swap.
func expandUGCCodes(prefix, codeStr string, warnings *[]string) []string {
	var codes []string

	if m := ugcRangeRe.FindStringSubmatchIndex(codeStr); m != nil {
		start, _ := strconv.Atoi(codeStr[m[2]:m[3]])
		end, _ := strconv.Atoi(codeStr[m[4]:m[5]])
		if start > end {
			*warnings = append(*warnings, fmt.Sprintf("UGC range start (%d) > end (%d), swapping", start, end))
			start, end = end, start
		}
		for i := start; i <= end; i++ {
			codes = append(codes, fmt.Sprintf("%s%03d", prefix, i))
		}

		if before := codeStr[:m[0]]; before != "" {
			codes = append(codes, expandUGCCodes(prefix, before, warnings)...)
		}
		if after := codeStr[m[1]:]; after != "" {
			codes = append(codes, expandUGCCodes(prefix, after, warnings)...)
		}
		return codes
	}

	for _, code := range threeDigitRe.FindAllString(codeStr, -1) {
		codes = append(codes, prefix+code)
	}
	return codes
}

// parseUGCExpiration resolves a DDHHMM stamp against the current month,
// rolling to the next month (and year) when the day has already passed.
func parseUGCExpiration(expStr string) *time.Time {
	if len(expStr) != 6 {
		return nil
	}

	day, err1 := strconv.Atoi(expStr[0:2])
	hour, err2 := strconv.Atoi(expStr[2:4])
	minute, err3 := strconv.Atoi(expStr[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	if day < 1 || day > 31 || hour > 23 || minute > 59 {
		return nil
	}

	now := clock.Now().UTC()
	exp := time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, time.UTC)
	if exp.Before(now) {
		if exp.Month() == time.December {
			exp = time.Date(exp.Year()+1, time.January, day, hour, minute, 0, 0, time.UTC)
		} else {
			exp = time.Date(exp.Year(), exp.Month()+1, day, hour, minute, 0, 0, time.UTC)
		}
	}
	return &exp
}

// UGCToFIPS converts county codes (SSC###) to 5-digit FIPS. Zone codes need
// a lookup table, so they are skipped.
func UGCToFIPS(ugcCodes []string) []string {
	var fips []string
	for _, ugc := range ugcCodes {
		if len(ugc) != 6 {
			continue
		}
		stateCode, ok := stateFIPS[ugc[:2]]
		if !ok {
			continue
		}
		if ugc[2] == 'C' {
			fips = append(fips, stateCode+ugc[3:6])
		}
	}
	return dedupSorted(fips)
}

// ParseXMLFIPS extracts FIPS codes from CAP geocode blocks. Six-digit SAME
// codes are normalized to their trailing five digits.
func ParseXMLFIPS(text string) []string {
	var fips []string
	for _, m := range xmlFIPSRe.FindAllStringSubmatch(text, -1) {
		code := m[1]
		switch len(code) {
		case 6:
			code = code[1:]
		case 5:
		default:
			continue
		}
		fips = append(fips, code)
	}
	return dedupSorted(fips)
}

// FilterByStates keeps only codes whose state prefix is in states.
func FilterByStates(ugcCodes, states []string) []string {
	allowed := map[string]struct{}{}
	for _, s := range states {
		allowed[strings.ToUpper(s)] = struct{}{}
	}
	var out []string
	for _, ugc := range ugcCodes {
		if len(ugc) < 2 {
			continue
		}
		if _, ok := allowed[ugc[:2]]; ok {
			out = append(out, ugc)
		}
	}
	return out
}

// FormatLocationString summarizes codes per state, e.g.
// "OH (3 counties), IN (2 zones)".
func FormatLocationString(ugcCodes []string) string {
	if len(ugcCodes) == 0 {
		return "Unknown"
	}

	type counts struct{ counties, zones int }
	byState := map[string]*counts{}
	for _, ugc := range ugcCodes {
		if len(ugc) != 6 {
			continue
		}
		state := ugc[:2]
		c, ok := byState[state]
		if !ok {
			c = &counts{}
			byState[state] = c
		}
		if ugc[2] == 'C' {
			c.counties++
		} else {
			c.zones++
		}
	}

	states := make([]string, 0, len(byState))
	for state := range byState {
		states = append(states, state)
	}
	sort.Strings(states)

	var parts []string
	for _, state := range states {
		c := byState[state]
		var kinds []string
		if c.counties > 0 {
			kinds = append(kinds, fmt.Sprintf("%d %s", c.counties, pluralize(c.counties, "county", "counties")))
		}
		if c.zones > 0 {
			kinds = append(kinds, fmt.Sprintf("%d %s", c.zones, pluralize(c.zones, "zone", "zones")))
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", state, strings.Join(kinds, ", ")))
	}
	return strings.Join(parts, ", ")
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func dedupSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

package domain

import (
	"regexp"
	"strings"
)

// Compiled patterns for NWS text products. Pattern shapes follow the VTEC
// directive (NWSI 10-1703) and observed product texture; several carry
// multiple alternatives because offices phrase the same tag differently.

var (
	// vtecRe decodes a full P-VTEC string:
	// /O.NEW.KCLE.TO.W.0001.250120T1530Z-250120T1630Z/
	// Groups: class, action, office, phenomenon, significance, ETN, begin, end.
	vtecRe = regexp.MustCompile(`/([OTEX])\.([A-Z]{3})\.([A-Z]{4})\.([A-Z]{2})\.([WAYSONF])\.(\d{4})\.(\d{6}T\d{4}Z)-(\d{6}T\d{4}Z)/`)

	// vtecSimpleRe detects the presence of any VTEC string.
	vtecSimpleRe = regexp.MustCompile(`(/[OTEX]\.[A-Z]{3}\.[A-Z]{4}\.[A-Z]{2}\.[WAYSONF]\.\d{4}\.\d{6}T\d{4}Z-\d{6}T\d{4}Z/)`)

	// hvtecRe decodes the hydrologic second line:
	// /NWSLI.s.ic.begin.crest.end.fr/ where NWSLI may be absent in malformed
	// products. Groups: nwsli, severity, cause, begin, crest, end, record flag.
	hvtecRe = regexp.MustCompile(`/(?:([A-Z0-9]{5})\.)?([0-3NUMO])\.([A-Z]{2})\.(\d{6}T\d{4}Z)\.(\d{6}T\d{4}Z)\.(\d{6}T\d{4}Z)\.([A-Z]{2})/`)
)

var (
	// ugcExpirationRe pulls the trailing DDHHMM expiration off a UGC block.
	ugcExpirationRe = regexp.MustCompile(`-(\d{6})-?\s*\z`)

	// ugcRangeRe matches a code range, e.g. 061>065.
	ugcRangeRe = regexp.MustCompile(`(\d{3})>(\d{3})`)

	// ugcContinuationRe matches bare continuation lines of digits/ranges.
	ugcContinuationRe = regexp.MustCompile(`^[\d\->]+-$`)

	// xmlFIPSRe finds FIPS6/SAME geocode values in CAP XML.
	xmlFIPSRe = regexp.MustCompile(`(?i)<valueName>(?:FIPS6|SAME)</valueName>\s*<value>(\d{5,6})</value>`)
)

var (
	// polygonTextRe captures the LAT...LON coordinate block, stopping at the
	// storm motion line or a product terminator.
	polygonTextRe = regexp.MustCompile(`(?s)LAT\.\.\.LON\s+([\d\s]+?)(?:TIME\.\.\.MOT|\n\n|\$\$|&&|\z)`)

	// coordValueRe matches one packed coordinate: DDMM or DDDMM hundredths.
	coordValueRe = regexp.MustCompile(`(\d{4,5})`)

	// polygonXMLRe captures a CAP <polygon> vertex list.
	polygonXMLRe = regexp.MustCompile(`(?i)<polygon>([\d\s,.\-]+)</polygon>`)
)

var (
	// expirationTextRe matches "UNTIL 530 PM EST" style phrases.
	expirationTextRe = regexp.MustCompile(`(?i)(?:UNTIL|THROUGH|EXPIRES?\s+(?:AT)?)\s+(\d{3,4})\s*(AM|PM)?\s*([A-Z]{2,4})?`)

	// xmlExpiresRe and xmlEventEndRe pull ISO timestamps out of CAP XML;
	// eventEndingTime is preferred when both appear.
	xmlExpiresRe  = regexp.MustCompile(`(?i)<expires>([\d\-T:+Z]+)</expires>`)
	xmlEventEndRe = regexp.MustCompile(`(?i)<eventEndingTime>([\d\-T:+Z]+)</eventEndingTime>`)

	// issuedTimeLineRe matches the product issuance line,
	// e.g. "339 PM CDT Mon Aug 8 2022".
	issuedTimeLineRe = regexp.MustCompile(`(?i)(\d{1,4})\s+(AM|PM)\s+([A-Z]{3,4})\s+(Mon|Tue|Wed|Thu|Fri|Sat|Sun)\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{1,2})\s+(\d{4})`)
)

var (
	// tornadoDetectionRe matches the "TORNADO...RADAR INDICATED" tag.
	tornadoDetectionRe = regexp.MustCompile(`(?i)TORNADO\.{3}(RADAR\s+INDICATED|OBSERVED|POSSIBLE)`)

	// tornadoDamageRe matches the tornado damage threat tag.
	tornadoDamageRe = regexp.MustCompile(`(?i)TORNADO\s+DAMAGE\s+THREAT\.{3}(CONSIDERABLE|CATASTROPHIC)`)

	// windGustRe matches the many ways offices state a gust value:
	// "WIND...60 MPH", "GUSTS UP TO 80 MPH", "60 MPH WIND GUSTS",
	// "gusts of 45 to 50 mph" (higher number captured).
	windGustRe = regexp.MustCompile(`(?i)(?:` +
		`(?:MAX\s+)?(?:WIND|GUST)S?(?:\s+GUST)?S?\.{0,3}\s*(?:UP\s+)?(?:TO\s+)?(\d{2,3})\s*(?:MPH|KT)` +
		`|` +
		`(\d{2,3})\s*(?:MPH|KT)\s+(?:WIND|GUST)S?` +
		`|` +
		`GUSTS?\s+(?:OF\s+)?(?:UP\s+)?(?:TO\s+)?(?:\d+\s+TO\s+)?(\d{2,3})\s*(?:MPH|KT)` +
		`|` +
		`WINDS?\s+(?:OF\s+)?(?:\d+\s+TO\s+)?(\d{2,3})\s*(?:MPH|KT)` +
		`)`)

	// windGustXMLRe matches a CAP <maxWindGust> tag.
	windGustXMLRe = regexp.MustCompile(`(?i)<maxWindGust[^>]*>(\d+)\s*(?:mph|kts?)?</maxWindGust>`)

	// sustainedWindRe matches "winds 25 to 35 mph" so that a sustained-wind
	// range is not misread as a gust value.
	sustainedWindRe = regexp.MustCompile(`(?i)(?:WEST|EAST|NORTH|SOUTH|NW|NE|SW|SE|N|S|E|W)?\s*WINDS?\s+(?:OF\s+)?(\d{2,3})\s+TO\s+(\d{2,3})\s*(?:MPH|KT)`)

	// windDamageRe matches the wind damage threat tag; wind adds DESTRUCTIVE.
	windDamageRe = regexp.MustCompile(`(?i)WIND\s+DAMAGE\s+THREAT\.{3}(CONSIDERABLE|DESTRUCTIVE|CATASTROPHIC)`)

	// hailSizeRe matches numeric hail sizes: "HAIL...1.75 INCHES", "2 INCH HAIL".
	hailSizeRe = regexp.MustCompile(`(?i)(?:` +
		`(?:MAX\s+)?HAIL(?:\s+SIZE)?\.{0,3}\s*(?:UP\s+)?(?:TO\s+)?(\d+\.?\d*)\s*(?:INCH(?:ES)?|IN\b)` +
		`|` +
		`(\d+\.?\d*)\s*(?:INCH(?:ES)?|IN\.?)\s*(?:HAIL|SIZE)` +
		`)`)

	// hailSizeXMLRe matches a CAP <maxHailSize> tag.
	hailSizeXMLRe = regexp.MustCompile(`(?i)<maxHailSize[^>]*>(\d+\.?\d*)\s*(?:in)?</maxHailSize>`)

	// hailDamageRe matches the hail damage threat tag.
	hailDamageRe = regexp.MustCompile(`(?i)HAIL\s+DAMAGE\s+THREAT\.{3}(CONSIDERABLE|CATASTROPHIC)`)
)

// hailDescriptorSizes converts descriptive hail sizes to inches.
var hailDescriptorSizes = map[string]float64{
	"PEA":         0.25,
	"MARBLE":      0.5,
	"DIME":        0.5,
	"PENNY":       0.75,
	"NICKEL":      0.88,
	"QUARTER":     1.0,
	"HALF DOLLAR": 1.25,
	"PING PONG":   1.5,
	"GOLF BALL":   1.75,
	"HEN EGG":     2.0,
	"TENNIS BALL": 2.5,
	"BASEBALL":    2.75,
	"APPLE":       3.0,
	"SOFTBALL":    4.0,
	"GRAPEFRUIT":  4.5,
}

// hailDescriptorOrder keeps the alternation deterministic.
var hailDescriptorOrder = []string{
	"PEA", "MARBLE", "DIME", "PENNY", "NICKEL", "QUARTER", "HALF DOLLAR",
	"PING PONG", "GOLF BALL", "HEN EGG", "TENNIS BALL", "BASEBALL", "APPLE",
	"SOFTBALL", "GRAPEFRUIT",
}

// hailDescRe matches descriptor phrases like "QUARTER SIZE HAIL". The HAIL or
// SIZE anchor avoids false matches such as "quarter mile".
var hailDescRe = func() *regexp.Regexp {
	alts := strings.Join(hailDescriptorOrder, "|")
	return regexp.MustCompile(`(?i)(?:UP\s+TO\s+)?(` + alts + `)(?:\s+SIZE(?:D)?)?\s+HAIL` +
		`|(` + alts + `)\s+SIZE(?:D)?`)
}()

var (
	// snowAmountRe matches accumulation statements in their common shapes:
	// "SNOW ACCUMULATION...4 TO 8 INCHES", "3 TO 5 INCHES OF SNOW",
	// "UP TO 1 INCH OF QUICK SNOW ACCUMULATION".
	snowAmountRe = regexp.MustCompile(`(?i)(?:` +
		`(?:SNOW|ACCUMULATION)S?(?:\s+ACCUMULATION)?S?\.{0,3}\s*(?:OF\s+)?(?:UP\s+TO\s+)?(?:BETWEEN\s+)?(\d+\.?\d*)(?:\s*(?:TO|-|AND)\s*(\d+\.?\d*))?\s*INCH(?:ES)?` +
		`|` +
		`(\d+\.?\d*)(?:\s*(?:TO|-|AND)\s*(\d+\.?\d*))?\s*INCH(?:ES)?\s+(?:OF\s+)?(?:NEW\s+)?SNOW` +
		`|` +
		`UP\s+TO\s+(\d+\.?\d*)\s*INCH(?:ES)?\s+(?:OF\s+)?(?:\w+\s+)*SNOW` +
		`)`)

	// iceAmountRe matches ice accretion statements.
	iceAmountRe = regexp.MustCompile(`(?i)ICE(?:\s+ACCUMULATION)?\.{0,3}\s*(?:UP\s+TO\s+)?(\d+\.?\d*)\s*(?:TO\s+(\d+\.?\d*)\s*)?INCH(?:ES)?`)
)

var (
	// motionTextRe matches "TIME...MOT...LOC 1845Z 245DEG 35KT".
	motionTextRe = regexp.MustCompile(`(?i)TIME\.{3}MOT\.{3}LOC\s+\d{4}Z\s+(\d{3})DEG\s+(\d+)KT`)

	// motionAltRe matches prose motion: "MOVING NORTHEAST AT 35 MPH" appears
	// as "MOVING NE AT 35 MPH" in tag blocks.
	motionAltRe = regexp.MustCompile(`(?i)MOVING\s+(?:TO\s+THE\s+)?([NSEW]{1,3})\s+AT\s+(\d+)\s*(?:MPH|KT)`)
)

var (
	// floodDetectionRe matches "FLASH FLOOD...RADAR INDICATED".
	floodDetectionRe = regexp.MustCompile(`(?i)FLASH\s+FLOOD(?:ING)?\.{3}(RADAR\s+INDICATED|OBSERVED|POSSIBLE)`)

	// floodDamageRe matches the flash flood damage threat tag.
	floodDamageRe = regexp.MustCompile(`(?i)FLASH\s+FLOOD\s+DAMAGE\s+THREAT\.{3}(CONSIDERABLE|CATASTROPHIC)`)
)

var (
	// watchTypeRe matches SPC watch headers: "TORNADO WATCH NUMBER 245".
	watchTypeRe = regexp.MustCompile(`(?i)(TORNADO|SEVERE\s+THUNDERSTORM)\s+WATCH\s+(?:NUMBER\s+)?(\d+)`)

	// locationDescRe matches the "...Line of strong storms..." headline form.
	locationDescRe = regexp.MustCompile(`(?m)^\.{3}(.+?)\.{3}\s*$`)

	// areaDescXMLRe matches a CAP <areaDesc> element.
	areaDescXMLRe = regexp.MustCompile(`(?i)<areaDesc>([^<]+)</areaDesc>`)
)

// spsThunderstormKeywords keep a non-VTEC Special Weather Statement; at least
// one must appear in the product text.
var spsThunderstormKeywords = []string{
	"THUNDERSTORM",
	"SEVERE",
	"WIND",
	"HAIL",
	"LIGHTNING",
	"GUSTY",
	"DAMAGING",
	"STRONG STORM",
}

// spsExcludedRes reject a Special Weather Statement outright.
var spsExcludedRes = []*regexp.Regexp{
	regexp.MustCompile(`\bFIRE\b`),
	regexp.MustCompile(`\bSMOKE\b`),
	regexp.MustCompile(`\bFOG\b`),
	regexp.MustCompile(`\bHEAT\b`),
	regexp.MustCompile(`\bRIP\s*CURRENT`),
	regexp.MustCompile(`\bBEACH\s*HAZARD`),
	regexp.MustCompile(`\bMARINE\b`),
	regexp.MustCompile(`\bAIR\s*QUALITY`),
	regexp.MustCompile(`\bDUST\b`),
}

var (
	// xmlAlertRe detects CAP/XML wrapped content.
	xmlAlertRe = regexp.MustCompile(`(?i)<alert\s|<cap:|<info>`)

	// hwoPILRe matches Hazardous Weather Outlook product identifiers.
	hwoPILRe = regexp.MustCompile(`\bHWO[A-Z]{2,4}\b`)
)

// isXMLContent reports whether the product text is CAP/XML wrapped.
func isXMLContent(text string) bool {
	return xmlAlertRe.MatchString(text)
}

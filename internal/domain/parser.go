package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Reject reasons. The ingest layer counts these per reason; they are
// expected outcomes, not failures.
var (
	ErrInformationalProduct = errors.New("informational product")
	ErrIrrelevantSPS        = errors.New("special weather statement is not thunderstorm related")
	ErrPhenomenonFiltered   = errors.New("phenomenon not in target list")
	ErrStateFiltered        = errors.New("no affected area in target states")
	ErrOfficeFiltered       = errors.New("issuing office not in target list")
	ErrNoAffectedAreas      = errors.New("no affected areas after filtering")
)

// RejectReason returns a short metric label for a parser rejection, or "" if
// the error is not one of the filter outcomes.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInformationalProduct):
		return "informational"
	case errors.Is(err, ErrIrrelevantSPS):
		return "sps_irrelevant"
	case errors.Is(err, ErrPhenomenonFiltered):
		return "phenomenon"
	case errors.Is(err, ErrStateFiltered):
		return "state"
	case errors.Is(err, ErrOfficeFiltered):
		return "office"
	case errors.Is(err, ErrNoAffectedAreas):
		return "no_areas"
	default:
		return ""
	}
}

// ParseOptions configure the relevance filters applied after decoding.
type ParseOptions struct {
	// TargetPhenomena limits accepted phenomenon codes; empty accepts all.
	TargetPhenomena []string
	// PhenomenaProvider, when set, is consulted per product instead of
	// TargetPhenomena, so the accepted set can change at runtime.
	PhenomenaProvider func() []string
	// FilterStates limits alerts to UGC codes in these states; empty accepts
	// all. Multi-state alerts are pruned to the listed states.
	FilterStates []string
	// FilterOffices limits alerts to these issuing offices (KCLE, KILN, ...);
	// empty accepts all. Products whose office cannot be determined pass.
	FilterOffices []string
	// DefaultLifetime is assigned when a short-fused product carries no
	// expiration at all.
	DefaultLifetime time.Duration
	// DisplayLocations renders UGC codes as a human-readable string. Defaults
	// to FormatLocationString.
	DisplayLocations func([]string) string
}

// Parser decodes REST API features and raw wire products into Alerts.
type Parser struct {
	opts ParseOptions

	targetPhenomena map[string]struct{}
	targetOffices   map[string]struct{}
}

// NewParser creates a Parser. A zero DefaultLifetime defaults to one hour.
func NewParser(opts ParseOptions) *Parser {
	if opts.DefaultLifetime <= 0 {
		opts.DefaultLifetime = time.Hour
	}
	if opts.DisplayLocations == nil {
		opts.DisplayLocations = FormatLocationString
	}

	p := &Parser{opts: opts}
	if len(opts.TargetPhenomena) > 0 {
		p.targetPhenomena = make(map[string]struct{}, len(opts.TargetPhenomena))
		for _, code := range opts.TargetPhenomena {
			p.targetPhenomena[strings.ToUpper(code)] = struct{}{}
		}
	}
	if len(opts.FilterOffices) > 0 {
		p.targetOffices = make(map[string]struct{}, len(opts.FilterOffices))
		for _, office := range opts.FilterOffices {
			p.targetOffices[strings.ToUpper(office)] = struct{}{}
		}
	}
	return p
}

// shortFusedPhenomena get a default lifetime when no expiration is found,
// so a malformed warning still ages out instead of living forever.
var shortFusedPhenomena = map[string]struct{}{
	"TO": {}, "SV": {}, "FF": {}, "SS": {}, "SPS": {},
	"SVR": {}, "FFW": {}, "TOR": {}, "SVS": {}, "FFS": {},
	"TOA": {}, "SVA": {}, "FFA": {},
}

// APIFeature is one GeoJSON feature from the alerts endpoint.
type APIFeature struct {
	ID         string           `json:"id"`
	Properties APIProperties    `json:"properties"`
	Geometry   *GeoJSONGeometry `json:"geometry"`
}

// APIProperties is the subset of CAP properties the relay consumes.
type APIProperties struct {
	ID            string           `json:"id"`
	AtID          string           `json:"@id"`
	Event         string           `json:"event"`
	Headline      string           `json:"headline"`
	Description   string           `json:"description"`
	Instruction   string           `json:"instruction"`
	AreaDesc      string           `json:"areaDesc"`
	SenderName    string           `json:"senderName"`
	Sent          string           `json:"sent"`
	Effective     string           `json:"effective"`
	Onset         string           `json:"onset"`
	Expires       string           `json:"expires"`
	Ends          string           `json:"ends"`
	Geocode       APIGeocode       `json:"geocode"`
	AffectedZones []string         `json:"affectedZones"`
	Parameters    map[string][]any `json:"parameters"`
}

// APIGeocode carries the UGC and SAME code lists of a feature.
type APIGeocode struct {
	UGC  []string `json:"UGC"`
	SAME []string `json:"SAME"`
}

// ParseAPIAlert decodes one GeoJSON feature. Filter outcomes return one of
// the reject errors; structural problems return other errors.
func (p *Parser) ParseAPIAlert(feature *APIFeature, source string) (*Alert, error) {
	props := &feature.Properties
	now := clock.Now().UTC()

	alert := &Alert{
		Source:      source,
		Status:      StatusActive,
		Priority:    PriorityOther,
		ParsedAt:    now,
		LastUpdated: now,
	}

	alert.MessageID = props.ID
	if alert.MessageID == "" {
		alert.MessageID = props.AtID
	}

	// VTEC comes from parameters when present, else from the description.
	vtecStr := paramString(props.Parameters, "VTEC")
	var vtecResult VTECResult
	if vtecStr != "" {
		vtecResult = ParseVTEC(vtecStr)
	} else {
		vtecResult = ParseVTEC(props.Description)
	}

	alert.EventName = props.Event
	alert.Headline = props.Headline
	alert.Description = props.Description
	alert.Instruction = props.Instruction

	alert.IssuedTime = ParseISOTimestamp(props.Sent)

	if len(props.Geocode.UGC) > 0 {
		alert.AffectedAreas = dedupSorted(props.Geocode.UGC)
	} else if len(props.AffectedZones) > 0 {
		alert.AffectedAreas = ugcFromZoneURLs(props.AffectedZones)
	}

	if vtecResult.Valid() {
		alert.VTEC = vtecResult.Info
		alert.ProductID = BuildProductID(alert.VTEC)
		alert.Phenomenon = alert.VTEC.Phenomenon
		alert.Significance = alert.VTEC.Significance
		alert.SenderOffice = alert.VTEC.Office
		if alert.VTEC.IsCancellation() {
			alert.Status = StatusCancelled
		}
		alert.HVTEC = ParseHVTEC(props.Description)
	} else {
		if alert.Phenomenon == "" && props.Event != "" {
			alert.Phenomenon = eventNameToPhenomenon(props.Event)
			if alert.Phenomenon == "SPS" {
				alert.Significance = SignificanceStatement
			}
		}
		if alert.Phenomenon == "SPS" && alert.IssuedTime != nil && len(alert.AffectedAreas) > 0 {
			alert.ProductID = GenerateSPSID(alert.AffectedAreas, *alert.IssuedTime)
		}
		if alert.ProductID == "" {
			if alert.MessageID != "" {
				parts := strings.Split(alert.MessageID, "/")
				alert.ProductID = parts[len(parts)-1]
			} else {
				alert.ProductID = fmt.Sprintf("api_%d", now.Unix())
			}
		}
	}

	alert.SenderName = props.SenderName
	if alert.SenderName == "" && alert.SenderOffice != "" {
		alert.SenderName = WFOName(alert.SenderOffice)
	}

	// "ends" is when the event ends; "expires" is when the message stops
	// being distributed. The event end wins when both exist.
	if props.Ends != "" {
		alert.ExpirationTime = ParseISOTimestamp(props.Ends)
	} else if props.Expires != "" {
		alert.ExpirationTime = ParseISOTimestamp(props.Expires)
		alert.MessageExpires = alert.ExpirationTime
	}
	alert.EffectiveTime = ParseISOTimestamp(props.Effective)
	alert.OnsetTime = ParseISOTimestamp(props.Onset)

	alert.FIPSCodes = fipsFromSAME(props.Geocode.SAME)

	switch {
	case props.AreaDesc != "" && !looksLikeUGCCodes(props.AreaDesc):
		alert.DisplayLocations = props.AreaDesc
	case len(alert.AffectedAreas) > 0:
		alert.DisplayLocations = p.opts.DisplayLocations(alert.AffectedAreas)
	default:
		alert.DisplayLocations = props.AreaDesc
	}

	if feature.Geometry != nil {
		alert.Polygon = RingsFromGeoJSON(feature.Geometry)
	}
	if len(alert.Polygon) == 0 && props.Description != "" {
		if ring := ParseTextPolygon(props.Description); ring != nil {
			alert.Polygon = []Ring{ring}
		}
	}
	alert.Centroid = Centroid(alert.Polygon)

	alert.Threat = ParseThreat(props.Description, false)
	applyThreatParameters(props.Parameters, &alert.Threat)

	if alert.Phenomenon == "SPS" && !isRelevantSPS(props.Description) {
		return nil, fmt.Errorf("%s: %w", alert.ProductID, ErrIrrelevantSPS)
	}

	p.applyDefaultExpiration(alert)
	alert.RawText = props.Description

	return p.finish(alert)
}

// ParseTextAlert decodes a raw wire product (plain text or CAP XML).
func (p *Parser) ParseTextAlert(rawText, source string) (*Alert, error) {
	if isInformationalProduct(rawText) {
		return nil, ErrInformationalProduct
	}

	now := clock.Now().UTC()
	alert := &Alert{
		Source:      source,
		RawText:     rawText,
		Status:      StatusActive,
		Priority:    PriorityOther,
		ParsedAt:    now,
		LastUpdated: now,
	}

	isXML := isXMLContent(rawText)

	vtecResult := ParseVTEC(rawText)
	if vtecResult.Valid() {
		alert.VTEC = vtecResult.Info
		alert.ProductID = BuildProductID(alert.VTEC)
		alert.Phenomenon = alert.VTEC.Phenomenon
		alert.Significance = alert.VTEC.Significance
		alert.SenderOffice = alert.VTEC.Office
		if alert.VTEC.EndTime != nil {
			alert.ExpirationTime = alert.VTEC.EndTime
		}
		if alert.VTEC.IsCancellation() {
			alert.Status = StatusCancelled
		}
		alert.HVTEC = ParseHVTEC(rawText)
	} else {
		// Non-VTEC products, typically Special Weather Statements.
		alert.IssuedTime = ParseIssuedLine(rawText)
		header := rawText
		if len(header) > 500 {
			header = header[:500]
		}
		alert.Phenomenon = eventNameToPhenomenon(header)
		if alert.Phenomenon != "" {
			alert.Significance = SignificanceStatement
			alert.EventName = BuildEventName(alert.Phenomenon, alert.Significance)
		}
	}

	ugcData := ParseUGC(rawText)
	if ugcData.Valid() {
		alert.AffectedAreas = ugcData.Codes
		alert.FIPSCodes = ugcData.FIPSCodes
		if alert.ExpirationTime == nil && ugcData.ExpirationTime != nil {
			alert.ExpirationTime = ugcData.ExpirationTime
		}
	}

	if alert.VTEC == nil && alert.Phenomenon == "SPS" &&
		alert.IssuedTime != nil && len(alert.AffectedAreas) > 0 {
		alert.ProductID = GenerateSPSID(alert.AffectedAreas, *alert.IssuedTime)
	}

	if alert.ProductID == "" {
		if m := watchTypeRe.FindStringSubmatch(rawText); m != nil {
			// SPC watch outline without VTEC: identity comes from the header.
			if strings.Contains(strings.ToUpper(m[1]), "TORNADO") {
				alert.Phenomenon = "TO"
			} else {
				alert.Phenomenon = "SV"
			}
			alert.Significance = SignificanceWatch
			n, _ := strconv.Atoi(m[2])
			alert.ProductID = fmt.Sprintf("%sA.SPC.%04d", alert.Phenomenon, n)
		} else {
			alert.ProductID = fmt.Sprintf("nwws_%d", now.Unix())
		}
	}

	if isXML {
		if xmlFIPS := ParseXMLFIPS(rawText); len(xmlFIPS) > 0 {
			alert.FIPSCodes = dedupSorted(append(alert.FIPSCodes, xmlFIPS...))
		}
	}

	if alert.ExpirationTime == nil {
		alert.ExpirationTime = parseTextExpiration(rawText, isXML)
	}

	locationDesc := parseLocationDescription(rawText, isXML)
	switch {
	case locationDesc != "" && !looksLikeUGCCodes(locationDesc):
		alert.DisplayLocations = locationDesc
	case len(alert.AffectedAreas) > 0:
		alert.DisplayLocations = p.opts.DisplayLocations(alert.AffectedAreas)
	default:
		alert.DisplayLocations = locationDesc
	}

	var ring Ring
	if isXML {
		ring = ParseXMLPolygon(rawText)
	} else {
		ring = ParseTextPolygon(rawText)
	}
	if ring != nil {
		alert.Polygon = []Ring{ring}
	}
	alert.Centroid = Centroid(alert.Polygon)

	alert.Threat = ParseThreat(rawText, isXML)

	if alert.Phenomenon != "" {
		alert.EventName = BuildEventName(alert.Phenomenon, alert.Significance)
	}
	if alert.SenderName == "" && alert.SenderOffice != "" {
		alert.SenderName = WFOName(alert.SenderOffice)
	}

	if alert.Phenomenon == "SPS" && !isRelevantSPS(rawText) {
		return nil, fmt.Errorf("%s: %w", alert.ProductID, ErrIrrelevantSPS)
	}

	p.applyDefaultExpiration(alert)

	return p.finish(alert)
}

// finish applies the relevance filters, prunes multi-state areas, and derives
// priority and event name.
func (p *Parser) finish(alert *Alert) (*Alert, error) {
	if !p.isTargetPhenomenon(alert.Phenomenon) {
		return nil, fmt.Errorf("%s (%s): %w", alert.Phenomenon, alert.EventName, ErrPhenomenonFiltered)
	}
	if !p.isTargetState(alert.AffectedAreas) {
		return nil, fmt.Errorf("%s: %w", alert.ProductID, ErrStateFiltered)
	}
	if !p.isTargetOffice(alert.SenderOffice) {
		return nil, fmt.Errorf("%s (%s): %w", alert.ProductID, alert.SenderOffice, ErrOfficeFiltered)
	}

	if len(p.opts.FilterStates) > 0 && len(alert.AffectedAreas) > 0 {
		filtered := FilterByStates(alert.AffectedAreas, p.opts.FilterStates)
		if len(filtered) < len(alert.AffectedAreas) && len(filtered) > 0 {
			alert.AffectedAreas = filtered
			alert.FIPSCodes = UGCToFIPS(filtered)
			alert.DisplayLocations = p.opts.DisplayLocations(filtered)
		} else {
			alert.AffectedAreas = filtered
		}
		if len(alert.AffectedAreas) == 0 {
			return nil, fmt.Errorf("%s: %w", alert.ProductID, ErrNoAffectedAreas)
		}
	}

	if alert.Priority == PriorityOther && alert.Phenomenon != "" {
		alert.Priority = PriorityFor(alert.Phenomenon, alert.Significance)
	}
	if alert.EventName == "" && alert.Phenomenon != "" {
		alert.EventName = BuildEventName(alert.Phenomenon, alert.Significance)
	}

	return alert, nil
}

func (p *Parser) isTargetPhenomenon(phenomenon string) bool {
	if phenomenon == "" {
		return false
	}
	if p.opts.PhenomenaProvider != nil {
		codes := p.opts.PhenomenaProvider()
		if len(codes) == 0 {
			return true
		}
		for _, code := range codes {
			if strings.EqualFold(code, phenomenon) {
				return true
			}
		}
		return false
	}
	if p.targetPhenomena == nil {
		return true
	}
	_, ok := p.targetPhenomena[strings.ToUpper(phenomenon)]
	return ok
}

func (p *Parser) isTargetOffice(office string) bool {
	if p.targetOffices == nil || office == "" {
		return true
	}
	_, ok := p.targetOffices[strings.ToUpper(office)]
	return ok
}

func (p *Parser) isTargetState(areas []string) bool {
	if len(p.opts.FilterStates) == 0 {
		return true
	}
	// Without areas the state cannot be determined; reject rather than show
	// alerts of unknown origin.
	if len(areas) == 0 {
		return false
	}
	return len(FilterByStates(areas, p.opts.FilterStates)) > 0
}

func (p *Parser) applyDefaultExpiration(alert *Alert) {
	if alert.ExpirationTime != nil {
		return
	}
	if _, ok := shortFusedPhenomena[alert.Phenomenon]; !ok {
		return
	}
	exp := clock.Now().UTC().Add(p.opts.DefaultLifetime)
	alert.ExpirationTime = &exp
}

// GenerateSPSID builds a stable identity for non-VTEC Special Weather
// Statements so reissued copies of the same statement merge: a minute-level
// UTC issue stamp plus a hash of the sorted UGC codes.
func GenerateSPSID(ugcCodes []string, issued time.Time) string {
	if len(ugcCodes) == 0 {
		return ""
	}
	sorted := append([]string(nil), ugcCodes...)
	sort.Strings(sorted)

	sum := sha1.Sum([]byte(strings.Join(sorted, "")))
	return fmt.Sprintf("SPS.adhoc.%s.%s",
		issued.UTC().Format("200601021504"),
		hex.EncodeToString(sum[:])[:8])
}

// eventPhenomenonMappings map API event names to phenomenon codes. Order
// matters: "FLASH FLOOD WARNING" must match before "FLOOD WARNING".
var eventPhenomenonMappings = []struct {
	name string
	code string
}{
	{"TORNADO WARNING", "TO"},
	{"TORNADO WATCH", "TO"},
	{"SEVERE THUNDERSTORM WARNING", "SV"},
	{"SEVERE THUNDERSTORM WATCH", "SV"},
	{"FLASH FLOOD WARNING", "FF"},
	{"FLASH FLOOD WATCH", "FF"},
	{"FLOOD WARNING", "FL"},
	{"FLOOD WATCH", "FL"},
	{"WINTER STORM WARNING", "WS"},
	{"WINTER STORM WATCH", "WS"},
	{"BLIZZARD WARNING", "BZ"},
	{"ICE STORM WARNING", "IS"},
	{"WIND CHILL WARNING", "WC"},
	{"WIND CHILL ADVISORY", "WC"},
	{"WINTER WEATHER ADVISORY", "WW"},
	{"SPECIAL WEATHER STATEMENT", "SPS"},
	{"HIGH WIND WARNING", "HW"},
	{"LAKE EFFECT SNOW WARNING", "LE"},
	{"SNOW SQUALL WARNING", "SQ"},
}

// eventNameToPhenomenon maps an event name (or product header text) to a
// phenomenon code; "" when nothing matches.
func eventNameToPhenomenon(text string) string {
	upper := strings.ToUpper(text)
	for _, m := range eventPhenomenonMappings {
		if strings.Contains(upper, m.name) {
			return m.code
		}
	}
	return ""
}

// isInformationalProduct recognizes products that mention hazards without
// being alerts themselves: Hazardous Weather Outlooks, Public Information
// Statements, and Zone Forecast products.
func isInformationalProduct(text string) bool {
	upper := strings.ToUpper(text)

	if strings.Contains(upper, "HAZARDOUS WEATHER OUTLOOK") {
		return true
	}
	if strings.Contains(head(upper, 100), "FLUS") {
		return true
	}
	if hwoPILRe.MatchString(head(upper, 200)) {
		return true
	}

	headerArea := head(upper, 50)
	for _, wmo := range []string{"NOUS", "FPUS"} {
		if strings.Contains(headerArea, wmo) {
			return true
		}
	}
	return false
}

// isRelevantSPS reports whether a Special Weather Statement is thunderstorm
// related. Exclusions (fire, fog, marine, ...) win over inclusions.
func isRelevantSPS(text string) bool {
	upper := strings.ToUpper(text)

	for _, re := range spsExcludedRes {
		if re.MatchString(upper) {
			return false
		}
	}
	for _, keyword := range spsThunderstormKeywords {
		if strings.Contains(upper, keyword) {
			return true
		}
	}
	return false
}

var (
	ugcCodesOnlyRe  = regexp.MustCompile(`^[A-Z]{2}[CZ]\d{3}(?:\s*[-;,]\s*[A-Z]{2}[CZ]\d{3})*$`)
	ugcCodesStartRe = regexp.MustCompile(`^[A-Z]{2}[CZ]\d{3}`)
)

// looksLikeUGCCodes reports whether text is raw UGC codes rather than place
// names, so code soup is never shown as a location.
func looksLikeUGCCodes(text string) bool {
	clean := strings.TrimSpace(text)
	if ugcCodesOnlyRe.MatchString(clean) {
		return true
	}
	return ugcCodesStartRe.MatchString(clean) && len(clean) < 50
}

// parseTextExpiration resolves the event end from XML timestamps or the
// "UNTIL 530 PM EST" phrase.
func parseTextExpiration(text string, isXML bool) *time.Time {
	if isXML {
		if m := xmlEventEndRe.FindStringSubmatch(text); m != nil {
			return ParseISOTimestamp(m[1])
		}
		if m := xmlExpiresRe.FindStringSubmatch(text); m != nil {
			return ParseISOTimestamp(m[1])
		}
	}

	if m := expirationTextRe.FindStringSubmatch(text); m != nil {
		return ParseTextTime(m[1], m[2], m[3])
	}
	return nil
}

// parseLocationDescription pulls the "...headline..." line from a text
// product or <areaDesc> from CAP.
func parseLocationDescription(text string, isXML bool) string {
	if isXML {
		if m := areaDescXMLRe.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	if m := locationDescRe.FindStringSubmatch(text); m != nil {
		desc := strings.TrimSpace(m[1])
		desc = strings.SplitN(desc, "\n", 2)[0]
		if !strings.HasPrefix(desc, "/O.") {
			return strings.TrimSpace(strings.TrimRight(desc, "-"))
		}
	}
	return ""
}

// applyThreatParameters folds the structured CAP parameters into threat data
// extracted from the description; parameters win when larger.
func applyThreatParameters(params map[string][]any, threat *Threat) {
	if gust := paramString(params, "maxWindGust"); gust != "" {
		if v, ok := digitsToInt(gust); ok {
			if threat.MaxWindGustMPH == nil || v > *threat.MaxWindGustMPH {
				kts := MPHToKts(v)
				threat.MaxWindGustMPH = &v
				threat.MaxWindGustKts = &kts
			}
		}
	}
	if hail := paramString(params, "maxHailSize"); hail != "" {
		if v, ok := numericToFloat(hail); ok {
			if threat.MaxHailSizeInches == nil || v > *threat.MaxHailSizeInches {
				threat.MaxHailSizeInches = &v
			}
		}
	}
	if detection := paramString(params, "tornadoDetection"); detection != "" {
		upper := strings.ToUpper(detection)
		threat.TornadoDetection = &upper
	}
}

// paramString returns the first value of a CAP parameter as a string.
func paramString(params map[string][]any, key string) string {
	values, ok := params[key]
	if !ok || len(values) == 0 {
		return ""
	}
	switch v := values[0].(type) {
	case string:
		return v
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", v), ".0")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ugcFromZoneURLs recovers UGC codes from affectedZones URLs like
// https://api.weather.gov/zones/forecast/OHZ089.
func ugcFromZoneURLs(zoneURLs []string) []string {
	var codes []string
	for _, u := range zoneURLs {
		trimmed := strings.TrimRight(u, "/")
		parts := strings.Split(trimmed, "/")
		id := strings.ToUpper(parts[len(parts)-1])
		if len(id) == 6 && isLetters(id[:2]) && (id[2] == 'C' || id[2] == 'Z') && isDigits(id[3:]) {
			codes = append(codes, id)
		}
	}
	return dedupSorted(codes)
}

// fipsFromSAME normalizes 6-digit SAME codes to 5-digit FIPS.
func fipsFromSAME(same []string) []string {
	var fips []string
	for _, code := range same {
		if len(code) < 5 {
			continue
		}
		fips = append(fips, code[len(code)-5:])
	}
	return fips
}

func digitsToInt(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	var v int
	for _, r := range b.String() {
		v = v*10 + int(r-'0')
	}
	return v, true
}

func numericToFloat(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	var v float64
	if _, err := fmt.Sscanf(b.String(), "%g", &v); err != nil {
		return 0, false
	}
	return v, true
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return len(s) > 0
}

func head(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

package domain

import (
	"time"
)

// Priority ranks alerts for display ordering. Lower values are more urgent.
type Priority int

const (
	PriorityTornadoWarning           Priority = 1
	PrioritySevereThunderstormWarning Priority = 2
	PriorityTornadoWatch             Priority = 3
	PriorityFlashFloodWarning        Priority = 4
	PrioritySevereThunderstormWatch  Priority = 5
	PriorityWinterStormWarning       Priority = 6
	PriorityBlizzardWarning          Priority = 7
	PriorityIceStormWarning          Priority = 8
	PriorityFlashFloodWatch          Priority = 9
	PriorityWinterStormWatch         Priority = 10
	PriorityWindChillWarning         Priority = 11
	PrioritySpecialWeatherStatement  Priority = 12
	PriorityWinterWeatherAdvisory    Priority = 13
	PriorityOther                    Priority = 99
)

// Status is the lifecycle state of an alert in the active set.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusUpdated   Status = "updated"
)

// Significance is the VTEC significance code.
type Significance string

const (
	SignificanceWarning   Significance = "W"
	SignificanceWatch     Significance = "A"
	SignificanceAdvisory  Significance = "Y"
	SignificanceStatement Significance = "S"
	SignificanceOutlook   Significance = "O"
	SignificanceSynopsis  Significance = "N"
	SignificanceForecast  Significance = "F"
)

// Action is the VTEC action code.
type Action string

const (
	ActionNew       Action = "NEW" // new event
	ActionContinue  Action = "CON" // continuing, no changes
	ActionExtend    Action = "EXT" // extended in time
	ActionExpand    Action = "EXA" // expanded in area
	ActionExtExpand Action = "EXB" // extended and expanded
	ActionUpgrade   Action = "UPG" // upgraded, e.g. watch to warning
	ActionCancel    Action = "CAN"
	ActionExpire    Action = "EXP"
	ActionCorrect   Action = "COR"
	ActionRoutine   Action = "ROU" // routine marine products
)

// PhenomenonNames maps VTEC phenomenon codes to display names. "SPS" is not a
// VTEC code but is carried here for non-VTEC Special Weather Statements.
var PhenomenonNames = map[string]string{
	"TO": "Tornado",
	"SV": "Severe Thunderstorm",
	"FF": "Flash Flood",
	"FA": "Areal Flood",
	"FL": "Flood",
	"WS": "Winter Storm",
	"BZ": "Blizzard",
	"IS": "Ice Storm",
	"LE": "Lake Effect Snow",
	"WW": "Winter Weather",
	"WC": "Wind Chill",
	"EC": "Extreme Cold",
	"HT": "Heat",
	"EH": "Excessive Heat",
	"FG": "Dense Fog",
	"SM": "Dense Smoke",
	"HW": "High Wind",
	"EW": "Extreme Wind",
	"WI": "Wind",
	"DS": "Dust Storm",
	"FR": "Frost",
	"FZ": "Freeze",
	"HZ": "Hard Freeze",
	"AS": "Air Stagnation",
	"CF": "Coastal Flood",
	"LS": "Lakeshore Flood",
	"SU": "High Surf",
	"RP": "Rip Current",
	"BW": "Brisk Wind",
	"SC": "Small Craft",
	"SW": "Small Craft Wind",
	"RB": "Small Craft Rough Bar",
	"SI": "Small Craft Seas",
	"GL": "Gale",
	"SE": "Hazardous Seas",
	"SR": "Storm",
	"HF": "Hurricane Force Wind",
	"TR": "Tropical Storm",
	"HU": "Hurricane",
	"TY": "Typhoon",
	"SS": "Storm Surge",
	"TS": "Tsunami",
	"MA": "Marine",
	"SQ": "Snow Squall",
	"AF": "Ashfall",
	"LO": "Low Water",
	"ZF": "Freezing Fog",
	"ZR": "Freezing Rain",
	"UP": "Ice Accretion",
	"ZY": "Freezing Spray",
	"FW": "Fire Weather",
	"RF": "Red Flag",
	"EQ": "Earthquake",
	"VO": "Volcano",
	"AV": "Avalanche",

	"SPS": "Special Weather Statement",
}

// IsKnownPhenomenon reports whether code is a recognized VTEC phenomenon.
func IsKnownPhenomenon(code string) bool {
	if code == "SPS" {
		return false
	}
	_, ok := PhenomenonNames[code]
	return ok
}

// phenomenonPriorities is the warning-level priority per phenomenon.
var phenomenonPriorities = map[string]Priority{
	"TO":  PriorityTornadoWarning,
	"SV":  PrioritySevereThunderstormWarning,
	"FF":  PriorityFlashFloodWarning,
	"WS":  PriorityWinterStormWarning,
	"BZ":  PriorityBlizzardWarning,
	"IS":  PriorityIceStormWarning,
	"WC":  PriorityWindChillWarning,
	"SPS": PrioritySpecialWeatherStatement,
	"WW":  PriorityWinterWeatherAdvisory,
}

// watchPriorities overrides the warning-level priority for watch products.
var watchPriorities = map[string]Priority{
	"TO": PriorityTornadoWatch,
	"SV": PrioritySevereThunderstormWatch,
	"FF": PriorityFlashFloodWatch,
	"WS": PriorityWinterStormWatch,
}

// PriorityFor derives the display priority from phenomenon and significance.
func PriorityFor(phenomenon string, sig Significance) Priority {
	if sig == SignificanceWatch {
		if p, ok := watchPriorities[phenomenon]; ok {
			return p
		}
	}
	if p, ok := phenomenonPriorities[phenomenon]; ok {
		return p
	}
	return PriorityOther
}

// significanceSuffixes builds the event-name suffix per significance.
var significanceSuffixes = map[Significance]string{
	SignificanceWarning:   "Warning",
	SignificanceWatch:     "Watch",
	SignificanceAdvisory:  "Advisory",
	SignificanceStatement: "Statement",
	SignificanceOutlook:   "Outlook",
}

// BuildEventName composes a display name like "Tornado Warning" from a
// phenomenon code and significance. The suffix is not doubled when the base
// name already ends with it ("Special Weather Statement").
func BuildEventName(phenomenon string, sig Significance) string {
	base, ok := PhenomenonNames[phenomenon]
	if !ok {
		base = "Unknown (" + phenomenon + ")"
	}
	suffix := significanceSuffixes[sig]
	if suffix == "" {
		return base
	}
	if hasSuffixWord(base, suffix) {
		return base
	}
	return base + " " + suffix
}

func hasSuffixWord(s, word string) bool {
	if len(s) < len(word) {
		return false
	}
	return s[len(s)-len(word):] == word
}

// LatLon is a single vertex as [latitude, longitude].
type LatLon [2]float64

// Ring is an ordered list of vertices; a closed ring repeats the first vertex last.
type Ring []LatLon

// VTECInfo is one decoded P-VTEC string.
type VTECInfo struct {
	ProductClass        string       `json:"product_class"` // O, T, E, X
	Action              Action       `json:"action"`
	Office              string       `json:"office"` // e.g. "KCLE"
	Phenomenon          string       `json:"phenomenon"`
	Significance        Significance `json:"significance"`
	EventTrackingNumber int          `json:"event_tracking_number"`
	BeginTime           *time.Time   `json:"begin_time"`
	EndTime             *time.Time   `json:"end_time"`
	Raw                 string       `json:"raw_vtec"`
}

// IsCancellation reports whether the action retires the event.
func (v *VTECInfo) IsCancellation() bool {
	return v.Action == ActionCancel || v.Action == ActionExpire
}

// IsUpdate reports whether the action modifies an existing event.
func (v *VTECInfo) IsUpdate() bool {
	switch v.Action {
	case ActionContinue, ActionExtend, ActionExpand, ActionExtExpand, ActionUpgrade, ActionCorrect:
		return true
	}
	return false
}

// IsNew reports whether the action starts a new event.
func (v *VTECInfo) IsNew() bool {
	return v.Action == ActionNew
}

// HVTECInfo is the hydrologic VTEC second line, when present.
type HVTECInfo struct {
	NWSLI      string     `json:"nwsli"`    // location identifier or "00000"
	Severity   string     `json:"severity"` // 0-3, N, U
	Cause      string     `json:"cause"`    // ER, SM, RS, ...
	BeginTime  *time.Time `json:"begin_time"`
	CrestTime  *time.Time `json:"crest_time"`
	EndTime    *time.Time `json:"end_time"`
	RecordFlag string     `json:"record_flag"` // NO, NR, UU, OO
	Raw        string     `json:"raw_hvtec"`
}

// StormMotion is the storm movement vector extracted from product text.
type StormMotion struct {
	DirectionDegrees *int    `json:"direction_degrees"` // 0-359, direction of travel
	DirectionFrom    *string `json:"direction_from"`    // cardinal the storm comes from
	SpeedMPH         *int    `json:"speed_mph"`
	SpeedKts         *int    `json:"speed_kts"`
}

// IsValid reports whether the vector has both a direction and a speed.
func (m *StormMotion) IsValid() bool {
	return m != nil && m.DirectionDegrees != nil && m.SpeedMPH != nil
}

// Threat carries hazard magnitudes extracted from product text. Nil fields
// mean the product did not state that value.
type Threat struct {
	TornadoDetection   *string `json:"tornado_detection"` // RADAR INDICATED, OBSERVED, POSSIBLE
	TornadoDamage      *string `json:"tornado_damage_threat"`
	MaxWindGustMPH     *int    `json:"max_wind_gust_mph"`
	MaxWindGustKts     *int    `json:"max_wind_gust_kts"`
	WindDamage         *string `json:"wind_damage_threat"`
	MaxHailSizeInches  *float64 `json:"max_hail_size_inches"`
	HailDamage         *string `json:"hail_damage_threat"`
	SnowMinInches      *float64 `json:"snow_amount_min_inches"`
	SnowMaxInches      *float64 `json:"snow_amount_max_inches"`
	IceInches          *float64 `json:"ice_accumulation_inches"`
	FlashFloodDetection *string `json:"flash_flood_detection"`
	FlashFloodDamage   *string `json:"flash_flood_damage_threat"`
	StormMotion        *StormMotion `json:"storm_motion,omitempty"`
}

// HasTornado reports whether a tornado detection was stated.
func (t *Threat) HasTornado() bool {
	return t.TornadoDetection != nil
}

// IsPDS reports whether any damage-threat tag reaches the particularly
// dangerous situation tiers.
func (t *Threat) IsPDS() bool {
	for _, tag := range []*string{t.TornadoDamage, t.WindDamage, t.HailDamage, t.FlashFloodDamage} {
		if tag == nil {
			continue
		}
		switch *tag {
		case "CONSIDERABLE", "DESTRUCTIVE", "CATASTROPHIC":
			return true
		}
	}
	return false
}

// Alert is a fully parsed product from either the REST API or the wire feed.
type Alert struct {
	ProductID string  `json:"product_id"`
	MessageID string  `json:"message_id,omitempty"` // CAP/API identifier
	Source    string  `json:"source"`               // "api" or "nwws"

	VTEC  *VTECInfo  `json:"vtec"`
	HVTEC *HVTECInfo `json:"hvtec,omitempty"`

	Phenomenon   string       `json:"phenomenon"`
	Significance Significance `json:"significance"`
	EventName    string       `json:"event_name"`
	Headline     string       `json:"headline"`
	Description  string       `json:"description"`
	Instruction  string       `json:"instruction"`

	IssuedTime     *time.Time `json:"issued_time"`
	EffectiveTime  *time.Time `json:"effective_time"`
	OnsetTime      *time.Time `json:"onset_time"`
	ExpirationTime *time.Time `json:"expiration_time"` // when the event ends
	MessageExpires *time.Time `json:"message_expires"` // when the message stops distribution

	AffectedAreas    []string `json:"affected_areas"` // UGC codes, deduplicated and sorted
	FIPSCodes        []string `json:"fips_codes"`
	DisplayLocations string   `json:"display_locations"`
	Polygon          []Ring   `json:"polygon"`
	Centroid         *LatLon  `json:"centroid"`

	SenderOffice string `json:"sender_office"`
	SenderName   string `json:"sender_name"`

	Threat Threat `json:"threat"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`

	RawText     string    `json:"-"`
	ParsedAt    time.Time `json:"parsed_at"`
	LastUpdated time.Time `json:"last_updated"`
	UpdateCount int       `json:"update_count"`
}

// IsActive reports whether the alert is live at the given instant.
func (a *Alert) IsActive(now time.Time) bool {
	if a.Status != StatusActive && a.Status != StatusUpdated {
		return false
	}
	if a.ExpirationTime == nil {
		return true
	}
	return now.Before(*a.ExpirationTime)
}

// IsExpired reports whether the event end time has passed.
func (a *Alert) IsExpired(now time.Time) bool {
	if a.ExpirationTime == nil {
		return false
	}
	return !now.Before(*a.ExpirationTime)
}

// IsHighPriority reports whether the alert ranks at or above flash flood warnings.
func (a *Alert) IsHighPriority() bool {
	return a.Priority <= PriorityFlashFloodWarning
}

// MarkUpdated bumps the update counter and timestamp.
func (a *Alert) MarkUpdated() {
	a.LastUpdated = clock.Now().UTC()
	a.UpdateCount++
}

// MarkExpired transitions the alert to expired.
func (a *Alert) MarkExpired() {
	a.Status = StatusExpired
	a.MarkUpdated()
}

// MarkCancelled transitions the alert to cancelled.
func (a *Alert) MarkCancelled() {
	a.Status = StatusCancelled
	a.MarkUpdated()
}

// Clone returns a deep copy so bulk snapshots cannot race with later merges.
func (a *Alert) Clone() *Alert {
	cp := *a

	if a.VTEC != nil {
		v := *a.VTEC
		cp.VTEC = &v
	}
	if a.HVTEC != nil {
		h := *a.HVTEC
		cp.HVTEC = &h
	}
	cp.AffectedAreas = append([]string(nil), a.AffectedAreas...)
	cp.FIPSCodes = append([]string(nil), a.FIPSCodes...)
	if a.Polygon != nil {
		cp.Polygon = make([]Ring, len(a.Polygon))
		for i, ring := range a.Polygon {
			cp.Polygon[i] = append(Ring(nil), ring...)
		}
	}
	if a.Centroid != nil {
		c := *a.Centroid
		cp.Centroid = &c
	}
	if a.Threat.StormMotion != nil {
		m := *a.Threat.StormMotion
		cp.Threat.StormMotion = &m
	}
	return &cp
}

// wfoNames covers the offices serving the default Great Lakes / Ohio Valley
// coverage area. Unknown offices fall back to "NWS <code>".
var wfoNames = map[string]string{
	"CLE": "NWS Cleveland OH",
	"ILN": "NWS Wilmington OH",
	"PBZ": "NWS Pittsburgh PA",
	"RLX": "NWS Charleston WV",
	"IWX": "NWS Northern Indiana",
	"IND": "NWS Indianapolis IN",
	"LMK": "NWS Louisville KY",
	"JKL": "NWS Jackson KY",
	"PAH": "NWS Paducah KY",
	"DTX": "NWS Detroit MI",
	"GRR": "NWS Grand Rapids MI",
	"APX": "NWS Gaylord MI",
	"MQT": "NWS Marquette MI",
	"CTP": "NWS State College PA",
	"PHI": "NWS Mount Holly NJ",
	"BUF": "NWS Buffalo NY",
	"MKX": "NWS Milwaukee WI",
	"LOT": "NWS Chicago IL",
	"ILX": "NWS Lincoln IL",
}

// WFOName returns a display name for a forecast office code. A leading "K" is
// stripped so "KCLE" and "CLE" resolve the same.
func WFOName(office string) string {
	code := office
	if len(code) == 4 && code[0] == 'K' {
		code = code[1:]
	}
	if name, ok := wfoNames[code]; ok {
		return name
	}
	if code == "" {
		return ""
	}
	return "NWS " + code
}

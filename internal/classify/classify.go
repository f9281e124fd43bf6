// Package classify derives semantic metadata from free-text element names:
// the activity type, the equipment subtype, and the CWA code.
package classify

import (
	"regexp"
	"strings"
)

var (
	separators   = regexp.MustCompile(`[_\s]+`)
	installToken = regexp.MustCompile(`(?i)_Install_([A-Za-z0-9_]+)`)
	setToken     = regexp.MustCompile(`(?i)_Set_[A-Za-z0-9_]+`)
	civilToken   = regexp.MustCompile(`(?i)(^|_)civil[_ ]works($|_)`)

	cwaWithPrefix = regexp.MustCompile(`(?i)\bCWA\s*ASU\s*-\s*([A-Za-z0-9]+)`)
	cwaBare       = regexp.MustCompile(`(?i)\bASU\s*-\s*([A-Za-z0-9]+)`)
)

// TypeFromName derives the activity type from an element name. Rules in
// order, first match wins: an _Install_<Type> segment yields <Type> with
// underscores as spaces; an explicit Civil Works token yields "Civil Works";
// a _Set_<anything> segment yields "Equipment". Anything else yields "",
// which downstream treats as a valid terminal classification.
func TypeFromName(name string) string {
	if name == "" {
		return ""
	}
	s := separators.ReplaceAllString(strings.TrimSpace(name), "_")
	if m := installToken.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(strings.ReplaceAll(m[1], "_", " "))
	}
	if civilToken.MatchString(s) {
		return "Civil Works"
	}
	if setToken.MatchString(s) {
		return "Equipment"
	}
	return ""
}

// IsSet reports whether the name denotes a Set_* equipment placement.
func IsSet(name string) bool {
	if name == "" {
		return false
	}
	s := separators.ReplaceAllString(strings.TrimSpace(name), "_")
	return setToken.MatchString(s)
}

// CWAFromName extracts the construction work area code (the token after
// "ASU-", e.g. "1A01") from an element or layer name. Returns "" when the
// name carries no recognizable CWA.
func CWAFromName(name string) string {
	if name == "" {
		return ""
	}
	s := separators.ReplaceAllString(name, " ")
	if m := cwaWithPrefix.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := cwaBare.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// Equipment subtype patterns, most specific first.
var subtypePatterns = []struct {
	re      *regexp.Regexp
	subtype string
}{
	{regexp.MustCompile(`(^|[-_])V\d+($|[-_])|FV-\d+|PV-\d+`), "module_valve"},
	{regexp.MustCompile(`\bAHU\b`), "module_ahu"},
	{regexp.MustCompile(`XFMER|XFMR|TRANSFORMER`), "module_transformer"},
	{regexp.MustCompile(`SWITCHGEAR|SWGR|GEAR|MCC|PANEL\b|\bMV\b|\bLV\b`), "module_switchgear"},
	{regexp.MustCompile(`VAPORIZ(ER|OR)|HEATER|TRIM HEATER|STEAM SPARGED`), "module_vaporizer_heater"},
	{regexp.MustCompile(`COMPRESSOR|BOOSTER`), "module_compressor"},
	{regexp.MustCompile(`TANK|STORAGE|BUFFER|DUMP`), "module_tank"},
	{regexp.MustCompile(`VESSEL|ADSORBER|SILENCER\b`), "module_vessel"},
	{regexp.MustCompile(`CRANE`), "module_crane"},
	{regexp.MustCompile(`WEIGH|SCALE`), "module_weighscale"},
	{regexp.MustCompile(`MAC|BAC|PUMP|FAN`), "module_motor_pump_fan"},
	{regexp.MustCompile(`BUILDING`), "module_building_equipment"},
}

// EquipmentSubtype classifies a Set_* name into an equipment subtype used
// for duration assignment. Unrecognized names fall back to "module_other".
func EquipmentSubtype(name string) string {
	if name == "" {
		return "module_other"
	}
	s := strings.ToUpper(name)
	for _, p := range subtypePatterns {
		if p.re.MatchString(s) {
			return p.subtype
		}
	}
	return "module_other"
}

// Package propdesc splits a compound property-description string into
// building name, floor token, and unit token.
//
// Parsing is an ordered list of tagged pattern matchers rather than one
// catch-all regex: house-type listings (洋房/House) structurally lack a floor
// number but still carry a sequential unit number, and the standard
// floor/unit pattern silently drops it. Each matcher is independently
// testable and the parser reports which one fired.
package propdesc

import (
	"regexp"
	"strings"
)

// Unknown marks a floor or unit the parser refused to guess.
const Unknown = "unknown"

// Descriptor is the parsed (property_name, floor, unit) triple.
type Descriptor struct {
	PropertyName string
	Floor        string
	Unit         string
	Pattern      string
}

type matcher struct {
	name  string
	re    *regexp.Regexp
	build func(groups []string) Descriptor
}

var (
	// "<name> 12樓A室", "<name> 12樓 8室", "<name> 12/F A". Trailing deal
	// text after the unit token ("...A室 寫字樓成交") is ignored.
	standardCJK = regexp.MustCompile(`^(.*?)\s*(\d+)\s*[樓層]\s*([A-Za-z0-9]+)\s*[室號]?(?:\s+.*)?$`)
	standardEN  = regexp.MustCompile(`(?i)^(.*?)\s*(\d+)\s*/F\s+(?:unit\s+)?([A-Za-z0-9]+)(?:\s+.*)?$`)

	// "<name> House19", "<name> 洋房3" — marker token followed immediately
	// by a numeric sequence: no conventional floor exists. The English
	// marker must be a standalone word so names like "Warehouse 5" do not
	// false-match.
	houseEN  = regexp.MustCompile(`(?i)^(.+?)\s+(house|villa)\s*(\d+)(?:\s+.*)?$`)
	houseCJK = regexp.MustCompile(`^(.+?)\s*(洋房|獨立屋)\s*(\d+)(?:\s+.*)?$`)
)

func buildTriple(tag string) func(groups []string) Descriptor {
	return func(groups []string) Descriptor {
		return Descriptor{
			PropertyName: strings.TrimSpace(groups[1]),
			Floor:        groups[2],
			Unit:         groups[3],
			Pattern:      tag,
		}
	}
}

var matchers = []matcher{
	{name: "standard-cjk", re: standardCJK, build: buildTriple("standard-cjk")},
	{name: "standard-en", re: standardEN, build: buildTriple("standard-en")},
	{name: "house-en", re: houseEN, build: buildTriple("house-en")},
	{name: "house-cjk", re: houseCJK, build: buildTriple("house-cjk")},
}

// Parse runs the tagged matchers in order; first match wins. When nothing
// matches, floor and unit are Unknown and the full string is kept verbatim
// as the property name.
func Parse(description string) Descriptor {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return Descriptor{PropertyName: "", Floor: Unknown, Unit: Unknown, Pattern: "fallback"}
	}

	for _, m := range matchers {
		groups := m.re.FindStringSubmatch(trimmed)
		if groups == nil {
			continue
		}
		d := m.build(groups)
		if d.PropertyName == "" {
			// A bare "12樓A室" with no building name still parses; keep
			// going only when the matcher consumed the whole string as
			// floor/unit noise.
			d.PropertyName = trimmed
		}
		return d
	}

	return Descriptor{PropertyName: trimmed, Floor: Unknown, Unit: Unknown, Pattern: "fallback"}
}

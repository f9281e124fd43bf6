package resolve

import (
	"strings"

	"github.com/johns/sitewise/internal/activity"
)

// Zones indexes activities by CWA and, within each CWA, by normalized
// activity type. Built once per run and read-only afterward, so concurrent
// per-activity resolution can share it without locking.
type Zones struct {
	byCWA map[string]map[string][]int // cwa → type → indexes into the input slice
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BuildZones indexes the input activity set. Activities with an empty CWA
// belong to no zone: they are not indexed, so they neither find candidates
// nor serve as candidates for anything else.
func BuildZones(acts []activity.Activity) *Zones {
	z := &Zones{byCWA: make(map[string]map[string][]int)}
	for i, a := range acts {
		cwa := strings.TrimSpace(a.CWA)
		if cwa == "" {
			continue
		}
		byType, ok := z.byCWA[cwa]
		if !ok {
			byType = make(map[string][]int)
			z.byCWA[cwa] = byType
		}
		typ := normKey(a.Type)
		byType[typ] = append(byType[typ], i)
	}
	return z
}

// Candidates returns the indexes of same-CWA activities of the given type,
// excluding the activity at index self. An empty CWA has no candidates.
// The returned slice preserves input order.
func (z *Zones) Candidates(cwa, typ string, self int) []int {
	key := strings.TrimSpace(cwa)
	if key == "" {
		return nil
	}
	byType, ok := z.byCWA[key]
	if !ok {
		return nil
	}
	group := byType[normKey(typ)]
	var out []int
	for _, i := range group {
		if i != self {
			out = append(out, i)
		}
	}
	return out
}

package parser

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Match tells how a business name was resolved
type Match int

const (
	MatchNone Match = iota
	MatchExact
	MatchPartial
	MatchCanonical
)

// DefaultBusinesses are the canonical business names
var DefaultBusinesses = []string{
	"La Glorieta",
	"La Glorieta Express",
	"Salomé Restaurante",
	"Salomé Heladería",
}

// DefaultAliases maps names printed by the POS to canonical business names
var DefaultAliases = map[string]string{
	"la glorieta":               "La Glorieta",
	"glorieta":                  "La Glorieta",
	"la glorieta express":       "La Glorieta Express",
	"glorieta express":          "La Glorieta Express",
	"la glorieta original":      "La Glorieta Express",
	"salome delicatessen resto": "Salomé Restaurante",
	"salomé delicatessen resto": "Salomé Restaurante",
	"salome restaurante":        "Salomé Restaurante",
	"salomé restaurante":        "Salomé Restaurante",
	"salome heladeria":          "Salomé Heladería",
	"salomé heladería":          "Salomé Heladería",
	"salome heladería":          "Salomé Heladería",
	"salomé heladeria":          "Salomé Heladería",
}

type alias struct {
	key       string
	canonical string
}

// BusinessResolver maps free-text business names to canonical names
type BusinessResolver struct {
	aliases    map[string]string
	ordered    []alias
	canonicals map[string]string
}

// NewBusinessResolver builds a resolver from an alias table and canonical list
func NewBusinessResolver(aliases map[string]string, businesses []string) *BusinessResolver {
	r := &BusinessResolver{
		aliases:    make(map[string]string, len(aliases)),
		canonicals: make(map[string]string, len(businesses)),
	}
	for k, v := range aliases {
		key := r.normalize(k)
		if _, dup := r.aliases[key]; dup || key == "" {
			continue
		}
		r.aliases[key] = v
		r.ordered = append(r.ordered, alias{key: key, canonical: v})
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].key < r.ordered[j].key })
	for _, b := range businesses {
		r.canonicals[r.normalize(b)] = b
	}
	return r
}

// normalize folds case for comparison. Casers are not safe for concurrent
// use, so one is created per call.
func (r *BusinessResolver) normalize(s string) string {
	return strings.TrimSpace(cases.Fold().String(strings.TrimSpace(s)))
}

// Resolve returns the canonical name for name. Lookup order: exact alias,
// alias contained in name or containing it, canonical name ignoring case.
// Unresolved names are returned unchanged with MatchNone.
//
// When several aliases match partially the longest shared text wins; among
// equally long matches the shortest alias wins, then the alphabetically
// first one.
func (r *BusinessResolver) Resolve(name string) (string, Match) {
	key := r.normalize(name)
	if key == "" {
		return "", MatchNone
	}

	if canonical, ok := r.aliases[key]; ok {
		return canonical, MatchExact
	}

	var best *alias
	bestLen := 0
	for i := range r.ordered {
		a := &r.ordered[i]
		var n int
		switch {
		case strings.Contains(key, a.key):
			n = len(a.key)
		case strings.Contains(a.key, key):
			n = len(key)
		default:
			continue
		}
		if best == nil || n > bestLen || (n == bestLen && len(a.key) < len(best.key)) {
			best, bestLen = a, n
		}
	}
	if best != nil {
		return best.canonical, MatchPartial
	}

	if canonical, ok := r.canonicals[key]; ok {
		return canonical, MatchCanonical
	}

	return strings.TrimSpace(name), MatchNone
}

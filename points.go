package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownPoint = errors.New("unknown point")

// Point is a city or stop the target site knows by numeric id.
type Point struct {
	Key       string
	ID        string
	Canonical string
	Aliases   []string
}

// pointIndex is built once at startup and never modified.
type pointIndex struct {
	points  []Point
	byID    map[string]int
	byAlias map[string]int
	aliases []string // sorted, for deterministic partial matching
}

var points = newPointIndex([]Point{
	{
		Key:       "vilnius",
		ID:        "78",
		Canonical: "Vilnius",
		Aliases:   []string{"vilnius", "вильнюс", "vilnyus", "wilno", "vilnius lt", "lt vilnius"},
	},
	{
		Key:       "minsk",
		ID:        "2",
		Canonical: "Minsk",
		Aliases:   []string{"minsk", "минск", "mensk", "by minsk"},
	},
	{
		Key:       "vilnius_airport",
		ID:        "2376",
		Canonical: "Vilnius Airport",
		Aliases:   []string{"vilnius airport", "аэропорт вильнюс", "ltu", "vno", "vilnius ltu", "аэропорт vilnius"},
	},
})

func newPointIndex(list []Point) *pointIndex {
	idx := &pointIndex{
		points:  list,
		byID:    make(map[string]int, len(list)),
		byAlias: make(map[string]int),
	}
	for i, p := range list {
		idx.byID[p.ID] = i
		for _, a := range p.Aliases {
			idx.byAlias[normalizePoint(a)] = i
		}
		// the canonical name is an alias too
		idx.byAlias[normalizePoint(p.Canonical)] = i
	}
	for a := range idx.byAlias {
		idx.aliases = append(idx.aliases, a)
	}
	sort.Strings(idx.aliases)
	return idx
}

func normalizePoint(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve accepts a numeric id or a name/alias. Unknown ids, unknown names and
// ambiguous partial names all yield ErrUnknownPoint.
func (idx *pointIndex) Resolve(token string) (Point, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return Point{}, fmt.Errorf("%w: empty", ErrUnknownPoint)
	}

	if isDigits(t) {
		if i, ok := idx.byID[t]; ok {
			return idx.points[i], nil
		}
		return Point{}, fmt.Errorf("%w: id %s", ErrUnknownPoint, t)
	}

	n := normalizePoint(t)
	if i, ok := idx.byAlias[n]; ok {
		return idx.points[i], nil
	}

	// partial match, only when it is unambiguous
	found := -1
	for _, a := range idx.aliases {
		if !strings.Contains(a, n) {
			continue
		}
		i := idx.byAlias[a]
		if found >= 0 && found != i {
			return Point{}, fmt.Errorf("%w: %q is ambiguous", ErrUnknownPoint, token)
		}
		found = i
	}
	if found < 0 {
		return Point{}, fmt.Errorf("%w: %q", ErrUnknownPoint, token)
	}
	return idx.points[found], nil
}

func (idx *pointIndex) CanonicalByID(id string) (string, bool) {
	i, ok := idx.byID[strings.TrimSpace(id)]
	if !ok {
		return "", false
	}
	return idx.points[i].Canonical, true
}

// List returns every point ordered by name, then id.
func (idx *pointIndex) List() []Point {
	return sortPoints(append([]Point(nil), idx.points...))
}

// Search matches q against keys, canonical names and aliases.
func (idx *pointIndex) Search(q string) []Point {
	n := normalizePoint(q)
	var out []Point
	for _, p := range idx.points {
		if strings.Contains(p.Key, n) || strings.Contains(strings.ToLower(p.Canonical), n) {
			out = append(out, p)
			continue
		}
		for _, a := range p.Aliases {
			if strings.Contains(strings.ToLower(a), n) {
				out = append(out, p)
				break
			}
		}
	}
	return sortPoints(out)
}

func sortPoints(ps []Point) []Point {
	sort.Slice(ps, func(i, j int) bool {
		a, b := strings.ToLower(ps[i].Canonical), strings.ToLower(ps[j].Canonical)
		if a != b {
			return a < b
		}
		return ps[i].ID < ps[j].ID
	})
	return ps
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

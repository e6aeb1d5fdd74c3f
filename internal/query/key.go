// Package query caches REST reads under composite keys and invalidates them
// by key prefix after mutations.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SortDir is the sort direction sent to list endpoints.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// Toggle returns the opposite direction.
func (d SortDir) Toggle() SortDir {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Key identifies one cached read. Its parts are ordered:
// resource, scope, page, page size, sort field, sort direction, filters.
type Key struct {
	Resource  string
	Scope     string
	Page      int
	PageSize  int
	SortField string
	SortDir   SortDir
	// Filters with empty values are ignored.
	Filters map[string]string
}

// Parts returns the ordered tuple the key is compared by. Filters are sorted
// by name so equal filter sets produce equal keys.
func (k Key) Parts() []string {
	parts := []string{
		k.Resource,
		k.Scope,
		strconv.Itoa(k.Page),
		strconv.Itoa(k.PageSize),
		k.SortField,
		string(k.SortDir),
	}
	names := make([]string, 0, len(k.Filters))
	for name, v := range k.Filters {
		if v != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+"="+k.Filters[name])
	}
	return parts
}

// String is the canonical cache key.
func (k Key) String() string {
	parts := k.Parts()
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, "|")
}

// Prefix matches keys whose leading parts are equal to it.
type Prefix []string

// Resource returns a prefix matching every key of resource, optionally
// narrowed to one scope.
func Resource(resource string, scope ...string) Prefix {
	return append(Prefix{resource}, scope...)
}

// Matches reports whether parts begins with p. An empty prefix matches all.
func (p Prefix) Matches(parts []string) bool {
	if len(p) > len(parts) {
		return false
	}
	for i := range p {
		if p[i] != parts[i] {
			return false
		}
	}
	return true
}

// MatchesKey is Matches applied to a Key.
func (p Prefix) MatchesKey(k Key) bool {
	return p.Matches(k.Parts())
}

func (p Prefix) resource() string {
	if len(p) == 0 {
		return "*"
	}
	return p[0]
}

package ids

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

const Sep = ":"

var ErrMalformed = errors.New("malformed identifier")

// ResourceID is a namespace-qualified identifier such as "core:stone".
type ResourceID struct {
	Namespace string
	Path      string
}

func (r ResourceID) String() string { return r.Namespace + Sep + r.Path }

func ParseResourceID(s string) (ResourceID, error) {
	ns, path, ok := strings.Cut(s, Sep)
	if !ok {
		return ResourceID{}, fmt.Errorf("%w: %q has no namespace", ErrMalformed, s)
	}
	if !validNamespace(ns) || !validPath(path) {
		return ResourceID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return ResourceID{Namespace: ns, Path: path}, nil
}

// ItemRef is an item identifier with an optional numeric variant suffix:
// "ns:item" or "ns:item:variant". Variant 0 is never written.
type ItemRef struct {
	ID      ResourceID
	Variant int
}

func (r ItemRef) String() string {
	if r.Variant == 0 {
		return r.ID.String()
	}
	return r.ID.String() + Sep + strconv.Itoa(r.Variant)
}

func ParseItemRef(s string) (ItemRef, error) {
	parts := strings.Split(s, Sep)
	switch len(parts) {
	case 2, 3:
	default:
		return ItemRef{}, fmt.Errorf("%w: item %q", ErrMalformed, s)
	}
	if !validNamespace(parts[0]) || !validPath(parts[1]) {
		return ItemRef{}, fmt.Errorf("%w: item %q", ErrMalformed, s)
	}
	ref := ItemRef{ID: ResourceID{Namespace: parts[0], Path: parts[1]}}
	if len(parts) == 3 {
		v, err := strconv.Atoi(parts[2])
		if err != nil || v < 0 {
			return ItemRef{}, fmt.Errorf("%w: item %q has bad variant", ErrMalformed, s)
		}
		ref.Variant = v
	}
	return ref, nil
}

func validNamespace(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-', c == '.':
		default:
			return false
		}
	}
	return true
}

func validPath(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-', c == '.', c == '/':
		default:
			return false
		}
	}
	return true
}

// Closest returns the candidate nearest to id by edit distance, or "" when
// nothing is within half of id's length.
func Closest(id string, candidates []string) string {
	if id == "" || len(candidates) == 0 {
		return ""
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDist := "", len(id)/2+1
	for _, c := range sorted {
		d := levenshtein.ComputeDistance(id, c)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

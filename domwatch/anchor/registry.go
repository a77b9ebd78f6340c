package anchor

import (
	"context"
	"fmt"
)

// Registry maps every anchor name to its lookup.
type Registry struct {
	lookups map[Name]Lookup
}

// NewRegistry starts from DefaultLookups and applies overrides. Overrides
// with an empty lookup are ignored.
func NewRegistry(overrides map[Name]Lookup) *Registry {
	lookups := DefaultLookups()
	for name, l := range overrides {
		if l.Empty() {
			continue
		}
		lookups[name] = l
	}
	return &Registry{lookups: lookups}
}

// Lookup returns the lookup configured for name.
func (r *Registry) Lookup(name Name) (Lookup, bool) {
	l, ok := r.lookups[name]
	return l, ok
}

// Resolve finds every anchor in doc. All misses are collected into a single
// *MissingAnchorError; a lookup failing for another reason aborts with that
// error.
func (r *Registry) Resolve(ctx context.Context, doc Document) (*Set, error) {
	found := make(map[Name]Element, len(Names))
	var missing []Name

	for _, name := range Names {
		l, ok := r.lookups[name]
		if !ok || l.Empty() {
			missing = append(missing, name)
			continue
		}
		el, err := doc.Find(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("anchor: find %s (%s): %w", name, l, err)
		}
		if el == nil {
			missing = append(missing, name)
			continue
		}
		found[name] = el
	}

	if len(missing) > 0 {
		return nil, &MissingAnchorError{Names: missing}
	}
	return &Set{elems: found}, nil
}

// Set is a complete, resolved set of anchors.
type Set struct {
	elems map[Name]Element
}

// NewSet builds a Set from already resolved elements. Every name in Names
// must be present.
func NewSet(elems map[Name]Element) (*Set, error) {
	var missing []Name
	for _, name := range Names {
		if elems[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingAnchorError{Names: missing}
	}
	cp := make(map[Name]Element, len(elems))
	for k, v := range elems {
		cp[k] = v
	}
	return &Set{elems: cp}, nil
}

// Get returns the element for name. It never returns nil for a name in Names.
func (s *Set) Get(name Name) Element {
	return s.elems[name]
}

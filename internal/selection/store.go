// Package selection tracks the tool catalog, the tools permitted at the
// current usage level, and the tools the user picked.
package selection

import "slices"

// ToolState describes one catalog entry for rendering.
type ToolState struct {
	Name     string `json:"name"`
	Allowed  bool   `json:"allowed"`
	Selected bool   `json:"selected"`
}

// Store keeps SelectedTools a subset of AllowedTools at all times.
// It is not safe for concurrent use; the session controller serializes access.
type Store struct {
	catalog  []string
	allowed  map[string]bool
	selected []string // Selection order
}

// NewStore creates an empty store. Nothing is allowed until SetAllowed.
func NewStore() *Store {
	return &Store{allowed: map[string]bool{}, selected: []string{}}
}

// SetCatalog replaces the catalog. Duplicate names are dropped, keeping the
// first occurrence. Allowed and selected tools outside the new catalog are
// discarded.
func (s *Store) SetCatalog(tools []string) {
	seen := make(map[string]bool, len(tools))
	catalog := make([]string, 0, len(tools))
	for _, t := range tools {
		if seen[t] {
			continue
		}
		seen[t] = true
		catalog = append(catalog, t)
	}
	s.catalog = catalog
	for name := range s.allowed {
		if !seen[name] {
			delete(s.allowed, name)
		}
	}
	s.reconcile()
}

// Catalog returns a copy of the catalog in order.
func (s *Store) Catalog() []string {
	return slices.Clone(s.catalog)
}

// SetAllowed replaces the allowed set wholesale and deselects anything no
// longer permitted before returning. With a catalog loaded, names outside it
// are ignored. It reports the tools that were auto-deselected.
func (s *Store) SetAllowed(tools []string) []string {
	inCatalog := func(string) bool { return true }
	if len(s.catalog) > 0 {
		inCatalog = func(t string) bool { return slices.Contains(s.catalog, t) }
	}

	s.allowed = make(map[string]bool, len(tools))
	for _, t := range tools {
		if inCatalog(t) {
			s.allowed[t] = true
		}
	}
	return s.reconcile()
}

// reconcile drops selected tools that are not allowed.
func (s *Store) reconcile() []string {
	var dropped []string
	kept := s.selected[:0]
	for _, t := range s.selected {
		if s.allowed[t] {
			kept = append(kept, t)
		} else {
			dropped = append(dropped, t)
		}
	}
	s.selected = kept
	return dropped
}

// Toggle flips the selection of tool. It is a no-op returning false when the
// tool is not allowed.
func (s *Store) Toggle(tool string) bool {
	if !s.allowed[tool] {
		return false
	}
	if i := slices.Index(s.selected, tool); i >= 0 {
		s.selected = slices.Delete(s.selected, i, i+1)
	} else {
		s.selected = append(s.selected, tool)
	}
	return true
}

// IsAllowed reports whether tool is currently permitted.
func (s *Store) IsAllowed(tool string) bool {
	return s.allowed[tool]
}

// IsSelected reports whether tool is currently selected.
func (s *Store) IsSelected(tool string) bool {
	return slices.Contains(s.selected, tool)
}

// Selected returns the selected tools in selection order, never nil.
func (s *Store) Selected() []string {
	return append([]string{}, s.selected...)
}

// Allowed returns the allowed tools, in catalog order when a catalog is loaded.
func (s *Store) Allowed() []string {
	out := make([]string, 0, len(s.allowed))
	if len(s.catalog) > 0 {
		for _, t := range s.catalog {
			if s.allowed[t] {
				out = append(out, t)
			}
		}
		return out
	}
	for t := range s.allowed {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// States returns one entry per catalog tool for rendering.
func (s *Store) States() []ToolState {
	out := make([]ToolState, len(s.catalog))
	for i, t := range s.catalog {
		out[i] = ToolState{Name: t, Allowed: s.allowed[t], Selected: s.IsSelected(t)}
	}
	return out
}

// internal/domain/selection.go
package domain

import "sort"

// SelectionSet is an immutable set of selected mint identifiers.
// Every mutation returns a new set; the receiver is never modified.
type SelectionSet struct {
	items map[string]struct{}
}

// NewSelection builds a set from mints.
func NewSelection(mints ...string) SelectionSet {
	items := make(map[string]struct{}, len(mints))
	for _, m := range mints {
		items[m] = struct{}{}
	}
	return SelectionSet{items: items}
}

// Has reports whether mint is selected.
func (s SelectionSet) Has(mint string) bool {
	_, ok := s.items[mint]
	return ok
}

// Len returns the number of selected mints.
func (s SelectionSet) Len() int {
	return len(s.items)
}

// Toggle returns a copy with mint flipped.
func (s SelectionSet) Toggle(mint string) SelectionSet {
	next := make(map[string]struct{}, len(s.items)+1)
	for k := range s.items {
		next[k] = struct{}{}
	}
	if _, ok := next[mint]; ok {
		delete(next, mint)
	} else {
		next[mint] = struct{}{}
	}
	return SelectionSet{items: next}
}

// ToggleAll selects every mint in all, or clears the set when all of them are
// already selected.
func (s SelectionSet) ToggleAll(all []string) SelectionSet {
	if len(all) > 0 {
		everything := true
		for _, m := range all {
			if !s.Has(m) {
				everything = false
				break
			}
		}
		if !everything {
			return NewSelection(all...)
		}
	}
	return SelectionSet{}
}

// Retain drops selected mints that are not in present.
func (s SelectionSet) Retain(present []string) SelectionSet {
	keep := make([]string, 0, len(s.items))
	for _, m := range present {
		if s.Has(m) {
			keep = append(keep, m)
		}
	}
	return NewSelection(keep...)
}

// Mints returns the selected mints in sorted order.
func (s SelectionSet) Mints() []string {
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Select filters records down to those whose mint is selected, preserving order.
func (s SelectionSet) Select(records []TokenAccountRecord) []TokenAccountRecord {
	out := make([]TokenAccountRecord, 0, len(s.items))
	for _, r := range records {
		if s.Has(r.MintKey()) {
			out = append(out, r)
		}
	}
	return out
}

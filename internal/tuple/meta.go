// Package tuple implements the fixed-shape value containers that cross every
// call boundary in the runtime. A Tuple is an ordered sequence of typed slots,
// each independently empty or initialized; its shape is described by a Meta.
//
// The calling convention built on top of these containers transfers ownership
// of initialized input slots to the callee. See the fn package for the
// drivers that enforce it.
package tuple

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Entry describes one slot of a tuple shape: a name, a value type and an
// optional default. A zero Default (cty.NilVal) means "null of the slot type".
type Entry struct {
	Name    string
	Type    cty.Type
	Default cty.Value
}

// Meta is the immutable shape of a Tuple: an ordered list of named, typed
// slots. Two tuples are call-compatible only if their Metas are structurally
// equal.
type Meta struct {
	entries []Entry
	byName  map[string]int
}

// NewMeta builds a Meta from the given entries. Duplicate slot names panic;
// shapes are authored by code, not by users, so this is a programming error.
func NewMeta(entries ...Entry) *Meta {
	m := &Meta{
		entries: make([]Entry, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	copy(m.entries, entries)
	for i, e := range entries {
		if _, exists := m.byName[e.Name]; exists {
			panic(fmt.Sprintf("tuple: duplicate slot name %q", e.Name))
		}
		m.byName[e.Name] = i
	}
	return m
}

// Len returns the number of slots.
func (m *Meta) Len() int {
	return len(m.entries)
}

// Name returns the name of slot i.
func (m *Meta) Name(i int) string {
	return m.entries[i].Name
}

// Type returns the declared type of slot i.
func (m *Meta) Type(i int) cty.Type {
	return m.entries[i].Type
}

// Default returns the default value for slot i. If no explicit default was
// declared it is the null value of the slot type, which still counts as
// initialized under the calling convention.
func (m *Meta) Default(i int) cty.Value {
	if m.entries[i].Default == cty.NilVal {
		return cty.NullVal(m.entries[i].Type)
	}
	return m.entries[i].Default
}

// IndexOf returns the slot index for a name.
func (m *Meta) IndexOf(name string) (int, bool) {
	i, ok := m.byName[name]
	return i, ok
}

// Names returns the slot names in declaration order.
func (m *Meta) Names() []string {
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.Name
	}
	return names
}

// Equals reports structural equality: same length, same names, same types,
// in the same order. Defaults are not part of call compatibility.
func (m *Meta) Equals(other *Meta) bool {
	if m.Len() != other.Len() {
		return false
	}
	for i := range m.entries {
		if m.entries[i].Name != other.entries[i].Name {
			return false
		}
		if !m.entries[i].Type.Equals(other.entries[i].Type) {
			return false
		}
	}
	return true
}

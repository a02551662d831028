package tuple

import (
	"errors"
	"fmt"
	"io"

	"github.com/zclconf/go-cty/cty"
)

// Sentinel errors for slot state and type violations. They are wrapped with
// slot context by the methods below, so match with errors.Is.
var (
	// ErrSlotEmpty is returned when reading or moving out of a slot that is
	// not initialized.
	ErrSlotEmpty = errors.New("slot is not initialized")
	// ErrSlotType is returned when a value's type does not exactly match the
	// slot's declared type. There is no implicit widening.
	ErrSlotType = errors.New("value type does not match slot type")
	// ErrSlotRange is returned for an out-of-range slot index.
	ErrSlotRange = errors.New("slot index out of range")
)

// Tuple is a fixed-shape container of typed slots with explicit per-slot
// initialization state. It is not safe for concurrent use; every call owns
// its own tuples.
type Tuple struct {
	meta   *Meta
	values []cty.Value
	filled []bool
}

// New allocates a Tuple for the given shape with all slots empty.
func New(meta *Meta) *Tuple {
	return &Tuple{
		meta:   meta,
		values: make([]cty.Value, meta.Len()),
		filled: make([]bool, meta.Len()),
	}
}

// Meta returns the tuple's shape.
func (t *Tuple) Meta() *Meta {
	return t.meta
}

func (t *Tuple) check(i int) error {
	if i < 0 || i >= t.meta.Len() {
		return fmt.Errorf("%w: %d (len %d)", ErrSlotRange, i, t.meta.Len())
	}
	return nil
}

// Set initializes slot i with v, destroying any value already there. The
// value type must match the slot type exactly.
func (t *Tuple) Set(i int, v cty.Value) error {
	if err := t.check(i); err != nil {
		return err
	}
	if !v.Type().Equals(t.meta.Type(i)) {
		return fmt.Errorf("slot %q: %w: got %s, want %s",
			t.meta.Name(i), ErrSlotType, v.Type().FriendlyName(), t.meta.Type(i).FriendlyName())
	}
	if t.filled[i] {
		dropValue(t.values[i])
	}
	t.values[i] = v
	t.filled[i] = true
	return nil
}

// SetByName is Set addressed by slot name.
func (t *Tuple) SetByName(name string, v cty.Value) error {
	i, ok := t.meta.IndexOf(name)
	if !ok {
		return fmt.Errorf("%w: no slot named %q", ErrSlotRange, name)
	}
	return t.Set(i, v)
}

// Get returns the value in slot i without changing its state.
func (t *Tuple) Get(i int) (cty.Value, error) {
	if err := t.check(i); err != nil {
		return cty.NilVal, err
	}
	if !t.filled[i] {
		return cty.NilVal, fmt.Errorf("slot %q: %w", t.meta.Name(i), ErrSlotEmpty)
	}
	return t.values[i], nil
}

// GetByName is Get addressed by slot name.
func (t *Tuple) GetByName(name string) (cty.Value, error) {
	i, ok := t.meta.IndexOf(name)
	if !ok {
		return cty.NilVal, fmt.Errorf("%w: no slot named %q", ErrSlotRange, name)
	}
	return t.Get(i)
}

// MoveOut transfers the value out of slot i, leaving it empty. This is the
// callee's way of taking ownership of an input without a copy.
func (t *Tuple) MoveOut(i int) (cty.Value, error) {
	v, err := t.Get(i)
	if err != nil {
		return cty.NilVal, err
	}
	t.values[i] = cty.NilVal
	t.filled[i] = false
	return v, nil
}

// IsInitialized reports whether slot i holds a value.
func (t *Tuple) IsInitialized(i int) bool {
	if i < 0 || i >= len(t.filled) {
		return false
	}
	return t.filled[i]
}

// FullyInitialized reports whether every slot holds a value.
func (t *Tuple) FullyInitialized() bool {
	for _, f := range t.filled {
		if !f {
			return false
		}
	}
	return true
}

// InitDefaults fills every empty slot with its declared default. Already
// initialized slots are left alone.
func (t *Tuple) InitDefaults() {
	for i := range t.filled {
		if !t.filled[i] {
			t.values[i] = t.meta.Default(i)
			t.filled[i] = true
		}
	}
}

// DestroySlot drops the value in slot i, if any, leaving the slot empty.
func (t *Tuple) DestroySlot(i int) {
	if i < 0 || i >= len(t.filled) || !t.filled[i] {
		return
	}
	dropValue(t.values[i])
	t.values[i] = cty.NilVal
	t.filled[i] = false
}

// Destroy drops every still-initialized slot. The framework calls this on
// input tuples after a body returns, so values the callee did not move out
// are reliably released.
func (t *Tuple) Destroy() {
	for i := range t.filled {
		t.DestroySlot(i)
	}
}

// dropValue releases a value leaving a slot. cty values are garbage
// collected, but capsule payloads may hold real resources; a payload that
// implements io.Closer is closed here.
func dropValue(v cty.Value) {
	if v == cty.NilVal || v.IsNull() || !v.Type().IsCapsuleType() {
		return
	}
	if closer, ok := v.EncapsulatedValue().(io.Closer); ok {
		closer.Close()
	}
}

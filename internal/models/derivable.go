package models

// Derivable wraps an auto-derived field value together with a marker
// recording whether the user has explicitly overridden it. Recalculation
// writes through SetDerived, which is a no-op once the field has been
// overridden, so a manual edit is never silently reverted.
type Derivable[T any] struct {
	Value      T
	Overridden bool
}

// Derived returns a Derivable holding an auto-computed value.
func Derived[T any](v T) Derivable[T] {
	return Derivable[T]{Value: v}
}

// Overridden returns a Derivable holding a user-supplied value that
// recalculation must preserve.
func Overridden[T any](v T) Derivable[T] {
	return Derivable[T]{Value: v, Overridden: true}
}

// SetDerived updates the value only if the field is still auto-derived.
func (d *Derivable[T]) SetDerived(v T) {
	if d.Overridden {
		return
	}
	d.Value = v
}

// Override forces a user-supplied value and marks the field as overridden.
func (d *Derivable[T]) Override(v T) {
	d.Value = v
	d.Overridden = true
}

// ClearOverride reverts the field to auto-derived tracking, keeping the
// current value until the next recalculation replaces it.
func (d *Derivable[T]) ClearOverride() {
	d.Overridden = false
}

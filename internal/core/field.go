package core

// FieldOp says what an update does to one attribute.
type FieldOp uint8

const (
	NoChange FieldOp = iota
	SetOp
	ClearOp
)

// Field is a tri-state update value: leave the stored attribute alone, set
// it, or clear it. The zero Field is NoChange, so an input struct built from
// a sparse row only touches the columns the row actually carried.
type Field[T any] struct {
	op FieldOp
	v  T
}

// Set returns a Field that overwrites the attribute with v.
func Set[T any](v T) Field[T] {
	return Field[T]{op: SetOp, v: v}
}

// Clear returns a Field that resets the attribute to its zero value.
func Clear[T any]() Field[T] {
	return Field[T]{op: ClearOp}
}

func (f Field[T]) Op() FieldOp      { return f.op }
func (f Field[T]) IsSet() bool      { return f.op == SetOp }
func (f Field[T]) IsClear() bool    { return f.op == ClearOp }
func (f Field[T]) IsNoChange() bool { return f.op == NoChange }

// Value returns the new value when the op is SetOp.
func (f Field[T]) Value() (T, bool) {
	return f.v, f.op == SetOp
}

// Or returns the set value, or def otherwise.
func (f Field[T]) Or(def T) T {
	if f.op == SetOp {
		return f.v
	}
	return def
}

// ApplyTo writes the update into dst.
func (f Field[T]) ApplyTo(dst *T) {
	switch f.op {
	case SetOp:
		*dst = f.v
	case ClearOp:
		var zero T
		*dst = zero
	}
}

// ApplyToPtr writes the update into a nullable attribute.
func (f Field[T]) ApplyToPtr(dst **T) {
	switch f.op {
	case SetOp:
		v := f.v
		*dst = &v
	case ClearOp:
		*dst = nil
	}
}

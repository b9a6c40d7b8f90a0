package rowform

import (
	"reflect"
	"time"
)

// Accessor reads and writes one named field of a row. It is the untyped view of
// a [Field] used by drafts and the validator.
type Accessor[R any] interface {
	Name() string
	Load(row *R) any
	Store(row *R, v any)
	Equal(a, b any) bool
	FormatAny(v any) string
	ParseAny(raw string) (any, error)
	// StructField names the struct field carrying declarative rules.
	// Empty means the field has no tag source.
	StructField() string
}

// Field is a statically known accessor for a value of type V on row type R.
// Get and Set are resolved once and reused for every row.
type Field[R any, V any] struct {
	// Key is the field name used in drafts, errors, and events.
	Key string
	Get func(*R) V
	Set func(*R, V)

	// Tag names the struct field of R whose rowform tag holds declarative
	// rules. Defaults to Key.
	Tag string

	// Optional overrides. Defaults are value equality, FormatValue, and Coerce.
	Eq     func(a, b V) bool
	Format func(V) string
	Parse  func(string) (V, error)
}

// NewField returns a field with the given name and accessors.
func NewField[R any, V any](name string, get func(*R) V, set func(*R, V)) Field[R, V] {
	return Field[R, V]{Key: name, Get: get, Set: set}
}

func (f Field[R, V]) Name() string { return f.Key }

func (f Field[R, V]) StructField() string {
	if f.Tag != "" {
		return f.Tag
	}
	return f.Key
}

func (f Field[R, V]) Load(row *R) any {
	if row == nil || f.Get == nil {
		var zero V
		return zero
	}
	return f.Get(row)
}

func (f Field[R, V]) Store(row *R, v any) {
	if row == nil || f.Set == nil {
		return
	}
	typed, ok := v.(V)
	if !ok && v != nil {
		return
	}
	f.Set(row, typed)
}

func (f Field[R, V]) Equal(a, b any) bool {
	if f.Eq != nil {
		ta, aok := a.(V)
		tb, bok := b.(V)
		if aok && bok {
			return f.Eq(ta, tb)
		}
	}
	return valuesEqual(a, b)
}

func (f Field[R, V]) FormatAny(v any) string {
	if f.Format != nil {
		if typed, ok := v.(V); ok {
			return f.Format(typed)
		}
	}
	return FormatValue(v)
}

func (f Field[R, V]) ParseAny(raw string) (any, error) {
	if f.Parse != nil {
		return f.Parse(raw)
	}
	return Coerce[V](raw)
}

type equaler[T any] interface {
	Equal(T) bool
}

// valuesEqual compares by the type's own Equal method when it has one
// (time.Time, for example), otherwise by deep value equality.
func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case equaler[any]:
		return av.Equal(b)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if m := reflect.ValueOf(a).MethodByName("Equal"); m.IsValid() {
		t := m.Type()
		bv := reflect.ValueOf(b)
		if t.NumIn() == 1 && t.NumOut() == 1 && t.Out(0).Kind() == reflect.Bool && bv.Type().AssignableTo(t.In(0)) {
			return m.Call([]reflect.Value{bv})[0].Bool()
		}
	}
	return reflect.DeepEqual(a, b)
}

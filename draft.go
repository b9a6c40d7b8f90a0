package rowform

import (
	"context"
	"maps"
	"slices"
	"sync"
	"weak"

	"github.com/oklog/ulid/v2"
)

// ApplyFunc writes one committed field value back to the live row.
type ApplyFunc[R any] func(row *R, field string, value any)

// ValidateFunc checks a single candidate field value.
type ValidateFunc[R any] func(ctx context.Context, field string, value any, row *R) []string

// Draft holds the original and in-progress values of one row's fields, plus
// the most recent validation errors. Values are captured lazily from the live
// row the first time a field is read or written.
//
// A Draft refers to its row weakly. Once the row has been collected, reads of
// untouched fields return nil and Commit is a no-op.
type Draft[R any] struct {
	mu       sync.Mutex
	id       ulid.ULID
	row      weak.Pointer[R]
	fields   map[string]Accessor[R]
	order    []string
	original map[string]any
	draft    map[string]any
	errors   map[string][]string
	frozen   bool
	validate ValidateFunc[R]
}

// NewDraft returns an empty draft for row tracking the given fields. Fields
// not in the list are ignored by Get and Set.
func NewDraft[R any](row *R, fields ...Accessor[R]) *Draft[R] {
	d := &Draft[R]{
		id:       ulid.Make(),
		row:      weak.Make(row),
		fields:   make(map[string]Accessor[R], len(fields)),
		original: make(map[string]any),
		draft:    make(map[string]any),
		errors:   make(map[string][]string),
	}
	for _, f := range fields {
		d.fields[f.Name()] = f
	}
	return d
}

// ID returns the session identifier assigned when the draft was created.
func (d *Draft[R]) ID() ulid.ULID { return d.id }

// Row returns the live row, or nil if it has been collected.
func (d *Draft[R]) Row() *R { return d.row.Value() }

// Get returns the draft value of field.
func (d *Draft[R]) Get(field string) any {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, _ := d.touch(field)
	return v
}

// touch captures field from the live row if it has not been seen yet.
// Callers hold d.mu.
func (d *Draft[R]) touch(field string) (any, bool) {
	if v, ok := d.draft[field]; ok {
		return v, true
	}
	acc, ok := d.fields[field]
	if !ok {
		return nil, false
	}
	var v any
	if row := d.row.Value(); row != nil {
		v = acc.Load(row)
	}
	d.original[field] = v
	d.draft[field] = v
	d.order = append(d.order, field)
	return v, true
}

// Set overwrites the draft value of field. It does not validate. Writes are
// ignored while the draft is frozen for saving.
func (d *Draft[R]) Set(field string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frozen {
		return
	}
	if _, ok := d.touch(field); !ok {
		return
	}
	d.draft[field] = value
}

// Text returns the draft value of field formatted for display.
func (d *Draft[R]) Text(field string) string {
	v := d.Get(field)
	if acc, ok := d.fields[field]; ok {
		return acc.FormatAny(v)
	}
	return FormatValue(v)
}

// SetText parses raw with the field's parser and stores the result.
// A parse failure is recorded as the field's error and the draft is left unchanged.
func (d *Draft[R]) SetText(field, raw string) error {
	acc, ok := d.fields[field]
	if !ok {
		return nil
	}
	v, err := acc.ParseAny(raw)
	if err != nil {
		d.mu.Lock()
		d.errors[field] = []string{err.Error()}
		d.mu.Unlock()
		return err
	}
	d.Set(field, v)
	return nil
}

// IsDirty reports whether field differs from its captured original.
func (d *Draft[R]) IsDirty(field string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty(field)
}

func (d *Draft[R]) dirty(field string) bool {
	cur, ok := d.draft[field]
	if !ok {
		return false
	}
	orig := d.original[field]
	if acc, ok := d.fields[field]; ok {
		return !acc.Equal(cur, orig)
	}
	return !valuesEqual(cur, orig)
}

// Dirty reports whether any field differs from its original.
func (d *Draft[R]) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.order {
		if d.dirty(f) {
			return true
		}
	}
	return false
}

// Fields returns the tracked field names in first-touch order.
func (d *Draft[R]) Fields() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.order)
}

// Values returns a copy of every tracked draft value.
func (d *Draft[R]) Values() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.draft)
}

// Changes returns the draft values of dirty fields only.
func (d *Draft[R]) Changes() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]any)
	for _, f := range d.order {
		if d.dirty(f) {
			out[f] = d.draft[f]
		}
	}
	return out
}

// Commit writes every draft value to the live row through apply, or through
// the field setters when apply is nil, then makes the committed values the new
// originals. It returns the committed values.
func (d *Draft[R]) Commit(apply ApplyFunc[R]) map[string]any {
	d.mu.Lock()
	order := slices.Clone(d.order)
	values := maps.Clone(d.draft)
	fields := d.fields
	d.mu.Unlock()

	if row := d.row.Value(); row != nil {
		for _, f := range order {
			v := values[f]
			if apply != nil {
				apply(row, f, v)
			} else if acc, ok := fields[f]; ok {
				acc.Store(row, v)
			}
		}
	}

	d.mu.Lock()
	maps.Copy(d.original, values)
	d.mu.Unlock()
	return values
}

// Revert discards every draft change and clears all errors.
func (d *Draft[R]) Revert() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draft = maps.Clone(d.original)
	clear(d.errors)
}

// Errors returns the most recent validation errors for field.
func (d *Draft[R]) Errors(field string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.errors[field])
}

// AllErrors returns every field that currently has errors.
func (d *Draft[R]) AllErrors() map[string][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string][]string, len(d.errors))
	for f, errs := range d.errors {
		out[f] = slices.Clone(errs)
	}
	return out
}

// HasErrors reports whether any field has validation errors.
func (d *Draft[R]) HasErrors() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.errors) > 0
}

// Validate runs the wired validator against the draft value of field and
// stores the result. Without a validator it returns nil.
func (d *Draft[R]) Validate(ctx context.Context, field string) []string {
	v := d.Get(field)
	d.mu.Lock()
	fn := d.validate
	d.mu.Unlock()
	if fn == nil {
		return nil
	}
	errs := fn(ctx, field, v, d.row.Value())
	d.mu.Lock()
	if len(errs) == 0 {
		delete(d.errors, field)
	} else {
		d.errors[field] = slices.Clone(errs)
	}
	d.mu.Unlock()
	return errs
}

// Frozen reports whether the draft is rejecting writes during a save.
func (d *Draft[R]) Frozen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frozen
}

func (d *Draft[R]) setFrozen(v bool) {
	d.mu.Lock()
	d.frozen = v
	d.mu.Unlock()
}

func (d *Draft[R]) setValidator(fn ValidateFunc[R]) {
	d.mu.Lock()
	d.validate = fn
	d.mu.Unlock()
}

// setErrors replaces every stored error.
func (d *Draft[R]) setErrors(errs map[string][]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.errors)
	for f, e := range errs {
		if len(e) > 0 {
			d.errors[f] = slices.Clone(e)
		}
	}
}

// GetValue returns the typed draft value of f.
func GetValue[R, V any](d *Draft[R], f Field[R, V]) V {
	v, _ := d.Get(f.Key).(V)
	return v
}

// SetValue stores a typed draft value for f.
func SetValue[R, V any](d *Draft[R], f Field[R, V], v V) {
	d.Set(f.Key, v)
}

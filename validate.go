package rowform

import (
	"context"
	"slices"
	"sync"
)

// CustomFunc is an application check run after the declarative rules of a
// field. It may block, for example on a remote uniqueness lookup, and is
// responsible for honoring ctx. It must not modify row.
type CustomFunc[R any] func(ctx context.Context, value any, row *R) []string

// Validator runs the declarative rules and custom checks registered per field
// of row type R. Rules are parsed once per field and reused for every row.
type Validator[R any] struct {
	mu     sync.RWMutex
	rules  map[string][]Rule
	custom map[string][]CustomFunc[R]
}

// NewValidator returns an empty validator.
func NewValidator[R any]() *Validator[R] {
	return &Validator[R]{
		rules:  make(map[string][]Rule),
		custom: make(map[string][]CustomFunc[R]),
	}
}

// RegisterField parses rules for field. Registering a field that already has
// rules is a no-op.
func (v *Validator[R]) RegisterField(field, rules string) error {
	v.mu.RLock()
	_, ok := v.rules[field]
	v.mu.RUnlock()
	if ok {
		return nil
	}
	parsed, err := ParseRules(rules)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.rules[field]; !ok {
		v.rules[field] = parsed
	}
	return nil
}

// RegisterStructField registers field using the rowform tag on the struct
// field of R named structField. A missing tag registers no rules.
func (v *Validator[R]) RegisterStructField(field, structField string) error {
	tag, _ := structTag[R](structField)
	return v.RegisterField(field, tag)
}

// AddCustom appends a custom check for field. Checks run in the order added.
func (v *Validator[R]) AddCustom(field string, fn CustomFunc[R]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.custom[field] = append(v.custom[field], fn)
}

// Rules returns the names of the declarative rules registered for field.
func (v *Validator[R]) Rules(field string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.rules[field]))
	for _, r := range v.rules[field] {
		names = append(names, r.Name)
	}
	return names
}

// Required reports whether field carries the required rule.
func (v *Validator[R]) Required(field string) bool {
	return slices.Contains(v.Rules(field), "required")
}

// ValidateField returns every failure message for value: first all failing
// declarative rules, then the messages of the custom checks.
func (v *Validator[R]) ValidateField(ctx context.Context, field string, value any, row *R) []string {
	v.mu.RLock()
	rules := v.rules[field]
	custom := slices.Clone(v.custom[field])
	v.mu.RUnlock()

	var errs []string
	for _, r := range rules {
		if msg := r.Check(field, value); msg != "" {
			errs = append(errs, msg)
		}
	}
	for _, fn := range custom {
		errs = append(errs, fn(ctx, value, row)...)
	}
	return errs
}

// ValidateAll validates every supplied field. Fields without errors are
// omitted, so an empty result means every value passed.
func (v *Validator[R]) ValidateAll(ctx context.Context, values map[string]any, row *R) map[string][]string {
	var out map[string][]string
	for field, value := range values {
		errs := v.ValidateField(ctx, field, value, row)
		if len(errs) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		out[field] = errs
	}
	return out
}

// Func adapts the validator to a draft's validation hook.
func (v *Validator[R]) Func() ValidateFunc[R] {
	return func(ctx context.Context, field string, value any, row *R) []string {
		return v.ValidateField(ctx, field, value, row)
	}
}

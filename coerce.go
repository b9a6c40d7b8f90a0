package rowform

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Coerce converts raw input text into a value of type V. Supported kinds are
// strings, bools, signed and unsigned integers, floats, time.Time (RFC 3339 or
// YYYY-MM-DD), and time.Duration. Pointer types accept the empty string as nil.
func Coerce[V any](raw string) (V, error) {
	var zero V
	out, err := coerceTo(reflect.TypeOf((*V)(nil)).Elem(), raw)
	if err != nil {
		return zero, err
	}
	v, ok := out.Interface().(V)
	if !ok {
		return zero, fmt.Errorf("%w: %q to %T", ErrCoerce, raw, zero)
	}
	return v, nil
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

func coerceTo(t reflect.Type, raw string) (reflect.Value, error) {
	trimmed := strings.TrimSpace(raw)
	fail := func(err error) (reflect.Value, error) {
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %q to %s: %v", ErrCoerce, raw, t, err)
		}
		return reflect.Value{}, fmt.Errorf("%w: %q to %s", ErrCoerce, raw, t)
	}

	switch t {
	case timeType:
		for _, layout := range []string{time.RFC3339, dateLayout} {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return reflect.ValueOf(ts), nil
			}
		}
		return fail(nil)
	case durationType:
		d, err := time.ParseDuration(trimmed)
		if err != nil {
			return fail(err)
		}
		return reflect.ValueOf(d), nil
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Pointer:
		if trimmed == "" {
			return out, nil
		}
		inner, err := coerceTo(t.Elem(), raw)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil
	case reflect.String:
		out.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return fail(err)
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(trimmed, 10, t.Bits())
		if err != nil {
			return fail(err)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(trimmed, 10, t.Bits())
		if err != nil {
			return fail(err)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(trimmed, t.Bits())
		if err != nil {
			return fail(err)
		}
		out.SetFloat(f)
	case reflect.Interface:
		if t.NumMethod() == 0 {
			out.Set(reflect.ValueOf(raw))
			return out, nil
		}
		return fail(nil)
	default:
		return fail(nil)
	}
	return out, nil
}

// FormatValue renders a value for display. Times without a clock component
// render as dates; nil pointers render as the empty string.
func FormatValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case fmt.Stringer:
		if t, ok := v.(time.Time); ok {
			if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
				return t.Format(dateLayout)
			}
			return t.Format(time.RFC3339)
		}
		return tv.String()
	case float32:
		return strconv.FormatFloat(float64(tv), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return FormatValue(rv.Elem().Interface())
	}
	return fmt.Sprintf("%v", v)
}

package rowform

import (
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// TagKey is the struct tag holding declarative field rules, for example:
//
//	Name string `rowform:"required,maxlen=40"`
const TagKey = "rowform"

// Rule is one declarative check parsed from a rule string.
type Rule struct {
	Name  string
	Arg   string
	check func(field string, v any) string
}

// Check returns the failure message for v, or "" when v passes.
func (r Rule) Check(field string, v any) string {
	return r.check(field, v)
}

// ParseRules parses a comma-separated rule string such as
// "required,min=1,max=99". A pattern rule consumes the rest of the string, so
// it may contain commas but must come last.
func ParseRules(s string) ([]Rule, error) {
	var out []Rule
	for s = strings.TrimSpace(s); s != ""; {
		var part string
		if strings.HasPrefix(s, "pattern=") {
			part, s = s, ""
		} else {
			part, s, _ = strings.Cut(s, ",")
			s = strings.TrimSpace(s)
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parseRule(part)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func parseRule(part string) (Rule, error) {
	name, arg, hasArg := strings.Cut(part, "=")
	r := Rule{Name: name, Arg: arg}
	needArg := func() error {
		if !hasArg || arg == "" {
			return fmt.Errorf("%w: %q requires an argument", ErrInvalidRule, name)
		}
		return nil
	}

	switch name {
	case "required":
		r.check = checkRequired
	case "email":
		r.check = checkEmail
	case "min", "max":
		if err := needArg(); err != nil {
			return Rule{}, err
		}
		bound, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %s=%q: %v", ErrInvalidRule, name, arg, err)
		}
		r.check = checkBound(name == "min", bound, arg)
	case "minlen", "maxlen", "maxwidth":
		if err := needArg(); err != nil {
			return Rule{}, err
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return Rule{}, fmt.Errorf("%w: %s=%q", ErrInvalidRule, name, arg)
		}
		r.check = checkLength(name, n)
	case "pattern":
		if err := needArg(); err != nil {
			return Rule{}, err
		}
		re, err := regexp.Compile(arg)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: pattern %q: %v", ErrInvalidRule, arg, err)
		}
		r.check = func(field string, v any) string {
			s := FormatValue(v)
			if s == "" || re.MatchString(s) {
				return ""
			}
			return fmt.Sprintf("%s has an invalid format", field)
		}
	case "oneof":
		if err := needArg(); err != nil {
			return Rule{}, err
		}
		options := strings.Split(arg, "|")
		r.check = func(field string, v any) string {
			s := FormatValue(v)
			if s == "" {
				return ""
			}
			for _, o := range options {
				if s == o {
					return ""
				}
			}
			return fmt.Sprintf("%s must be one of %s", field, strings.Join(options, ", "))
		}
	default:
		return Rule{}, fmt.Errorf("%w: unknown rule %q", ErrInvalidRule, name)
	}
	return r, nil
}

func checkRequired(field string, v any) string {
	if isBlank(v) {
		return fmt.Sprintf("%s is required", field)
	}
	return ""
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		// Numeric zero and false are legitimate values.
		return false
	default:
		return rv.IsZero()
	}
}

func checkEmail(field string, v any) string {
	s := FormatValue(v)
	if s == "" {
		return ""
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Sprintf("%s must be a valid email address", field)
	}
	return ""
}

func checkBound(lower bool, bound float64, arg string) func(string, any) string {
	return func(field string, v any) string {
		n, ok := numeric(v)
		if !ok {
			return ""
		}
		if lower && n < bound {
			return fmt.Sprintf("%s must be at least %s", field, arg)
		}
		if !lower && n > bound {
			return fmt.Sprintf("%s must be at most %s", field, arg)
		}
		return ""
	}
}

func numeric(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func checkLength(name string, n int) func(string, any) string {
	return func(field string, v any) string {
		var size int
		switch tv := v.(type) {
		case nil:
			return ""
		case string:
			if name == "maxwidth" {
				size = runewidth.StringWidth(tv)
			} else {
				size = utf8.RuneCountInString(tv)
			}
		default:
			rv := reflect.ValueOf(v)
			switch rv.Kind() {
			case reflect.Slice, reflect.Map, reflect.Array:
				size = rv.Len()
			default:
				size = runewidth.StringWidth(FormatValue(v))
			}
		}
		switch name {
		case "minlen":
			if size > 0 && size < n {
				return fmt.Sprintf("%s must be at least %d characters", field, n)
			}
		case "maxlen":
			if size > n {
				return fmt.Sprintf("%s must be at most %d characters", field, n)
			}
		case "maxwidth":
			if size > n {
				return fmt.Sprintf("%s must fit in %d columns", field, n)
			}
		}
		return ""
	}
}

// structTag returns the rowform tag of the named struct field of R.
func structTag[R any](field string) (string, bool) {
	t := reflect.TypeOf((*R)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", false
	}
	sf, ok := t.FieldByName(field)
	if !ok {
		return "", false
	}
	return sf.Tag.Lookup(TagKey)
}

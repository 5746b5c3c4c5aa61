package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FieldError names a single violated field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every violated field of an entity, so callers see
// all problems in one pass instead of fixing them one at a time.
type ValidationError struct {
	Entity string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s validation failed:", e.Entity)
	for _, f := range e.Fields {
		fmt.Fprintf(&b, " %s: %s;", f.Field, f.Message)
	}
	return strings.TrimSuffix(b.String(), ";")
}

// violations accumulates field errors during a validation pass.
type violations struct {
	entity string
	fields []FieldError
}

func (v *violations) add(field, format string, args ...any) {
	v.fields = append(v.fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *violations) addErr(field string, err error) {
	if err != nil {
		v.add(field, "%s", err.Error())
	}
}

// err returns nil when no violation was recorded.
func (v *violations) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Entity: v.entity, Fields: v.fields}
}

// checkLength bounds are in characters, matching the schema's length() CHECKs,
// so multibyte titles are measured the same way on both sides.
func checkLength(v *violations, field, value string, min, max int) {
	if n := utf8.RuneCountInString(value); n < min || n > max {
		v.add(field, "length must be between %d and %d, got %d", min, max, n)
	}
}

// Package form renders configuration-driven forms and turns posted controls into the nested JSON
// payloads the acquisition backend expects.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind selects the input control rendered for a field.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindPassword Kind = "password"
	KindDropdown Kind = "dropdown"
	KindDate     Kind = "date"
	KindTime     Kind = "time"
	KindDateTime Kind = "datetime"
	KindFile     Kind = "file"

	pathSeparator   = "."
	gridColumnCount = 12

	errorMessageEmptyName      = "form: field name is empty"
	errorMessageDuplicateField = "form: duplicate field name"
	errorMessageMissingOptions = "form: dropdown field has no options"
	errorMessageUnknownKind    = "form: unknown field kind"
)

var (
	// ErrEmptyName indicates a descriptor without a target path.
	ErrEmptyName = errors.New(errorMessageEmptyName)
	// ErrDuplicateField indicates two descriptors share a target path.
	ErrDuplicateField = errors.New(errorMessageDuplicateField)
	// ErrMissingOptions indicates a dropdown was rendered before its options were available.
	ErrMissingOptions = errors.New(errorMessageMissingOptions)
	// ErrUnknownKind indicates a descriptor kind outside the supported set.
	ErrUnknownKind = errors.New(errorMessageUnknownKind)
)

// Path is the ordered list of keys locating a field inside the submitted object.
type Path []string

// ParsePath splits a dot-path such as "serviceConfig.name".
func ParsePath(name string) Path {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return nil
	}
	return Path(strings.Split(trimmedName, pathSeparator))
}

// Key returns the control name used for the field in HTML and in Values.
func (path Path) Key() string {
	return strings.Join(path, pathSeparator)
}

func (path Path) String() string {
	return path.Key()
}

// Option is a dropdown entry. Value keeps its declared type so the payload carries it unchanged.
type Option struct {
	Value any
	Label string
}

// Token renders the option value as the string used in HTML controls.
func (option Option) Token() string {
	return valueToken(option.Value)
}

// FieldDescriptor describes one form input.
type FieldDescriptor struct {
	Name        Path
	Label       string
	Kind        Kind
	Required    bool
	Options     []Option
	Multiple    bool
	Span        int
	Placeholder string
	// Source names the option source that fills Options before rendering.
	Source string
}

func newField(kind Kind, name string, label string, span int, required bool) FieldDescriptor {
	return FieldDescriptor{Name: ParsePath(name), Label: label, Kind: kind, Span: span, Required: required}
}

// Text declares a plain text input.
func Text(name string, label string, span int, required bool) FieldDescriptor {
	return newField(KindText, name, label, span, required)
}

// Number declares a numeric input.
func Number(name string, label string, span int, required bool) FieldDescriptor {
	return newField(KindNumber, name, label, span, required)
}

// Password declares a masked input.
func Password(name string, label string, span int, required bool) FieldDescriptor {
	return newField(KindPassword, name, label, span, required)
}

// Date declares a calendar date input submitted as YYYY-MM-DD.
func Date(name string, label string, span int, required bool) FieldDescriptor {
	return newField(KindDate, name, label, span, required)
}

// Time declares a time-of-day input submitted as HH:mm:ss.
func Time(name string, label string, span int, required bool) FieldDescriptor {
	return newField(KindTime, name, label, span, required)
}

// DateTime declares an instant input submitted as an ISO-8601 UTC instant.
func DateTime(name string, label string, span int, required bool) FieldDescriptor {
	return newField(KindDateTime, name, label, span, required)
}

// File declares a file input. File fields never appear in Submit output.
func File(name string, label string, span int, required bool) FieldDescriptor {
	return newField(KindFile, name, label, span, required)
}

// Dropdown declares a select with static options.
func Dropdown(name string, label string, span int, required bool, multiple bool, options ...Option) FieldDescriptor {
	field := newField(KindDropdown, name, label, span, required)
	field.Multiple = multiple
	field.Options = options
	return field
}

// SourcedDropdown declares a select whose options are loaded from a named source at render time.
func SourcedDropdown(name string, label string, span int, required bool, multiple bool, source string) FieldDescriptor {
	field := Dropdown(name, label, span, required, multiple)
	field.Source = source
	return field
}

// ColumnSpan clamps Span into the 12-column grid.
func (field FieldDescriptor) ColumnSpan() int {
	if field.Span <= 0 || field.Span > gridColumnCount {
		return gridColumnCount
	}
	return field.Span
}

func (field FieldDescriptor) isTemporal() bool {
	return field.Kind == KindDate || field.Kind == KindTime || field.Kind == KindDateTime
}

// WithOptions returns a copy of fields with sourced dropdowns filled from options. A source that
// loaded no entries leaves a non-nil empty list so the field still renders.
func WithOptions(fields []FieldDescriptor, options map[string][]Option) []FieldDescriptor {
	resolved := make([]FieldDescriptor, len(fields))
	for index, field := range fields {
		if field.Source != "" {
			if sourceOptions, found := options[field.Source]; found {
				if sourceOptions == nil {
					sourceOptions = []Option{}
				}
				field.Options = sourceOptions
			}
		}
		resolved[index] = field
	}
	return resolved
}

// Sources lists the distinct option sources referenced by fields, in declaration order.
func Sources(fields []FieldDescriptor) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, field := range fields {
		if field.Source == "" {
			continue
		}
		if _, duplicate := seen[field.Source]; duplicate {
			continue
		}
		seen[field.Source] = struct{}{}
		sources = append(sources, field.Source)
	}
	return sources
}

// Validate checks the descriptor list is renderable: unique non-empty names, known kinds and
// dropdown options present. A sourced dropdown only needs its source loaded, even if empty.
func Validate(fields []FieldDescriptor) error {
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		key := field.Name.Key()
		if key == "" {
			return ErrEmptyName
		}
		if _, duplicate := seen[key]; duplicate {
			return fmt.Errorf("%w: %s", ErrDuplicateField, key)
		}
		seen[key] = struct{}{}
		switch field.Kind {
		case KindText, KindNumber, KindPassword, KindDate, KindTime, KindDateTime, KindFile:
		case KindDropdown:
			if field.Source != "" && field.Options == nil {
				return fmt.Errorf("%w: %s", ErrMissingOptions, key)
			}
			if field.Source == "" && len(field.Options) == 0 {
				return fmt.Errorf("%w: %s", ErrMissingOptions, key)
			}
		default:
			return fmt.Errorf("%w: %s (%s)", ErrUnknownKind, field.Kind, key)
		}
	}
	return nil
}

func valueToken(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

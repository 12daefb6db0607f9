package form

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Values holds the current state of every field keyed by Path.Key.
// Text-like kinds hold string, temporal kinds hold time.Time (zero when empty),
// single dropdowns hold the selected option token and multiple dropdowns hold []string.
type Values map[string]any

// Defaults returns the empty state: "" for every field, []string{} for multiple dropdowns and
// a zero time for temporal kinds.
func Defaults(fields []FieldDescriptor) Values {
	values := make(Values, len(fields))
	for _, field := range fields {
		values[field.Name.Key()] = emptyValue(field)
	}
	return values
}

// Seed pre-populates values from an existing record, walking nested objects along each Path.
// Missing keys fall back to the defaults.
func Seed(fields []FieldDescriptor, record map[string]any, location *time.Location) Values {
	values := Defaults(fields)
	for _, field := range fields {
		raw, found := lookup(record, field.Name)
		if !found || raw == nil {
			continue
		}
		values[field.Name.Key()] = seedValue(field, raw, location)
	}
	return values
}

// Parse reads posted controls into Values. Temporal values that fail to parse are reported in a
// *ValidationError alongside the values that did parse.
func Parse(fields []FieldDescriptor, posted url.Values, location *time.Location) (Values, error) {
	values := Defaults(fields)
	validation := &ValidationError{}
	for _, field := range fields {
		key := field.Name.Key()
		switch {
		case field.Kind == KindFile:
			continue
		case field.Kind == KindDropdown && field.Multiple:
			selected := make([]string, 0, len(posted[key]))
			for _, token := range posted[key] {
				if token != "" {
					selected = append(selected, token)
				}
			}
			values[key] = selected
		case field.isTemporal():
			raw := strings.TrimSpace(posted.Get(key))
			if raw == "" {
				continue
			}
			parsed, parseErr := ParseTemporal(field.Kind, raw, location)
			if parseErr != nil {
				validation.Invalid = append(validation.Invalid, FieldError{Path: field.Name, Label: field.Label, Err: parseErr})
				continue
			}
			values[key] = parsed
		default:
			values[key] = posted.Get(key)
		}
	}
	if len(validation.Invalid) > 0 {
		return values, validation
	}
	return values, nil
}

func emptyValue(field FieldDescriptor) any {
	switch {
	case field.Kind == KindDropdown && field.Multiple:
		return []string{}
	case field.isTemporal():
		return time.Time{}
	default:
		return ""
	}
}

func seedValue(field FieldDescriptor, raw any, location *time.Location) any {
	switch {
	case field.Kind == KindDropdown && field.Multiple:
		items, isList := raw.([]any)
		if !isList {
			return []string{valueToken(optionValue(raw))}
		}
		tokens := make([]string, 0, len(items))
		for _, item := range items {
			tokens = append(tokens, valueToken(optionValue(item)))
		}
		return tokens
	case field.Kind == KindDropdown:
		return valueToken(optionValue(raw))
	case field.isTemporal():
		switch typed := raw.(type) {
		case time.Time:
			return typed
		case string:
			if typed == "" {
				return time.Time{}
			}
			parsed, parseErr := ParseTemporal(field.Kind, typed, location)
			if parseErr != nil {
				return time.Time{}
			}
			return parsed
		default:
			return time.Time{}
		}
	case field.Kind == KindFile, field.Kind == KindPassword:
		return ""
	default:
		return valueToken(raw)
	}
}

// optionValue unwraps records shaped {"id": ...} so a related entity seeds its dropdown by id.
func optionValue(raw any) any {
	if record, isRecord := raw.(map[string]any); isRecord {
		if identifier, found := record["id"]; found {
			return identifier
		}
		return fmt.Sprint(record)
	}
	return raw
}

func lookup(record map[string]any, path Path) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var current any = record
	for _, segment := range path {
		container, isContainer := current.(map[string]any)
		if !isContainer {
			return nil, false
		}
		next, found := container[segment]
		if !found {
			return nil, false
		}
		current = next
	}
	return current, true
}

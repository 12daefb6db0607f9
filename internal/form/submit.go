package form

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	errorMessageValidation = "form: validation failed"
	errorMessageRequired   = "form: required field is empty"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New(errorMessageValidation)
	// ErrRequired marks a required field left empty.
	ErrRequired = errors.New(errorMessageRequired)
)

// FieldError reports a single field that blocked submission.
type FieldError struct {
	Path  Path
	Label string
	Err   error
}

func (fieldError FieldError) Error() string {
	return fieldError.Path.Key() + ": " + fieldError.Err.Error()
}

// ValidationError collects the fields that prevent a submission.
type ValidationError struct {
	Missing []FieldError
	Invalid []FieldError
}

func (validationError *ValidationError) Error() string {
	parts := make([]string, 0, len(validationError.Missing)+len(validationError.Invalid))
	for _, fieldError := range validationError.Missing {
		parts = append(parts, fieldError.Error())
	}
	for _, fieldError := range validationError.Invalid {
		parts = append(parts, fieldError.Error())
	}
	return errorMessageValidation + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is match ErrValidation.
func (validationError *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FieldMessages maps each failing control name to its label for inline display.
func (validationError *ValidationError) FieldMessages() map[string]string {
	messages := make(map[string]string)
	if validationError == nil {
		return messages
	}
	for _, fieldError := range validationError.Missing {
		messages[fieldError.Path.Key()] = "Campo requerido"
	}
	for _, fieldError := range validationError.Invalid {
		messages[fieldError.Path.Key()] = "Valor inválido"
	}
	return messages
}

// AsValidationError extracts a *ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var validationError *ValidationError
	if errors.As(err, &validationError) {
		return validationError, true
	}
	return nil, false
}

// Submit builds the nested payload for the backend. Each field's value is placed at its Path,
// creating intermediate objects on demand; when two paths collide the later field wins.
// Temporal values are rendered as LayoutDate, LayoutTime or LayoutDateTime. Dropdown tokens are
// restored to the typed option values. A required field left empty blocks submission.
func Submit(fields []FieldDescriptor, values Values) (map[string]any, error) {
	validation := &ValidationError{}
	payload := make(map[string]any)
	for _, field := range fields {
		if field.Kind == KindFile || len(field.Name) == 0 {
			continue
		}
		value, found := values[field.Name.Key()]
		if !found {
			value = emptyValue(field)
		}
		if field.Required && isEmpty(value) {
			validation.Missing = append(validation.Missing, FieldError{Path: field.Name, Label: field.Label, Err: ErrRequired})
			continue
		}
		assign(payload, field.Name, submittedValue(field, value))
	}
	if len(validation.Missing) > 0 {
		return nil, validation
	}
	return payload, nil
}

func submittedValue(field FieldDescriptor, value any) any {
	switch {
	case field.isTemporal():
		instant, isTime := value.(time.Time)
		if !isTime || instant.IsZero() {
			return nil
		}
		return formatTemporal(field.Kind, instant)
	case field.Kind == KindDropdown && field.Multiple:
		tokens := tokenList(value)
		restored := make([]any, 0, len(tokens))
		for _, token := range tokens {
			restored = append(restored, restoreOption(field.Options, token))
		}
		return restored
	case field.Kind == KindDropdown:
		token := valueToken(value)
		if token == "" {
			return ""
		}
		return restoreOption(field.Options, token)
	case field.Kind == KindNumber:
		text := strings.TrimSpace(valueToken(value))
		if text == "" {
			return ""
		}
		if _, parseErr := strconv.ParseFloat(text, 64); parseErr != nil {
			return text
		}
		return json.Number(text)
	default:
		return value
	}
}

func restoreOption(options []Option, token string) any {
	for _, option := range options {
		if option.Token() == token {
			return option.Value
		}
	}
	return token
}

func tokenList(value any) []string {
	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		tokens := make([]string, 0, len(typed))
		for _, item := range typed {
			tokens = append(tokens, valueToken(item))
		}
		return tokens
	case nil:
		return nil
	default:
		return []string{valueToken(typed)}
	}
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []string:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	case time.Time:
		return typed.IsZero()
	default:
		return false
	}
}

func assign(payload map[string]any, path Path, value any) {
	current := payload
	for _, segment := range path[:len(path)-1] {
		next, isObject := current[segment].(map[string]any)
		if !isObject {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

package form

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LayoutDate is the submitted calendar date format.
	LayoutDate = "2006-01-02"
	// LayoutTime is the submitted time-of-day format.
	LayoutTime = "15:04:05"
	// LayoutDateTime is the submitted instant format, always in UTC with millisecond precision.
	LayoutDateTime = "2006-01-02T15:04:05.000Z"

	layoutTimeShort          = "15:04"
	layoutDateTimeLocal      = "2006-01-02T15:04:05"
	layoutDateTimeLocalShort = "2006-01-02T15:04"

	errorMessageInvalidTemporal = "form: invalid temporal value"
)

// ErrInvalidTemporal indicates a date, time or datetime value that matches no accepted layout.
var ErrInvalidTemporal = errors.New(errorMessageInvalidTemporal)

// FormatDate renders the calendar date of value.
func FormatDate(value time.Time) string {
	return value.Format(LayoutDate)
}

// FormatTime renders the time of day of value.
func FormatTime(value time.Time) string {
	return value.Format(LayoutTime)
}

// FormatDateTime renders value as a UTC instant.
func FormatDateTime(value time.Time) string {
	return value.UTC().Format(LayoutDateTime)
}

// ParseTemporal reads a value for a temporal kind. Offset-free inputs are interpreted in location.
func ParseTemporal(kind Kind, raw string, location *time.Location) (time.Time, error) {
	if location == nil {
		location = time.UTC
	}
	trimmedValue := strings.TrimSpace(raw)
	var layouts []string
	switch kind {
	case KindDate:
		if parsed, parseErr := time.Parse(time.RFC3339, trimmedValue); parseErr == nil {
			year, month, day := parsed.In(location).Date()
			return time.Date(year, month, day, 0, 0, 0, 0, location), nil
		}
		layouts = []string{LayoutDate}
	case KindTime:
		layouts = []string{LayoutTime, layoutTimeShort}
	case KindDateTime:
		if parsed, parseErr := time.Parse(time.RFC3339, trimmedValue); parseErr == nil {
			return parsed, nil
		}
		layouts = []string{layoutDateTimeLocal, layoutDateTimeLocalShort}
	default:
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	for _, layout := range layouts {
		if parsed, parseErr := time.ParseInLocation(layout, trimmedValue, location); parseErr == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTemporal, raw)
}

func formatTemporal(kind Kind, value time.Time) string {
	switch kind {
	case KindDate:
		return FormatDate(value)
	case KindTime:
		return FormatTime(value)
	default:
		return FormatDateTime(value)
	}
}

// controlTemporal renders value in the layout browsers expect for the matching input type.
func controlTemporal(kind Kind, value time.Time, location *time.Location) string {
	if location != nil {
		value = value.In(location)
	}
	switch kind {
	case KindDate:
		return value.Format(LayoutDate)
	case KindTime:
		return value.Format(LayoutTime)
	default:
		return value.Format(layoutDateTimeLocal)
	}
}

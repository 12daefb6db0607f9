package catalog

import (
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/table"
)

const (
	labelActive    = "Activo"
	labelInactive  = "Inactivo"
	labelYes       = "Si"
	labelNo        = "No"
	labelNoProfile = "Sin perfil"
	displayDate    = "02-01-2006"
	listSeparator  = ", "
)

func truthy(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return typed != "" && typed != "false" && typed != "0"
	case nil:
		return false
	default:
		return table.FormatValue(typed) != "0"
	}
}

func activeText(value any) string {
	if truthy(value) {
		return labelActive
	}
	return labelInactive
}

func activeCell(value any, _ table.Row) string {
	return activeText(value)
}

// erasedCell renders the users "erased" flag, where true means the account is disabled.
func erasedCell(value any, _ table.Row) string {
	if truthy(value) {
		return labelInactive
	}
	return labelActive
}

func yesNoText(value any) string {
	if truthy(value) {
		return labelYes
	}
	return labelNo
}

func yesNoCell(value any, _ table.Row) string {
	return yesNoText(value)
}

func firstProfileCell(value any, _ table.Row) string {
	profiles, _ := value.([]any)
	if len(profiles) == 0 {
		return labelNoProfile
	}
	if profile, isMap := profiles[0].(map[string]any); isMap {
		return table.FormatValue(profile["name"])
	}
	return labelNoProfile
}

func profileNames(value any) string {
	profiles, _ := value.([]any)
	names := make([]string, 0, len(profiles))
	for _, entry := range profiles {
		if profile, isMap := entry.(map[string]any); isMap {
			names = append(names, table.FormatValue(profile["name"]))
		}
	}
	return strings.Join(names, listSeparator)
}

func dateText(value any) string {
	raw := strings.TrimSpace(table.FormatValue(value))
	if raw == "" {
		return ""
	}
	parsed, parseErr := form.ParseTemporal(form.KindDateTime, raw, time.UTC)
	if parseErr != nil {
		return raw
	}
	return parsed.Format(displayDate)
}

func dateCell(value any, _ table.Row) string {
	return dateText(value)
}

// optionLabel maps stored option values back to their labels on details pages.
func optionLabel(options []form.Option) func(any) string {
	if len(options) == 0 {
		return nil
	}
	return func(value any) string {
		token := form.Option{Value: value}.Token()
		for _, option := range options {
			if option.Token() == token {
				return option.Label
			}
		}
		return token
	}
}

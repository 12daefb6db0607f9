package form

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const (
	formTemplateName     = "dynamic_form"
	defaultFormID        = "dynamic-form"
	defaultSubmitLabel   = "Guardar"
	controlIDPrefix      = "field-"
	secondStep           = "1"
	errorMessageRender   = "form: render template"
	inputTypeText        = "text"
	inputTypeNumber      = "number"
	inputTypePassword    = "password"
	inputTypeDate        = "date"
	inputTypeTime        = "time"
	inputTypeDateTime    = "datetime-local"
	inputTypeFile        = "file"
	controlIDReplacement = "-"
)

//go:embed templates/form.tmpl
var formTemplateHTML string

var formTemplate = template.Must(template.New(formTemplateName).Parse(formTemplateHTML))

// RenderOptions tunes the generated markup.
type RenderOptions struct {
	ID          string
	Action      string
	SubmitLabel string
	CancelURL   string
	// ReadOnly disables every control and hides the submit button.
	ReadOnly bool
	// Message is shown above the fields, e.g. a backend rejection.
	Message  string
	Errors   *ValidationError
	Location *time.Location
}

type formView struct {
	ID          string
	Action      string
	SubmitLabel string
	CancelURL   string
	ReadOnly    bool
	Multipart   bool
	Message     string
	Controls    []controlView
}

type controlView struct {
	ID          string
	Name        string
	Label       string
	InputType   string
	Value       string
	Step        string
	Placeholder string
	Span        int
	Required    bool
	Multiple    bool
	Disabled    bool
	IsSelect    bool
	IsFile      bool
	Message     string
	Options     []optionView
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

// Render produces the form markup for fields with their current values. It fails when the
// descriptors are not renderable, e.g. a dropdown whose options have not been loaded.
func Render(fields []FieldDescriptor, values Values, options RenderOptions) (template.HTML, error) {
	if validateErr := Validate(fields); validateErr != nil {
		return "", validateErr
	}
	view := formView{
		ID:          options.ID,
		Action:      options.Action,
		SubmitLabel: options.SubmitLabel,
		CancelURL:   options.CancelURL,
		ReadOnly:    options.ReadOnly,
		Message:     options.Message,
	}
	if view.ID == "" {
		view.ID = defaultFormID
	}
	if view.SubmitLabel == "" {
		view.SubmitLabel = defaultSubmitLabel
	}
	if values == nil {
		values = Defaults(fields)
	}
	fieldMessages := options.Errors.FieldMessages()

	for _, field := range fields {
		key := field.Name.Key()
		control := controlView{
			ID:          controlIDPrefix + strings.ReplaceAll(key, pathSeparator, controlIDReplacement),
			Name:        key,
			Label:       field.Label,
			Placeholder: field.Placeholder,
			Span:        field.ColumnSpan(),
			Required:    field.Required,
			Multiple:    field.Multiple,
			Disabled:    options.ReadOnly,
			Message:     fieldMessages[key],
		}
		value, found := values[key]
		if !found {
			value = emptyValue(field)
		}
		switch field.Kind {
		case KindDropdown:
			control.IsSelect = true
			control.Options = optionViews(field, value)
		case KindFile:
			control.IsFile = true
			control.InputType = inputTypeFile
			view.Multipart = true
		case KindDate, KindTime, KindDateTime:
			control.InputType = temporalInputType(field.Kind)
			if field.Kind != KindDate {
				control.Step = secondStep
			}
			if instant, isTime := value.(time.Time); isTime && !instant.IsZero() {
				control.Value = controlTemporal(field.Kind, instant, options.Location)
			}
		case KindNumber:
			control.InputType = inputTypeNumber
			control.Value = valueToken(value)
		case KindPassword:
			control.InputType = inputTypePassword
			control.Value = valueToken(value)
		default:
			control.InputType = inputTypeText
			control.Value = valueToken(value)
		}
		view.Controls = append(view.Controls, control)
	}

	var buffer bytes.Buffer
	if executeErr := formTemplate.Execute(&buffer, view); executeErr != nil {
		return "", fmt.Errorf("%s: %w", errorMessageRender, executeErr)
	}
	return template.HTML(buffer.String()), nil
}

func optionViews(field FieldDescriptor, value any) []optionView {
	selected := make(map[string]struct{})
	for _, token := range tokenList(value) {
		selected[token] = struct{}{}
	}
	views := make([]optionView, 0, len(field.Options))
	for _, option := range field.Options {
		token := option.Token()
		_, isSelected := selected[token]
		views = append(views, optionView{Value: token, Label: option.Label, Selected: isSelected && token != ""})
	}
	return views
}

func temporalInputType(kind Kind) string {
	switch kind {
	case KindDate:
		return inputTypeDate
	case KindTime:
		return inputTypeTime
	default:
		return inputTypeDateTime
	}
}

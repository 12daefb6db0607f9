package httpapi

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/apiclient"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/catalog"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/table"
)

const (
	itemPathPrefix   = "item"
	itemsFormField   = "_items"
	intentFormField  = "intent"
	intentAddItem    = "add-item"
	intentRemoveItem = "remove-item:"

	logEventDecodeItems = "decode_items"
)

// formMode is a register or edit page of one entity.
type formMode struct {
	title        string
	trail        []catalog.Breadcrumb
	action       string
	submitLabel  string
	failure      string
	logEvent     string
	fields       []form.FieldDescriptor
	items        *catalog.ItemEditor
	identifier   string
	confirmation func(backendMessage string) string
	// refresh labels a button that reposts the form to reload dependent options.
	refresh string
}

func registerMode(entity catalog.Entity) formMode {
	return formMode{
		title:        entity.Singular,
		trail:        entity.RegisterTrail(),
		action:       entity.RegisterPath(),
		submitLabel:  submitLabelSave,
		failure:      messageSaveFailed,
		logEvent:     logEventCreateFailed,
		fields:       entity.Fields,
		items:        entity.Items,
		confirmation: entity.CreatedMessage,
	}
}

func editMode(entity catalog.Entity, identifier string) formMode {
	return formMode{
		title:        entity.Singular,
		trail:        entity.EditTrail(identifier),
		action:       entity.EditPath(identifier),
		submitLabel:  submitLabelUpdate,
		failure:      messageUpdateFailed,
		logEvent:     logEventUpdateFailed,
		fields:       entity.EditFields,
		identifier:   identifier,
		confirmation: entity.UpdatedMessage,
	}
}

// formState is everything a rendered form page shows.
type formState struct {
	status     int
	fields     []form.FieldDescriptor
	itemFields []form.FieldDescriptor
	values     form.Values
	errors     *form.ValidationError
	message    string
	failure    string
	items      []map[string]any
	itemsError string
	alert      *Alert
}

type itemEditorView struct {
	Title       string
	Field       string
	Encoded     string
	Error       string
	Headers     []string
	Rows        [][]string
	ColumnCount int
}

type recordFormView struct {
	FormID  string
	Form    template.HTML
	Error   string
	Refresh string
	Items   *itemEditorView
}

// prefixItemFields moves item editor controls under "item." so they never collide with the record's.
func prefixItemFields(items *catalog.ItemEditor) []form.FieldDescriptor {
	if items == nil {
		return nil
	}
	prefixed := make([]form.FieldDescriptor, 0, len(items.Fields))
	for _, field := range items.Fields {
		field.Name = append(form.Path{itemPathPrefix}, field.Name...)
		prefixed = append(prefixed, field)
	}
	return prefixed
}

func (handlers *EntityHandlers) resolveFields(context *gin.Context, mode formMode) ([]form.FieldDescriptor, []form.FieldDescriptor, error) {
	combined := append(append([]form.FieldDescriptor(nil), mode.fields...), prefixItemFields(mode.items)...)
	resolved, resolveErr := handlers.options.ResolveFields(context.Request.Context(), handlers.shell.auth.Caller(context), combined)
	if resolveErr != nil {
		return nil, nil, resolveErr
	}
	return resolved[:len(mode.fields)], resolved[len(mode.fields):], nil
}

func (handlers *EntityHandlers) showForm(context *gin.Context, entity catalog.Entity, mode formMode, seed func([]form.FieldDescriptor) form.Values) {
	fields, itemFields, resolveErr := handlers.resolveFields(context, mode)
	if resolveErr != nil {
		handlers.optionsFailed(context, entity, mode, resolveErr)
		return
	}
	handlers.renderFormPage(context, entity, mode, formState{
		status:     http.StatusOK,
		fields:     fields,
		itemFields: itemFields,
		values:     mergeValues(seed(fields), form.Defaults(itemFields)),
	})
}

func (handlers *EntityHandlers) optionsFailed(context *gin.Context, entity catalog.Entity, mode formMode, resolveErr error) {
	if handlers.shell.interrupted(context, resolveErr) {
		return
	}
	handlers.logger.Warn(logEventOptionsFailed, zap.String(logFieldEntity, entity.Key), zap.Error(resolveErr))
	handlers.renderFormPage(context, entity, mode, formState{status: http.StatusOK, failure: messageOptionsFailed})
}

func (handlers *EntityHandlers) submitForm(context *gin.Context, entity catalog.Entity, mode formMode) {
	if parseErr := context.Request.ParseForm(); parseErr != nil {
		context.AbortWithStatus(http.StatusBadRequest)
		return
	}
	posted := context.Request.PostForm
	fields, itemFields, resolveErr := handlers.resolveFields(context, mode)
	if resolveErr != nil {
		handlers.optionsFailed(context, entity, mode, resolveErr)
		return
	}

	values, parseErr := form.Parse(fields, posted, handlers.location)
	itemValues, itemParseErr := form.Parse(itemFields, posted, handlers.location)
	state := formState{
		status:     http.StatusOK,
		fields:     fields,
		itemFields: itemFields,
		values:     mergeValues(values, itemValues),
		items:      handlers.decodeItems(posted.Get(itemsFormField)),
	}

	intent := posted.Get(intentFormField)
	if mode.items != nil && intent == intentAddItem {
		itemPayload, submitErr := form.Submit(itemFields, itemValues)
		if validation := mergeValidation(itemParseErr, submitErr); validation != nil {
			state.status = http.StatusUnprocessableEntity
			state.errors = validation
			state.itemsError = messageInvalidForm
			handlers.renderFormPage(context, entity, mode, state)
			return
		}
		item, _ := itemPayload[itemPathPrefix].(map[string]any)
		state.items = append(state.items, item)
		state.values = mergeValues(values, form.Defaults(itemFields))
		handlers.renderFormPage(context, entity, mode, state)
		return
	}
	if mode.items != nil && strings.HasPrefix(intent, intentRemoveItem) {
		index, convertErr := strconv.Atoi(strings.TrimPrefix(intent, intentRemoveItem))
		if convertErr == nil && index >= 0 && index < len(state.items) {
			state.items = append(state.items[:index:index], state.items[index+1:]...)
		}
		handlers.renderFormPage(context, entity, mode, state)
		return
	}

	payload, submitErr := form.Submit(fields, values)
	if validation := mergeValidation(parseErr, submitErr); validation != nil {
		state.status = http.StatusUnprocessableEntity
		state.errors = validation
		state.message = messageInvalidForm
		handlers.renderFormPage(context, entity, mode, state)
		return
	}
	if mode.items != nil {
		collected := make([]any, 0, len(state.items))
		for _, item := range state.items {
			collected = append(collected, item)
		}
		payload[mode.items.Key] = collected
	}
	payload = entity.Payload(payload)

	response, sendErr := handlers.send(context, entity, mode, payload)
	if sendErr != nil {
		if handlers.shell.interrupted(context, sendErr) {
			return
		}
		handlers.logger.Warn(mode.logEvent, zap.String(logFieldEntity, entity.Key), zap.Error(sendErr))
		message := apiclient.UserMessage(sendErr, mode.failure)
		alert := ErrorAlert(message)
		state.message = message
		state.alert = &alert
		handlers.renderFormPage(context, entity, mode, state)
		return
	}
	handlers.options.Invalidate(entity.Invalidates...)
	handlers.shell.auth.AddAlert(context, SuccessAlert(titleSuccess, mode.confirmation(response.Message())))
	context.Redirect(http.StatusFound, entity.Route)
}

func (handlers *EntityHandlers) send(context *gin.Context, entity catalog.Entity, mode formMode, payload map[string]any) (apiclient.Response, error) {
	token := apiclient.WithToken(handlers.token(context))
	if mode.identifier == "" {
		return handlers.client.Post(context.Request.Context(), entity.CreateURL(handlers.runtime), payload, token)
	}
	return handlers.client.Put(context.Request.Context(), entity.ItemURL(handlers.runtime, mode.identifier), payload, token)
}

func (handlers *EntityHandlers) renderFormPage(context *gin.Context, entity catalog.Entity, mode formMode, state formState) {
	view := recordFormView{FormID: recordFormID, Error: state.failure, Refresh: mode.refresh}
	if state.failure == "" {
		combined := append(append([]form.FieldDescriptor(nil), state.fields...), state.itemFields...)
		formHTML, renderErr := form.Render(combined, state.values, form.RenderOptions{
			ID:          recordFormID,
			Action:      mode.action,
			SubmitLabel: mode.submitLabel,
			CancelURL:   entity.Route,
			Message:     state.message,
			Errors:      state.errors,
			Location:    handlers.location,
		})
		if renderErr != nil {
			handlers.logger.Error(logEventRenderForm, zap.String(logFieldEntity, entity.Key), zap.Error(renderErr))
			view.Error = messageOptionsFailed
		} else {
			view.Form = formHTML
		}
		if mode.items != nil {
			view.Items = handlers.itemEditor(mode.items, state)
		}
	}
	data := handlers.shell.page(context, mode.title, entity.Subtitle, mode.trail, view)
	if state.alert != nil {
		data.Alerts = append(data.Alerts, *state.alert)
	}
	handlers.shell.render(context, state.status, pageForm, data)
}

func (handlers *EntityHandlers) itemEditor(items *catalog.ItemEditor, state formState) *itemEditorView {
	encoded, encodeErr := json.Marshal(state.items)
	if encodeErr != nil || state.items == nil {
		encoded = []byte("[]")
	}
	view := &itemEditorView{
		Title:       items.Title,
		Field:       itemsFormField,
		Encoded:     string(encoded),
		Error:       state.itemsError,
		ColumnCount: len(items.Columns) + 1,
	}
	optionsByKey := make(map[string][]form.Option, len(state.itemFields))
	for _, field := range state.itemFields {
		if field.Kind == form.KindDropdown {
			optionsByKey[form.Path(field.Name[1:]).Key()] = field.Options
		}
	}
	for _, column := range items.Columns {
		view.Headers = append(view.Headers, column.Header)
	}
	for _, item := range state.items {
		row := table.Row(item)
		cells := make([]string, 0, len(items.Columns))
		for _, column := range items.Columns {
			value := table.Value(row, column.AccessorKey)
			switch {
			case column.Cell != nil:
				cells = append(cells, column.Cell(value, row))
			case optionsByKey[column.AccessorKey] != nil:
				cells = append(cells, optionText(optionsByKey[column.AccessorKey], value))
			default:
				cells = append(cells, table.FormatValue(value))
			}
		}
		view.Rows = append(view.Rows, cells)
	}
	return view
}

func (handlers *EntityHandlers) decodeItems(encoded string) []map[string]any {
	if strings.TrimSpace(encoded) == "" {
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader([]byte(encoded)))
	decoder.UseNumber()
	var items []map[string]any
	if decodeErr := decoder.Decode(&items); decodeErr != nil {
		handlers.logger.Debug(logEventDecodeItems, zap.Error(decodeErr))
		return nil
	}
	return items
}

func optionText(options []form.Option, value any) string {
	token := form.Option{Value: value}.Token()
	for _, option := range options {
		if option.Token() == token {
			return option.Label
		}
	}
	return table.FormatValue(value)
}

func mergeValues(sets ...form.Values) form.Values {
	merged := make(form.Values)
	for _, set := range sets {
		for key, value := range set {
			merged[key] = value
		}
	}
	return merged
}

func mergeValidation(errs ...error) *form.ValidationError {
	merged := &form.ValidationError{}
	for _, err := range errs {
		validation, isValidation := form.AsValidationError(err)
		if !isValidation {
			continue
		}
		merged.Missing = append(merged.Missing, validation.Missing...)
		merged.Invalid = append(merged.Invalid, validation.Invalid...)
	}
	if len(merged.Missing) == 0 && len(merged.Invalid) == 0 {
		return nil
	}
	return merged
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/apiclient"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/catalog"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/config"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/table"
)

const (
	routeTable    = "/table"
	routeRegister = "/register"
	routeDetails  = "/details/:id"
	routeEdit     = "/edit/:id"
	routeDelete   = "/delete/:id"
	routeAction   = "/actions/:action/:id"
	paramID       = "id"
	paramAction   = "action"
	pathTable     = "table"

	recordFormID      = "record-form"
	submitLabelSave   = "Guardar"
	submitLabelUpdate = "Actualizar"
	confirmFormField  = "confirm"
	confirmFormValue  = "yes"
	titleSuccess      = "Éxito"
	titleDeleted      = "Eliminado"
	detailTablePrefix = "detail-"
	entityTablePrefix = "table-"
	recordLabelFormat = "Registro %s"

	messageLoadFailed    = "Error al cargar los registros."
	messageRecordFailed  = "Error al cargar el registro."
	messageOptionsFailed = "Error al cargar las opciones del formulario."
	messageSaveFailed    = "Error al guardar el registro."
	messageUpdateFailed  = "Error al actualizar el registro."
	messageDeleteFailed  = "Error al eliminar el registro."
	messageActionFailed  = "Error al ejecutar la acción."
	messageInvalidForm   = "Revise los campos marcados."

	logEventListFailed    = "entity_list_failed"
	logEventRecordFailed  = "entity_record_failed"
	logEventOptionsFailed = "entity_options_failed"
	logEventCreateFailed  = "entity_create_failed"
	logEventUpdateFailed  = "entity_update_failed"
	logEventDeleteFailed  = "entity_delete_failed"
	logEventActionFailed  = "entity_action_failed"
	logEventRenderTable   = "render_table"
	logEventRenderForm    = "render_form"
	logFieldEntity        = "entity"

	errorMessageUnexpectedShape = "httpapi: unexpected response shape"
)

var errUnexpectedShape = errors.New(errorMessageUnexpectedShape)

// EntityConfig captures the dependencies of EntityHandlers.
type EntityConfig struct {
	Logger   *zap.Logger
	Auth     *AuthManager
	Client   *apiclient.Client
	Runtime  config.RuntimeConfig
	Catalog  *catalog.Catalog
	Options  *catalog.OptionLoader
	Location *time.Location
}

// EntityHandlers serve the list, register, details, edit and delete pages of every catalog entity.
type EntityHandlers struct {
	logger   *zap.Logger
	client   *apiclient.Client
	runtime  config.RuntimeConfig
	catalog  *catalog.Catalog
	options  *catalog.OptionLoader
	location *time.Location
	shell    pageShell
}

// NewEntityHandlers constructs EntityHandlers.
func NewEntityHandlers(configuration EntityConfig) *EntityHandlers {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	location := configuration.Location
	if location == nil {
		location = time.Local
	}
	return &EntityHandlers{
		logger:   logger,
		client:   configuration.Client,
		runtime:  configuration.Runtime,
		catalog:  configuration.Catalog,
		options:  configuration.Options,
		location: location,
		shell:    pageShell{auth: configuration.Auth, renderer: newPageRenderer(logger)},
	}
}

// Register mounts the pages of every entity under its route.
func (handlers *EntityHandlers) Register(router gin.IRouter, middleware ...gin.HandlerFunc) {
	for _, entity := range handlers.catalog.Entities() {
		group := router.Group(entity.Route, middleware...)
		group.GET("", handlers.List(entity))
		group.GET(routeTable, handlers.Table(entity))
		if entity.Register && !entity.CustomRegister {
			group.GET(routeRegister, handlers.RenderRegister(entity))
			group.POST(routeRegister, handlers.SubmitRegister(entity))
		}
		if entity.Capabilities.View {
			group.GET(routeDetails, handlers.Details(entity))
		}
		if entity.Editable() {
			group.GET(routeEdit, handlers.RenderEdit(entity))
			group.POST(routeEdit, handlers.SubmitEdit(entity))
		}
		if entity.Capabilities.Delete {
			group.GET(routeDelete, handlers.ConfirmDelete(entity))
			group.POST(routeDelete, handlers.Delete(entity))
		}
		if len(entity.Actions) > 0 {
			group.POST(routeAction, handlers.RunAction(entity))
		}
	}
}

type listView struct {
	RegisterURL string
	FragmentURL string
	Table       template.HTML
}

// List renders the page shell; the grid arrives from Table.
func (handlers *EntityHandlers) List(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		state := table.StateFromQuery(context.Request.URL.Query())
		model := table.View(entity.Columns, nil, state, handlers.tableOptions(entity, true))
		tableHTML, renderErr := table.Render(model)
		if renderErr != nil {
			handlers.logger.Error(logEventRenderTable, zap.String(logFieldEntity, entity.Key), zap.Error(renderErr))
			context.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": renderFailedMessage})
			return
		}
		view := listView{
			FragmentURL: withQuery(entity.Path(pathTable), state.Query()),
			Table:       tableHTML,
		}
		if entity.Register {
			view.RegisterURL = entity.RegisterPath()
		}
		data := handlers.shell.page(context, entity.Title, entity.Subtitle, entity.Trail(), view)
		handlers.shell.render(context, http.StatusOK, pageList, data)
	}
}

// Table fetches every record and returns the sorted, paginated grid fragment.
func (handlers *EntityHandlers) Table(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		state := table.StateFromQuery(context.Request.URL.Query())
		options := handlers.tableOptions(entity, false)
		rows, fetchErr := handlers.fetchRows(context, entity)
		if fetchErr != nil {
			if handlers.shell.interrupted(context, fetchErr) {
				return
			}
			handlers.logger.Warn(logEventListFailed, zap.String(logFieldEntity, entity.Key), zap.Error(fetchErr))
			options.Error = apiclient.UserMessage(fetchErr, messageLoadFailed)
		}
		tableHTML, renderErr := table.Render(table.View(entity.Columns, rows, state, options))
		if renderErr != nil {
			handlers.logger.Error(logEventRenderTable, zap.String(logFieldEntity, entity.Key), zap.Error(renderErr))
			context.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": renderFailedMessage})
			return
		}
		context.Data(http.StatusOK, htmlContentType, []byte(tableHTML))
	}
}

func (handlers *EntityHandlers) tableOptions(entity catalog.Entity, loading bool) table.Options {
	return table.Options{
		ID:       entityTablePrefix + entity.Key,
		Loading:  loading,
		Actions:  entity.TableActions(),
		LinkPath: entity.Route,
	}
}

func (handlers *EntityHandlers) fetchRows(context *gin.Context, entity catalog.Entity) ([]table.Row, error) {
	response, getErr := handlers.client.Get(context.Request.Context(), entity.ListURL(handlers.runtime), nil, apiclient.WithToken(handlers.token(context)))
	if getErr != nil {
		return nil, getErr
	}
	return decodeRows(response.Data)
}

func (handlers *EntityHandlers) fetchRecord(context *gin.Context, entity catalog.Entity, identifier string) (map[string]any, error) {
	response, getErr := handlers.client.Get(context.Request.Context(), entity.ItemURL(handlers.runtime, identifier), nil, apiclient.WithToken(handlers.token(context)))
	if getErr != nil {
		return nil, getErr
	}
	return decodeRecord(response.Data)
}

func (handlers *EntityHandlers) token(context *gin.Context) string {
	return handlers.shell.auth.Store(context).Token()
}

type detailRowView struct {
	Label string
	Value string
}

type detailTableView struct {
	Title string
	HTML  template.HTML
}

type detailsView struct {
	Rows    []detailRowView
	Tables  []detailTableView
	Error   string
	EditURL string
	BackURL string
}

// Details shows one record read-only, followed by its non-empty nested tables.
func (handlers *EntityHandlers) Details(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		identifier := context.Param(paramID)
		view := detailsView{BackURL: entity.Route}
		if entity.Editable() {
			view.EditURL = entity.EditPath(identifier)
		}
		record, fetchErr := handlers.fetchRecord(context, entity, identifier)
		if fetchErr != nil {
			if handlers.shell.interrupted(context, fetchErr) {
				return
			}
			handlers.logger.Warn(logEventRecordFailed, zap.String(logFieldEntity, entity.Key), zap.Error(fetchErr))
			view.Error = apiclient.UserMessage(fetchErr, messageRecordFailed)
		} else {
			view.Rows = detailRows(entity, record)
			view.Tables = handlers.detailTables(context, entity, record)
		}
		data := handlers.shell.page(context, entity.Singular, entity.Subtitle, entity.DetailsTrail(identifier), view)
		handlers.shell.render(context, http.StatusOK, pageDetails, data)
	}
}

func detailRows(entity catalog.Entity, record map[string]any) []detailRowView {
	details := entity.DetailRows()
	rows := make([]detailRowView, 0, len(details))
	for _, detail := range details {
		value := table.Value(record, detail.Key)
		text := table.FormatValue(value)
		if detail.Format != nil && value != nil {
			text = detail.Format(value)
		}
		rows = append(rows, detailRowView{Label: detail.Label, Value: text})
	}
	return rows
}

func (handlers *EntityHandlers) detailTables(context *gin.Context, entity catalog.Entity, record map[string]any) []detailTableView {
	query := context.Request.URL.Query()
	views := make([]detailTableView, 0, len(entity.DetailTables))
	for _, detailTable := range entity.DetailTables {
		rows := nestedRows(record[detailTable.Key])
		if len(rows) == 0 {
			continue
		}
		state := table.NamespacedState(query, detailTable.Key)
		model := table.View(detailTable.Columns, rows, state, table.Options{
			ID:        detailTablePrefix + detailTable.Key,
			PageSize:  detailTable.PageSize,
			LinkPath:  context.Request.URL.Path,
			LinkQuery: query,
		})
		tableHTML, renderErr := table.Render(model)
		if renderErr != nil {
			handlers.logger.Error(logEventRenderTable, zap.String(logFieldEntity, entity.Key), zap.Error(renderErr))
			continue
		}
		views = append(views, detailTableView{Title: detailTable.Title, HTML: tableHTML})
	}
	return views
}

// RenderRegister shows the empty register form.
func (handlers *EntityHandlers) RenderRegister(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		handlers.showForm(context, entity, registerMode(entity), func(fields []form.FieldDescriptor) form.Values {
			return form.Defaults(fields)
		})
	}
}

// SubmitRegister validates the posted form and creates the record.
func (handlers *EntityHandlers) SubmitRegister(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		handlers.submitForm(context, entity, registerMode(entity))
	}
}

// RenderEdit shows the edit form seeded from the stored record.
func (handlers *EntityHandlers) RenderEdit(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		identifier := context.Param(paramID)
		record, fetchErr := handlers.fetchRecord(context, entity, identifier)
		if fetchErr != nil {
			if handlers.shell.interrupted(context, fetchErr) {
				return
			}
			handlers.logger.Warn(logEventRecordFailed, zap.String(logFieldEntity, entity.Key), zap.Error(fetchErr))
			handlers.renderFormPage(context, entity, editMode(entity, identifier), formState{
				status:  http.StatusOK,
				failure: apiclient.UserMessage(fetchErr, messageRecordFailed),
			})
			return
		}
		handlers.showForm(context, entity, editMode(entity, identifier), func(fields []form.FieldDescriptor) form.Values {
			return form.Seed(fields, record, handlers.location)
		})
	}
}

// SubmitEdit validates the posted form and replaces the record.
func (handlers *EntityHandlers) SubmitEdit(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		handlers.submitForm(context, entity, editMode(entity, context.Param(paramID)))
	}
}

type deleteView struct {
	Label     string
	Action    string
	CancelURL string
}

// ConfirmDelete asks before deleting; nothing reaches the backend from this page.
func (handlers *EntityHandlers) ConfirmDelete(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		identifier := context.Param(paramID)
		view := deleteView{
			Label:     fmt.Sprintf(recordLabelFormat, identifier),
			Action:    entity.DeletePath(identifier),
			CancelURL: entity.Route,
		}
		data := handlers.shell.page(context, entity.Title, entity.Subtitle, entity.DeleteTrail(identifier), view)
		handlers.shell.render(context, http.StatusOK, pageDelete, data)
	}
}

// Delete removes the record once the confirmation was posted and returns to the list.
func (handlers *EntityHandlers) Delete(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		if context.PostForm(confirmFormField) != confirmFormValue {
			context.Redirect(http.StatusFound, entity.Route)
			return
		}
		identifier := context.Param(paramID)
		response, deleteErr := handlers.client.Delete(context.Request.Context(), entity.DeleteURL(handlers.runtime, identifier), apiclient.WithToken(handlers.token(context)))
		if deleteErr != nil {
			if handlers.shell.interrupted(context, deleteErr) {
				return
			}
			handlers.logger.Warn(logEventDeleteFailed, zap.String(logFieldEntity, entity.Key), zap.Error(deleteErr))
			handlers.shell.auth.AddAlert(context, ErrorAlert(apiclient.UserMessage(deleteErr, messageDeleteFailed)))
			context.Redirect(http.StatusFound, entity.Route)
			return
		}
		handlers.options.Invalidate(entity.Invalidates...)
		handlers.shell.auth.AddAlert(context, SuccessAlert(titleDeleted, entity.DeletedMessage(response.Message())))
		context.Redirect(http.StatusFound, entity.Route)
	}
}

// RunAction posts an entity-specific row action, such as running a job, and returns to the list.
func (handlers *EntityHandlers) RunAction(entity catalog.Entity) gin.HandlerFunc {
	return func(context *gin.Context) {
		action, actionErr := entity.Action(context.Param(paramAction))
		if actionErr != nil {
			context.AbortWithStatus(http.StatusNotFound)
			return
		}
		actionURL := action.Endpoint.URL(handlers.runtime, context.Param(paramID))
		response, postErr := handlers.client.Post(context.Request.Context(), actionURL, nil, apiclient.WithToken(handlers.token(context)))
		if postErr != nil {
			if handlers.shell.interrupted(context, postErr) {
				return
			}
			handlers.logger.Warn(logEventActionFailed, zap.String(logFieldEntity, entity.Key), zap.String("action", action.Name), zap.Error(postErr))
			handlers.shell.auth.AddAlert(context, ErrorAlert(apiclient.UserMessage(postErr, messageActionFailed)))
			context.Redirect(http.StatusFound, entity.Route)
			return
		}
		message := response.Message()
		if message == "" {
			message = action.Success
		}
		handlers.options.Invalidate(entity.Invalidates...)
		handlers.shell.auth.AddAlert(context, SuccessAlert(titleSuccess, message))
		context.Redirect(http.StatusFound, entity.Route)
	}
}

func withQuery(path string, query url.Values) string {
	encoded := query.Encode()
	if encoded == "" {
		return path
	}
	return path + "?" + encoded
}

func decodeJSON(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var decoded any
	if decodeErr := decoder.Decode(&decoded); decodeErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageUnexpectedShape, decodeErr)
	}
	return decoded, nil
}

// decodeRows accepts a bare array of records or an object wrapping it under "data".
func decodeRows(data []byte) ([]table.Row, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	decoded, decodeErr := decodeJSON(data)
	if decodeErr != nil {
		return nil, decodeErr
	}
	if envelope, isObject := decoded.(map[string]any); isObject {
		decoded = envelope["data"]
	}
	if decoded == nil {
		return nil, nil
	}
	if _, isArray := decoded.([]any); !isArray {
		return nil, errUnexpectedShape
	}
	return nestedRows(decoded), nil
}

func decodeRecord(data []byte) (map[string]any, error) {
	decoded, decodeErr := decodeJSON(data)
	if decodeErr != nil {
		return nil, decodeErr
	}
	record, isObject := decoded.(map[string]any)
	if !isObject {
		return nil, errUnexpectedShape
	}
	return record, nil
}

func nestedRows(value any) []table.Row {
	entries, _ := value.([]any)
	rows := make([]table.Row, 0, len(entries))
	for _, entry := range entries {
		if record, isObject := entry.(map[string]any); isObject {
			rows = append(rows, table.Row(record))
		}
	}
	return rows
}

package httpapi

import (
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
	linkFieldSystem       = "measurementSystem"
	linkFieldInstallation = "installation"
	linkKeyInstallation   = "instalacionCvId"
	linkKeyElement        = "elementoCvId"
	linkKeyUCC            = "elementoUccId"
	linkSourceElements    = "cv360-elements"
	linkItemsKey          = "links"
	linkIntentRefresh     = "refresh"

	linkTitle         = "Registro de Enlace CV360"
	linkSubmitLabel   = "Enviar"
	linkRefreshLabel  = "Cargar elementos"
	messageLinkFailed = "Error al registrar los enlaces."
	messageNoLinks    = "Agregue al menos un enlace."

	logEventLinkOptions = "link_config_options"
	logEventLinkFailed  = "link_config_failed"
)

var linkItemEditor = catalog.ItemEditor{
	Key:   linkItemsKey,
	Title: "Enlaces",
	Fields: []form.FieldDescriptor{
		form.SourcedDropdown(linkKeyElement, "Elemento", 6, true, false, linkSourceElements),
		form.Text(linkKeyUCC, "UCC ID", 6, false),
	},
	Columns: []table.Column{
		{Header: "Instalacion CV ID", AccessorKey: linkKeyInstallation},
		{Header: "Elemento CV ID", AccessorKey: linkKeyElement},
		{Header: "Elemento UCC ID", AccessorKey: linkKeyUCC},
	},
}

// LinkConfigHandlers serve the page that links CV360 tanks and ducts to a measurement system. The
// installation picked on the form scopes the elements offered; links are collected one by one and
// sent together.
type LinkConfigHandlers struct {
	entities *EntityHandlers
	entity   catalog.Entity
}

// NewLinkConfigHandlers builds the handlers on top of the entity pages' collaborators.
func NewLinkConfigHandlers(entityHandlers *EntityHandlers, entity catalog.Entity) *LinkConfigHandlers {
	return &LinkConfigHandlers{entities: entityHandlers, entity: entity}
}

// Register mounts the register page of the link entity.
func (handlers *LinkConfigHandlers) Register(router gin.IRouter, middleware ...gin.HandlerFunc) {
	group := router.Group(handlers.entity.Route, middleware...)
	group.GET(routeRegister, handlers.Render)
	group.POST(routeRegister, handlers.Submit)
}

func (handlers *LinkConfigHandlers) mode() formMode {
	return formMode{
		title:        linkTitle,
		trail:        handlers.entity.RegisterTrail(),
		action:       handlers.entity.RegisterPath(),
		submitLabel:  linkSubmitLabel,
		failure:      messageLinkFailed,
		logEvent:     logEventLinkFailed,
		items:        &linkItemEditor,
		confirmation: handlers.entity.CreatedMessage,
		refresh:      linkRefreshLabel,
	}
}

func linkScopeFields() []form.FieldDescriptor {
	return []form.FieldDescriptor{
		form.SourcedDropdown(linkFieldSystem, "Sistema de Medicion", 12, true, false, catalog.SourceMeasurementSystems),
		form.SourcedDropdown(linkFieldInstallation, "Instalacion", 12, false, false, catalog.SourceInstallations),
	}
}

// resolve loads the measurement systems, the caller's installations and, once an installation is
// chosen, its tanks and ducts.
func (handlers *LinkConfigHandlers) resolve(context *gin.Context, installation string) ([]form.FieldDescriptor, []form.FieldDescriptor, error) {
	caller := handlers.entities.shell.auth.Caller(context)
	requests := []catalog.Request{
		{Source: catalog.SourceMeasurementSystems},
		{Source: catalog.SourceInstallations, Scope: caller.Username},
	}
	if installation != "" {
		requests = append(requests,
			catalog.Request{Source: catalog.SourceTanks, Scope: installation},
			catalog.Request{Source: catalog.SourceDucts, Scope: installation},
		)
	}
	options, loadErr := handlers.entities.options.Load(context.Request.Context(), caller, requests...)
	if loadErr != nil {
		return nil, nil, loadErr
	}
	elements := make([]form.Option, 0, len(options[catalog.SourceTanks])+len(options[catalog.SourceDucts]))
	elements = append(elements, options[catalog.SourceTanks]...)
	elements = append(elements, options[catalog.SourceDucts]...)
	options[linkSourceElements] = elements
	return form.WithOptions(linkScopeFields(), options), form.WithOptions(prefixItemFields(&linkItemEditor), options), nil
}

// Render shows the empty form, preselecting the installation given in the query.
func (handlers *LinkConfigHandlers) Render(context *gin.Context) {
	installation := strings.TrimSpace(context.Query(linkFieldInstallation))
	fields, itemFields, resolveErr := handlers.resolve(context, installation)
	if resolveErr != nil {
		handlers.optionsFailed(context, resolveErr)
		return
	}
	values := mergeValues(form.Defaults(fields), form.Defaults(itemFields))
	values[linkFieldInstallation] = installation
	handlers.entities.renderFormPage(context, handlers.entity, handlers.mode(), formState{
		status:     http.StatusOK,
		fields:     fields,
		itemFields: itemFields,
		values:     values,
	})
}

// Submit handles the form's intents: reloading elements, adding or removing a link, and sending
// the collected links to the chosen measurement system.
func (handlers *LinkConfigHandlers) Submit(context *gin.Context) {
	if parseErr := context.Request.ParseForm(); parseErr != nil {
		context.AbortWithStatus(http.StatusBadRequest)
		return
	}
	posted := context.Request.PostForm
	installation := strings.TrimSpace(posted.Get(linkFieldInstallation))
	fields, itemFields, resolveErr := handlers.resolve(context, installation)
	if resolveErr != nil {
		handlers.optionsFailed(context, resolveErr)
		return
	}

	mode := handlers.mode()
	values, _ := form.Parse(fields, posted, handlers.entities.location)
	itemValues, _ := form.Parse(itemFields, posted, handlers.entities.location)
	state := formState{
		status:     http.StatusOK,
		fields:     fields,
		itemFields: itemFields,
		values:     mergeValues(values, itemValues),
		items:      handlers.entities.decodeItems(posted.Get(itemsFormField)),
	}

	intent := posted.Get(intentFormField)
	switch {
	case intent == linkIntentRefresh:
		state.values = mergeValues(values, form.Defaults(itemFields))
		handlers.entities.renderFormPage(context, handlers.entity, mode, state)
		return
	case intent == intentAddItem:
		handlers.addLink(context, mode, state, installation, itemValues)
		return
	case strings.HasPrefix(intent, intentRemoveItem):
		index, convertErr := strconv.Atoi(strings.TrimPrefix(intent, intentRemoveItem))
		if convertErr == nil && index >= 0 && index < len(state.items) {
			state.items = append(state.items[:index:index], state.items[index+1:]...)
		}
		handlers.entities.renderFormPage(context, handlers.entity, mode, state)
		return
	}

	payload, submitErr := form.Submit(fields, values)
	if validation := mergeValidation(submitErr); validation != nil {
		state.status = http.StatusUnprocessableEntity
		state.errors = validation
		state.message = messageInvalidForm
		handlers.entities.renderFormPage(context, handlers.entity, mode, state)
		return
	}
	if len(state.items) == 0 {
		state.status = http.StatusUnprocessableEntity
		state.itemsError = messageNoLinks
		handlers.entities.renderFormPage(context, handlers.entity, mode, state)
		return
	}

	systemID := form.Option{Value: payload[linkFieldSystem]}.Token()
	endpoint := handlers.entities.runtime.Endpoint(true, "measurementsystems", systemID, "linkconfigurations", "list")
	response, postErr := handlers.entities.client.Post(context.Request.Context(), endpoint, state.items, apiclient.WithToken(handlers.entities.token(context)))
	if postErr != nil {
		if handlers.entities.shell.interrupted(context, postErr) {
			return
		}
		handlers.entities.logger.Warn(logEventLinkFailed, zap.String(logFieldEntity, handlers.entity.Key), zap.Error(postErr))
		message := apiclient.UserMessage(postErr, messageLinkFailed)
		alert := ErrorAlert(message)
		state.message = message
		state.alert = &alert
		handlers.entities.renderFormPage(context, handlers.entity, mode, state)
		return
	}
	handlers.entities.shell.auth.AddAlert(context, SuccessAlert(titleSuccess, mode.confirmation(response.Message())))
	context.Redirect(http.StatusFound, handlers.entity.Route)
}

func (handlers *LinkConfigHandlers) addLink(context *gin.Context, mode formMode, state formState, installation string, itemValues form.Values) {
	itemPayload, submitErr := form.Submit(itemFieldsWithInstallation(state.itemFields), mergeValues(itemValues, form.Values{linkFieldInstallation: installation}))
	if validation := mergeValidation(submitErr); validation != nil {
		state.status = http.StatusUnprocessableEntity
		state.errors = validation
		state.itemsError = messageInvalidForm
		handlers.entities.renderFormPage(context, handlers.entity, mode, state)
		return
	}
	link, _ := itemPayload[itemPathPrefix].(map[string]any)
	if link == nil {
		link = make(map[string]any)
	}
	link[linkKeyInstallation] = installation
	state.items = append(state.items, link)
	state.values = mergeValues(state.values, form.Defaults(state.itemFields))
	handlers.entities.renderFormPage(context, handlers.entity, mode, state)
}

// itemFieldsWithInstallation requires an installation whenever a link is added.
func itemFieldsWithInstallation(itemFields []form.FieldDescriptor) []form.FieldDescriptor {
	required := form.Text(linkFieldInstallation, "Instalacion", 12, true)
	return append([]form.FieldDescriptor{required}, itemFields...)
}

func (handlers *LinkConfigHandlers) optionsFailed(context *gin.Context, resolveErr error) {
	if handlers.entities.shell.interrupted(context, resolveErr) {
		return
	}
	handlers.entities.logger.Warn(logEventLinkOptions, zap.Error(resolveErr))
	handlers.entities.renderFormPage(context, handlers.entity, handlers.mode(), formState{
		status:  http.StatusOK,
		failure: apiclient.UserMessage(resolveErr, messageOptionsFailed),
	})
}

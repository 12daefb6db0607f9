package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/apiclient"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/catalog"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/config"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
)

const (
	// UnregisteredOperationsPath uploads CSV files that generate unregistered volumetric operations.
	UnregisteredOperationsPath = "/unregistered-operations"

	ElementTank = "TANK"
	ElementDuct = "DUCT"

	uploadFormID          = "upload-form"
	uploadTitle           = "Operaciones no registradas"
	uploadSubtitle        = "Genera operaciones no registradas mediante un archivo csv"
	uploadSubmitLabel     = "Enviar"
	uploadFieldType       = "type"
	uploadFieldTarget     = "target"
	uploadFieldFile       = "file"
	uploadFieldElement    = "element"
	uploadQueryInstall    = "installation"
	uploadQueryElement    = "element"
	uploadMaxMemoryBytes  = 32 << 20
	uploadFailureCode     = "ERROR"
	messageUploadFailed   = "Error al registrar la operación."
	messageNoTargets      = "La instalación seleccionada no tiene elementos de este tipo."
	messageInstallsFailed = "Error al cargar las instalaciones."

	logEventUploadFailed  = "unregistered_upload_failed"
	logEventUploadOptions = "unregistered_upload_options"
	logEventUploadDecode  = "unregistered_upload_decode"
)

var (
	uploadElements = []form.Option{
		{Value: ElementTank, Label: "Tanque"},
		{Value: ElementDuct, Label: "Ducto"},
	}
	uploadOperations = []form.Option{
		{Value: "Recepcion", Label: "Recepcion"},
		{Value: "Entrega", Label: "Entrega"},
		{Value: "Existencia", Label: "Existencia"},
	}
)

// operationOptions lists the volumetric operations an element supports; only tanks report stock.
func operationOptions(element string) []form.Option {
	if element == ElementTank {
		return uploadOperations
	}
	filtered := make([]form.Option, 0, len(uploadOperations))
	for _, option := range uploadOperations {
		if option.Value != "Existencia" {
			filtered = append(filtered, option)
		}
	}
	return filtered
}

// UploadConfig captures the dependencies of UploadHandlers.
type UploadConfig struct {
	Logger   *zap.Logger
	Auth     *AuthManager
	Client   *apiclient.Client
	Runtime  config.RuntimeConfig
	Options  *catalog.OptionLoader
	Location *time.Location
}

// UploadHandlers serve the unregistered operations page.
type UploadHandlers struct {
	logger   *zap.Logger
	client   *apiclient.Client
	runtime  config.RuntimeConfig
	options  *catalog.OptionLoader
	location *time.Location
	shell    pageShell
}

// NewUploadHandlers constructs UploadHandlers.
func NewUploadHandlers(configuration UploadConfig) *UploadHandlers {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	location := configuration.Location
	if location == nil {
		location = time.Local
	}
	return &UploadHandlers{
		logger:   logger,
		client:   configuration.Client,
		runtime:  configuration.Runtime,
		options:  configuration.Options,
		location: location,
		shell:    pageShell{auth: configuration.Auth, renderer: newPageRenderer(logger)},
	}
}

type scopeOptionView struct {
	Value    string
	Label    string
	Selected bool
}

// UploadResult is one line of the backend's report on an uploaded file.
type UploadResult struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Status  bool   `json:"status"`
}

type uploadView struct {
	Action        string
	Installations []scopeOptionView
	Elements      []scopeOptionView
	Form          template.HTML
	Error         string
	Results       []UploadResult
}

type uploadScope struct {
	installation string
	element      string
}

func (scope uploadScope) complete() bool {
	return scope.installation != "" && (scope.element == ElementTank || scope.element == ElementDuct)
}

func (scope uploadScope) targetSource() string {
	if scope.element == ElementTank {
		return catalog.SourceTanks
	}
	return catalog.SourceDucts
}

func (scope uploadScope) targetLabel() string {
	if scope.element == ElementTank {
		return "Tanques"
	}
	return "Ductos"
}

func (scope uploadScope) query() url.Values {
	query := url.Values{}
	if scope.installation != "" {
		query.Set(uploadQueryInstall, scope.installation)
	}
	if scope.element != "" {
		query.Set(uploadQueryElement, scope.element)
	}
	return query
}

// uploadPage is the page being assembled for one request.
type uploadPage struct {
	scope  uploadScope
	view   uploadView
	fields []form.FieldDescriptor
}

// Render shows the installation and element selectors and, once both are chosen, the upload form.
func (handlers *UploadHandlers) Render(context *gin.Context) {
	page, ready := handlers.prepare(context)
	if !ready {
		return
	}
	if page.fields != nil {
		handlers.renderForm(&page, form.Defaults(page.fields), nil)
	}
	handlers.render(context, http.StatusOK, page)
}

// Submit validates the upload and forwards the file to the backend, showing its per-line report.
func (handlers *UploadHandlers) Submit(context *gin.Context) {
	if parseErr := context.Request.ParseMultipartForm(uploadMaxMemoryBytes); parseErr != nil {
		context.AbortWithStatus(http.StatusBadRequest)
		return
	}
	page, ready := handlers.prepare(context)
	if !ready {
		return
	}
	if page.fields == nil {
		handlers.render(context, http.StatusBadRequest, page)
		return
	}

	values, parseErr := form.Parse(page.fields, context.Request.PostForm, handlers.location)
	payload, submitErr := form.Submit(page.fields, values)
	validation := mergeValidation(parseErr, submitErr)
	file, header, fileErr := context.Request.FormFile(uploadFieldFile)
	if fileErr != nil {
		if validation == nil {
			validation = &form.ValidationError{}
		}
		validation.Missing = append(validation.Missing, form.FieldError{Path: form.ParsePath(uploadFieldFile), Label: "Archivo", Err: form.ErrRequired})
	} else {
		defer file.Close()
	}
	if validation != nil {
		handlers.renderForm(&page, values, validation)
		handlers.render(context, http.StatusUnprocessableEntity, page)
		return
	}

	target := fmt.Sprint(payload[uploadFieldTarget])
	endpoint := handlers.runtime.Endpoint(true, "ops-no-registradas", "upload", "instalacion", page.scope.installation, "elemento", target)
	response, uploadErr := handlers.client.PostMultipart(context.Request.Context(), endpoint,
		map[string]string{
			uploadFieldType:    fmt.Sprint(payload[uploadFieldType]),
			uploadFieldElement: page.scope.element,
		},
		&apiclient.MultipartFile{FieldName: uploadFieldFile, FileName: header.Filename, Content: file},
		apiclient.WithToken(handlers.shell.auth.Store(context).Token()),
	)
	if uploadErr != nil {
		if handlers.shell.interrupted(context, uploadErr) {
			return
		}
		handlers.logger.Warn(logEventUploadFailed, zap.Error(uploadErr))
		page.view.Results = failedUpload()
	} else {
		page.view.Results = handlers.decodeResults(response.Data)
	}
	handlers.renderForm(&page, values, nil)
	handlers.render(context, http.StatusOK, page)
}

// prepare loads the selector options and, for a complete scope, the upload fields.
func (handlers *UploadHandlers) prepare(context *gin.Context) (uploadPage, bool) {
	scope := uploadScope{
		installation: strings.TrimSpace(context.Query(uploadQueryInstall)),
		element:      strings.TrimSpace(context.Query(uploadQueryElement)),
	}
	page := uploadPage{
		scope: scope,
		view: uploadView{
			Action:   UnregisteredOperationsPath,
			Elements: scopeOptions(uploadElements, scope.element),
		},
	}

	caller := handlers.shell.auth.Caller(context)
	requests := []catalog.Request{{Source: catalog.SourceInstallations, Scope: caller.Username}}
	if scope.complete() {
		requests = append(requests, catalog.Request{Source: scope.targetSource(), Scope: scope.installation})
	}
	options, loadErr := handlers.options.Load(context.Request.Context(), caller, requests...)
	if loadErr != nil {
		if handlers.shell.interrupted(context, loadErr) {
			return page, false
		}
		handlers.logger.Warn(logEventUploadOptions, zap.Error(loadErr))
		page.view.Error = apiclient.UserMessage(loadErr, messageInstallsFailed)
		return page, true
	}
	page.view.Installations = scopeOptions(options[catalog.SourceInstallations], scope.installation)
	if !scope.complete() {
		return page, true
	}
	targets := options[scope.targetSource()]
	if len(targets) == 0 {
		page.view.Error = messageNoTargets
		return page, true
	}
	page.fields = []form.FieldDescriptor{
		form.Dropdown(uploadFieldType, "Operacion Volumetrica", 4, true, false, operationOptions(scope.element)...),
		form.Dropdown(uploadFieldTarget, scope.targetLabel(), 8, true, false, targets...),
		form.File(uploadFieldFile, "Archivo", 12, true),
	}
	return page, true
}

func (handlers *UploadHandlers) renderForm(page *uploadPage, values form.Values, validation *form.ValidationError) {
	message := ""
	if validation != nil {
		message = messageInvalidForm
	}
	formHTML, renderErr := form.Render(page.fields, values, form.RenderOptions{
		ID:          uploadFormID,
		Action:      withQuery(UnregisteredOperationsPath, page.scope.query()),
		SubmitLabel: uploadSubmitLabel,
		Message:     message,
		Errors:      validation,
		Location:    handlers.location,
	})
	if renderErr != nil {
		handlers.logger.Error(logEventRenderForm, zap.Error(renderErr))
		page.view.Error = messageOptionsFailed
		return
	}
	page.view.Form = formHTML
}

func (handlers *UploadHandlers) render(context *gin.Context, status int, page uploadPage) {
	trail := []catalog.Breadcrumb{catalog.CatalogsCrumb, catalog.UnregisteredCrumb}
	data := handlers.shell.page(context, uploadTitle, uploadSubtitle, trail, page.view)
	handlers.shell.render(context, status, pageUpload, data)
}

func (handlers *UploadHandlers) decodeResults(data []byte) []UploadResult {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var results []UploadResult
	if decodeErr := decoder.Decode(&results); decodeErr != nil {
		handlers.logger.Warn(logEventUploadDecode, zap.Error(decodeErr))
		return failedUpload()
	}
	return results
}

func failedUpload() []UploadResult {
	return []UploadResult{{Code: uploadFailureCode, Message: messageUploadFailed, Status: false}}
}

func scopeOptions(options []form.Option, selected string) []scopeOptionView {
	views := make([]scopeOptionView, 0, len(options))
	for _, option := range options {
		token := option.Token()
		views = append(views, scopeOptionView{Value: token, Label: option.Label, Selected: token == selected})
	}
	return views
}

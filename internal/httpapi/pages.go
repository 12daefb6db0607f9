package httpapi

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/apiclient"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/catalog"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/model"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/session"
	"github.com/MarkoPoloResearchLab/acquisition_console/pkg/footer"
)

const (
	htmlContentType    = "text/html; charset=utf-8"
	layoutTemplateName = "layout"
	loginTemplateName  = "login"
	consoleName        = "Consola de Adquisición"
	themeLabelDark     = "Modo Oscuro"
	themeLabelLight    = "Modo Claro"
	headerFragment     = "X-Console-Fragment"

	pageHub     = "hub"
	pageList    = "list"
	pageForm    = "record_form"
	pageDetails = "details"
	pageDelete  = "delete"
	pageUpload  = "upload"

	logEventRenderPage   = "render_page"
	logEventRenderFooter = "render_footer"
	renderFailedMessage  = "page_render_failed"
)

// Alert kinds.
const (
	AlertSuccess = "success"
	AlertError   = "error"
	AlertWarning = "warning"
)

// Alert is a dismissable modal shown once on the next rendered page.
type Alert struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SuccessAlert builds a success alert.
func SuccessAlert(title string, message string) Alert {
	return Alert{Kind: AlertSuccess, Title: title, Message: message}
}

// ErrorAlert builds a failure alert.
func ErrorAlert(message string) Alert {
	return Alert{Kind: AlertError, Title: "Error", Message: message}
}

// pageData is what the layout template renders around every signed-in page.
type pageData struct {
	Title       string
	Subtitle    string
	Theme       string
	ThemeLabel  string
	User        session.User
	Menu        []session.MenuItem
	CurrentPath string
	Breadcrumbs []catalog.Breadcrumb
	Alerts      []Alert
	Footer      template.HTML
	Content     any
}

var templateFunctions = template.FuncMap{
	"isActive": func(current string, target string) bool {
		target = strings.TrimRight(target, "/")
		return target != "" && (current == target || strings.HasPrefix(current, target+"/"))
	},
	"last": func(index int, length int) bool {
		return index == length-1
	},
	"alertClass": func(kind string) string {
		switch kind {
		case AlertSuccess:
			return "text-success"
		case AlertWarning:
			return "text-warning"
		default:
			return "text-danger"
		}
	},
	"alertIcon": func(kind string) string {
		switch kind {
		case AlertSuccess:
			return "bi-check-circle"
		case AlertWarning:
			return "bi-exclamation-triangle"
		default:
			return "bi-x-circle"
		}
	},
}

type pageRenderer struct {
	logger    *zap.Logger
	templates map[string]*template.Template
	login     *template.Template
	now       func() time.Time
}

func newPageRenderer(logger *zap.Logger) *pageRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	layout := template.Must(template.New(layoutTemplateName).Funcs(templateFunctions).Parse(layoutTemplateHTML))
	pages := map[string]string{
		pageHub:     hubTemplateHTML,
		pageList:    listTemplateHTML,
		pageForm:    recordFormTemplateHTML,
		pageDetails: detailsTemplateHTML,
		pageDelete:  deleteTemplateHTML,
		pageUpload:  uploadTemplateHTML,
	}
	compiled := make(map[string]*template.Template, len(pages))
	for name, body := range pages {
		compiled[name] = template.Must(template.Must(layout.Clone()).Parse(body))
	}
	return &pageRenderer{
		logger:    logger,
		templates: compiled,
		login:     template.Must(template.New(loginTemplateName).Funcs(templateFunctions).Parse(loginTemplateHTML)),
		now:       time.Now,
	}
}

func (renderer *pageRenderer) footer() template.HTML {
	footerHTML, footerErr := footer.Render(footer.NewConfig(renderer.now()))
	if footerErr != nil {
		renderer.logger.Error(logEventRenderFooter, zap.Error(footerErr))
		return ""
	}
	return footerHTML
}

func (renderer *pageRenderer) render(context *gin.Context, status int, page string, data pageData) {
	compiled, found := renderer.templates[page]
	if !found {
		renderer.logger.Error(logEventRenderPage, zap.String("page", page))
		context.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": renderFailedMessage})
		return
	}
	data.Footer = renderer.footer()
	renderer.write(context, status, compiled, layoutTemplateName, data)
}

func (renderer *pageRenderer) renderLogin(context *gin.Context, status int, data loginView) {
	data.Footer = renderer.footer()
	renderer.write(context, status, renderer.login, loginTemplateName, data)
}

func (renderer *pageRenderer) write(context *gin.Context, status int, compiled *template.Template, name string, data any) {
	var buffer bytes.Buffer
	if executeErr := compiled.ExecuteTemplate(&buffer, name, data); executeErr != nil {
		renderer.logger.Error(logEventRenderPage, zap.String("template", name), zap.Error(executeErr))
		context.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": renderFailedMessage})
		return
	}
	context.Data(status, htmlContentType, buffer.Bytes())
}

// pageShell assembles the chrome shared by signed-in pages.
type pageShell struct {
	auth     *AuthManager
	renderer *pageRenderer
}

func (shell pageShell) page(context *gin.Context, title string, subtitle string, trail []catalog.Breadcrumb, content any) pageData {
	store := shell.auth.Store(context)
	return pageData{
		Title:       title,
		Subtitle:    subtitle,
		Theme:       store.Theme(),
		ThemeLabel:  themeToggleLabel(store.Theme()),
		User:        store.User(),
		Menu:        store.MenuItems(),
		CurrentPath: context.Request.URL.Path,
		Breadcrumbs: trail,
		Alerts:      shell.auth.Alerts(context),
		Content:     content,
	}
}

func (shell pageShell) render(context *gin.Context, status int, page string, data pageData) {
	shell.renderer.render(context, status, page, data)
}

// interrupted finishes the request when err means there is nothing left to render: the browser went
// away or the backend no longer accepts the session token.
func (shell pageShell) interrupted(context *gin.Context, err error) bool {
	if context.Request.Context().Err() != nil {
		context.Abort()
		return true
	}
	if apiclient.IsUnauthorized(err) {
		shell.auth.Expire(context)
		return true
	}
	return false
}

// themeToggleLabel names the theme the toggle switches to.
func themeToggleLabel(theme string) string {
	if theme == model.ThemeDark {
		return themeLabelLight
	}
	return themeLabelDark
}

func isFragmentRequest(context *gin.Context) bool {
	return context.GetHeader(headerFragment) != ""
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/catalog"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/session"
)

const (
	// SettingsPath lists the configuration modules.
	SettingsPath = "/settings"
	// ConnectionsPath lists the connection modules.
	ConnectionsPath = "/connections"

	messageModulesFailed = "Error al cargar los módulos."
	logEventHubFailed    = "hub_modules_failed"
)

// Hub is a page listing the modules the profile may open at one menu level.
type Hub struct {
	Path     string
	Title    string
	Subtitle string
	Level    session.Level
	Trail    []catalog.Breadcrumb
}

// DefaultHubs returns the dashboard, settings and connections hubs.
func DefaultHubs() []Hub {
	return []Hub{
		{
			Path:     DashboardPath,
			Title:    "Catálogos",
			Subtitle: "Módulos disponibles para su perfil",
			Level:    session.LevelMenu,
			Trail:    []catalog.Breadcrumb{catalog.CatalogsCrumb},
		},
		{
			Path:     SettingsPath,
			Title:    "Configuración",
			Subtitle: "Parámetros y servicios del sistema",
			Level:    session.LevelSettings,
			Trail:    []catalog.Breadcrumb{catalog.SettingsCrumb},
		},
		{
			Path:     ConnectionsPath,
			Title:    "Conexiones",
			Subtitle: "Conexiones Modbus, OPC y ODBC",
			Level:    session.LevelConnections,
			Trail:    []catalog.Breadcrumb{catalog.CatalogsCrumb, catalog.ConnectionsCrumb},
		},
	}
}

type hubView struct {
	Modules []session.MenuItem
	Error   string
}

// HubHandlers render module hubs.
type HubHandlers struct {
	logger *zap.Logger
	shell  pageShell
}

// NewHubHandlers constructs HubHandlers.
func NewHubHandlers(logger *zap.Logger, auth *AuthManager) *HubHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HubHandlers{logger: logger, shell: pageShell{auth: auth, renderer: newPageRenderer(logger)}}
}

// Render returns the handler serving hub.
func (handlers *HubHandlers) Render(hub Hub) gin.HandlerFunc {
	return func(context *gin.Context) {
		view := hubView{}
		modules, menuErr := handlers.shell.auth.Store(context).Menu(context.Request.Context(), hub.Level)
		if menuErr != nil {
			if handlers.shell.interrupted(context, menuErr) {
				return
			}
			handlers.logger.Warn(logEventHubFailed, zap.String("level", string(hub.Level)), zap.Error(menuErr))
			view.Error = messageModulesFailed
		}
		view.Modules = modules
		data := handlers.shell.page(context, hub.Title, hub.Subtitle, hub.Trail, view)
		handlers.shell.render(context, http.StatusOK, pageHub, data)
	}
}

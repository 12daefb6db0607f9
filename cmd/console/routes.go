package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/httpapi"
)

const (
	routeRoot             = "/"
	corsHeaderContentType = "Content-Type"
	corsHeaderFragment    = "X-Console-Fragment"
	corsHeaderRedirect    = "X-Redirect"
	corsMaxAge            = 12 * time.Hour
)

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsAllowedHeaders = []string{corsHeaderContentType, corsHeaderFragment}
	corsExposedHeaders = []string{corsHeaderContentType, corsHeaderRedirect}
)

type consoleRoutes struct {
	logger             *zap.Logger
	authManager        *httpapi.AuthManager
	sessionHandlers    *httpapi.SessionHandlers
	hubHandlers        *httpapi.HubHandlers
	entityHandlers     *httpapi.EntityHandlers
	linkConfigHandlers *httpapi.LinkConfigHandlers
	uploadHandlers     *httpapi.UploadHandlers
	allowedOrigins     []string
}

func newConsoleRouter(routes consoleRoutes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(routes.logger))
	if len(routes.allowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     routes.allowedOrigins,
			AllowMethods:     corsAllowedMethods,
			AllowHeaders:     corsAllowedHeaders,
			ExposeHeaders:    corsExposedHeaders,
			AllowCredentials: true,
			MaxAge:           corsMaxAge,
		}))
	}

	httpapi.RegisterStaticAssets(router)
	registerSessionRoutes(router, routes.authManager, routes.sessionHandlers)
	registerConsoleRoutes(router, routes)
	return router
}

func registerSessionRoutes(router *gin.Engine, authManager *httpapi.AuthManager, sessionHandlers *httpapi.SessionHandlers) {
	router.GET(routeRoot, func(context *gin.Context) {
		context.Redirect(http.StatusFound, httpapi.DashboardPath)
	})
	router.GET(httpapi.LoginPath, authManager.RedirectAuthenticated(), sessionHandlers.RenderLogin)
	router.POST(httpapi.LoginPath, sessionHandlers.Login)
	router.POST(httpapi.LogoutPath, sessionHandlers.Logout)
	router.POST(httpapi.ThemePath, sessionHandlers.SetTheme)
}

func registerConsoleRoutes(router *gin.Engine, routes consoleRoutes) {
	requireSession := routes.authManager.RequireAuthenticatedWeb()
	for _, hub := range httpapi.DefaultHubs() {
		router.GET(hub.Path, requireSession, routes.hubHandlers.Render(hub))
	}
	routes.entityHandlers.Register(router, requireSession)
	if routes.linkConfigHandlers != nil {
		routes.linkConfigHandlers.Register(router, requireSession)
	}
	router.GET(httpapi.UnregisteredOperationsPath, requireSession, routes.uploadHandlers.Render)
	router.POST(httpapi.UnregisteredOperationsPath, requireSession, routes.uploadHandlers.Submit)
}

package httpapi

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/config"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/session"
)

const (
	// LogoutPath ends the session.
	LogoutPath = "/logout"
	// ThemePath toggles between the light and dark theme.
	ThemePath = "/theme"

	loginFormUsername     = "username"
	loginFormPassword     = "password"
	themeFormTheme        = "theme"
	themeFormReturn       = "return"
	messageMissingLogin   = "Ingresa tu usuario y contraseña."
	logEventLoginFailed   = "login_failed"
	logEventLoginRejected = "login_session_rejected"
	logEventThemeFailed   = "theme_update_failed"
)

// LoginBackend exchanges credentials for a bearer token.
type LoginBackend interface {
	Login(ctx context.Context, username string, password string) (string, error)
}

type loginView struct {
	Theme           string
	ThemeLabel      string
	BackgroundImage string
	Username        string
	Error           string
	Footer          template.HTML
}

// SessionHandlers serve the login page, logout and the theme toggle.
type SessionHandlers struct {
	logger   *zap.Logger
	auth     *AuthManager
	backend  LoginBackend
	runtime  config.RuntimeConfig
	renderer *pageRenderer
}

// NewSessionHandlers constructs SessionHandlers.
func NewSessionHandlers(logger *zap.Logger, auth *AuthManager, backend LoginBackend, runtimeConfig config.RuntimeConfig) *SessionHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandlers{
		logger:   logger,
		auth:     auth,
		backend:  backend,
		runtime:  runtimeConfig,
		renderer: newPageRenderer(logger),
	}
}

// RenderLogin shows the login form.
func (handlers *SessionHandlers) RenderLogin(context *gin.Context) {
	handlers.renderLogin(context, http.StatusOK, "", "")
}

// Login posts the credentials to the backend. Only an accepted login with a token the backend
// confirms signs the browser in.
func (handlers *SessionHandlers) Login(context *gin.Context) {
	username := strings.TrimSpace(context.PostForm(loginFormUsername))
	password := context.PostForm(loginFormPassword)
	if username == "" || password == "" {
		handlers.renderLogin(context, http.StatusBadRequest, username, messageMissingLogin)
		return
	}

	token, loginErr := handlers.backend.Login(context.Request.Context(), username, password)
	if loginErr != nil {
		if context.Request.Context().Err() != nil {
			context.Abort()
			return
		}
		handlers.logger.Info(logEventLoginFailed, zap.Error(loginErr))
		handlers.renderLogin(context, loginFailureStatus(loginErr), username, session.LoginFailureMessage(loginErr))
		return
	}

	if sessionErr := handlers.auth.Login(context, username, token); sessionErr != nil {
		handlers.logger.Warn(logEventLoginRejected, zap.Error(sessionErr))
		handlers.renderLogin(context, http.StatusUnauthorized, username, session.MessageLoginFailed)
		return
	}
	context.Redirect(http.StatusFound, DashboardPath)
}

// Logout clears the session.
func (handlers *SessionHandlers) Logout(context *gin.Context) {
	handlers.auth.Logout(context)
	context.Redirect(http.StatusFound, LoginPath)
}

// SetTheme switches between light and dark and returns to the posted page.
func (handlers *SessionHandlers) SetTheme(context *gin.Context) {
	if _, themeErr := handlers.auth.SetTheme(context, context.PostForm(themeFormTheme)); themeErr != nil {
		handlers.logger.Warn(logEventThemeFailed, zap.Error(themeErr))
	}
	context.Redirect(http.StatusFound, localReturnPath(context.PostForm(themeFormReturn)))
}

func (handlers *SessionHandlers) renderLogin(context *gin.Context, status int, username string, message string) {
	theme := handlers.auth.Store(context).Theme()
	handlers.renderer.renderLogin(context, status, loginView{
		Theme:           theme,
		ThemeLabel:      themeToggleLabel(theme),
		BackgroundImage: handlers.runtime.BackgroundImage(),
		Username:        username,
		Error:           message,
	})
}

func loginFailureStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrBackendUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// localReturnPath keeps redirects on this host.
func localReturnPath(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if !strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "//") || strings.Contains(trimmed, "\\") {
		return DashboardPath
	}
	return trimmed
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/catalog"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/session"
)

const (
	// LoginPath is where unauthenticated browsers are sent.
	LoginPath = "/login"
	// DashboardPath is the landing page after a successful login.
	DashboardPath = "/dashboard"

	cookieSessionName      = "acquisition_console"
	sessionValueID         = "sid"
	cookieMaxAgeSeconds    = 30 * 24 * 60 * 60
	contextKeySessionStore = "httpapi_session_store"
	contextKeySessionID    = "httpapi_session_id"
	headerRedirect         = "X-Redirect"

	logEventLoadCookie  = "load_session_cookie"
	logEventSaveCookie  = "save_session_cookie"
	logEventDecodeAlert = "decode_alert"
	logEventExpired     = "session_expired"
)

// SessionManager is the part of session.Manager the HTTP layer depends on.
type SessionManager interface {
	Resolve(ctx context.Context, sessionID string) *session.Store
	Login(ctx context.Context, sessionID string, username string, token string) (*session.Store, error)
	Logout(ctx context.Context, sessionID string)
	SetTheme(ctx context.Context, sessionID string, theme string) (string, error)
	Username(sessionID string) string
}

// NewCookieStore builds the signed cookie store carrying the session id and pending alerts.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAgeSeconds,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// AuthManager binds browser cookies to session stores.
type AuthManager struct {
	logger   *zap.Logger
	cookies  sessions.Store
	sessions SessionManager
}

// NewAuthManager constructs an AuthManager.
func NewAuthManager(logger *zap.Logger, cookies sessions.Store, manager SessionManager) *AuthManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthManager{logger: logger, cookies: cookies, sessions: manager}
}

func (authManager *AuthManager) cookie(context *gin.Context) *sessions.Session {
	cookieSession, loadErr := authManager.cookies.Get(context.Request, cookieSessionName)
	if loadErr != nil {
		// A cookie signed with another secret decodes to a fresh session.
		authManager.logger.Debug(logEventLoadCookie, zap.Error(loadErr))
	}
	return cookieSession
}

func (authManager *AuthManager) save(context *gin.Context, cookieSession *sessions.Session) {
	if saveErr := cookieSession.Save(context.Request, context.Writer); saveErr != nil {
		authManager.logger.Warn(logEventSaveCookie, zap.Error(saveErr))
	}
}

// SessionID returns the browser's session id, issuing one on first contact.
func (authManager *AuthManager) SessionID(context *gin.Context) string {
	if cached, found := context.Get(contextKeySessionID); found {
		return cached.(string)
	}
	cookieSession := authManager.cookie(context)
	sessionID, _ := cookieSession.Values[sessionValueID].(string)
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
		cookieSession.Values[sessionValueID] = sessionID
		authManager.save(context, cookieSession)
	}
	context.Set(contextKeySessionID, sessionID)
	return sessionID
}

// Store resolves the session store of the request.
func (authManager *AuthManager) Store(context *gin.Context) *session.Store {
	if cached, found := context.Get(contextKeySessionStore); found {
		return cached.(*session.Store)
	}
	store := authManager.sessions.Resolve(context.Request.Context(), authManager.SessionID(context))
	context.Set(contextKeySessionStore, store)
	return store
}

// Username returns the login name recorded for the request's session.
func (authManager *AuthManager) Username(context *gin.Context) string {
	return authManager.sessions.Username(authManager.SessionID(context))
}

// Caller identifies the request's user to the option loader.
func (authManager *AuthManager) Caller(context *gin.Context) catalog.Caller {
	store := authManager.Store(context)
	return catalog.Caller{
		Token:    store.Token(),
		Username: authManager.Username(context),
		Profile:  store.User().ProfileID,
	}
}

// RequireAuthenticatedWeb redirects requests without a live session to the login page.
func (authManager *AuthManager) RequireAuthenticatedWeb() gin.HandlerFunc {
	return func(context *gin.Context) {
		if authManager.Store(context).State() == session.Unauthenticated {
			authManager.redirectToLogin(context)
			return
		}
		context.Next()
	}
}

// RedirectAuthenticated sends signed-in browsers away from the login page.
func (authManager *AuthManager) RedirectAuthenticated() gin.HandlerFunc {
	return func(context *gin.Context) {
		if authManager.Store(context).State() != session.Unauthenticated {
			context.Redirect(http.StatusFound, DashboardPath)
			context.Abort()
			return
		}
		context.Next()
	}
}

// Login authenticates token for the request's session.
func (authManager *AuthManager) Login(context *gin.Context, username string, token string) error {
	store, loginErr := authManager.sessions.Login(context.Request.Context(), authManager.SessionID(context), username, token)
	if store != nil {
		context.Set(contextKeySessionStore, store)
	}
	return loginErr
}

// Logout destroys the request's session state.
func (authManager *AuthManager) Logout(context *gin.Context) {
	authManager.sessions.Logout(context.Request.Context(), authManager.SessionID(context))
	context.Set(contextKeySessionStore, authManager.sessions.Resolve(context.Request.Context(), ""))
}

// SetTheme records the theme of the request's session.
func (authManager *AuthManager) SetTheme(context *gin.Context, theme string) (string, error) {
	normalized, themeErr := authManager.sessions.SetTheme(context.Request.Context(), authManager.SessionID(context), theme)
	context.Set(contextKeySessionStore, authManager.sessions.Resolve(context.Request.Context(), authManager.SessionID(context)))
	return normalized, themeErr
}

// Expire handles a 401 from the backend: the session is cleared and the browser sent to log in.
func (authManager *AuthManager) Expire(context *gin.Context) {
	authManager.logger.Info(logEventExpired, zap.String("path", context.Request.URL.Path))
	authManager.Logout(context)
	authManager.redirectToLogin(context)
}

func (authManager *AuthManager) redirectToLogin(context *gin.Context) {
	if isFragmentRequest(context) {
		context.Header(headerRedirect, LoginPath)
		context.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	context.Redirect(http.StatusFound, LoginPath)
	context.Abort()
}

// AddAlert queues an alert shown by the next rendered page.
func (authManager *AuthManager) AddAlert(context *gin.Context, alert Alert) {
	encoded, encodeErr := json.Marshal(alert)
	if encodeErr != nil {
		return
	}
	cookieSession := authManager.cookie(context)
	cookieSession.AddFlash(string(encoded))
	authManager.save(context, cookieSession)
}

// Alerts drains the queued alerts.
func (authManager *AuthManager) Alerts(context *gin.Context) []Alert {
	cookieSession := authManager.cookie(context)
	flashes := cookieSession.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	authManager.save(context, cookieSession)
	alerts := make([]Alert, 0, len(flashes))
	for _, flash := range flashes {
		encoded, isString := flash.(string)
		if !isString {
			continue
		}
		var alert Alert
		if decodeErr := json.Unmarshal([]byte(encoded), &alert); decodeErr != nil {
			authManager.logger.Debug(logEventDecodeAlert, zap.Error(decodeErr))
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

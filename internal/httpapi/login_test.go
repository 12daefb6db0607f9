package httpapi_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/httpapi"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/session"
)

func TestLoginAcceptedOpensDashboard(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	dashboard := harness.get(testingT, httpapi.DashboardPath)
	require.Equal(testingT, http.StatusOK, dashboard.Status)
	require.Contains(testingT, dashboard.Body, "Ana Pérez")
	require.Contains(testingT, dashboard.Body, "Admin")
	require.Contains(testingT, dashboard.Body, `href="/settings/units"`)
	require.Contains(testingT, dashboard.Body, "Unidades de medida")
	require.Contains(testingT, dashboard.Body, `href="/users/details/7"`)

	loginPage := harness.get(testingT, httpapi.LoginPath)
	require.Equal(testingT, http.StatusFound, loginPage.Status)
	require.Equal(testingT, httpapi.DashboardPath, loginPage.Header.Get("Location"))
}

func TestLoginFailuresStayOnLoginPage(testingT *testing.T) {
	testCases := []struct {
		name           string
		loginStatus    int
		values         url.Values
		expectedStatus int
		expectedText   string
	}{
		{
			name:           "missing credentials",
			loginStatus:    http.StatusAccepted,
			values:         url.Values{"username": {testUsername}},
			expectedStatus: http.StatusBadRequest,
			expectedText:   "Ingresa tu usuario y contraseña.",
		},
		{
			name:           "rejected credentials",
			loginStatus:    http.StatusUnauthorized,
			values:         url.Values{"username": {testUsername}, "password": {"incorrecta"}},
			expectedStatus: http.StatusUnauthorized,
			expectedText:   session.MessageInvalidCredentials,
		},
		{
			name:           "success status other than accepted",
			loginStatus:    http.StatusOK,
			values:         url.Values{"username": {testUsername}, "password": {testPassword}},
			expectedStatus: http.StatusOK,
			expectedText:   "Credenciales inválidas",
		},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			harness := newConsoleHarness(testingT)
			harness.api.setLoginStatus(testCase.loginStatus)

			response := harness.postForm(testingT, httpapi.LoginPath, testCase.values)
			require.Equal(testingT, testCase.expectedStatus, response.Status)
			require.Contains(testingT, response.Body, `id="login-error"`)
			require.Contains(testingT, response.Body, testCase.expectedText)
			require.Contains(testingT, response.Body, `value="`+testUsername+`"`)

			dashboard := harness.get(testingT, httpapi.DashboardPath)
			require.Equal(testingT, http.StatusFound, dashboard.Status)
			require.Equal(testingT, httpapi.LoginPath, dashboard.Header.Get("Location"))
		})
	}
}

func TestUnauthenticatedRequestsAreSentToLogin(testingT *testing.T) {
	harness := newConsoleHarness(testingT)

	page := harness.get(testingT, unitsRoute)
	require.Equal(testingT, http.StatusFound, page.Status)
	require.Equal(testingT, httpapi.LoginPath, page.Header.Get("Location"))

	fragment := harness.get(testingT, unitsRoute+"/table", fragmentHeader, "1")
	require.Equal(testingT, http.StatusUnauthorized, fragment.Status)
	require.Equal(testingT, httpapi.LoginPath, fragment.Header.Get("X-Redirect"))
	require.Empty(testingT, harness.api.recorded(http.MethodGet, unitsBackendPath))
}

func TestLogoutEndsSession(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	logout := harness.postForm(testingT, httpapi.LogoutPath, url.Values{})
	require.Equal(testingT, http.StatusFound, logout.Status)
	require.Equal(testingT, httpapi.LoginPath, logout.Header.Get("Location"))

	dashboard := harness.get(testingT, httpapi.DashboardPath)
	require.Equal(testingT, http.StatusFound, dashboard.Status)
	require.Equal(testingT, httpapi.LoginPath, dashboard.Header.Get("Location"))
}

func TestThemeToggleReturnsToLocalPage(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	toggled := harness.postForm(testingT, httpapi.ThemePath, url.Values{"theme": {"dark"}, "return": {unitsRoute}})
	require.Equal(testingT, http.StatusFound, toggled.Status)
	require.Equal(testingT, unitsRoute, toggled.Header.Get("Location"))

	dashboard := harness.get(testingT, httpapi.DashboardPath)
	require.Contains(testingT, dashboard.Body, `data-bs-theme="dark"`)
	require.Contains(testingT, dashboard.Body, "Modo Claro")

	external := harness.postForm(testingT, httpapi.ThemePath, url.Values{"theme": {"light"}, "return": {"//evil.example.com"}})
	require.Equal(testingT, http.StatusFound, external.Status)
	require.Equal(testingT, httpapi.DashboardPath, external.Header.Get("Location"))
}

func TestExpiredBackendSessionRedirectsToLogin(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)
	harness.api.revoke()

	fragment := harness.get(testingT, unitsRoute+"/table", fragmentHeader, "1")
	require.Equal(testingT, http.StatusUnauthorized, fragment.Status)
	require.Equal(testingT, httpapi.LoginPath, fragment.Header.Get("X-Redirect"))

	dashboard := harness.get(testingT, httpapi.DashboardPath)
	require.Equal(testingT, http.StatusFound, dashboard.Status)
	require.Equal(testingT, httpapi.LoginPath, dashboard.Header.Get("Location"))
}

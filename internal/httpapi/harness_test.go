package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/apiclient"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/cache"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/catalog"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/config"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/httpapi"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/session"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/storage"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/table"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/testutil"
)

const (
	testSessionSecret = "console-session-secret"
	testSigningSecret = "backend-signing-secret"
	testAPIPrefix     = "/api"
	testUsername      = "operador"
	testPassword      = "secreto"
	unitsRoute        = "/settings/units"
	unitsBackendPath  = "/api/measurementunits"
	systemsRoute      = "/measurement-system"
	systemsBackend    = "/api/measurementsystems"
	jobsRoute         = "/cron-services"
	jobsBackend       = "/api/crons"
	linkRoute         = "/link-config"
	readersRoute      = "/settings/readers"
	fragmentHeader    = "X-Console-Fragment"
)

func newHTTPTestServer(testingT *testing.T, handler http.Handler) *httptest.Server {
	testingT.Helper()

	listener, listenErr := net.Listen("tcp", "127.0.0.1:0")
	if listenErr != nil {
		testingT.Skipf("network listener unavailable: %v", listenErr)
	}
	server := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	server.Start()
	testingT.Cleanup(server.Close)
	return server
}

type recordedRequest struct {
	Method      string
	Path        string
	Body          string
	ContentType   string
	Authorization string
}

// fakeAcquisitionAPI answers the backend routes the console calls.
type fakeAcquisitionAPI struct {
	mutex       sync.Mutex
	token       string
	accepted    string
	requests    []recordedRequest
	loginStatus int
	listStatus  int
	units       []map[string]any
	systems     []map[string]any
}

func newFakeAcquisitionAPI(testingT *testing.T) *fakeAcquisitionAPI {
	testingT.Helper()
	token, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 7, "sub": testUsername}).SignedString([]byte(testSigningSecret))
	require.NoError(testingT, signErr)
	return &fakeAcquisitionAPI{
		token:       token,
		accepted:    token,
		loginStatus: http.StatusAccepted,
		units: []map[string]any{
			{"id": 1, "name": "Kilogramo", "symbol": "kg"},
			{"id": 3, "name": "Metro cúbico", "symbol": "m3"},
		},
		systems: []map[string]any{},
	}
}

func (api *fakeAcquisitionAPI) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	body, _ := io.ReadAll(request.Body)
	api.mutex.Lock()
	api.requests = append(api.requests, recordedRequest{
		Method:        request.Method,
		Path:          request.URL.Path,
		Body:          string(body),
		ContentType:   request.Header.Get("Content-Type"),
		Authorization: request.Header.Get("Authorization"),
	})
	loginStatus := api.loginStatus
	listStatus := api.listStatus
	units := api.units
	systems := api.systems
	authorized := request.Header.Get("Authorization") == "Bearer "+api.accepted
	api.mutex.Unlock()

	path := request.URL.Path
	switch {
	case request.Method == http.MethodPost && path == "/login":
		if loginStatus != http.StatusAccepted {
			writeJSON(writer, loginStatus, map[string]any{"message": "Credenciales inválidas"})
			return
		}
		writeJSON(writer, http.StatusAccepted, map[string]any{"token": api.token})
	case !authorized:
		writeJSON(writer, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
	case request.Method == http.MethodGet && path == "/api/auth/check-session":
		writer.WriteHeader(http.StatusAccepted)
	case request.Method == http.MethodGet && path == "/users/7":
		writeJSON(writer, http.StatusOK, map[string]any{
			"fullName": "Ana Pérez",
			"username": "ana@planta.cl",
			"profiles": []map[string]any{{"id": 2, "name": "Admin"}},
		})
	case request.Method == http.MethodGet && path == "/api/modules/all":
		writeJSON(writer, http.StatusOK, []map[string]any{
			{"name": "Unidades", "route": unitsRoute, "iconName": "bi-rulers", "description": "Unidades de medida"},
		})
	case request.Method == http.MethodGet && path == unitsBackendPath:
		if listStatus != 0 {
			writeJSON(writer, listStatus, map[string]any{"message": "Fallo interno del servidor"})
			return
		}
		writeJSON(writer, http.StatusOK, units)
	case request.Method == http.MethodPost && path == unitsBackendPath:
		writeJSON(writer, http.StatusCreated, map[string]any{"message": "Unidad registrada"})
	case request.Method == http.MethodGet && path == systemsBackend:
		writeJSON(writer, http.StatusOK, systems)
	case request.Method == http.MethodPost && path == systemsBackend:
		writeJSON(writer, http.StatusCreated, map[string]any{})
	case request.Method == http.MethodPost && strings.HasPrefix(path, systemsBackend+"/") && strings.HasSuffix(path, "/linkconfigurations/list"):
		writeJSON(writer, http.StatusCreated, map[string]any{})
	case request.Method == http.MethodPost && strings.HasPrefix(path, jobsBackend+"/"):
		writeJSON(writer, http.StatusOK, map[string]any{})
	case request.Method == http.MethodDelete && strings.HasPrefix(path, unitsBackendPath+"/"):
		writeJSON(writer, http.StatusOK, map[string]any{})
	case request.Method == http.MethodGet && path == "/api/helper-query/cv360/instalaciones/by-user/"+testUsername:
		writeJSON(writer, http.StatusOK, []map[string]any{{"publicKey": "inst-1", "claveInstalacion": "INST-001"}})
	case request.Method == http.MethodGet && path == "/api/helper-query/cv360/instalaciones/inst-1/tanks":
		writeJSON(writer, http.StatusOK, []map[string]any{{"publicKey": "tank-1", "claveIdentificacionTanque": "TQ-01"}})
	case request.Method == http.MethodGet && path == "/api/helper-query/cv360/instalaciones/inst-1/ducts":
		writeJSON(writer, http.StatusOK, []map[string]any{})
	case request.Method == http.MethodPost && strings.HasPrefix(path, "/api/ops-no-registradas/upload/"):
		writeJSON(writer, http.StatusOK, []map[string]any{{"code": "OK-1", "message": "Operación registrada", "status": true}})
	default:
		writeJSON(writer, http.StatusNotFound, map[string]any{"message": "not found"})
	}
}

// revoke makes the backend reject the issued token from now on.
func (api *fakeAcquisitionAPI) revoke() {
	api.mutex.Lock()
	api.accepted = "revoked"
	api.mutex.Unlock()
}

func (api *fakeAcquisitionAPI) setLoginStatus(status int) {
	api.mutex.Lock()
	api.loginStatus = status
	api.mutex.Unlock()
}

func (api *fakeAcquisitionAPI) setListStatus(status int) {
	api.mutex.Lock()
	api.listStatus = status
	api.mutex.Unlock()
}

func (api *fakeAcquisitionAPI) setSystems(systems ...map[string]any) {
	api.mutex.Lock()
	api.systems = systems
	api.mutex.Unlock()
}

func (api *fakeAcquisitionAPI) recorded(method string, pathPrefix string) []recordedRequest {
	api.mutex.Lock()
	defer api.mutex.Unlock()
	var matches []recordedRequest
	for _, request := range api.requests {
		if request.Method == method && strings.HasPrefix(request.Path, pathPrefix) {
			matches = append(matches, request)
		}
	}
	return matches
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

func unitsEntity() catalog.Entity {
	return catalog.Entity{
		Key:        "units",
		Title:      "Unidades",
		Singular:   "Unidad",
		Subtitle:   "Unidades de medida",
		Route:      unitsRoute,
		Parents:    []catalog.Breadcrumb{catalog.SettingsCrumb},
		Collection: catalog.Endpoint{Prefixed: true, Path: "measurementunits"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Nombre", AccessorKey: "name"},
			{Header: "Símbolo", AccessorKey: "symbol"},
		},
		Fields: []form.FieldDescriptor{
			form.Text("name", "Nombre", 6, true),
			form.Text("symbol", "Símbolo", 6, false),
		},
		Capabilities: table.Capabilities{View: true, Delete: true},
		Register:     true,
		Invalidates:  []string{catalog.SourceMeasurementUnits},
		Messages:     catalog.Messages{Deleted: "Unidad eliminada"},
	}
}

func systemsEntity() catalog.Entity {
	return catalog.Entity{
		Key:        "systems",
		Title:      "Sistemas de medición",
		Singular:   "Sistema de medición",
		Route:      systemsRoute,
		Parents:    []catalog.Breadcrumb{catalog.CatalogsCrumb},
		Collection: catalog.Endpoint{Prefixed: true, Path: "measurementsystems"},
		Columns:    []table.Column{{Header: "Tag", AccessorKey: "tag"}},
		Fields:     []form.FieldDescriptor{form.Text("tag", "Tag", 12, true)},
		Items: &catalog.ItemEditor{
			Key:   "configTemplate",
			Title: "Plantilla",
			Fields: []form.FieldDescriptor{
				form.Text("name", "Nombre", 6, true),
				form.Dropdown("kind", "Tipo", 6, true, false, form.Option{Value: "TANK", Label: "Tanque"}, form.Option{Value: "DUCT", Label: "Ducto"}),
			},
			Columns: []table.Column{
				{Header: "Nombre", AccessorKey: "name"},
				{Header: "Tipo", AccessorKey: "kind"},
			},
		},
		Register: true,
	}
}

// readersEntity registers readers bound to an optional measurement system.
func readersEntity() catalog.Entity {
	return catalog.Entity{
		Key:        "readers",
		Title:      "Lectores",
		Singular:   "Lector",
		Route:      readersRoute,
		Parents:    []catalog.Breadcrumb{catalog.SettingsCrumb},
		Collection: catalog.Endpoint{Prefixed: true, Path: "readers"},
		Columns:    []table.Column{{Header: "Nombre", AccessorKey: "name"}},
		Fields: []form.FieldDescriptor{
			form.Text("name", "Nombre", 6, true),
			form.SourcedDropdown("measurementSystem", "Sistema de medición", 6, false, false, catalog.SourceMeasurementSystems),
		},
		Register: true,
	}
}

type consoleHarness struct {
	api     *fakeAcquisitionAPI
	server  *httptest.Server
	browser *http.Client
}

func newConsoleHarness(testingT *testing.T) *consoleHarness {
	testingT.Helper()
	gin.SetMode(gin.TestMode)

	api := newFakeAcquisitionAPI(testingT)
	backendServer := newHTTPTestServer(testingT, api)
	runtimeConfig, runtimeErr := config.NewRuntimeConfig(backendServer.URL, testAPIPrefix, "")
	require.NoError(testingT, runtimeErr)

	logger := zap.NewNop()
	client := apiclient.New(apiclient.Config{Logger: logger})
	backend := session.NewAPIBackend(client, runtimeConfig)
	database := testutil.OpenMigratedSQLiteDatabase(testingT)
	manager := session.NewManager(session.ManagerConfig{
		Backend:    backend,
		Repository: storage.NewClientStateRepository(database, time.Hour),
		NotFound:   storage.ErrClientStateNotFound,
		Logger:     logger,
	})
	optionCache, cacheErr := cache.NewOptionCache(cache.DefaultConfig())
	require.NoError(testingT, cacheErr)
	options := catalog.NewOptionLoader(catalog.OptionLoaderConfig{
		Client:  client,
		Runtime: runtimeConfig,
		Cache:   optionCache,
		TTL:     time.Minute,
		Logger:  logger,
	})
	entities, catalogErr := catalog.New(unitsEntity(), systemsEntity(), readersEntity(), catalog.Jobs(), catalog.LinkConfig())
	require.NoError(testingT, catalogErr)

	authManager := httpapi.NewAuthManager(logger, httpapi.NewCookieStore(testSessionSecret, false), manager)
	requireSession := authManager.RequireAuthenticatedWeb()

	router := gin.New()
	httpapi.RegisterStaticAssets(router)
	sessionHandlers := httpapi.NewSessionHandlers(logger, authManager, backend, runtimeConfig)
	router.GET(httpapi.LoginPath, authManager.RedirectAuthenticated(), sessionHandlers.RenderLogin)
	router.POST(httpapi.LoginPath, sessionHandlers.Login)
	router.POST(httpapi.LogoutPath, sessionHandlers.Logout)
	router.POST(httpapi.ThemePath, sessionHandlers.SetTheme)
	hubHandlers := httpapi.NewHubHandlers(logger, authManager)
	for _, hub := range httpapi.DefaultHubs() {
		router.GET(hub.Path, requireSession, hubHandlers.Render(hub))
	}
	entityHandlers := httpapi.NewEntityHandlers(httpapi.EntityConfig{
		Logger:  logger,
		Auth:    authManager,
		Client:  client,
		Runtime: runtimeConfig,
		Catalog: entities,
		Options: options,
	})
	entityHandlers.Register(router, requireSession)
	httpapi.NewLinkConfigHandlers(entityHandlers, catalog.LinkConfig()).Register(router, requireSession)
	uploadHandlers := httpapi.NewUploadHandlers(httpapi.UploadConfig{
		Logger:  logger,
		Auth:    authManager,
		Client:  client,
		Runtime: runtimeConfig,
		Options: options,
	})
	router.GET(httpapi.UnregisteredOperationsPath, requireSession, uploadHandlers.Render)
	router.POST(httpapi.UnregisteredOperationsPath, requireSession, uploadHandlers.Submit)

	consoleServer := newHTTPTestServer(testingT, router)
	jar, jarErr := cookiejar.New(nil)
	require.NoError(testingT, jarErr)
	browser := &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &consoleHarness{api: api, server: consoleServer, browser: browser}
}

type pageResponse struct {
	Status int
	Header http.Header
	Body   string
}

func (harness *consoleHarness) do(testingT *testing.T, request *http.Request) pageResponse {
	testingT.Helper()
	response, doErr := harness.browser.Do(request)
	require.NoError(testingT, doErr)
	defer response.Body.Close()
	body, readErr := io.ReadAll(response.Body)
	require.NoError(testingT, readErr)
	return pageResponse{Status: response.StatusCode, Header: response.Header, Body: string(body)}
}

func (harness *consoleHarness) get(testingT *testing.T, path string, headers ...string) pageResponse {
	testingT.Helper()
	request, requestErr := http.NewRequest(http.MethodGet, harness.server.URL+path, nil)
	require.NoError(testingT, requestErr)
	for index := 0; index+1 < len(headers); index += 2 {
		request.Header.Set(headers[index], headers[index+1])
	}
	return harness.do(testingT, request)
}

func (harness *consoleHarness) postForm(testingT *testing.T, path string, values url.Values) pageResponse {
	testingT.Helper()
	request, requestErr := http.NewRequest(http.MethodPost, harness.server.URL+path, strings.NewReader(values.Encode()))
	require.NoError(testingT, requestErr)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return harness.do(testingT, request)
}

func (harness *consoleHarness) postMultipart(testingT *testing.T, path string, fields map[string]string, fileName string, content string) pageResponse {
	testingT.Helper()
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	for name, value := range fields {
		require.NoError(testingT, writer.WriteField(name, value))
	}
	if fileName != "" {
		part, partErr := writer.CreateFormFile("file", fileName)
		require.NoError(testingT, partErr)
		_, writeErr := part.Write([]byte(content))
		require.NoError(testingT, writeErr)
	}
	require.NoError(testingT, writer.Close())
	request, requestErr := http.NewRequest(http.MethodPost, harness.server.URL+path, &buffer)
	require.NoError(testingT, requestErr)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return harness.do(testingT, request)
}

func (harness *consoleHarness) login(testingT *testing.T) {
	testingT.Helper()
	response := harness.postForm(testingT, httpapi.LoginPath, url.Values{
		"username": {testUsername},
		"password": {testPassword},
	})
	require.Equal(testingT, http.StatusFound, response.Status)
	require.Equal(testingT, httpapi.DashboardPath, response.Header.Get("Location"))
}

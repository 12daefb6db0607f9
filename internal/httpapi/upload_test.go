package httpapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/httpapi"
)

const uploadScopeQuery = "?installation=inst-1&element=TANK"

func TestUploadPageOffersScopeBeforeForm(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	unscoped := harness.get(testingT, httpapi.UnregisteredOperationsPath)
	require.Equal(testingT, http.StatusOK, unscoped.Status)
	require.Contains(testingT, unscoped.Body, "INST-001")
	require.Contains(testingT, unscoped.Body, "Genera operaciones no registradas mediante un archivo csv")
	require.NotContains(testingT, unscoped.Body, `id="upload-form"`)

	scoped := harness.get(testingT, httpapi.UnregisteredOperationsPath+uploadScopeQuery)
	require.Equal(testingT, http.StatusOK, scoped.Status)
	require.Contains(testingT, scoped.Body, `id="upload-form"`)
	require.Contains(testingT, scoped.Body, `enctype="multipart/form-data"`)
	require.Contains(testingT, scoped.Body, "TQ-01")
	require.Contains(testingT, scoped.Body, "Existencia")

	ducts := harness.get(testingT, httpapi.UnregisteredOperationsPath+"?installation=inst-1&element=DUCT")
	require.Equal(testingT, http.StatusOK, ducts.Status)
	require.NotContains(testingT, ducts.Body, `id="upload-form"`)
	require.Contains(testingT, ducts.Body, "La instalación seleccionada no tiene elementos de este tipo.")
}

func TestUploadRequiresFile(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	response := harness.postMultipart(testingT, httpapi.UnregisteredOperationsPath+uploadScopeQuery, map[string]string{
		"type":   "Recepcion",
		"target": "tank-1",
	}, "", "")
	require.Equal(testingT, http.StatusUnprocessableEntity, response.Status)
	require.Contains(testingT, response.Body, "Campo requerido")
	require.Empty(testingT, harness.api.recorded(http.MethodPost, "/api/ops-no-registradas"))
}

func TestUploadForwardsFileAndShowsReport(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	response := harness.postMultipart(testingT, httpapi.UnregisteredOperationsPath+uploadScopeQuery, map[string]string{
		"type":   "Existencia",
		"target": "tank-1",
	}, "operaciones.csv", "fecha,volumen\n2026-10-01,1200\n")
	require.Equal(testingT, http.StatusOK, response.Status)
	require.Contains(testingT, response.Body, "Respuesta del Backend")
	require.Contains(testingT, response.Body, "Código: OK-1")
	require.Contains(testingT, response.Body, "Operación registrada")

	uploads := harness.api.recorded(http.MethodPost, "/api/ops-no-registradas")
	require.Len(testingT, uploads, 1)
	require.Equal(testingT, "/api/ops-no-registradas/upload/instalacion/inst-1/elemento/tank-1", uploads[0].Path)
	require.Contains(testingT, uploads[0].ContentType, "multipart/form-data")
	require.Contains(testingT, uploads[0].Body, `name="type"`)
	require.Contains(testingT, uploads[0].Body, "Existencia")
	require.Contains(testingT, uploads[0].Body, `name="element"`)
	require.Contains(testingT, uploads[0].Body, "TANK")
	require.Contains(testingT, uploads[0].Body, `filename="operaciones.csv"`)
	require.Contains(testingT, uploads[0].Body, "2026-10-01,1200")
}

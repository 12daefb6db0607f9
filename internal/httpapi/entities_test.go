package httpapi_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListRendersShellAndTableFragmentRendersRows(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	page := harness.get(testingT, unitsRoute+"?sort=name&dir=desc")
	require.Equal(testingT, http.StatusOK, page.Status)
	require.Contains(testingT, page.Body, `id="register-link"`)
	require.Contains(testingT, page.Body, `href="/settings/units/register"`)
	require.Contains(testingT, page.Body, `data-fragment="/settings/units/table?`)
	require.Contains(testingT, page.Body, "Configuración")
	require.Empty(testingT, harness.api.recorded(http.MethodGet, unitsBackendPath))

	fragment := harness.get(testingT, unitsRoute+"/table", fragmentHeader, "1")
	require.Equal(testingT, http.StatusOK, fragment.Status)
	require.Contains(testingT, fragment.Body, "Kilogramo")
	require.Contains(testingT, fragment.Body, "Metro cúbico")
	require.Contains(testingT, fragment.Body, `href="/settings/units/details/3"`)
	require.Contains(testingT, fragment.Body, `href="/settings/units/delete/3"`)
	require.NotContains(testingT, fragment.Body, "<html")
	require.Len(testingT, harness.api.recorded(http.MethodGet, unitsBackendPath), 1)
}

func TestTableFragmentShowsBackendFailure(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)
	harness.api.setListStatus(http.StatusInternalServerError)

	fragment := harness.get(testingT, unitsRoute+"/table", fragmentHeader, "1")
	require.Equal(testingT, http.StatusOK, fragment.Status)
	require.Contains(testingT, fragment.Body, "Fallo interno del servidor")
	require.NotContains(testingT, fragment.Body, "Kilogramo")
}

func TestRegisterRejectsMissingRequiredField(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	form := harness.get(testingT, unitsRoute+"/register")
	require.Equal(testingT, http.StatusOK, form.Status)
	require.Contains(testingT, form.Body, `id="record-form"`)
	require.Contains(testingT, form.Body, `name="name"`)

	response := harness.postForm(testingT, unitsRoute+"/register", url.Values{"name": {"  "}, "symbol": {"l"}})
	require.Equal(testingT, http.StatusUnprocessableEntity, response.Status)
	require.Contains(testingT, response.Body, "Revise los campos marcados.")
	require.Contains(testingT, response.Body, "Campo requerido")
	require.Contains(testingT, response.Body, `value="l"`)
	require.Empty(testingT, harness.api.recorded(http.MethodPost, unitsBackendPath))
}

func TestRegisterCreatesRecordAndShowsConfirmation(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	response := harness.postForm(testingT, unitsRoute+"/register", url.Values{"name": {"Litro"}, "symbol": {"l"}})
	require.Equal(testingT, http.StatusFound, response.Status)
	require.Equal(testingT, unitsRoute, response.Header.Get("Location"))

	created := harness.api.recorded(http.MethodPost, unitsBackendPath)
	require.Len(testingT, created, 1)
	require.JSONEq(testingT, `{"name":"Litro","symbol":"l"}`, created[0].Body)

	list := harness.get(testingT, unitsRoute)
	require.Contains(testingT, list.Body, "Éxito")
	require.Contains(testingT, list.Body, "Unidad registrada")

	again := harness.get(testingT, unitsRoute)
	require.NotContains(testingT, again.Body, "Unidad registrada")
}

func TestDeleteRequiresConfirmation(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	confirmation := harness.get(testingT, unitsRoute+"/delete/3")
	require.Equal(testingT, http.StatusOK, confirmation.Status)
	require.Contains(testingT, confirmation.Body, "¿Estás seguro?")
	require.Contains(testingT, confirmation.Body, `action="/settings/units/delete/3"`)
	require.Contains(testingT, confirmation.Body, `href="/settings/units"`)

	declined := harness.postForm(testingT, unitsRoute+"/delete/3", url.Values{})
	require.Equal(testingT, http.StatusFound, declined.Status)
	require.Equal(testingT, unitsRoute, declined.Header.Get("Location"))
	require.Empty(testingT, harness.api.recorded(http.MethodDelete, unitsBackendPath))
}

func TestConfirmedDeleteCallsBackendAndShowsConfirmation(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	response := harness.postForm(testingT, unitsRoute+"/delete/3", url.Values{"confirm": {"yes"}})
	require.Equal(testingT, http.StatusFound, response.Status)
	require.Equal(testingT, unitsRoute, response.Header.Get("Location"))

	deleted := harness.api.recorded(http.MethodDelete, unitsBackendPath)
	require.Len(testingT, deleted, 1)
	require.Equal(testingT, unitsBackendPath+"/3", deleted[0].Path)

	list := harness.get(testingT, unitsRoute)
	require.Contains(testingT, list.Body, "Eliminado")
	require.Contains(testingT, list.Body, "Unidad eliminada")
}

func TestUnknownEntityPagesAreNotRouted(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	edit := harness.get(testingT, unitsRoute+"/edit/3")
	require.Equal(testingT, http.StatusNotFound, edit.Status)

	action := harness.postForm(testingT, unitsRoute+"/actions/run/3", url.Values{})
	require.Equal(testingT, http.StatusNotFound, action.Status)
}

func TestJobActionsCallBackendAndConfirm(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	cases := []struct {
		name    string
		action  string
		backend string
		message string
	}{
		{name: "run", action: "run", backend: jobsBackend + "/runjob/12", message: "Tarea ejecutada correctamente"},
		{name: "pause", action: "pause", backend: jobsBackend + "/pausejob/12", message: "Tarea pausada correctamente"},
		{name: "resume", action: "resume", backend: jobsBackend + "/resumejob/12", message: "Tarea reanudada correctamente"},
	}

	for _, testCase := range cases {
		testingT.Run(testCase.name, func(subTestingT *testing.T) {
			response := harness.postForm(subTestingT, jobsRoute+"/actions/"+testCase.action+"/12", url.Values{})
			require.Equal(subTestingT, http.StatusFound, response.Status)
			require.Equal(subTestingT, jobsRoute, response.Header.Get("Location"))

			calls := harness.api.recorded(http.MethodPost, testCase.backend)
			require.Len(subTestingT, calls, 1)
			require.Equal(subTestingT, "Bearer "+harness.api.token, calls[0].Authorization)

			list := harness.get(subTestingT, jobsRoute)
			require.Contains(subTestingT, list.Body, "Éxito")
			require.Contains(subTestingT, list.Body, testCase.message)
		})
	}
}

func TestUnknownJobActionIsNotFound(testingT *testing.T) {
	harness := newConsoleHarness(testingT)
	harness.login(testingT)

	response := harness.postForm(testingT, jobsRoute+"/actions/restart/12", url.Values{})
	require.Equal(testingT, http.StatusNotFound, response.Status)
	require.Empty(testingT, harness.api.recorded(http.MethodPost, jobsBackend))
}

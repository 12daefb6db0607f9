package form_test

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
)

func modbusFields() []form.FieldDescriptor {
	return []form.FieldDescriptor{
		form.Text("serviceConfig.name", "Nombre", 6, true),
		form.Text("serviceConfig.usernameCv", "Usuario CV", 6, false),
		form.Number("port", "Puerto", 4, true),
		form.Dropdown("enabled", "Habilitado", 4, false, false,
			form.Option{Value: true, Label: "Sí"},
			form.Option{Value: false, Label: "No"},
		),
		form.Dropdown("profiles", "Perfiles", 4, false, true,
			form.Option{Value: float64(1), Label: "Admin"},
			form.Option{Value: float64(2), Label: "Operador"},
		),
	}
}

func TestSubmitNestsDotPaths(testingT *testing.T) {
	fields := modbusFields()
	values := form.Defaults(fields)
	values["serviceConfig.name"] = "A"
	values["serviceConfig.usernameCv"] = "u"
	values["port"] = "502"
	values["enabled"] = "true"
	values["profiles"] = []string{"2", "1"}

	payload, submitErr := form.Submit(fields, values)
	require.NoError(testingT, submitErr)

	encoded, marshalErr := json.Marshal(payload)
	require.NoError(testingT, marshalErr)
	require.JSONEq(testingT, `{
		"serviceConfig": {"name": "A", "usernameCv": "u"},
		"port": 502,
		"enabled": true,
		"profiles": [2, 1]
	}`, string(encoded))
}

func TestSubmitLaterPathWinsOnCollision(testingT *testing.T) {
	fields := []form.FieldDescriptor{
		form.Text("config", "Plano", 6, false),
		form.Text("config.host", "Host", 6, false),
	}
	values := form.Values{"config": "flat", "config.host": "10.0.0.1"}

	payload, submitErr := form.Submit(fields, values)
	require.NoError(testingT, submitErr)
	require.Equal(testingT, map[string]any{"config": map[string]any{"host": "10.0.0.1"}}, payload)
}

func TestSubmitBlocksEmptyRequiredFields(testingT *testing.T) {
	fields := modbusFields()
	values := form.Defaults(fields)
	values["serviceConfig.name"] = "   "

	payload, submitErr := form.Submit(fields, values)
	require.Nil(testingT, payload)
	require.ErrorIs(testingT, submitErr, form.ErrValidation)

	validationError, isValidation := form.AsValidationError(submitErr)
	require.True(testingT, isValidation)
	require.Len(testingT, validationError.Missing, 2)
	require.Equal(testingT, "serviceConfig.name", validationError.Missing[0].Path.Key())
	require.Equal(testingT, "port", validationError.Missing[1].Path.Key())
	require.True(testingT, errors.Is(validationError.Missing[0].Err, form.ErrRequired))
}

func TestDefaultsFollowFieldKinds(testingT *testing.T) {
	fields := append(modbusFields(), form.Date("startDate", "Inicio", 4, false))
	values := form.Defaults(fields)

	require.Equal(testingT, "", values["serviceConfig.name"])
	require.Equal(testingT, "", values["enabled"])
	require.Equal(testingT, []string{}, values["profiles"])
	require.Equal(testingT, time.Time{}, values["startDate"])
}

func TestSeedWalksNestedRecord(testingT *testing.T) {
	fields := append(modbusFields(), form.Password("password", "Clave", 4, false))
	record := map[string]any{
		"serviceConfig": map[string]any{"name": "Planta", "usernameCv": "cv"},
		"port":          float64(502),
		"enabled":       false,
		"profiles":      []any{map[string]any{"id": float64(2), "name": "Operador"}},
		"password":      "secret",
	}

	values := form.Seed(fields, record, time.UTC)
	require.Equal(testingT, "Planta", values["serviceConfig.name"])
	require.Equal(testingT, "cv", values["serviceConfig.usernameCv"])
	require.Equal(testingT, "502", values["port"])
	require.Equal(testingT, "false", values["enabled"])
	require.Equal(testingT, []string{"2"}, values["profiles"])
	require.Equal(testingT, "", values["password"])
}

func TestParseReadsPostedControls(testingT *testing.T) {
	location := time.FixedZone("CLT", -3*60*60)
	fields := append(modbusFields(),
		form.Date("startDate", "Inicio", 4, false),
		form.Time("startTime", "Hora", 4, false),
		form.DateTime("scheduledAt", "Programado", 4, false),
	)
	posted := url.Values{
		"serviceConfig.name": []string{"Planta"},
		"port":               []string{"502"},
		"profiles":           []string{"1", "2"},
		"startDate":          []string{"2024-03-05"},
		"startTime":          []string{"08:30"},
		"scheduledAt":        []string{"2024-03-05T21:15:00"},
	}

	values, parseErr := form.Parse(fields, posted, location)
	require.NoError(testingT, parseErr)
	require.Equal(testingT, []string{"1", "2"}, values["profiles"])

	payload, submitErr := form.Submit(fields, values)
	require.NoError(testingT, submitErr)
	require.Equal(testingT, "2024-03-05", payload["startDate"])
	require.Equal(testingT, "08:30:00", payload["startTime"])
	require.Equal(testingT, "2024-03-06T00:15:00.000Z", payload["scheduledAt"])
}

func TestParseReportsInvalidTemporalValues(testingT *testing.T) {
	fields := []form.FieldDescriptor{form.Date("startDate", "Inicio", 4, false)}

	_, parseErr := form.Parse(fields, url.Values{"startDate": []string{"05/03/2024"}}, time.UTC)
	validationError, isValidation := form.AsValidationError(parseErr)
	require.True(testingT, isValidation)
	require.Len(testingT, validationError.Invalid, 1)
	require.ErrorIs(testingT, validationError.Invalid[0].Err, form.ErrInvalidTemporal)
}

func TestTemporalFormattingIsIdempotent(testingT *testing.T) {
	instant := time.Date(2024, time.November, 2, 23, 45, 10, 123_000_000, time.FixedZone("CLT", -3*60*60))

	testCases := []struct {
		name      string
		kind      form.Kind
		formatter func(time.Time) string
		expected  string
	}{
		{name: "date", kind: form.KindDate, formatter: form.FormatDate, expected: "2024-11-02"},
		{name: "time", kind: form.KindTime, formatter: form.FormatTime, expected: "23:45:10"},
		{name: "datetime", kind: form.KindDateTime, formatter: form.FormatDateTime, expected: "2024-11-03T02:45:10.123Z"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			formatted := testCase.formatter(instant)
			require.Equal(testingT, testCase.expected, formatted)

			reparsed, parseErr := form.ParseTemporal(testCase.kind, formatted, instant.Location())
			require.NoError(testingT, parseErr)
			require.Equal(testingT, formatted, testCase.formatter(reparsed))
		})
	}
}

func TestValidateRejectsUnrenderableDescriptors(testingT *testing.T) {
	testCases := []struct {
		name          string
		fields        []form.FieldDescriptor
		expectedError error
	}{
		{name: "empty name", fields: []form.FieldDescriptor{form.Text(" ", "Nada", 4, false)}, expectedError: form.ErrEmptyName},
		{name: "duplicate", fields: []form.FieldDescriptor{form.Text("a", "A", 4, false), form.Number("a", "A", 4, false)}, expectedError: form.ErrDuplicateField},
		{name: "sourced dropdown not loaded", fields: []form.FieldDescriptor{form.SourcedDropdown("unit", "Unidad", 4, true, false, "units")}, expectedError: form.ErrMissingOptions},
		{name: "static dropdown without options", fields: []form.FieldDescriptor{form.Dropdown("kind", "Tipo", 4, false, false)}, expectedError: form.ErrMissingOptions},
		{name: "unknown kind", fields: []form.FieldDescriptor{{Name: form.ParsePath("x"), Kind: form.Kind("color")}}, expectedError: form.ErrUnknownKind},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			require.ErrorIs(testingT, form.Validate(testCase.fields), testCase.expectedError)
		})
	}
}

func TestWithOptionsFillsSourcedDropdowns(testingT *testing.T) {
	fields := []form.FieldDescriptor{
		form.SourcedDropdown("measurementUnitId", "Unidad", 4, true, false, "units"),
		form.SourcedDropdown("secondaryUnitId", "Unidad secundaria", 4, false, false, "units"),
		form.Text("tag", "Tag", 4, true),
	}
	require.Equal(testingT, []string{"units"}, form.Sources(fields))

	resolved := form.WithOptions(fields, map[string][]form.Option{"units": {{Value: float64(3), Label: "m3"}}})
	require.NoError(testingT, form.Validate(resolved))
	require.Empty(testingT, fields[0].Options)
	require.Equal(testingT, "3", resolved[1].Options[0].Token())
}

func TestRenderMarksSelectionsAndErrors(testingT *testing.T) {
	fields := append(modbusFields(), form.File("file", "Archivo", 12, true))
	values := form.Defaults(fields)
	values["serviceConfig.name"] = `<Planta "A">`
	values["enabled"] = "false"
	values["profiles"] = []string{"2"}

	_, submitErr := form.Submit(fields, values)
	validationError, _ := form.AsValidationError(submitErr)

	markup, renderErr := form.Render(fields, values, form.RenderOptions{
		Action:    "/connections/modbus/register",
		CancelURL: "/connections/modbus",
		Errors:    validationError,
	})
	require.NoError(testingT, renderErr)

	html := string(markup)
	require.Contains(testingT, html, `enctype="multipart/form-data"`)
	require.Contains(testingT, html, `id="field-serviceConfig-name" name="serviceConfig.name"`)
	require.Contains(testingT, html, `value="&lt;Planta &#34;A&#34;&gt;"`)
	require.Contains(testingT, html, `<option value="false" selected>No</option>`)
	require.Contains(testingT, html, `<option value="2" selected>Operador</option>`)
	require.Contains(testingT, html, `<option value="1">Admin</option>`)
	require.Contains(testingT, html, "Campo requerido")
	require.Contains(testingT, html, ">Guardar</button>")
}

func TestRenderReadOnlyDisablesControls(testingT *testing.T) {
	fields := modbusFields()
	markup, renderErr := form.Render(fields, form.Seed(fields, map[string]any{"port": float64(502)}, time.UTC), form.RenderOptions{
		ReadOnly:  true,
		CancelURL: "/connections/modbus",
	})
	require.NoError(testingT, renderErr)

	html := string(markup)
	require.NotContains(testingT, html, `type="submit"`)
	require.Equal(testingT, len(fields), strings.Count(html, " disabled"))
	require.Contains(testingT, html, `value="502"`)
}

func TestRenderRefusesDropdownWithoutOptions(testingT *testing.T) {
	fields := []form.FieldDescriptor{form.SourcedDropdown("unit", "Unidad", 4, true, false, "units")}
	_, renderErr := form.Render(fields, nil, form.RenderOptions{})
	require.ErrorIs(testingT, renderErr, form.ErrMissingOptions)
}

func TestRenderKeepsDropdownWhoseSourceLoadedEmpty(testingT *testing.T) {
	fields := []form.FieldDescriptor{
		form.Text("tag", "Tag", 6, true),
		form.SourcedDropdown("objectIds", "Sistemas de medición", 6, false, true, "measurementsystems"),
		form.SourcedDropdown("connection", "Conexión", 6, false, false, "connections"),
	}
	resolved := form.WithOptions(fields, map[string][]form.Option{"measurementsystems": {}, "connections": nil})
	require.NotNil(testingT, resolved[1].Options)
	require.NotNil(testingT, resolved[2].Options)
	require.NoError(testingT, form.Validate(resolved))

	markup, renderErr := form.Render(resolved, nil, form.RenderOptions{})
	require.NoError(testingT, renderErr)
	html := string(markup)
	require.Contains(testingT, html, `name="objectIds" multiple`)
	require.Contains(testingT, html, `name="connection"`)
	require.Contains(testingT, html, `<option value="">Seleccione...</option>`)

	payload, submitErr := form.Submit(resolved, form.Values{"tag": "S-01"})
	require.NoError(testingT, submitErr)
	require.Equal(testingT, "S-01", payload["tag"])
}

package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/model"
)

func TestNewClientStateNormalizesInput(testingT *testing.T) {
	state, stateErr := model.NewClientState(model.ClientStateInput{
		Token:    "  header.payload.signature ",
		Username: " operador@planta.cl ",
		Theme:    " DARK ",
	})
	require.NoError(testingT, stateErr)

	_, parseErr := uuid.Parse(state.ID)
	require.NoError(testingT, parseErr)
	require.Equal(testingT, "header.payload.signature", state.Token)
	require.Equal(testingT, "operador@planta.cl", state.Username)
	require.Equal(testingT, model.ThemeDark, state.Theme)
	require.True(testingT, state.Authenticated())
}

func TestNewClientStateValidation(testingT *testing.T) {
	testCases := []struct {
		name          string
		input         model.ClientStateInput
		expectedError error
	}{
		{name: "malformed id", input: model.ClientStateInput{ID: "not-a-uuid"}, expectedError: model.ErrInvalidClientStateID},
		{name: "oversized token", input: model.ClientStateInput{Token: strings.Repeat("a", 4097)}, expectedError: model.ErrInvalidClientStateToken},
		{name: "unknown theme", input: model.ClientStateInput{Theme: "sepia"}, expectedError: model.ErrInvalidTheme},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			_, stateErr := model.NewClientState(testCase.input)
			require.ErrorIs(testingT, stateErr, testCase.expectedError)
		})
	}
}

func TestNormalizeThemeDefaultsToLight(testingT *testing.T) {
	theme, themeErr := model.NormalizeTheme("")
	require.NoError(testingT, themeErr)
	require.Equal(testingT, model.ThemeLight, theme)
}

func TestClientStateExpired(testingT *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	require.False(testingT, model.ClientState{}.Expired(now))
	require.False(testingT, model.ClientState{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	require.True(testingT, model.ClientState{ExpiresAt: now}.Expired(now))
}

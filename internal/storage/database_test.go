package storage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/model"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/storage"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/testutil"
)

const (
	testUnsupportedDriverName         = "unsupported-driver"
	testUnsupportedDriverDescription  = "unsupported driver"
	testMissingDriverDescription      = "missing driver"
	testMissingDataSourceDescription  = "missing data source"
	testMissingPostgresDSNDescription = "missing postgres data source"
	testClientStateToken              = "header.payload.signature"
	testClientStateUsername           = "operador@planta.cl"
)

func TestOpenDatabaseWithSQLiteConfiguration(t *testing.T) {
	sqliteDatabase := testutil.NewSQLiteTestDatabase(t)

	database, openErr := storage.OpenDatabase(sqliteDatabase.Configuration())
	require.NoError(t, openErr)
	database = testutil.ConfigureDatabaseLogger(t, database)
	require.NotNil(t, database)

	require.NoError(t, storage.AutoMigrate(database))

	state := model.ClientState{
		ID:       storage.NewID(),
		Token:    testClientStateToken,
		Username: testClientStateUsername,
		Theme:    model.ThemeDark,
	}
	require.NoError(t, database.Create(&state).Error)

	var fetchedState model.ClientState
	require.NoError(t, database.First(&fetchedState, "id = ?", state.ID).Error)
	require.Equal(t, testClientStateUsername, fetchedState.Username)
	require.Equal(t, model.ThemeDark, fetchedState.Theme)
}

func TestAutoMigrateIsRepeatable(t *testing.T) {
	sqliteDatabase := testutil.NewSQLiteTestDatabase(t)

	database, openErr := storage.OpenDatabase(sqliteDatabase.Configuration())
	require.NoError(t, openErr)

	require.NoError(t, storage.AutoMigrate(database))
	require.NoError(t, storage.AutoMigrate(database))
	require.True(t, database.Migrator().HasTable(&model.ClientState{}))
}

func TestOpenDatabaseValidation(t *testing.T) {
	sqliteDatabase := testutil.NewSQLiteTestDatabase(t)

	testCases := []struct {
		name              string
		configuration     storage.Config
		expectedRootError error
	}{
		{
			name: testMissingDriverDescription,
			configuration: storage.Config{
				DriverName:     "",
				DataSourceName: sqliteDatabase.DataSourceName(),
			},
			expectedRootError: storage.ErrMissingDatabaseDriverName,
		},
		{
			name: testUnsupportedDriverDescription,
			configuration: storage.Config{
				DriverName:     testUnsupportedDriverName,
				DataSourceName: sqliteDatabase.DataSourceName(),
			},
			expectedRootError: storage.ErrUnsupportedDatabaseDriver,
		},
		{
			name: testMissingDataSourceDescription,
			configuration: storage.Config{
				DriverName:     storage.DriverNameSQLite,
				DataSourceName: "",
			},
			expectedRootError: storage.ErrMissingDataSourceName,
		},
		{
			name: testMissingPostgresDSNDescription,
			configuration: storage.Config{
				DriverName:     storage.DriverNamePostgres,
				DataSourceName: "  ",
			},
			expectedRootError: storage.ErrMissingDataSourceName,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingT *testing.T) {
			_, openErr := storage.OpenDatabase(testCase.configuration)
			require.Error(testingT, openErr)
			require.True(testingT, errors.Is(openErr, testCase.expectedRootError))
		})
	}
}

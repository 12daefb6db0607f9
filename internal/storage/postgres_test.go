package storage_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/model"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/storage"
)

const testPostgresDSNEnvironmentKey = "ACQUISITION_CONSOLE_TEST_POSTGRES_DSN"

func TestOpenAndMigratePostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv(testPostgresDSNEnvironmentKey))
	if dsn == "" {
		t.Skipf("%s not set", testPostgresDSNEnvironmentKey)
	}

	database, openErr := storage.OpenDatabase(storage.Config{DriverName: storage.DriverNamePostgres, DataSourceName: dsn})
	require.NoError(t, openErr)
	require.NoError(t, storage.AutoMigrate(database))

	repository := storage.NewClientStateRepository(database, 0)
	saved, saveErr := repository.Save(context.Background(), model.ClientState{ID: storage.NewID(), Token: "t", Theme: model.ThemeLight})
	require.NoError(t, saveErr)
	t.Cleanup(func() {
		_ = repository.Delete(context.Background(), saved.ID)
	})

	loaded, loadErr := repository.Load(context.Background(), saved.ID)
	require.NoError(t, loadErr)
	require.Equal(t, "t", loaded.Token)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/apiclient"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/cache"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/catalog"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/config"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/httpapi"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/session"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/storage"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/task"
)

const (
	commandUseName                = "console"
	commandShortDescription       = "Run the acquisition console"
	commandLongDescription        = "Serve the administration console of the data acquisition backend"
	missingConfigurationMessage   = "missing required configuration"
	loggerCreationErrorMessage    = "logger"
	runtimeConfigErrorMessage     = "runtime configuration"
	optionCacheErrorMessage       = "option cache"
	unexpectedArgumentsMessage    = "unexpected command arguments"
	commandInitializationFailure  = "failed to configure command"
	flagNotDefinedMessage         = "flag %s not defined"
	environmentConfigurationError = "failed to apply environment configuration"

	logEventListening  = "listening"
	logEventShutdown   = "shutdown"
	logFieldAddress    = "addr"
	logFieldAPIURL     = "api_url"
	logFieldDriverName = "db_driver"

	loggerContextOpenDatabase = "open_db"
	loggerContextAutoMigrate  = "migrate"
	loggerContextServer       = "server"

	schedulerClientStatePurge = "client_state_purge"

	flagNameApplicationAddress = "app-addr"
	flagNameRuntimeConfig      = "runtime-config"
	flagNameSessionSecret      = "session-secret"
	flagNameSecureCookies      = "secure-cookies"
	flagNameDatabaseDriver     = "db-driver"
	flagNameDatabaseDSN        = "db-dsn"
	flagNameSessionTTL         = "session-ttl"
	flagNamePurgeInterval      = "purge-interval"
	flagNameOptionCacheTTL     = "option-cache-ttl"
	flagNameAllowedOrigins     = "allowed-origins"
	flagNameHTTPTimeout        = "http-timeout"

	flagUsageApplicationAddress = "address for the HTTP server to listen on"
	flagUsageRuntimeConfig      = "path to the runtime configuration JSON document"
	flagUsageSessionSecret      = "secret signing the browser session cookie"
	flagUsageSecureCookies      = "mark the session cookie as HTTPS only"
	flagUsageDatabaseDriver     = "client state database driver (sqlite or postgres)"
	flagUsageDatabaseDSN        = "client state database connection string"
	flagUsageSessionTTL         = "idle lifetime of a persisted browser session"
	flagUsagePurgeInterval      = "interval between expired session purges"
	flagUsageOptionCacheTTL     = "lifetime of cached dropdown options"
	flagUsageAllowedOrigins     = "comma separated origins allowed to call the console cross-origin"
	flagUsageHTTPTimeout        = "timeout of backend calls; 0 keeps transport defaults"

	environmentKeyApplicationAddress = "APP_ADDR"
	environmentKeyRuntimeConfig      = "RUNTIME_CONFIG"
	environmentKeySessionSecret      = "SESSION_SECRET"
	environmentKeySecureCookies      = "SECURE_COOKIES"
	environmentKeyDatabaseDriver     = "DB_DRIVER"
	environmentKeyDatabaseDSN        = "DB_DSN"
	environmentKeySessionTTL         = "SESSION_TTL"
	environmentKeyPurgeInterval      = "PURGE_INTERVAL"
	environmentKeyOptionCacheTTL     = "OPTION_CACHE_TTL"
	environmentKeyAllowedOrigins     = "ALLOWED_ORIGINS"
	environmentKeyHTTPTimeout        = "HTTP_TIMEOUT"

	defaultApplicationAddress = ":8080"
	defaultDatabaseDriver     = storage.DriverNameSQLite
	defaultDatabaseDSN        = "file:console.db"
	defaultSessionTTL         = 12 * time.Hour
	defaultPurgeInterval      = 15 * time.Minute
	defaultOptionCacheTTL     = 5 * time.Minute

	readHeaderTimeoutSeconds = 5
	shutdownTimeoutSeconds   = 10
)

// ConsoleConfig captures configuration needed to run the console.
type ConsoleConfig struct {
	ApplicationAddress string
	RuntimeConfigPath  string
	SessionSecret      string
	SecureCookies      bool
	DatabaseDriver     string
	DatabaseDSN        string
	SessionTTL         time.Duration
	PurgeInterval      time.Duration
	OptionCacheTTL     time.Duration
	AllowedOrigins     []string
	HTTPTimeout        time.Duration
}

// DatabaseOpener opens the client state database.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// ConsoleApplication constructs and executes the console command.
type ConsoleApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
}

// NewConsoleApplication creates a ConsoleApplication with default dependencies.
func NewConsoleApplication() *ConsoleApplication {
	return &ConsoleApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ConsoleApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ConsoleApplication {
	application.databaseOpener = databaseOpener
	return application
}

// Command builds the Cobra command for the console.
func (application *ConsoleApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

type flagBinding struct {
	environmentKey string
	flagName       string
}

var flagBindings = []flagBinding{
	{environmentKey: environmentKeyApplicationAddress, flagName: flagNameApplicationAddress},
	{environmentKey: environmentKeyRuntimeConfig, flagName: flagNameRuntimeConfig},
	{environmentKey: environmentKeySessionSecret, flagName: flagNameSessionSecret},
	{environmentKey: environmentKeySecureCookies, flagName: flagNameSecureCookies},
	{environmentKey: environmentKeyDatabaseDriver, flagName: flagNameDatabaseDriver},
	{environmentKey: environmentKeyDatabaseDSN, flagName: flagNameDatabaseDSN},
	{environmentKey: environmentKeySessionTTL, flagName: flagNameSessionTTL},
	{environmentKey: environmentKeyPurgeInterval, flagName: flagNamePurgeInterval},
	{environmentKey: environmentKeyOptionCacheTTL, flagName: flagNameOptionCacheTTL},
	{environmentKey: environmentKeyAllowedOrigins, flagName: flagNameAllowedOrigins},
	{environmentKey: environmentKeyHTTPTimeout, flagName: flagNameHTTPTimeout},
}

func (application *ConsoleApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.SetDefault(environmentKeyApplicationAddress, defaultApplicationAddress)
	application.configurationLoader.SetDefault(environmentKeyDatabaseDriver, defaultDatabaseDriver)
	application.configurationLoader.SetDefault(environmentKeyDatabaseDSN, defaultDatabaseDSN)
	application.configurationLoader.SetDefault(environmentKeySessionTTL, defaultSessionTTL)
	application.configurationLoader.SetDefault(environmentKeyPurgeInterval, defaultPurgeInterval)
	application.configurationLoader.SetDefault(environmentKeyOptionCacheTTL, defaultOptionCacheTTL)
	application.configurationLoader.AutomaticEnv()

	commandFlags := command.Flags()
	commandFlags.String(flagNameApplicationAddress, defaultApplicationAddress, flagUsageApplicationAddress)
	commandFlags.String(flagNameRuntimeConfig, "", flagUsageRuntimeConfig)
	commandFlags.String(flagNameSessionSecret, "", flagUsageSessionSecret)
	commandFlags.Bool(flagNameSecureCookies, false, flagUsageSecureCookies)
	commandFlags.String(flagNameDatabaseDriver, defaultDatabaseDriver, flagUsageDatabaseDriver)
	commandFlags.String(flagNameDatabaseDSN, defaultDatabaseDSN, flagUsageDatabaseDSN)
	commandFlags.Duration(flagNameSessionTTL, defaultSessionTTL, flagUsageSessionTTL)
	commandFlags.Duration(flagNamePurgeInterval, defaultPurgeInterval, flagUsagePurgeInterval)
	commandFlags.Duration(flagNameOptionCacheTTL, defaultOptionCacheTTL, flagUsageOptionCacheTTL)
	commandFlags.StringSlice(flagNameAllowedOrigins, nil, flagUsageAllowedOrigins)
	commandFlags.Duration(flagNameHTTPTimeout, 0, flagUsageHTTPTimeout)

	for _, binding := range flagBindings {
		if bindErr := application.bindFlag(commandFlags, binding.environmentKey, binding.flagName); bindErr != nil {
			return bindErr
		}
	}

	for _, binding := range flagBindings {
		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, binding.environmentKey, binding.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	if markErr := command.MarkFlagRequired(flagNameRuntimeConfig); markErr != nil {
		return markErr
	}

	if markErr := command.MarkFlagRequired(flagNameSessionSecret); markErr != nil {
		return markErr
	}

	return nil
}

func (application *ConsoleApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ConsoleApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

func (application *ConsoleApplication) loadConfiguration() ConsoleConfig {
	loader := application.configurationLoader
	return ConsoleConfig{
		ApplicationAddress: loader.GetString(environmentKeyApplicationAddress),
		RuntimeConfigPath:  strings.TrimSpace(loader.GetString(environmentKeyRuntimeConfig)),
		SessionSecret:      strings.TrimSpace(loader.GetString(environmentKeySessionSecret)),
		SecureCookies:      loader.GetBool(environmentKeySecureCookies),
		DatabaseDriver:     strings.TrimSpace(loader.GetString(environmentKeyDatabaseDriver)),
		DatabaseDSN:        strings.TrimSpace(loader.GetString(environmentKeyDatabaseDSN)),
		SessionTTL:         loader.GetDuration(environmentKeySessionTTL),
		PurgeInterval:      loader.GetDuration(environmentKeyPurgeInterval),
		OptionCacheTTL:     loader.GetDuration(environmentKeyOptionCacheTTL),
		AllowedOrigins:     normalizeOrigins(loader.GetStringSlice(environmentKeyAllowedOrigins)),
		HTTPTimeout:        loader.GetDuration(environmentKeyHTTPTimeout),
	}
}

func normalizeOrigins(origins []string) []string {
	var normalized []string
	for _, origin := range origins {
		for _, candidate := range strings.Split(origin, ",") {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				normalized = append(normalized, trimmed)
			}
		}
	}
	return normalized
}

func (application *ConsoleApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	consoleConfig := application.loadConfiguration()
	if validationErr := application.ensureRequiredConfiguration(consoleConfig); validationErr != nil {
		return validationErr
	}

	runtimeConfig, runtimeErr := config.LoadRuntimeConfig(consoleConfig.RuntimeConfigPath)
	if runtimeErr != nil {
		return fmt.Errorf("%s: %w", runtimeConfigErrorMessage, runtimeErr)
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	database, databaseErr := application.databaseOpener(storage.Config{
		DriverName:     consoleConfig.DatabaseDriver,
		DataSourceName: consoleConfig.DatabaseDSN,
	})
	if databaseErr != nil {
		logger.Fatal(loggerContextOpenDatabase, zap.String(logFieldDriverName, consoleConfig.DatabaseDriver), zap.Error(databaseErr))
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Fatal(loggerContextAutoMigrate, zap.Error(migrateErr))
	}

	optionCache, cacheErr := cache.NewOptionCache(cache.DefaultConfig())
	if cacheErr != nil {
		return fmt.Errorf("%s: %w", optionCacheErrorMessage, cacheErr)
	}
	defer optionCache.Close()

	client := apiclient.New(apiclient.Config{
		HTTPClient: &http.Client{Timeout: consoleConfig.HTTPTimeout},
		Logger:     logger,
	})
	backend := session.NewAPIBackend(client, runtimeConfig)
	sessionManager := session.NewManager(session.ManagerConfig{
		Backend:     backend,
		Repository:  storage.NewClientStateRepository(database, consoleConfig.SessionTTL),
		NotFound:    storage.ErrClientStateNotFound,
		Logger:      logger,
		IdleTimeout: consoleConfig.SessionTTL,
	})

	signalContext, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	purgeScheduler := task.NewScheduler(task.SchedulerConfig{
		Name:     schedulerClientStatePurge,
		Interval: consoleConfig.PurgeInterval,
		Runner:   task.NewClientStatePurgeJob(sessionManager, logger).Runner(),
		Logger:   logger,
	})
	purgeScheduler.Start(signalContext)
	purgeScheduler.Trigger()
	defer purgeScheduler.Stop()

	authManager := httpapi.NewAuthManager(logger, httpapi.NewCookieStore(consoleConfig.SessionSecret, consoleConfig.SecureCookies), sessionManager)
	options := catalog.NewOptionLoader(catalog.OptionLoaderConfig{
		Client:  client,
		Runtime: runtimeConfig,
		Cache:   optionCache,
		TTL:     consoleConfig.OptionCacheTTL,
		Logger:  logger,
	})

	entityHandlers := httpapi.NewEntityHandlers(httpapi.EntityConfig{
		Logger:  logger,
		Auth:    authManager,
		Client:  client,
		Runtime: runtimeConfig,
		Catalog: catalog.Default(),
		Options: options,
	})

	gin.SetMode(gin.ReleaseMode)
	router := newConsoleRouter(consoleRoutes{
		logger:             logger,
		authManager:        authManager,
		sessionHandlers:    httpapi.NewSessionHandlers(logger, authManager, backend, runtimeConfig),
		hubHandlers:        httpapi.NewHubHandlers(logger, authManager),
		entityHandlers:     entityHandlers,
		linkConfigHandlers: httpapi.NewLinkConfigHandlers(entityHandlers, catalog.LinkConfig()),
		uploadHandlers: httpapi.NewUploadHandlers(httpapi.UploadConfig{
			Logger:  logger,
			Auth:    authManager,
			Client:  client,
			Runtime: runtimeConfig,
			Options: options,
		}),
		allowedOrigins: consoleConfig.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              consoleConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	go func() {
		<-signalContext.Done()
		shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
		defer cancelShutdown()
		logger.Info(logEventShutdown)
		_ = httpServer.Shutdown(shutdownContext)
	}()

	logger.Info(logEventListening, zap.String(logFieldAddress, consoleConfig.ApplicationAddress), zap.String(logFieldAPIURL, runtimeConfig.APIURL()))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

func (application *ConsoleApplication) ensureRequiredConfiguration(configuration ConsoleConfig) error {
	var missingParameters []string

	if configuration.RuntimeConfigPath == "" {
		missingParameters = append(missingParameters, flagNameRuntimeConfig)
	}

	if configuration.SessionSecret == "" {
		missingParameters = append(missingParameters, flagNameSessionSecret)
	}

	if configuration.DatabaseDSN == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDSN)
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func main() {
	application := NewConsoleApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}

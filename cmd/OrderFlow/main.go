package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/VeriScreen/OrderFlow/internal/api"
	"github.com/VeriScreen/OrderFlow/internal/backend"
	"github.com/VeriScreen/OrderFlow/internal/cache"
	"github.com/VeriScreen/OrderFlow/internal/notify"
	"github.com/VeriScreen/OrderFlow/internal/store"
	"github.com/VeriScreen/OrderFlow/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for OrderFlow state data
	DefaultStateDir = "/var/lib/orderflow"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "orderflow.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	backendOpts := buildBackendOptions(flags)
	notifyOpts := buildNotifyOptions(flags)
	cacheOpts := buildCacheOptions(config)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping OrderFlow with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "backend", len(backendOpts), "notify", len(notifyOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := api.Run(storeOpts, backendOpts, notifyOpts, cacheOpts, apiOpts); err != nil {
		slog.Error("OrderFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("OrderFlow exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL     string
	StateDir        string
	BackendBaseURL  string
	BackendAPIKey   string
	APIAddr         string
	CompanyCacheTTL time.Duration
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
}

// Flags holds command line flag values
type Flags struct {
	stateDir       *string
	dbDSN          *string
	backendBaseURL *string
	backendAPIKey  *string
	apiAddr        *string
	twilioSID      *string
	twilioToken    *string
	twilioFrom     *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("ORDERFLOW_STATE_DIR"),
		BackendBaseURL:  os.Getenv("BACKEND_BASE_URL"),
		BackendAPIKey:   os.Getenv("BACKEND_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		CompanyCacheTTL: util.ParseDurationEnv("COMPANY_CACHE_TTL", cache.DefaultTTL),
		TwilioSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:      os.Getenv("TWILIO_FROM_NUMBER"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ORDERFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("ORDERFLOW_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"ORDERFLOW_STATE_DIR", config.StateDir,
		"BACKEND_BASE_URL", config.BackendBaseURL,
		"BACKEND_API_KEY_SET", config.BackendAPIKey != "",
		"API_ADDR", config.APIAddr,
		"COMPANY_CACHE_TTL", config.CompanyCacheTTL,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "",
		"TWILIO_FROM_NUMBER", config.TwilioFrom)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for OrderFlow data (overrides $ORDERFLOW_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL)"),
		backendBaseURL: flag.String("backend-url", config.BackendBaseURL, "lab backend base URL (overrides $BACKEND_BASE_URL)"),
		backendAPIKey:  flag.String("backend-api-key", config.BackendAPIKey, "lab backend API key (overrides $BACKEND_API_KEY)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		twilioSID:      flag.String("twilio-account-sid", config.TwilioSID, "Twilio account SID for SMS links (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken:    flag.String("twilio-auth-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:     flag.String("twilio-from", config.TwilioFrom, "Twilio sender number (overrides $TWILIO_FROM_NUMBER)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"backendBaseURL", *flags.backendBaseURL,
		"backendAPIKeySet", *flags.backendAPIKey != "",
		"apiAddr", *flags.apiAddr,
		"twilioSIDSet", *flags.twilioSID != "")

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if store.DetectDSNType(*flags.dbDSN) != "postgres" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
		slog.Debug("State directory created successfully", "state_dir", stateDir)
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		// Check if it's a PostgreSQL DSN using the shared detection function
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			// Assume SQLite for file paths
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildBackendOptions constructs lab backend client options
func buildBackendOptions(flags Flags) []backend.Option {
	var backendOpts []backend.Option
	if *flags.backendBaseURL != "" {
		backendOpts = append(backendOpts, backend.WithBaseURL(*flags.backendBaseURL))
	}
	if *flags.backendAPIKey != "" {
		backendOpts = append(backendOpts, backend.WithAPIKey(*flags.backendAPIKey))
	}
	return backendOpts
}

// buildNotifyOptions constructs Twilio SMS options
func buildNotifyOptions(flags Flags) []notify.Option {
	var notifyOpts []notify.Option
	if *flags.twilioSID != "" {
		notifyOpts = append(notifyOpts, notify.WithAccountSID(*flags.twilioSID))
	}
	if *flags.twilioToken != "" {
		notifyOpts = append(notifyOpts, notify.WithAuthToken(*flags.twilioToken))
	}
	if *flags.twilioFrom != "" {
		notifyOpts = append(notifyOpts, notify.WithFromNumber(*flags.twilioFrom))
	}
	return notifyOpts
}

// buildCacheOptions constructs company cache options
func buildCacheOptions(config Config) []cache.Option {
	var cacheOpts []cache.Option
	if config.CompanyCacheTTL != cache.DefaultTTL {
		cacheOpts = append(cacheOpts, cache.WithTTL(config.CompanyCacheTTL))
	}
	return cacheOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

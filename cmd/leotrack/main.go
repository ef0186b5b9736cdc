package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/oryshchuk/leotrack/internal/bot"
	"github.com/oryshchuk/leotrack/internal/twiliowhatsapp"
	"github.com/oryshchuk/leotrack/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for leotrack state data
	DefaultStateDir = "/var/lib/leotrack"
	// DefaultDBFileName is the default SQLite database filename for activities
	DefaultDBFileName = "leotrack.db"
	// DefaultWhatsAppDBFileName is the default SQLite database filename for whatsmeow
	DefaultWhatsAppDBFileName = "whatsmeow.db"
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

	cfg := buildBotConfig(flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping leotrack with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"transport", *flags.transport)
	if err := bot.Run(ctx, cfg); err != nil {
		slog.Error("leotrack failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("leotrack exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir    string
	DatabaseURL string
	DBDSN       string
	WhatsAppDSN string
	Transport   string
	WebhookAddr string
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string
}

// Flags holds command line flag values
type Flags struct {
	qrOutput    *string
	numeric     *bool
	stateDir    *string
	dbDSN       *string
	whatsappDSN *string
	transport   *string
	webhookAddr *string
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
		StateDir:    os.Getenv("LEOTRACK_STATE_DIR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBDSN:       os.Getenv("LEOTRACK_DB_DSN"),
		WhatsAppDSN: os.Getenv("WHATSAPP_DB_DSN"),
		Transport:   os.Getenv("TRANSPORT"),
		WebhookAddr: os.Getenv("WEBHOOK_ADDR"),
		TwilioSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken: os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:  os.Getenv("TWILIO_FROM_NUMBER"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No LEOTRACK_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("LEOTRACK_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// Default activity DSN to DATABASE_URL if the specific one is not set
	if config.DBDSN == "" {
		config.DBDSN = config.DatabaseURL
		if config.DatabaseURL != "" {
			slog.Debug("Using DATABASE_URL as LEOTRACK_DB_DSN", "dsn_set", true)
		}
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DBDSN == "" {
		config.DBDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DBDSN)
	}

	// The whatsmeow session store gets its own SQLite file unless overridden
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = "file:" + filepath.Join(config.StateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
		slog.Debug("No WhatsApp DSN provided, defaulting to SQLite", "sqlite_path", config.WhatsAppDSN)
	}

	slog.Debug("environment variables loaded",
		"LEOTRACK_STATE_DIR", config.StateDir,
		"LEOTRACK_DB_DSN_SET", config.DBDSN != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"TRANSPORT", config.Transport,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:    flag.String("qr-output", "", "path to write login QR code"),
		numeric:     flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for leotrack data (overrides $LEOTRACK_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DBDSN, "database DSN for the activity store (overrides $LEOTRACK_DB_DSN or $DATABASE_URL)"),
		whatsappDSN: flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "database DSN for the whatsmeow session store (overrides $WHATSAPP_DB_DSN)"),
		transport:   flag.String("transport", config.Transport, "messaging transport: whatsapp or twilio (overrides $TRANSPORT)"),
		webhookAddr: flag.String("webhook-addr", config.WebhookAddr, "listen address for the Twilio webhook (overrides $WEBHOOK_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"whatsappDSN_set", *flags.whatsappDSN != "",
		"transport", *flags.transport,
		"webhookAddr", *flags.webhookAddr)

	// Update database DSNs if not explicitly set but state directory is provided
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
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

// buildBotConfig assembles the bot configuration from parsed flags
func buildBotConfig(flags Flags) bot.Config {
	cfg := bot.Config{
		DBDSN:       *flags.dbDSN,
		Transport:   *flags.transport,
		WebhookAddr: *flags.webhookAddr,
	}

	if *flags.qrOutput != "" {
		cfg.WhatsAppOpts = append(cfg.WhatsAppOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		cfg.WhatsAppOpts = append(cfg.WhatsAppOpts, whatsapp.WithNumericCode())
	}
	if *flags.whatsappDSN != "" {
		cfg.WhatsAppOpts = append(cfg.WhatsAppOpts, whatsapp.WithDBDSN(*flags.whatsappDSN))
	}

	// Twilio credentials come from the environment inside twiliowhatsapp.NewClient
	// as well; listing them here keeps the dependency explicit.
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		cfg.TwilioOpts = append(cfg.TwilioOpts, twiliowhatsapp.WithAccountSID(sid))
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		cfg.TwilioOpts = append(cfg.TwilioOpts, twiliowhatsapp.WithAuthToken(token))
	}
	if from := os.Getenv("TWILIO_FROM_NUMBER"); from != "" {
		cfg.TwilioOpts = append(cfg.TwilioOpts, twiliowhatsapp.WithFromWhats(from))
	}

	return cfg
}

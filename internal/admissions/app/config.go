package app

import (
	"errors"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Report pruning interval (default: 1h)
	ReportRetention      time.Duration // Finalization report retention (default: 90 days)
	DatabaseFile         string        // Path to SQLite database file (default: ./admissions.db)
	AdminAPIKey          string        // Required: bearer key for the admin API

	Tito      TitoConfig
	Mailchimp MailchimpConfig
	Hub       HubConfig
}

// TitoConfig configures the ticketing platform and the default ticket settings.
type TitoConfig struct {
	BaseURL      string
	Token        string
	Account      string
	Event        string
	ListID       string
	ReleaseIDs   string
	DiscountCode string
}

// MailchimpConfig holds the slot limits. Per-slot credentials are read
// lazily from MAILCHIMP_{API_KEY,SERVER_PREFIX,AUDIENCE_ID}_<n>.
type MailchimpConfig struct {
	BaseURL  string
	MaxCalls int
	MaxSlots int
}

// HubConfig configures account provisioning. An empty BaseURL disables it.
type HubConfig struct {
	BaseURL  string
	Email    string
	Password string
	Role     string
}

var ErrAdminKeyRequired = errors.New("ADMIN_API_KEY is required")

func LoadConfig() Config {
	// Development reads a local .env first; real variables still win.
	if getEnvOrDefault("ENV", "dev") == "dev" {
		_ = godotenv.Load()
	}

	return Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		ReportRetention:      getEnvDurationOrDefault("REPORT_RETENTION", 90*24*time.Hour),
		DatabaseFile:         getEnvOrDefault("ADMISSIONS_DATABASE_FILE", "admissions.db"),
		AdminAPIKey:          os.Getenv("ADMIN_API_KEY"),

		Tito: TitoConfig{
			BaseURL:      getEnvOrDefault("TITO_BASE_URL", "https://api.tito.io/v3"),
			Token:        os.Getenv("TITO_API_TOKEN"),
			Account:      os.Getenv("TITO_ACCOUNT_SLUG"),
			Event:        os.Getenv("TITO_EVENT_SLUG"),
			ListID:       os.Getenv("TITO_LIST_ID"),
			ReleaseIDs:   os.Getenv("TITO_RELEASE_IDS"),
			DiscountCode: os.Getenv("TITO_DISCOUNT_CODE"),
		},
		Mailchimp: MailchimpConfig{
			BaseURL:  os.Getenv("MAILCHIMP_BASE_URL"),
			MaxCalls: getEnvIntOrDefault("MAILCHIMP_MAX_CALLS", 500),
			MaxSlots: getEnvIntOrDefault("MAILCHIMP_MAX_SLOTS", 1),
		},
		Hub: HubConfig{
			BaseURL:  os.Getenv("HUB_BASE_URL"),
			Email:    os.Getenv("HUB_ADMIN_EMAIL"),
			Password: os.Getenv("HUB_ADMIN_PASSWORD"),
			Role:     getEnvOrDefault("HUB_INVITE_ROLE", "hacker"),
		},
	}
}

// Validate reports settings the service cannot start without.
func (c Config) Validate() error {
	if c.AdminAPIKey == "" {
		return ErrAdminKeyRequired
	}
	return nil
}

// missingTito names the unset ticketing variables.
func (c Config) missingTito() []string {
	var missing []string
	for name, v := range map[string]string{
		"TITO_API_TOKEN":    c.Tito.Token,
		"TITO_ACCOUNT_SLUG": c.Tito.Account,
		"TITO_EVENT_SLUG":   c.Tito.Event,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return missing
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

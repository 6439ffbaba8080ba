package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"staffDirectoryViewer/internal/utils"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const (
	BackendSharePoint = "sharepoint"
	BackendSheets     = "sheets"
	BackendSQLite     = "sqlite"
)

type Config struct {
	Port          string
	Environment   string
	LogLevel      string
	SessionSecret []byte
	SessionMaxAge int

	Backend      string
	ListName     string
	PartitionURL string

	SharePointSiteURL      string
	SharePointTenantID     string
	SharePointClientID     string
	SharePointClientSecret string
	SharePointScope        string

	SheetsSpreadsheetID   string
	SheetsRange           string
	GoogleCredentialsFile string

	DatabasePath string
	SeedFile     string

	RemoteTimeout     time.Duration
	ViewerIdleTTL     time.Duration
	SaveRatePerMinute int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.AppLogger.Info("No .env file found, using system environment variables")
	}

	var errs *multierror.Error
	config := &Config{}

	sessionSecret := os.Getenv("SESSION_SECRET")
	switch {
	case sessionSecret == "":
		errs = multierror.Append(errs, fmt.Errorf("SESSION_SECRET environment variable is required"))
	case len(sessionSecret) < 32:
		errs = multierror.Append(errs, fmt.Errorf("SESSION_SECRET must be at least 32 characters long"))
	}
	config.SessionSecret = []byte(sessionSecret)

	config.Port = getEnvWithDefault("PORT", "8080")
	config.Environment = getEnvWithDefault("ENVIRONMENT", "development")
	config.LogLevel = getEnvWithDefault("LOG_LEVEL", "INFO")
	config.Backend = strings.ToLower(getEnvWithDefault("STORE_BACKEND", BackendSharePoint))
	config.ListName = getEnvWithDefault("LIST_NAME", "ADRA Staff")
	config.PartitionURL = getEnvWithDefault("PARTITION_URL", "https://adra.sharepoint.com/network/afro")
	config.DatabasePath = getEnvWithDefault("DATABASE_PATH", "./viewer.db")
	config.SeedFile = os.Getenv("SEED_FILE")

	maxAge, err := strconv.Atoi(getEnvWithDefault("SESSION_MAX_AGE", "86400"))
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid SESSION_MAX_AGE: %v", err))
	}
	config.SessionMaxAge = maxAge

	config.RemoteTimeout, err = time.ParseDuration(getEnvWithDefault("REMOTE_TIMEOUT", "30s"))
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid REMOTE_TIMEOUT: %v", err))
	}
	config.ViewerIdleTTL, err = time.ParseDuration(getEnvWithDefault("VIEWER_IDLE_TTL", "30m"))
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid VIEWER_IDLE_TTL: %v", err))
	}
	config.SaveRatePerMinute, err = strconv.Atoi(getEnvWithDefault("SAVE_RATE_PER_MINUTE", "20"))
	if err != nil || config.SaveRatePerMinute <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("SAVE_RATE_PER_MINUTE must be a positive integer"))
	}

	if u, err := url.Parse(config.PartitionURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = multierror.Append(errs, fmt.Errorf("PARTITION_URL must be an absolute URL, got %q", config.PartitionURL))
	}

	switch config.Backend {
	case BackendSharePoint:
		config.SharePointSiteURL = os.Getenv("SHAREPOINT_SITE_URL")
		config.SharePointTenantID = os.Getenv("SHAREPOINT_TENANT_ID")
		config.SharePointClientID = os.Getenv("SHAREPOINT_CLIENT_ID")
		config.SharePointClientSecret = os.Getenv("SHAREPOINT_CLIENT_SECRET")
		config.SharePointScope = os.Getenv("SHAREPOINT_SCOPE")
		errs = requireEnv(errs, map[string]string{
			"SHAREPOINT_SITE_URL":      config.SharePointSiteURL,
			"SHAREPOINT_TENANT_ID":     config.SharePointTenantID,
			"SHAREPOINT_CLIENT_ID":     config.SharePointClientID,
			"SHAREPOINT_CLIENT_SECRET": config.SharePointClientSecret,
		})
	case BackendSheets:
		config.SheetsSpreadsheetID = os.Getenv("SHEETS_SPREADSHEET_ID")
		config.SheetsRange = getEnvWithDefault("SHEETS_RANGE", "A:Z")
		config.GoogleCredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
		errs = requireEnv(errs, map[string]string{
			"SHEETS_SPREADSHEET_ID":   config.SheetsSpreadsheetID,
			"GOOGLE_CREDENTIALS_FILE": config.GoogleCredentialsFile,
		})
	case BackendSQLite:
	default:
		errs = multierror.Append(errs, fmt.Errorf("STORE_BACKEND must be one of %s, %s or %s, got %q",
			BackendSharePoint, BackendSheets, BackendSQLite, config.Backend))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return config, nil
}

// requireEnv appends an error for every empty value, in key order.
func requireEnv(errs *multierror.Error, values map[string]string) *multierror.Error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if values[key] == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s environment variable is required", key))
		}
	}
	return errs
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func GenerateCSRFToken() (string, error) {
	return GenerateSecureToken(32)
}

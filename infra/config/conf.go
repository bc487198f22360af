package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/paybridge/paybridge/connector"
)

type Config struct {
	Validator *validator.Validate
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port             string
	OpenSearchURL    string
	OpenSearchUser   string
	OpenSearchPass   string
	EnableAudit      bool
	AuditIndex       string
	CredentialDBPath string
	CredentialKey    string
	HTTPTimeoutSecs  int
	TestMode         bool
}

var (
	instance          *Config
	appConfigInstance *AppConfig
)

func App() *Config {
	if instance == nil {
		instance = &Config{
			Validator: validator.New(),
		}
	}
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:             GetEnv("APP_PORT", "9999"),
			OpenSearchURL:    GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser:   GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass:   GetEnv("OPENSEARCH_PASSWORD", ""),
			EnableAudit:      GetBoolEnv("ENABLE_AUDIT_PUBLISHING", true),
			AuditIndex:       GetEnv("AUDIT_INDEX", "paybridge-audit"),
			CredentialDBPath: GetEnv("CREDENTIAL_DB_PATH", "./data/credentials.db"),
			CredentialKey:    GetEnv("CREDENTIAL_ENCRYPTION_KEY", ""),
			HTTPTimeoutSecs:  GetIntEnv("CONNECTOR_HTTP_TIMEOUT", 30),
			TestMode:         GetBoolEnv("TEST_MODE", true),
		}
	}
	return appConfigInstance
}

// ConnectorEndpoints builds the per-connector endpoint configuration for the
// given connector names. Base URLs come from <NAME>_BASE_URL environment
// variables; an unset variable leaves the connector on its built-in sandbox
// default. The secondary and dispute URLs follow the same convention.
func ConnectorEndpoints(names []string) map[string]connector.Endpoints {
	testMode := GetAppConfig().TestMode
	endpoints := make(map[string]connector.Endpoints, len(names))
	for _, name := range names {
		prefix := strings.ToUpper(name)
		endpoints[name] = connector.Endpoints{
			BaseURL:        GetEnv(prefix+"_BASE_URL", ""),
			SecondaryURL:   GetEnv(prefix+"_SECONDARY_URL", ""),
			DisputeBaseURL: GetEnv(prefix+"_DISPUTE_URL", ""),
			TestMode:       testMode,
		}
	}
	return endpoints
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

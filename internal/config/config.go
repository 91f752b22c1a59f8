package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Deletion policies for the intermediate Word artifact after PDF conversion.
const (
	DeletePolicyPDFOnly       = "pdf-only"        // drop the .docx whenever the PDF succeeds
	DeletePolicyKeepOnFailure = "keep-on-failure" // drop on success, keep the .docx as deliverable on failure
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Port      string
	APIKey    string
	Policy    PolicyConfig
	SMTP      SMTPConfig
	WAHA      WAHAConfig
	Converter ConverterConfig
}

// PolicyConfig holds record-store and document-generation configuration
type PolicyConfig struct {
	DataDir           string
	DocumentsDir      string
	TemplatePath      string
	EmailTemplatePath string
	WelcomeImagePath  string
	NumberFormat      string // sequential | timestamped
	DeletePolicy      string // pdf-only | keep-on-failure
	GenerateDocument  bool
}

// SMTPConfig holds outbound mail configuration
type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// WAHAConfig holds WhatsApp (WAHA) dispatch configuration
type WAHAConfig struct {
	Enabled        bool
	Mock           bool
	BaseURL        string
	Session        string
	APIKey         string
	CountryCode    string
	OverrideNumber string // when set, every send goes to this number (dev)
}

// ConverterConfig holds PDF converter configuration
type ConverterConfig struct {
	Enabled bool
	Binary  string
	Timeout time.Duration
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:   appMode,
		Port:      getEnv("PORT", "3000"),
		APIKey:    getEnv("API_KEY", ""),
		Policy:    loadPolicyConfig(),
		SMTP:      loadSMTPConfig(),
		WAHA:      loadWAHAConfig(appMode),
		Converter: loadConverterConfig(),
	}

	if config.Policy.NumberFormat != "sequential" && config.Policy.NumberFormat != "timestamped" {
		return nil, fmt.Errorf("invalid POLICY_NUMBER_FORMAT: '%s'", config.Policy.NumberFormat)
	}
	if config.Policy.DeletePolicy != DeletePolicyPDFOnly && config.Policy.DeletePolicy != DeletePolicyKeepOnFailure {
		return nil, fmt.Errorf("invalid DOC_DELETE_POLICY: '%s'", config.Policy.DeletePolicy)
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadPolicyConfig loads record store and document pipeline config
func loadPolicyConfig() PolicyConfig {
	return PolicyConfig{
		DataDir:           getEnv("POLICY_DATA_DIR", "db"),
		DocumentsDir:      getEnv("POLICY_DOCUMENTS_DIR", "db/documentos"),
		TemplatePath:      getEnv("POLICY_TEMPLATE_PATH", "assets/condicionado_particular/rumbo_plantilla_sme.docx"),
		EmailTemplatePath: getEnv("EMAIL_TEMPLATE_PATH", "assets/plantilla_correo/BienvenidaRumbo.html"),
		WelcomeImagePath:  getEnv("WELCOME_IMAGE_PATH", ""),
		NumberFormat:      getEnv("POLICY_NUMBER_FORMAT", "timestamped"),
		DeletePolicy:      getEnv("DOC_DELETE_POLICY", DeletePolicyPDFOnly),
		GenerateDocument:  getBoolEnv("GENERATE_DOCUMENT", true),
	}
}

// loadSMTPConfig loads outbound mail config
func loadSMTPConfig() SMTPConfig {
	port, _ := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	timeoutSecs, _ := strconv.Atoi(getEnv("SMTP_TIMEOUT_SECONDS", "30"))
	user := getEnv("SMTP_USER", "")

	return SMTPConfig{
		Enabled:  getBoolEnv("SMTP_ENABLED", user != ""),
		Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		Port:     port,
		User:     user,
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("FROM_EMAIL", user),
		FromName: getEnv("FROM_NAME", "RumbIA | Bienvenido a Interseguro"),
		Timeout:  time.Duration(timeoutSecs) * time.Second,
	}
}

// loadWAHAConfig loads WhatsApp dispatch config based on mode
func loadWAHAConfig(mode string) WAHAConfig {
	return WAHAConfig{
		Enabled:        getBoolEnv("WAHA_ENABLED", false),
		Mock:           getBoolEnv("WAHA_MOCK", mode == "dev"),
		BaseURL:        getEnv("WAHA_BASE_URL", ""),
		Session:        getEnv("WAHA_SESSION", "rumbia"),
		APIKey:         getEnv("WAHA_API_KEY", ""),
		CountryCode:    getEnv("WAHA_COUNTRY_CODE", "51"),
		OverrideNumber: getEnv("WAHA_OVERRIDE_NUMBER", ""),
	}
}

// loadConverterConfig loads PDF converter config
func loadConverterConfig() ConverterConfig {
	timeoutSecs, _ := strconv.Atoi(getEnv("PDF_CONVERT_TIMEOUT_SECONDS", "60"))

	return ConverterConfig{
		Enabled: getBoolEnv("PDF_CONVERT_ENABLED", true),
		Binary:  getEnv("PDF_CONVERT_BINARY", "soffice"),
		Timeout: time.Duration(timeoutSecs) * time.Second,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv gets boolean environment variable with default value
func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://rumbia.interseguro.pe"
	}
	return origins
}

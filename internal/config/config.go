package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	DatabasePath    string `json:"database_path"`
	APIPort         string `json:"api_port"`
	LogLevel        string `json:"log_level"`
	DataDir         string `json:"data_dir"`
	CredentialsPath string `json:"credentials_path"` // Google OAuth client secrets
	TokenPath       string `json:"token_path"`       // cached OAuth token
	AIProvider      string `json:"ai_provider"`
	AIAPIKey        string `json:"ai_api_key"`
	AIModel         string `json:"ai_model"`
	AIBaseURL       string `json:"ai_base_url"`
	UserDescription string `json:"user_description"` // who the inbox belongs to, embedded in the prompt
	MaxEmails       int64  `json:"max_emails"`
	ScanWindowDays  int    `json:"scan_window_days"`
	Workers         int    `json:"workers"`
	CORSOrigins     string `json:"cors_origins"`
}

// Default configuration values
const (
	DefaultDatabasePath    = "data/spam_killer.db"
	DefaultAPIPort         = "8000"
	DefaultLogLevel        = "INFO"
	DefaultDataDir         = "data"
	DefaultCredentialsPath = "credentials.json"
	DefaultTokenPath       = "token.json"
	DefaultAIProvider      = "openai"
	DefaultAIModel         = "gpt-4.1"
	DefaultUserDescription = "the owner of this mailbox"
	DefaultMaxEmails       = 100
	DefaultScanWindowDays  = 14
	DefaultWorkers         = 20
	DefaultCORSOrigins     = "*"
)

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:    DefaultDatabasePath,
		APIPort:         DefaultAPIPort,
		LogLevel:        DefaultLogLevel,
		DataDir:         DefaultDataDir,
		CredentialsPath: DefaultCredentialsPath,
		TokenPath:       DefaultTokenPath,
		AIProvider:      DefaultAIProvider,
		AIModel:         DefaultAIModel,
		UserDescription: DefaultUserDescription,
		MaxEmails:       DefaultMaxEmails,
		ScanWindowDays:  DefaultScanWindowDays,
		Workers:         DefaultWorkers,
		CORSOrigins:     DefaultCORSOrigins,
	}

	// Config file is optional
	_ = cfg.loadFromFile()

	cfg.loadFromEnv()

	return cfg, nil
}

// loadFromFile loads configuration from config.json file
func (c *Config) loadFromFile() error {
	configPaths := []string{
		"config.json",
		c.DataDir + "/config.json",
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return json.Unmarshal(data, c)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if val := os.Getenv("SPAM_KILLER_DATABASE_PATH"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("SPAM_KILLER_API_PORT"); val != "" {
		c.APIPort = val
	}
	if val := os.Getenv("SPAM_KILLER_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("SPAM_KILLER_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("SPAM_KILLER_CREDENTIALS_PATH"); val != "" {
		c.CredentialsPath = val
	}
	if val := os.Getenv("SPAM_KILLER_TOKEN_PATH"); val != "" {
		c.TokenPath = val
	}
	if val := os.Getenv("SPAM_KILLER_AI_PROVIDER"); val != "" {
		c.AIProvider = val
	}
	if val := os.Getenv("SPAM_KILLER_AI_MODEL"); val != "" {
		c.AIModel = val
	}
	if val := os.Getenv("SPAM_KILLER_AI_BASE_URL"); val != "" {
		c.AIBaseURL = val
	}
	if val := os.Getenv("SPAM_KILLER_USER_DESCRIPTION"); val != "" {
		c.UserDescription = val
	}
	if val := os.Getenv("SPAM_KILLER_CORS_ORIGINS"); val != "" {
		c.CORSOrigins = val
	}
	if val := os.Getenv("SPAM_KILLER_MAX_EMAILS"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			c.MaxEmails = n
		}
	}
	if val := os.Getenv("SPAM_KILLER_SCAN_WINDOW_DAYS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.ScanWindowDays = n
		}
	}
	if val := os.Getenv("SPAM_KILLER_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.Workers = n
		}
	}

	// The AI key follows the OpenAI convention first, with a tool-specific
	// override.
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.AIAPIKey = val
	}
	if val := os.Getenv("SPAM_KILLER_AI_API_KEY"); val != "" {
		c.AIAPIKey = val
	}
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

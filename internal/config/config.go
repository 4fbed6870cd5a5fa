package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/ocr"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Logger    LoggerConfig      `mapstructure:"logger"`
	Analysis  analysis.Config   `mapstructure:"analysis"`
	Providers ProvidersConfig   `mapstructure:"providers"`
	OCR       OCRConfig         `mapstructure:"ocr"`
	Policy    validation.Policy `mapstructure:"policy"`
	Storage   StorageConfig     `mapstructure:"storage"`
	Report    ReportConfig      `mapstructure:"report"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"` // bytes
}

// DatabaseConfig holds database configuration. An empty path disables the history store.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// ProvidersConfig lists the language model providers in failover order
type ProvidersConfig struct {
	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
}

// ProviderConfig configures one language model provider
type ProviderConfig struct {
	Kind        string  `mapstructure:"kind"` // groq, openai, huggingface
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	JSONMode    bool    `mapstructure:"json_mode"`
}

// OCRConfig holds the engine selection and the rasterization settings
type OCRConfig struct {
	ocr.Config      `mapstructure:",squash"`
	DPI             float64 `mapstructure:"dpi"`
	MaxDimension    int     `mapstructure:"max_dimension"`
	Workers         int     `mapstructure:"workers"`
	PreferTextLayer bool    `mapstructure:"prefer_text_layer"`
}

// StorageConfig holds upload storage and the optional S3 document source
type StorageConfig struct {
	BaseDir string   `mapstructure:"base_dir"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config configures access to s3:// document references
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // MinIO or other S3-compatible stores
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// ReportConfig holds export settings
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// Load loads configuration from file and environment variables.
// An empty path uses defaults plus environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.max_upload_size", 20<<20)

	// Database defaults
	v.SetDefault("database.path", "data/tax-documents.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "migrations")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Analysis defaults
	v.SetDefault("analysis.cache_ttl", analysis.DefaultCacheTTL)
	v.SetDefault("analysis.timeout", analysis.DefaultTimeout)
	v.SetDefault("analysis.prompts_path", "")

	// Provider defaults: Groq primary, Hugging Face secondary
	v.SetDefault("providers.primary.kind", "groq")
	v.SetDefault("providers.primary.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("providers.primary.model", "llama-3.3-70b-versatile")
	v.SetDefault("providers.primary.temperature", 0.1)
	v.SetDefault("providers.primary.max_tokens", 1024)
	v.SetDefault("providers.secondary.kind", "huggingface")
	v.SetDefault("providers.secondary.base_url", "https://api-inference.huggingface.co/models")
	v.SetDefault("providers.secondary.model", "mistralai/Mistral-7B-Instruct-v0.3")
	v.SetDefault("providers.secondary.temperature", 0.1)
	v.SetDefault("providers.secondary.max_tokens", 1024)

	// OCR defaults
	v.SetDefault("ocr.engine", ocr.EngineTesseract)
	v.SetDefault("ocr.language", "ita")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_dimension", 2000)
	v.SetDefault("ocr.workers", 2)
	v.SetDefault("ocr.prefer_text_layer", false)

	// Policy defaults (2025)
	p := validation.DefaultPolicy()
	v.SetDefault("policy.inps_rate", p.INPSRate)
	v.SetDefault("policy.inps_tolerance", p.INPSTolerance)
	v.SetDefault("policy.inps_fallback_tolerance", p.INPSFallbackTolerance)
	v.SetDefault("policy.irpef_tolerance", p.IRPEFTolerance)
	v.SetDefault("policy.irpef_brackets", []map[string]interface{}{
		{"limit": 28000, "rate": 0.23},
		{"limit": 50000, "rate": 0.35},
		{"limit": 0, "rate": 0.43},
	})
	v.SetDefault("policy.vat_tolerance", p.VATTolerance)
	v.SetDefault("policy.standard_vat_rates", p.StandardVATRates)

	// Storage and report defaults
	v.SetDefault("storage.base_dir", "data")
	v.SetDefault("storage.s3.region", "eu-south-1")
	v.SetDefault("report.output_dir", "reports")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("providers.primary.api_key", "GROQ_API_KEY")
	_ = v.BindEnv("providers.secondary.api_key", "HUGGINGFACE_API_KEY")
	_ = v.BindEnv("ocr.google_credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("ocr.tessdata_prefix", "TESSDATA_PREFIX")
	_ = v.BindEnv("storage.s3.region", "AWS_REGION")
	_ = v.BindEnv("storage.s3.endpoint", "AWS_ENDPOINT_URL_S3")
	_ = v.BindEnv("storage.s3.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("storage.s3.secret_access_key", "AWS_SECRET_ACCESS_KEY")
}

// Validate validates the configuration. Missing provider keys are not an error:
// analyses then use the offline rules.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.OCR.Engine {
	case ocr.EngineTesseract:
	case ocr.EngineGoogleVision:
		if c.OCR.GoogleCredentialsFile == "" {
			return fmt.Errorf("ocr.google_credentials_file is required for the google_vision engine")
		}
	default:
		return fmt.Errorf("ocr.engine %q is not supported", c.OCR.Engine)
	}

	for name, p := range map[string]ProviderConfig{"primary": c.Providers.Primary, "secondary": c.Providers.Secondary} {
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("providers.%s.temperature must be between 0 and 2", name)
		}
		if p.APIKey != "" && p.Model == "" {
			return fmt.Errorf("providers.%s.model is required", name)
		}
	}

	if err := validatePolicy(c.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	return nil
}

func validatePolicy(p validation.Policy) error {
	if p.INPSRate <= 0 || p.INPSRate >= 1 {
		return fmt.Errorf("inps_rate must be a fraction between 0 and 1")
	}
	if len(p.IRPEFBrackets) == 0 {
		return fmt.Errorf("irpef_brackets is required")
	}
	lower := 0.0
	for i, b := range p.IRPEFBrackets {
		last := i == len(p.IRPEFBrackets)-1
		if b.Limit == 0 && !last {
			return fmt.Errorf("only the last irpef bracket may be unbounded")
		}
		if b.Limit != 0 && b.Limit <= lower {
			return fmt.Errorf("irpef bracket limits must increase")
		}
		lower = b.Limit
	}
	if len(p.StandardVATRates) == 0 {
		return fmt.Errorf("standard_vat_rates is required")
	}
	return nil
}

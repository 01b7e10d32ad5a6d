package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	StorageLocal = "local"
	StorageS3    = "s3"

	DefaultHost          = "0.0.0.0"
	DefaultPort          = 8080
	DefaultLogLevel      = "info"
	DefaultUploadDir     = "uploads"
	DefaultMaxUploadSize = 10 * 1024 * 1024 // 10MB
	DefaultBucket        = "invoices"
	DefaultOCRLanguage   = "en"
	DefaultShutdown      = 10 * time.Second

	DefaultDirPerm = 0o750
)

// Config holds all runtime settings for the invoice server
type Config struct {
	Host     string
	Port     int
	LogLevel string

	DataBackend string
	DatabaseURL string

	UploadDir      string
	MaxUploadSize  int64
	StorageBackend string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string

	AzureOCREndpoint string
	AzureOCRKey      string
	OCRLanguage      string

	ShutdownTimeout time.Duration
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		LogLevel:        DefaultLogLevel,
		UploadDir:       DefaultUploadDir,
		MaxUploadSize:   DefaultMaxUploadSize,
		StorageBackend:  StorageLocal,
		S3Bucket:        DefaultBucket,
		OCRLanguage:     DefaultOCRLanguage,
		ShutdownTimeout: DefaultShutdown,
	}
}

// Load reads .env, the environment and the given command line arguments.
// Flags win over environment variables, which win over defaults.
func Load(args []string) (*Config, error) {
	// .env is optional; real environment variables take precedence over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := DefaultConfig()
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v, cfg)

	flags := defineFlags(cfg)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	populate(v, cfg)

	if cfg.DataBackend == "" {
		cfg.DataBackend = BackendMemory
		if cfg.DatabaseURL != "" {
			cfg.DataBackend = BackendPostgres
		}
	}

	if cfg.UploadDir != "" {
		if abs, err := filepath.Abs(cfg.UploadDir); err == nil {
			cfg.UploadDir = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("data_backend", "")
	v.SetDefault("database_url", "")
	v.SetDefault("upload_dir", cfg.UploadDir)
	v.SetDefault("max_upload_size", cfg.MaxUploadSize)
	v.SetDefault("storage_backend", cfg.StorageBackend)
	v.SetDefault("s3_bucket", cfg.S3Bucket)
	v.SetDefault("s3_region", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_public_url", "")
	v.SetDefault("azure_ocr_endpoint", "")
	v.SetDefault("azure_ocr_key", "")
	v.SetDefault("ocr_language", cfg.OCRLanguage)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
}

// defineFlags only declares the settings that are commonly overridden per run.
// Flag names match the viper keys so BindPFlags can pick them up directly.
func defineFlags(cfg *Config) *pflag.FlagSet {
	flags := pflag.NewFlagSet("invoice-desk", pflag.ContinueOnError)
	flags.String("host", cfg.Host, "Server host address")
	flags.Int("port", cfg.Port, "Server port")
	flags.String("log_level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("data_backend", "", "Data backend: postgres or memory")
	flags.String("upload_dir", cfg.UploadDir, "Directory for locally stored documents")
	flags.String("storage_backend", cfg.StorageBackend, "Document storage: local or s3")
	flags.Int64("max_upload_size", cfg.MaxUploadSize, "Maximum upload size in bytes")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of invoice-desk:\n")
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PORT, HOST, LOG_LEVEL, DATA_BACKEND, DATABASE_URL, UPLOAD_DIR,\n")
		fmt.Fprintf(os.Stderr, "  STORAGE_BACKEND, S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_PUBLIC_URL,\n")
		fmt.Fprintf(os.Stderr, "  AZURE_OCR_ENDPOINT, AZURE_OCR_KEY, OCR_LANGUAGE, SHUTDOWN_TIMEOUT\n")
	}
	return flags
}

func populate(v *viper.Viper, cfg *Config) {
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.LogLevel = strings.ToLower(v.GetString("log_level"))
	cfg.DataBackend = strings.ToLower(v.GetString("data_backend"))
	cfg.DatabaseURL = v.GetString("database_url")
	cfg.UploadDir = v.GetString("upload_dir")
	cfg.MaxUploadSize = v.GetInt64("max_upload_size")
	cfg.StorageBackend = strings.ToLower(v.GetString("storage_backend"))
	cfg.S3Bucket = v.GetString("s3_bucket")
	cfg.S3Region = v.GetString("s3_region")
	cfg.S3Endpoint = v.GetString("s3_endpoint")
	cfg.S3AccessKey = v.GetString("s3_access_key")
	cfg.S3SecretKey = v.GetString("s3_secret_key")
	cfg.S3PublicURL = v.GetString("s3_public_url")
	cfg.AzureOCREndpoint = v.GetString("azure_ocr_endpoint")
	cfg.AzureOCRKey = v.GetString("azure_ocr_key")
	cfg.OCRLanguage = v.GetString("ocr_language")
	cfg.ShutdownTimeout = v.GetDuration("shutdown_timeout")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("postgres backend requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown data backend: %s (must be postgres or memory)", c.DataBackend)
	}

	if c.MaxUploadSize <= 0 {
		return errors.New("maximum upload size must be positive")
	}

	switch c.StorageBackend {
	case StorageLocal:
		if c.UploadDir == "" {
			return errors.New("upload directory cannot be empty")
		}
		if err := os.MkdirAll(c.UploadDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create upload directory %s: %w", c.UploadDir, err)
		}
	case StorageS3:
		if c.S3Bucket == "" {
			return errors.New("s3 storage requires S3_BUCKET")
		}
		if c.S3Region == "" {
			return errors.New("s3 storage requires S3_REGION")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s (must be local or s3)", c.StorageBackend)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// OCREnabled reports whether Azure OCR credentials were supplied
func (c *Config) OCREnabled() bool {
	return c.AzureOCREndpoint != "" && c.AzureOCRKey != ""
}

// String returns a representation of the configuration with secrets masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Addr: %s, LogLevel: %s, DataBackend: %s, Database: %s, Storage: %s, UploadDir: %s, "+
		"MaxUploadSize: %d, S3Bucket: %s, OCR: %t}",
		c.Address(), c.LogLevel, c.DataBackend, mask(c.DatabaseURL), c.StorageBackend, c.UploadDir,
		c.MaxUploadSize, c.S3Bucket, c.OCREnabled())
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

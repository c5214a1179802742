package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Images   ImageConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port           string        `envconfig:"SERVER_PORT" default:"8000"`
	Host           string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ReadTimeout    time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"180s"`
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"170s"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	AppName        string        `envconfig:"APP_NAME" default:"MINDSHEAR.AI"`

	CORSAllowedOrigins   []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	CORSAllowedMethods   []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	CORSAllowedHeaders   []string `envconfig:"CORS_ALLOWED_HEADERS" default:"*"`
	CORSAllowCredentials bool     `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
}

type LLMConfig struct {
	APIKey        string        `envconfig:"OPENROUTER_API_KEY" required:"true"`
	BaseURL       string        `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1/"`
	NotesModel    string        `envconfig:"NOTES_MODEL" default:"google/gemini-2.0-flash-001"`
	ResearchModel string        `envconfig:"DEEPSEEK_MODEL" default:"deepseek/deepseek-r1"`
	MaxTokens     int64         `envconfig:"LLM_MAX_TOKENS" default:"4096"`
	Timeout       time.Duration `envconfig:"LLM_TIMEOUT" default:"90s"`
	SiteURL       string        `envconfig:"SITE_URL" default:"http://localhost:8000"`
	SiteName      string        `envconfig:"SITE_NAME" default:"MINDSHEAR.AI"`
}

type ImageConfig struct {
	SerpAPIKey         string        `envconfig:"SERPAPI_API_KEY"`
	SearchEndpoint     string        `envconfig:"SERPAPI_ENDPOINT" default:"https://serpapi.com/search.json"`
	SearchRPS          float64       `envconfig:"IMAGE_SEARCH_RPS" default:"5"`
	SimilarityEndpoint string        `envconfig:"SIMILARITY_ENDPOINT"`
	SimilarityAPIKey   string        `envconfig:"SIMILARITY_API_KEY"`
	SimilarityModel    string        `envconfig:"CLIP_MODEL" default:"openai/clip-vit-base-patch32"`
	Timeout            time.Duration `envconfig:"IMAGE_TIMEOUT" default:"20s"`
	MaxImageBytes      int64         `envconfig:"MAX_IMAGE_SIZE" default:"5242880"`
	AllowedTypes       []string      `envconfig:"ALLOWED_IMAGE_TYPES" default:"image/jpeg,image/png,image/gif"`
}

type StorageConfig struct {
	UploadDir          string   `envconfig:"UPLOAD_DIR" default:"uploads"`
	StaticPrefix       string   `envconfig:"STATIC_PREFIX" default:"/static"`
	MaxUploadBytes     int64    `envconfig:"MAX_UPLOAD_SIZE" default:"10485760"`
	AllowedUploadTypes []string `envconfig:"ALLOWED_UPLOAD_TYPES" default:"application/pdf"`
}

type PipelineConfig struct {
	ImageConcurrency     int           `envconfig:"IMAGE_CONCURRENCY" default:"4"`
	RetryMaxTries        uint          `envconfig:"RETRY_MAX_TRIES" default:"3"`
	RetryInitialInterval time.Duration `envconfig:"RETRY_INITIAL_INTERVAL" default:"500ms"`
	RetryMaxInterval     time.Duration `envconfig:"RETRY_MAX_INTERVAL" default:"5s"`
}

// LoadConfig reads the optional dotenv file at envFile, then the process
// environment. Variables already present in the environment win over the file.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := loadDotEnv(envFile); err != nil {
			return nil, err
		}
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Pipeline.ImageConcurrency < 1 {
		return nil, fmt.Errorf("IMAGE_CONCURRENCY must be at least 1, got %d", cfg.Pipeline.ImageConcurrency)
	}
	if cfg.Pipeline.RetryMaxTries < 1 {
		return nil, fmt.Errorf("RETRY_MAX_TRIES must be at least 1, got %d", cfg.Pipeline.RetryMaxTries)
	}
	slog.Info("configuration loaded successfully")
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading env file %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("exporting %s: %w", name, err)
		}
	}
	slog.Debug("env file loaded", "path", path, "keys", len(v.AllKeys()))
	return nil
}

// ParseLogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when CONFIG_FILE is unset and the file exists.
const DefaultConfigFile = "docrank.yaml"

type Config struct {
	// Batch run
	InputDir       string        `yaml:"input_dir"`
	DescriptorName string        `yaml:"descriptor_name"`
	OutputDir      string        `yaml:"output_dir"`
	OutputName     string        `yaml:"output_name"`
	RunTimeout     time.Duration `yaml:"run_timeout"`
	Workers        int           `yaml:"workers"`

	Structure StructureConfig `yaml:"structure"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Embedding EmbeddingConfig `yaml:"embedding"`

	// HTTP service
	Port           string        `yaml:"port"`
	APIKey         string        `yaml:"-"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RunTTL         time.Duration `yaml:"run_ttl"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

type StructureConfig struct {
	SizeRatio       float64 `yaml:"size_ratio"`
	GapRatio        float64 `yaml:"gap_ratio"`
	MaxHeadingRunes int     `yaml:"max_heading_runes"`
}

type RankingConfig struct {
	TopK             int     `yaml:"top_k"`
	MaxExcerptTokens int     `yaml:"max_excerpt_tokens"`
	TitleTermBonus   float64 `yaml:"title_term_bonus"`
	BodyTermBonus    float64 `yaml:"body_term_bonus"`
	MaxBoost         float64 `yaml:"max_boost"`
}

type EmbeddingConfig struct {
	Backend    string        `yaml:"backend"`
	Dimension  int           `yaml:"dimension"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		InputDir:       "/app/input",
		DescriptorName: "challenge_1b_input.json",
		OutputDir:      "/app/output",
		OutputName:     "challenge_1b_output.json",
		RunTimeout:     60 * time.Second,
		Workers:        0, // runtime.NumCPU()

		Structure: StructureConfig{
			SizeRatio:       1.1,
			GapRatio:        1.25,
			MaxHeadingRunes: 100,
		},
		Ranking: RankingConfig{
			TopK:             5,
			MaxExcerptTokens: 256,
			TitleTermBonus:   0.03,
			BodyTermBonus:    0.015,
			MaxBoost:         0.1,
		},
		Embedding: EmbeddingConfig{
			Backend:    "hashing",
			Dimension:  384,
			Model:      "all-minilm",
			BaseURL:    "http://localhost:11434",
			BatchSize:  32,
			MaxRetries: 2,
			Timeout:    20 * time.Second,
		},

		Port:           "8090",
		MaxUploadBytes: 52428800, // 50MB
		RunTTL:         1 * time.Hour,

		PDFFallbackPdftotext: true,

		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. A .env file in the working
// directory is loaded into the environment first if present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	path, explicit := os.LookupEnv("CONFIG_FILE")
	if !explicit {
		path = DefaultConfigFile
	}
	if err := loadFile(&cfg, path, explicit); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(cfg *Config, path string, required bool) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.InputDir = envOr("INPUT_DIR", cfg.InputDir)
	cfg.DescriptorName = envOr("DESCRIPTOR_NAME", cfg.DescriptorName)
	cfg.OutputDir = envOr("OUTPUT_DIR", cfg.OutputDir)
	cfg.OutputName = envOr("OUTPUT_NAME", cfg.OutputName)
	cfg.RunTimeout = envDuration("RUN_TIMEOUT", cfg.RunTimeout)
	cfg.Workers = envInt("WORKERS", cfg.Workers)

	cfg.Structure.SizeRatio = envFloat("HEADING_SIZE_RATIO", cfg.Structure.SizeRatio)
	cfg.Structure.GapRatio = envFloat("HEADING_GAP_RATIO", cfg.Structure.GapRatio)
	cfg.Structure.MaxHeadingRunes = envInt("MAX_HEADING_RUNES", cfg.Structure.MaxHeadingRunes)

	cfg.Ranking.TopK = envInt("TOP_K", cfg.Ranking.TopK)
	cfg.Ranking.MaxExcerptTokens = envInt("MAX_EXCERPT_TOKENS", cfg.Ranking.MaxExcerptTokens)
	cfg.Ranking.TitleTermBonus = envFloat("TITLE_TERM_BONUS", cfg.Ranking.TitleTermBonus)
	cfg.Ranking.BodyTermBonus = envFloat("BODY_TERM_BONUS", cfg.Ranking.BodyTermBonus)
	cfg.Ranking.MaxBoost = envFloat("MAX_BOOST", cfg.Ranking.MaxBoost)

	cfg.Embedding.Backend = envOr("EMBEDDING_BACKEND", cfg.Embedding.Backend)
	cfg.Embedding.Dimension = envInt("EMBEDDING_DIMENSION", cfg.Embedding.Dimension)
	cfg.Embedding.Model = envOr("OLLAMA_MODEL", cfg.Embedding.Model)
	cfg.Embedding.BaseURL = envOr("OLLAMA_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.BatchSize = envInt("EMBEDDING_BATCH_SIZE", cfg.Embedding.BatchSize)
	cfg.Embedding.MaxRetries = envInt("EMBEDDING_MAX_RETRIES", cfg.Embedding.MaxRetries)
	cfg.Embedding.Timeout = envDuration("EMBEDDING_TIMEOUT", cfg.Embedding.Timeout)

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCRANK_API_KEY", cfg.APIKey)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.RunTTL = envDuration("RUN_TTL", cfg.RunTTL)

	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("LOG_FORMAT", cfg.LogFormat)
}

// Validate checks the settings shared by the batch process and the service.
func (c Config) Validate() error {
	if c.RunTimeout <= 0 {
		return fmt.Errorf("RUN_TIMEOUT must be positive, got %s", c.RunTimeout)
	}
	if c.Workers < 0 {
		return fmt.Errorf("WORKERS must not be negative, got %d", c.Workers)
	}
	if c.Ranking.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.Ranking.TopK)
	}
	if c.Ranking.TitleTermBonus < 0 || c.Ranking.BodyTermBonus < 0 || c.Ranking.MaxBoost < 0 {
		return fmt.Errorf("keyword bonuses must not be negative")
	}
	if c.Structure.SizeRatio <= 1 {
		return fmt.Errorf("HEADING_SIZE_RATIO must be greater than 1, got %g", c.Structure.SizeRatio)
	}
	switch strings.ToLower(c.Embedding.Backend) {
	case "hashing", "ollama":
	default:
		return fmt.Errorf("EMBEDDING_BACKEND must be hashing or ollama, got %q", c.Embedding.Backend)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.Embedding.Dimension)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// ValidateServer additionally checks the HTTP service settings.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCRANK_API_KEY is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

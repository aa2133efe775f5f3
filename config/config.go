// Package config loads and validates the application configuration from a
// JSON file and STUDYGEN_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/studygen/studygen/internal/batch"
	"github.com/studygen/studygen/internal/generator"
	"github.com/studygen/studygen/internal/ingest"
	"github.com/studygen/studygen/internal/models"
)

// Config holds all configuration for the generation system.
type Config struct {
	General    GeneralConfig           `mapstructure:"general"`
	Server     ServerConfig            `mapstructure:"server"`
	Generation models.GenerationConfig `mapstructure:"generation"`
	Batch      batch.Config            `mapstructure:"batch"`
	Scheduler  batch.SchedulerConfig   `mapstructure:"scheduler"`
	Ollama     OllamaConfig            `mapstructure:"ollama"`
	Embedding  EmbeddingConfig         `mapstructure:"embedding"`
	Content    ingest.ValidatorConfig  `mapstructure:"content"`
	Exams      ExamConfig              `mapstructure:"exams"`
	Storage    StorageConfig           `mapstructure:"storage"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("server.address required")
	}
	return nil
}

// OllamaConfig locates the local model backend.
type OllamaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (o OllamaConfig) Validate() error {
	if strings.TrimSpace(o.BaseURL) == "" {
		return fmt.Errorf("ollama.base_url required")
	}
	return nil
}

// EmbeddingConfig controls vector generation for ingested content.
type EmbeddingConfig struct {
	Model     string        `mapstructure:"model"`
	BatchSize int           `mapstructure:"batch_size"`
	Pause     time.Duration `mapstructure:"pause"`
}

// ExamConfig carries the mark distribution tables keyed by declared total
// ("20", "default", ...).
type ExamConfig struct {
	Distributions map[string][]generator.MarkBand `mapstructure:"distributions"`
}

// StorageConfig groups the backing stores.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains database connection settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host or storage.postgres.url required")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required")
	}
	return nil
}

// DSN renders the connection string.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains the optional redis connection settings. An empty host
// disables redis-backed features (budget persistence, scheduler lock).
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr renders host:port, empty when redis is not configured.
func (r RedisConfig) Addr() string {
	if strings.TrimSpace(r.Host) == "" {
		return ""
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

func setDefaults() {
	gen := models.DefaultGenerationConfig()
	viper.SetDefault("generation.model", gen.Model)
	viper.SetDefault("generation.temperature", gen.Temperature)
	viper.SetDefault("generation.max_tokens", gen.MaxTokens)
	viper.SetDefault("generation.timeout", gen.Timeout)
	viper.SetDefault("generation.max_retries", gen.MaxRetries)
	viper.SetDefault("generation.batch_size", gen.BatchSize)
	viper.SetDefault("generation.min_question_length", gen.MinQuestionLength)
	viper.SetDefault("generation.max_question_length", gen.MaxQuestionLength)
	viper.SetDefault("generation.min_explanation_length", gen.MinExplanationLength)
	viper.SetDefault("generation.required_options_count", gen.RequiredOptionsCount)

	bc := batch.DefaultConfig()
	viper.SetDefault("batch.max_concurrent", bc.MaxConcurrent)
	viper.SetDefault("batch.delay_between_topics", bc.DelayBetweenTopics)
	viper.SetDefault("batch.max_daily_questions", bc.MaxDailyQuestions)
	viper.SetDefault("batch.min_questions_per_topic", bc.MinQuestionsPerTopic)
	viper.SetDefault("batch.target_questions_per_topic", bc.TargetQuestionsPerTopic)
	viper.SetDefault("batch.quality_threshold", bc.QualityThreshold)

	sc := batch.DefaultSchedulerConfig()
	viper.SetDefault("scheduler.enabled", sc.Enabled)
	viper.SetDefault("scheduler.cron_spec", sc.CronSpec)
	viper.SetDefault("scheduler.tick_interval", sc.TickInterval)
	viper.SetDefault("scheduler.lock_ttl", sc.LockTTL)

	cv := ingest.DefaultValidatorConfig()
	viper.SetDefault("content.min_words", cv.MinWords)
	viper.SetDefault("content.max_words", cv.MaxWords)
	viper.SetDefault("content.min_educational_matches", cv.MinEducationalMatches)
	viper.SetDefault("content.min_subject_keyword_hits", cv.MinSubjectKeywordHits)

	viper.SetDefault("ollama.base_url", "http://localhost:11434")
	viper.SetDefault("ollama.timeout", 2*time.Minute)
	viper.SetDefault("embedding.model", "nomic-embed-text")
	viper.SetDefault("embedding.batch_size", 16)
	viper.SetDefault("embedding.pause", time.Second)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("exams.distributions", generator.DefaultExamDistributions())
}

// LoadConfig reads the configuration from path, or from the standard search
// locations when path is empty. Environment variables prefixed STUDYGEN_
// override file values (dots become underscores).
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	setDefaults()

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("STUDYGEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Defaults plus environment are a complete configuration; only a
		// malformed file is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Generation.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Batch.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Ollama.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

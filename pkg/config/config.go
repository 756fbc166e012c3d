package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	Neo4j         Neo4jConfig
	Elasticsearch ElasticsearchConfig
	CORS          CORSConfig
	Log           LogConfig
	Reports       ReportsConfig
	CDC           CDCConfig
	Export        ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Neo4jConfig describes the bolt endpoint holding attendance edges.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// ElasticsearchConfig describes the lecture material index.
type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	Field     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReportsConfig tunes the report pipelines.
type ReportsConfig struct {
	StoreTimeout        time.Duration
	TopK                int
	SearchLimit         int
	ResolverConcurrency int
	AdmissionCacheTTL   time.Duration
}

// CDCConfig configures the student change-feed worker pool.
type CDCConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ExportConfig controls csv and pdf report rendering.
type ExportConfig struct {
	PDFFontPath string
	CSVBOM      bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Neo4j = Neo4jConfig{
		URI:      v.GetString("NEO4J_URI"),
		User:     v.GetString("NEO4J_USER"),
		Password: v.GetString("NEO4J_PASSWORD"),
		Database: v.GetString("NEO4J_DATABASE"),
	}

	cfg.Elasticsearch = ElasticsearchConfig{
		Addresses: splitAndTrim(v.GetString("ELASTICSEARCH_ADDRESSES")),
		Username:  v.GetString("ELASTICSEARCH_USERNAME"),
		Password:  v.GetString("ELASTICSEARCH_PASSWORD"),
		Index:     v.GetString("SEARCH_INDEX"),
		Field:     v.GetString("SEARCH_FIELD"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Reports = ReportsConfig{
		StoreTimeout:        parseDuration(v.GetString("STORE_TIMEOUT"), 5*time.Second),
		TopK:                positiveOr(v.GetInt("REPORT_TOP_K"), 10),
		SearchLimit:         positiveOr(v.GetInt("REPORT_SEARCH_LIMIT"), 1000),
		ResolverConcurrency: positiveOr(v.GetInt("REPORT_RESOLVER_CONCURRENCY"), 8),
		AdmissionCacheTTL:   parseDuration(v.GetString("ADMISSION_CACHE_TTL"), time.Hour),
	}

	cfg.CDC = CDCConfig{
		Enabled:    v.GetBool("ENABLE_CDC_SYNC"),
		Workers:    positiveOr(v.GetInt("CDC_WORKERS"), 2),
		MaxRetries: positiveOr(v.GetInt("CDC_MAX_RETRIES"), 3),
		RetryDelay: parseDuration(v.GetString("CDC_RETRY_DELAY"), time.Second),
	}

	cfg.Export = ExportConfig{
		PDFFontPath: v.GetString("EXPORT_PDF_FONT"),
		CSVBOM:      v.GetBool("EXPORT_CSV_BOM"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "postgres")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "mirea")
	v.SetDefault("DB_NAME", "university")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "redis")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("NEO4J_URI", "bolt://neo4j:7687")
	v.SetDefault("NEO4J_USER", "neo4j")
	v.SetDefault("NEO4J_PASSWORD", "mireamirea")
	v.SetDefault("NEO4J_DATABASE", "neo4j")

	v.SetDefault("ELASTICSEARCH_ADDRESSES", "http://elasticsearch:9200")
	v.SetDefault("ELASTICSEARCH_USERNAME", "")
	v.SetDefault("ELASTICSEARCH_PASSWORD", "")
	v.SetDefault("SEARCH_INDEX", "materials")
	v.SetDefault("SEARCH_FIELD", "lecture_text")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("REPORT_TOP_K", 10)
	v.SetDefault("REPORT_SEARCH_LIMIT", 1000)
	v.SetDefault("REPORT_RESOLVER_CONCURRENCY", 8)
	v.SetDefault("ADMISSION_CACHE_TTL", "1h")

	v.SetDefault("ENABLE_CDC_SYNC", true)
	v.SetDefault("CDC_WORKERS", 2)
	v.SetDefault("CDC_MAX_RETRIES", 3)
	v.SetDefault("CDC_RETRY_DELAY", "1s")

	v.SetDefault("EXPORT_PDF_FONT", "")
	v.SetDefault("EXPORT_CSV_BOM", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-coursestore/internal/data/db"
	"github.com/yungbote/neurobridge-coursestore/internal/learning/content"
	"github.com/yungbote/neurobridge-coursestore/internal/observability"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/envutil"
)

// ConfigPathEnv names the optional YAML file read before the environment.
const ConfigPathEnv = "CONTENT_STORE_CONFIG"

type Config struct {
	LogMode     string `yaml:"log_mode"`
	ServiceName string `yaml:"service_name" validate:"required"`
	Port        string `yaml:"port" validate:"required,numeric"`

	DB    db.Config   `yaml:"db"`
	Redis RedisConfig `yaml:"redis"`
	Tree  TreeConfig  `yaml:"tree"`
	OTel  OTelConfig  `yaml:"otel"`

	MetricsEnabled bool     `yaml:"metrics_enabled"`
	CORSOrigins    []string `yaml:"cors_origins"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	// LockTTL bounds how long a crashed writer can hold a course lock.
	LockTTL time.Duration `yaml:"lock_ttl" validate:"gte=1s"`
}

type TreeConfig struct {
	MaxDepth   int `yaml:"max_depth" validate:"gte=1,lte=64"`
	ReadingWPM int `yaml:"reading_wpm" validate:"gte=1"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
	Environment string  `yaml:"environment"`
	Version     string  `yaml:"version"`
}

func defaultConfig() Config {
	return Config{
		LogMode:     "development",
		ServiceName: "coursestore",
		Port:        "8080",
		DB: db.Config{
			Driver:        db.DriverPostgres,
			Host:          "localhost",
			Port:          "5432",
			User:          "postgres",
			Name:          "coursestore",
			SSLMode:       "disable",
			SQLitePath:    "coursestore.db",
			MaxOpenConns:  20,
			SlowThreshold: 200 * time.Millisecond,
		},
		Redis: RedisConfig{LockTTL: 30 * time.Second},
		Tree: TreeConfig{
			MaxDepth:   5,
			ReadingWPM: content.DefaultReadingWPM,
		},
		OTel:           OTelConfig{SampleRatio: 1, Environment: "development"},
		MetricsEnabled: true,
	}
}

// LoadConfig layers defaults, the YAML file at path (if any) and the
// environment, in that order, then validates the result. An empty path
// falls back to $CONTENT_STORE_CONFIG.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) == "" {
		path = envutil.String(ConfigPathEnv, "")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.ServiceName = envutil.String("SERVICE_NAME", cfg.ServiceName)
	cfg.Port = envutil.String("PORT", cfg.Port)

	cfg.DB.Driver = strings.ToLower(envutil.String("DB_DRIVER", cfg.DB.Driver))
	cfg.DB.Host = envutil.String("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("POSTGRES_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath)
	cfg.DB.MaxOpenConns = envutil.Int("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.SlowThreshold = envutil.Duration("DB_SLOW_THRESHOLD", cfg.DB.SlowThreshold)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.LockTTL = envutil.Duration("COURSE_LOCK_TTL", cfg.Redis.LockTTL)

	cfg.Tree.MaxDepth = envutil.Int("SECTION_MAX_DEPTH", cfg.Tree.MaxDepth)
	cfg.Tree.ReadingWPM = envutil.Int("READING_WPM", cfg.Tree.ReadingWPM)

	cfg.OTel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.OTel.Enabled)
	cfg.OTel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTel.Endpoint)
	cfg.OTel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.OTel.Headers)
	cfg.OTel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTel.Insecure)
	cfg.OTel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.OTel.SampleRatio)
	cfg.OTel.Environment = envutil.String("OTEL_ENVIRONMENT", cfg.OTel.Environment)
	cfg.OTel.Version = envutil.String("OTEL_SERVICE_VERSION", cfg.OTel.Version)

	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
	if raw := envutil.String("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.DB.Driver == db.DriverPostgres && strings.TrimSpace(c.DB.Host) == "" {
		return errors.New("invalid config: postgres requires POSTGRES_HOST")
	}
	return nil
}

// OtelConfig maps the tracing section onto observability options.
func (c Config) OtelConfig() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.OTel.Enabled,
		ServiceName: c.ServiceName,
		Environment: c.OTel.Environment,
		Version:     c.OTel.Version,
		Endpoint:    c.OTel.Endpoint,
		Headers:     observability.ParseHeaders(c.OTel.Headers),
		Insecure:    c.OTel.Insecure,
		SampleRatio: c.OTel.SampleRatio,
	}
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

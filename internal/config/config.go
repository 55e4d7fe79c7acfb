package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogMode  string

	DBDriver string
	DBDSN    string

	// Redis quiz-definition cache. Empty RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QuizCacheTTL  time.Duration

	EnableLocalAuth bool
	AuthHMACSecret  string
	AdminUser       string
	AdminPassHash   string // bcrypt

	CORSOrigins    []string
	RequestTimeout time.Duration

	OTelEnabled     bool
	OTelExporter    string // stdout|otlp
	OTelEndpoint    string
	OTelSampleRatio float64
}

// Load reads an optional .env file, an optional config/config.yaml and the
// process environment, in increasing order of precedence.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_mode", "development")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("quiz_cache_ttl", "5m")
	v.SetDefault("enable_local_auth", true)
	v.SetDefault("auth_hmac_secret", "supersecret-dev-key")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass_hash", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji")
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_exporter", "stdout")
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_sampler_ratio", 0.1)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read file: %w", err)
		}
	}

	mode := Mode(strings.ToLower(v.GetString("mode")))
	if mode != ModeOnline {
		mode = ModeOffline
	}

	cfg := Config{
		Mode:     mode,
		HTTPAddr: v.GetString("http_addr"),
		LogMode:  v.GetString("log_mode"),

		DBDriver: strings.ToLower(v.GetString("db_driver")),
		DBDSN:    v.GetString("db_dsn"),

		RedisAddr:     strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		QuizCacheTTL:  v.GetDuration("quiz_cache_ttl"),

		EnableLocalAuth: v.GetBool("enable_local_auth"),
		AuthHMACSecret:  v.GetString("auth_hmac_secret"),
		AdminUser:       v.GetString("admin_user"),
		AdminPassHash:   v.GetString("admin_pass_hash"),

		CORSOrigins:    splitCSV(v.GetString("cors_origins")),
		RequestTimeout: v.GetDuration("request_timeout"),

		OTelEnabled:     v.GetBool("otel_enabled"),
		OTelExporter:    strings.ToLower(v.GetString("otel_exporter")),
		OTelEndpoint:    v.GetString("otel_exporter_otlp_endpoint"),
		OTelSampleRatio: v.GetFloat64("otel_sampler_ratio"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (expected sqlite|postgres)", c.DBDriver)
	}
	if c.Mode == ModeOnline && c.AuthHMACSecret == "supersecret-dev-key" {
		return errors.New("config: AUTH_HMAC_SECRET must be set in online mode")
	}
	if c.QuizCacheTTL <= 0 {
		return errors.New("config: QUIZ_CACHE_TTL must be positive")
	}
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

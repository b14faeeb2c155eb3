package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all settings of the storefront service.
// Every key can be set through an environment variable of the same name.
type Config struct {
	AppPort string `mapstructure:"APP_PORT" validate:"required"`
	AppEnv  string `mapstructure:"APP_ENV" validate:"required,oneof=development test production"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER" validate:"required,oneof=sqlite postgres mysql memory"`
	DatabaseDSN    string `mapstructure:"DATABASE_DSN" validate:"required_unless=DatabaseDriver memory"`
	DatabaseDebug  bool   `mapstructure:"DATABASE_DEBUG"`

	JWTSecret    string        `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	JWTTTL       time.Duration `mapstructure:"JWT_TTL" validate:"gt=0"`
	CookieSecure bool          `mapstructure:"COOKIE_SECURE"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB" validate:"gte=0"`
	CategoryCacheTTL time.Duration `mapstructure:"CATEGORY_CACHE_TTL" validate:"gt=0"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY" validate:"required_with=MinioEndpoint"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY" validate:"required_with=MinioEndpoint"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET" validate:"required_with=MinioEndpoint"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=trace debug info warn warning error fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=text json"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

var defaults = map[string]any{
	"APP_PORT":           ":8080",
	"APP_ENV":            "development",
	"DATABASE_DRIVER":    "sqlite",
	"DATABASE_DSN":       "storefront.db",
	"DATABASE_DEBUG":     false,
	"JWT_SECRET":         "",
	"JWT_TTL":            30 * 24 * time.Hour,
	"COOKIE_SECURE":      false,
	"RABBITMQ_URL":       "",
	"REDIS_ADDR":         "",
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"CATEGORY_CACHE_TTL": time.Hour,
	"MINIO_ENDPOINT":     "",
	"MINIO_ACCESS_KEY":   "",
	"MINIO_SECRET_KEY":   "",
	"MINIO_BUCKET":       "products",
	"MINIO_USE_SSL":      false,
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "text",
}

// Load reads the configuration. A .env file in the working directory is
// loaded first when present, then the optional config file, then the
// environment; later sources win.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not load .env file")
	}
	return load(viper.New(), configFile)
}

func load(v *viper.Viper, configFile string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configFile)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "pisakart"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App     AppConfig
	Mongo   MongoConfig
	CORS    CORSConfig
	Gateway GatewayConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PISAKART_APP_ENV" default:"development"`
	Port         string `envconfig:"PISAKART_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"PISAKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PISAKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type MongoConfig struct {
	URI      string `envconfig:"PISAKART_MONGO_URI" default:"mongodb://localhost:27017"`
	Database string `envconfig:"PISAKART_MONGO_DATABASE" default:"PISA"`
	Username string `envconfig:"PISAKART_MONGO_USERNAME"`
	Password string `envconfig:"PISAKART_MONGO_PASSWORD"`

	ConnectTimeout time.Duration `envconfig:"PISAKART_MONGO_CONNECT_TIMEOUT" default:"10s"`
	QueryTimeout   time.Duration `envconfig:"PISAKART_MONGO_QUERY_TIMEOUT" default:"15s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PISAKART_CORS_ALLOWED_ORIGINS" default:"*"`
}

type GatewayConfig struct {
	BaseURL   string        `envconfig:"PISAKART_GATEWAY_BASE_URL" default:"https://www.instamojo.com/api/1.1"`
	APIKey    string        `envconfig:"PISAKART_GATEWAY_API_KEY"`
	AuthToken string        `envconfig:"PISAKART_GATEWAY_AUTH_TOKEN"`
	Timeout   time.Duration `envconfig:"PISAKART_GATEWAY_TIMEOUT" default:"15s"`
}

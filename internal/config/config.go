package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the matching pipeline plus infrastructure
// settings. Values come from the environment; .env is loaded when present.
type Config struct {
	LogMode  string `envconfig:"LOG_MODE" default:"development"`
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PostgresName     string `envconfig:"POSTGRES_NAME" default:"smartblood"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	JWTSecretKey string `envconfig:"JWT_SECRET_KEY" default:"defaultsecret"`

	// Matching pipeline knobs.
	RadiusKmDefault    float64 `envconfig:"RADIUS_KM_DEFAULT" default:"20"`
	RadiusKmMax        float64 `envconfig:"RADIUS_KM_MAX" default:"100"`
	MinEligibilityDays int     `envconfig:"MIN_ELIGIBILITY_DAYS" default:"96"`
	TopKDefault        int     `envconfig:"TOP_K_DEFAULT" default:"10"`
	TopKExpanded       int     `envconfig:"TOP_K_EXPANDED" default:"15"`
	RunMaxRetries      int     `envconfig:"RUN_MAX_RETRIES" default:"3"`
	BatchSize          int     `envconfig:"BATCH_SIZE" default:"50"`

	// Match status derivation windows.
	StatusRunningGraceSeconds      int `envconfig:"STATUS_RUNNING_GRACE_SECONDS" default:"30"`
	StatusNoneFoundDeadlineSeconds int `envconfig:"STATUS_NONE_FOUND_DEADLINE_SECONDS" default:"60"`

	// Maintenance.
	PredictionRetentionDays int    `envconfig:"PREDICTION_RETENTION_DAYS" default:"30"`
	ForecastHorizonDays     int    `envconfig:"FORECAST_HORIZON_DAYS" default:"30"`
	RetentionCronSchedule   string `envconfig:"RETENTION_CRON_SCHEDULE" default:"30 2 * * *"`
	ForecastCronSchedule    string `envconfig:"FORECAST_CRON_SCHEDULE" default:"0 3 * * *"`

	// Model artifacts.
	ArtifactRegistryPath string `envconfig:"ARTIFACT_REGISTRY_PATH" default:"models/registry.json"`
	ArtifactRootDir      string `envconfig:"ARTIFACT_ROOT_DIR" default:"models"`
	RemoteArtifactToken  string `envconfig:"REMOTE_ARTIFACT_TOKEN"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresName)
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

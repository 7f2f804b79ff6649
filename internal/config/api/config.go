package api_config

import (
	"fmt"
	"time"

	"github.com/NordCoder/firmbook/internal/obs"
	"github.com/NordCoder/firmbook/internal/outbox"
	pg "github.com/NordCoder/firmbook/internal/repository/postgres"
	rds "github.com/NordCoder/firmbook/internal/repository/redis"
)

const EnvProduction = "production"

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

func (a App) Production() bool { return a.Env == EnvProduction }

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	HealthInterval  time.Duration `mapstructure:"health_interval"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type Kafka struct {
	Enable            bool     `mapstructure:"enable"`
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
}

type Outbox struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

func (o Outbox) AsRunnerConfig() outbox.RunnerConfig {
	return outbox.RunnerConfig{
		Workers:       o.Workers,
		BatchSize:     o.BatchSize,
		WaitTime:      o.WaitTime,
		InProgressTTL: o.InProgressTTL,
	}
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Auth struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type Config struct {
	App    App        `mapstructure:"app"`
	Server Server     `mapstructure:"server"`
	DB     pg.Config  `mapstructure:"db"`
	Redis  rds.Config `mapstructure:"redis"`
	Kafka  Kafka      `mapstructure:"kafka"`
	Outbox Outbox     `mapstructure:"outbox"`
	OTEL   OTEL       `mapstructure:"otel"`
	Log    Log        `mapstructure:"log"`
	Auth   Auth       `mapstructure:"auth"`
}

func (c *Config) LogConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

func (c *Config) OTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: c.OTEL.ServiceName,
		Version:     c.App.Version,
		SampleRatio: c.OTEL.SampleRatio,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

const (
	minSecretLen  = 32
	minTTL        = time.Minute
	maxAccessTTL  = 7 * 24 * time.Hour
	maxRefreshTTL = 30 * 24 * time.Hour
	minBcryptCost = 8
	maxBcryptCost = 15
)

// Validate rejects settings the service must not start with.
func (c *Config) Validate() error {
	switch {
	case len(c.Auth.JWTSecret) < minSecretLen:
		return ErrConfig(fmt.Sprintf("auth.jwt_secret must be at least %d characters", minSecretLen))
	case c.Auth.AccessTTL < minTTL || c.Auth.AccessTTL > maxAccessTTL:
		return ErrConfig(fmt.Sprintf("auth.access_ttl must be between %s and %s", minTTL, maxAccessTTL))
	case c.Auth.RefreshTTL < minTTL || c.Auth.RefreshTTL > maxRefreshTTL:
		return ErrConfig(fmt.Sprintf("auth.refresh_ttl must be between %s and %s", minTTL, maxRefreshTTL))
	case c.Auth.BcryptCost < minBcryptCost || c.Auth.BcryptCost > maxBcryptCost:
		return ErrConfig(fmt.Sprintf("auth.bcrypt_cost must be between %d and %d", minBcryptCost, maxBcryptCost))
	case c.DB.DSN == "":
		return ErrConfig("db.dsn is required")
	case c.Redis.URL == "":
		return ErrConfig("redis.url is required")
	case c.Kafka.Enable && len(c.Kafka.Brokers) == 0:
		return ErrConfig("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

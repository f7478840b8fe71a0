package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Worker   WorkerConfig   `yaml:"worker"`
	CORS     CORSConfig     `yaml:"cors"`
}

type HTTPConfig struct {
	Address             string `yaml:"address" validate:"required"`
	SwaggerDir          string `yaml:"swagger_dir"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds" validate:"gt=0"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds" validate:"gt=0"`
	GinMode             string `yaml:"gin_mode" validate:"oneof=debug release test"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Driver         string `yaml:"driver" validate:"oneof=postgres memory"`
	Host           string `yaml:"host" validate:"required_if=Driver postgres"`
	Port           int    `yaml:"port" validate:"min=0,max=65535"`
	User           string `yaml:"user" validate:"required_if=Driver postgres"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name" validate:"required_if=Driver postgres"`
	SSLMode        string `yaml:"ssl_mode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	AlertsTopic        string   `yaml:"alerts_topic"`
	GroupID            string   `yaml:"group_id"`
	AlertRetries       int      `yaml:"alert_retries" validate:"min=1"`
}

type BookingConfig struct {
	MaxSeatsPerBooking        int `yaml:"max_seats_per_booking" validate:"min=1,max=100"`
	CancellationWindowMinutes int `yaml:"cancellation_window_minutes" validate:"min=0"`
	SearchCacheTTLSeconds     int `yaml:"search_cache_ttl_seconds" validate:"min=0"`
}

func (b BookingConfig) CancellationWindow() time.Duration {
	return time.Duration(b.CancellationWindowMinutes) * time.Minute
}

func (b BookingConfig) SearchCacheTTL() time.Duration {
	return time.Duration(b.SearchCacheTTLSeconds) * time.Second
}

type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret" validate:"required,min=16"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes" validate:"gt=0"`

	// StaffUsernames are granted staff rights on register and login.
	StaffUsernames []string `yaml:"staff_usernames"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

type WorkerConfig struct {
	AuditIntervalMinutes int `yaml:"audit_interval_minutes" validate:"gt=0"`
}

func (w WorkerConfig) AuditInterval() time.Duration {
	return time.Duration(w.AuditIntervalMinutes) * time.Minute
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the values used for keys absent from the file.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Address:             ":8080",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 15,
			GinMode:             "release",
		},
		Database: DatabaseConfig{
			Driver:  DriverPostgres,
			Port:    5432,
			SSLMode: "disable",
		},
		Booking: BookingConfig{
			MaxSeatsPerBooking:        10,
			CancellationWindowMinutes: 120,
			SearchCacheTTLSeconds:     30,
		},
		Kafka: KafkaConfig{
			AlertRetries: 3,
		},
		Auth: AuthConfig{
			TokenTTLMinutes: 60 * 24,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Worker: WorkerConfig{
			AuditIntervalMinutes: 10,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

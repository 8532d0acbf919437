package config

import (
	"fmt"
	"log"
	"time"

	domain "school-registration/internal/domain/registration"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Fees     FeesConfig     `mapstructure:"fees"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	MaxHeaderBytes int      `mapstructure:"max_header_bytes"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	Path            string `mapstructure:"path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.Username, d.Password, d.Name, d.Port, d.SSLMode)
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Type           string `mapstructure:"type"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	ViewTTL        int    `mapstructure:"view_ttl"`
	IdempotencyTTL int    `mapstructure:"idempotency_ttl"`
}

// Addr returns host:port of the redis server
func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ViewTTLDuration is the lifetime of a cached view in seconds
func (c CacheConfig) ViewTTLDuration() time.Duration {
	return time.Duration(c.ViewTTL) * time.Second
}

func (c CacheConfig) IdempotencyTTLDuration() time.Duration {
	return time.Duration(c.IdempotencyTTL) * time.Second
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	Issuer          string `mapstructure:"issuer"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// FeesConfig holds the per-cycle family fees as decimal strings
type FeesConfig struct {
	RegFee           string `mapstructure:"reg_fee"`
	EarlyRegDiscount string `mapstructure:"early_reg_discount"`
	LateRegFee1      string `mapstructure:"late_reg_fee1"`
	LateRegFee2      string `mapstructure:"late_reg_fee2"`
}

// Schedule parses the configured fees
func (f FeesConfig) Schedule() (domain.FeeSchedule, error) {
	var schedule domain.FeeSchedule
	fields := []struct {
		name  string
		value string
		dest  *decimal.Decimal
	}{
		{"fees.reg_fee", f.RegFee, &schedule.RegFee},
		{"fees.early_reg_discount", f.EarlyRegDiscount, &schedule.EarlyRegDiscount},
		{"fees.late_reg_fee1", f.LateRegFee1, &schedule.LateRegFee1},
		{"fees.late_reg_fee2", f.LateRegFee2, &schedule.LateRegFee2},
	}
	for _, field := range fields {
		if field.value == "" {
			*field.dest = decimal.Zero
			continue
		}
		d, err := decimal.NewFromString(field.value)
		if err != nil {
			return domain.FeeSchedule{}, fmt.Errorf("%s: %w", field.name, err)
		}
		if d.IsNegative() {
			return domain.FeeSchedule{}, fmt.Errorf("%s must not be negative", field.name)
		}
		*field.dest = d
	}
	return schedule, nil
}

var config *Config

// Init initializes the configuration
func Init() {
	config = &Config{}

	// Set default values
	setDefaults()

	// Unmarshal configuration from viper
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}
}

// Get returns the global configuration
func Get() *Config {
	if config == nil {
		Init()
	}
	return config
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "school-registration")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 15)
	viper.SetDefault("server.write_timeout", 15)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "school_registration")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.path", "school.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Cache defaults
	viper.SetDefault("cache.type", "redis")
	viper.SetDefault("cache.host", "localhost")
	viper.SetDefault("cache.port", 6379)
	viper.SetDefault("cache.password", "")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.view_ttl", 300)
	viper.SetDefault("cache.idempotency_ttl", 86400)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file_path", "")

	// Auth defaults
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.issuer", "school-registration")
	viper.SetDefault("auth.token_ttl_minutes", 60)

	// Fee defaults
	viper.SetDefault("fees.reg_fee", "30.00")
	viper.SetDefault("fees.early_reg_discount", "10.00")
	viper.SetDefault("fees.late_reg_fee1", "20.00")
	viper.SetDefault("fees.late_reg_fee2", "40.00")
}

// Package config loads the server configuration from config/{default,<run_mode>}.toml
// overlaid with SWISSKNIFE_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Security   SecurityConfig   `mapstructure:"security"`
	Lightning  LightningConfig  `mapstructure:"lightning"`
	Bitcoin    BitcoinConfig    `mapstructure:"bitcoin"`
	LnAddress  LnAddressConfig  `mapstructure:"ln_address"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig is the HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Domain          string        `mapstructure:"domain"`
}

// DatabaseConfig is the Postgres connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN builds the libpq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode)
}

// RedisConfig is the cache configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns the host:port address for go-redis.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// AuthMode selects how incoming JWTs are verified.
type AuthMode string

const (
	AuthModeLocal   AuthMode = "local"
	AuthModeOAuth2  AuthMode = "oauth2"
	AuthModeBypass  AuthMode = "bypass"
)

// SecurityConfig groups authentication-related settings.
type SecurityConfig struct {
	AuthMode AuthMode       `mapstructure:"auth_mode"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	OAuth2   OAuth2Config   `mapstructure:"oauth2"`
	ApiKey   ApiKeyConfig   `mapstructure:"api_key"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// JWTConfig is used in local-JWT mode.
type JWTConfig struct {
	Secret           string        `mapstructure:"secret"`
	PasswordHash     string        `mapstructure:"password_hash"`
	Issuer           string        `mapstructure:"issuer"`
	Audience         string        `mapstructure:"audience"`
	Expiration       time.Duration `mapstructure:"expiration"`
	DefaultWalletSub string        `mapstructure:"default_wallet_sub"`
}

// OAuth2Config is used when SecurityConfig.AuthMode == oauth2.
type OAuth2Config struct {
	JWKSURL         string        `mapstructure:"jwks_url"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// ApiKeyConfig configures api-key issuance defaults.
type ApiKeyConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
}

// RateLimitConfig throttles inbound HTTP requests.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// LnNodeProvider selects which Lightning node backend is wired up.
type LnNodeProvider string

const (
	LnNodeBreez   LnNodeProvider = "breez"
	LnNodeClnGrpc LnNodeProvider = "cln_grpc"
	LnNodeClnRest LnNodeProvider = "cln_rest"
	LnNodeLnd     LnNodeProvider = "lnd"
)

// LightningConfig selects and configures the LnClient provider.
type LightningConfig struct {
	Provider   LnNodeProvider    `mapstructure:"provider"`
	RetryDelay time.Duration     `mapstructure:"retry_delay"`
	RetryDelayMax time.Duration  `mapstructure:"retry_delay_max"`
	Breez      BreezConfig       `mapstructure:"breez"`
	ClnGrpc    ClnGrpcConfig     `mapstructure:"cln_grpc"`
	ClnRest    ClnRestConfig     `mapstructure:"cln_rest"`
	Lnd        LndConfig         `mapstructure:"lnd"`
}

// BreezConfig configures the embedded Breez SDK provider.
type BreezConfig struct {
	ApiKey     string `mapstructure:"api_key"`
	Seed       string `mapstructure:"seed"`
	WorkingDir string `mapstructure:"working_dir"`
}

// ClnGrpcConfig configures the Core Lightning gRPC provider.
type ClnGrpcConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	CertPath string `mapstructure:"cert_path"`
	KeyPath  string `mapstructure:"key_path"`
	CAPath   string `mapstructure:"ca_path"`
}

// ClnRestConfig configures the Core Lightning REST + websocket provider.
type ClnRestConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Rune     string `mapstructure:"rune"`
}

// LndConfig configures the LND REST provider.
type LndConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	MacaroonHex string `mapstructure:"macaroon_hex"`
	TLSCertPath string `mapstructure:"tls_cert_path"`
}

// BitcoinConfig configures the on-chain wallet adapter.
type BitcoinConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Network string `mapstructure:"network"` // mainnet|testnet|signet|regtest
	RPCURL  string `mapstructure:"rpc_url"`
}

// LnAddressConfig holds defaults for invoices/LNURL issued under this server's domain.
type LnAddressConfig struct {
	Domain              string        `mapstructure:"domain"`
	InvoiceDefaultExpiry time.Duration `mapstructure:"invoice_default_expiry"`
	InvoiceMinExpiry     time.Duration `mapstructure:"invoice_min_expiry"`
	InvoiceMaxExpiry     time.Duration `mapstructure:"invoice_max_expiry"`
	FeeBufferBps         int64         `mapstructure:"fee_buffer_bps"`
	DefaultDescription   string        `mapstructure:"default_description"`
}

// MonitoringConfig configures Prometheus metrics exposure.
type MonitoringConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads config/default.toml, overlays config/<runMode>.toml if present,
// then applies SWISSKNIFE_-prefixed environment variables (double underscore
// nesting, e.g. SWISSKNIFE_DATABASE__HOST).
func Load(runMode string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("default")
	v.SetConfigType("toml")
	v.AddConfigPath("config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read default config: %w", err)
	}

	if runMode != "" {
		overlay := viper.New()
		overlay.SetConfigName(runMode)
		overlay.SetConfigType("toml")
		overlay.AddConfigPath("config")
		if err := overlay.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(overlay.AllSettings()); err != nil {
				return nil, fmt.Errorf("failed to merge %s config: %w", runMode, err)
			}
		}
	}

	v.SetEnvPrefix("SWISSKNIFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("security.auth_mode", "local")
	v.SetDefault("security.jwt.expiration", 24*time.Hour)
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_minute", 600)
	v.SetDefault("security.rate_limit.burst", 100)
	v.SetDefault("security.api_key.default_expiration", 0)

	v.SetDefault("lightning.provider", "breez")
	v.SetDefault("lightning.retry_delay", 5*time.Second)
	v.SetDefault("lightning.retry_delay_max", 5*time.Minute)

	v.SetDefault("bitcoin.enabled", false)
	v.SetDefault("bitcoin.network", "testnet")

	v.SetDefault("ln_address.invoice_default_expiry", 24*time.Hour)
	v.SetDefault("ln_address.invoice_min_expiry", time.Minute)
	v.SetDefault("ln_address.invoice_max_expiry", 7*24*time.Hour)
	v.SetDefault("ln_address.fee_buffer_bps", 100)
	v.SetDefault("ln_address.default_description", "Numeraire payment")

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.path", "/metrics")
}

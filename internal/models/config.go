package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Listener ListenerConfig
	Server   ServerConfig
	Auth     AuthConfig
	Chain    ChainConfig
	Redis    RedisConfig
	Policy   PolicyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	SeedSettings    bool
}

// ListenerConfig holds pool sync listener settings
type ListenerConfig struct {
	PollingInterval time.Duration
	PoolTimeout     time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimitRPS    int
	RateLimitBurst  int
}

// AuthConfig holds identity provider token verification settings
type AuthConfig struct {
	JWTSecret       string
	JWTPublicKeyPEM string
	Issuer          string
}

// ChainConfig holds EVM RPC and operator settings
type ChainConfig struct {
	RPCURL                string
	ContractsFile         string
	OperatorPrivateKey    string
	ReceiptPollInterval   time.Duration
	DepositReceiptTimeout time.Duration
	GasLimit              uint64
}

// RedisConfig holds the optional metrics cache settings
type RedisConfig struct {
	URL             string
	MetricsCacheTTL time.Duration
}

// PolicyConfig holds product decisions that are switchable at deploy time
type PolicyConfig struct {
	KYCPreventDowngrade   bool
	AdminBootstrapEnabled bool
}

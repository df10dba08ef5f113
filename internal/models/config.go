package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Store      StoreConfig
	Ledger     LedgerConfig
	Limits     LimitsConfig
	Events     EventsConfig
	Settlement SettlementConfig
	Server     ServerConfig
	IdHash     string
	AssetsFile string
}

// DatabaseConfig holds SQLite connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// StoreConfig selects the key-value backend holding remittance records
type StoreConfig struct {
	Backend string // sqlite, leveldb, pebble, redis, memory
	Dir     string
	Redis   RedisConfig
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LedgerConfig selects the asset ledger that moves escrowed funds
type LedgerConfig struct {
	Backend       string // sqlite, formance
	EscrowAccount string
	Formance      FormanceConfig
}

// FormanceConfig holds Formance Stack credentials
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// LimitsConfig holds the remittance validation and fee parameters.
// Amounts are fixed point with AmountScale decimals.
type LimitsConfig struct {
	MinAmount      int64
	MaxAmount      int64
	DailyLimit     uint32
	FeeBasisPoints int64
	RefundTimeout  time.Duration
}

// EventsConfig selects where lifecycle notifications go
type EventsConfig struct {
	Backend string // log, kafka, none
	Brokers []string
	Topic   string
}

// SettlementConfig holds settlement reporter settings
type SettlementConfig struct {
	Reporter        string
	ListenerEnabled bool
	Topic           string
	ConsumerGroup   string
	PollingInterval time.Duration
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	JWTSecret         string
	JWTIssuer         string
	RequestsPerMinute float64
	Burst             int
	// BootstrapAdmin is the only caller allowed to POST /v1/initialize. The
	// route is not mounted when it is empty.
	BootstrapAdmin string
	// TrustedProxies lists the IPs or CIDRs whose X-Real-IP and
	// X-Forwarded-For headers are believed.
	TrustedProxies []string
}

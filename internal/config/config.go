/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"remittance-escrow-go/internal/models"
)

const (
	defaultMinAmount = 100_0000000
	defaultMaxAmount = 50000_0000000
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	refundTimeout, err := getEnvDuration("REFUND_TIMEOUT", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	settlementPoll, err := getEnvDuration("SETTLEMENT_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	minAmount, err := getEnvInt64("MIN_AMOUNT", defaultMinAmount)
	if err != nil {
		return nil, err
	}

	maxAmount, err := getEnvInt64("MAX_AMOUNT", defaultMaxAmount)
	if err != nil {
		return nil, err
	}

	feeBps, err := getEnvInt64("FEE_BASIS_POINTS", 50)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "remittance.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Store: models.StoreConfig{
			Backend: strings.ToLower(getEnvString("STORE_BACKEND", "sqlite")),
			Dir:     getEnvString("STORE_DIR", "data"),
			Redis: models.RedisConfig{
				Addr:     getEnvString("REDIS_ADDR", "localhost:6379"),
				Password: getEnvString("REDIS_PASSWORD", ""),
				DB:       getEnvInt("REDIS_DB", 0),
			},
		},
		Ledger: models.LedgerConfig{
			Backend:       strings.ToLower(getEnvString("LEDGER_BACKEND", "sqlite")),
			EscrowAccount: getEnvString("ESCROW_ACCOUNT", "escrow:remittance"),
			Formance: models.FormanceConfig{
				StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
				ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
				ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
				LedgerName:   getEnvString("FORMANCE_LEDGER", "remittance-escrow"),
			},
		},
		Limits: models.LimitsConfig{
			MinAmount:      minAmount,
			MaxAmount:      maxAmount,
			DailyLimit:     uint32(getEnvInt("DAILY_LIMIT", 5)),
			FeeBasisPoints: feeBps,
			RefundTimeout:  refundTimeout,
		},
		Events: models.EventsConfig{
			Backend: strings.ToLower(getEnvString("EVENTS_BACKEND", "log")),
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnvString("EVENTS_TOPIC", "remittance-events"),
		},
		Settlement: models.SettlementConfig{
			Reporter:        getEnvString("SETTLEMENT_REPORTER", ""),
			ListenerEnabled: getEnvBool("SETTLEMENT_LISTENER_ENABLED", false),
			Topic:           getEnvString("SETTLEMENT_TOPIC", "settlement-reports"),
			ConsumerGroup:   getEnvString("SETTLEMENT_GROUP", "remittance-settlement"),
			PollingInterval: settlementPoll,
		},
		Server: models.ServerConfig{
			Addr:              getEnvString("SERVER_ADDR", ":8080"),
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			JWTSecret:         getEnvString("JWT_SECRET", ""),
			JWTIssuer:         getEnvString("JWT_ISSUER", ""),
			RequestsPerMinute: float64(getEnvInt("RATE_LIMIT_RPM", 120)),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 20),
			BootstrapAdmin:    getEnvString("BOOTSTRAP_ADMIN", ""),
			TrustedProxies:    getEnvList("TRUSTED_PROXIES", nil),
		},
		IdHash:     strings.ToLower(getEnvString("ID_HASH", "sha256")),
		AssetsFile: getEnvString("ASSETS_FILE", "assets.yaml"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	limits := cfg.Limits
	if limits.MinAmount <= 0 {
		return fmt.Errorf("MIN_AMOUNT must be positive, got %d", limits.MinAmount)
	}
	if limits.MaxAmount < limits.MinAmount {
		return fmt.Errorf("MAX_AMOUNT (%d) must not be below MIN_AMOUNT (%d)", limits.MaxAmount, limits.MinAmount)
	}
	if limits.DailyLimit == 0 {
		return fmt.Errorf("DAILY_LIMIT must be positive")
	}
	if limits.FeeBasisPoints < 0 || limits.FeeBasisPoints > 10_000 {
		return fmt.Errorf("FEE_BASIS_POINTS out of range: %d", limits.FeeBasisPoints)
	}
	if limits.RefundTimeout < time.Second {
		return fmt.Errorf("REFUND_TIMEOUT must be at least one second, got %v", limits.RefundTimeout)
	}
	if cfg.Ledger.EscrowAccount == "" {
		return fmt.Errorf("ESCROW_ACCOUNT cannot be empty")
	}
	for _, proxy := range cfg.Server.TrustedProxies {
		if _, err := ParseProxy(proxy); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
	}
	return nil
}

// ParseProxy accepts a CIDR or a single address.
func ParseProxy(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid proxy range %q: %w", entry, err)
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid proxy address %q: %w", entry, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 is strict: a malformed amount must not silently fall back to a default.
func getEnvInt64(key string, defaultValue int64) (int64, error) {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

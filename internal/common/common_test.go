package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"remittance-escrow-go/internal/events"
	"remittance-escrow-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func writeAssets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assets.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write assets file: %v", err)
	}
	return path
}

func TestInitializeLoggerInstallsGlobal(t *testing.T) {
	previous := zap.L()
	defer zap.ReplaceGlobals(previous)
	zap.ReplaceGlobals(zap.NewNop())

	logger, cleanup := InitializeLogger()
	defer cleanup()

	if zap.L() != logger {
		t.Fatal("Expected InitializeLogger to replace the global logger")
	}
	// the no-op logger would swallow a startup Fatal
	if !zap.L().Core().Enabled(zap.ErrorLevel) {
		t.Error("Expected the global logger to write error entries")
	}
}

func TestLoadAssetSymbols(t *testing.T) {
	path := writeAssets(t, `
assets:
  - symbol: usdc
    name: USD Coin
  - symbol: EURC
    name: Euro Coin
`)
	symbols, err := LoadAssetSymbols(path)
	if err != nil {
		t.Fatalf("LoadAssetSymbols failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "USDC" || symbols[1] != "EURC" {
		t.Errorf("Unexpected symbols %v", symbols)
	}
}

func TestLoadAssetConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing symbol": "assets:\n  - name: nothing\n",
		"duplicate":      "assets:\n  - symbol: USDC\n  - symbol: usdc\n",
		"not yaml":       "assets: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadAssetConfig(writeAssets(t, body)); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestLoadOptionalAssetSymbols_MissingFile(t *testing.T) {
	symbols, err := LoadOptionalAssetSymbols(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || symbols != nil {
		t.Errorf("Expected nil symbols and no error, got %v (err %v)", symbols, err)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{502_5000000, "502.5 USDC"},
		{1, "0.0000001 USDC"},
		{0, "0 USDC"},
		{-10_000_000, "-1 USDC"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.amount, "USDC"); got != tt.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func testConfig(t *testing.T) *models.Config {
	return &models.Config{
		Database: models.DatabaseConfig{
			Path:         filepath.Join(t.TempDir(), "remittance.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			PingTimeout:  time.Second,
		},
		Store:  models.StoreConfig{Backend: "sqlite", Dir: t.TempDir()},
		Ledger: models.LedgerConfig{Backend: "sqlite", EscrowAccount: "escrow:remittance"},
		Limits: models.LimitsConfig{
			MinAmount:      100_0000000,
			MaxAmount:      50000_0000000,
			DailyLimit:     5,
			FeeBasisPoints: 50,
			RefundTimeout:  24 * time.Hour,
		},
		Events: models.EventsConfig{Backend: "none"},
		IdHash: "sha256",
	}
}

func TestInitializeServices_Backends(t *testing.T) {
	for _, backend := range []string{"sqlite", "leveldb", "pebble", "memory"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Store.Backend = backend
			cfg.IdHash = "blake3"

			services, err := InitializeServices(context.Background(), cfg)
			if err != nil {
				t.Fatalf("InitializeServices failed: %v", err)
			}
			defer services.Close()

			ctx := context.Background()
			if err := services.HealthCheck(ctx); err != nil {
				t.Fatalf("HealthCheck failed: %v", err)
			}
			if err := services.Remittance.Initialize(ctx, "admin"); err != nil {
				t.Fatalf("Initialize failed: %v", err)
			}
			if err := services.Ledger.Credit(ctx, "alice", "USDC", 1000_0000000, "seed"); err != nil {
				t.Fatalf("Credit failed: %v", err)
			}
			id, err := services.Remittance.CreateRemittance(models.WithCaller(ctx, "alice"), "alice", "bob", 500_0000000, "USDC")
			if err != nil {
				t.Fatalf("CreateRemittance failed: %v", err)
			}
			if _, err := services.Remittance.GetRemittance(ctx, id); err != nil {
				t.Fatalf("GetRemittance failed: %v", err)
			}
			escrow, err := services.Ledger.Balance(ctx, "escrow:remittance", "USDC")
			if err != nil || escrow != 500_0000000 {
				t.Errorf("Expected escrow of 500 units, got %d (err %v)", escrow, err)
			}
		})
	}
}

func TestInitializeServices_SharesSQLite(t *testing.T) {
	services, err := InitializeServices(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("InitializeServices failed: %v", err)
	}
	defer services.Close()

	if services.Database == nil {
		t.Fatal("Expected the SQLite service to be exposed")
	}
	if len(services.closers) != 1 {
		t.Errorf("Expected one SQLite handle shared by store and ledger, got %d closers", len(services.closers))
	}
}

func TestInitializeServices_UnknownBackends(t *testing.T) {
	tests := map[string]func(*models.Config){
		"store":   func(c *models.Config) { c.Store.Backend = "cassandra" },
		"ledger":  func(c *models.Config) { c.Ledger.Backend = "paper" },
		"events":  func(c *models.Config) { c.Events.Backend = "carrier-pigeon" },
		"id hash": func(c *models.Config) { c.IdHash = "md5" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			mutate(cfg)
			if _, err := InitializeServices(context.Background(), cfg); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestNewEmitter(t *testing.T) {
	s := &Services{}
	emitter, err := s.newEmitter(models.EventsConfig{Backend: "log"})
	if err != nil {
		t.Fatalf("newEmitter failed: %v", err)
	}
	if _, ok := emitter.(events.LogEmitter); !ok {
		t.Errorf("Expected LogEmitter, got %T", emitter)
	}
}

func TestNewEmitter_Kafka(t *testing.T) {
	// kgo connects lazily, so no broker is needed to build the client
	s := &Services{Registry: prometheus.NewRegistry()}
	defer s.Close()

	emitter, err := s.newEmitter(models.EventsConfig{Backend: "kafka", Brokers: []string{"localhost:9092"}, Topic: "remittance-events"})
	if err != nil {
		t.Fatalf("newEmitter failed: %v", err)
	}
	multi, ok := emitter.(events.MultiEmitter)
	if !ok || len(multi) != 2 {
		t.Fatalf("Expected log and kafka emitters, got %T", emitter)
	}
	if _, ok := multi[1].(*events.KafkaEmitter); !ok {
		t.Errorf("Expected KafkaEmitter, got %T", multi[1])
	}
	if len(s.kafka) != 1 {
		t.Errorf("Expected the client to be tracked for Close, got %d", len(s.kafka))
	}
}

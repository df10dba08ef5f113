package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"remittance-escrow-go/internal/database"
	"remittance-escrow-go/internal/events"
	"remittance-escrow-go/internal/formance"
	"remittance-escrow-go/internal/idgen"
	"remittance-escrow-go/internal/listener"
	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/remittance"
	"remittance-escrow-go/internal/store"
	"remittance-escrow-go/internal/store/leveldb"
	"remittance-escrow-go/internal/store/pebbledb"
	"remittance-escrow-go/internal/store/redisstore"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services holds every long-lived dependency a binary needs
type Services struct {
	Store      store.KV
	Ledger     store.AssetLedger
	Remittance *remittance.Service
	Registry   *prometheus.Registry

	// Database is set whenever SQLite backs the store or the ledger
	Database *database.Service

	kafka   []*kgo.Client
	closers []func() error
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the configured store and ledger and builds the
// remittance service on top of them. On error everything opened so far is
// closed again.
func InitializeServices(ctx context.Context, cfg *models.Config) (_ *Services, err error) {
	s := &Services{Registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if s.Store, err = s.openStore(ctx, cfg); err != nil {
		return nil, err
	}
	if s.Ledger, err = s.openLedger(ctx, cfg); err != nil {
		return nil, err
	}

	hasher, err := idgen.HasherByName(cfg.IdHash)
	if err != nil {
		return nil, err
	}

	emitter, err := s.newEmitter(cfg.Events)
	if err != nil {
		return nil, err
	}

	s.Remittance, err = remittance.NewService(remittance.Config{
		Limits:             cfg.Limits,
		EscrowAccount:      cfg.Ledger.EscrowAccount,
		SettlementReporter: cfg.Settlement.Reporter,
	}, remittance.Dependencies{
		Store:   s.Store,
		Ledger:  s.Ledger,
		IDs:     idgen.NewSequenceGenerator(hasher),
		Emitter: emitter,
		Metrics: remittance.NewMetrics(s.Registry),
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Services initialized",
		zap.String("store", cfg.Store.Backend),
		zap.String("ledger", cfg.Ledger.Backend),
		zap.String("events", cfg.Events.Backend),
		zap.String("id_hash", cfg.IdHash))
	return s, nil
}

// InitializeDatabaseOnly initializes just the SQLite service.
// Useful for read-only reports over the subledger.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}

func (s *Services) sqlite(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	if s.Database != nil {
		return s.Database, nil
	}
	db, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	s.Database = db
	s.closers = append(s.closers, db.Close)
	return db, nil
}

func (s *Services) openStore(ctx context.Context, cfg *models.Config) (store.KV, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return s.sqlite(ctx, cfg)
	case "leveldb":
		kv, err := leveldb.Open(filepath.Join(cfg.Store.Dir, "leveldb"))
		if err != nil {
			return nil, fmt.Errorf("opening leveldb store: %w", err)
		}
		s.closers = append(s.closers, kv.Close)
		return kv, nil
	case "pebble":
		kv, err := pebbledb.NewStore(cfg.Store.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening pebble store: %w", err)
		}
		s.closers = append(s.closers, kv.Close)
		return kv, nil
	case "redis":
		kv, err := redisstore.NewStore(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, kv.Close)
		return kv, nil
	case "memory":
		zap.L().Warn("Using in-memory store, records are lost on exit")
		return store.NewMemDB(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func (s *Services) openLedger(ctx context.Context, cfg *models.Config) (store.AssetLedger, error) {
	switch cfg.Ledger.Backend {
	case "sqlite":
		return s.sqlite(ctx, cfg)
	case "formance":
		ledger, err := formance.NewService(ctx, cfg.Ledger.Formance)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, ledger.Close)
		return ledger, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func (s *Services) newEmitter(cfg models.EventsConfig) (events.Emitter, error) {
	switch cfg.Backend {
	case "none":
		return events.NoopEmitter{}, nil
	case "log":
		return events.LogEmitter{}, nil
	case "kafka":
		kcl, err := s.NewKafkaClient(cfg.Brokers, "remittance_events", kgo.DefaultProduceTopic(cfg.Topic))
		if err != nil {
			return nil, err
		}
		return events.MultiEmitter{events.LogEmitter{}, events.NewKafkaEmitter(kcl, cfg.Topic)}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// NewKafkaClient builds a franz-go client whose metrics land in the service
// registry. The client is closed by Close.
func (s *Services) NewKafkaClient(brokers []string, metricsNamespace string, opts ...kgo.Opt) (*kgo.Client, error) {
	m := kprom.NewMetrics(metricsNamespace,
		kprom.Registerer(s.Registry),
		kprom.Gatherer(s.Registry))
	opts = append([]kgo.Opt{
		kgo.WithHooks(m),
		kgo.SeedBrokers(brokers...),
	}, opts...)

	kcl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}
	s.kafka = append(s.kafka, kcl)
	return kcl, nil
}

// NewSettlementListener builds the Kafka-backed settlement intake. The
// reporter falls back to the admin recorded by Initialize.
func (s *Services) NewSettlementListener(ctx context.Context, cfg *models.Config) (*listener.SettlementListener, error) {
	reporter := cfg.Settlement.Reporter
	if reporter == "" {
		inst, ok, err := s.Remittance.Instance(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("settlement listener needs SETTLEMENT_REPORTER or an initialized instance")
		}
		reporter = inst.Admin
	}

	kcl, err := s.NewKafkaClient(cfg.Events.Brokers, "remittance_settlement",
		kgo.ConsumeTopics(cfg.Settlement.Topic),
		kgo.ConsumerGroup(cfg.Settlement.ConsumerGroup),
		kgo.BlockRebalanceOnPoll(),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}

	metrics := listener.NewMetrics(s.Registry)
	return listener.NewSettlementListener(listener.SettlementListenerConfig{
		Source:          listener.NewKafkaSource(kcl, metrics),
		Completer:       s.Remittance,
		Reporter:        reporter,
		PollingInterval: cfg.Settlement.PollingInterval,
		Metrics:         metrics,
	})
}

// HealthCheck pings the record store
func (s *Services) HealthCheck(ctx context.Context) error {
	_, err := s.Store.Has(ctx, store.InstanceKey())
	return err
}

func (s *Services) Close() {
	for _, kcl := range s.kafka {
		kcl.Close()
	}
	s.kafka = nil

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if err := errors.Join(errs...); err != nil {
		zap.L().Warn("Errors while closing services", zap.Error(err))
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}

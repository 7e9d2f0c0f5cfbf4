package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"captable/internal/allowlist"
	"captable/internal/captable"
	capmetrics "captable/internal/captable/metrics"
	"captable/internal/captable/ports"
	"captable/internal/captable/service"
	"captable/internal/chain"
	jwttoken "captable/internal/jwt_token"
	ledger "captable/internal/ledger/service"
	"captable/internal/ledger/store"
	"captable/internal/outbox"
	"captable/internal/platform/config"
	"captable/internal/platform/httpserver"
	"captable/internal/platform/kafka/admin"
	"captable/internal/platform/kafka/consumer"
	"captable/internal/platform/kafka/producer"
	"captable/internal/platform/logger"
	"captable/internal/platform/metrics"
	"captable/internal/platform/middleware"
	"captable/internal/platform/postgres"
	"captable/internal/platform/redis"
	"captable/internal/projector"
	"captable/internal/snapshotcache"
	txcontext "captable/pkg/platform/tx"
)

// solanaGenesis anchors clock-derived slots when no RPC endpoint is set.
var solanaGenesis = time.Date(2020, 3, 16, 14, 29, 0, 0, time.UTC)

// main wires high-level dependencies and owns the process lifecycle.
// Business logic lives in internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("captable exited", "error", err)
		os.Exit(1)
	}
}

// backend is the storage chosen by Ledger.Backend.
type backend struct {
	db     *sql.DB
	store  ledger.Store
	runner *txcontext.Runner
	outbox outbox.Store
}

func (b backend) Close() {
	if b.db != nil {
		_ = b.db.Close()
	}
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (backend, error) {
	switch cfg.Ledger.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return backend{}, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return backend{}, err
		}
		return backend{
			db:     db,
			store:  store.NewPostgres(db),
			runner: txcontext.NewRunner(db, cfg.Server.RequestTimeout),
			outbox: outbox.NewPostgres(db),
		}, nil
	case config.BackendSQLite:
		db, st, err := store.OpenSQLite(ctx, cfg.Ledger.SQLitePath)
		if err != nil {
			return backend{}, err
		}
		log.Warn("sqlite backend keeps the outbox in memory; unpublished events are lost on restart")
		return backend{db: db, store: st, runner: txcontext.NewRunner(db, cfg.Server.RequestTimeout), outbox: outbox.NewInMemory()}, nil
	default:
		return backend{store: store.NewInMemory(), outbox: outbox.NewInMemory()}, nil
	}
}

func checkpointStore(ctx context.Context, cfg config.Config, log *slog.Logger) (snapshotcache.CheckpointStore, func(), error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("redis not configured, keeping checkpoints in memory")
		return snapshotcache.NewInMemory(), func() {}, nil
	}
	return snapshotcache.NewRedis(client.Client), func() { _ = client.Close() }, nil
}

func slotSource(cfg config.Config, log *slog.Logger) (ports.SlotSource, error) {
	if cfg.Chain.RPCURL == "" {
		log.Info("no solana rpc configured, deriving slots from wall time")
		return chain.NewClockSlots(solanaGenesis, nil), nil
	}
	return chain.NewFromConfig(cfg.Chain, log)
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open ledger backend: %w", err)
	}
	defer be.Close()

	eventLog, err := ledger.New(be.store, ledger.WithLogger(log))
	if err != nil {
		return err
	}
	proj, err := projector.New(eventLog)
	if err != nil {
		return err
	}
	checkpoints, closeCheckpoints, err := checkpointStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer closeCheckpoints()
	cache, err := snapshotcache.New(proj, checkpoints,
		snapshotcache.WithInterval(int64(cfg.Cache.CheckpointInterval)),
		snapshotcache.WithLogger(log),
	)
	if err != nil {
		return err
	}
	slots, err := slotSource(cfg, log)
	if err != nil {
		return fmt.Errorf("build slot source: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(capmetrics.New(prometheus.DefaultRegisterer)),
		service.WithProposalTTL(cfg.MultiSig.ProposalTTL),
		service.WithGovernanceRules(service.GovernanceRules{
			VotingDelay:       cfg.Governance.VotingDelay,
			VotingPeriod:      cfg.Governance.VotingPeriod,
			QuorumPct:         cfg.Governance.QuorumPct,
			ApprovalPct:       cfg.Governance.ApprovalPct,
			ExecutionDelay:    cfg.Governance.ExecutionDelay,
			ExecutionWindow:   cfg.Governance.ExecutionWindow,
			MinProposalShares: cfg.Governance.MinProposalShares,
		}),
	}
	if be.runner != nil {
		opts = append(opts, service.WithTxRunner(be.runner))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		opts = append(opts, service.WithOutbox(be.outbox))
	}
	if cfg.KYC.Enabled {
		kyc := allowlist.NewPostgres(be.db)
		opts = append(opts, service.WithAllowlist(kyc))
		g.Go(func() error {
			if err := kyc.StartCleanup(ctx, cfg.KYC.CleanupInterval); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("kyc allowlist cleanup: %w", err)
			}
			return nil
		})
	}
	svc, err := captable.NewService(eventLog, cache, slots, opts...)
	if err != nil {
		return err
	}

	if len(cfg.Kafka.Brokers) > 0 {
		closeKafka, err := startKafka(ctx, g, cfg, be, svc, log)
		if err != nil {
			return err
		}
		defer closeKafka()
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	router := newRouter(cfg, log, captable.NewHandler(svc, log), jwttoken.NewJWTServiceAdapter(jwtService))
	srv := httpserver.New(cfg.Server, router, log)

	log.Info("starting captable", "ledger_backend", cfg.Ledger.Backend)
	g.Go(func() error { return srv.Run(ctx) })
	return g.Wait()
}

// startKafka bootstraps the topic, then runs the outbox relay and the
// invalidation consumer. Each replica consumes under its own group so every
// replica sees every record.
func startKafka(ctx context.Context, g *errgroup.Group, cfg config.Config, be backend, svc *captable.Service, log *slog.Logger) (func(), error) {
	prod, err := producer.New(cfg.Kafka.Brokers)
	if err != nil {
		return nil, err
	}
	if err := admin.EnsureTopics(ctx, prod.Client(), admin.TopicSpec{
		Name:       cfg.Kafka.Topic,
		Partitions: cfg.Kafka.Partitions,
	}); err != nil {
		prod.Close()
		return nil, fmt.Errorf("ensure kafka topics: %w", err)
	}

	relayOpts := []outbox.RelayOption{
		outbox.WithBatchSize(cfg.Kafka.BatchSize),
		outbox.WithInterval(cfg.Kafka.PollInterval),
		outbox.WithLogger(log),
	}
	if be.runner != nil {
		relayOpts = append(relayOpts, outbox.WithTxRunner(be.runner))
	}
	relay, err := outbox.NewRelay(be.outbox, prod, cfg.Kafka.Topic, relayOpts...)
	if err != nil {
		prod.Close()
		return nil, err
	}

	host, err := os.Hostname()
	if err != nil {
		host = "local"
	}
	router := consumer.NewRouter(log, nil)
	router.Register(cfg.Kafka.Topic, svc.RecordEventHandler())
	cons, err := consumer.New(consumer.Config{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID + "-" + host,
		Topics:  []string{cfg.Kafka.Topic},
	}, router, log)
	if err != nil {
		prod.Close()
		return nil, err
	}

	g.Go(func() error { return relay.Run(ctx) })
	g.Go(func() error { return cons.Run(ctx) })
	return func() {
		cons.Close()
		prod.Close()
	}, nil
}

func newRouter(cfg config.Config, log *slog.Logger, h *captable.Handler, validator middleware.JWTValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(middleware.LatencyMiddleware(metrics.New()))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(validator, log))
		h.Register(r)
	})
	return r
}

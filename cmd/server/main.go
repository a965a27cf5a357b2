package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"custodia/internal/audit"
	auditmemory "custodia/internal/audit/store/memory"
	auditpostgres "custodia/internal/audit/store/postgres"
	autoverifyhandler "custodia/internal/autoverify/handler"
	autoverifyservice "custodia/internal/autoverify/service"
	"custodia/internal/autoverify/store/configs"
	"custodia/internal/autoverify/store/rategate"
	governancehandler "custodia/internal/governance/handler"
	governanceservice "custodia/internal/governance/service"
	"custodia/internal/governance/store/multisigconfig"
	"custodia/internal/governance/store/proposals"
	identityhandler "custodia/internal/identity/handler"
	identityservice "custodia/internal/identity/service"
	"custodia/internal/identity/store/grants"
	"custodia/internal/identity/store/roles"
	jwttoken "custodia/internal/jwt_token"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/kafka"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/redis"
	registryhandler "custodia/internal/registry/handler"
	registrymodels "custodia/internal/registry/models"
	registryservice "custodia/internal/registry/service"
	"custodia/internal/registry/store/documents"
	"custodia/internal/registry/store/proofs"
	httptransport "custodia/internal/transport/http"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/tx"
)

const (
	jwtIssuer   = "custodia"
	jwtAudience = "custodia-api"
)

// documentStore is the full surface shared by the memory and postgres
// document stores; each consumer sees only its own slice of it.
type documentStore interface {
	Create(ctx context.Context, doc *registrymodels.Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*registrymodels.Document, error)
	FindByHash(ctx context.Context, hash string) (*registrymodels.Document, error)
	ListByOwner(ctx context.Context, owner id.Principal) ([]registrymodels.Document, error)
	Owner(ctx context.Context, docID id.DocumentID) (id.Principal, error)
	Execute(ctx context.Context, docID id.DocumentID, validate func(*registrymodels.Document) error, mutate func(*registrymodels.Document) error) (*registrymodels.Document, error)
}

// main wires storage, services, and the HTTP router, then runs the server
// until a shutdown signal arrives. Business logic lives in internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage backends. A configured database switches the document, proof,
	// proposal, and audit stores to postgres; everything else is in-memory.
	var (
		documentsStore documentStore                   = documents.NewInMemory()
		proofsStore    registryservice.ProofStore      = proofs.NewInMemory()
		proposalsStore governanceservice.ProposalStore = proposals.NewInMemory()
		rolesStore     identityservice.RoleStore       = roles.NewInMemory()
		grantsStore    identityservice.GrantStore      = grants.NewInMemory()
		auditStore     audit.Store                     = auditmemory.NewInMemoryStore()
	)
	var txRunner registryservice.TxRunner
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		documentsStore = documents.NewPostgres(db)
		proofsStore = proofs.NewPostgres(db)
		proposalsStore = proposals.NewPostgres(db)
		rolesStore = roles.NewPostgres(db)
		grantsStore = grants.NewPostgres(db)
		txRunner = tx.NewRunner(db)

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("open audit pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		auditStore = auditpostgres.New(pool)
	}

	// A fresh deployment has no admin, and role assignment requires one.
	if cfg.BootstrapAdmin != "" {
		if err := roles.SeedBootstrapAdmin(ctx, rolesStore, id.Principal(cfg.BootstrapAdmin), time.Now().UTC()); err != nil {
			log.Error("seed bootstrap admin", "error", err)
			os.Exit(1)
		}
		log.Info("bootstrap admin seeded", "principal", cfg.BootstrapAdmin)
	}

	var gate autoverifyservice.RateGate = rategate.NewInMemory()
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		gate = rategate.NewRedis(redisClient.Client)
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Error("connect kafka", "error", err)
		os.Exit(1)
	}

	auditOpts := []audit.Option{audit.WithLogger(log)}
	if cfg.AuditBuffer > 0 {
		auditOpts = append(auditOpts, audit.WithAsyncBuffer(cfg.AuditBuffer))
	}
	if producer != nil {
		auditOpts = append(auditOpts, audit.WithSink(audit.NewKafkaSink(producer)))
	}
	publisher := audit.NewPublisher(auditStore, auditOpts...)

	identitySvc := identityservice.New(rolesStore, grantsStore, documentsStore,
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(publisher),
		identityservice.WithMetrics(m),
	)
	autoVerifySvc := autoverifyservice.New(configs.NewInMemory(), gate, documentsStore, proofsStore, identitySvc,
		autoverifyservice.WithLogger(log),
		autoverifyservice.WithAuditPublisher(publisher),
		autoverifyservice.WithMetrics(m),
	)
	registryOpts := []registryservice.Option{
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(publisher),
		registryservice.WithMetrics(m),
		registryservice.WithAutoVerifier(autoVerifySvc),
	}
	if txRunner != nil {
		registryOpts = append(registryOpts, registryservice.WithTxRunner(txRunner))
	}
	registrySvc := registryservice.New(documentsStore, proofsStore, identitySvc, registryOpts...)
	governanceSvc := governanceservice.New(proposalsStore, multisigconfig.NewInMemory(), registrySvc, identitySvc,
		governanceservice.WithLogger(log),
		governanceservice.WithAuditPublisher(publisher),
		governanceservice.WithMetrics(m),
	)

	jwtSvc := jwttoken.NewService(cfg.JWTSigningKey, jwtIssuer, jwtAudience)

	router := httptransport.NewRouter(httptransport.Config{
		Registry:   registryhandler.New(registrySvc, log, m, jwtSvc),
		Identity:   identityhandler.New(identitySvc, log, m, jwtSvc),
		Governance: governancehandler.New(governanceSvc, log, m, jwtSvc),
		AutoVerify: autoverifyhandler.New(autoVerifySvc, log, m, jwtSvc),
		Logger:     log,
		Metrics:    m,
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Drain buffered audit events before the kafka producer goes away.
	publisher.Close()
	if producer != nil {
		producer.Close()
	}
}

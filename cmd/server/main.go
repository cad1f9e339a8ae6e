// server runs the membership engine: the JSON API over gin and the gRPC health service.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/health"

	"slug-portal/backend/internal/audit"
	audithandler "slug-portal/backend/internal/audit/handler"
	auditrepo "slug-portal/backend/internal/audit/repository"
	"slug-portal/backend/internal/config"
	"slug-portal/backend/internal/db"
	healthhandler "slug-portal/backend/internal/health/handler"
	membershiphandler "slug-portal/backend/internal/membership/handler"
	membershiprepo "slug-portal/backend/internal/membership/repository"
	"slug-portal/backend/internal/membership/service"
	"slug-portal/backend/internal/platform/rbac"
	"slug-portal/backend/internal/policy/engine"
	"slug-portal/backend/internal/server"
	"slug-portal/backend/internal/server/interceptors"
	"slug-portal/backend/internal/telemetry"
	telemetryotel "slug-portal/backend/internal/telemetry/otel"
	"slug-portal/backend/internal/telemetry/producer"
	tenantrepo "slug-portal/backend/internal/tenant/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("telemetry: kafka producer: %v", err)
	}
	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		log.Printf("telemetry: writing events to kafka topic %s", cfg.TelemetryKafkaTopic)
	}
	emitter := telemetry.NewFanout(emitters...)

	authz, policyChecker, err := newAuthorizer(ctx, cfg)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	memberships := membershiprepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)
	eng := service.NewEngine(memberships,
		service.WithAuthorizer(authz),
		service.WithTenants(tenantrepo.NewPostgresRepository(conn)),
		service.WithAuditLogger(audit.NewLogger(audits, interceptors.ClientIPFromContext)),
		service.WithEmitter(emitter),
		service.WithAutoPauseAfterDays(cfg.AutoPauseAfterDays),
		service.WithStoreTimeout(cfg.StoreTimeoutDuration()),
	)

	checker := healthhandler.NewChecker(conn, policyChecker)
	router := server.NewRouter(server.RouterDeps{
		Identity: interceptors.IdentityOptions{Header: cfg.IdentityHeader, DevEmailFallback: cfg.DevEmailFallback},
		Emitter:  emitter,
		Healthz:  checker.Healthz,
		Routes: []server.Registrar{
			membershiphandler.NewHandler(eng, membershiphandler.Options{
				ActiveSlugCookie: cfg.ActiveSlugCookie,
				DevEmailFallback: cfg.DevEmailFallback,
			}),
			audithandler.NewHandler(eng, audits, cfg.StoreTimeoutDuration()),
		},
	})
	if cfg.DevEmailFallback {
		log.Println("http: DEV_EMAIL_FALLBACK is on; ?email= is trusted as identity")
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hs := health.NewServer()
	grpcSrv := server.NewGRPCServer(hs)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	go checker.Watch(watchCtx, hs, 10*time.Second)

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down servers...")
	stopWatch()
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	grpcSrv.GracefulStop()

	// Let in-flight async telemetry finish before the exporters close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := kafkaProducer.Close(); err != nil {
		log.Printf("telemetry: kafka close: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("servers stopped")
}

// newAuthorizer returns the admin authorizer selected by AUTHZ_ENGINE and, for OPA, the policy health checker.
func newAuthorizer(ctx context.Context, cfg *config.Config) (rbac.Authorizer, healthhandler.PolicyChecker, error) {
	if cfg.AuthzEngine != config.AuthzEngineOPA {
		return rbac.Ladder{}, nil, nil
	}
	var policy string
	if cfg.AuthzPolicyFile != "" {
		b, err := os.ReadFile(cfg.AuthzPolicyFile)
		if err != nil {
			return nil, nil, err
		}
		policy = string(b)
	}
	a, err := engine.NewOPAAuthorizer(ctx, policy)
	if err != nil {
		return nil, nil, err
	}
	log.Println("policy: admin checks evaluated by OPA")
	return a, a, nil
}

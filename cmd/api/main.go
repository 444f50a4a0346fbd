package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/artifact-triage/internal/analyzers"
	"github.com/bryanwahyu/artifact-triage/internal/application"
	appanalysis "github.com/bryanwahyu/artifact-triage/internal/application/analysis"
	"github.com/bryanwahyu/artifact-triage/internal/config"
	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
	aiclient "github.com/bryanwahyu/artifact-triage/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/artifact-triage/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/artifact-triage/internal/infra/db/postgres"
	"github.com/bryanwahyu/artifact-triage/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/artifact-triage/internal/infra/storage"
	"github.com/bryanwahyu/artifact-triage/internal/infra/tools"
	"github.com/bryanwahyu/artifact-triage/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database (mysql default, postgres opt-in)
	var db *sql.DB
	var repo domain.Repository
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		repo = postgresp.NewSessionRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		repo = mysqlp.NewSessionRepository(db)
	}
	defer db.Close()

	// init minio (report store)
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// optional collaborators
	var inspector domain.MetadataInspector
	if cfg.Tools.Exiftool {
		exif := tools.NewExifInspector()
		exif.Timeout = cfg.ToolTimeout()
		inspector = exif
	}
	var probes []domain.SteganographyProbe
	if cfg.Tools.StegProbes {
		probes = tools.DefaultProbes(cfg.ToolTimeout())
	}
	var insight domain.InsightClient
	if cfg.OpenAI.APIKey != "" {
		insight = aiclient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	// analyzer pipeline, fixed order
	pipeline := []domain.Analyzer{
		analyzers.NewFileAnalyzer(inspector),
		analyzers.NewStegAnalyzer(probes...),
		analyzers.NewCryptoAnalyzer(),
		analyzers.NewSynthesisAnalyzer(repo, insight),
	}

	// init orchestrator
	svc := appanalysis.NewService(repo, pipeline, store, application.SystemClock{})
	if cfg.Database.Driver != "postgres" {
		svc.Errors = mysqlp.NewSessionErrorRepository(db)
	}

	// init router
	mux := chi.NewRouter()
	if len(cfg.Auth.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
		mux.Use(middleware.RequireValidTenant)
	}
	if cfg.RateLimit.Capacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}
	mux.Get("/healthz", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database":     &middleware.DatabaseHealthChecker{DB: db},
		"object_store": middleware.CheckFunc(store.Ping),
	}))
	mux.Mount("/", httpserver.NewRouter(svc))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

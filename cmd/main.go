package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studyloop/studyloop-backend/internal/clients/gcp"
	"github.com/studyloop/studyloop-backend/internal/clients/openai"
	"github.com/studyloop/studyloop-backend/internal/data/db"
	"github.com/studyloop/studyloop-backend/internal/data/repos"
	"github.com/studyloop/studyloop-backend/internal/handlers"
	"github.com/studyloop/studyloop-backend/internal/middleware"
	"github.com/studyloop/studyloop-backend/internal/observability"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/platform/neo4jdb"
	"github.com/studyloop/studyloop-backend/internal/realtime"
	"github.com/studyloop/studyloop-backend/internal/server"
	"github.com/studyloop/studyloop-backend/internal/services"
	"github.com/studyloop/studyloop-backend/internal/services/promptcfg"
	"github.com/studyloop/studyloop-backend/internal/utils"
)

const serviceName = "studyloop-backend"

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			log.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	// Postgres
	log.Info("Connecting to Postgres...")
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	topicRepo := repos.NewTopicRepo(thePG, log)
	documentRepo := repos.NewDocumentRepo(thePG, log)
	knowledgeBaseRepo := repos.NewKnowledgeBaseRepo(thePG, log)
	sourceRepo := repos.NewSourceRepo(thePG, log)
	generationRepo := repos.NewGenerationRepo(thePG, log)
	generationItemRepo := repos.NewGenerationItemRepo(thePG, log)
	questionRepo := repos.NewQuestionRepo(thePG, log)

	// Clients
	log.Info("Setting up clients...")
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	graphDB, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed, attribution mirroring disabled", "error", err)
		graphDB = nil
	}
	if graphDB != nil {
		defer graphDB.Close(context.Background())
	}

	// Progress bus + SSE hub
	var bus realtime.Bus
	bus, err = realtime.NewRedisBus(log)
	if err != nil {
		log.Warn("Redis progress bus unavailable, events disabled", "error", err)
		bus = realtime.NoopBus{}
	}
	defer bus.Close()
	hub := realtime.NewHub(log)
	if err := bus.StartForwarder(ctx, hub.Dispatch); err != nil {
		log.Warn("Progress forwarder failed to start", "error", err)
	}

	// Prompt config
	promptConfig, err := promptcfg.Load()
	if err != nil {
		log.Error("Could not load generation prompt config", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up services...")
	ingestionService := services.NewIngestionService(log, topicRepo, documentRepo, knowledgeBaseRepo, sourceRepo, bucketService, bus, graphDB)
	generationService := services.NewGenerationService(
		log,
		topicRepo,
		sourceRepo,
		knowledgeBaseRepo,
		generationRepo,
		generationItemRepo,
		questionRepo,
		ingestionService,
		openaiClient,
		promptConfig,
		bus,
		graphDB,
	)
	historyService := services.NewHistoryService(log, topicRepo, sourceRepo, generationRepo, generationItemRepo)
	reviewService := services.NewReviewService(log, questionRepo)
	topicService := services.NewTopicService(log, topicRepo, documentRepo, bucketService)

	// Handlers
	log.Info("Setting up handlers...")
	topicHandler := handlers.NewTopicHandler(log, topicService, historyService)
	ingestHandler := handlers.NewIngestHandler(log, ingestionService)
	generationHandler := handlers.NewGenerationHandler(log, generationService)
	reviewHandler := handlers.NewReviewHandler(log, reviewService)
	eventsHandler := handlers.NewEventsHandler(log, hub)
	principalMiddleware := middleware.NewPrincipalMiddleware(log)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ServiceName:         serviceName,
		PrincipalMiddleware: principalMiddleware,
		TopicHandler:        topicHandler,
		IngestHandler:       ingestHandler,
		GenerationHandler:   generationHandler,
		ReviewHandler:       reviewHandler,
		EventsHandler:       eventsHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	grace := utils.GetEnvAsInt("SHUTDOWN_GRACE_SECONDS", 15, log)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(grace)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Graceful shutdown failed", "error", err)
	}
}

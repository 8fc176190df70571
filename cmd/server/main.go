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

	"healthpulse/internal/cache"
	"healthpulse/internal/config"
	"healthpulse/internal/llm"
	"healthpulse/internal/logger"
	"healthpulse/internal/repository"
	"healthpulse/internal/service"
	"healthpulse/internal/transport/rest"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const tokenTTL = 24 * time.Hour

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthpulse",
		Short: "Adaptive health assessment API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(indexesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and report worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client, err := connectMongo(ctx, cfg.MongoURI)
			if err != nil {
				return err
			}
			defer client.Disconnect(context.Background())

			if err := repository.EnsureIndexes(ctx, client.Database(cfg.MongoDB)); err != nil {
				return err
			}
			fmt.Println("indexes ensured")
			return nil
		},
	}
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return client, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := connectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())
	log.Info("connected to MongoDB", "db", cfg.MongoDB)

	db := mongoClient.Database(cfg.MongoDB)
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = repository.EnsureIndexes(indexCtx, db)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping Redis: %w", err)
	}
	log.Info("connected to Redis", "addr", cfg.RedisAddr)

	// Generation gateway
	llmClient, err := llm.NewClient(cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("init LLM client: %w", err)
	}
	defer llmClient.Close()
	log.Info("LLM client ready", "model", llmClient.Model(), "max_attempts", cfg.LLM.MaxAttempts)

	// Initialize repositories
	assessmentRepo := repository.NewAssessmentRepo(db)
	responseRepo := repository.NewResponseRepo(db)
	concernRepo := repository.NewHealthConcernRepo(db)
	patientRepo := repository.NewPatientRepo(db)

	// Initialize caches
	assessmentCache := cache.NewAssessmentCache(rdb, cfg.AssessmentCacheTTL)
	reportQueue := cache.NewReportQueue(rdb, cfg.ReportQueueKey)

	// Initialize services
	authSvc := service.NewAuthService(cfg.SigningSecret(), tokenTTL)
	assessmentSvc := service.NewAssessmentService(
		assessmentRepo, responseRepo, concernRepo, patientRepo,
		assessmentCache, llmClient, llmClient.Counter(), cfg.LLM, log,
	)
	reportSvc := service.NewReportService(reportQueue, responseRepo, assessmentRepo, log)
	responseSvc := service.NewResponseService(assessmentSvc, responseRepo, reportSvc, log)

	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := reportSvc.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("report worker stopped", "error", err)
		}
	}()

	router := rest.NewRouter(&rest.Container{
		Tokens:      authSvc,
		Assessments: assessmentSvc,
		Responses:   responseSvc,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down server", "signal", sig.String())
	case err := <-errCh:
		log.Error("server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	responseSvc.Wait()
	stopWorker()
	<-workerDone

	log.Info("server exited")
	return nil
}

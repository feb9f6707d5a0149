// Pipeline Builder API Server.
// Batch-provisions AWS CI/CD pipelines and their companion Kubernetes
// manifests.
// Schemes: http, https
// BasePath: /api/v1
// Version: 1.0.0
//
// Consumes:
// - application/json
//
// Produces:
// - application/json
//
// swagger:meta
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/equinor/pipeline-builder-api/api/locks"
	"github.com/equinor/pipeline-builder-api/api/metrics"
	"github.com/equinor/pipeline-builder-api/api/pipelines"
	"github.com/equinor/pipeline-builder-api/api/router"
	"github.com/equinor/pipeline-builder-api/api/settings"
	"github.com/equinor/pipeline-builder-api/internal/config"
	lockmanager "github.com/equinor/pipeline-builder-api/internal/locks"
	"github.com/equinor/pipeline-builder-api/internal/manifest"
	"github.com/equinor/pipeline-builder-api/internal/metadata"
	"github.com/equinor/pipeline-builder-api/internal/resources"
	apimodels "github.com/equinor/pipeline-builder-api/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.MustParse()
	initLogger(cfg)

	ctx, stop := signal.NotifyContext(log.Logger.WithContext(context.Background()), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	services, err := initServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	go services.Locks.Run(ctx)
	metrics.RegisterActiveLocks(func() float64 {
		return float64(len(services.Locks.AllStatuses()))
	})

	apiServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: router.NewAPIHandler(splitOrigins(cfg.CORSOrigins), services,
			pipelines.NewPipelineController(),
			locks.NewLockController(),
			settings.NewSettingsController(),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           router.NewMetricsHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", cfg.Port).Msg("Api is serving")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Int("port", cfg.MetricsPort).Msg("Metrics are served")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Unable to serve")
	}
}

func initLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPrettyPrint {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	zerolog.DefaultContextLogger = &log.Logger
}

func initServices(ctx context.Context, cfg config.Config) (apimodels.Services, error) {
	client, err := resources.New(ctx, resources.Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		SessionToken:    cfg.AWSSessionToken,
		CallTimeout:     cfg.AWSCallTimeout,
	})
	if err != nil {
		return apimodels.Services{}, fmt.Errorf("creating resource client: %w", err)
	}

	store := metadata.NewDynamoDBStore(dynamodbClient(ctx, cfg), cfg.MetadataTableName)
	if err := store.EnsureTable(ctx); err != nil {
		return apimodels.Services{}, fmt.Errorf("ensuring metadata table: %w", err)
	}

	return apimodels.Services{
		Config:    cfg,
		Locks:     lockmanager.New(cfg.LockTimeout),
		Store:     store,
		Resources: client,
		Manifests: manifest.NewGenerator(cfg.DeploymentTemplate),
	}, nil
}

func dynamodbClient(ctx context.Context, cfg config.Config) *dynamodb.Client {
	awsCfg, err := resources.LoadAWSConfig(ctx, resources.Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		SessionToken:    cfg.AWSSessionToken,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS configuration")
	}
	return dynamodb.NewFromConfig(awsCfg)
}

func splitOrigins(commaSeparated string) []string {
	parts := strings.Split(commaSeparated, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

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

	"sismanpnr/internal/db"
	"sismanpnr/internal/document"
	"sismanpnr/internal/imaging"
	"sismanpnr/internal/intake"
	"sismanpnr/internal/metrics"
	"sismanpnr/internal/mirror"
	"sismanpnr/internal/server"
	"sismanpnr/internal/storage"
	"sismanpnr/internal/store"
	"sismanpnr/internal/triage"
	"sismanpnr/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig(cCtx.String("env-prefix"))
	if err != nil {
		return err
	}

	if config.CognitoIssuerURL == "" || config.CognitoClientID == "" {
		return fmt.Errorf("set COGNITO_ISSUER_URL and COGNITO_CLIENT_ID")
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	recorder := metrics.New()

	requests := mirror.NewRequests(store.NewRequestRepository(pool), logger, recorder)
	housing := mirror.NewHousing(store.NewPNRRepository(pool), logger, recorder)

	if !requests.Refresh(ctx) {
		logger.Warn("starting with an empty request mirror")
	}
	if !housing.Refresh(ctx) {
		logger.Warn("starting with an empty housing mirror")
	}

	objects, err := newObjectStore(ctx, config)
	if err != nil {
		return err
	}
	images := imaging.NewPipeline(objects, logger, recorder)

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initilaize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(context.Background(), jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwk with cache: %w", err)
	}

	srv, err := server.New(config, logger, server.Dependencies{
		Requests: requests,
		Housing:  housing,
		Triage:   triage.New(requests, images),
		Intake:   intake.New(housing, requests, images, logger),
		Orders:   document.NewRenderer(),
		Metrics:  recorder,
		Cognito:  cognitoClient,
		Verifier: server.NewJWKSVerifier(jwkCache, jwksURL),
	})
	if err != nil {
		return err
	}

	refresher := mirror.NewRefresher(ctx, logger, []mirror.Refreshable{requests, housing})
	defer refresher.Stop()

	listener := store.NewListener(pool, config.NotifyChannel, logger)
	go func() {
		if err := listener.Run(ctx, refresher.Notify); err != nil {
			logger.WithError(err).Error("change listener stopped")
		}
	}()

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

func newObjectStore(ctx context.Context, config *types.Config) (storage.ObjectStore, error) {
	switch config.StorageDriver {
	case "", "supabase":
		return storage.NewSupabaseStorage(config.SupabaseURL, config.SupabaseKey, config.StorageBucketName), nil
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Region:          config.S3Region,
			Bucket:          config.StorageBucketName,
			Endpoint:        config.S3Endpoint,
			AccessKeyID:     config.S3AccessKeyID,
			SecretAccessKey: config.S3SecretAccessKey,
			PublicBase:      config.SupabaseURL + "/storage/v1/object/public",
		})
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", config.StorageDriver)
	}
}

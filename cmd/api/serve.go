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

	"movie-meme-api/internal/config"
	"movie-meme-api/internal/database"
	"movie-meme-api/internal/handlers"
	"movie-meme-api/internal/middleware"
	"movie-meme-api/internal/ownership"
	"movie-meme-api/internal/pipeline"
	"movie-meme-api/internal/storage"
	"movie-meme-api/internal/thumbnail"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(parent context.Context, cc *commandContext) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cc.logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	assets, err := storage.New(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}
	catalog, err := database.Open(cfg.Storage.DatabaseURL)
	if err != nil {
		return err
	}
	defer catalog.Close()

	gen, err := newThumbnailGenerator(cfg, logger.Named("thumbnail"))
	if err != nil {
		return err
	}
	if ok, missing := gen.Available(); !ok {
		logger.Warn("thumbnail tools not found, uploads will be stored without thumbnails",
			zap.Strings("missing", missing))
	}

	p := pipeline.New(assets, gen, catalog, logger.Named("pipeline"), pipeline.Options{
		MaxBytes:      cfg.Upload.MaxBytes,
		MaxBatchFiles: cfg.Upload.MaxBatchFiles,
	})
	owners := ownership.NewIssuer(cfg.Auth.OwnerTokenSecret)
	videos := handlers.NewVideoHandler(catalog, p, owners, logger.Named("api"), handlers.VideoOptions{
		PublicBaseURL:  cfg.Server.PublicBaseURL,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})
	health := handlers.NewHealthHandler(catalog, logger)

	router := newRouter(cfg, logger)
	handlers.RegisterRoutes(router, videos, health, assets.Root())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("upload_dir", assets.Root()),
			zap.Bool("owner_tokens", cfg.OwnerTokensEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("server is shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

func newThumbnailGenerator(cfg config.Config, logger *zap.Logger) (*thumbnail.Generator, error) {
	width, height, err := config.ParseSize(cfg.Thumbnail.Size)
	if err != nil {
		return nil, err
	}
	pos, err := thumbnail.ParsePosition(cfg.Thumbnail.Position)
	if err != nil {
		return nil, fmt.Errorf("thumbnail position: %w", err)
	}
	return thumbnail.NewGenerator(thumbnail.Options{
		FFmpeg:   cfg.Thumbnail.FFmpeg,
		FFprobe:  cfg.Thumbnail.FFprobe,
		Width:    width,
		Height:   height,
		Position: &pos,
		Logger:   logger,
	}), nil
}

func newRouter(cfg config.Config, logger *zap.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.LoggingMiddleware(logger.Named("http")))
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	_ = router.SetTrustedProxies(nil)

	router.MaxMultipartMemory = 32 << 20
	return router
}

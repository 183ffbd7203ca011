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

	"sns-crosspost/domain/repository"
	"sns-crosspost/infrastructure/cache"
	"sns-crosspost/infrastructure/clients/facebook"
	"sns-crosspost/infrastructure/clients/instagram"
	"sns-crosspost/infrastructure/clients/twitter"
	"sns-crosspost/infrastructure/configuration"
	"sns-crosspost/infrastructure/imaging"
	"sns-crosspost/infrastructure/logger"
	"sns-crosspost/infrastructure/persistence"
	httpHandler "sns-crosspost/interfaces/http"
	"sns-crosspost/server"
	"sns-crosspost/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	cfg := configuration.C

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot create upload directory")
		os.Exit(1)
	}

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}
	if err := persistence.EnsurePostSchema(db); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring post schema")
		os.Exit(1)
	}
	logger.GetLogger().Info("Database connected.")

	redisClient, _ := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
		cfg.RedisClient.Username,
		cfg.RedisClient.Password,
	)

	postRepository := persistence.NewPostRepository(db)
	postCache := cache.NewPostCache(redisClient)
	generator := imaging.NewGenerator(cfg.Upload.Dir, cfg.Upload.MemoryBudget)

	publishers := []repository.IPublisher{
		instagram.NewClient(
			cfg.Platforms.Instagram.UserID,
			cfg.Platforms.Instagram.AccessToken,
			instagram.WithPolling(
				time.Duration(cfg.Platforms.Instagram.PollInterval)*time.Second,
				cfg.Platforms.Instagram.PollAttempts,
			),
		),
		twitter.NewClient(twitter.NewSigner(
			cfg.Platforms.Twitter.APIKey,
			cfg.Platforms.Twitter.APISecret,
			cfg.Platforms.Twitter.AccessToken,
			cfg.Platforms.Twitter.AccessTokenSecret,
		)),
		facebook.NewClient(
			cfg.Platforms.Facebook.PageID,
			cfg.Platforms.Facebook.AccessToken,
		),
	}

	postUsecase := usecase.NewPostUsecase(
		postRepository,
		postCache,
		generator,
		publishers,
		cfg.Upload.Dir,
		cfg.Upload.BaseURL,
		cfg.Upload.MaxFileSize,
	)
	postHandler := httpHandler.NewPostHandler(postUsecase)

	router := server.InitiateRouter(postHandler, cfg.Upload.Dir)

	port := cfg.App.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

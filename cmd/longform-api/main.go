package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"example.com/longform/internal/activity"
	"example.com/longform/internal/auth"
	"example.com/longform/internal/catalog"
	"example.com/longform/internal/config"
	"example.com/longform/internal/content"
	"example.com/longform/internal/ingest"
	"example.com/longform/internal/logging"
	"example.com/longform/internal/recommend"
	"example.com/longform/internal/storage"
	"example.com/longform/internal/storage/memory"
	spg "example.com/longform/internal/storage/postgres"
	transport "example.com/longform/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logging.Component("main")
	log.Info().Str("port", cfg.Server.Port).Str("storage", cfg.Storage.Driver).Msg("config loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("repository")
	}
	defer repo.Close()

	client, err := catalog.NewYouTubeClient(ctx, catalog.YouTubeConfig{
		APIKey:          cfg.Catalog.APIKey,
		BaseURL:         cfg.Catalog.BaseURL,
		RegionCode:      cfg.Catalog.RegionCode,
		Timeout:         cfg.Catalog.Timeout(),
		RatePerSec:      cfg.Catalog.RatePerSec,
		PlayerMaxHeight: int64(cfg.Catalog.PlayerMaxHeight),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("catalog client")
	}
	if cfg.Catalog.APIKey == "" {
		log.Warn().Msg("YOUTUBE_API_KEY is empty, catalog calls will be rejected upstream")
	}

	norm := catalog.Normalizer{Classifier: content.Classifier{MaxSeconds: cfg.Catalog.ShortMaxSeconds}}
	gateway := catalog.NewGateway(client, repo, norm, cfg.Catalog.TrendingMaxResults)

	engine := recommend.New(gateway, repo, recommend.Config{
		HistoryWindow: cfg.Recommend.HistoryWindow,
		TopChannels:   cfg.Recommend.TopChannels,
		PerChannel:    cfg.Recommend.PerChannel,
		MinCandidates: cfg.Recommend.MinCandidates,
		Target:        cfg.Recommend.Target,
		Concurrency:   cfg.Recommend.Concurrency,
	})

	now := func() time.Time { return time.Now().UTC() }
	authn, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, repo, now)
	if err != nil {
		log.Fatal().Err(err).Msg("auth (set JWT_SECRET)")
	}

	// The search log outlives the listener so queued queries are flushed last.
	logCtx, stopLog := context.WithCancel(context.Background())
	searchLog := ingest.NewIngestor(repo, cfg.SearchLog.QueueMaxSize, cfg.SearchLog.BatchMaxSize, cfg.SearchLog.BatchMaxWait())
	searchLog.Start(logCtx)
	log.Info().
		Int("queue", cfg.SearchLog.QueueMaxSize).
		Int("batch", cfg.SearchLog.BatchMaxSize).
		Dur("wait", cfg.SearchLog.BatchMaxWait()).
		Msg("search log started")

	deps := &transport.ServerDeps{
		Cfg:         cfg.Server,
		Catalog:     gateway,
		Recommender: engine,
		Tracker:     activity.NewTracker(repo, now),
		Identity:    authn,
		Prefs:       repo,
		Searches:    repo,
		SearchLog:   searchLog,
		Repo:        repo,
		Now:         now,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Catalog.Timeout()*3 + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	stopLog()
	searchLog.Wait()
}

func openRepository(ctx context.Context, cfg config.StorageConfig) (storage.Repository, error) {
	if cfg.Driver != "postgres" {
		return memory.New(), nil
	}
	db, err := spg.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.RunMigration(ctx, cfg.MigrationPath); err != nil {
		db.Close()
		return nil, err
	}
	logging.Info().Str("component", "main").Str("migration", cfg.MigrationPath).Msg("db: migration applied")
	return db, nil
}

// Command tournament-progression runs the progression engine API and its
// maintenance tasks.
//
// Usage:
//
//	tournament-progression serve
//	tournament-progression migrate
//	tournament-progression plan-groups 20 37 64
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-progression/brackets"
	"github.com/Dosada05/tournament-progression/config"
	"github.com/Dosada05/tournament-progression/db"
	"github.com/Dosada05/tournament-progression/groups"
	"github.com/Dosada05/tournament-progression/handlers"
	"github.com/Dosada05/tournament-progression/locks"
	"github.com/Dosada05/tournament-progression/middleware"
	"github.com/Dosada05/tournament-progression/repositories"
	"github.com/Dosada05/tournament-progression/repositories/inmem"
	api "github.com/Dosada05/tournament-progression/routes"
	"github.com/Dosada05/tournament-progression/services"
	"github.com/Dosada05/tournament-progression/storage"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	dbConnectTimeout = 5 * time.Second
	shutdownTimeout  = 15 * time.Second
)

func main() {
	root := &cobra.Command{
		Use:          "tournament-progression",
		Short:        "Group draws, knockout brackets and match lifecycle for tournaments",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(planGroupsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(logger)
			logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("store", cfg.Store))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := openLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	var archiver services.BracketArchiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		archiver = storage.NewBracketArchive(uploader, logger)
		logger.Info("bracket archive enabled", slog.String("bucket", cfg.R2BucketName))
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	defer wsHub.Stop()

	common := services.Common{
		Locker:   locker,
		Notifier: wsHub,
		Rand:     services.DefaultRand,
		Logger:   logger,
	}
	groupService := services.NewGroupService(store, common)
	bracketService := services.NewBracketService(store, archiver, common)
	matchService := services.NewMatchService(store, common)
	ratingService := services.NewRatingService(store, common)
	overviewService := services.NewOverviewService(store, bracketService, groupService, logger)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})
	defer limiter.Stop()

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Groups:    handlers.NewGroupHandler(groupService),
		Brackets:  handlers.NewBracketHandler(bracketService),
		Matches:   handlers.NewMatchHandler(matchService, ratingService),
		Overview:  handlers.NewOverviewHandler(overviewService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowOrigins, logger),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowOrigins,
		Limiter:        limiter,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return err
		}
		logger.Info("server shutdown complete")
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using the in-memory store, data is lost on exit")
		return inmem.NewStore(), func() {}, nil
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx, dbConn); err != nil {
		dbConn.Close()
		return nil, nil, err
	}
	logger.Info("database connection established")

	closeDB := func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
			return
		}
		logger.Info("database connection closed")
	}
	return repositories.NewPostgresStore(dbConn), closeDB, nil
}

// openLocker shares locks through Redis when REDIS_URL is set, otherwise
// locks are local to this process.
func openLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (locks.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return locks.NewLocalLocker(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("redis locks enabled", slog.Duration("ttl", cfg.LockTTL))

	return locks.NewRedisLocker(client, cfg.LockTTL, logger), func() { client.Close() }, nil
}

func migrateCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		PreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			dbConn, err := db.Connect(databaseURL, dbConnectTimeout)
			if err != nil {
				return err
			}
			defer dbConn.Close()

			if err := db.Migrate(cmd.Context(), dbConn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	return cmd
}

func planGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan-groups TOTAL...",
		Short: "Print the group layout for each entry count",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				total, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid entry count %q", arg)
				}
				layout, err := groups.ComputeLayout(total)
				if err != nil {
					fmt.Fprintf(out, "%d\t%v\n", total, err)
					continue
				}
				fmt.Fprintf(out, "%d\t%d groups\t%v\n", total, layout.GroupCount, layout.Sizes)
			}
			return nil
		},
	}
}

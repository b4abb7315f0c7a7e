package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	redisstore "github.com/keyward-io/keyward/cache/redis"
	"github.com/keyward-io/keyward/config"
	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/internal/auth"
	"github.com/keyward-io/keyward/internal/metrics"
	"github.com/keyward-io/keyward/mongodb"
	"github.com/keyward-io/keyward/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg)
	log.Info().
		Str("mongo_db_name", cfg.MongoDBName).
		Str("log_level", cfg.LogLevel).
		Str("metrics_addr", cfg.MetricsAddr).
		Msg("Starting keywardd")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	handle, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := handle.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()

	userRepo, err := mongodb.NewUserRepository(ctx, handle.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize UserRepository")
	}
	roleRepo, err := mongodb.NewRoleRepository(ctx, handle.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize RoleRepository")
	}
	if err := roleRepo.SeedDefaultRoles(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed default roles")
	}

	refreshRepo := buildRefreshStore(ctx, cfg, handle)

	tokenService := services.NewTokenService(
		refreshRepo,
		[]byte(cfg.AccessTokenSecret),
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
	)
	hasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	core := services.NewAuthService(userRepo, refreshRepo, tokenService, hasher, cfg.DefaultRole)
	gate := services.NewGate(tokenService)
	registerAdminEndpoints := adminHandler(core, gate)

	// Startup self-check: a freshly minted token must verify. Catches a
	// bad secret before the process reports healthy.
	probe, err := tokenService.IssueAccessToken(&domain.User{ID: "startup-probe"})
	if err != nil {
		log.Fatal().Err(err).Msg("Token self-check failed to mint")
	}
	if _, err := gate.Authenticate(probe); err != nil {
		log.Fatal().Err(err).Msg("Token self-check failed to verify")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	registerAdminEndpoints(mux)

	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving /metrics and /healthz")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Metrics server failed")
		}
	}()

	// Periodic purge keeps the refresh store tidy even when the backend
	// has no native expiry.
	purgeCtx, purgeCancel := context.WithCancel(context.Background())
	defer purgeCancel()
	go purgeExpiredTokens(purgeCtx, refreshRepo)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Metrics server shutdown failed")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).
			Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

func buildRefreshStore(ctx context.Context, cfg *config.Config, handle *mongodb.Handle) domain.RefreshTokenRepository {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis refresh store")
		return redisstore.NewRefreshStore(client, "keyward")
	}

	repo, err := mongodb.NewRefreshTokenRepository(ctx, handle.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize RefreshTokenRepository")
	}
	log.Info().Msg("Using MongoDB refresh store")
	return repo
}

// adminHandler exposes maintenance actions on the ops listener. These are
// operator tools behind an ADMIN bearer token, not an API surface.
func adminHandler(core *services.AuthService, gate *services.Gate) func(*http.ServeMux) {
	return func(mux *http.ServeMux) {
		mux.HandleFunc("POST /admin/users/deactivate", func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := gate.Require(r.Context(), r.Header.Get("Authorization"), domain.RoleAdmin)
			if err != nil {
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			}
			userID := r.URL.Query().Get("user_id")
			if userID == "" {
				http.Error(w, "user_id is required", http.StatusBadRequest)
				return
			}
			if err := core.Deactivate(r.Context(), userID); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			log.Info().Str("admin", claims.UserID).Str("target", userID).Msg("User deactivated via ops endpoint")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func purgeExpiredTokens(ctx context.Context, repo domain.RefreshTokenRepository) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := repo.DeleteExpired(purgeCtx); err != nil {
				log.Warn().Err(err).Msg("Failed to purge expired refresh tokens")
			}
			cancel()
		}
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/01moynul/bashrometer-golang/internal/auth"
	"github.com/01moynul/bashrometer-golang/internal/config"
	"github.com/01moynul/bashrometer-golang/internal/database"
	"github.com/01moynul/bashrometer-golang/internal/handlers"
	"github.com/01moynul/bashrometer-golang/internal/logger"
	"github.com/01moynul/bashrometer-golang/internal/routes"
	"github.com/01moynul/bashrometer-golang/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 0. --- Load Configuration (.env + environment) ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 1. --- Logger ---
	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// 2. --- Persistence ---
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		zl.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	// 3. --- Application Setup ---
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	app := handlers.New(st, tokens, cfg, zl)

	if err := app.Auth.EnsureBootstrapAdmin(context.Background(),
		cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, cfg.BootstrapAdminName); err != nil {
		zl.Fatal("failed to create bootstrap admin", zap.Error(err))
	}

	// 4. --- Router Setup ---
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(app, cfg, zl)

	// 5. --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zl.Info("starting Bashrometer API server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server stopped", zap.Error(err))
		}
	}()

	// 6. --- Graceful shutdown ---
	// In-flight requests drain before the pool closes.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				zl.Info("graceful shutdown initiated")
				if err := srv.Shutdown(ctx); err != nil {
					return errors.Wrap(err, "shutdown http server")
				}
				return st.Close()
			},
		},
	)

	exitCode := <-wait
	zl.Info("application exited", zap.Int("code", exitCode))
	_ = zl.Sync()
	os.Exit(exitCode)
}

// openStore returns the store selected by STORE_DRIVER. The MySQL store
// applies pending migrations first unless RUN_MIGRATIONS is off.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		zap.L().Warn("using the in-memory store; data is lost on exit")
		return store.NewMemoryStore(), nil
	}

	db, err := database.OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return store.NewMySQLStore(db), nil
}

// Package app wires configuration, storage, caches and services into a
// runnable HTTP application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/antistereov/singularity-core/internal/core/cache"
	"github.com/antistereov/singularity-core/internal/core/geo"
	corehttp "github.com/antistereov/singularity-core/internal/core/http"
	"github.com/antistereov/singularity-core/internal/core/notify"
	"github.com/antistereov/singularity-core/internal/core/service"
	"github.com/antistereov/singularity-core/internal/core/store/drivers/sqlite"
	"github.com/antistereov/singularity-core/pkg/cryptox"
	"github.com/antistereov/singularity-core/pkg/slogx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
)

const version = "0.1.0"

type Application struct {
	cfg    Config
	logger *slog.Logger

	store *sqlite.Store
	redis *redis.Client

	housekeeping *service.HousekeepingService
	rotation     *service.SecretRotationService

	router *corehttp.Router
	server *http.Server
}

// New builds the full dependency graph. Nothing is listening yet; call
// Run to start serving.
func New(cfg Config) (*Application, error) {
	logger := slogx.New(slogx.Config{
		Service: "singularity-core",
		Version: version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	st, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	revocation := cache.NewRevocationCache(rdb)
	if err := revocation.Ping(context.Background()); err != nil {
		_ = st.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("revocation cache unreachable: %w", err)
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		_ = st.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("load pepper: %w", err)
	}
	hasher := cryptox.PasswordHasher{Pepper: pepper}

	masterKey, err := cryptox.LoadMasterKey(cfg.MasterKeyPath)
	if err != nil {
		_ = st.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("load master key: %w", err)
	}
	cipher, err := cryptox.NewSecretCipher(masterKey)
	if err != nil {
		_ = st.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("build secret cipher: %w", err)
	}

	keys := tokenx.NewKeychain()
	codec := &tokenx.Codec{Keys: keys, Issuer: cfg.Issuer, Leeway: 30 * time.Second}

	rotation := &service.SecretRotationService{
		Store:     st,
		Cipher:    cipher,
		Keys:      keys,
		Cache:     revocation,
		RetainFor: cfg.RefreshTTL + cfg.SecretGracePeriod,
	}
	if err := rotation.Bootstrap(context.Background()); err != nil {
		_ = st.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("bootstrap signing secrets: %w", err)
	}

	access := &service.AccessTokenService{Codec: codec, Cache: revocation, Store: st, TTL: cfg.AccessTTL}
	refresh := &service.RefreshTokenService{Codec: codec, Store: st, Geo: geo.NoopResolver{}, TTL: cfg.RefreshTTL}
	session := &service.SessionTokenService{Codec: codec, TTL: cfg.SessionTTL}
	stepup := &service.StepUpService{Codec: codec, Store: st, Hasher: hasher, TTL: cfg.StepUpTTL}
	content := &service.ContentAuthorizationService{Store: st}

	mailer := notify.LogMailer{}

	account := &service.AccountService{
		Store:    st,
		Cache:    revocation,
		Hasher:   hasher,
		Mailer:   mailer,
		Access:   access,
		Refresh:  refresh,
		Codec:    codec,
		EmailTTL: cfg.EmailTTL,
	}

	invitation := &service.InvitationService{
		Codec:   codec,
		Store:   st,
		Mailer:  mailer,
		Content: content,
		TTL:     cfg.InvitationTTL,
	}

	housekeeping := service.NewHousekeepingService(st, rotation, logger,
		cfg.HousekeepingInterval, cfg.SessionIdleAfter)

	router := corehttp.NewRouter(st, logger, version)
	router.CookieName = cfg.CookieName
	router.Carriage = cfg.Carriage
	router.CookieSecure = cfg.CookieSecure
	router.Access = access
	router.Session = session
	router.StepUp = stepup
	router.Account = account
	router.Content = content
	router.Invitation = invitation
	router.Rotation = rotation
	router.ApplyRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{
		cfg:          cfg,
		logger:       logger,
		store:        st,
		redis:        rdb,
		housekeeping: housekeeping,
		rotation:     rotation,
		router:       router,
		server:       server,
	}, nil
}

// Run serves HTTP until the process receives SIGINT/SIGTERM or the
// listener fails, then shuts down gracefully.
func (a *Application) Run() error {
	a.housekeeping.Start()

	if a.cfg.RotationInterval > 0 {
		go a.rotateLoop()
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			slog.String("addr", a.server.Addr),
			slog.String("env", a.cfg.Env))
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		a.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		return a.Shutdown()
	}
}

// Shutdown drains in-flight requests within the configured grace period
// and releases resources.
func (a *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("graceful shutdown failed, closing hard", slog.String("error", err.Error()))
		_ = a.server.Close()
	}

	a.housekeeping.Stop()

	if err := a.redis.Close(); err != nil {
		a.logger.Error("closing revocation cache failed", slog.String("error", err.Error()))
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// rotateLoop mints a fresh signing secret on the configured interval.
// Superseded secrets stay in the keychain until RetainFor lapses, so
// rotation never invalidates live tokens.
func (a *Application) rotateLoop() {
	ticker := time.NewTicker(a.cfg.RotationInterval)
	defer ticker.Stop()

	for range ticker.C {
		if err := a.rotation.Rotate(context.Background(), false); err != nil {
			a.logger.Error("scheduled secret rotation failed", slog.String("error", err.Error()))
		} else {
			a.logger.Info("signing secret rotated")
		}
	}
}

// main wires the authorization engine together: stores (memory, Redis, or
// Postgres depending on configuration), validator chains, the processors, and
// two HTTP listeners (API and metrics). Business logic lives in the internal
// packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"authgate/internal/audit"
	"authgate/internal/backchannel"
	"authgate/internal/clients"
	"authgate/internal/consent"
	"authgate/internal/device"
	"authgate/internal/endsession"
	"authgate/internal/oauth/authorize"
	"authgate/internal/oauth/fetch"
	"authgate/internal/oauth/grant"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/par"
	"authgate/internal/oauth/registry"
	"authgate/internal/oauth/store"
	authorizationcode "authgate/internal/oauth/store/authorization-code"
	backchannelstore "authgate/internal/oauth/store/backchannel"
	devicestore "authgate/internal/oauth/store/device"
	issuedtoken "authgate/internal/oauth/store/issued-token"
	parstore "authgate/internal/oauth/store/par"
	refreshtoken "authgate/internal/oauth/store/refresh-token"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/config"
	"authgate/internal/platform/httpserver"
	"authgate/internal/platform/logger"
	"authgate/internal/platform/metrics"
	platformredis "authgate/internal/platform/redis"
	"authgate/internal/session"
	httptransport "authgate/internal/transport/http"
	"authgate/internal/users"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}

	// Store selection: Redis when configured, memory otherwise. Back-channel,
	// refresh, and issued-token bookkeeping are memory-only for now.
	var (
		grantStore  store.GrantStore
		parStore    store.PARStore
		deviceStore store.DeviceStore
		sessStore   session.Store
	)
	if redisClient != nil {
		grantStore = authorizationcode.NewRedis(redisClient.Client)
		parStore = parstore.NewRedis(redisClient.Client)
		deviceStore = devicestore.NewRedis(redisClient.Client)
		sessStore = session.NewRedis(redisClient.Client)
		log.Info().Msg("using redis-backed stores")
	} else {
		grantStore = authorizationcode.New()
		parStore = parstore.New()
		deviceStore = devicestore.New()
		sessStore = session.NewInMemory()
		log.Info().Msg("using in-memory stores")
	}
	bcStore := backchannelstore.New()
	refreshStore := refreshtoken.New()
	issuedStore := issuedtoken.New()

	var (
		clientStore  clients.Store
		consentStore consent.Store
	)
	if cfg.PostgresURL != "" {
		pool, perr := pgxpool.New(ctx, cfg.PostgresURL)
		if perr != nil {
			log.Fatal().Err(perr).Msg("postgres connection failed")
		}
		defer pool.Close()
		clientStore = clients.NewPostgres(pool)
		consentStore = consent.NewPostgres(pool)
		log.Info().Msg("using postgres-backed client and consent stores")
	} else {
		clientStore = clients.NewInMemory()
		consentStore = consent.NewInMemory()
	}

	var auditor audit.Publisher = audit.NewMemoryPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kafka, kerr := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if kerr != nil {
			log.Fatal().Err(kerr).Msg("kafka connection failed")
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafka.Close(closeCtx)
		}()
		auditor = kafka
	}

	scopeRegistry := registry.NewInMemory()
	scopeRegistry.AddScope(models.ScopeDefinition{Name: "openid"})
	scopeRegistry.AddScope(models.ScopeDefinition{Name: "profile", ClaimTypes: []string{"name", "preferred_username"}})
	scopeRegistry.AddScope(models.ScopeDefinition{Name: "email", ClaimTypes: []string{"email", "email_verified"}})
	scopeRegistry.AddScope(models.ScopeDefinition{Name: "offline_access"})

	clientRegistry := clients.NewRegistry(clientStore)
	signingKey := []byte(cfg.SigningKey)

	sessions := session.NewService(sessStore, cfg.SessionTTL)
	consents := consent.NewProvider(consentStore, cfg.ConsentTTL)
	issuer := token.NewIssuer(signingKey, cfg.IssuerURL, issuedStore)
	introspector := token.NewIntrospector(signingKey, issuedStore)

	fetcher := fetch.NewComposite(
		fetch.NewRequestObjectFetcher(token.NewHMACRequestObjectValidator(signingKey)),
		fetch.NewPARFetcher(parStore),
	)
	authorizeChain := validation.NewAuthorizationChain(clientRegistry, scopeRegistry, scopeRegistry)
	processor := authorize.NewProcessor(
		fetcher, authorizeChain, sessions, consents, grantStore, issuer, auditor, m, log)

	tokenChain := validation.NewTokenChain(clientRegistry, scopeRegistry, scopeRegistry)
	directory := users.NewInMemoryDirectory()
	// AUTHGATE_DEV_USER=username:password:subject seeds one login for local runs.
	if seed := os.Getenv("AUTHGATE_DEV_USER"); seed != "" {
		parts := strings.SplitN(seed, ":", 3)
		if len(parts) != 3 {
			log.Fatal().Msg("AUTHGATE_DEV_USER must be username:password:subject")
		}
		if err := directory.Add(parts[0], parts[1], parts[2]); err != nil {
			log.Fatal().Err(err).Msg("seeding dev user failed")
		}
	}
	dispatcher := grant.NewDispatcher(tokenChain, m, log,
		grant.NewAuthorizationCodeHandler(grantStore, issuer, refreshStore, auditor, m, log),
		grant.NewRefreshTokenHandler(refreshStore, issuedStore, issuer, auditor, m, log),
		grant.NewClientCredentialsHandler(issuer, refreshStore, m, log),
		grant.NewDeviceCodeHandler(deviceStore, issuer, refreshStore, auditor, m, log),
		grant.NewCIBAHandler(bcStore, issuer, refreshStore, auditor, m, log),
		grant.NewPasswordHandler(directory, issuer, refreshStore, m, log),
	)

	devices := device.NewService(
		clientRegistry, deviceStore, device.NewRateLimiter(), auditor, m, log,
		cfg.DeviceVerificationURI, cfg.DeviceCodeTTL, cfg.DevicePollInterval)

	bcChain := validation.NewBackChannelChain(clientRegistry, scopeRegistry, scopeRegistry)
	bcService := backchannel.NewService(
		bcChain, directory, bcStore, auditor, m, log,
		cfg.CIBARequestTTL, cfg.CIBAMaxTTL, cfg.CIBAPollInterval)

	parChain := validation.NewPushedAuthorizationChain(clientRegistry, scopeRegistry, scopeRegistry)
	parService := par.NewService(parChain, parStore, m, log, cfg.PARRequestTTL)

	endSessionChain := validation.NewEndSessionChain(clientRegistry,
		token.NewHMACRequestObjectValidator(signingKey))
	endSession := endsession.NewProcessor(endSessionChain, sessions, auditor, log)

	registration := clients.NewRegistrationService(clientStore)

	router := httptransport.NewRouter(log,
		httptransport.NewAuthorizeHandler(processor, sessions, directory, scopeRegistry, m),
		httptransport.NewTokenHandler(dispatcher, introspector, auditor),
		httptransport.NewDeviceHandler(devices, sessions),
		httptransport.NewBackChannelHandler(bcService, sessions),
		httptransport.NewPARHandler(parService),
		httptransport.NewRegistrationHandler(registration, auditor, m),
		httptransport.NewEndSessionHandler(endSession),
	)

	apiSrv := httpserver.New(cfg.Addr, router)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := httpserver.New(cfg.MetricsAddr, metricsMux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Msg("starting authgate")
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics listener")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("api shutdown failed")
		}
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}

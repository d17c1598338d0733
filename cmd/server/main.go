package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/sayantan-work/easydo-hrms-mcp/internal/api/http"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/api/http/handlers"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/auth"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/backend"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/config"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/events"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/identity"
	mcptransport "github.com/sayantan-work/easydo-hrms-mcp/internal/mcp"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/observability"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/repository"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/scope"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/service"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/session"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Transport)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := session.NewRedisStore(cfg.Redis, logger)
	defer store.Close()

	gateways, closeGateways, err := buildGateways(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init backend gateways", zap.Error(err))
	}
	defer closeGateways()
	backends := backend.NewSelector(gateways)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, metrics, logger)

	tokens := identity.NewTokenManager(cfg.Session.SigningSecret, cfg.Session.SessionTTL())
	provider := identity.NewHTTPProvider(cfg.Identity)
	manager := identity.NewManager(provider, store, tokens, cfg.Identity.SuperAdminPhone, logger)

	memberships := repository.NewMembershipRepository(backends)
	schemas := repository.NewSchemaRepository(backends)
	resolver := scope.NewResolver(memberships, logger)

	authService := service.NewAuthService(manager, resolver, dispatcher, logger)
	queryService := service.NewQueryService(backends, schemas, dispatcher, logger)
	hrService := service.NewHRService(backends, dispatcher, logger)

	mcpServer := mcptransport.NewServer(cfg, authService, queryService, hrService, metrics, logger)

	if cfg.App.Transport == config.TransportStdio {
		logger.Info("serving MCP over stdio",
			zap.String("version", cfg.App.Version),
			zap.String("backend_mode", cfg.Backend.Mode))
		if err := mcpServer.ServeStdio(); err != nil {
			logger.Fatal("stdio server", zap.Error(err))
		}
		return
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, 60*time.Second)

	deps := handlers.Deps{Auth: authService, Query: queryService, HR: hrService}
	pingers := map[string]handlers.Pinger{"redis": store}
	for env, gw := range gateways {
		pingers["backend_"+string(env)] = gw
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pingers, metrics),
		Auth:    handlers.NewAuthHandler(deps),
		Query:   handlers.NewQueryHandler(deps),
		HR:      handlers.NewHRHandler(deps),
		Session: auth.NewSessionMiddleware(authService),
	})

	go func() {
		logger.Info("serving HTTP", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// buildGateways constructs one gateway per environment that has an
// endpoint configured. Environments without config are simply absent; a
// login against one fails at selection time.
func buildGateways(ctx context.Context, cfg *config.Config, logger *zap.Logger) (map[domain.Environment]backend.Gateway, func(), error) {
	gateways := make(map[domain.Environment]backend.Gateway)
	var closers []func()

	endpoints := map[domain.Environment]struct{ webhookURL, dsn string }{
		domain.EnvProd:    {cfg.Backend.WebhookURLProd, cfg.Backend.PostgresDSNProd},
		domain.EnvStaging: {cfg.Backend.WebhookURLStaging, cfg.Backend.PostgresDSNStage},
	}

	for env, ep := range endpoints {
		switch cfg.Backend.Mode {
		case config.BackendWebhook:
			if ep.webhookURL == "" {
				continue
			}
			gateways[env] = backend.NewWebhookGateway(backend.WebhookOptions{
				URL:            ep.webhookURL,
				RequestTimeout: time.Duration(cfg.Backend.RequestTimeoutSec) * time.Second,
				RetryAttempts:  cfg.Backend.RetryAttempts,
				RetryBaseDelay: time.Duration(cfg.Backend.RetryBaseDelayMS) * time.Millisecond,
			}, logger)

		case config.BackendDirect:
			if ep.dsn == "" {
				continue
			}
			gw, err := backend.NewDirectGateway(ctx, ep.dsn, cfg.Backend, logger)
			if err != nil {
				for _, c := range closers {
					c()
				}
				return nil, nil, err
			}
			gateways[env] = gw
			closers = append(closers, gw.Close)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return gateways, closeAll, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

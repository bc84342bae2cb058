package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	pb "github.com/godilite/email-qc/api/v1"
	"github.com/godilite/email-qc/internal/config"
	handler "github.com/godilite/email-qc/internal/grpc"
	"github.com/godilite/email-qc/internal/helpdesk"
	"github.com/godilite/email-qc/internal/metrics"
	"github.com/godilite/email-qc/internal/patterns"
	"github.com/godilite/email-qc/internal/repository"
	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service"
	"github.com/godilite/email-qc/internal/webhook"
	"github.com/godilite/email-qc/pkg/cache"
	dbbuilder "github.com/godilite/email-qc/pkg/database"
	grpcsrv "github.com/godilite/email-qc/pkg/grpc/server"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      *cache.Cache
	engine     *scoring.Engine
	qc         *service.QCService
	grpcServer *grpcsrv.Server
	httpServer *http.Server
	httpLis    net.Listener
}

// OpenStore opens the Result Store and applies the schema.
func OpenStore(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.DBDriver == "sqlite3" && cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
		dbbuilder.WithBusyTimeout(cfg.DBBusyTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return dbPool, nil
}

// NewEngine builds the scoring engine from the scoring config and pattern
// files named in cfg.
func NewEngine(cfg *config.Config, logger *zap.Logger) (*scoring.Engine, error) {
	weights, params, err := config.LoadScoring(cfg.ScoringConfigPath)
	if err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	patternSet, err := patterns.LoadFile(cfg.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("pattern library: %w", err)
	}
	return scoring.NewEngine(
		scoring.WithWeights(weights),
		scoring.WithConfig(params),
		scoring.WithPatterns(patternSet),
		scoring.WithLogger(logger),
	)
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}
	ok := false
	defer func() {
		if !ok {
			if a.grpcServer != nil {
				_ = a.grpcServer.Shutdown(context.Background())
			}
			a.closeResources()
		}
	}()

	dbPool, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbPool = dbPool
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	// A nil Cacher makes the read RPCs go straight to the store.
	var cacher handler.Cacher
	if cfg.CacheEnabled {
		cacheClient, err := cache.New(ctx,
			cache.WithAddress(cfg.RedisAddr),
			cache.WithPrefix("email-qc:"),
		)
		if err != nil {
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		a.cache = cacheClient
		cacher = cacheClient
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("Cache disabled")
	}

	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.engine = engine

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	qcMetrics := metrics.New(registry)

	repo := repository.NewQCResultRepository(dbPool)

	var directory service.AgentDirectory
	if cfg.HelpdeskEnabled() {
		client, err := helpdesk.NewClient(cfg.HelpdeskURL, cfg.HelpdeskAPIToken, helpdesk.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("helpdesk client init failed: %w", err)
		}
		directory = client
	}
	resolver, err := service.NewAgentResolver(repo, directory, 0, logger)
	if err != nil {
		return nil, err
	}

	a.qc = service.NewQCService(engine, repo, logger,
		service.WithAgentResolver(resolver),
		service.WithRecorder(qcMetrics),
	)

	if cfg.ReconcileOnStart {
		report, err := a.qc.Reconcile(ctx)
		if err != nil {
			return nil, fmt.Errorf("startup reconciliation failed: %w", err)
		}
		logger.Info("Result store reconciled",
			zap.Int("orphaned", report.Orphaned),
			zap.Int("restored", report.Restored),
			zap.Int("failed", report.Failed),
			zap.Int64("dangling_removed", report.DanglingRemoved))
	}

	grpcHandlers := handler.NewGRPCHandlers(a.qc, cacher, logger, cfg.CacheTTL)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithRequestIDs(true),
		grpcsrv.WithRecovery(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}
	a.grpcServer = grpcServer

	grpcServer.RegisterServiceWithHealth(pb.ServiceName, func(s *grpc.Server) {
		pb.RegisterQualityControlServer(s, grpcHandlers)
	})

	webhookHandler := webhook.NewHandler(a.qc, qcMetrics, logger)
	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.HTTPAddr, err)
	}
	a.httpLis = lis
	a.httpServer = &http.Server{
		Handler:           webhook.NewRouter(webhookHandler, qcMetrics.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ok = true
	return a, nil
}

// GRPCAddr returns the address the gRPC server listens on.
func (a *App) GRPCAddr() net.Addr { return a.grpcServer.Addr() }

// HTTPAddr returns the address of the webhook and metrics listener.
func (a *App) HTTPAddr() net.Addr { return a.httpLis.Addr() }

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve starts both servers and shuts them down once ctx is done.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info("application starting")

	a.grpcServer.Start()

	httpErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", zap.String("addr", a.httpLis.Addr().String()))
		if err := a.httpServer.Serve(a.httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err, open := <-httpErr:
		if open {
			serveErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	a.logger.Info("application shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", zap.Error(err))
	}
	if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("grpc shutdown error", zap.Error(err))
	}
	a.closeResources()

	if shutdownCtx.Err() == context.DeadlineExceeded {
		a.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return serveErr
}

func (a *App) closeResources() {
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.logger.Error("engine shutdown error", zap.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if a.dbPool != nil {
		if err := a.dbPool.Close(); err != nil {
			a.logger.Error("database shutdown error", zap.Error(err))
		}
	}
}

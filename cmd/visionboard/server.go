package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/visionboard/api"
	"github.com/BaSui01/visionboard/api/handlers"
	"github.com/BaSui01/visionboard/config"
	"github.com/BaSui01/visionboard/internal/metrics"
	"github.com/BaSui01/visionboard/internal/server"
	"github.com/BaSui01/visionboard/internal/telemetry"
)

// =============================================================================
// 🖥️ 服务器
// =============================================================================

// Server API 与 Metrics 双端口服务
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	telemetry *telemetry.Providers
	app       *application

	httpManager    *server.Manager
	metricsManager *server.Manager

	// 限流清理协程随 Shutdown 结束
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewServer 创建服务器。application 由调用方构建并随 Shutdown 关闭。
func NewServer(cfg *config.Config, app *application, collector *metrics.Collector, otel *telemetry.Providers, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		telemetry: otel,
		app:       app,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 非阻塞启动 API 与 Metrics 服务器
func (s *Server) Start() error {
	handler, err := s.buildHandler()
	if err != nil {
		return err
	}

	s.httpManager = server.NewManager("api", handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}

	if s.cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle(api.RouteMetrics, promhttp.Handler())
		s.metricsManager = server.NewManager("metrics", mux, server.Config{
			Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
			ReadTimeout:     s.cfg.Server.ReadTimeout,
			WriteTimeout:    s.cfg.Server.ReadTimeout,
			ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
		}, s.logger)
		if err := s.metricsManager.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}
	return nil
}

// buildHandler 注册路由并套上中间件链
func (s *Server) buildHandler() (http.Handler, error) {
	mux := http.NewServeMux()

	health := handlers.NewHealthHandler(s.logger)
	for _, check := range s.app.checks {
		health.RegisterCheck(check)
	}
	mux.HandleFunc("GET "+api.RouteHealth, health.HandleHealth)
	mux.HandleFunc("GET "+api.RouteHealthz, health.HandleHealthz)
	mux.HandleFunc("GET "+api.RouteReady, health.HandleReady)
	mux.HandleFunc("GET "+api.RouteVersion, health.HandleVersion(handlers.VersionInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}))

	boards, err := handlers.NewBoardHandler(s.app.handlerConfig(s.cfg), s.logger)
	if err != nil {
		return nil, fmt.Errorf("init board handler: %w", err)
	}
	boards.Register(mux)

	return Chain(mux, s.middlewares()...), nil
}

// publicPaths 无需认证的路径
var publicPaths = []string{
	api.RouteHealth, api.RouteHealthz, api.RouteReady, api.RouteVersion, api.RouteMetrics,
}

func (s *Server) middlewares() []Middleware {
	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		chain = append(chain, RateLimiter(s.ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger))
	}
	if len(s.cfg.Server.APIKeys) > 0 {
		chain = append(chain, APIKeyAuth(s.cfg.Server.APIKeys, publicPaths, s.cfg.Server.AllowQueryAPIKey, s.logger))
	} else {
		s.logger.Warn("no API keys configured, API key authentication disabled")
	}
	if s.cfg.JWT.Enabled() {
		chain = append(chain, JWTAuth(s.cfg.JWT, publicPaths, s.logger))
	}
	return chain
}

// WaitForShutdown 阻塞直到收到信号或某个服务器出错，然后优雅关闭
func (s *Server) WaitForShutdown() {
	managers := []*server.Manager{s.httpManager}
	if s.metricsManager != nil {
		managers = append(managers, s.metricsManager)
	}
	server.WaitForShutdown(context.Background(), s.logger, managers...)
	s.Shutdown()
}

// Shutdown 关闭服务器后释放存储连接与遥测，可重复调用
func (s *Server) Shutdown() {
	s.stopOnce.Do(s.shutdown)
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("api server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	s.cancel()

	if err := s.app.Close(); err != nil {
		s.logger.Error("failed to release resources", zap.Error(err))
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	}
	s.logger.Info("server stopped")
}

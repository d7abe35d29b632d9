// Package server exposes the investigation pipeline over HTTP: the
// synchronous /v1/investigate operation, the specialist listing, health
// and readiness probes, Prometheus metrics, and a WebSocket stream of
// investigation progress events.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kernowlab/triage/internal/authority"
	"github.com/kernowlab/triage/internal/config"
	"github.com/kernowlab/triage/internal/dispatch"
	"github.com/kernowlab/triage/internal/llm"
	"github.com/kernowlab/triage/internal/llm/openaicompat"
	"github.com/kernowlab/triage/internal/logging"
	"github.com/kernowlab/triage/internal/middleware"
	"github.com/kernowlab/triage/internal/models"
	"github.com/kernowlab/triage/internal/orchestrator"
	"github.com/kernowlab/triage/internal/specialist"
	"github.com/kernowlab/triage/internal/synthesis"
	"github.com/kernowlab/triage/internal/tools"
)

// Investigator runs one investigation end to end. Satisfied by
// *orchestrator.Orchestrator; narrowed to an interface so handler tests
// can inject a fake.
type Investigator interface {
	Investigate(ctx context.Context, req models.InvestigationRequest) models.InvestigationResponse
}

// Server represents the triage server.
type Server struct {
	config *Config
	policy *config.Config
	logger *zap.Logger

	// Core components
	investigator Investigator
	authority    *authority.Table
	hub          *hub

	// sem bounds concurrent investigations; acquire failures become 503.
	sem *semaphore.Weighted

	rateLimiter *middleware.RateLimiter

	// HTTP server
	httpServer *http.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	mu      sync.RWMutex
	running bool
}

// NewServer creates a new triage server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
	}

	if err := srv.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return srv, nil
}

// initializeComponents builds the pipeline bottom-up: logger, policy,
// backends, tool bridge, specialists, dispatcher, synthesizer,
// orchestrator. Everything built here is immutable afterwards.
func (s *Server) initializeComponents() error {
	// 1. Logger
	logCfg := logging.DefaultConfig()
	logCfg.Level = s.config.LogLevel
	logCfg.FilePath = s.config.LogFile
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	s.logger = logger

	// 2. Policy file (deadline, thresholds, authority weights)
	policyMgr := config.NewManager(s.config.PolicyPath, logger)
	if err := policyMgr.Load(); err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	policyMgr.Watch()
	s.policy = policyMgr.Get()

	table, err := authority.NewTable(s.policy.Authority.Rules)
	if err != nil {
		return fmt.Errorf("invalid authority rules: %w", err)
	}
	s.authority = table

	// 3. Reasoning backends. Either may be absent; the synthesizer
	// degrades through the remaining tiers.
	var primary, secondary llm.Client
	if cc, ok := s.config.PrimaryClientConfig(); ok {
		client, err := openaicompat.New(cc)
		if err != nil {
			return fmt.Errorf("failed to initialize primary backend: %w", err)
		}
		primary = client
	}
	if cc, ok := s.config.SecondaryClientConfig(); ok {
		client, err := openaicompat.New(cc)
		if err != nil {
			return fmt.Errorf("failed to initialize secondary backend: %w", err)
		}
		secondary = client
	}

	// 4. Tool bridge and specialists. Specialists reason on the local
	// secondary backend when one is configured, keeping the primary's
	// budget for synthesis.
	bridge := tools.NewBridge(s.config.BridgeConfig(), logger)
	specialistClient := secondary
	if specialistClient == nil {
		specialistClient = primary
	}
	specialists, err := specialist.NewAll(specialistClient, bridge, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize specialists: %w", err)
	}

	// 5. Dispatcher and synthesizer
	dispatcher := dispatch.New(specialists, s.policy.Dispatch.Deadline, logger)

	synthesizer, err := synthesis.New(primary, secondary, synthesis.Config{
		ActionableThreshold:    s.policy.Synthesis.ActionableThreshold,
		BenignThreshold:        s.policy.Synthesis.BenignThreshold,
		RetryBackoff:           s.policy.Synthesis.RetryBackoff,
		SecondaryConfidenceCap: s.policy.Synthesis.SecondaryConfidenceCap,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize synthesizer: %w", err)
	}

	// 6. Progress broadcast hub and orchestrator
	s.hub = newHub(s.config.AllowedOrigins, logger)
	s.investigator = orchestrator.New(dispatcher, synthesizer, table, s.hub, logger)

	if s.config.RateLimitPerMin > 0 {
		s.rateLimiter = middleware.NewRateLimiter(s.config.RateLimitPerMin)
	}

	return nil
}

// Start starts the server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	s.registerHandlers(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("HTTP server listening",
			zap.String("host", s.config.Host),
			zap.Int("port", s.config.HTTPPort))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("triage server started",
		zap.Bool("primary_backend", s.config.PrimaryBaseURL != ""),
		zap.Bool("secondary_backend", s.config.SecondaryBaseURL != ""),
		zap.Int("bridge_services", len(s.config.BridgeEndpoints)),
		zap.Int64("max_concurrent", s.config.MaxConcurrent))

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("stopping triage server")

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("error shutting down HTTP server", zap.Error(err))
		}
	}

	s.cancel()
	s.hub.close()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.wg.Wait()

	s.logger.Info("triage server stopped")
	_ = s.logger.Sync()
	return nil
}

// Wait blocks until the server is stopped.
func (s *Server) Wait() {
	<-s.ctx.Done()
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// registerHandlers registers HTTP handlers.
func (s *Server) registerHandlers(mux *http.ServeMux) {
	limit := func(h http.HandlerFunc) http.HandlerFunc {
		if s.rateLimiter == nil {
			return h
		}
		return s.rateLimiter.Middleware(h)
	}

	// Probes
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Investigation API
	mux.HandleFunc("/v1/investigate", limit(s.handleInvestigate))
	mux.HandleFunc("/v1/agents", s.handleAgents)

	// Progress streaming
	mux.HandleFunc("/ws/investigations", s.handleWebSocket)
}

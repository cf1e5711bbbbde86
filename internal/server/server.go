// Package server exposes the survey flow over HTTP. Each respondent holds a
// session id; the server keeps one flow controller per live session and
// serializes actions on it.
package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drivesound/drivesound/internal/config"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/log"
	"github.com/drivesound/drivesound/internal/session"
	"github.com/drivesound/drivesound/internal/store"
)

// Options wires a Server.
type Options struct {
	Config  *config.Config
	Gateway store.Gateway
	Logger  log.Sink
	// Assets checks stimulus media; nil treats every stimulus as playable.
	Assets flow.AssetChecker
	// Randomizer defaults to the system source.
	Randomizer flow.Randomizer
}

// Server is the survey HTTP server.
type Server struct {
	cfg      *config.Config
	topo     *flow.Topology
	gw       store.Gateway
	logger   log.Sink
	assets   flow.AssetChecker
	rng      flow.Randomizer
	groups   [2]session.Group
	sessions *registry
	metrics  *metrics
	reg      *prometheus.Registry
	engine   *gin.Engine

	listener net.Listener
	server   *http.Server
	stopCh   chan struct{}
}

// New builds a server and its routes. It does not listen until Listen.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("server: storage gateway is required")
	}
	cfg := opts.Config
	topo, err := flow.NewTopology(cfg.StimulusIDs(), cfg.Survey.SamplesPerEvaluation, cfg.Survey.InterviewOrder)
	if err != nil {
		return nil, fmt.Errorf("server: building topology: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		topo:     topo,
		gw:       opts.Gateway,
		logger:   opts.Logger,
		assets:   opts.Assets,
		rng:      opts.Randomizer,
		groups:   [2]session.Group{session.Group(cfg.Survey.Groups[0]), session.Group(cfg.Survey.Groups[1])},
		sessions: newRegistry(),
		reg:      prometheus.NewRegistry(),
		stopCh:   make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = log.Discard
	}
	if s.rng == nil {
		s.rng = flow.SystemRandomizer()
	}
	s.metrics = newMetrics(s.reg)

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.metrics.middleware())
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/v1")
	v1.POST("/sessions", s.handleCreate)
	v1.GET("/sessions/:id", s.handleGet)
	v1.POST("/sessions/:id/forward", s.handleForward)
	v1.POST("/sessions/:id/back", s.handleBack)
	v1.POST("/sessions/:id/jump", s.handleJump)
	v1.GET("/stats", s.handleStats)

	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen binds addr. Use "127.0.0.1:0" for a random port.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: binding listener: %w", err)
	}
	s.listener = ln
	s.server = &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	return nil
}

// Addr returns the address the server is listening on (e.g. "127.0.0.1:8501").
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start begins serving HTTP requests. Call in a goroutine after Listen.
func (s *Server) Start() error {
	if s.server == nil {
		return errors.New("server: Start called before Listen")
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts down the listener and the reaper.
func (s *Server) Stop() error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

// StartReaper starts a goroutine that periodically drops sessions with no
// activity for longer than maxIdle. Stopped by Stop.
func (s *Server) StartReaper(interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.reap(maxIdle)
			}
		}
	}()
}

func (s *Server) reap(maxIdle time.Duration) {
	if n := s.sessions.reap(maxIdle); n > 0 {
		s.metrics.SessionsReaped.Add(float64(n))
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.len()))
}

// Package bridge runs the local HTTP endpoint the board exposes: a health
// check, an on-demand tier resolver and an inbound event feed the backend
// uses to push readiness changes between polls.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/tier"
	"github.com/kingrea/workbench/internal/upstream"
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// ErrServerDisabled is returned by Start when the bridge is switched off.
var ErrServerDisabled = errors.New("bridge: server disabled")

// TableSource resolves tier tables by name. *config.Config satisfies it.
type TableSource interface {
	Table(name string) (config.TierTable, bool)
	DefaultTable() string
}

// Server wraps the HTTP listener and handlers backing the bridge.
type Server struct {
	settings  Settings
	processor EventProcessor
	tables    TableSource
	logger    Logger
	clock     func() time.Time

	mu          sync.RWMutex
	server      *http.Server
	listener    net.Listener
	status      ServerStatus
	startTime   time.Time
	routerReady bool
}

// Option customizes server construction.
type Option func(*Server)

// WithProcessor overrides the default no-op event processor.
func WithProcessor(p EventProcessor) Option {
	return func(s *Server) {
		if p != nil {
			s.processor = p
		}
	}
}

// WithTables enables named tables on /v1/resolve. Without it only inline
// thresholds and the built-in presets are accepted.
func WithTables(t TableSource) Option {
	return func(s *Server) {
		if t != nil {
			s.tables = t
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer prepares a bridge server using the provided settings.
func NewServer(settings Settings, opts ...Option) *Server {
	s := &Server{
		settings:  settings,
		processor: EventProcessorFunc(func(Event) error { return nil }),
		tables:    presetTables{},
		logger:    nopLogger{},
		clock:     func() time.Time { return time.Now().UTC() },
		status:    StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the bridge routes, for mounting or testing without a
// listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/v1/resolve", s.handleResolve)
	return mux
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("bridge: server is nil")
	}
	if !s.settings.Enabled {
		return ErrServerDisabled
	}
	if err := s.settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("bridge: server already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.routerReady = true
	s.startTime = s.clock()
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("bridge: serve error: %v", err)
		}
	}()
	s.logger.Printf("bridge: listening on %s", listener.Addr().String())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL (scheme + host:port) for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) now() time.Time {
	return s.clock().UTC()
}

func (s *Server) uptimeSeconds() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime.IsZero() {
		return 0
	}
	return int64(s.now().Sub(s.startTime).Seconds())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", fmt.Sprintf("%s, %s", http.MethodGet, http.MethodHead))
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.RLock()
	ready := s.routerReady
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        string(s.Status()),
		Version:       ProtocolVersion,
		RouterReady:   ready,
		UptimeSeconds: s.uptimeSeconds(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	evt.Normalize()
	if err := evt.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	evt.StampServerTime(s.now())
	if err := s.processor.HandleEvent(evt); err != nil {
		s.logger.Printf("bridge: processor error: %v", err)
		writeError(w, http.StatusInternalServerError, "event processing failed")
		return
	}
	writeJSON(w, http.StatusAccepted, eventResponse{Status: "accepted", ServerTime: evt.ServerTime})
}

// resolveRequest is the body of POST /v1/resolve. Thresholds, when given,
// replace the named table.
type resolveRequest struct {
	Table      string              `json:"table"`
	Thresholds []tier.Threshold    `json:"thresholds"`
	Score      upstream.Number     `json:"score"`
	Scale      string              `json:"scale"`
	Components upstream.Dimensions `json:"components"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	scale, err := tier.ParseScale(req.Scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	thresholds, err := s.thresholdsFor(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	input := tier.ScoreInput{
		RawScore:   req.Score.Ptr(),
		Scale:      scale,
		Components: req.Components.Components(),
	}
	writeJSON(w, http.StatusOK, tier.Resolve(input, thresholds))
}

func (s *Server) thresholdsFor(req resolveRequest) (tier.Thresholds, error) {
	if req.Thresholds != nil {
		return tier.NewThresholds(req.Thresholds...)
	}
	name := req.Table
	if name == "" {
		name = s.tables.DefaultTable()
	}
	table, ok := s.tables.Table(name)
	if !ok {
		return tier.Thresholds{}, fmt.Errorf("unknown tier table %q", name)
	}
	return table.Thresholds, nil
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "empty body")
		return nil, false
	}
	reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload exceeds limit")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "unable to read body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// presetTables serves the built-in tables when no config is wired.
type presetTables struct{}

func (presetTables) Table(name string) (config.TierTable, bool) {
	thresholds, ok := tier.Presets()[name]
	if !ok {
		return config.TierTable{}, false
	}
	return config.TierTable{Name: name, Source: name, Thresholds: thresholds}, true
}

func (presetTables) DefaultTable() string {
	return upstream.SourceReadiness
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/talent-sourcer/internal/collection"
	"github.com/jonathan/talent-sourcer/internal/config"
	"github.com/jonathan/talent-sourcer/internal/db"
	"github.com/jonathan/talent-sourcer/internal/discovery"
	"github.com/jonathan/talent-sourcer/internal/fetch"
	"github.com/jonathan/talent-sourcer/internal/llm"
	"github.com/jonathan/talent-sourcer/internal/pipeline"
	"github.com/jonathan/talent-sourcer/internal/server/middleware"
	"github.com/jonathan/talent-sourcer/internal/websearch"
)

// SessionStore is the persistence surface the server needs. *db.DB
// satisfies it.
type SessionStore interface {
	collection.Store
	CreateSession(ctx context.Context) (uuid.UUID, error)
	DeactivateSession(ctx context.Context, id uuid.UUID) error
}

// Options holds server configuration.
type Options struct {
	Addr         string
	ArtifactsDir string
	// JWT enables bearer-token authentication on the session routes when
	// non-nil.
	JWT *config.JWTConfig
}

// Server represents the HTTP server. The four pipeline stages are exposed
// as separate endpoints invoked sequentially by the frontend.
type Server struct {
	httpServer *http.Server
	opts       Options

	store    SessionStore
	db       *db.DB // optional; enables evidence rows and discovery caching
	vendor   pipeline.VendorGateway
	llm      llm.Client
	searcher websearch.Searcher
	fetcher  discovery.PageFetcher

	validator  *validator.Validate
	jwtService *JWTService

	// sessionLocks serializes stage calls per session. The cursor is
	// read-then-written, so concurrent collect calls against one session
	// must not interleave.
	sessionLocks sync.Map // uuid.UUID -> *sync.Mutex
}

// New creates a new server instance. database may be nil only in tests that
// inject a SessionStore directly via NewWithStore.
func New(opts Options, database *db.DB, vendor pipeline.VendorGateway, llmClient llm.Client, searcher websearch.Searcher) (*Server, error) {
	if database == nil {
		return nil, fmt.Errorf("server requires a database")
	}
	return NewWithStore(opts, database, database, vendor, llmClient, searcher)
}

// NewWithStore creates a server over an explicit session store.
func NewWithStore(opts Options, store SessionStore, database *db.DB, vendor pipeline.VendorGateway, llmClient llm.Client, searcher websearch.Searcher) (*Server, error) {
	s := &Server{
		opts:      opts,
		store:     store,
		db:        database,
		vendor:    vendor,
		llm:       llmClient,
		searcher:  searcher,
		validator: validator.New(),
	}

	// Website enrichment needs the page cache, so it rides with the DB.
	if database != nil {
		s.fetcher = fetch.NewCachedFetcher(database, nil)
	}

	if opts.JWT != nil {
		s.jwtService = NewJWTService(opts.JWT)
	}

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for discovery runs
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler builds the routing table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	sessions := http.NewServeMux()
	sessions.HandleFunc("POST /sessions", s.handleCreateSession)
	sessions.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	sessions.HandleFunc("GET /sessions/{id}/evidence", s.handleListEvidence)
	sessions.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)

	// Pipeline stage endpoints, one per stage.
	sessions.HandleFunc("POST /sessions/{id}/discover", s.handleDiscover)
	sessions.HandleFunc("POST /sessions/{id}/preview", s.handlePreview)
	sessions.HandleFunc("POST /sessions/{id}/collect", s.handleCollect)
	sessions.HandleFunc("POST /sessions/{id}/evaluate", s.handleEvaluate)

	var sessionHandler http.Handler = sessions
	if s.jwtService != nil {
		sessionHandler = middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(sessions)
	}
	mux.Handle("/sessions", sessionHandler)
	mux.Handle("/sessions/", sessionHandler)

	return s.withLogging(s.withCORS(mux))
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.db != nil {
		s.db.Close()
	}
	log.Println("Server stopped")
	return nil
}

// sessionLock returns the mutex serializing stage calls for one session.
func (s *Server) sessionLock(id uuid.UUID) *sync.Mutex {
	lock, _ := s.sessionLocks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response with the status derived from
// the error type.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	s.jsonResponse(w, HTTPStatus(err), map[string]string{"error": err.Error()})
}

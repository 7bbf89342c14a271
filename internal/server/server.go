// Package server provides the HTTP interface of the resume builder: the form and
// preview pages, the JSON form API and the resume exports.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/form"
	"github.com/jonathan/resume-builder/internal/photo"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/server/middleware"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/jonathan/resume-builder/internal/session"
	"github.com/jonathan/resume-builder/internal/validation"
)

// sessionSweepInterval is how often idle sessions are looked for.
const sessionSweepInterval = time.Minute

// Server represents the HTTP server
type Server struct {
	httpServer    *http.Server
	sessions      *session.Store
	photos        *photo.Store
	rateLimiter   *ratelimit.Limiter
	pdf           *rendering.PDFRenderer
	latexTemplate string
	verbose       bool
	closeOnce     sync.Once
}

// New creates a new server instance
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		defaults := config.Defaults()
		cfg = &defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	merged := cfg.MergeWithDefaults(config.Defaults())
	cfg = &merged

	s := &Server{
		photos:        photo.NewStore(cfg.MaxPhotoBytes),
		pdf:           rendering.NewPDFRenderer(cfg.ChromePath, cfg.PDFTimeoutDuration()),
		latexTemplate: cfg.LaTeXTemplate,
		verbose:       cfg.Verbose,
	}
	s.pdf.Verbose = cfg.Verbose

	// One validator serves every form
	validator := validation.New()
	s.sessions = session.NewStore(session.StoreConfig{
		TTL:             cfg.SessionTTLDuration(),
		CleanupInterval: sessionSweepInterval,
	}, func() *session.Controller {
		return session.NewController(s.photos, form.WithValidator(validator))
	})

	// Initialize rate limiter
	rateLimitConfig := ratelimit.LoadConfig()
	if cfg.DisableRateLimit {
		rateLimitConfig.Enabled = false
	}
	s.rateLimiter = ratelimit.NewLimiter(rateLimitConfig)

	withSession := middleware.Session(s.sessions, cfg.SessionCookie)
	sessionRoute := func(h http.HandlerFunc) http.Handler { return withSession(h) }

	// Setup router
	mux := http.NewServeMux()

	// Pages
	mux.Handle("GET /{$}", sessionRoute(s.handleIndex))
	mux.Handle("POST /form", sessionRoute(s.handleFormPost))
	mux.Handle("POST /resume/edit", sessionRoute(s.handleEdit))

	// Form API
	mux.Handle("GET /api/state", sessionRoute(s.handleState))
	mux.Handle("POST /form/field", sessionRoute(s.handleUpdateField))
	mux.Handle("POST /form/photo", sessionRoute(s.handleUploadPhoto))
	mux.Handle("POST /form/experience", sessionRoute(s.handleAddExperience))
	mux.Handle("POST /form/experience/{id}", sessionRoute(s.handleUpdateExperience))
	mux.Handle("POST /form/experience/{id}/delete", sessionRoute(s.handleRemoveExperience))
	mux.Handle("POST /form/skills", sessionRoute(s.handleAddSkill))
	mux.Handle("POST /form/skills/{index}/delete", sessionRoute(s.handleRemoveSkill))
	mux.Handle("POST /form/submit", sessionRoute(s.handleSubmit))

	// Exports of the submitted snapshot
	mux.Handle("GET /resume.json", sessionRoute(s.handleExportJSON))
	mux.Handle("GET /resume.tex", sessionRoute(s.handleExportLaTeX))
	mux.Handle("GET /resume.pdf", sessionRoute(s.handleExportPDF))

	// Display handles carry their own unguessable token
	mux.HandleFunc("GET /photos/{token}", s.handlePhoto)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.withRateLimit(s.withLogging(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.PDFTimeoutDuration() + 30*time.Second, // PDF exports wait on a headless browser
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
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

	s.Close()
	log.Println("Server stopped")
	return nil
}

// Close stops background cleanup and frees every session. It is safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		if s.sessions != nil {
			s.sessions.Stop()
		}
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		// Extract client identifier (IP address)
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)

		if !allowed {
			s.rateLimitResponse(w, info)
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

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// handleError writes err with the status HTTPStatus maps it to.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", r.Method, r.URL.Path, err)
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	// Get IP from RemoteAddr (format: "IP:port")
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If parsing fails, use the whole RemoteAddr
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		retryAfter := int(info.RetryAfter.Seconds())
		response["retry_after"] = retryAfter
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// Package authserver serves the OAuth redirect endpoint.
package authserver

import (
	"context"
	"embed"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/jun/drivelookup/internal/auth"
	"github.com/jun/drivelookup/internal/logging"
	"go.uber.org/zap"
)

//go:embed www/*.html
var pages embed.FS

// Completer finishes an authorization request.
type Completer interface {
	CompleteAuthRequest(ctx context.Context, code, state string) (auth.Outcome, error)
}

// Config configures the callback server. TLS is used when both CertFile and KeyFile are set.
type Config struct {
	Addr     string `toml:"addr"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

// TLS reports whether the server runs over HTTPS.
func (c Config) TLS() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// Server is the auth callback HTTP server.
type Server struct {
	cfg       Config
	completer Completer
	http      *http.Server
	log       *zap.Logger
}

// New creates a Server.
func New(cfg Config, completer Completer) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	s := &Server{
		cfg:       cfg,
		completer: completer,
		log:       logging.ForComponent(logging.CompAuthServer),
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routes wrapped with security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth", s.handleAuth)
	mux.HandleFunc("/", notFound)
	return secureHeaders(mux)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 - Not Found"))
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	outcome, err := s.completer.CompleteAuthRequest(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		s.log.Error("auth callback failed", zap.Error(err))
	} else {
		s.log.Debug("auth callback", zap.String("outcome", string(outcome)))
	}
	RenderOutcome(w, outcome, err)
}

// RenderOutcome writes the page for a callback outcome. A non-nil err
// renders the error page.
func RenderOutcome(w http.ResponseWriter, outcome auth.Outcome, err error) {
	status, body, readErr := Page(outcome, err)
	if readErr != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Page returns the status code and HTML body for a callback outcome.
func Page(outcome auth.Outcome, err error) (int, []byte, error) {
	page, status := "www/failure.html", http.StatusBadRequest
	switch {
	case err != nil:
		page, status = "www/error.html", http.StatusInternalServerError
	case outcome == auth.OutcomeSuccess:
		page, status = "www/success.html", http.StatusOK
	case outcome == auth.OutcomeExpired:
		page, status = "www/expired.html", http.StatusGone
	}

	body, readErr := pages.ReadFile(page)
	if readErr != nil {
		return http.StatusInternalServerError, nil, readErr
	}
	return status, body, nil
}

// secureHeaders sets the headers helmet applies by default.
func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'self';base-uri 'self';font-src 'self' https: data:;form-action 'self';frame-ancestors 'self';img-src 'self' data:;object-src 'none';script-src 'self';script-src-attr 'none';style-src 'self' https: 'unsafe-inline';upgrade-insecure-requests")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Origin-Agent-Cluster", "?1")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("X-Download-Options", "noopen")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("X-XSS-Protection", "0")
		next.ServeHTTP(w, r)
	})
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	scheme := "HTTP"
	if s.cfg.TLS() {
		scheme = "HTTPS"
	}
	s.log.Info("auth server listening", zap.String("addr", ln.Addr().String()), zap.String("scheme", scheme))

	var err error
	if s.cfg.TLS() {
		err = s.http.ServeTLS(ln, s.cfg.CertFile, s.cfg.KeyFile)
	} else {
		err = s.http.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Package server is the web UI and JSON API over the journal service.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/stockdiary/internal/journal"
	"github.com/TobiSchelling/stockdiary/internal/metrics"
	"github.com/TobiSchelling/stockdiary/internal/observation"
	"github.com/TobiSchelling/stockdiary/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server serves the journal pages and API.
type Server struct {
	svc    *journal.Service
	pages  map[string]*template.Template
	engine *gin.Engine
	log    zerolog.Logger
}

// New creates a new Server.
func New(svc *journal.Service, log zerolog.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"join":     strings.Join,
		"num":      formatNull,
		"signed":   signClass,
		"last": func(s []string) string {
			if len(s) == 0 {
				return ""
			}
			return s[len(s)-1]
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of the base so "title" and "content"
	// can be defined per page.
	pageNames := []string{"index.html", "add.html", "analysis.html", "quotes.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	s := &Server{svc: svc, pages: pages, engine: engine, log: log}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.engine.StaticFS("/static", http.FS(staticSub))
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.engine.GET("/", s.handleIndex)
	s.engine.POST("/refresh", s.handleRefresh)
	s.engine.GET("/add", s.handleAdd)
	s.engine.POST("/drafts", s.handleSaveDraft)
	s.engine.POST("/drafts/:id/delete", s.handleDeleteDraft)
	s.engine.POST("/submit", s.handleSubmit)
	s.engine.GET("/analysis", s.handleAnalysis)
	s.engine.GET("/current-price", s.handleQuotes)

	api := s.engine.Group("/api")
	api.GET("/observations", s.apiObservations)
	api.GET("/observations/:id", s.apiObservation)
	api.GET("/analysis", s.apiAnalysis)
	api.GET("/quotes", s.apiQuotes)
	api.GET("/drafts", s.apiDrafts)
	api.POST("/drafts", s.apiSaveDraft)
	api.PUT("/drafts/:id", s.apiSaveDraft)
	api.DELETE("/drafts/:id", s.apiDeleteDraft)
	api.POST("/submit", s.apiSubmit)
}

// flash is a one-shot message carried on a redirect.
type flash struct {
	Message string
	Error   bool
}

func flashFrom(c *gin.Context) *flash {
	msg := c.Query("msg")
	if msg == "" {
		return nil
	}
	return &flash{Message: msg, Error: c.Query("level") == "error"}
}

func redirect(c *gin.Context, path, msg string, isErr bool) {
	if msg != "" {
		q := url.Values{"msg": {msg}}
		if isErr {
			q.Set("level", "error")
		}
		path += "?" + q.Encode()
	}
	c.Redirect(http.StatusFound, path)
}

func (s *Server) render(c *gin.Context, status int, name string, data gin.H) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error().Str("template", name).Msg("template not found")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("rendering template")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// statusFor maps service errors to API status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, journal.ErrNothingToSubmit):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNoToken):
		return http.StatusUnauthorized
	case errors.Is(err, journal.ErrNoQuoteFeed):
		return http.StatusServiceUnavailable
	case isValidation(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func isValidation(err error) bool {
	return errors.Is(err, observation.ErrMissingFields) ||
		errors.Is(err, observation.ErrInvalidPrice) ||
		errors.Is(err, observation.ErrInvalidDate) ||
		errors.Is(err, observation.ErrInvalidForecast)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func formatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

func signClass(d decimal.NullDecimal) string {
	switch {
	case !d.Valid || d.Decimal.IsZero():
		return "flat"
	case d.Decimal.IsNegative():
		return "down"
	}
	return "up"
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Debug()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Serve starts the HTTP server on the given port and stops when ctx is done.
func Serve(ctx context.Context, svc *journal.Service, port int, log zerolog.Logger) error {
	srv, err := New(svc, log)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("Server listening on http://%s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

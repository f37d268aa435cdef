// Package server assembles the portfolio page: it wires the scroll, media
// and heatmap helpers to gin routes and HTMX fragments, and hosts the
// contact form and the small admin area.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mlcruz9/miguel-dev/internal/config"
	"github.com/Mlcruz9/miguel-dev/internal/content"
	"github.com/Mlcruz9/miguel-dev/internal/heatmap"
	"github.com/Mlcruz9/miguel-dev/internal/store"
	"github.com/Mlcruz9/miguel-dev/web"
)

// Options configures New. Content is required; everything else has a
// usable default.
type Options struct {
	Settings config.Settings
	Content  *content.Portfolio
	// Store may be nil; visitor tracking and admin statistics are then off.
	Store   *store.Store
	Heatmap *heatmap.Resolver
	Mailer  Mailer
	Log     *zap.Logger
	Now     func() time.Time
}

// Server is the portfolio site: a gin engine plus the state its handlers
// share.
type Server struct {
	settings config.Settings
	content  *content.Portfolio
	store    *store.Store
	heatmap  *heatmap.Resolver
	mailer   Mailer
	log      *zap.Logger
	now      func() time.Time

	adminToken  string
	hashingSalt string
	qr          []byte

	engine *gin.Engine
	visits sync.WaitGroup
}

// New builds the router and registers every route.
func New(opts Options) (*Server, error) {
	if opts.Content == nil {
		return nil, errors.New("server: content is required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Mailer == nil {
		opts.Mailer = NewSMTPMailer(opts.Settings.SMTP, opts.Log)
	}

	s := &Server{
		settings: opts.Settings,
		content:  opts.Content,
		store:    opts.Store,
		heatmap:  opts.Heatmap,
		mailer:   opts.Mailer,
		log:      opts.Log,
		now:      opts.Now,
	}

	var err error
	if s.adminToken, err = generateToken(); err != nil {
		return nil, err
	}
	if s.hashingSalt, err = generateToken(); err != nil {
		return nil, err
	}
	if s.qr, err = contactQR(s.content); err != nil {
		return nil, fmt.Errorf("server: contact qr: %w", err)
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}

	r := gin.New()
	// ClientIP feeds the visitor hashes, so forwarded headers only count
	// from configured proxies.
	if err := r.SetTrustedProxies(opts.Settings.TrustedProxies); err != nil {
		return nil, fmt.Errorf("server: trusted proxies: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.Use(requestID(), accessLog(s.log), recovery(s.log), s.visitorTracking())

	r.StaticFS("/static", web.Static())
	public := opts.Settings.PublicDir
	if public == "" {
		public = "public"
	}
	r.Static("/img", filepath.Join(public, "img"))
	r.Static("/cv", filepath.Join(public, "cv"))

	s.setupPageRoutes(r)
	s.setupContactRoutes(r)
	s.setupAdminRoutes(r)
	s.engine = r

	s.log.Info("Privacy: visitor tracking enabled with hashed IP addresses",
		zap.Bool("store", s.store != nil))
	s.log.Info("Admin access available at: /admin/login")
	if gin.Mode() == gin.DebugMode {
		s.log.Debug("Admin token (dev only)", zap.String("token", s.adminToken))
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	if s.store != nil {
		go s.retentionLoop(ctx)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.Close()
	return nil
}

// Close waits for in-flight visitor writes.
func (s *Server) Close() {
	s.visits.Wait()
}

// retentionLoop drops visitor rows past the retention period once at
// startup and then daily.
func (s *Server) retentionLoop(ctx context.Context) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		s.cleanupOldVisitorData(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *Server) cleanupOldVisitorData(ctx context.Context) int64 {
	if s.store == nil {
		return 0
	}
	n, err := s.store.DeleteVisitsBefore(ctx, s.now().Add(-store.RetentionPeriod))
	if err != nil {
		s.log.Error("Error cleaning up old visitor data", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.log.Info("Privacy cleanup: removed visitor records older than 12 months", zap.Int64("rows", n))
	}
	return n
}

var templateFuncs = template.FuncMap{
	// Only used for backgrounds built from numeric scroll parameters.
	"safeCSS": func(s string) template.CSS { return template.CSS(s) },
}

// Package dashboard serves the wine-quality exploration page.
package dashboard

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/KaramelBytes/winelens/internal/loader"
	"github.com/KaramelBytes/winelens/internal/sections"
	"github.com/KaramelBytes/winelens/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.tmpl static/*
var assets embed.FS

// NoDataWarning is shown when no dataset is available.
const NoDataWarning = "Please upload the CSV file to view the data."

const sessionCookie = "winelens_upload"

// Options configures a Server.
type Options struct {
	// DefaultDataPath is loaded when the visitor has no upload. Optional.
	DefaultDataPath string
	MaxUploadBytes  int64
	HistogramBins   int
	Load            loader.Options
}

// Server renders the dashboard and its charts.
type Server struct {
	opt   Options
	store *store.Store
	log   *zap.Logger
	page  *template.Template
	cache *datasetCache
}

// New builds a Server. A nil logger disables logging.
func New(opt Options, st *store.Store, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	page, err := template.New("index.html.tmpl").Funcs(template.FuncMap{
		"chartURL": chartURL,
	}).ParseFS(assets, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Server{opt: opt, store: st, log: log, page: page, cache: newDatasetCache(8)}, nil
}

// Routes returns the HTTP handler of the dashboard.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Post("/reset", s.handleReset)
	r.Get("/chart/{key}.svg", s.handleChart)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	static, _ := fs.Sub(assets, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		if status >= http.StatusInternalServerError {
			s.log.Warn("request", fields...)
			return
		}
		s.log.Debug("request", fields...)
	})
}

// paramsFrom reads the chart parameters from the query string.
func (s *Server) paramsFrom(r *http.Request) sections.Params {
	q := r.URL.Query()
	return sections.Params{
		Hist: q.Get("hist"),
		X:    q.Get("x"),
		Y:    q.Get("y"),
		Col:  q.Get("col"),
		Bins: s.opt.HistogramBins,
	}
}

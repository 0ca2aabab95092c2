package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/KaramelBytes/winelens/internal/analysis"
	"github.com/KaramelBytes/winelens/internal/loader"
	"github.com/KaramelBytes/winelens/internal/sections"
	"github.com/KaramelBytes/winelens/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type datasetInfo struct {
	Name      string
	Source    Source
	Rows      int
	TotalRows int
	Columns   int
	Numeric   int
	Warnings  []string
}

type pageData struct {
	Grafico      string
	Keys         []string
	UploadAction template.URL
	Accept       string
	Dataset      *datasetInfo
	Warning      string
	Error        string
	Notice       string
	Blocks       []blockView
}

// blockView carries the selected grafico so the column pickers keep it.
type blockView struct {
	sections.Block
	Grafico string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "")
}

// renderPage fills the page for the current request. errMsg, when set,
// replaces the sections with an error message.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	grafico := strings.TrimSpace(r.URL.Query().Get("grafico"))
	if grafico == "" {
		grafico = sections.All
	}
	data := pageData{
		Grafico:      grafico,
		Keys:         sections.Keys(),
		UploadAction: uploadAction(r.URL.RawQuery),
		Accept:       strings.Join(loader.Extensions(), ","),
		Error:        errMsg,
	}
	if errMsg == "" {
		s.fillSections(r, &data)
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.log.Error("render page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) fillSections(r *http.Request, data *pageData) {
	ds, src, err := s.resolveDataset(r)
	if errors.Is(err, errNoDataset) {
		data.Warning = NoDataWarning
		return
	}
	if err != nil {
		s.log.Warn("load dataset", zap.String("source", string(src)), zap.Error(err))
		data.Error = err.Error()
		return
	}
	data.Dataset = &datasetInfo{
		Name:      ds.Name,
		Source:    src,
		Rows:      ds.Rows,
		TotalRows: ds.TotalRows,
		Columns:   len(ds.Columns),
		Numeric:   len(ds.NumericColumns()),
		Warnings:  ds.Warnings,
	}
	if ds.Empty() {
		data.Error = fmt.Sprintf("%s contains no data rows", ds.Name)
		return
	}
	selected, ok := sections.Select(data.Grafico)
	if !ok {
		data.Notice = fmt.Sprintf("Unknown chart %q. Valid values: %s.", data.Grafico, strings.Join(sections.Keys(), ", "))
		return
	}
	for _, b := range sections.Plan(ds, selected, s.paramsFrom(r)) {
		data.Blocks = append(data.Blocks, blockView{Block: b, Grafico: data.Grafico})
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes+1<<20)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.renderPage(w, r, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
			return
		}
		s.renderPage(w, r, http.StatusBadRequest, "No file received. Choose a CSV file and try again.")
		return
	}
	defer file.Close()

	if _, err := loader.ForName(hdr.Filename); err != nil {
		s.renderPage(w, r, http.StatusBadRequest,
			fmt.Sprintf("%s: unsupported file type (accepted: %s)", hdr.Filename, strings.Join(loader.Extensions(), ", ")))
		return
	}
	u, err := s.store.Save(hdr.Filename, file, s.opt.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, store.ErrTooLarge) {
			s.renderPage(w, r, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
			return
		}
		s.log.Error("save upload", zap.String("name", hdr.Filename), zap.Error(err))
		s.renderPage(w, r, http.StatusInternalServerError, "Could not store the upload.")
		return
	}
	s.log.Info("upload stored", zap.String("id", u.ID), zap.String("name", u.Name), zap.Int64("size", u.Size))

	if old, err := r.Cookie(sessionCookie); err == nil && old.Value != u.ID {
		s.forget(old.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    u.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, indexURL(r.URL.RawQuery), http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.forget(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.Redirect(w, r, indexURL(r.URL.RawQuery), http.StatusSeeOther)
}

// forget drops a session upload from the cache and the store.
func (s *Server) forget(id string) {
	s.cache.drop("upload:" + id)
	if err := s.store.Delete(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("delete upload", zap.String("id", id), zap.Error(err))
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := sections.Lookup(key); !ok {
		http.Error(w, fmt.Sprintf("unknown chart %q", key), http.StatusNotFound)
		return
	}
	ds, _, err := s.resolveDataset(r)
	if err != nil {
		if errors.Is(err, errNoDataset) {
			http.Error(w, NoDataWarning, http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	svg, err := sections.Render(ds, key, s.paramsFrom(r))
	if err != nil {
		switch {
		case errors.Is(err, sections.ErrUnknownSection):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, analysis.ErrNoColumn):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.log.Error("render chart", zap.String("key", key), zap.Error(err))
			http.Error(w, "could not render chart", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(svg)
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("The file is larger than the %d MB upload limit.", s.opt.MaxUploadBytes>>20)
}

func indexURL(rawQuery string) string {
	if rawQuery == "" {
		return "/"
	}
	return "/?" + rawQuery
}

func uploadAction(rawQuery string) template.URL {
	if rawQuery == "" {
		return "/upload"
	}
	return template.URL("/upload?" + mustParseQuery(rawQuery).Encode())
}

func mustParseQuery(raw string) url.Values {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return url.Values{}
	}
	return q
}

// chartURL builds the image source of a figure.
func chartURL(f sections.Figure) template.URL {
	q := url.Values{}
	if f.Params.Hist != "" {
		q.Set("hist", f.Params.Hist)
	}
	if f.Params.X != "" {
		q.Set("x", f.Params.X)
	}
	if f.Params.Y != "" {
		q.Set("y", f.Params.Y)
	}
	if f.Params.Col != "" {
		q.Set("col", f.Params.Col)
	}
	u := "/chart/" + url.PathEscape(f.Key) + ".svg"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return template.URL(u)
}

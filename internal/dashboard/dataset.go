package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/KaramelBytes/winelens/internal/analysis"
	"github.com/KaramelBytes/winelens/internal/loader"
	"github.com/KaramelBytes/winelens/internal/store"
	"go.uber.org/zap"
)

// errNoDataset means neither an upload nor a default file is available.
var errNoDataset = errors.New("no dataset")

// Source tells where the active dataset came from.
type Source string

const (
	SourceUpload  Source = "upload"
	SourceDefault Source = "default"
)

// resolveDataset returns the visitor's dataset: their upload first, then the
// configured default file.
func (s *Server) resolveDataset(r *http.Request) (*analysis.Dataset, Source, error) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		ds, err := s.loadUpload(c.Value)
		switch {
		case err == nil:
			return ds, SourceUpload, nil
		case errors.Is(err, store.ErrNotFound):
			s.log.Debug("stale session upload", zap.String("id", c.Value))
		default:
			return nil, SourceUpload, err
		}
	}
	if s.opt.DefaultDataPath != "" {
		ds, err := s.loadDefault()
		switch {
		case err == nil:
			return ds, SourceDefault, nil
		case errors.Is(err, os.ErrNotExist):
			s.log.Debug("default data file missing", zap.String("path", s.opt.DefaultDataPath))
		default:
			return nil, SourceDefault, err
		}
	}
	return nil, "", errNoDataset
}

func (s *Server) loadUpload(id string) (*analysis.Dataset, error) {
	if ds, ok := s.cache.get("upload:" + id); ok {
		return ds, nil
	}
	u, rc, err := s.store.Open(id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	ds, err := loader.LoadReader(u.Name, rc, s.opt.Load)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", u.Name, err)
	}
	s.cache.put("upload:"+id, ds)
	return ds, nil
}

func (s *Server) loadDefault() (*analysis.Dataset, error) {
	path := s.opt.DefaultDataPath
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("default:%s:%d:%d", path, info.Size(), info.ModTime().UnixNano())
	if ds, ok := s.cache.get(key); ok {
		return ds, nil
	}
	ds, err := loader.LoadFile(path, s.opt.Load)
	if err != nil {
		return nil, err
	}
	s.cache.put(key, ds)
	return ds, nil
}

// datasetCache keeps the most recently loaded datasets so the chart requests
// of one page do not re-parse the file.
type datasetCache struct {
	mu    sync.Mutex
	max   int
	order []string
	items map[string]*analysis.Dataset
}

func newDatasetCache(max int) *datasetCache {
	return &datasetCache{max: max, items: make(map[string]*analysis.Dataset)}
}

func (c *datasetCache) get(key string) (*analysis.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ds, ok := c.items[key]
	return ds, ok
}

func (c *datasetCache) put(key string, ds *analysis.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		c.order = append(c.order, key)
	}
	c.items[key] = ds
	for len(c.order) > c.max {
		delete(c.items, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *datasetCache) drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

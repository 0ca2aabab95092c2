// Package store keeps uploaded data files on disk, one directory per upload
// keyed by a random UUID.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/KaramelBytes/winelens/internal/utils"
	"github.com/google/uuid"
)

const metaFileName = "meta.json"

// ErrNotFound is returned for unknown or malformed upload ids.
var ErrNotFound = errors.New("upload not found")

// Upload describes one stored file.
type Upload struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`

	dir string
}

// Path returns the on-disk location of the uploaded file.
func (u *Upload) Path() string { return filepath.Join(u.dir, u.Name) }

// Store manages uploads below <root>/uploads.
type Store struct {
	mu   sync.Mutex
	root string
	now  func() time.Time
}

// New creates the uploads directory under dataDir if needed.
func New(dataDir string) (*Store, error) {
	dataDir, err := utils.ExpandHome(dataDir)
	if err != nil {
		return nil, err
	}
	root := filepath.Join(dataDir, "uploads")
	if err := utils.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("ensure uploads dir: %w", err)
	}
	return &Store{root: root, now: time.Now}, nil
}

// Root returns the uploads directory.
func (s *Store) Root() string { return s.root }

// Save copies r into a new upload named after the base of name. maxBytes <= 0
// disables the size check.
func (s *Store) Save(name string, r io.Reader, maxBytes int64) (*Upload, error) {
	u := &Upload{
		ID:         uuid.NewString(),
		Name:       utils.SanitizeFilename(name),
		UploadedAt: s.now().UTC(),
	}
	u.dir = filepath.Join(s.root, u.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := utils.EnsureDir(u.dir); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	n, err := writeFile(u.Path(), r, maxBytes)
	if err != nil {
		_ = os.RemoveAll(u.dir)
		return nil, err
	}
	u.Size = n
	data, err := utils.PrettyJSON(u)
	if err != nil {
		_ = os.RemoveAll(u.dir)
		return nil, err
	}
	if err := utils.SafeWriteFile(filepath.Join(u.dir, metaFileName), data); err != nil {
		_ = os.RemoveAll(u.dir)
		return nil, err
	}
	return u, nil
}

// ErrTooLarge is returned by Save when the content exceeds maxBytes.
var ErrTooLarge = errors.New("upload exceeds size limit")

func writeFile(path string, r io.Reader, maxBytes int64) (int64, error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".upload.*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && maxBytes > 0 && n > maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, ErrTooLarge) {
			return 0, err
		}
		return 0, fmt.Errorf("write upload: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("atomic rename: %w", err)
	}
	return n, nil
}

// Get loads the metadata of an upload.
func (s *Store) Get(id string) (*Upload, error) {
	dir, err := s.dirFor(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read upload meta: %w", err)
	}
	var u Upload
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("parse upload meta: %w", err)
	}
	u.dir = dir
	return &u, nil
}

// Open returns the metadata and an open handle on the uploaded file.
func (s *Store) Open(id string) (*Upload, io.ReadCloser, error) {
	u, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(u.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("open upload: %w", err)
	}
	return u, f, nil
}

// Delete removes an upload. Deleting a missing upload is not an error.
func (s *Store) Delete(id string) error {
	dir, err := s.dirFor(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// List returns every readable upload, newest first.
func (s *Store) List() ([]*Upload, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read uploads dir: %w", err)
	}
	var out []*Upload
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		u, err := s.Get(e.Name())
		if err != nil {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

// Prune deletes uploads older than maxAge and returns how many were removed.
// maxAge <= 0 keeps everything.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	list, err := s.List()
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, u := range list {
		if u.UploadedAt.Before(cutoff) {
			if err := s.Delete(u.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// dirFor validates id and maps it to its directory.
func (s *Store) dirFor(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return "", fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return filepath.Join(s.root, id), nil
}

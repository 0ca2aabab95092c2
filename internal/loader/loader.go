package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/winelens/internal/analysis"
)

// Options controls how a file is turned into a Dataset.
type Options struct {
	analysis.Options
	// XLSX sheet selection. SheetName wins over SheetIndex; SheetIndex is 1-based.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns the analysis defaults with the first sheet selected.
func DefaultOptions() Options {
	return Options{Options: analysis.DefaultOptions(), SheetIndex: 1}
}

// Loader turns a tabular file into a Dataset.
type Loader interface {
	CanLoad(filename string) bool
	Load(r io.Reader, opt Options) (*analysis.Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported data format")

// ForName selects a loader based on the file name.
func ForName(filename string) (Loader, error) {
	for _, l := range registry {
		if l.CanLoad(filename) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(filename))
}

// Supported reports whether any registered loader accepts the file name.
func Supported(filename string) bool {
	_, err := ForName(filename)
	return err == nil
}

// Extensions lists the file extensions of the registered loaders that
// advertise one, in registration order.
func Extensions() []string {
	var out []string
	for _, l := range registry {
		if e, ok := l.(interface{ Extension() string }); ok {
			out = append(out, e.Extension())
		}
	}
	return out
}

// LoadReader loads a dataset from r, picking the loader by name.
func LoadReader(name string, r io.Reader, opt Options) (*analysis.Dataset, error) {
	l, err := ForName(name)
	if err != nil {
		return nil, err
	}
	ds, err := l.Load(r, opt)
	if err != nil {
		return nil, err
	}
	ds.Name = filepath.Base(name)
	return ds, nil
}

// LoadFile opens path and loads it with the matching loader.
func LoadFile(path string, opt Options) (*analysis.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()
	return LoadReader(path, f, opt)
}

func init() {
	Register(csvLoader{ext: ".csv"})
	Register(csvLoader{ext: ".tsv", comma: '\t'})
	Register(xlsxLoader{})
}

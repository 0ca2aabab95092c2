package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/winelens/internal/analysis"
)

type csvLoader struct {
	ext   string
	comma rune
}

func (l csvLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), l.ext)
}

func (l csvLoader) Extension() string { return l.ext }

func (l csvLoader) Load(r io.Reader, opt Options) (*analysis.Dataset, error) {
	br := bufio.NewReader(r)
	delim := opt.Delimiter
	if delim == 0 {
		delim = l.comma
	}
	if delim == 0 {
		delim = sniffDelimiter(br)
	}
	cr := csv.NewReader(br)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.Comma = delim
	ds, err := analysis.Build("", cr, opt.Options)
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return ds, nil
}

// sniffDelimiter peeks at the header line and picks the most frequent of ',', ';' and tab.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(peek, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

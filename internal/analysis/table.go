package analysis

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Column kinds inferred from the predominant parsed cell type.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// ErrNoColumn is returned when a named column is absent or not numeric.
var ErrNoColumn = errors.New("no such numeric column")

// Options controls how tabular data is loaded and summarized.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many head rows to include in the report.
	SampleRows int
	// Delimiter for CSV. If 0, sniffed from the header line.
	Delimiter rune
	// DropID removes a column named "Id" (any case) at load time.
	DropID bool
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// Unit normalization: convert values to target units using simple mappings.
	UnitNormalize bool
	UnitTargets   map[string]string // map[fromUnit]toUnit, e.g., {"g/L":"mg/L", "°F":"°C"}
}

// DefaultOptions returns reasonable defaults for dataset loading.
func DefaultOptions() Options {
	return Options{
		MaxRows:       100000,
		SampleRows:    5,
		DropID:        true,
		Outliers:      true,
		UnitNormalize: true,
		UnitTargets: map[string]string{
			"g/L":  "mg/L",
			"ug/L": "mg/L",
			"°F":   "°C",
		},
	}
}

// RecordReader yields raw rows. io.EOF ends the stream.
// *csv.Reader satisfies it.
type RecordReader interface {
	Read() ([]string, error)
}

// Build reads a header row followed by records and returns the resulting Dataset.
func Build(name string, rr RecordReader, opt Options) (*Dataset, error) {
	header, err := rr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Dataset{Name: name}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		return &Dataset{Name: name}, nil
	}

	type colAcc struct {
		src      int
		col      *Column
		origUnit string
		numCnt   int
		dtCnt    int
		txtCnt   int
	}
	var accs []*colAcc
	ds := &Dataset{Name: name}
	for i, h := range header {
		hn := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if opt.DropID && strings.EqualFold(hn, "id") {
			continue
		}
		clean, unit := splitUnits(hn)
		accs = append(accs, &colAcc{src: i, col: &Column{Name: clean, Unit: unit}, origUnit: unit})
	}

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	for {
		rec, err := rr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", ds.TotalRows+1, err)
		}
		ds.TotalRows++
		if ds.Rows >= maxRows {
			continue
		}
		ds.Rows++
		for _, a := range accs {
			v := ""
			if a.src < len(rec) {
				v = strings.TrimSpace(rec[a.src])
			}
			c := a.col
			c.Raw = append(c.Raw, v)
			if v == "" {
				c.Values = append(c.Values, math.NaN())
				continue
			}
			if strings.Contains(v, "%") && c.Unit == "" {
				c.Unit = "%"
				if a.origUnit == "" {
					a.origUnit = "%"
				}
			}
			if x, ok := parseNumeric(v, opt); ok {
				if opt.UnitNormalize && a.origUnit != "" {
					if nx, nu, okc := normalizeUnit(x, a.origUnit, opt); okc {
						x = nx
						c.Unit = nu
					}
				}
				a.numCnt++
				c.Values = append(c.Values, x)
				continue
			}
			c.Values = append(c.Values, math.NaN())
			if _, ok := parseTimeMaybe(v); ok {
				a.dtCnt++
				continue
			}
			a.txtCnt++
		}
	}

	ds.Columns = make([]Column, 0, len(accs))
	for _, a := range accs {
		c := a.col
		switch {
		case a.numCnt >= a.dtCnt && a.numCnt >= a.txtCnt && a.numCnt > 0:
			c.Kind = KindNumeric
		case a.dtCnt >= a.txtCnt && a.dtCnt > 0:
			c.Kind = KindDatetime
		case a.txtCnt > 0:
			c.Kind = KindText
			if isCategorical(c.Raw) {
				c.Kind = KindCategorical
			}
		default:
			c.Kind = KindUnknown
		}
		if c.Kind != KindNumeric {
			c.Values = nil
		}
		ds.Columns = append(ds.Columns, *c)
	}
	if ds.Rows < ds.TotalRows {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", ds.Rows, ds.TotalRows))
	}
	return ds, nil
}

// isCategorical treats short, repeating tokens as categories.
func isCategorical(raw []string) bool {
	seen := map[string]struct{}{}
	n := 0
	for _, v := range raw {
		if v == "" {
			continue
		}
		if len(v) > 64 {
			return false
		}
		n++
		seen[v] = struct{}{}
	}
	return n > 0 && len(seen) <= 10000 && len(seen) < n
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func normalizeUnit(x float64, unit string, opt Options) (float64, string, bool) {
	if opt.UnitTargets == nil {
		return x, unit, false
	}
	target, ok := opt.UnitTargets[unit]
	if !ok {
		return x, unit, false
	}
	switch unit + ">" + target {
	case "g/L>mg/L":
		return x * 1000, target, true
	case "ug/L>mg/L":
		return x / 1000, target, true
	case "°F>°C":
		return (x - 32) * 5.0 / 9.0, target, true
	default:
		return x, unit, false
	}
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Alpha (%)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Mass [mg/L]
	{regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|°[CF]|Brix|%|ppm|ppb)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

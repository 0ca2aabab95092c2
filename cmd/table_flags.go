package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/winelens/internal/loader"
	"github.com/spf13/cobra"
)

// tableFlags are the parsing and analysis flags shared by the commands that
// read a data file.
type tableFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sampleRows int
	maxRows    int
	groupBy    []string
	corr       bool
	outliers   bool
	outlierThr float64
	sheetName  string
	sheetIndex int
	keepID     bool
}

func (f *tableFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	fs.StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fs.IntVar(&f.sampleRows, "sample-rows", 0, "number of sample rows to include (default from config)")
	fs.IntVar(&f.maxRows, "max-rows", 0, "maximum rows to process (default from config)")
	fs.StringSliceVar(&f.groupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	fs.BoolVar(&f.corr, "correlations", true, "compute Pearson correlations among numeric columns")
	fs.BoolVar(&f.outliers, "outliers", true, "compute robust outlier counts (MAD)")
	fs.Float64Var(&f.outlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	fs.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	fs.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fs.BoolVar(&f.keepID, "keep-id", false, "keep a column named Id instead of dropping it")
}

// options merges config defaults with the flags.
func (f *tableFlags) options() (loader.Options, error) {
	opt := loader.DefaultOptions()
	if c, err := currentConfig(); err == nil {
		if c.MaxRows > 0 {
			opt.MaxRows = c.MaxRows
		}
		if c.SampleRows > 0 {
			opt.SampleRows = c.SampleRows
		}
	}
	if f.sampleRows > 0 {
		opt.SampleRows = f.sampleRows
	}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	if f.delimiter != "" {
		switch f.delimiter {
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
		}
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	opt.GroupBy = f.groupBy
	opt.Correlations = f.corr
	opt.Outliers = f.outliers
	if f.outlierThr > 0 {
		opt.OutlierThreshold = f.outlierThr
	}
	opt.DropID = !f.keepID
	opt.SheetName = f.sheetName
	if f.sheetIndex > 0 {
		opt.SheetIndex = f.sheetIndex
	}
	return opt, nil
}

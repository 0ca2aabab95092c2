package cmd

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/winelens/internal/loader"
	"github.com/KaramelBytes/winelens/internal/sections"
	"github.com/KaramelBytes/winelens/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	renOutDir  string
	renGrafico string
	renHist    string
	renX       string
	renY       string
	renBins    int
	renFlags   tableFlags
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render the dashboard charts of a data file as SVG files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if renOutDir == "" {
			return fmt.Errorf("--out is required")
		}
		selected, ok := sections.Select(renGrafico)
		if !ok {
			return fmt.Errorf("unknown --grafico %q (valid: %s)", renGrafico, strings.Join(sections.Keys(), ", "))
		}
		opt, err := renFlags.options()
		if err != nil {
			return err
		}
		ds, err := loader.LoadFile(args[0], opt)
		if err != nil {
			return err
		}
		if ds.Empty() {
			return fmt.Errorf("%s contains no data rows", ds.Name)
		}
		if err := utils.EnsureDir(renOutDir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		bins := renBins
		if bins == 0 {
			if c, err := currentConfig(); err == nil {
				bins = c.HistogramBins
			}
		}
		blocks := sections.Plan(ds, selected, sections.Params{Hist: renHist, X: renX, Y: renY, Bins: bins})

		var figs []sections.Figure
		for _, b := range blocks {
			if b.Notice != "" {
				fmt.Fprintf(os.Stderr, "⚠ %s: %s\n", b.Key, b.Notice)
			}
			figs = append(figs, b.Figures...)
		}
		written := make([]string, len(figs))
		for _, b := range blocks {
			if b.Table == nil {
				continue
			}
			if err := writeTable(filepath.Join(renOutDir, b.Key+".csv"), b.Table); err != nil {
				return err
			}
			written = append(written, b.Key+".csv")
		}
		names := chartFileNames(figs)
		var g errgroup.Group
		for i, f := range figs {
			i, f, name := i, f, names[i]
			g.Go(func() error {
				svg, err := sections.Render(ds, f.Key, f.Params)
				if err != nil {
					return fmt.Errorf("%s: %w", f.Key, err)
				}
				if err := utils.SafeWriteFile(filepath.Join(renOutDir, name), svg); err != nil {
					return err
				}
				logger.Debug("chart written", zap.String("file", name), zap.Int("bytes", len(svg)))
				written[i] = name
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		sort.Strings(written)
		for _, n := range written {
			fmt.Printf("✓ %s\n", filepath.Join(renOutDir, n))
		}
		return nil
	},
}

// writeTable stores the preview rows as CSV.
func writeTable(path string, t *sections.Table) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// chartFileName names a figure's SVG after its section and column choice.
func chartFileName(f sections.Figure) string {
	parts := []string{f.Key}
	for _, p := range []string{f.Params.Col, f.Params.Hist, f.Params.X, f.Params.Y} {
		if p != "" {
			parts = append(parts, slug(p))
		}
	}
	return strings.Join(parts, "_") + ".svg"
}

// chartFileNames names every figure, adding a __N suffix when distinct
// columns slug to the same file.
func chartFileNames(figs []sections.Figure) []string {
	names := make([]string, len(figs))
	seen := map[string]int{}
	for i, f := range figs {
		base := strings.TrimSuffix(chartFileName(f), ".svg")
		seen[base]++
		if n := seen[base]; n > 1 {
			base = fmt.Sprintf("%s__%d", base, n)
		}
		names[i] = base + ".svg"
	}
	return names
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "col"
	}
	return out
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renOutDir, "out", "", "directory to write SVG files into")
	renderCmd.Flags().StringVar(&renGrafico, "grafico", sections.All, "section to render: "+strings.Join(sections.Keys(), "|"))
	renderCmd.Flags().StringVar(&renHist, "hist", "", "histograma column (default: first numeric column)")
	renderCmd.Flags().StringVar(&renX, "x", "", "scatter x column (default: first numeric column)")
	renderCmd.Flags().StringVar(&renY, "y", "", "scatter y column (default: second numeric column)")
	renderCmd.Flags().IntVar(&renBins, "bins", 0, "histograma bin count (default from config)")
	renFlags.bind(renderCmd)
}

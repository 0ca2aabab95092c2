package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abOutDir string
	abJobs   int
	abQuiet  bool
	abFlags  tableFlags
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opt, err := abFlags.options()
		if err != nil {
			return err
		}

		reports := make([]string, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		jobs := abJobs
		if jobs <= 0 {
			jobs = runtime.NumCPU()
		}
		g.SetLimit(jobs)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				md, err := analyzeFile(path, opt)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				reports[i] = md
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if abOutDir != "" {
			if err := os.MkdirAll(abOutDir, 0o755); err != nil {
				return err
			}
		}
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Printf("[%d/%d] %s\n", i+1, total, filepath.Base(path))
			}
			if abOutDir == "" {
				if !abQuiet {
					fmt.Println(reports[i])
				}
				continue
			}
			outFile := summaryPath(abOutDir, path, abFlags.sheetName)
			if err := os.WriteFile(outFile, []byte(reports[i]), 0o644); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !abQuiet {
				fmt.Printf("✓ Wrote %s\n", filepath.Base(outFile))
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, deduplicated and sorted.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// summaryPath picks <dir>/<base>[__sheet-x].summary.md, adding a __N suffix
// instead of overwriting an existing summary.
func summaryPath(dir, path, sheet string) string {
	base := filepath.Base(path)
	safe := strings.TrimSuffix(base, filepath.Ext(base))
	if sheet != "" {
		s := strings.ToLower(strings.TrimSpace(sheet))
		var b strings.Builder
		for _, r := range s {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			} else if r == ' ' || r == '-' || r == '_' {
				b.WriteRune('-')
			}
		}
		ss := strings.Trim(b.String(), "-")
		if ss == "" {
			ss = "sheet"
		}
		safe += "__sheet-" + ss
	}
	outFile := filepath.Join(dir, safe+".summary.md")
	if _, err := os.Stat(outFile); err != nil {
		return outFile
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d.summary.md", safe, idx))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			if !abQuiet {
				fmt.Printf("⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(cand))
			}
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "write one <name>.summary.md per input into this directory")
	analyzeBatchCmd.Flags().IntVar(&abJobs, "jobs", 0, "files analyzed in parallel (default: number of CPUs)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	abFlags.bind(analyzeBatchCmd)
}

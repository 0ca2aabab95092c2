package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/winelens/internal/analysis"
	"github.com/KaramelBytes/winelens/internal/loader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	anaOutputPath string
	anaFlags      tableFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/TSV/XLSX file and print a Markdown summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt, err := anaFlags.options()
		if err != nil {
			return err
		}
		md, err := analyzeFile(path, opt)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := os.WriteFile(anaOutputPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Println(md)
		return nil
	},
}

// analyzeFile loads path and renders its Markdown report.
func analyzeFile(path string, opt loader.Options) (string, error) {
	ds, err := loader.LoadFile(path, opt)
	if err != nil {
		return "", err
	}
	logger.Debug("dataset loaded",
		zap.String("file", path),
		zap.Int("rows", ds.Rows),
		zap.Int("columns", len(ds.Columns)))
	return analysis.Summarize(ds, opt.Options).Markdown(), nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	anaFlags.bind(analyzeCmd)
}

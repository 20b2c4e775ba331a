package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexDir string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Sanitize documents and rebuild the vector index",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexDir, "dir", "", "documents directory (default from config)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	dir := indexDir
	if dir == "" {
		dir = c.cfg.DocumentsDir
	}

	report, err := c.pipeline.BuildIndex(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d chunks from %d documents\n", report.ChunksIndexed, report.DocumentsLoaded)
	for _, skipped := range report.SkippedDocuments {
		fmt.Printf("  skipped: %s\n", skipped)
	}
	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Run a guarded query against the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	result, err := c.pipeline.Query(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if result.Blocked {
		fmt.Printf("blocked (risk %.2f): %s\n", result.RiskScore, strings.Join(result.BlockedTerms, ", "))
	}
	return nil
}

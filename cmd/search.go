package cmd

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var searchCmd = &cobra.Command{
	Use:   "search-query",
	Short: "Extract job search parameters from a prompt and print them as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		searchQuery(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("prompt", "p", "", "a job search request, e.g. \"remote golang jobs in Berlin\"")
	searchCmd.MarkFlagRequired("prompt")
}

func searchQuery(cmd *cobra.Command) {
	ctx := context.Background()

	prompt, _ := cmd.Flags().GetString("prompt")
	if strings.TrimSpace(prompt) == "" {
		log.Fatal("--prompt must not be empty")
	}

	logger, _, wf := setup(ctx)
	defer logger.Sync()

	gate, query, err := wf.ExtractSearch(ctx, prompt)
	if err != nil {
		logger.Fatal("extracting search parameters", zap.Error(err))
	}

	if gate.Rejected {
		logger.Warn("the prompt is not a job search request", zap.String("rationale", gate.Rationale))
		logger.Sync()
		os.Exit(exitRejected)
	}

	if err := writeJSON(os.Stdout, query); err != nil {
		logger.Fatal("printing search parameters", zap.Error(err))
	}
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/document"
	"github.com/spigell/resume-fit/internal/schema"
	"github.com/spigell/resume-fit/internal/workflow"
)

const defaultTop = 5

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score a resume against several job postings and summarize the gaps",
	Run: func(cmd *cobra.Command, _ []string) {
		batch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("resume_path", "r", "", "path to the resume (pdf, docx, html or text)")
	batchCmd.Flags().StringArrayP("job_posting", "j", nil, "path or URL of a job posting, repeatable")
	batchCmd.Flags().Int("top", defaultTop, "how many of the best matching postings to print")
	batchCmd.Flags().Bool("no-cache", false, "do not save results")
	batchCmd.Flags().StringP("output", "o", outputText, "output format: text or json")

	batchCmd.MarkFlagRequired("resume_path")
	batchCmd.MarkFlagRequired("job_posting")
}

// batchResult is the printable outcome of a batch run.
type batchResult struct {
	Top                []*schema.JobRecord `json:"top"`
	Scored             int                 `json:"scored"`
	Failed             int                 `json:"failed"`
	AreasOfImprovement string              `json:"areas_of_improvement"`
}

func batch(cmd *cobra.Command) {
	ctx := context.Background()

	output, _ := cmd.Flags().GetString("output")
	if output != outputText && output != outputJSON {
		log.Fatalf("unsupported output format %q", output)
	}

	logger, config, wf := setup(ctx)
	defer logger.Sync()

	resumePath, _ := cmd.Flags().GetString("resume_path")
	resume, err := document.Load(ctx, resumePath)
	if err != nil {
		logger.Fatal("reading the resume", zap.Error(err), zap.String("source", resumePath))
	}

	postings, _ := cmd.Flags().GetStringArray("job_posting")
	jobs := make([]*schema.JobRecord, 0, len(postings))
	for _, posting := range postings {
		description, err := document.Load(ctx, posting)
		if err != nil {
			logger.Fatal("reading the job posting", zap.Error(err), zap.String("source", posting))
		}
		jobs = append(jobs, schema.NewJobRecord(posting, description, resume))
	}

	store, err := newStore(ctx, cmd, config.Cache)
	if err != nil {
		logger.Fatal("preparing the cache", zap.Error(err))
	}

	logger.Info("scoring job postings", zap.Int("count", len(jobs)))
	wf.ScoreJobs(ctx, resume, jobs)

	gaps := wf.IdentifyGaps(ctx, jobs)

	top, _ := cmd.Flags().GetInt("top")
	result := summarizeBatch(jobs, top, gaps)

	logger.Info("scored job postings",
		zap.Int("scored", result.Scored),
		zap.Int("failed", result.Failed),
	)

	if output == outputJSON {
		err = writeJSON(os.Stdout, result)
	} else {
		err = writeBatch(os.Stdout, result)
	}
	if err != nil {
		logger.Fatal("printing results", zap.Error(err))
	}

	entry := newEntry(gaps)
	entry.Jobs = jobs
	save(ctx, store, entry, logger)
}

func summarizeBatch(jobs []*schema.JobRecord, top int, gaps string) batchResult {
	result := batchResult{
		Top:                workflow.TopJobs(jobs, top),
		AreasOfImprovement: gaps,
	}
	for _, job := range jobs {
		if job.Score == schema.FailedScore {
			result.Failed++
			continue
		}
		result.Scored++
	}
	return result
}

func writeBatch(w io.Writer, result batchResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Scored %d job postings, %d failed.\n", result.Scored, result.Failed)

	if len(result.Top) > 0 {
		fmt.Fprintf(&b, "\nTop %d matches:\n", len(result.Top))
		for i, job := range result.Top {
			fmt.Fprintf(&b, "%d. %s: %g/10\n   %s\n", i+1, job.Name, job.Score, job.Explanation)
		}
	}

	fmt.Fprintf(&b, "\nAreas of improvement:\n%s\n", result.AreasOfImprovement)

	_, err := io.WriteString(w, b.String())
	return err
}

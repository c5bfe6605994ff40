package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/document"
	"github.com/spigell/resume-fit/internal/logger"
	"github.com/spigell/resume-fit/internal/schema"
	"github.com/spigell/resume-fit/internal/workflow"
)

const (
	outputText = "text"
	outputJSON = "json"

	// exitRejected is the process status when the request gate rejects the prompt.
	exitRejected = 2
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a resume against a job posting",
	Long: `Evaluate a resume against a job posting. The prompt decides what is done:
scoring with gap analysis, an interview chance prediction, resume edit suggestions
or any combination of them.`,
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("resume_path", "r", "", "path to the resume (pdf, docx, html or text)")
	runCmd.Flags().StringP("job_posting", "j", "", "path or URL of the job posting")
	runCmd.Flags().StringP("prompt", "p", "", "what to do with the resume and the posting")
	runCmd.Flags().Int("days-since-posted", 0, "age of the posting in days, used for the interview chance")
	runCmd.Flags().Bool("no-cache", false, "do not save results")
	runCmd.Flags().StringP("output", "o", outputText, "output format: text or json")

	runCmd.MarkFlagRequired("resume_path")
	runCmd.MarkFlagRequired("job_posting")
}

// setup builds the logger, the validated config and the workflow shared by all commands.
func setup(ctx context.Context) (*zap.Logger, *Config, *workflow.Workflow) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-fit", zap.String("version", version))

	wf, err := newWorkflow(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the workflow", zap.Error(err))
	}

	return logger, config, wf
}

func run(cmd *cobra.Command) {
	ctx := context.Background()

	output, _ := cmd.Flags().GetString("output")
	if output != outputText && output != outputJSON {
		log.Fatalf("unsupported output format %q", output)
	}

	days, _ := cmd.Flags().GetInt("days-since-posted")
	if days < 0 {
		log.Fatalf("--days-since-posted must not be negative")
	}

	prompt, _ := cmd.Flags().GetString("prompt")
	prompt, err := resolvePrompt(prompt, isTerminal(os.Stdin), askPrompt)
	if err != nil {
		log.Fatal(err)
	}

	logger, config, wf := setup(ctx)
	defer logger.Sync()

	resumePath, _ := cmd.Flags().GetString("resume_path")
	resume, err := document.Load(ctx, resumePath)
	if err != nil {
		logger.Fatal("reading the resume", zap.Error(err), zap.String("source", resumePath))
	}

	posting, _ := cmd.Flags().GetString("job_posting")
	jobDescription, err := document.Load(ctx, posting)
	if err != nil {
		logger.Fatal("reading the job posting", zap.Error(err), zap.String("source", posting))
	}

	store, err := newStore(ctx, cmd, config.Cache)
	if err != nil {
		logger.Fatal("preparing the cache", zap.Error(err))
	}

	result, err := wf.Run(ctx, workflow.Input{
		Resume:          resume,
		JobDescription:  jobDescription,
		Prompt:          prompt,
		DaysSincePosted: days,
	})
	if err != nil {
		logger.Fatal("running the workflow", zap.Error(err))
	}

	if result.Rejected {
		logger.Warn("the prompt is not a resume evaluation request",
			zap.String("rationale", result.Rationale),
			zap.String("hint", "ask to score the resume, predict the interview chance or suggest edits"),
		)
		logger.Sync()
		os.Exit(exitRejected)
	}

	if err := writeResult(os.Stdout, result, output); err != nil {
		logger.Fatal("printing results", zap.Error(err))
	}

	job := result.Job
	if job == nil {
		job = schema.NewJobRecord("", jobDescription, resume)
	}
	entry := newEntry(result.Gaps)
	entry.Job = job
	save(ctx, store, entry, logger)
}

var errPromptRequired = errors.New("--prompt is required when stdin is not a terminal")

// resolvePrompt returns the flag value, asks for it when interactive is set, and fails
// on a blank prompt otherwise.
func resolvePrompt(flag string, interactive bool, ask func() (string, error)) (string, error) {
	if strings.TrimSpace(flag) != "" {
		return flag, nil
	}
	if !interactive {
		return "", errPromptRequired
	}

	prompt, err := ask()
	if err != nil {
		return "", fmt.Errorf("reading the prompt: %w", err)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errPromptRequired
	}
	return prompt, nil
}

var promptTemplates = &promptui.PromptTemplates{
	Prompt:  "{{ . }} ",
	Valid:   "{{ . | green }} ",
	Invalid: "{{ . | red }} ",
	Success: "{{ . | bold }} ",
}

func askPrompt() (string, error) {
	p := promptui.Prompt{
		Label:     "What would you like to know about this resume?",
		Templates: promptTemplates,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("the prompt must not be empty")
			}
			return nil
		},
	}
	return p.Run()
}

// isTerminal reports whether f is an interactive character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func writeResult(w io.Writer, result *workflow.Result, format string) error {
	if format == outputJSON {
		return writeJSON(w, result)
	}

	var b strings.Builder

	if result.Score != nil {
		if result.Score.Failed() {
			fmt.Fprintf(&b, "Score: unavailable (%s)\n", result.Score.Explanation)
		} else {
			fmt.Fprintf(&b, "Score: %g/10\n", result.Score.Score)
			fmt.Fprintf(&b, "Explanation: %s\n", result.Score.Explanation)
		}
		if result.Gaps != "" {
			fmt.Fprintf(&b, "\nAreas of improvement:\n%s\n", result.Gaps)
		}
	}

	if p := result.Prediction; p != nil {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if p.Failed() {
			fmt.Fprintf(&b, "Interview chance: unavailable (%s)\n", p.Error)
		} else {
			fmt.Fprintf(&b, "Tailoring: %s\n", p.Tailoring.Level)
			fmt.Fprintf(&b, "Overall fit and tailoring score: %.2f\n", p.OverallScore)
			fmt.Fprintf(&b, "Time decay: %g\n", p.TimeDecay)
			fmt.Fprintf(&b, "Interview chance: %.2f%%\n", p.InterviewChance)
		}
	}

	if result.Edits != nil {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Suggested edits:\n%s\n", result.Edits.Suggestions)
	}

	if b.Len() == 0 {
		b.WriteString("Nothing was requested.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

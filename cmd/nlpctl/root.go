package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/app"
	"github.com/spacesedan/sentiscope/internal/logging"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	backend  string
	logLevel string
	asJSON   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "nlpctl",
		Short:         "Run one-off sentiment, emotion and summary analyses",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "override BACKEND_MODE (hosted, selfhosted, local, demo)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print the normalized result as JSON")

	root.AddCommand(newAnalyzeCmd(opts), newTasksCmd())
	return root
}

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List supported task kinds",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, t := range models.Tasks {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Analyze text given as arguments or on stdin",
		Example: `  nlpctl analyze --task sentiment "I absolutely loved this movie!"
  cat article.txt | nlpctl analyze --task summary --backend selfhosted`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), opts, task, text)
		},
	}
	cmd.Flags().StringVarP(&task, "task", "t", string(models.TaskSentiment), "sentiment, emotion or summary")
	return cmd
}

func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func runAnalyze(ctx context.Context, out io.Writer, opts *rootOptions, rawTask, text string) error {
	logging.InitLoggerTo(os.Stderr, opts.logLevel)

	task, err := models.ParseTask(rawTask)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" && task != models.TaskSummary {
		return fmt.Errorf("no text to analyze")
	}

	config.LoadEnv(getEnv("APP_ENV", "dev"))
	cfg, err := config.Load()
	if opts.backend != "" {
		cfg.BackendMode = strings.ToLower(opts.backend)
		err = cfg.Validate()
	}
	if err != nil {
		return err
	}
	// one-shot runs never go through a worker
	cfg.ExecutionMode = config.ExecutionInProcess

	backends, err := app.BuildBackends(cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	analyzer := nlp.NewAnalyzer(nlp.NewInProcess(nlp.NewRouter(nlp.NewPipelineCache(backends.Backend, nil), nil)), nil)

	var result models.Result
	if strings.TrimSpace(text) == "" {
		result = models.Result{Task: task}
	} else if result, err = analyzer.Analyze(ctx, task, text); err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(out, result)
}

func printResult(out io.Writer, result models.Result) error {
	if result.Task == models.TaskSummary {
		_, err := fmt.Fprintln(out, result.Summary)
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tSCORE")
	for _, c := range result.Classes {
		fmt.Fprintf(w, "%s\t%.4f\n", c.Label, c.Score)
	}
	if result.Degraded {
		fmt.Fprintf(w, "(degraded: %s)\t\n", result.Source)
	}
	return w.Flush()
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// sentinews finds relevant negative news coverage for a keyword.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/sentinews/api"
	"github.com/seenimoa/sentinews/internal/config"
	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/internal/pipeline"
	"github.com/seenimoa/sentinews/internal/report"
	"github.com/seenimoa/sentinews/internal/store"
	"github.com/seenimoa/sentinews/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sentinews",
	Short: "sentinews: negative news screening for a keyword",
	Long: `sentinews searches a news index for a keyword and date range, keeps
articles in the target language that actually mention the keyword, and
reports the ones whose full text reads as NEGATIVE.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		var envFiles []string
		if envFile != "" {
			envFiles = append(envFiles, envFile)
		}
		if err := config.LoadEnvFiles(envFiles...); err != nil {
			return err
		}

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger = logging.New(cfg.Logging, os.Stderr)
		slog.SetDefault(logger)
		api.Version = version
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("env-file", "", "dotenv file with service keys (default: keys.env, ../keys.env)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sentinews %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run <keyword> <start-date> <end-date>",
	Short: "Run the pipeline once and print the negative articles",
	Long: `Run the search, relevance, extraction and sentiment pipeline once.

Dates are YYYYMMDD or YYYY-MM-DD.

Examples:
  sentinews run "rangoon ruby" 20190101 20190201
  sentinews run "rangoon ruby" 2019-01-01 2019-02-01 --json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		reportPath, _ := cmd.Flags().GetString("report")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		orch, cleanup, err := buildOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		var obs pipeline.Observer
		if !asJSON {
			obs = pipeline.ObserverFunc(func(_ context.Context, ev pipeline.StageEvent) {
				logger.Info("stage", "run_id", ev.RunID, "stage", ev.Stage,
					"fetched", ev.Stats.Fetched, "relevant", ev.Stats.Relevant)
			})
		}

		res, err := orch.RunQuery(ctx, args[0], args[1], args[2], obs)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			printResult(out, res)
		}
		if reportPath != "" {
			if err := writeReport(reportPath, res); err != nil {
				return err
			}
			logger.Info("report written", "path", reportPath)
		}
		if !res.OK() {
			return fmt.Errorf("run %s: %s", res.Status, res.Error)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("json", false, "print the full run result as JSON")
	runCmd.Flags().String("report", "", "also write a report to this file (.html for HTML, otherwise text)")
}

func writeReport(path string, res *models.PipelineResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	cfg := report.DefaultReportConfig()
	cfg.Format = report.FormatFromPath(path)
	if err := report.Write(f, res, cfg); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// printResult writes one Title/URL block per article, each followed by a
// line of 80 dashes.
func printResult(w io.Writer, res *models.PipelineResult) {
	for _, a := range res.Articles {
		fmt.Fprintf(w, "Title: %s\n", a.Title)
		fmt.Fprintf(w, "URL: %s\n", a.URL)
		fmt.Fprintln(w, strings.Repeat("-", 80))
	}
	s := res.Stats
	fmt.Fprintf(w, "%d negative of %d relevant (%d fetched, %d excluded) for %q %s..%s\n",
		s.Negative, s.Relevant, s.Fetched, s.Excluded, res.Keyword, res.StartDate, res.EndDate)
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var (
			opts    []api.Option
			runOpts []pipeline.Option
		)
		if cfg.Store.DSN != "" {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			runOpts = append(runOpts, pipeline.WithRecorder(st))
			opts = append(opts, api.WithHistory(st))
		}

		orch, cleanup, err := pipeline.NewFromConfig(cfg, logger, runOpts...)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := api.NewServer(cfg, orch, append(opts, api.WithLogger(logger))...)
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		return srv.ListenAndServe(ctx, addr)
	},
}

// buildOrchestrator wires the pipeline and, when a store DSN is configured,
// records the run.
func buildOrchestrator(ctx context.Context) (*pipeline.Orchestrator, func(), error) {
	var (
		opts    []pipeline.Option
		closers []func() error
	)
	if cfg.Store.DSN != "" {
		st, err := openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithRecorder(st))
		closers = append(closers, st.Close)
	}

	orch, closeFn, err := pipeline.NewFromConfig(cfg, logger, opts...)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, nil, err
	}
	closers = append(closers, closeFn)

	return orch, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}, nil
}

func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.DSN, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		printStatus(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func printStatus(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "═══════════════════════════════════════")
	fmt.Fprintln(w, "  sentinews: System Status")
	fmt.Fprintln(w, "═══════════════════════════════════════")
	fmt.Fprintf(w, "  Version:       %s (%s)\n", version, commit)
	fmt.Fprintln(w)

	// Config summary
	fmt.Fprintln(w, "  Configuration:")
	fmt.Fprintf(w, "    Source:        %s (%s, max %d)\n", cfg.Source.BaseURL, cfg.Source.Format, cfg.Source.MaxRecords)
	fmt.Fprintf(w, "    Language:      %s (min confidence %.2f)\n", cfg.Language.Target, cfg.Language.MinConfidence)
	fmt.Fprintf(w, "    Classifier:    %s (chunk %d tokens)\n", cfg.Classifier.Backend, cfg.Classifier.ChunkSize)
	fmt.Fprintf(w, "    Workers:       %d\n", cfg.Pipeline.Workers)
	fmt.Fprintf(w, "    Text cache:    %s (ttl %s)\n", cfg.Cache.Backend, cfg.Cache.TTL)
	history := "disabled"
	if cfg.Store.DSN != "" {
		history = "postgres"
	}
	fmt.Fprintf(w, "    Run history:   %s\n", history)
	fmt.Fprintf(w, "    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
	fmt.Fprintln(w)

	// Secrets status
	fmt.Fprintln(w, "  Keys:")
	for _, k := range config.CheckAPIKeys(cfg) {
		status := "not set"
		if k.IsSet {
			status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
		}
		fmt.Fprintf(w, "    %-25s %s\n", k.Name+":", status)
	}

	fmt.Fprintln(w, "═══════════════════════════════════════")
}

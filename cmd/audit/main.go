package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mailaudit/internal/audit"
	"mailaudit/internal/config"
	"mailaudit/internal/emails"
	"mailaudit/internal/models"
	"mailaudit/internal/openai"
	"mailaudit/internal/rules"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "audit",
		Short:         "Audit email threads against communication-quality rules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newThreadCmd(), newRulesCmd())
	return rootCmd
}

func newThreadCmd() *cobra.Command {
	var (
		rulesPath string
		employee  string
		scoring   string
	)

	cmd := &cobra.Command{
		Use:   "thread [files or directories...]",
		Short: "Parse .eml/.mbox files, group them into threads and print one JSON report per thread",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if rulesPath != "" {
				cfg.RulesPath = rulesPath
			}
			if scoring != "" {
				cfg.ScoringMode = scoring
			}
			logger := cfg.SetupLogger().Output(cmd.ErrOrStderr())

			store, err := loadStore(cfg.RulesPath, logger)
			if err != nil {
				return err
			}

			parsed, err := emails.ParsePaths(args, logger)
			if err != nil {
				return err
			}
			if len(parsed) == 0 {
				return fmt.Errorf("no emails found in %v", args)
			}

			responder, err := openai.NewClient(cfg, logger)
			if err != nil {
				return err
			}
			aggregator := audit.NewAggregator(
				audit.NewEvaluator(store, responder, logger, audit.WithScoringMode(cfg.ScoringMode)),
				logger,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			threads := emails.GroupByThread(parsed)
			reports := make([]*models.ThreadAuditReport, 0, len(threads))
			for _, thread := range threads {
				report, err := aggregator.AuditThread(ctx, thread.Emails, employee)
				if err != nil {
					return fmt.Errorf("thread %s: %w", thread.ID, err)
				}
				reports = append(reports, report)
			}

			return writeJSON(cmd.OutOrStdout(), reports)
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule file (defaults to RULES_PATH)")
	cmd.Flags().StringVar(&employee, "employee", "", "email address of the employee whose replies are audited")
	cmd.Flags().StringVar(&scoring, "scoring", "", "scoring mode: sum or weighted (defaults to SCORING_MODE)")
	return cmd
}

func newRulesCmd() *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate a rule file and list the accepted rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rulesPath == "" {
				rulesPath = config.Load().RulesPath
			}
			logger := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()

			store, err := loadStore(rulesPath, logger)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFORMAT\tWEIGHT\tCONDITION")
			for _, rule := range store.Rules() {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", rule.ID, rule.ExpectedOutputFormat, rule.Weight, rule.Condition)
			}
			fmt.Fprintf(w, "\n%d rule(s) accepted from %s\n", store.Count(), rulesPath)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule file (defaults to RULES_PATH)")
	return cmd
}

func loadStore(path string, logger zerolog.Logger) (*rules.Store, error) {
	store := rules.NewStore(path, logger)
	if err := store.LoadFile(path); err != nil {
		return nil, err
	}
	return store, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

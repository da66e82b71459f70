package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"contract-risk-eval/internal/ai"
	"contract-risk-eval/internal/analysis"
	"contract-risk-eval/internal/match"
	"contract-risk-eval/internal/store"
)

func newAnalyzeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyse a UTF-8 text contract and print the JSON report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTextFile(args[0])
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(v)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			var extractor analysis.RiskExtractor
			if v.GetBool("ai") {
				provider := v.GetString("ai-provider")
				apiKey := v.GetString("ai-api-key")
				if apiKey == "" {
					apiKey = ai.APIKeyFromEnv(provider)
				}
				completer, err := ai.NewCompleter(ctx, ai.Config{
					Provider: provider,
					APIKey:   apiKey,
					Model:    v.GetString("ai-model"),
				})
				switch {
				case errors.Is(err, ai.ErrDisabled):
					logrus.WithField("provider", provider).Warn("no api key, analysing with rules only")
				case err != nil:
					return fmt.Errorf("configure ai provider: %w", err)
				default:
					if closer, ok := completer.(io.Closer); ok {
						defer closer.Close()
					}
					extractor = ai.NewExtractor(completer, ai.WithTimeout(v.GetDuration("ai-timeout")))
				}
			}

			engine := analysis.NewEngine(catalog, extractor, logrus.StandardLogger())
			report, err := engine.Analyze(ctx, text, analysis.Config{
				ContractType: v.GetString("type"),
				EnableAI:     extractor != nil,
			})
			if err != nil {
				return err
			}

			if dbPath := v.GetString("save"); dbPath != "" {
				db, err := store.Open(dbPath, true)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.SaveReport(report); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().String("type", analysis.DefaultContractType, "Contract category")
	cmd.Flags().Bool("ai", false, "Also ask the language model for risks")
	cmd.Flags().String("ai-provider", ai.ProviderHuggingFace, "Language model provider (huggingface|openai|gemini)")
	cmd.Flags().String("ai-api-key", "", "Language model API key")
	cmd.Flags().String("ai-model", "", "Language model name")
	cmd.Flags().Duration("ai-timeout", ai.DefaultTimeout, "Language model deadline")
	cmd.Flags().String("save", "", "Store the report in this SQLite database")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func newRulesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List catalog rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(v)
			if err != nil {
				return err
			}
			categories := catalog.Categories()
			if value := strings.TrimSpace(v.GetString("rules-type")); value != "" {
				categories = []string{catalog.Resolve(value)}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tID\tSEVERITY\tPENALTY\tTITLE")
			for _, category := range categories {
				for _, rule := range catalog.Rules(category) {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", category, rule.ID, rule.Severity, rule.Severity.Penalty(), rule.Title)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("type", "", "Only list this category")
	_ = v.BindPFlag("rules-type", cmd.Flags().Lookup("type"))
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Run only the contract relevance gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTextFile(args[0])
			if err != nil {
				return err
			}
			verdict := match.CheckRelevance(text)
			if err := writeJSON(cmd.OutOrStdout(), verdict); err != nil {
				return err
			}
			if !verdict.Valid {
				return errors.New(verdict.Reason)
			}
			return nil
		},
	}
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise a report database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := v.GetString("db")
			if dbPath == "" {
				return errors.New("--db is required")
			}
			db, err := store.Open(dbPath, true)
			if err != nil {
				return err
			}
			defer db.Close()

			grades, err := db.GradeCounts()
			if err != nil {
				return err
			}
			ruleStats, err := db.RuleStats(v.GetInt("limit"))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GRADE\tREPORTS")
			for _, g := range grades {
				fmt.Fprintf(w, "%s\t%d\n", g.Grade, g.Total)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "RULE\tSEVERITY\tHITS")
			for _, r := range ruleStats {
				fmt.Fprintf(w, "%s\t%s\t%d\n", r.RuleID, r.Severity, r.Total)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("db", filepath.FromSlash("data/contract-risk.db"), "Path to SQLite database")
	cmd.Flags().Int("limit", 20, "Number of rules to list")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not UTF-8 text", path)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(value)
}

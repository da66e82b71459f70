package main

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"contract-risk-eval/internal/rules"
)

const envPrefix = "CONTRACT_RISK"

// newRootCmd builds the command tree. Every flag can also be set through a
// CONTRACT_RISK_* environment variable, e.g. CONTRACT_RISK_TYPE=housing.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "contractrisk",
		Short: "Score French contracts for risky clauses",
		Long: `contractrisk runs the rule catalog (and optionally a hosted language model)
against contract text files and prints a graded risk report.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if v.GetBool("debug") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	root.PersistentFlags().StringSlice("rules", nil, "YAML rule pack to load (repeatable)")
	_ = v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	_ = v.BindPFlag("rules", root.PersistentFlags().Lookup("rules"))

	root.AddCommand(
		newAnalyzeCmd(v),
		newRulesCmd(v),
		newCheckCmd(),
		newStatsCmd(v),
	)
	return root
}

// loadCatalog returns the built-in catalog extended with the configured packs.
func loadCatalog(v *viper.Viper) (*rules.Catalog, error) {
	catalog := rules.NewCatalog()
	for _, pack := range v.GetStringSlice("rules") {
		added, err := catalog.LoadPack(pack)
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{"pack": pack, "rules": added}).Debug("rule pack loaded")
	}
	return catalog, nil
}

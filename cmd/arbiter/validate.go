package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"veria-hq/arbiter/pkg/config"
	"veria-hq/arbiter/pkg/policy"
	"veria-hq/arbiter/pkg/rules"
)

var validateFlags struct {
	rulesFile   string
	rulesetFile string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and policy documents",
	Long: `Validate the configuration file, the compliance rule document, and
the access-policy ruleset document without starting the server.

Checks performed:
  - Configuration syntax, defaults, and value ranges
  - Rule document: unique IDs, known types, operators, and actions
  - Policy ruleset: syntax and jurisdiction table presence

Examples:
  # Validate everything referenced by the config
  arbiter validate --config config.yaml

  # Validate a specific rule document
  arbiter validate --rules policy/rules.yaml`,
	RunE: validateDocuments,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.rulesFile, "rules", "", "rule document to validate (overrides config)")
	validateCmd.Flags().StringVar(&validateFlags.rulesetFile, "ruleset", "", "policy ruleset to validate (overrides config)")
}

func validateDocuments(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rulesPath := cfg.Rules.Path
	if validateFlags.rulesFile != "" {
		rulesPath = validateFlags.rulesFile
	}
	source := rules.NewFileSource(rules.DefaultFileSourceConfig(rulesPath), nil)
	ruleSet, err := source.LoadRules(ctx)
	if err != nil {
		return fmt.Errorf("rule document invalid: %w", err)
	}
	fmt.Printf("✓ Rule document valid: %s (%d rules)\n", rulesPath, len(ruleSet))

	rulesetPath := cfg.Policy.RulesetPath
	if validateFlags.rulesetFile != "" {
		rulesetPath = validateFlags.rulesetFile
	}
	loader := &policy.FileLoader{Path: rulesetPath}
	ruleset, err := loader.LoadRuleset(ctx)
	if err != nil {
		return fmt.Errorf("policy ruleset invalid: %w", err)
	}
	fmt.Printf("✓ Policy ruleset valid: %s (version %s)\n", rulesetPath, policy.VersionHash(ruleset))

	return nil
}

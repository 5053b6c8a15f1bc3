package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"veria-hq/arbiter/pkg/cli"
	"veria-hq/arbiter/pkg/eligibility"
)

var simulateFlags struct {
	policyFile string
	inputFile  string
	format     string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a one-shot eligibility check",
	Long: `Evaluate a transfer eligibility policy against a single input and
print the verdict.

Both documents may be YAML or JSON.

Examples:
  # Check an input against a policy
  arbiter simulate --policy policy.yaml --input input.yaml

  # JSON output for scripting
  arbiter simulate --policy policy.yaml --input input.yaml --format json`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simulateFlags.policyFile, "policy", "p", "", "eligibility policy document (required)")
	simulateCmd.Flags().StringVarP(&simulateFlags.inputFile, "input", "i", "", "eligibility input document (required)")
	simulateCmd.Flags().StringVar(&simulateFlags.format, "format", "text", "output format: text, json")
	_ = simulateCmd.MarkFlagRequired("policy")
	_ = simulateCmd.MarkFlagRequired("input")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	var pol eligibility.Policy
	if err := readDocument(simulateFlags.policyFile, &pol); err != nil {
		return fmt.Errorf("failed to read policy: %w", err)
	}

	var input eligibility.Input
	if err := readDocument(simulateFlags.inputFile, &input); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	result := eligibility.Evaluate(&pol, input)

	formatter := cli.NewFormatter(cli.OutputFormat(simulateFlags.format))
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

	if result.Outcome == eligibility.OutcomeDeny {
		os.Exit(1)
	}
	return nil
}

// readDocument parses a YAML or JSON document into dst. YAML is a superset
// of JSON, so one parser covers both.
func readDocument(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, dst)
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	casesSources sourceFlags
	casesCount   int
	casesJSON    bool
	casesOut     string
)

var casesCmd = &cobra.Command{
	Use:   "cases <query>",
	Short: "Generate test cases from documentation",
	Long: `Generates test cases for a feature, grounded in the documentation passed
with --docs (or a knowledge base saved with 'qagent kb build').

Exactly --count cases are returned, at least 40% of them negative when
three or more are requested.

Examples:
  qagent cases "discount code validation" --docs ./docs
  qagent cases "checkout payment" --docs ./docs --page checkout.html -n 8 --json
  qagent cases "shipping options" --collection shop`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCases,
}

func init() {
	casesSources.register(casesCmd)
	casesCmd.Flags().IntVarP(&casesCount, "count", "n", 5, "number of test cases")
	casesCmd.Flags().BoolVar(&casesJSON, "json", false, "output as JSON")
	casesCmd.Flags().StringVarP(&casesOut, "out", "o", "", "also write the JSON result to this file")
	rootCmd.AddCommand(casesCmd)
}

func runCases(cmd *cobra.Command, args []string) error {
	if cfg.TestCases == nil {
		return errors.New("test case service not configured")
	}

	ctx := cmd.Context()
	id, closeSession, err := openSession(ctx, cmd, &casesSources)
	if err != nil {
		return hint(err)
	}
	defer closeSession()

	query := strings.Join(args, " ")
	result, err := cfg.TestCases.Generate(ctx, id, query, casesCount)
	if err != nil {
		return hint(fmt.Errorf("failed to generate test cases: %w", err))
	}

	if casesOut != "" {
		f, err := os.Create(casesOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", casesOut, err)
		}
		defer f.Close()
		if err := writeJSON(f, result); err != nil {
			return err
		}
		cmd.PrintErrf("Wrote %s\n", casesOut)
	}

	if casesJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	renderCases(cmd.OutOrStdout(), result, stylesFor(cmd.OutOrStdout()))
	return nil
}

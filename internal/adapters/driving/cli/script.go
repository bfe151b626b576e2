package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

var (
	scriptSources sourceFlags
	scriptCases   string
	scriptQuery   string
	scriptID      string
	scriptOut     string
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Generate a Selenium script for a test case",
	Long: `Generates a Python Selenium script for one test case against the page
passed with --page or --page-url.

The test case comes from a file written by 'qagent cases --out' (--cases),
or is generated on the fly from --query. --id selects a case; the first
case is used otherwise.

Examples:
  qagent script --docs ./docs --page checkout.html --cases cases.json --id TC-002
  qagent script --docs ./docs --page-url http://localhost:3000/checkout --query "discount codes"`,
	Args: cobra.NoArgs,
	RunE: runScript,
}

func init() {
	scriptSources.register(scriptCmd)
	scriptCmd.Flags().StringVar(&scriptCases, "cases", "", "JSON file of test cases")
	scriptCmd.Flags().StringVarP(&scriptQuery, "query", "q", "", "generate test cases for this query first")
	scriptCmd.Flags().StringVar(&scriptID, "id", "", "test case ID to automate (default first)")
	scriptCmd.Flags().StringVarP(&scriptOut, "out", "o", "", "write the script to this file instead of stdout")
	scriptCmd.MarkFlagsMutuallyExclusive("cases", "query")
	scriptCmd.MarkFlagsOneRequired("cases", "query")
	rootCmd.AddCommand(scriptCmd)
}

func runScript(cmd *cobra.Command, _ []string) error {
	if cfg.Scripts == nil {
		return errors.New("script service not configured")
	}

	ctx := cmd.Context()
	id, closeSession, err := openSession(ctx, cmd, &scriptSources)
	if err != nil {
		return hint(err)
	}
	defer closeSession()

	var batch domain.TestCaseBatch
	if scriptCases != "" {
		data, err := os.ReadFile(scriptCases)
		if err != nil {
			return fmt.Errorf("failed to read test cases: %w", err)
		}
		if batch, err = readCases(data); err != nil {
			return err
		}
	} else {
		if cfg.TestCases == nil {
			return errors.New("test case service not configured")
		}
		result, err := cfg.TestCases.Generate(ctx, id, scriptQuery, 5)
		if err != nil {
			return hint(fmt.Errorf("failed to generate test cases: %w", err))
		}
		batch = result.TestCases
	}

	tc, err := pickCase(batch, scriptID)
	if err != nil {
		return err
	}

	result, err := cfg.Scripts.Synthesize(ctx, id, tc)
	if err != nil {
		return hint(fmt.Errorf("failed to generate script: %w", err))
	}

	st := stylesFor(cmd.ErrOrStderr())
	cmd.PrintErrf("%s %s: %s\n", st.Title.Render("Script for"), tc.ID, tc.Scenario)
	cmd.PrintErrf("%s\n", st.Muted.Render(fmt.Sprintf("Page elements: %d", len(result.Structure.Elements))))
	if result.Fallback {
		cmd.PrintErrln(st.Warning.Render("Note: fallback script (" + result.Reason + ")"))
	}

	if scriptOut != "" {
		if err := os.WriteFile(scriptOut, []byte(result.Script), 0644); err != nil {
			return fmt.Errorf("failed to write script: %w", err)
		}
		cmd.PrintErrf("Wrote %s\n", scriptOut)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), string(result.Script))
	return nil
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	kbSources    sourceFlags
	kbCollection string
	kbJSON       bool
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage saved knowledge bases",
	Long: `Build and inspect named knowledge bases. With index.backend=sqlite a
knowledge base built here can be reused by 'cases', 'script' and 'serve'
through --collection, without re-reading the documents.`,
}

var kbBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a knowledge base from documentation",
	Long: `Chunks and embeds the documentation passed with --docs and stores it
under the --collection name, replacing any previous contents.

Example:
  qagent settings set index.backend sqlite
  qagent kb build --collection shop --docs ./docs --page checkout.html`,
	Args: cobra.NoArgs,
	RunE: runKBBuild,
}

var kbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a knowledge base",
	Args:  cobra.NoArgs,
	RunE:  runKBStatus,
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved knowledge bases",
	Args:  cobra.NoArgs,
	RunE:  runKBList,
}

var kbClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the contents of a knowledge base",
	Args:  cobra.NoArgs,
	RunE:  runKBClear,
}

func init() {
	kbSources.register(kbBuildCmd)
	_ = kbBuildCmd.MarkFlagRequired("collection")
	_ = kbBuildCmd.MarkFlagRequired("docs")

	for _, c := range []*cobra.Command{kbStatusCmd, kbClearCmd} {
		c.Flags().StringVarP(&kbCollection, "collection", "c", "", "knowledge base name")
		_ = c.MarkFlagRequired("collection")
	}
	kbStatusCmd.Flags().BoolVar(&kbJSON, "json", false, "output as JSON")

	kbCmd.AddCommand(kbBuildCmd)
	kbCmd.AddCommand(kbStatusCmd)
	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbClearCmd)
	rootCmd.AddCommand(kbCmd)
}

func runKBBuild(cmd *cobra.Command, _ []string) error {
	id, closeSession, err := openSession(cmd.Context(), cmd, &kbSources)
	if err != nil {
		return hint(err)
	}
	defer closeSession()

	h, err := cfg.Sessions.Health(id)
	if err != nil {
		return err
	}
	renderHealth(cmd.OutOrStdout(), h, stylesFor(cmd.OutOrStdout()))
	return nil
}

func runKBStatus(cmd *cobra.Command, _ []string) error {
	if cfg.Sessions == nil {
		return errors.New("session service not configured")
	}

	if _, err := cfg.Sessions.OpenNamed(cmd.Context(), kbCollection); err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer cfg.Sessions.Close(kbCollection) //nolint:errcheck

	h, err := cfg.Sessions.Health(kbCollection)
	if err != nil {
		return err
	}
	if kbJSON {
		return writeJSON(cmd.OutOrStdout(), h)
	}
	renderHealth(cmd.OutOrStdout(), h, stylesFor(cmd.OutOrStdout()))
	return nil
}

func runKBList(cmd *cobra.Command, _ []string) error {
	if cfg.Collections == nil {
		cmd.PrintErrln("No saved knowledge bases: index.backend is memory.")
		return nil
	}

	names, err := cfg.Collections.Collections(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list knowledge bases: %w", err)
	}
	if len(names) == 0 {
		cmd.PrintErrln("No saved knowledge bases.")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runKBClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if cfg.Collections != nil {
		if err := cfg.Collections.DeleteCollection(ctx, kbCollection); err != nil {
			return fmt.Errorf("failed to clear knowledge base: %w", err)
		}
		cmd.Printf("Cleared knowledge base %s\n", kbCollection)
		return nil
	}

	if cfg.Sessions == nil {
		return errors.New("session service not configured")
	}

	if _, err := cfg.Sessions.OpenNamed(ctx, kbCollection); err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer cfg.Sessions.Close(kbCollection) //nolint:errcheck

	if err := cfg.Sessions.Clear(ctx, kbCollection); err != nil {
		return fmt.Errorf("failed to clear knowledge base: %w", err)
	}
	cmd.Printf("Cleared knowledge base %s\n", kbCollection)
	return nil
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zprp/ffscan/internal/catalog"
	"github.com/zprp/ffscan/internal/output"
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff [from-ref] [to-ref]",
	Short: "Show filter changes between saved runs",
	Long: `Compare the filters of two saved runs in a dolt catalog.

Every 'ffscan scan --save' with storage.backend: dolt commits the catalog.
This lists the filters added, removed or modified (description or options
changed) between two commits. The sqlite backend keeps only the last run.

Arguments:
  from-ref    Starting commit/branch/tag (default: HEAD~1)
  to-ref      Ending commit/branch/tag (default: HEAD)

Examples:
  ffscan diff                 # Changes of the last saved run
  ffscan diff HEAD~5 HEAD     # Changes over the last 5 runs
  ffscan diff --summary       # Just show counts`,
	Args: cobra.MaximumNArgs(2),
	RunE: runDiff,
}

var (
	diffFormat  string
	diffSummary bool
)

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().StringVar(&diffFormat, "format", "yaml", "Output format (yaml|json)")
	diffCmd.Flags().BoolVar(&diffSummary, "summary", false, "Show only summary counts")
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := queryFormat(diffFormat)
	if err != nil {
		return err
	}

	var fromRef, toRef string
	if len(args) > 0 {
		fromRef = args[0]
	}
	if len(args) > 1 {
		toRef = args[1]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	diff, err := cat.Changes(ctx, fromRef, toRef)
	if errors.Is(err, catalog.ErrUnsupported) {
		return fmt.Errorf("diff needs storage.backend: dolt (current: %s)", cat.Backend())
	}
	if err != nil {
		return err
	}

	if diffSummary {
		return output.Encode(cmd.OutOrStdout(), map[string]any{
			"from":     diff.FromRef,
			"to":       diff.ToRef,
			"added":    len(diff.Added),
			"modified": len(diff.Modified),
			"removed":  len(diff.Removed),
			"total":    diff.Total(),
		}, format)
	}
	return output.Encode(cmd.OutOrStdout(), diff, format)
}

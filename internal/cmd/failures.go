package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zprp/ffscan/internal/batch"
	"github.com/zprp/ffscan/internal/output"
)

// failuresCmd represents the failures command
var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List files of the saved run that could not be parsed",
	Long: `List the parse failures recorded by the last saved scan.

Each failure names the file, its kind (toolchain, syntax or read) and the
first lines of the error. With --coverage the registered filters that were
not extracted are listed as well.`,
	Args: cobra.NoArgs,
	RunE: runFailures,
}

var (
	failuresFormat   string
	failuresCoverage bool
)

func init() {
	rootCmd.AddCommand(failuresCmd)

	failuresCmd.Flags().StringVar(&failuresFormat, "format", "yaml", "Output format (yaml|json)")
	failuresCmd.Flags().BoolVar(&failuresCoverage, "coverage", false, "Include registration coverage")
}

func runFailures(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := queryFormat(failuresFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := openSavedCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	failures, err := cat.Failures(ctx)
	if err != nil {
		return err
	}
	if !failuresCoverage {
		return output.Encode(cmd.OutOrStdout(), failures, format)
	}

	registered, err := cat.Registered(ctx)
	if err != nil {
		return err
	}
	filters, err := cat.Filters(ctx, "")
	if err != nil {
		return err
	}
	return output.Encode(cmd.OutOrStdout(), map[string]any{
		"failures": failures,
		"coverage": batch.ComputeCoverage(conventionFrom(cfg.Convention), registered, filters),
	}, format)
}

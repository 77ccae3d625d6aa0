package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zprp/ffscan/internal/batch"
)

// registeredCmd represents the registered command
var registeredCmd = &cobra.Command{
	Use:   "registered",
	Short: "List the filters declared in the registration module",
	Long: `Parse the registration module (libavfilter/allfilters.c) and print every
declared filter identifier, in declaration order and without duplicates.

Examples:
  ffscan registered
  ffscan registered --count`,
	Args: cobra.NoArgs,
	RunE: runRegistered,
}

var (
	registeredRoot  string
	registeredCount bool
)

func init() {
	rootCmd.AddCommand(registeredCmd)

	registeredCmd.Flags().StringVar(&registeredRoot, "root", "", "FFmpeg source root (default: source.root)")
	registeredCmd.Flags().BoolVar(&registeredCount, "count", false, "Print only the number of filters")
}

func runRegistered(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if registeredRoot != "" {
		cfg.Source.Root = registeredRoot
	}

	ids, err := batch.New(newProvider(cfg), driverOptions(cfg)).Registered(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan registration module: %w", err)
	}

	out := cmd.OutOrStdout()
	if registeredCount {
		fmt.Fprintln(out, len(ids))
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

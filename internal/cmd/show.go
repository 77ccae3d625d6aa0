package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zprp/ffscan/internal/catalog"
	"github.com/zprp/ffscan/internal/output"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <filter>",
	Short: "Show one saved filter with its options",
	Long: `Show a filter from the catalog written by 'ffscan scan --save'.

The filter is looked up by its exact name. When no filter has that name the
filters whose name contains it are suggested.

Examples:
  ffscan show scale              # YAML
  ffscan show scale --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List saved filters whose name contains a pattern",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

var (
	showFormat string
	listFormat string
)

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)

	showCmd.Flags().StringVar(&showFormat, "format", "yaml", "Output format (yaml|json)")
	listCmd.Flags().StringVar(&listFormat, "format", "yaml", "Output format (yaml|json)")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := queryFormat(showFormat)
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

	name := args[0]
	f, err := cat.Filter(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		similar, lerr := cat.Filters(ctx, name)
		if lerr != nil || len(similar) == 0 {
			return fmt.Errorf("filter %q not found", name)
		}
		names := make([]string, 0, len(similar))
		for _, s := range similar {
			names = append(names, s.Name)
		}
		return fmt.Errorf("filter %q not found; did you mean: %v", name, names)
	}
	if err != nil {
		return err
	}
	return output.Encode(cmd.OutOrStdout(), f, format)
}

// filterLine is one row of 'ffscan list'
type filterLine struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Options     int    `yaml:"options" json:"options"`
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := queryFormat(listFormat)
	if err != nil {
		return err
	}

	pattern := ""
	if len(args) == 1 {
		pattern = args[0]
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

	filters, err := cat.Filters(ctx, pattern)
	if err != nil {
		return err
	}
	lines := make([]filterLine, 0, len(filters))
	for _, f := range filters {
		lines = append(lines, filterLine{Name: f.Name, Description: f.Description, Options: len(f.Options)})
	}
	return output.Encode(cmd.OutOrStdout(), lines, format)
}

// queryFormat parses the --format flag of query commands. msgpack is kept
// for documents.
func queryFormat(s string) (output.Format, error) {
	format, err := output.ParseFormat(s)
	if err != nil {
		return "", err
	}
	if format.IsBinary() {
		return "", fmt.Errorf("format %s is only supported by 'ffscan scan'", format)
	}
	return format, nil
}

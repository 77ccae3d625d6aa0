package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zprp/ffscan/internal/batch"
	"github.com/zprp/ffscan/internal/config"
	"github.com/zprp/ffscan/internal/ctxlog"
	"github.com/zprp/ffscan/internal/output"
	"github.com/zprp/ffscan/internal/ui"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Extract filters and options from the source tree",
	Long: `Scan the filter directory of an FFmpeg source tree.

Every implementation file that mentions AVFilter is preprocessed, parsed and
searched for filter definitions and their option tables. Files that cannot
be preprocessed or parsed are recorded as failures and do not stop the scan.

The result document is written to stdout unless --out or --save is given.
A progress bar and a summary are printed on stderr when it is a terminal.

Examples:
  ffscan scan --root ~/src/ffmpeg             # YAML on stdout
  ffscan scan --format json > filters.json    # JSON on stdout
  ffscan scan --out filters.msgpack           # binary snapshot
  ffscan scan --save                          # save into the catalog
  ffscan scan --no-preprocess                 # parse the raw files
  ffscan scan --configure                     # run ./configure first`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanRoot         string
	scanOut          string
	scanFormat       string
	scanSave         bool
	scanMessage      string
	scanJobs         int
	scanExclude      []string
	scanNoPreprocess bool
	scanConfigure    bool
	scanQuiet        bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanRoot, "root", "", "FFmpeg source root (default: source.root)")
	scanCmd.Flags().StringVarP(&scanOut, "out", "o", "", "Write the document to a file ('-' for stdout)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "", "Document format: yaml|json|msgpack (default: output.format or --out extension)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Save the result into the catalog")
	scanCmd.Flags().StringVarP(&scanMessage, "message", "m", "", "Commit message for the dolt catalog")
	scanCmd.Flags().IntVarP(&scanJobs, "jobs", "j", -1, "Parallel workers (0 = GOMAXPROCS, default: batch.jobs)")
	scanCmd.Flags().StringSliceVar(&scanExclude, "exclude", nil, "Additional exclude globs matched against file names")
	scanCmd.Flags().BoolVar(&scanNoPreprocess, "no-preprocess", false, "Parse the raw source files")
	scanCmd.Flags().BoolVar(&scanConfigure, "configure", false, "Configure the source tree first if needed")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "Suppress progress and summary")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	format, dest, err := scanDestination(cfg)
	if err != nil {
		return err
	}

	opts := driverOptions(cfg)
	var progress *ui.Progress
	if !scanQuiet {
		progress = ui.NewProgress(os.Stderr, "scanning "+cfg.Source.FilterDir)
		if progress.Enabled() {
			opts.Progress = progress.Update
		}
	}

	start := time.Now()
	res, err := batch.New(newProvider(cfg), opts).Run(ctx)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	elapsed := time.Since(start)

	doc := output.NewDocument(cfg.Source.Root, res)
	switch dest {
	case "":
	case "-":
		if err := output.Write(cmd.OutOrStdout(), doc, format); err != nil {
			return err
		}
	default:
		if err := output.WriteFile(dest, doc, format); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		logger.Info("document written", "path", dest, "format", format)
	}

	if scanSave {
		if err := saveRun(cmd, cfg, doc); err != nil {
			return err
		}
	}

	if !scanQuiet {
		ui.NewSummary(os.Stderr, ui.IsTerminal(os.Stderr)).Write(res, elapsed)
	}
	return nil
}

// applyScanFlags lets explicit flags override the configuration.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	if scanRoot != "" {
		cfg.Source.Root = scanRoot
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Batch.Jobs = scanJobs
	}
	if len(scanExclude) > 0 {
		cfg.Source.Exclude = append(cfg.Source.Exclude, scanExclude...)
	}
	if scanNoPreprocess {
		disabled := false
		cfg.Preprocess.Enabled = &disabled
	}
	if scanConfigure {
		cfg.Prepare.Configure = true
	}
	if scanFormat != "" {
		cfg.Output.Format = scanFormat
	}
	if scanOut != "" {
		cfg.Output.Path = scanOut
	}
}

// scanDestination resolves where the document goes. An empty destination
// means the document is only saved into the catalog.
func scanDestination(cfg *config.Config) (output.Format, string, error) {
	dest := cfg.Output.Path
	if dest == "" && !scanSave {
		dest = "-"
	}

	def, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return "", "", err
	}
	format := def
	if scanFormat == "" && dest != "-" && dest != "" {
		format = output.FormatForPath(dest, def)
	}

	if dest == "-" && format.IsBinary() && ui.IsTerminal(os.Stdout) {
		return "", "", fmt.Errorf("refusing to write %s to a terminal: use --out", format)
	}
	return format, dest, nil
}

func saveRun(cmd *cobra.Command, cfg *config.Config, doc *output.Document) error {
	ctx := cmd.Context()

	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	message := scanMessage
	if message == "" {
		message = fmt.Sprintf("ffscan scan: %d filters, %d failures", len(doc.Filters), len(doc.Failures))
	}
	if err := cat.SaveRun(ctx, doc, message); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	ctxlog.FromContext(ctx).Info("catalog saved", "path", relPath(cat.Path()), "backend", cat.Backend())
	return nil
}


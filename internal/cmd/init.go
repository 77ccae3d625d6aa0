// Package cmd implements the init command for ffscan CLI.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zprp/ffscan/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .ffscan/config.yaml",
	Long: `Create the .ffscan directory in the current directory and write the default
configuration into it.

The defaults reproduce the preprocessor flags the FFmpeg tree needs: the fake
libc headers, the tree root and macros that hide GCC extensions from the
parser. Edit source.root to point at the FFmpeg checkout.

Examples:
  ffscan init          # Initialize in current directory
  ffscan init --force  # Overwrite an existing config`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	if initForce {
		configDir, err := config.EnsureConfigDir(cwd)
		if err != nil {
			return err
		}
		if err := os.Remove(filepath.Join(configDir, config.ConfigFileName)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing existing config: %w", err)
		}
	}

	path, err := config.SaveDefault(cwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized ffscan config at %s\n", relPath(path))
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zprp/ffscan/internal/config"
	"github.com/zprp/ffscan/internal/mcp"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server over the saved catalog",
	Long: `Start an MCP (Model Context Protocol) server over the catalog written by
'ffscan scan --save'.

Agents writing filter bindings can query filters and their options through
MCP tools instead of reading the FFmpeg sources or re-running a scan.

Available Tools:
  ffscan_list_filters    Filters whose name contains a pattern
  ffscan_show_filter     One filter with its options
  ffscan_parse_failures  Files that could not be parsed
  ffscan_coverage        Registered filters that were not extracted

Examples:
  ffscan serve --mcp                         # Start with all tools
  ffscan serve --mcp --tools list_filters    # Start with specific tools only
  ffscan serve --mcp --timeout 30m           # Auto-stop after 30 minutes
  ffscan serve --status                      # Check if server is running
  ffscan serve --stop                        # Stop running server
  ffscan serve --list-tools                  # Show available tools`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveMCP       bool
	serveTools     string
	serveTimeout   string
	serveStatus    bool
	serveStop      bool
	serveListTools bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "Start MCP server (stdio transport)")
	serveCmd.Flags().StringVar(&serveTools, "tools", "", "Comma-separated list of tools to expose (default: all)")
	serveCmd.Flags().StringVar(&serveTimeout, "timeout", "30m", "Inactivity timeout (0 for no timeout)")
	serveCmd.Flags().BoolVar(&serveStatus, "status", false, "Check if server is running")
	serveCmd.Flags().BoolVar(&serveStop, "stop", false, "Stop running server")
	serveCmd.Flags().BoolVar(&serveListTools, "list-tools", false, "List available tools")
}

func runServe(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if serveListTools {
		fmt.Fprintln(out, "Available MCP tools:")
		for _, t := range mcp.AllTools {
			fmt.Fprintf(out, "  %s\n", t)
		}
		return nil
	}
	if serveStatus {
		return checkServerStatus(cmd)
	}
	if serveStop {
		return stopServer(cmd)
	}
	if !serveMCP {
		return fmt.Errorf("use --mcp to start the MCP server, or --help for usage")
	}

	timeout, err := parseDuration(serveTimeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	tools := parseToolList(serveTools)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := openSavedCatalog(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	server, err := mcp.New(cat, mcp.Config{
		Tools:      tools,
		Timeout:    timeout,
		Convention: conventionFrom(cfg.Convention),
		Version:    Version,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := writePIDFile(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write PID file: %v\n", err)
	}
	defer removePIDFile()

	// stdout carries the MCP protocol
	go func() {
		<-cmd.Context().Done()
		fmt.Fprintf(os.Stderr, "\nffscan serve: shutting down\n")
		cat.Close()
		removePIDFile()
		os.Exit(0)
	}()

	fmt.Fprintf(os.Stderr, "ffscan serve: starting MCP server on %s\n", relPath(cat.Path()))
	fmt.Fprintf(os.Stderr, "ffscan serve: tools: %v\n", server.ListTools())
	if timeout > 0 {
		fmt.Fprintf(os.Stderr, "ffscan serve: timeout: %v\n", timeout)
	}

	return server.ServeStdio()
}

// parseToolList splits --tools, allowing the short form (list_filters ->
// ffscan_list_filters).
func parseToolList(s string) []string {
	var tools []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "ffscan_") {
			t = "ffscan_" + t
		}
		tools = append(tools, t)
	}
	return tools
}

func parseDuration(s string) (time.Duration, error) {
	if s == "0" || s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func getPIDFilePath() (string, error) {
	dir, err := config.FindConfigDir(".")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "serve.pid"), nil
}

func writePIDFile() error {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return err
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func removePIDFile() {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return
	}
	os.Remove(pidPath)
}

// runningPID returns the PID of a live server, or 0.
func runningPID() int {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return 0
	}
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		removePIDFile()
		return 0
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		removePIDFile()
		return 0
	}
	// On Unix, FindProcess always succeeds, so we need to send signal 0 to check
	if err := process.Signal(syscall.Signal(0)); err != nil {
		removePIDFile()
		return 0
	}
	return pid
}

func checkServerStatus(cmd *cobra.Command) error {
	if pid := runningPID(); pid != 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Status: running (PID %d)\n", pid)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Status: not running")
	return nil
}

func stopServer(cmd *cobra.Command) error {
	pid := runningPID()
	if pid == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No server running")
		return nil
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	removePIDFile()
	fmt.Fprintf(cmd.OutOrStdout(), "Stopped server (PID %d)\n", pid)
	return nil
}

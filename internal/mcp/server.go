// Package mcp provides an MCP (Model Context Protocol) server for ffscan.
// This lets agents writing bindings query the filter catalog through MCP
// tools instead of reading the FFmpeg sources.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/zprp/ffscan/internal/batch"
	"github.com/zprp/ffscan/internal/catalog"
	"github.com/zprp/ffscan/internal/extract"
)

// Server wraps the MCP server with the catalog it serves
type Server struct {
	mcpServer    *server.MCPServer
	catalog      *catalog.Catalog
	conv         extract.Convention
	tools        map[string]bool
	lastActivity time.Time
	timeout      time.Duration
	mu           sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Tools      []string      // Which tools to expose (empty = all)
	Timeout    time.Duration // Inactivity timeout (0 = no timeout)
	Convention extract.Convention
	Version    string
}

// AllTools lists all available tools
var AllTools = []string{"ffscan_list_filters", "ffscan_show_filter", "ffscan_parse_failures", "ffscan_coverage"}

// New creates an MCP server over an open catalog. The server does not take
// ownership of cat.
func New(cat *catalog.Catalog, cfg Config) (*Server, error) {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	if cfg.Convention == (extract.Convention{}) {
		cfg.Convention = extract.DefaultConvention()
	}

	s := &Server{
		mcpServer:    server.NewMCPServer("ffscan", version, server.WithToolCapabilities(false)),
		catalog:      cat,
		conv:         cfg.Convention,
		tools:        make(map[string]bool),
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
	}

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = AllTools
	}
	for _, toolName := range toolsToRegister {
		if err := s.registerTool(toolName); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", toolName, err)
		}
		s.tools[toolName] = true
	}

	return s, nil
}

// registerTool registers a single tool with the MCP server
func (s *Server) registerTool(name string) error {
	switch name {
	case "ffscan_list_filters":
		s.mcpServer.AddTool(mcp.NewTool(name,
			mcp.WithDescription("List extracted filters whose name contains a pattern."),
			mcp.WithString("pattern",
				mcp.Description("Substring of the filter name (empty lists all)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum results (default: 50)"),
			),
		), s.handleListFilters)
	case "ffscan_show_filter":
		s.mcpServer.AddTool(mcp.NewTool(name,
			mcp.WithDescription("Show one filter with its description and options."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Exact filter name, e.g. hflip"),
			),
		), s.handleShowFilter)
	case "ffscan_parse_failures":
		s.mcpServer.AddTool(mcp.NewTool(name,
			mcp.WithDescription("List source files that could not be preprocessed or parsed."),
		), s.handleParseFailures)
	case "ffscan_coverage":
		s.mcpServer.AddTool(mcp.NewTool(name,
			mcp.WithDescription("Compare registered filters with extracted filters."),
		), s.handleCoverage)
	default:
		return fmt.Errorf("unknown tool: %s", name)
	}
	return nil
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}
	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			fmt.Fprintf(os.Stderr, "ffscan serve: timeout after %v of inactivity\n", s.timeout)
			os.Exit(0)
		}
	}
}

func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// ListTools returns the registered tool names, sorted
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for t := range s.tools {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	return tools
}

func (s *Server) handleListFilters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	pattern, _ := args["pattern"].(string)
	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	result, err := s.executeList(ctx, pattern, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleShowFilter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	name, ok := args["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	result, err := s.executeShow(ctx, strings.TrimSpace(name))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleParseFailures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	failures, err := s.catalog.Failures(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := toYAML(map[string]any{"count": len(failures), "failures": failures})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleCoverage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	registered, err := s.catalog.Registered(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filters, err := s.catalog.Filters(ctx, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cov := batch.ComputeCoverage(s.conv, registered, filters)

	result, err := toYAML(cov)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

// filterSummary is one line of a filter listing
type filterSummary struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Options     int    `yaml:"options"`
}

func (s *Server) executeList(ctx context.Context, pattern string, limit int) (string, error) {
	filters, err := s.catalog.Filters(ctx, pattern)
	if err != nil {
		return "", err
	}

	total := len(filters)
	if len(filters) > limit {
		filters = filters[:limit]
	}
	summaries := make([]filterSummary, 0, len(filters))
	for _, f := range filters {
		summaries = append(summaries, filterSummary{Name: f.Name, Description: f.Description, Options: len(f.Options)})
	}

	return toYAML(map[string]any{
		"total":   total,
		"shown":   len(summaries),
		"filters": summaries,
	})
}

func (s *Server) executeShow(ctx context.Context, name string) (string, error) {
	f, err := s.catalog.Filter(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		matches, lerr := s.catalog.Filters(ctx, name)
		if lerr == nil && len(matches) > 0 {
			names := make([]string, 0, len(matches))
			for _, m := range matches {
				names = append(names, m.Name)
			}
			return "", fmt.Errorf("filter %q not found; similar: %s", name, strings.Join(names, ", "))
		}
		return "", fmt.Errorf("filter %q not found", name)
	}
	if err != nil {
		return "", err
	}
	return toYAML(f)
}

func toYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}

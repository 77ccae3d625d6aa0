package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zprp/ffscan/internal/catalog"
	"github.com/zprp/ffscan/internal/extract"
	"github.com/zprp/ffscan/internal/output"
)

func setupServer(t *testing.T) *Server {
	t.Helper()

	cat, err := catalog.Open(catalog.BackendSQLite, t.TempDir())
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	doc := &output.Document{
		Version: output.SchemaVersion,
		Filters: []extract.Filter{
			{Name: "hflip", Description: "Horizontally flip the input video.", Options: []extract.FilterOption{}},
			{Name: "vflip", Description: "Flip the input video vertically.", Options: []extract.FilterOption{}},
			{Name: "volume", Description: "Change input volume.", Options: []extract.FilterOption{
				{Name: "volume", Type: "AV_OPT_TYPE_STRING", Description: "set volume adjustment expression"},
			}},
		},
		Failures: []extract.ParseFailure{
			{File: "libavfilter/vf_broken.c", Kind: extract.FailureToolchain, Message: "missing header"},
		},
		Registered: []string{"ff_vf_hflip", "ff_vf_vflip", "ff_af_volume", "ff_vf_scale"},
	}
	if err := cat.SaveRun(context.Background(), doc, "test"); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	s, err := New(cat, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestNew_RegistersTools(t *testing.T) {
	s := setupServer(t)
	got := s.ListTools()
	want := []string{"ffscan_coverage", "ffscan_list_filters", "ffscan_parse_failures", "ffscan_show_filter"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ListTools() = %v, want %v", got, want)
	}

	if _, err := New(s.catalog, Config{Tools: []string{"ffscan_nope"}}); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestHandleListFilters(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	res, err := s.handleListFilters(ctx, callRequest(map[string]any{"pattern": "flip"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "hflip") || !strings.Contains(text, "vflip") || strings.Contains(text, "name: volume") {
		t.Errorf("unexpected listing:\n%s", text)
	}

	res, _ = s.handleListFilters(ctx, callRequest(map[string]any{"limit": float64(1)}))
	text = resultText(t, res)
	if !strings.Contains(text, "total: 3") || !strings.Contains(text, "shown: 1") {
		t.Errorf("limit not applied:\n%s", text)
	}
}

func TestHandleShowFilter(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	res, _ := s.handleShowFilter(ctx, callRequest(map[string]any{"name": "volume"}))
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if text := resultText(t, res); !strings.Contains(text, "AV_OPT_TYPE_STRING") {
		t.Errorf("options missing:\n%s", text)
	}

	res, _ = s.handleShowFilter(ctx, callRequest(map[string]any{"name": "flip"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "similar: hflip, vflip") {
		t.Errorf("expected not-found error with suggestions, got %s", resultText(t, res))
	}

	res, _ = s.handleShowFilter(ctx, callRequest(map[string]any{}))
	if !res.IsError {
		t.Error("expected error result without name")
	}
}

func TestHandleParseFailuresAndCoverage(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	res, _ := s.handleParseFailures(ctx, callRequest(nil))
	if text := resultText(t, res); !strings.Contains(text, "vf_broken.c") || !strings.Contains(text, "kind: toolchain") {
		t.Errorf("unexpected failures result:\n%s", text)
	}

	res, _ = s.handleCoverage(ctx, callRequest(nil))
	text := resultText(t, res)
	if !strings.Contains(text, "extracted: 3") || !strings.Contains(text, "ff_vf_scale") {
		t.Errorf("unexpected coverage result:\n%s", text)
	}
}

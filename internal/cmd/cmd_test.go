package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zprp/ffscan/internal/output"
)

const flipSource = `
static const AVOption flip_options[] = {
    { "mode", "set flip mode", OFFSET(mode), AV_OPT_TYPE_INT, {.i64 = 0}, 0, 2, FLAGS },
    { "m",    "set flip mode", OFFSET(mode), AV_OPT_TYPE_INT, {.i64 = 0}, 0, 2, FLAGS },
    { NULL }
};

const AVFilter ff_vf_flip = {
    .name        = "flip",
    .description = "flips frame",
};
`

const nullSource = `
const AVFilter ff_vf_null = { .name = "null", .description = "pass the source unchanged" };
`

const registrationSource = `
extern const AVFilter ff_vf_flip;
extern const AVFilter ff_vf_null;
extern const AVFilter ff_vf_scale;
`

// setupProject creates a source tree and a config that parses it without
// preprocessing. It returns the config path.
func setupProject(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"libavfilter/allfilters.c": registrationSource,
		"libavfilter/vf_flip.c":    flipSource,
		"libavfilter/vf_null.c":    nullSource,
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := "source:\n  root: " + root + "\n" +
		"preprocess:\n  enabled: false\n  timeout: 10s\n" +
		"parse:\n  strict: false\n" +
		"storage:\n  backend: sqlite\n  path: " + filepath.Join(root, ".ffscan") + "\n"
	cfgPath := filepath.Join(root, "ffscan.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, cfgPath
}

// resetFlags restores the package-level flag variables between runs.
func resetFlags() {
	verbose, configPath, logFormat, forAgents = false, "", "text", false
	scanRoot, scanOut, scanFormat, scanMessage = "", "", "", ""
	scanSave, scanNoPreprocess, scanConfigure, scanQuiet = false, false, false, false
	scanJobs, scanExclude = -1, nil
	showFormat, listFormat, failuresFormat, diffFormat = "yaml", "yaml", "yaml", "yaml"
	failuresCoverage, diffSummary = false, false
	registeredRoot, registeredCount = "", false
	initForce = false
	serveListTools = false
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScanCommand(t *testing.T) {
	root, cfgPath := setupProject(t)
	docPath := filepath.Join(root, "filters.msgpack")

	if _, err := execute(t, "scan", "--config", cfgPath, "-q", "--save", "--out", docPath); err != nil {
		t.Fatalf("scan: %v", err)
	}

	doc, err := output.ReadFile(docPath, output.FormatMsgpack)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if len(doc.Filters) != 2 || doc.Filters[0].Name != "flip" || doc.Filters[1].Name != "null" {
		t.Fatalf("unexpected filters: %+v", doc.Filters)
	}
	if len(doc.Filters[0].Options) != 1 || doc.Filters[0].Options[0].Name != "mode" {
		t.Errorf("unexpected flip options: %+v", doc.Filters[0].Options)
	}
	if doc.Coverage.Registered != 3 || doc.Coverage.Extracted != 2 {
		t.Errorf("unexpected coverage: %+v", doc.Coverage)
	}

	out, err := execute(t, "show", "flip", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, `"name": "mode"`) {
		t.Errorf("show output missing option:\n%s", out)
	}

	if _, err := execute(t, "show", "fli", "--config", cfgPath); err == nil || !strings.Contains(err.Error(), "flip") {
		t.Errorf("expected suggestion error, got %v", err)
	}

	out, err = execute(t, "list", "ul", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, `"name": "null"`) || strings.Contains(out, `"name": "flip"`) {
		t.Errorf("unexpected list output:\n%s", out)
	}

	out, err = execute(t, "failures", "--config", cfgPath, "--coverage")
	if err != nil {
		t.Fatalf("failures: %v", err)
	}
	if !strings.Contains(out, "ff_vf_scale") {
		t.Errorf("coverage missing ff_vf_scale:\n%s", out)
	}

	if _, err := execute(t, "diff", "--config", cfgPath); err == nil || !strings.Contains(err.Error(), "dolt") {
		t.Errorf("expected dolt backend error, got %v", err)
	}
}

func TestScanCommand_StdoutDocument(t *testing.T) {
	_, cfgPath := setupProject(t)

	out, err := execute(t, "scan", "--config", cfgPath, "-q", "--format", "json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	doc, err := output.Read(strings.NewReader(out), output.FormatJSON)
	if err != nil {
		t.Fatalf("decode stdout: %v\n%s", err, out)
	}
	if len(doc.Filters) != 2 {
		t.Errorf("filters = %d, want 2", len(doc.Filters))
	}
}

func TestShowCommand_EmptyCatalog(t *testing.T) {
	_, cfgPath := setupProject(t)
	if _, err := execute(t, "show", "flip", "--config", cfgPath); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("expected empty catalog error, got %v", err)
	}
}

func TestRegisteredCommand(t *testing.T) {
	_, cfgPath := setupProject(t)

	out, err := execute(t, "registered", "--config", cfgPath)
	if err != nil {
		t.Fatalf("registered: %v", err)
	}
	if out != "ff_vf_flip\nff_vf_null\nff_vf_scale\n" {
		t.Errorf("registered output = %q", out)
	}

	out, err = execute(t, "registered", "--config", cfgPath, "--count")
	if err != nil {
		t.Fatalf("registered --count: %v", err)
	}
	if strings.TrimSpace(out) != "3" {
		t.Errorf("count = %q", out)
	}
}

func TestScanCommand_MissingRoot(t *testing.T) {
	_, cfgPath := setupProject(t)
	if _, err := execute(t, "scan", "--config", cfgPath, "-q", "--root", filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for a missing source root")
	}
}

func TestParseToolList(t *testing.T) {
	got := parseToolList("list_filters, ffscan_show_filter,,")
	if strings.Join(got, ",") != "ffscan_list_filters,ffscan_show_filter" {
		t.Errorf("parseToolList = %v", got)
	}
	if parseToolList("") != nil {
		t.Error("empty list should be nil")
	}
}

func TestServeListTools(t *testing.T) {
	out, err := execute(t, "serve", "--list-tools")
	if err != nil {
		t.Fatalf("serve --list-tools: %v", err)
	}
	if !strings.Contains(out, "ffscan_show_filter") {
		t.Errorf("missing tool in output:\n%s", out)
	}
}


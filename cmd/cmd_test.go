package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"

	"github.com/tettuan/breakdown-sub016/internal/config"
	"github.com/tettuan/breakdown-sub016/internal/db"
	"github.com/tettuan/breakdown-sub016/internal/resolver"
	"github.com/tettuan/breakdown-sub016/internal/strategy"
	"github.com/tettuan/breakdown-sub016/internal/workspace"
)

var generatedName = regexp.MustCompile(`^\d{8}_[0-9a-f]{7}\.md$`)

// Test helper to set up an initialized workspace
func setupTestProject(t *testing.T) (string, *session) {
	t.Helper()

	tmpDir := t.TempDir()

	if _, err := initProject(tmpDir, ""); err != nil {
		t.Fatalf("initProject failed: %v", err)
	}

	s, err := newSession(tmpDir)
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}

	return tmpDir, s
}

func TestInitProject(t *testing.T) {
	tmpDir := t.TempDir()

	res, err := initProject(tmpDir, "")
	if err != nil {
		t.Fatalf("initProject failed: %v", err)
	}

	wantWorkingDir := filepath.Join(tmpDir, ".agent", "breakdown")
	if res.WorkingDir != wantWorkingDir {
		t.Errorf("expected working dir '%s', got '%s'", wantWorkingDir, res.WorkingDir)
	}

	for _, dir := range []string{"project", "issue", "task", "temp"} {
		info, err := os.Stat(filepath.Join(wantWorkingDir, dir))
		if err != nil || !info.IsDir() {
			t.Errorf("layer directory %s was not created", dir)
		}
	}

	for _, dir := range []string{res.PromptDir, res.SchemaDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("base directory %s was not created", dir)
		}
	}

	if _, err := os.Stat(filepath.Join(config.DirPath(tmpDir), config.FileYAML)); err != nil {
		t.Error("config file was not written")
	}

	database, err := db.Open(tmpDir)
	if err != nil {
		t.Fatalf("db.Open failed: %v", err)
	}
	defer database.Close()

	ws, err := database.GetWorkspace()
	if err != nil {
		t.Fatalf("GetWorkspace failed: %v", err)
	}
	if ws == nil || ws.WorkingDir != wantWorkingDir {
		t.Errorf("expected recorded workspace '%s', got %+v", wantWorkingDir, ws)
	}

	if _, err := initProject(tmpDir, ""); err == nil || !strings.Contains(err.Error(), "already initialized") {
		t.Errorf("expected already initialized error, got %v", err)
	}
}

func TestInitProject_InvalidWorkingDir(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := initProject(tmpDir, "../outside"); err == nil {
		t.Fatal("expected error for working dir outside the project")
	}
	if _, err := os.Stat(config.DirPath(tmpDir)); !os.IsNotExist(err) {
		t.Error("config directory must not be created for an invalid configuration")
	}
}

func TestResolvePaths(t *testing.T) {
	root, s := setupTestProject(t)
	workingDir := filepath.Join(root, ".agent", "breakdown")

	res, err := resolvePaths(s, "task", resolver.Options{DestinationFile: "report.md", FromFile: "plan.md"}, true)
	if err != nil {
		t.Fatalf("resolvePaths failed: %v", err)
	}
	if want := filepath.Join(workingDir, "task", "report.md"); res.Output != want {
		t.Errorf("output = %q, want %q", res.Output, want)
	}
	if want := filepath.Join(workingDir, "task", "plan.md"); res.Input != want {
		t.Errorf("input = %q, want %q", res.Input, want)
	}

	res, err = resolvePaths(s, "issue", resolver.Options{}, true)
	if err != nil {
		t.Fatalf("resolvePaths failed: %v", err)
	}
	if dir := filepath.Dir(res.Output); dir != filepath.Join(workingDir, "issue") {
		t.Errorf("generated output in %q, want issue layer", dir)
	}
	if !generatedName.MatchString(filepath.Base(res.Output)) {
		t.Errorf("generated name %q does not match the expected format", filepath.Base(res.Output))
	}

	res, err = resolvePaths(s, "task", resolver.Options{DestinationFile: "report"}, false)
	if err != nil {
		t.Fatalf("resolvePaths failed: %v", err)
	}
	if dir := filepath.Dir(res.Output); dir != filepath.Join(workingDir, "report") {
		t.Errorf("output directory = %q, want %q", dir, filepath.Join(workingDir, "report"))
	}

	if _, err := resolvePaths(s, "epic", resolver.Options{}, false); err == nil {
		t.Error("expected error for unknown layer")
	}

	_, err = resolvePaths(s, "task", resolver.Options{DestinationFile: "../../escape.md"}, false)
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("expected access denied error, got %v", err)
	}
	if !strategy.IsKind(err, strategy.KindSecurityViolation) {
		t.Errorf("expected security violation kind, got %v", err)
	}

	database, err := db.Open(root)
	if err != nil {
		t.Fatalf("db.Open failed: %v", err)
	}
	defer database.Close()

	entries, err := database.ListResolutions(0, "")
	if err != nil {
		t.Fatalf("ListResolutions failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 recorded resolutions, got %d", len(entries))
	}

	var buf bytes.Buffer
	if err := showHistory(&buf, database, 10, "issue"); err != nil {
		t.Fatalf("showHistory failed: %v", err)
	}
	if strings.Count(buf.String(), "issue") != 2 {
		t.Errorf("expected one issue entry, got:\n%s", buf.String())
	}
	if err := showHistory(&buf, database, 10, "epic"); err == nil {
		t.Error("expected error for unknown layer filter")
	}
}

func TestCheckWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	b := workspace.NewBuilder(afero.NewOsFs())

	res := checkWorkspace(b, tmpDir, false)
	if res.OK {
		t.Fatal("expected check to fail on an empty directory")
	}
	if res.Layer != "project" {
		t.Errorf("expected failing layer 'project', got '%s'", res.Layer)
	}
	if !strings.Contains(res.Hint, "--fix") {
		t.Errorf("expected fix hint, got '%s'", res.Hint)
	}

	res = checkWorkspace(b, tmpDir, true)
	if !res.OK {
		t.Fatalf("expected fix to succeed: %s", res.Problem)
	}
	if len(res.Layers) != 4 {
		t.Errorf("expected 4 layers, got %d", len(res.Layers))
	}

	if err := os.RemoveAll(filepath.Join(tmpDir, "temp")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "temp"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	res = checkWorkspace(b, tmpDir, false)
	if res.OK || res.Layer != "temp" {
		t.Errorf("expected failure on layer 'temp', got %+v", res)
	}
	if !strings.Contains(res.Hint, "move the file") {
		t.Errorf("expected not-a-directory hint, got '%s'", res.Hint)
	}
}

func TestCollectStatus(t *testing.T) {
	root, s := setupTestProject(t)

	dir, err := s.workingDir()
	if err != nil {
		t.Fatalf("workingDir failed: %v", err)
	}
	if dir != filepath.Join(root, ".agent", "breakdown") {
		t.Errorf("unexpected working dir %s", dir)
	}

	for _, name := range []string{"task/a.md", "task/sub/b.md", "task/c.txt", "issue/i.md"} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("# doc"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	report, err := collectStatus(workspace.NewBuilder(afero.NewOsFs()), dir, workspace.DefaultPattern)
	if err != nil {
		t.Fatalf("collectStatus failed: %v", err)
	}

	counts := map[string]int{}
	states := map[string]string{}
	for _, ls := range report.Layers {
		counts[ls.Layer] = len(ls.Files)
		states[ls.Layer] = ls.Status
	}

	if counts["task"] != 2 {
		t.Errorf("expected 2 task documents, got %d", counts["task"])
	}
	if counts["issue"] != 1 {
		t.Errorf("expected 1 issue document, got %d", counts["issue"])
	}
	if states["bugs"] != "missing" {
		t.Errorf("expected bugs layer to be missing, got '%s'", states["bugs"])
	}
	if states["project"] != "ok" {
		t.Errorf("expected project layer ok, got '%s'", states["project"])
	}
}

func TestConfigure(t *testing.T) {
	root, _ := setupTestProject(t)

	var buf bytes.Buffer
	if err := configure(&buf, root, []string{"space_mode", "decoded"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	buf.Reset()
	if err := configure(&buf, root, []string{"space_mode"}); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "decoded" {
		t.Errorf("expected 'decoded', got '%s'", buf.String())
	}

	buf.Reset()
	if err := configure(&buf, root, nil); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, k := range config.Keys() {
		if !strings.Contains(buf.String(), k) {
			t.Errorf("listing is missing key %s", k)
		}
	}

	if err := configure(&buf, root, []string{"space_mode", "encoded"}); err == nil {
		t.Error("expected error for invalid space mode")
	}
	if err := configure(&buf, root, []string{"unknown"}); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestApplyPaths(t *testing.T) {
	st, err := strategy.NewPOSIX("/work")
	if err != nil {
		t.Fatal(err)
	}

	resolve := func(s strategy.Strategy, p string) (string, error) { return s.Resolve(p) }
	results := applyPaths(st, resolve, []string{"docs/a.md", "../etc/passwd", "b\x00"})

	if results[0].failed || results[0].Path != "/work/docs/a.md" {
		t.Errorf("unexpected result %+v", results[0])
	}
	if !results[1].failed || results[1].Kind != "SECURITY_VIOLATION" {
		t.Errorf("expected security violation, got %+v", results[1])
	}
	if !results[2].failed || results[2].Kind != "INVALID_PATH" {
		t.Errorf("expected invalid path, got %+v", results[2])
	}

	var buf bytes.Buffer
	if err := printPaths(&buf, results); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "/work/docs/a.md") {
		t.Errorf("output is missing the resolved path:\n%s", buf.String())
	}
}

func TestExecuteResolveJSON(t *testing.T) {
	root, _ := setupTestProject(t)
	t.Chdir(filepath.Join(root, ".agent"))
	t.Cleanup(func() {
		jsonOut = false
		resolveDestination = ""
		resolveNoRecord = false
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--json", "resolve", "task", "--destination", "report.md", "--no-record"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	var got resolveResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output %q: %v", buf.String(), err)
	}
	if got.Layer != "task" {
		t.Errorf("expected layer 'task', got '%s'", got.Layer)
	}
	if filepath.Base(got.Output) != "report.md" || filepath.Base(filepath.Dir(got.Output)) != "task" {
		t.Errorf("unexpected output path %s", got.Output)
	}
}

func TestNewSession_InvalidLogLevelFlag(t *testing.T) {
	root, _ := setupTestProject(t)

	logLevel = "chatty"
	t.Cleanup(func() { logLevel = "" })

	_, err := newSession(root)
	if err == nil || !strings.Contains(err.Error(), "--log-level") {
		t.Fatalf("expected invalid --log-level error, got %v", err)
	}

	logLevel = "debug"
	s, err := newSession(root)
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}
	if !s.log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug logging to be enabled by the flag")
	}
}

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pricelens/pricelens/internal/config"
	"github.com/pricelens/pricelens/internal/testutil"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// setupTestEnvironment isolates config discovery and the working directory,
// and resets flag state left behind by earlier tests.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change to test directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(originalDir)
	})

	viper.Reset()
	config.SetDefaults()

	scanOutDir = ""
	scanWrite = false
	scanPattern = ""
	scanTemplate = ""
	scanMarker = ""
	scanKeepOriginal = false
	watchOutDir = ""
	watchInteractive = false
	logsDir = ""

	return dir
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "pricelens" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "pricelens")
	}

	expectedCmds := []string{"scan", "watch", "config", "logs"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}

	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestScanCommand_DryRun(t *testing.T) {
	dir := setupTestEnvironment(t)
	page := testutil.WriteHTMLFile(t, dir, "store.html", testutil.PricePage("$19.99", "$5.00"))

	output, err := executeCommand(rootCmd, "scan", page)
	if err != nil {
		t.Fatalf("scan failed: %v\nOutput: %s", err, output)
	}

	if !strings.Contains(output, "CONVERSION SUMMARY") {
		t.Errorf("output missing summary:\n%s", output)
	}

	// Dry run must leave the source untouched.
	content, err := os.ReadFile(page)
	if err != nil {
		t.Fatalf("failed to read source: %v", err)
	}
	if strings.Contains(string(content), "plens-converted") {
		t.Error("dry run modified the source document")
	}
}

func TestScanCommand_OutDir(t *testing.T) {
	dir := setupTestEnvironment(t)
	testutil.WriteHTMLFile(t, dir, "store.html", testutil.PricePage("$19.99"))
	outDir := filepath.Join(dir, "out")

	output, err := executeCommand(rootCmd, "scan", "-o", outDir, "store.html")
	if err != nil {
		t.Fatalf("scan failed: %v\nOutput: %s", err, output)
	}

	copyPath := filepath.Join(outDir, "store.html")
	content, err := os.ReadFile(copyPath)
	if err != nil {
		t.Fatalf("annotated copy not written: %v", err)
	}
	if !strings.Contains(string(content), "plens-converted") {
		t.Errorf("annotated copy missing marker class:\n%s", content)
	}
	if !strings.Contains(string(content), "$19.99") {
		t.Errorf("annotated copy lost the price text:\n%s", content)
	}

	// The original stays untouched.
	original, _ := os.ReadFile(filepath.Join(dir, "store.html"))
	if strings.Contains(string(original), "plens-converted") {
		t.Error("scan with --out-dir modified the source document")
	}
}

func TestScanCommand_Write(t *testing.T) {
	dir := setupTestEnvironment(t)
	page := testutil.WriteHTMLFile(t, dir, "store.html", testutil.PricePage("$7.50"))

	if _, err := executeCommand(rootCmd, "scan", "-w", page); err != nil {
		t.Fatalf("scan -w failed: %v", err)
	}

	content, err := os.ReadFile(page)
	if err != nil {
		t.Fatalf("failed to read source: %v", err)
	}
	if !strings.Contains(string(content), "plens-converted") {
		t.Errorf("scan -w did not rewrite in place:\n%s", content)
	}
}

func TestScanCommand_WriteAndOutDirConflict(t *testing.T) {
	dir := setupTestEnvironment(t)
	page := testutil.WriteHTMLFile(t, dir, "store.html", testutil.PricePage("$1.00"))

	_, err := executeCommand(rootCmd, "scan", "-w", "-o", filepath.Join(dir, "out"), page)
	if err == nil {
		t.Fatal("expected error for --write with --out-dir")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestScanCommand_CustomPattern(t *testing.T) {
	dir := setupTestEnvironment(t)
	testutil.WriteHTMLFile(t, dir, "euro.html",
		"<html><body><p>Nur 99 EUR heute</p></body></html>")
	outDir := filepath.Join(dir, "out")

	_, err := executeCommand(rootCmd, "scan",
		"--pattern", `(\d+) EUR`,
		"--template", "{{index .Groups 0}} euros",
		"-o", outDir, "euro.html")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(outDir, "euro.html"))
	if err != nil {
		t.Fatalf("annotated copy not written: %v", err)
	}
	if !strings.Contains(string(content), "99 euros") {
		t.Errorf("template output missing:\n%s", content)
	}
}

func TestScanCommand_DirectoryWalk(t *testing.T) {
	dir := setupTestEnvironment(t)
	testutil.WriteHTMLFile(t, dir, "a.html", testutil.PricePage("$1.00"))
	testutil.WriteHTMLFile(t, dir, filepath.Join("nested", "b.htm"), testutil.PricePage("$2.00"))
	testutil.WriteHTMLFile(t, dir, "notes.txt", "no prices here")
	outDir := filepath.Join(dir, "out")

	output, err := executeCommand(rootCmd, "scan", "-o", outDir, ".")
	if err != nil {
		t.Fatalf("scan failed: %v\nOutput: %s", err, output)
	}

	if _, err := os.Stat(filepath.Join(outDir, "a.html")); err != nil {
		t.Errorf("a.html not converted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "nested", "b.htm")); err != nil {
		t.Errorf("nested/b.htm not converted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "notes.txt")); err == nil {
		t.Error("non-document file should not be converted")
	}
}

func TestScanCommand_NoDocuments(t *testing.T) {
	setupTestEnvironment(t)

	output, err := executeCommand(rootCmd, "scan", ".")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(output, "No documents found.") {
		t.Errorf("expected no-documents notice, got:\n%s", output)
	}
}

func TestScanCommand_Stdin(t *testing.T) {
	setupTestEnvironment(t)

	in := strings.NewReader(testutil.PricePage("$3.25"))
	buf := new(bytes.Buffer)
	rootCmd.SetIn(in)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"scan", "-"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("scan - failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "plens-converted") {
		t.Errorf("stdin output missing marker class:\n%s", out)
	}
	if !strings.Contains(out, "$3.25") {
		t.Errorf("stdin output lost the price text:\n%s", out)
	}
}

func TestConfigSetAndReadBack(t *testing.T) {
	setupTestEnvironment(t)

	if _, err := executeCommand(rootCmd, "config", "set", "scan.debounce_ms", "300"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	content, err := os.ReadFile(config.ConfigFile())
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(content), "debounce_ms: 300") {
		t.Errorf("config file missing new value:\n%s", content)
	}
}

func TestConfigSetUnknownKey(t *testing.T) {
	setupTestEnvironment(t)

	_, err := executeCommand(rootCmd, "config", "set", "bogus.key", "1")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown configuration key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigSetRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad overflow policy", "scan.overflow_policy", "silent"},
		{"bad log level", "logging.level", "verbose"},
		{"bad pattern", "rewrite.pattern", "([unclosed"},
		{"bad template", "rewrite.template", "{{.Match"},
		{"bad marker", "scan.marker_class", "two words"},
		{"bad bool", "watch.interactive", "yes"},
		{"bad int", "scan.parallelism", "many"},
		{"out of range", "scan.debounce_ms", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestEnvironment(t)
			_, err := executeCommand(rootCmd, "config", "set", tt.key, tt.value)
			if err == nil {
				t.Errorf("config set %s %s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestConfigInitCreatesFile(t *testing.T) {
	setupTestEnvironment(t)

	if _, err := executeCommand(rootCmd, "config", "init"); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	content, err := os.ReadFile(config.ConfigFile())
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	for _, want := range []string{"marker_class", "debounce_ms", "settle_ms", "logging"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("config template missing %q", want)
		}
	}

	// A second init refuses to clobber the file.
	if _, err := executeCommand(rootCmd, "config", "init"); err == nil {
		t.Error("config init should fail when the file exists")
	}
}

func TestLogsCommand_NoLogDir(t *testing.T) {
	setupTestEnvironment(t)

	// Logging to stderr configured: the command explains how to enable
	// file logging instead of failing.
	if _, err := executeCommand(rootCmd, "logs"); err != nil {
		t.Fatalf("logs failed: %v", err)
	}
}

func TestValidateOutDir(t *testing.T) {
	dir := setupTestEnvironment(t)
	site := filepath.Join(dir, "site")
	if err := os.MkdirAll(site, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	if err := validateOutDir(filepath.Join(site, "out"), []string{site}); err == nil {
		t.Error("out-dir inside the watched tree should be rejected")
	}
	if err := validateOutDir(filepath.Join(dir, "out"), []string{site}); err != nil {
		t.Errorf("out-dir outside the watched tree rejected: %v", err)
	}
	if err := validateOutDir("", []string{site}); err != nil {
		t.Errorf("empty out-dir rejected: %v", err)
	}
}

func TestMirrorName(t *testing.T) {
	dir := setupTestEnvironment(t)

	if got := mirrorName(filepath.Join(dir, "sub", "page.html")); got != filepath.Join("sub", "page.html") {
		t.Errorf("mirrorName inside cwd = %q, want %q", got, filepath.Join("sub", "page.html"))
	}
	if got := mirrorName("/somewhere/else/page.html"); got != "page.html" {
		t.Errorf("mirrorName outside cwd = %q, want %q", got, "page.html")
	}
}

func TestCollectDocuments(t *testing.T) {
	dir := setupTestEnvironment(t)
	a := testutil.WriteHTMLFile(t, dir, "a.html", "<html></html>")
	testutil.WriteHTMLFile(t, dir, "b.xhtml", "<html></html>")
	testutil.WriteHTMLFile(t, dir, "c.txt", "plain")

	files, err := collectDocuments([]string{dir}, []string{".html", ".xhtml"})
	if err != nil {
		t.Fatalf("collectDocuments failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("collected %d files, want 2: %v", len(files), files)
	}

	// Explicit files bypass the extension filter and duplicates collapse.
	files, err = collectDocuments([]string{filepath.Join(dir, "c.txt"), a, a}, []string{".html"})
	if err != nil {
		t.Fatalf("collectDocuments failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("collected %d files, want 2: %v", len(files), files)
	}
}

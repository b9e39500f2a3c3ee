package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etftools/etf/pkg/errors"
	"github.com/etftools/etf/pkg/observability"
	"github.com/etftools/etf/pkg/taxonomy"
)

const dataFile = "testdata/data.json"

type testCLI struct {
	*CLI
	logs, out, err bytes.Buffer
	cacheDir       string
	configDir      string
}

// newTestCLI returns a CLI with captured streams and private config and
// cache directories.
func newTestCLI(t *testing.T, stdin string) *testCLI {
	t.Helper()
	tc := &testCLI{cacheDir: t.TempDir(), configDir: t.TempDir()}
	t.Setenv("XDG_CACHE_HOME", tc.cacheDir)
	t.Setenv("XDG_CONFIG_HOME", tc.configDir)

	tc.CLI = New(&tc.logs, LogInfo)
	tc.In = strings.NewReader(stdin)
	tc.Out = &tc.out
	tc.Err = &tc.err
	tc.Interactive = false
	return tc
}

func (tc *testCLI) run(args ...string) error {
	root := tc.RootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func (tc *testCLI) writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := filepath.Join(tc.configDir, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func mustTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.Default()
	if err != nil {
		t.Fatalf("taxonomy.Default: %v", err)
	}
	return tax
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return v
}

func topLevelUIDs(doc map[string]any) []string {
	sec := doc["country_specific_data"].(map[string]any)
	var uids []string
	for _, n := range sec["nodes"].([]any) {
		uids = append(uids, n.(map[string]any)["uid"].(string))
	}
	return uids
}

func TestMetadataFind(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("metadata", "find", "Barley"); err != nil {
		t.Fatalf("find: %v", err)
	}

	out := tc.out.String()
	for _, want := range []string{
		"3.F.1.b. Barley",
		"c0b2ebc7-9b5d-45e8-b8e1-f590ed886e9e",
		"3. Agriculture / 3.F. Field burning of agricultural residues / 3.F.1. Cereals / 3.F.1.b. Barley",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("find output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(tc.err.String(), `1 node for "Barley" (name match)`) {
		t.Errorf("status line missing:\n%s", tc.err.String())
	}
}

func TestMetadataFindNavigation(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("metadata", "find", "energy"); err != nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.Contains(tc.err.String(), "1 navigation entry") {
		t.Errorf("navigation status missing:\n%s", tc.err.String())
	}
	if !strings.Contains(tc.out.String(), ".Metadata[0].dimension_instance[0]") {
		t.Errorf("navigation json path missing:\n%s", tc.out.String())
	}
}

func TestMetadataFindErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  errors.Code
		exit  int
	}{
		{"not found", "nonexistent", errors.ErrCodeSectorNotFound, errors.ExitNotFound},
		{"blank", "   ", errors.ErrCodeInvalidInput, errors.ExitMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestCLI(t, "").run("metadata", "find", tt.query)
			if !errors.Is(err, tt.code) {
				t.Fatalf("find(%q) error = %v, want %s", tt.query, err, tt.code)
			}
			if got := errors.ExitCode(err); got != tt.exit {
				t.Errorf("ExitCode = %d, want %d", got, tt.exit)
			}
		})
	}
}

func TestConfigAliases(t *testing.T) {
	tc := newTestCLI(t, "")
	tc.writeConfig(t, "[aliases]\nfuel = \"1.A\"\n")

	if err := tc.run("metadata", "find", "fuel"); err != nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.Contains(tc.out.String(), "1.A. Fuel combustion") {
		t.Errorf("alias from config not used:\n%s", tc.out.String())
	}
}

func TestMetadataTree(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("metadata", "tree", "3.F.1", "--depth", "1"); err != nil {
		t.Fatalf("tree: %v", err)
	}
	out := tc.out.String()
	if !strings.HasPrefix(out, "digraph G {") {
		t.Errorf("tree output is not DOT:\n%s", out)
	}
	if got := strings.Count(out, " -> "); got != 4 {
		t.Errorf("tree has %d edges, want 4", got)
	}
}

func TestMetadataTreeToFile(t *testing.T) {
	tc := newTestCLI(t, "")
	path := filepath.Join(t.TempDir(), "cereals.svg")
	if err := tc.run("metadata", "tree", "cereal", "--format", "SVG", "-o", path); err != nil {
		t.Fatalf("tree: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("output file is not SVG")
	}
	if !strings.Contains(tc.err.String(), "Rendered 2 subtrees") {
		t.Errorf("status missing:\n%s", tc.err.String())
	}
}

func TestMetadataTreeErrors(t *testing.T) {
	tests := []struct {
		args []string
		code errors.Code
	}{
		{[]string{"3.F", "--format", "gif"}, errors.ErrCodeInvalidInput},
		{[]string{"3.F", "--depth", "-1"}, errors.ErrCodeInvalidInput},
		{[]string{"nonexistent"}, errors.ErrCodeSectorNotFound},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			err := newTestCLI(t, "").run(append([]string{"metadata", "tree"}, tt.args...)...)
			if !errors.Is(err, tt.code) {
				t.Errorf("tree error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestMetadataBrowseNeedsTerminal(t *testing.T) {
	err := newTestCLI(t, "").run("metadata", "browse")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("browse error = %v, want INVALID_INPUT", err)
	}
}

func TestDataFilter(t *testing.T) {
	tc := newTestCLI(t, "")
	out := filepath.Join(t.TempDir(), "energy.json")
	if err := tc.run("data", "filter", "-s", "energy", dataFile, out); err != nil {
		t.Fatalf("filter: %v", err)
	}

	uids := topLevelUIDs(readJSON(t, out))
	want := []string{"3665c27e-d055-47d7-8393-5f934f3ced9d", "5f0e6c1a2b3c4d5e6f708192", "6a7b8c9d0e1f2a3b4c5d6e7f"}
	if strings.Join(uids, ",") != strings.Join(want, ",") {
		t.Errorf("top-level nodes = %v, want %v", uids, want)
	}
	if !strings.Contains(tc.err.String(), "Kept 6 nodes") {
		t.Errorf("status missing:\n%s", tc.err.String())
	}
	if !strings.Contains(tc.logs.String(), "filtered out grids") {
		t.Errorf("per-collection log missing:\n%s", tc.logs.String())
	}
}

func TestDataFilterStdio(t *testing.T) {
	data, err := os.ReadFile(dataFile)
	if err != nil {
		t.Fatal(err)
	}
	tc := newTestCLI(t, string(data))
	if err := tc.run("data", "filter", "-s", "3.F.1.b"); err != nil {
		t.Fatalf("filter: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(tc.out.Bytes(), &doc); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, tc.out.String())
	}
	if uids := topLevelUIDs(doc); len(uids) != 1 || uids[0] != "c0b2ebc7-9b5d-45e8-b8e1-f590ed886e9e" {
		t.Errorf("top-level nodes = %v, want Barley only", uids)
	}
}

func TestDataFilterUnknownSectorWritesNothing(t *testing.T) {
	tc := newTestCLI(t, "")
	out := filepath.Join(t.TempDir(), "out.json")

	err := tc.run("data", "filter", "-s", "nonexistent", dataFile, out)
	if !errors.Is(err, errors.ErrCodeSectorNotFound) {
		t.Fatalf("filter error = %v, want SECTOR_NOT_FOUND", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output file written on failure (stat err %v)", err)
	}
}

func TestDataFilterMissingInput(t *testing.T) {
	err := newTestCLI(t, "").run("data", "filter", "-s", "energy", "testdata/missing.json")
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("filter error = %v, want FILE_NOT_FOUND", err)
	}
	if got := errors.ExitCode(err); got != errors.ExitFailure {
		t.Errorf("ExitCode = %d, want %d", got, errors.ExitFailure)
	}
}

func TestDataFix(t *testing.T) {
	tc := newTestCLI(t, "")
	out := filepath.Join(t.TempDir(), "fixed.json")
	if err := tc.run("data", "fix", "-r", "all", dataFile, out); err != nil {
		t.Fatalf("fix: %v", err)
	}

	status := tc.err.String()
	for _, want := range []string{"PARENTS: 1 node fixed", "GRIDS: 2 nodes fixed"} {
		if !strings.Contains(status, want) {
			t.Errorf("status missing %q:\n%s", want, status)
		}
	}
	doc := readJSON(t, out)
	if got := len(topLevelUIDs(doc)); got != 5 {
		t.Errorf("%d top-level nodes after fix, want 5", got)
	}

	// A second run over the fixed file has nothing left to repair.
	again := newTestCLI(t, "")
	if err := again.run("data", "fix", "-r", "PARENTS,GRIDS", out, filepath.Join(t.TempDir(), "again.json")); err != nil {
		t.Fatalf("second fix: %v", err)
	}
	for _, want := range []string{"PARENTS: 0 nodes fixed", "GRIDS: 0 nodes fixed"} {
		if !strings.Contains(again.err.String(), want) {
			t.Errorf("second run status missing %q:\n%s", want, again.err.String())
		}
	}
}

func TestDataFixUnknownRule(t *testing.T) {
	tc := newTestCLI(t, "")
	out := filepath.Join(t.TempDir(), "fixed.json")

	err := tc.run("data", "fix", "-r", "GRIDS", "-r", "BOGUS", dataFile, out)
	if !errors.Is(err, errors.ErrCodeUnknownRule) {
		t.Fatalf("fix error = %v, want UNKNOWN_RULE", err)
	}
	if errors.ExitCode(err) != errors.ExitNotFound {
		t.Errorf("ExitCode = %d, want %d", errors.ExitCode(err), errors.ExitNotFound)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output file written on failure (stat err %v)", err)
	}
}

func TestDataFixRequiresRule(t *testing.T) {
	if err := newTestCLI(t, "").run("data", "fix", dataFile); err == nil {
		t.Error("fix without -r should fail")
	}
}

func TestDataStats(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("data", "stats", dataFile); err != nil {
		t.Fatalf("stats: %v", err)
	}
	out := tc.out.String()
	for _, want := range []string{"Part", "Objects", "Country specific nodes", "Country specific drop-downs"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestDataStatsMalformed(t *testing.T) {
	tc := newTestCLI(t, "[1, 2]")
	err := tc.run("data", "stats", "-")
	if !errors.Is(err, errors.ErrCodeMalformedData) {
		t.Errorf("stats error = %v, want MALFORMED_DATA", err)
	}
	if errors.ExitCode(err) != errors.ExitMalformed {
		t.Errorf("ExitCode = %d, want %d", errors.ExitCode(err), errors.ExitMalformed)
	}
}

func TestSnapshotCache(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("-v", "metadata", "find", "1.A"); err != nil {
		t.Fatalf("first find: %v", err)
	}
	if !strings.Contains(tc.logs.String(), "snapshot cache miss") {
		t.Errorf("first run should miss the cache:\n%s", tc.logs.String())
	}
	entries, _ := filepath.Glob(filepath.Join(tc.cacheDir, appName, "*", "*.json"))
	if len(entries) != 1 {
		t.Fatalf("cache holds %d entries, want 1", len(entries))
	}

	// A new process finds the stored snapshot.
	second := New(&tc.logs, LogInfo)
	second.Out, second.Err, second.Interactive = &tc.out, &tc.err, false
	tc.logs.Reset()
	root := second.RootCommand()
	root.SetArgs([]string{"-v", "metadata", "find", "1.A"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("second find: %v", err)
	}
	if !strings.Contains(tc.logs.String(), "cached=true") {
		t.Errorf("second run should load the snapshot:\n%s", tc.logs.String())
	}
}

func TestNoCache(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("--no-cache", "metadata", "find", "1.A"); err != nil {
		t.Fatalf("find: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tc.cacheDir, appName)); !os.IsNotExist(err) {
		t.Errorf("--no-cache created the cache dir (stat err %v)", err)
	}
}

func TestCorruptSnapshotIsReplaced(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("metadata", "find", "1.A"); err != nil {
		t.Fatalf("find: %v", err)
	}
	entries, _ := filepath.Glob(filepath.Join(tc.cacheDir, appName, "*", "*.json"))
	if len(entries) != 1 {
		t.Fatalf("cache holds %d entries, want 1", len(entries))
	}
	entry, _ := json.Marshal(map[string]any{"data": []byte("not msgpack")})
	if err := os.WriteFile(entries[0], entry, 0644); err != nil {
		t.Fatal(err)
	}

	again := newTestCLI(t, "")
	t.Setenv("XDG_CACHE_HOME", tc.cacheDir)
	if err := again.run("metadata", "find", "1.A"); err != nil {
		t.Fatalf("find with corrupt snapshot: %v", err)
	}
	if !strings.Contains(again.logs.String(), "discarding unreadable snapshot") {
		t.Errorf("corrupt snapshot not reported:\n%s", again.logs.String())
	}
}

func TestMetadataFileFlag(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("-m", "../../pkg/taxonomy/testdata/metadata.json", "metadata", "find", "3.A.1"); err != nil {
		t.Fatalf("find with -m: %v", err)
	}
	if !strings.Contains(tc.out.String(), "3.A.1. Cattle") {
		t.Errorf("find output:\n%s", tc.out.String())
	}

	err := newTestCLI(t, "").run("-m", "testdata/missing.json", "metadata", "find", "1")
	if !errors.Is(err, errors.ErrCodeTaxonomyLoad) {
		t.Errorf("missing -m file error = %v, want TAXONOMY_LOAD", err)
	}
	if got := errors.ExitCode(err); got != errors.ExitInternal {
		t.Errorf("missing -m file ExitCode = %d, want %d", got, errors.ExitInternal)
	}
}

func TestInvalidConfig(t *testing.T) {
	tc := newTestCLI(t, "")
	tc.writeConfig(t, "log_level = \"loud\"\n")
	if err := tc.run("data", "stats", dataFile); err == nil {
		t.Error("invalid config should fail the command")
	}
}

func TestCacheCommands(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("cache", "path"); err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got, want := strings.TrimSpace(tc.out.String()), filepath.Join(tc.cacheDir, appName); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}

	if err := tc.run("metadata", "find", "1"); err != nil {
		t.Fatalf("find: %v", err)
	}
	tc.err.Reset()
	if err := tc.run("cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(tc.err.String(), "Cleared 1 cached entries") {
		t.Errorf("clear status:\n%s", tc.err.String())
	}

	tc.err.Reset()
	if err := tc.run("cache", "clear"); err != nil {
		t.Fatalf("second cache clear: %v", err)
	}
	if !strings.Contains(tc.err.String(), "Cache is empty") {
		t.Errorf("second clear status:\n%s", tc.err.String())
	}
}

func TestCacheDirConfig(t *testing.T) {
	tc := newTestCLI(t, "")
	dir := filepath.Join(t.TempDir(), "snapshots")
	tc.writeConfig(t, "[cache]\ndir = \""+filepath.ToSlash(dir)+"\"\n")
	if err := tc.run("cache", "path"); err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got := strings.TrimSpace(tc.out.String()); got != filepath.ToSlash(dir) {
		t.Errorf("cache path = %q, want %q", got, dir)
	}
}

func TestVersionCommand(t *testing.T) {
	tc := newTestCLI(t, "")
	if err := tc.run("version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	out := tc.out.String()
	for _, want := range []string{"version: ", "metadata: ETF reference metadata (reduced) v2.4.1 (2024-06-12)", "rules: [PARENTS GRIDS]"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/custom-cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirHome(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCompletion(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"rules", []string{"__complete", "data", "fix", "-r", ""}, []string{"PARENTS", "GRIDS", "ALL"}},
		{"rule prefix", []string{"__complete", "data", "fix", "-r", "g"}, []string{"GRIDS"}},
		{"sectors", []string{"__complete", "data", "filter", "-s", "e"}, []string{"energy"}},
		{"shell", []string{"__complete", "completion", "z"}, []string{"zsh"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCLI(t, "")
			if err := tc.run(tt.args...); err != nil {
				t.Fatalf("%v: %v", tt.args, err)
			}
			var got []string
			for _, line := range strings.Split(tc.out.String(), "\n") {
				if line != "" && !strings.HasPrefix(line, ":") {
					got = append(got, strings.SplitN(line, "\t", 2)[0])
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("completions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompletionConfigAliases(t *testing.T) {
	tc := newTestCLI(t, "")
	tc.cfg.Aliases = map[string]string{"fuel": "1.A"}

	got, _ := tc.completeSectors(nil, nil, "f")
	if strings.Join(got, ",") != "fuel" {
		t.Errorf("completeSectors(f) = %v, want [fuel]", got)
	}
}

type filterRecorder struct {
	observability.NoopPipelineHooks
	sectors []string
	removed int
}

func (r *filterRecorder) OnFilterComplete(_ context.Context, sector string, removed int, _ time.Duration, err error) {
	if err == nil {
		r.sectors = append(r.sectors, sector)
		r.removed = removed
	}
}

func TestDataFilterReportsHooks(t *testing.T) {
	rec := &filterRecorder{}
	observability.SetPipelineHooks(rec)
	defer observability.Reset()

	tc := newTestCLI(t, "")
	if err := tc.run("data", "filter", "-s", "energy", dataFile, filepath.Join(t.TempDir(), "out.json")); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(rec.sectors) != 1 || rec.sectors[0] != "energy" {
		t.Errorf("OnFilterComplete sectors = %v, want [energy]", rec.sectors)
	}
	if rec.removed == 0 {
		t.Error("OnFilterComplete removed = 0, want the dropped nodes")
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
		code int
	}{
		{"sector", errors.SectorNotFound("nowhere"), "nowhere", errors.ExitNotFound},
		{"malformed", errors.MalformedData(".country_specific_data", "missing nodes"), "missing nodes", errors.ExitMalformed},
		{"plain", os.ErrPermission, "permission denied", errors.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCLI(t, "")
			if got := tc.ReportError(tt.err); got != tt.code {
				t.Errorf("ReportError() = %d, want %d", got, tt.code)
			}
			if !strings.Contains(tc.err.String(), tt.msg) {
				t.Errorf("stderr %q does not contain %q", tc.err.String(), tt.msg)
			}
		})
	}
}

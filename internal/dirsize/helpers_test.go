package dirsize

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// workerModeEnv switches the test binary into a worker process.
const workerModeEnv = "DIRSIZE_TEST_WORKER"

func TestMain(m *testing.M) {
	switch os.Getenv(workerModeEnv) {
	case "serve":
		if err := Serve(context.Background(), os.Stdin, os.Stdout, Options{}); err != nil {
			os.Exit(1)
		}

		os.Exit(0)
	case "crash":
		os.Exit(3)
	case "crash-on-boom":
		crashOnBoom()
	}

	os.Exit(m.Run())
}

// crashOnBoom behaves like a worker but dies when asked to measure a
// directory named "boom".
func crashOnBoom() {
	in := bufio.NewScanner(os.Stdin)
	enc := json.NewEncoder(os.Stdout)

	for in.Scan() {
		var req workerRequest
		if err := json.Unmarshal(in.Bytes(), &req); err != nil {
			os.Exit(1)
		}

		if filepath.Base(req.Path) == "boom" {
			os.Exit(4)
		}

		if err := enc.Encode(handleRequest(context.Background(), req, Options{}.withDefaults().Logger)); err != nil {
			os.Exit(1)
		}
	}

	os.Exit(0)
}

// workerOptions runs the test binary itself as the worker process.
func workerOptions(mode string) Options {
	return Options{
		WorkerCommand: []string{os.Args[0]},
		WorkerEnv:     []string{workerModeEnv + "=" + mode},
	}
}

// allStrategies returns options for every strategy, with the hybrid
// strategy backed by the test binary.
func allStrategies() map[Strategy]Options {
	hybrid := workerOptions("serve")
	hybrid.Strategy = StrategyHybrid
	hybrid.ProcessLimit = 2
	hybrid.ThreadLimit = 2

	return map[Strategy]Options{
		StrategySequential: {Strategy: StrategySequential},
		StrategyThread:     {Strategy: StrategyThread, ThreadLimit: 3},
		StrategyWalk:       {Strategy: StrategyWalk, ThreadLimit: 3},
		StrategyHybrid:     hybrid,
	}
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func mkdir(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(path, 0o755))
}

// exampleTree builds root/fileA (100B), root/dirB/fileC (50B) and an empty root/dirD.
func exampleTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "fileA"), 100)
	writeFile(t, filepath.Join(root, "dirB", "fileC"), 50)
	mkdir(t, filepath.Join(root, "dirD"))

	return root
}

// layout builds files from "relative/path" -> size and returns the expected total.
func layout(t *testing.T, root string, files map[string]int) int64 {
	t.Helper()

	var total int64

	for rel, size := range files {
		if strings.HasSuffix(rel, "/") {
			mkdir(t, filepath.Join(root, filepath.FromSlash(rel)))

			continue
		}

		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), size)
		total += int64(size)
	}

	return total
}

func symlink(t *testing.T, target, link string) {
	t.Helper()

	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
}

// lockDir makes a directory unreadable for the duration of the test.
func lockDir(t *testing.T, path string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}

	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}

	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { _ = os.Chmod(path, 0o755) })
}

type errorKey struct {
	Path string
	Kind ErrorKind
}

func errorKeys(errs []ScanError) []errorKey {
	keys := make([]errorKey, 0, len(errs))
	for _, e := range errs {
		keys = append(keys, errorKey{Path: e.Path, Kind: e.Kind})
	}

	return keys
}

// realPath resolves symlinks in the temp dir so paths compare with results.
func realPath(t *testing.T, path string) string {
	t.Helper()

	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)

	return resolved
}

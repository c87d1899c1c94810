package magic

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTemp writes contents to name inside dir and returns the full path,
// failing the test on error. Shared by the magic package's table-driven
// tests, the way the teacher's test_helper.go centralizes fixture setup.
func writeTemp(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writeTemp %s: %v", path, err)
	}
	return path
}

package hook

import (
	"os"
	"path/filepath"
	"testing"
)

// writeHook creates <dir>/<name>/hook.yaml and an executable run.sh with
// the given body.
func writeHook(t *testing.T, dir, name, manifest, script string) string {
	t.Helper()

	hookDir := filepath.Join(dir, name)
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if script != "" {
		if err := os.WriteFile(filepath.Join(hookDir, "run.sh"), []byte(script), 0755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}
	}
	return hookDir
}

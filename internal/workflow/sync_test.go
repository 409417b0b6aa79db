package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCopiesTemplateIntoTargets(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "main", "README.md"), "template readme")
	writeFile(t, filepath.Join(repoRoot, "main", "src", "app.py"), "print()")
	writeFile(t, filepath.Join(repoRoot, "main", "secret.txt"), "excluded")
	writeFile(t, filepath.Join(repoRoot, "main", ".git", "HEAD"), "ref")
	writeFile(t, filepath.Join(repoRoot, "unit-a", "existing.txt"), "keep me")
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, "unit-b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, ".hidden"), 0o755))

	err := Sync(SyncOptions{
		RepoRoot:     repoRoot,
		TemplateDir:  "main",
		ExcludeNames: []string{"secret.txt"},
		Logger:       discardLogger(),
	})
	require.NoError(t, err)

	for _, unit := range []string{"unit-a", "unit-b"} {
		data, err := os.ReadFile(filepath.Join(repoRoot, unit, "README.md"))
		require.NoError(t, err)
		assert.Equal(t, "template readme", string(data))

		data, err = os.ReadFile(filepath.Join(repoRoot, unit, "src", "app.py"))
		require.NoError(t, err)
		assert.Equal(t, "print()", string(data))

		assert.NoFileExists(t, filepath.Join(repoRoot, unit, "secret.txt"))
		assert.NoDirExists(t, filepath.Join(repoRoot, unit, ".git"))
	}

	// Existing files outside the template survive.
	data, err := os.ReadFile(filepath.Join(repoRoot, "unit-a", "existing.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	// Hidden folders are not targets.
	assert.NoFileExists(t, filepath.Join(repoRoot, ".hidden", "README.md"))
}

func TestSyncExplicitTargets(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "main", "f.txt"), "x")
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, "only"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, "other"), 0o755))

	err := Sync(SyncOptions{
		RepoRoot:    repoRoot,
		TemplateDir: "main",
		Targets:     []string{"only", "missing"},
		Logger:      discardLogger(),
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(repoRoot, "only", "f.txt"))
	assert.NoFileExists(t, filepath.Join(repoRoot, "other", "f.txt"))
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "main", "f.txt"), "x")
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, "unit"), 0o755))

	err := Sync(SyncOptions{
		RepoRoot:    repoRoot,
		TemplateDir: "main",
		DryRun:      true,
		Logger:      discardLogger(),
	})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(repoRoot, "unit", "f.txt"))
}

func TestSyncConfigErrors(t *testing.T) {
	repoRoot := t.TempDir()

	err := Sync(SyncOptions{RepoRoot: repoRoot, Logger: discardLogger()})
	require.Error(t, err)

	err = Sync(SyncOptions{RepoRoot: repoRoot, TemplateDir: "main", Logger: discardLogger()})
	require.Error(t, err)
}

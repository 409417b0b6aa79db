// Package config resolves runtime configuration from the environment and an
// optional .env file at the repository root. Values in .env win over the
// process environment so runs stay reproducible across shells.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries every externally configurable value. Core extraction logic
// receives these as explicit fields; nothing reads the environment past
// Load.
type Config struct {
	// AssistantLabel prefixes assistant turns in rendered transcripts.
	AssistantLabel string `env:"ASSISTANT_LABEL" envDefault:"GitHub Copilot"`

	// PromptFile is the per-unit prompt/description file name, copied from
	// the repository root into units that lack it.
	PromptFile string `env:"PR_DESCRIPTION_FILE" envDefault:"final_prompt.txt"`

	// UnitMarker identifies unit directories: immediate subdirectories of
	// the repository root containing this file.
	UnitMarker string `env:"UNIT_MARKER_FILE" envDefault:"pyproject.toml"`

	// TemplateDir is the template folder name; it is never treated as a
	// unit and is the source for the sync command.
	TemplateDir string `env:"MAIN_FOLDER_NAME" envDefault:"main"`

	// ExcludeNames are file and directory names skipped by sync.
	ExcludeNames []string `env:"EXCLUDE_NAMES"`

	// Variants are the editor install flavors whose workspace storage is
	// searched, in order.
	Variants []string `env:"VSCODE_VARIANTS" envDefault:"Code,Code - Insiders"`

	// AppData locates the editor's per-user data directory (Windows
	// layout). Required unless StorageRoots is set explicitly.
	AppData string `env:"APPDATA"`

	// StorageRoots overrides the workspace storage search roots entirely.
	StorageRoots []string `env:"STORAGE_ROOTS"`
}

// Load reads .env from repoRoot (when present) and parses the environment.
func Load(repoRoot string) (Config, error) {
	dotenv := filepath.Join(repoRoot, ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Overload(dotenv); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ResolveStorageRoots returns the workspace storage directories to search.
// An explicit STORAGE_ROOTS wins; otherwise roots are derived from APPDATA
// and the editor variants. A missing APPDATA in that case is a fatal
// configuration error, not a degraded run.
func (c Config) ResolveStorageRoots() ([]string, error) {
	if len(c.StorageRoots) > 0 {
		return c.StorageRoots, nil
	}
	if c.AppData == "" {
		return nil, errors.New("APPDATA is not set; set it or provide STORAGE_ROOTS in .env")
	}
	roots := make([]string, 0, len(c.Variants))
	for _, variant := range c.Variants {
		variant = strings.TrimSpace(variant)
		if variant == "" {
			continue
		}
		roots = append(roots, filepath.Join(c.AppData, variant, "User", "workspaceStorage"))
	}
	return roots, nil
}

// FindRepoRoot walks from start upward to the nearest directory holding the
// prompt file or a .env, falling back to start itself. This lets the tool
// run from anywhere inside the repository.
func FindRepoRoot(start, promptFile string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for cur := dir; ; {
		if fileExists(filepath.Join(cur, promptFile)) || fileExists(filepath.Join(cur, ".env")) {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WorkspaceURI renders folder the way the editor records it in
// workspace.json. Windows paths come out as file:///c%3A/... with a
// lowercase percent-encoded drive; other absolute paths as file:///... with
// each segment percent-encoded.
func WorkspaceURI(folder string) (string, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", folder, err)
	}
	abs = strings.ReplaceAll(abs, `\`, "/")

	if len(abs) >= 2 && abs[1] == ':' {
		drive := strings.ToLower(abs[:1])
		return "file:///" + drive + "%3A" + encodePath(abs[2:]), nil
	}
	if !strings.HasPrefix(abs, "/") {
		return "", fmt.Errorf("unexpected relative path: %s", abs)
	}
	return "file://" + encodePath(abs), nil
}

// encodePath percent-encodes each path segment, keeping separators.
func encodePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

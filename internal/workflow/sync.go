package workflow

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// SyncOptions controls template propagation into unit folders.
type SyncOptions struct {
	RepoRoot     string
	TemplateDir  string
	Targets      []string // explicit target names; empty means all units
	ExcludeNames []string
	DryRun       bool
	Logger       *log.Logger
}

// Sync copies the template folder's contents into each target folder,
// overwriting files but never deleting anything already there. Dot
// directories, .git and excluded names are skipped.
func Sync(cfg SyncOptions) error {
	if cfg.TemplateDir == "" {
		return fmt.Errorf("MAIN_FOLDER_NAME is not configured")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", 0)
	}

	templatePath := filepath.Join(cfg.RepoRoot, cfg.TemplateDir)
	if info, err := os.Stat(templatePath); err != nil || !info.IsDir() {
		return fmt.Errorf("template folder not found: %s", templatePath)
	}

	targets, err := syncTargets(cfg)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		logger.Printf("no target folders found")
		return nil
	}

	exclude := make(map[string]bool, len(cfg.ExcludeNames))
	for _, name := range cfg.ExcludeNames {
		if name = strings.TrimSpace(name); name != "" {
			exclude[name] = true
		}
	}

	for _, target := range targets {
		if err := copyTree(templatePath, target, exclude, cfg.DryRun, logger); err != nil {
			return err
		}
	}
	return nil
}

func syncTargets(cfg SyncOptions) ([]string, error) {
	if len(cfg.Targets) > 0 {
		targets := make([]string, 0, len(cfg.Targets))
		for _, name := range cfg.Targets {
			path := filepath.Join(cfg.RepoRoot, name)
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				targets = append(targets, path)
			}
		}
		return targets, nil
	}

	entries, err := os.ReadDir(cfg.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("read repo root: %w", err)
	}
	var targets []string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == cfg.TemplateDir || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		targets = append(targets, filepath.Join(cfg.RepoRoot, entry.Name()))
	}
	return targets, nil
}

func copyTree(src, dst string, exclude map[string]bool, dryRun bool, logger *log.Logger) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if rel != "." && (exclude[d.Name()] || d.Name() == ".git" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			if dryRun {
				return nil
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}

		if exclude[d.Name()] {
			return nil
		}
		target := filepath.Join(dst, rel)
		if dryRun {
			logger.Printf("[dry] copy %s -> %s", filepath.ToSlash(path), filepath.ToSlash(target))
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	return out.Close()
}

// Package workflow orchestrates artifact collection across unit folders:
// one transcript file per unit plus an aggregate timing manifest at the
// repository root.
package workflow

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghcpd/Bugbash-workflow/internal/config"
	"github.com/ghcpd/Bugbash-workflow/internal/document"
	"github.com/ghcpd/Bugbash-workflow/internal/relativize"
	"github.com/ghcpd/Bugbash-workflow/internal/store"
	"github.com/ghcpd/Bugbash-workflow/internal/timing"
	"github.com/ghcpd/Bugbash-workflow/internal/transcript"
)

// TimingManifestName is the aggregate timing file written at the repository
// root.
const TimingManifestName = "time.txt"

// Collector gathers per-unit transcripts and timings.
type Collector struct {
	Config       config.Config
	RepoRoot     string
	StorageRoots []string
	Extractor    transcript.Extractor
	Estimator    timing.Estimator
	Logger       *log.Logger
}

// Summary reports what a collection run did.
type Summary struct {
	Units            int
	Transcripts      int
	EmptyTranscripts int
	StorageFound     int
	StorageMissing   int
	Timings          int
}

// New builds a Collector from resolved configuration.
func New(cfg config.Config, repoRoot string, storageRoots []string, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.New(os.Stderr, "[collect] ", 0)
	}
	return &Collector{
		Config:       cfg,
		RepoRoot:     repoRoot,
		StorageRoots: storageRoots,
		Extractor:    transcript.Extractor{AssistantLabel: cfg.AssistantLabel},
		Estimator:    timing.Estimator{},
		Logger:       logger,
	}
}

// Run processes every unit folder in case-insensitive name order and then
// writes the timing manifest. Per-unit failures degrade to absent artifacts;
// only filesystem errors writing outputs abort the run.
func (c *Collector) Run() (Summary, error) {
	var summary Summary

	units, err := c.unitDirs()
	if err != nil {
		return summary, err
	}
	summary.Units = len(units)
	c.Logger.Printf("repo_root=%s units=%d", filepath.ToSlash(c.RepoRoot), len(units))

	timings := make(map[string]timing.SessionTiming)

	for _, unitDir := range units {
		unitName := filepath.Base(unitDir)
		c.Logger.Printf("processing_unit=%s", unitName)

		if err := c.copyPromptFile(unitDir); err != nil {
			return summary, err
		}

		text, window, ok := c.collectUnit(unitDir, &summary)

		outPath := filepath.Join(unitDir, unitName+".txt")
		if text != "" {
			if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
				return summary, fmt.Errorf("write transcript %s: %w", outPath, err)
			}
			summary.Transcripts++
			c.Logger.Printf("wrote_transcript=%s bytes=%d", filepath.ToSlash(outPath), len(text))
		} else {
			// An empty placeholder still marks the unit as processed.
			if err := touch(outPath); err != nil {
				return summary, fmt.Errorf("touch transcript %s: %w", outPath, err)
			}
			summary.EmptyTranscripts++
			c.Logger.Printf("empty_transcript_touched=%s", filepath.ToSlash(outPath))
		}

		if ok {
			timings[unitName] = window
			summary.Timings++
		}
	}

	if err := c.writeTimingManifest(timings); err != nil {
		return summary, err
	}
	c.Logger.Printf("wrote_time=%s lines=%d (ws_found=%d ws_missing=%d transcripts=%d empty=%d)",
		filepath.ToSlash(filepath.Join(c.RepoRoot, TimingManifestName)), len(timings),
		summary.StorageFound, summary.StorageMissing, summary.Transcripts, summary.EmptyTranscripts)

	return summary, nil
}

// collectUnit loads the unit's sessions and derives both artifacts. The
// returned transcript is empty and ok false when nothing could be found.
func (c *Collector) collectUnit(unitDir string, summary *Summary) (string, timing.SessionTiming, bool) {
	uri, err := config.WorkspaceURI(unitDir)
	if err != nil {
		c.Logger.Printf("workspace_uri_failed unit=%s err=%v", filepath.Base(unitDir), err)
		summary.StorageMissing++
		return "", timing.SessionTiming{}, false
	}

	wsDir, found := store.FindWorkspaceStorage(c.StorageRoots, uri)
	if !found {
		summary.StorageMissing++
		c.Logger.Printf("no_workspace_storage unit=%s uri=%s", filepath.Base(unitDir), uri)
		return "", timing.SessionTiming{}, false
	}
	summary.StorageFound++

	docs := loadSessionDocs(filepath.Join(wsDir, store.SessionsDirName))

	text := c.Extractor.Render(docs)
	if text != "" {
		text = relativize.Rewrite(text, unitDir, c.RepoRoot)
	}

	if window, ok := c.Estimator.MessageWindow(docs); ok {
		return text, window, true
	}
	// Fall back to the editor's session index; it may include idle gaps.
	if raw, ok := store.LookupState(filepath.Join(wsDir, store.StateDBName), timing.SessionIndexKey); ok {
		if window, ok := c.Estimator.FromIndexRecord([]byte(raw)); ok {
			return text, window, true
		}
	}
	return text, timing.SessionTiming{}, false
}

func loadSessionDocs(sessionsDir string) []any {
	var docs []any
	for _, path := range store.ListSessionFiles(sessionsDir) {
		if doc, ok := document.LoadSessionFile(path); ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

// unitDirs lists immediate subdirectories of the repo root carrying the
// unit marker file, excluding the template folder, sorted case-insensitively
// by name.
func (c *Collector) unitDirs() ([]string, error) {
	entries, err := os.ReadDir(c.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("read repo root: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if entry.Name() == c.Config.TemplateDir {
			continue
		}
		if !fileExists(filepath.Join(c.RepoRoot, entry.Name(), c.Config.UnitMarker)) {
			continue
		}
		dirs = append(dirs, filepath.Join(c.RepoRoot, entry.Name()))
	}

	sort.Slice(dirs, func(i, j int) bool {
		return strings.ToLower(filepath.Base(dirs[i])) < strings.ToLower(filepath.Base(dirs[j]))
	})
	return dirs, nil
}

// copyPromptFile copies the repo-root prompt file into the unit when the
// unit does not already have one. Missing source is fine; units simply keep
// whatever they have.
func (c *Collector) copyPromptFile(unitDir string) error {
	src := filepath.Join(c.RepoRoot, c.Config.PromptFile)
	dst := filepath.Join(unitDir, c.Config.PromptFile)
	if !fileExists(src) || fileExists(dst) {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read prompt file: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("copy prompt file: %w", err)
	}
	c.Logger.Printf("copied_prompt_to=%s", filepath.ToSlash(dst))
	return nil
}

// writeTimingManifest writes one "<unit>:<start>,<end>" line per unit with
// timing, sorted case-insensitively, with a trailing newline iff non-empty.
func (c *Collector) writeTimingManifest(timings map[string]timing.SessionTiming) error {
	names := make([]string, 0, len(timings))
	for name := range timings {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	var b strings.Builder
	for _, name := range names {
		t := timings[name]
		fmt.Fprintf(&b, "%s:%s,%s\n", name, t.StartISO9075(), t.EndISO9075())
	}

	path := filepath.Join(c.RepoRoot, TimingManifestName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

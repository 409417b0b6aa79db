// Package store locates a unit's chat session data on disk: the workspace
// storage directory the editor assigned to the unit's folder, the session
// files inside it, and the per-workspace state database.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SessionsDirName is the directory inside a workspace storage folder that
// holds chat session files.
const SessionsDirName = "chatSessions"

// StateDBName is the per-workspace state database file.
const StateDBName = "state.vscdb"

// FindWorkspaceStorage scans the given storage roots for a workspace entry
// whose workspace.json mentions workspaceURI, returning the first matching
// directory. Roots are tried in order; unreadable entries are skipped.
func FindWorkspaceStorage(roots []string, workspaceURI string) (string, bool) {
	for _, root := range roots {
		matches, err := filepath.Glob(filepath.Join(root, "*", "workspace.json"))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, workspaceJSON := range matches {
			raw, err := os.ReadFile(workspaceJSON)
			if err != nil {
				continue
			}
			if strings.Contains(string(raw), workspaceURI) {
				return filepath.Dir(workspaceJSON), true
			}
		}
	}
	return "", false
}

// ListSessionFiles returns the .json and .jsonl files directly under dir,
// ordered by ascending modification time. Sessions accumulate over time, so
// this is the order the conversations happened in.
func ListSessionFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type sessionFile struct {
		path  string
		mtime int64
	}
	var files []sessionFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".jsonl":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, sessionFile{
			path:  filepath.Join(dir, entry.Name()),
			mtime: info.ModTime().UnixNano(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].mtime < files[j].mtime })

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.path)
	}
	return paths
}

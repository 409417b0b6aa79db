package store

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// LookupState reads one value from the ItemTable key/value table of the
// per-workspace state database. The second return value is false when the
// database or key is missing; the database is produced by the editor, so a
// missing or unreadable file is expected, not an error.
func LookupState(dbPath, key string) (string, bool) {
	if _, err := os.Stat(dbPath); err != nil {
		return "", false
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return "", false
	}
	defer db.Close()

	var value string
	if err := db.QueryRow("SELECT value FROM ItemTable WHERE key = ?", key).Scan(&value); err != nil {
		// Missing key, schema drift and corruption all read as absence.
		return "", false
	}
	return value, true
}

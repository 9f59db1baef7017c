package cli

import (
	"fmt"
	"os"

	"github.com/roach88/stepwise/internal/store"
)

// archivePath picks the trace archive: the --db flag, else store.path
// from the configuration. Empty means archiving is off.
func (o *RootOptions) archivePath(flag string) string {
	if flag != "" {
		return flag
	}
	return o.settings().Store.Path
}

// openArchive opens the archive for writing, creating it if needed.
func openArchive(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeStore+": failed to open database", err)
	}
	return st, nil
}

// openExistingArchive opens an archive that must already exist.
func openExistingArchive(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, ErrCodeStore+": no trace archive: pass --db or set store.path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: database not found: %s", ErrCodeNotFound, path))
	}
	return openArchive(path)
}

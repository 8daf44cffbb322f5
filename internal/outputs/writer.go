// Package outputs writes generated artifacts to the local filesystem.
package outputs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Writer persists artifacts that live outside the run store.
type Writer interface {
	// WriteCallScript stores a call script for a lead and returns the path.
	WriteCallScript(leadID, content string) (string, error)
}

// DirWriter writes artifacts as markdown files under a directory.
type DirWriter struct {
	dir string
}

// NewDirWriter creates a writer rooted at dir. The directory is created
// lazily on first write.
func NewDirWriter(dir string) *DirWriter {
	return &DirWriter{dir: dir}
}

func (w *DirWriter) WriteCallScript(leadID, content string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "outputs: create dir")
	}

	path := filepath.Join(w.dir, fmt.Sprintf("call_script_%s.md", sanitizeID(leadID)))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", eris.Wrap(err, "outputs: write call script")
	}
	return path, nil
}

// sanitizeID keeps lead IDs filesystem-safe; anything outside
// [A-Za-z0-9._-] becomes an underscore.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}

package cache

import (
	"os"
	"path/filepath"
	"strings"
)

// statLocked reports whether path currently exists on disk (lstat, so a
// dangling symlink still counts as "exists" — the Walker records it as a
// Symlink node rather than following it).
func statLocked(path string) (os.FileInfo, bool) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, false
	}
	return info, true
}

func parentDir(path string) string {
	return filepath.Dir(path)
}

// relTo splits path into its path components relative to root, or
// ok=false if path isn't under root.
func relTo(root, path string) ([]string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, false
	}
	if rel == "." {
		return nil, true
	}
	return strings.Split(rel, string(filepath.Separator)), true
}

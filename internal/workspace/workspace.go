// Package workspace discovers the toolchain's scratch work directory from a
// captured trace and enumerates its contents.
package workspace

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Entry describes one file or directory inside the toolchain scratch tree.
// Entries live for one capture session and are never mutated after creation.
type Entry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	IsDir  bool   `json:"is_dir"`
	Parent string `json:"parent"`
}

// Discover finds the scratch directory the toolchain echoed into the trace.
// With the keep-work flag the toolchain prints a line "WORK=/tmp/go-buildNNN".
func Discover(log []byte) (string, error) {
	// Unbounded line reads: an oversized trace line must not end the search
	// before the WORK= line is reached.
	reader := bufio.NewReader(bytes.NewReader(log))
	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if dir, ok := strings.CutPrefix(trimmed, "WORK="); ok && dir != "" {
			return dir, nil
		}
		if err != nil {
			break
		}
	}
	return "", fmt.Errorf("no WORK= line in trace; was the build run with the keep-work flag?")
}

// Walk enumerates the scratch tree rooted at workDir. The root itself is not
// reported; every other entry appears once, parents before children.
func Walk(workDir string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Scratch files can vanish while we walk; skip rather than fail.
			return nil
		}
		if path == workDir {
			return nil
		}
		var size int64
		if info, err := d.Info(); err == nil && !d.IsDir() {
			size = info.Size()
		}
		entries = append(entries, Entry{
			Path:   path,
			Size:   size,
			IsDir:  d.IsDir(),
			Parent: filepath.Dir(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk work dir %s: %w", workDir, err)
	}
	return entries, nil
}

package action

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// traceRecord mirrors one line of the toolchain's structured trace
// (`go build -json` emits one such object per line).
type traceRecord struct {
	ImportPath string `json:"ImportPath"`
	Action     string `json:"Action"`
	Package    string `json:"Package"`
	Output     string `json:"Output"`
}

// lineClass tags the outcome of classifying one trace line.
type lineClass int

const (
	lineValid lineClass = iota
	lineIgnorable
	lineMalformed
)

// classifyLine attempts one raw line as a structured trace record. Lines that
// are blank are ignorable; lines that fail to decode are malformed. Neither
// is an error: other tooling may interleave incidental text with the trace.
func classifyLine(line []byte) (traceRecord, lineClass) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return traceRecord{}, lineIgnorable
	}
	var rec traceRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return traceRecord{}, lineMalformed
	}
	return rec, lineValid
}

// Normalize turns a raw trace into the ordered BuildAction sequence.
//
// In structured mode every line is attempted as one trace record; records
// with a non-empty Output become one action each, malformed lines are skipped
// silently. In text mode the raw trace is kept as-is in a single action for
// consumers that only need the literal command stream.
func Normalize(raw []byte, structured bool) []BuildAction {
	if !structured {
		return []BuildAction{{
			ID:     0,
			Kind:   KindOther,
			Output: string(raw),
		}}
	}

	// Lines are read unbounded: a single oversized line (huge interleaved
	// text, or a record aggregating large compiler output) must not end the
	// scan and drop the valid records after it.
	var actions []BuildAction
	reader := bufio.NewReader(bytes.NewReader(raw))
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			rec, class := classifyLine(line)
			if class == lineValid && rec.Output != "" {
				pkg := rec.ImportPath
				if pkg == "" {
					pkg = rec.Package
				}
				actions = append(actions, BuildAction{
					ID:      len(actions),
					Kind:    classifyKind(rec.Output),
					Package: pkg,
					Output:  rec.Output,
				})
			}
		}
		if err != nil {
			break
		}
	}
	return actions
}

// WriteCanonicalLog writes the concatenation of every action's output to
// path, newline-terminating each entry even when the source value was not.
// The file is written atomically so a cancelled run never leaves a partial
// log behind as the current artifact.
func WriteCanonicalLog(path string, actions []BuildAction) error {
	var buf bytes.Buffer
	for _, a := range actions {
		buf.WriteString(a.Output)
		if !strings.HasSuffix(a.Output, "\n") {
			buf.WriteByte('\n')
		}
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// WriteFileAtomic writes data to path via a temp file and rename, so readers
// observe either the previous content or the full new content.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish artifact %s: %w", path, err)
	}
	return nil
}

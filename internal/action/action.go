// Package action models the ordered build actions recovered from a toolchain
// trace and produces the canonical log artifact downstream stages consume.
package action

import "strings"

// Kind classifies what a build action did.
type Kind string

const (
	KindCompile Kind = "compile"
	KindLink    Kind = "link"
	KindAsm     Kind = "asm"
	KindOther   Kind = "other"
)

// BuildAction is one recorded step of a build. Actions are immutable once
// created and ordered by emission sequence; ID is unique within one capture.
type BuildAction struct {
	ID      int    `json:"id"`
	Kind    Kind   `json:"kind"`
	Package string `json:"package"`
	Output  string `json:"output"`
}

// classifyKind derives an action kind from the literal output text. The
// toolchain echoes the tool binary as the first word of a command line, e.g.
// "/usr/lib/go/pkg/tool/linux_amd64/compile -o ...".
func classifyKind(output string) Kind {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return KindOther
	}
	first := strings.Fields(trimmed)[0]
	// Strip the tool directory prefix; only the binary name matters.
	if idx := strings.LastIndexByte(first, '/'); idx >= 0 {
		first = first[idx+1:]
	}
	switch first {
	case "compile":
		return KindCompile
	case "link":
		return KindLink
	case "asm":
		return KindAsm
	}
	return KindOther
}

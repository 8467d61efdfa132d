package callgraph

import (
	"regexp"
	"strconv"
	"strings"
)

// Call lines accept the ASCII arrow and its encoded glyph, with the line
// list using either "line" or "lines" and optional spacing.
var callLineRe = regexp.MustCompile(`^(?:->|\x{2192})\s*(\S+)\s*(?:\(lines?\s*([0-9,\s]*)\))?\s*$`)

var rootLineRe = regexp.MustCompile(`^(\S+):\s*$`)

// Parse re-ingests rendered call-graph text into a forest.
//
// A root line resets the open-node stack; a call line's nesting level is
// floor(leadingSpaces / 2): the stack is popped down to that depth and the
// node appended to whatever is then on top. Lines deeper than the current
// stack height attach to the current top rather than erroring; blank lines,
// separators and header text are ignored.
func Parse(text string) Forest {
	var forest Forest
	var stack []*Node

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" || isSeparator(trimmed) {
			continue
		}

		if m := callLineRe.FindStringSubmatch(trimmed); m != nil {
			if len(stack) == 0 {
				// Call line before any root; nothing to attach to.
				continue
			}
			depth := (len(line) - len(trimmed)) / 2
			if depth < 1 {
				depth = 1
			}
			if depth < len(stack) {
				stack = stack[:depth]
			}
			node := &Node{Name: m[1], Lines: parseLineList(m[2])}
			top := stack[len(stack)-1]
			top.Children = append(top.Children, node)
			stack = append(stack, node)
			continue
		}

		if m := rootLineRe.FindStringSubmatch(trimmed); m != nil && line == trimmed {
			root := &Node{Name: m[1], IsRoot: true}
			forest = append(forest, root)
			stack = stack[:0]
			stack = append(stack, root)
			continue
		}

		// Summary or header text: ignored.
	}
	return forest
}

func parseLineList(s string) []int {
	var lines []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			lines = append(lines, n)
		}
	}
	return lines
}

func isSeparator(s string) bool {
	for _, r := range s {
		if r != '-' && r != '=' && r != '*' {
			return false
		}
	}
	return true
}

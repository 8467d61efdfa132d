package callgraph

import (
	"fmt"
	"strconv"
	"strings"
)

// Render writes a forest in the text grammar viewers re-parse:
//
//	main:
//	  -> helper (lines 10)
//	    -> util (lines 20,21)
//
// A root is its name plus a colon at zero indentation. Each call line is
// indented two spaces per nesting level. The grammar is load-bearing; other
// components parse it, so the output must stay byte-stable.
func Render(forest Forest) string {
	var sb strings.Builder
	for i, root := range forest {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(root.Name)
		sb.WriteString(":\n")
		for _, child := range root.Children {
			renderNode(&sb, child, 1)
		}
	}
	return sb.String()
}

func renderNode(sb *strings.Builder, n *Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("-> ")
	sb.WriteString(n.Name)
	if len(n.Lines) > 0 {
		nums := make([]string, len(n.Lines))
		for i, l := range n.Lines {
			nums[i] = strconv.Itoa(l)
		}
		fmt.Fprintf(sb, " (lines %s)", strings.Join(nums, ","))
	}
	sb.WriteByte('\n')
	for _, child := range n.Children {
		renderNode(sb, child, depth+1)
	}
}

// Package callgraph reconstructs call relationships from target source and
// renders them in the line-oriented text grammar consumed by viewers.
package callgraph

// Node is one function occurrence in a call-graph tree. Children are owned
// exclusively by their parent; the same function name may appear as multiple
// nodes in different branches (recursion, fan-out) and is not deduplicated.
type Node struct {
	Name string `json:"name"`
	// IsRoot marks a tree root. Roots carry no call-site lines.
	IsRoot bool `json:"is_root"`
	// Lines are the call-site line numbers for this callee, in lexical order.
	Lines    []int   `json:"lines,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Forest is one tree per root function observed.
type Forest []*Node

// FuncDecl identifies one function or method declaration found in the target
// tree, in file walk order.
type FuncDecl struct {
	Package  string `json:"package"`
	Name     string `json:"name"`
	Receiver string `json:"receiver,omitempty"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

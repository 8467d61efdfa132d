package callgraph

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// funcInfo is one parsed declaration with its direct call sites. Calls keep
// the lexical nesting of the source (a call inside another call's arguments
// is a child of the enclosing call).
type funcInfo struct {
	decl  FuncDecl
	calls []*Node
}

// Extractor scans a target source tree and builds call-graph forests.
type Extractor struct {
	ignored []string
}

func NewExtractor() *Extractor {
	return &Extractor{
		ignored: []string{".git", "vendor", "node_modules", "testdata"},
	}
}

// Functions lists every function and method declared under root, in file
// walk order.
func (e *Extractor) Functions(root string) ([]FuncDecl, error) {
	infos, err := e.scan(root)
	if err != nil {
		return nil, err
	}
	decls := make([]FuncDecl, 0, len(infos))
	for _, info := range infos {
		decls = append(decls, info.decl)
	}
	return decls, nil
}

// Extract builds one call-graph tree per function declared under root. A
// call to a function declared in the same tree is expanded with that
// function's own call sites; expansion stops when a name already on the
// current branch recurs.
func (e *Extractor) Extract(root string) (Forest, error) {
	infos, err := e.scan(root)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*funcInfo, len(infos))
	for _, info := range infos {
		// First declaration wins; later same-name declarations (methods on
		// other types, shadowed helpers) still get their own root tree.
		if _, ok := byName[info.decl.Name]; !ok {
			byName[info.decl.Name] = info
		}
	}

	forest := make(Forest, 0, len(infos))
	for _, info := range infos {
		rootNode := &Node{Name: info.decl.Name, IsRoot: true}
		path := map[string]bool{info.decl.Name: true}
		for _, call := range info.calls {
			rootNode.Children = append(rootNode.Children, instantiate(call, byName, path))
		}
		forest = append(forest, rootNode)
	}
	return forest, nil
}

// instantiate deep-copies a call template and appends the callee's own call
// sites as further children, guarding against recursion along the current
// branch.
func instantiate(tmpl *Node, byName map[string]*funcInfo, path map[string]bool) *Node {
	n := &Node{
		Name:  tmpl.Name,
		Lines: append([]int(nil), tmpl.Lines...),
	}
	for _, c := range tmpl.Children {
		n.Children = append(n.Children, instantiate(c, byName, path))
	}
	if info, ok := byName[tmpl.Name]; ok && !path[tmpl.Name] {
		path[tmpl.Name] = true
		for _, c := range info.calls {
			n.Children = append(n.Children, instantiate(c, byName, path))
		}
		delete(path, tmpl.Name)
	}
	return n
}

// scan walks the target tree and parses every non-test Go file.
func (e *Extractor) scan(root string) ([]*funcInfo, error) {
	var infos []*funcInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, ign := range e.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".go") || strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		fileInfos, err := e.parseFile(path)
		if err != nil {
			// Skip unparsable files instead of failing the whole scan
			return nil
		}
		infos = append(infos, fileInfos...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return infos, nil
}

// parseFile extracts every function declaration and its call sites from one
// source file.
func (e *Extractor) parseFile(path string) ([]*funcInfo, error) {
	sourceCode, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}

	pkg := detectPackageName(tree.RootNode(), sourceCode)

	query, err := sitter.NewQuery([]byte(`
		(function_declaration) @func
		(method_declaration) @func
	`), golang.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}

	qc := sitter.NewQueryCursor()
	qc.Exec(query, tree.RootNode())

	var infos []*funcInfo
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			info := extractFunc(c.Node, sourceCode, path, pkg)
			if info != nil {
				infos = append(infos, info)
			}
		}
	}
	return infos, nil
}

func extractFunc(node *sitter.Node, sourceCode []byte, path, pkg string) *funcInfo {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	decl := FuncDecl{
		Package: pkg,
		Name:    nameNode.Content(sourceCode),
		File:    path,
		Line:    int(node.StartPoint().Row) + 1,
	}
	if node.Type() == "method_declaration" {
		if receiverNode := node.ChildByFieldName("receiver"); receiverNode != nil {
			decl.Receiver = receiverType(receiverNode, sourceCode)
		}
	}

	info := &funcInfo{decl: decl}
	if body := node.ChildByFieldName("body"); body != nil {
		collectCalls(body, sourceCode, &info.calls)
	}
	return info
}

// receiverType reduces a receiver parameter list like "(w *Worker)" to the
// bare type name "Worker".
func receiverType(node *sitter.Node, sourceCode []byte) string {
	text := node.Content(sourceCode)
	text = strings.Trim(text, "()")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	return strings.TrimPrefix(typ, "*")
}

// collectCalls gathers call expressions below n, preserving lexical nesting:
// a call found inside another call's subtree becomes a child of that call.
// Repeated calls to the same callee at the same level merge into one node
// accumulating line numbers.
func collectCalls(n *sitter.Node, sourceCode []byte, out *[]*Node) {
	if n.Type() == "call_expression" {
		name := calleeName(n, sourceCode)
		if name == "" {
			// Immediately-invoked literals have no callee name; their inner
			// calls still belong at the current level.
			for i := 0; i < int(n.NamedChildCount()); i++ {
				collectCalls(n.NamedChild(i), sourceCode, out)
			}
			return
		}
		call := findOrAppend(out, name)
		call.Lines = append(call.Lines, int(n.StartPoint().Row)+1)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "call_expression" || containsCall(child) {
				collectCalls(child, sourceCode, &call.Children)
			}
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		collectCalls(n.NamedChild(i), sourceCode, out)
	}
}

func containsCall(n *sitter.Node) bool {
	if n.Type() == "call_expression" {
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if containsCall(n.NamedChild(i)) {
			return true
		}
	}
	return false
}

func findOrAppend(nodes *[]*Node, name string) *Node {
	for _, n := range *nodes {
		if n.Name == name {
			return n
		}
	}
	n := &Node{Name: name}
	*nodes = append(*nodes, n)
	return n
}

// calleeName returns the textual function operand of a call, e.g. "helper"
// or "fmt.Println".
func calleeName(n *sitter.Node, sourceCode []byte) string {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() == "func_literal" {
		return ""
	}
	return fn.Content(sourceCode)
}

func detectPackageName(root *sitter.Node, sourceCode []byte) string {
	pkgQuery, _ := sitter.NewQuery([]byte(`(package_clause (package_identifier) @pkg)`), golang.GetLanguage())
	pqc := sitter.NewQueryCursor()
	pqc.Exec(pkgQuery, root)
	if m, ok := pqc.NextMatch(); ok {
		return m.Captures[0].Node.Content(sourceCode)
	}
	return ""
}

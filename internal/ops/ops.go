// Package ops exposes the pipeline to the external editor/LSP/debugger layer
// as single blocking calls returning plain text or an error. Presentation of
// the results is the caller's concern.
package ops

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"hookweave/internal/callgraph"
	"hookweave/internal/config"
	"hookweave/internal/session"
	"hookweave/internal/storage"
	"hookweave/internal/weave"
	"hookweave/internal/workspace"
)

// Ops bundles the pipeline components behind the command-style surface.
type Ops struct {
	cfg       *config.Config
	store     storage.Store
	extractor *callgraph.Extractor
	weaver    *weave.Weaver
}

func New(cfg *config.Config, store storage.Store, mgr *session.Manager) *Ops {
	return &Ops{
		cfg:       cfg,
		store:     store,
		extractor: callgraph.NewExtractor(),
		weaver:    weave.New(cfg, mgr),
	}
}

// ListFunctions renders every function and method declared in the target
// tree, one per line as "package.name" or "package.Receiver.name" with its
// file position.
func (o *Ops) ListFunctions(ctx context.Context) (string, error) {
	decls, err := o.extractor.Functions(o.cfg.Project.Root)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, d := range decls {
		qualified := d.Name
		if d.Receiver != "" {
			qualified = d.Receiver + "." + d.Name
		}
		if d.Package != "" {
			qualified = d.Package + "." + qualified
		}
		fmt.Fprintf(&sb, "%s\t%s:%d\n", qualified, d.File, d.Line)
	}
	return sb.String(), nil
}

// ListPackages returns the distinct packages seen across stored build
// actions, one per line.
func (o *Ops) ListPackages(ctx context.Context) (string, error) {
	pkgs, err := o.store.ListPackages(ctx)
	if err != nil {
		return "", err
	}
	if len(pkgs) == 0 {
		return "", nil
	}
	return strings.Join(pkgs, "\n") + "\n", nil
}

// ListFiles merges the packages of the latest capture with the toolchain
// scratch tree it left behind, one path per line.
func (o *Ops) ListFiles(ctx context.Context) (string, error) {
	rec, err := o.store.LatestCapture(ctx)
	if err != nil {
		return "", err
	}

	seen := make(map[string]bool)
	var files []string
	if rec.WorkDir != "" {
		entries, err := workspace.Walk(rec.WorkDir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir && !seen[e.Path] {
					seen[e.Path] = true
					files = append(files, e.Path)
				}
			}
		}
	}

	actions, err := o.store.LoadActions(ctx, rec.ID)
	if err != nil {
		return "", err
	}
	for _, a := range actions {
		for _, f := range sourceFilesIn(a.Output) {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return "", nil
	}
	sort.Strings(files)
	return strings.Join(files, "\n") + "\n", nil
}

// sourceFilesIn pulls the Go source paths mentioned by one echoed command.
func sourceFilesIn(output string) []string {
	var files []string
	for _, field := range strings.Fields(output) {
		if strings.HasSuffix(field, ".go") {
			files = append(files, field)
		}
	}
	return files
}

// RenderCallGraph extracts the call graph of the target tree, renders it in
// the viewer grammar and stores the snapshot.
func (o *Ops) RenderCallGraph(ctx context.Context) (string, error) {
	forest, err := o.extractor.Extract(o.cfg.Project.Root)
	if err != nil {
		return "", err
	}
	rendered := callgraph.Render(forest)
	if err := o.store.SaveForest(ctx, rendered); err != nil {
		return "", err
	}
	return rendered, nil
}

// CompileHook builds the package containing the given hook file and returns
// the full toolchain output regardless of outcome.
func (o *Ops) CompileHook(ctx context.Context, hookFile string) (string, error) {
	res, err := o.weaver.CompileHook(ctx, hookFile)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return string(res.Log), fmt.Errorf("hook compile exited with status %d", res.ExitCode)
	}
	return string(res.Log), nil
}

// RunExecutable runs a produced binary and returns its combined output. A
// non-zero exit is reported alongside the output, not swallowed.
func (o *Ops) RunExecutable(ctx context.Context, executable string) (string, error) {
	res, err := o.weaver.Run(ctx, executable)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return string(res.Output), fmt.Errorf("executable exited with status %d", res.ExitCode)
	}
	return string(res.Output), nil
}

// Package hookgen synthesizes the Before/After hook module for a selected
// set of target functions, plus the registration table the weaving step binds
// against.
package hookgen

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"
)

// Target identifies one instrumentable function. Package, Function and
// Receiver together are the uniqueness key; Receiver is empty unless the
// target is a method.
type Target struct {
	Package  string
	Function string
	Receiver string
}

// Definition records the hook pair generated for one target.
type Definition struct {
	Target     Target
	BeforeName string
	AfterName  string
	ModulePath string
}

// RuntimeImport is the package the generated module imports for its context
// abstraction.
const RuntimeImport = "hookweave/hookctx"

// ModuleFileName is the predictable location of the generated module below
// the artifact directory.
const ModuleFileName = "hooks/hooks.go"

// magic begins every file generated by hookweave. WriteModule refuses to
// overwrite a file that does not start with it.
const magic = "// Code generated by hookweave; DO NOT EDIT.\n"

// hookName upper-cases the first rune of fn and applies prefix, per the
// linkname contract: the weaving step binds declared-but-unimplemented hook
// functions against exactly these names.
func hookName(prefix, fn string) string {
	r, size := utf8.DecodeRuneInString(fn)
	if r == utf8.RuneError && size <= 1 {
		return prefix + fn
	}
	return prefix + string(unicode.ToUpper(r)) + fn[size:]
}

// Generate is a pure function from targets to the hook module source text
// and its definitions; it performs no I/O. Two targets whose function names
// upper-case to the same hook name are a fatal collision: nothing is emitted.
func Generate(targets []Target) (string, []Definition, error) {
	if len(targets) == 0 {
		return "", nil, fmt.Errorf("no targets selected")
	}

	seen := make(map[string]string, len(targets))
	defs := make([]Definition, 0, len(targets))
	for _, t := range targets {
		if t.Function == "" {
			return "", nil, fmt.Errorf("target with empty function name (package %q)", t.Package)
		}
		before := hookName("Before", t.Function)
		if prev, ok := seen[before]; ok {
			return "", nil, fmt.Errorf("hook naming collision: %q and %q both generate %s", prev, t.Function, before)
		}
		seen[before] = t.Function
		defs = append(defs, Definition{
			Target:     t,
			BeforeName: before,
			AfterName:  hookName("After", t.Function),
			ModulePath: ModuleFileName,
		})
	}

	var sb strings.Builder
	if err := moduleTmpl.Execute(&sb, moduleData{
		Magic:         magic,
		RuntimeImport: RuntimeImport,
		Defs:          defs,
	}); err != nil {
		return "", nil, fmt.Errorf("failed to render hook module: %w", err)
	}
	return sb.String(), defs, nil
}

type moduleData struct {
	Magic         string
	RuntimeImport string
	Defs          []Definition
}

var moduleTmpl = template.Must(template.New("hookmodule").Parse(`{{.Magic}}
// Package hooks holds generated Before/After hooks. Each pair shares one
// hookctx.Context for a single invocation of its target.
package hooks

import (
	"log"
	"time"

	"{{.RuntimeImport}}"
)
{{range .Defs}}
// {{.BeforeName}} runs ahead of {{.Target.Function}}.
func {{.BeforeName}}(hc *hookctx.Context) {
	hc.Set("hookweave.start", time.Now().Format(time.RFC3339Nano))
}

// {{.AfterName}} runs after {{.Target.Function}} returns.
func {{.AfterName}}(hc *hookctx.Context) {
	started, _ := hc.Get("hookweave.start")
	log.Printf("[hook] %s.%s (entered %s, skipped=%v)",
		hc.PackageName(), hc.FunctionName(), started, hc.Skipped())
}
{{end}}
// Registrations maps each instrumented target to its hook pair, in
// selection order.
var Registrations = []hookctx.Registration{
{{- range .Defs}}
	{
		Package:    {{printf "%q" .Target.Package}},
		Function:   {{printf "%q" .Target.Function}},
		Receiver:   {{printf "%q" .Target.Receiver}},
		BeforeName: {{printf "%q" .BeforeName}},
		AfterName:  {{printf "%q" .AfterName}},
		ModulePath: {{printf "%q" .ModulePath}},
	},
{{- end}}
}
`))

// SortTargets orders targets by their uniqueness key. Callers that collect
// targets from a map use it to make generation deterministic.
func SortTargets(targets []Target) {
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Package != targets[j].Package {
			return targets[i].Package < targets[j].Package
		}
		if targets[i].Function != targets[j].Function {
			return targets[i].Function < targets[j].Function
		}
		return targets[i].Receiver < targets[j].Receiver
	})
}

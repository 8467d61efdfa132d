package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"hookweave/internal/action"
	"hookweave/internal/capture"
	"hookweave/internal/config"
	"hookweave/internal/hookgen"
	"hookweave/internal/ops"
	"hookweave/internal/session"
	"hookweave/internal/storage"
	"hookweave/internal/weave"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "hookweave",
		Short: "Build-trace-driven function instrumentation for Go programs",
	}
	configPath string
	structured bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hookweave.yaml", "Path to the configuration file")

	captureCmd.Flags().BoolVarP(&structured, "json", "j", false, "Request the structured line-delimited trace")
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(hooksCmd)
	rootCmd.AddCommand(weaveCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(runCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func initStore(cfg *config.Config) *storage.SQLiteStore {
	store, err := storage.NewSQLiteStore(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return store
}

// interruptContext returns a context cancelled on Ctrl-C or SIGTERM so the
// toolchain subprocess and its group are torn down before the CLI exits.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run the build with trace flags and persist the trace",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if structured {
			cfg.Toolchain.Structured = true
		}

		store := initStore(cfg)
		defer store.Close()

		mgr := session.NewManager()
		c := capture.New(cfg, mgr)

		ctx, stop := interruptContext()
		defer stop()

		fmt.Printf("🚀 Capturing build trace (structured=%v)...\n", cfg.Toolchain.Structured)
		res, err := c.Capture(ctx, cfg.Toolchain.Structured)
		if err != nil {
			log.Fatalf("Capture failed: %v", err)
		}

		// Normalization starts only after the capture subprocess is reaped
		// and the log artifact is fully written.
		actions := action.Normalize(res.Log, cfg.Toolchain.Structured)
		logPath := filepath.Join(cfg.Project.ArtifactDir, "actions.log")
		if err := action.WriteCanonicalLog(logPath, actions); err != nil {
			log.Fatalf("Failed to write canonical log: %v", err)
		}

		id, err := store.SaveCapture(context.Background(), storage.CaptureRecord{
			Kind:     string(session.KindCapture),
			WorkDir:  res.WorkDir,
			ExitCode: res.ExitCode,
		}, actions)
		if err != nil {
			log.Fatalf("Failed to persist capture: %v", err)
		}

		if res.ExitCode != 0 {
			fmt.Printf("⚠️  Build exited with status %d; trace captured up to the failure point.\n", res.ExitCode)
		}
		fmt.Printf("✅ Capture #%d complete: %d actions, log at %s\n",
			id, len(actions), filepath.Join(cfg.Project.ArtifactDir, capture.LogFileName))
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the normalized build actions of the latest capture",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := initStore(cfg)
		defer store.Close()

		ctx := context.Background()
		rec, err := store.LatestCapture(ctx)
		if err != nil {
			log.Fatalf("No capture available: %v", err)
		}
		actions, err := store.LoadActions(ctx, rec.ID)
		if err != nil {
			log.Fatalf("Failed to load actions: %v", err)
		}

		for _, a := range actions {
			fmt.Printf("[%03d] %-7s %-30s %s", a.ID, a.Kind, a.Package, a.Output)
			if !strings.HasSuffix(a.Output, "\n") {
				fmt.Println()
			}
		}
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Extract and render the call graph of the target tree",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := initStore(cfg)
		defer store.Close()

		o := ops.New(cfg, store, session.NewManager())
		out, err := o.RenderCallGraph(context.Background())
		if err != nil {
			log.Fatalf("Call-graph extraction failed: %v", err)
		}
		fmt.Print(out)
	},
}

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the functions declared in the target tree",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := initStore(cfg)
		defer store.Close()

		o := ops.New(cfg, store, session.NewManager())
		out, err := o.ListFunctions(context.Background())
		if err != nil {
			log.Fatalf("Failed to list functions: %v", err)
		}
		fmt.Print(out)
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files involved in the latest captured build",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := initStore(cfg)
		defer store.Close()

		o := ops.New(cfg, store, session.NewManager())
		out, err := o.ListFiles(context.Background())
		if err != nil {
			log.Fatalf("Failed to list files: %v", err)
		}
		fmt.Print(out)
	},
}

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List the packages seen in captured build actions",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := initStore(cfg)
		defer store.Close()

		o := ops.New(cfg, store, session.NewManager())
		out, err := o.ListPackages(context.Background())
		if err != nil {
			log.Fatalf("Failed to list packages: %v", err)
		}
		fmt.Print(out)
	},
}

var hooksCmd = &cobra.Command{
	Use:   "hooks [function ...]",
	Short: "Generate the Before/After hook module for the given targets",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		targets := make([]hookgen.Target, 0, len(args))
		for _, arg := range args {
			targets = append(targets, parseTarget(arg))
		}
		// The module is regenerated whole, so the selection order must not
		// leak into its content.
		hookgen.SortTargets(targets)

		source, defs, err := hookgen.Generate(targets)
		if err != nil {
			log.Fatalf("Hook generation failed: %v", err)
		}

		path, err := hookgen.WriteModule(cfg.Project.ArtifactDir, source)
		if err != nil {
			log.Fatalf("Failed to write hook module: %v", err)
		}

		fmt.Printf("✅ Generated %d hook pairs in %s\n", len(defs), path)
		for _, d := range defs {
			fmt.Printf("  %s/%s -> %s, %s\n", d.Target.Package, d.Target.Function, d.BeforeName, d.AfterName)
		}
	},
}

// parseTarget splits "pkg.Receiver.Func" / "pkg.Func" / "Func" selection
// syntax into a hook target.
func parseTarget(arg string) hookgen.Target {
	parts := strings.Split(arg, ".")
	switch len(parts) {
	case 1:
		return hookgen.Target{Function: parts[0]}
	case 2:
		return hookgen.Target{Package: parts[0], Function: parts[1]}
	default:
		return hookgen.Target{
			Package:  strings.Join(parts[:len(parts)-2], "."),
			Receiver: parts[len(parts)-2],
			Function: parts[len(parts)-1],
		}
	}
}

var weaveCmd = &cobra.Command{
	Use:   "weave [hookfile ...]",
	Short: "Rebuild the target with the generated hook module in scope",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		hookFiles := args
		if len(hookFiles) == 0 {
			hookFiles = []string{
				filepath.Join(cfg.Project.ArtifactDir, hookgen.ModuleFileName),
				filepath.Join(cfg.Project.ArtifactDir, "hooks", "hooks.s"),
			}
		}

		ctx, stop := interruptContext()
		defer stop()

		w := weave.New(cfg, session.NewManager())
		fmt.Printf("🧵 Weaving %d hook files into %s...\n", len(hookFiles), cfg.Project.Root)
		res, err := w.Weave(ctx, hookFiles)
		if err != nil {
			log.Fatalf("Weave failed: %v", err)
		}

		os.Stdout.Write(res.Log)
		if res.ExitCode != 0 {
			fmt.Printf("⚠️  Instrumented build exited with status %d\n", res.ExitCode)
			os.Exit(res.ExitCode)
		}
		fmt.Println("✅ Instrumented build complete.")
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile <hookfile>",
	Short: "Compile-check a hook file in place before weaving it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := initStore(cfg)
		defer store.Close()

		ctx, stop := interruptContext()
		defer stop()

		o := ops.New(cfg, store, session.NewManager())
		out, err := o.CompileHook(ctx, args[0])
		fmt.Print(out)
		if err != nil {
			log.Fatalf("Hook compile failed: %v", err)
		}
		fmt.Printf("✅ %s compiles cleanly.\n", args[0])
	},
}

var runCmd = &cobra.Command{
	Use:   "run <executable>",
	Short: "Run an instrumented binary and report its output",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		ctx, stop := interruptContext()
		defer stop()

		w := weave.New(cfg, session.NewManager())
		res, err := w.Run(ctx, args[0])
		if err != nil {
			log.Fatalf("Run failed: %v", err)
		}

		os.Stdout.Write(res.Output)
		os.Exit(res.ExitCode)
	},
}

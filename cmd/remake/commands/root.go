// Package commands implements remake's CLI: a single root command that
// is itself the build (spec §6, SPEC_FULL §6 AMBIENT) — there is no
// "run" subcommand, only flags and a trailing list of targets.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"go.remake.sh/remake/internal/adapters/fs"
	"go.remake.sh/remake/internal/adapters/ipc"
	"go.remake.sh/remake/internal/adapters/logger"
	"go.remake.sh/remake/internal/adapters/rcfile"
	"go.remake.sh/remake/internal/adapters/rulefile"
	"go.remake.sh/remake/internal/adapters/telemetry"
	"go.remake.sh/remake/internal/app"
	"go.remake.sh/remake/internal/build"
	"go.remake.sh/remake/internal/core/domain"
)

// CLI wraps the cobra root command that drives one remake invocation,
// bound to the graft-resolved singleton adapters in components.
type CLI struct {
	components *app.Components
	rootCmd    *cobra.Command
}

// New creates a CLI bound to components.
func New(components *app.Components) *CLI {
	c := &CLI{components: components}

	rootCmd := &cobra.Command{
		Use:           "remake [targets...]",
		Short:         "A build system with dynamic, script-discovered dependencies",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		Args:          cobra.ArbitraryArgs,
		RunE:          c.runE,
	}
	rootCmd.SetVersionTemplate("remake version {{.Version}}\n")

	rootCmd.Flags().StringP("file", "f", "Remakefile", "Use PATH as the rule file")
	rootCmd.Flags().CountP("debug", "d", "First occurrence echoes expanded scripts; second enables debug traces")
	rootCmd.Flags().IntP("jobs", "j", 0, "Set parallelism (unbounded if omitted or <= 0)")
	rootCmd.Flags().Lookup("jobs").NoOptDefVal = "0"
	rootCmd.Flags().BoolP("keep-going", "k", false, "On target failure, continue building unrelated targets")
	rootCmd.Flags().BoolP("read-deps", "r", false, "Read dependencies from standard input, same grammar as .remake")
	rootCmd.Flags().BoolP("silent", "s", false, "Record no per-job \"Building ...\" progress vertex (these vertices are not printed)")
	rootCmd.Flags().Bool("quiet", false, "Alias for --silent")

	c.rootCmd = rootCmd
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// SetIn sets the input stream the -r flag reads from. Used for testing.
func (c *CLI) SetIn(in io.Reader) {
	c.rootCmd.SetIn(in)
}

func (c *CLI) runE(cmd *cobra.Command, args []string) error {
	filePath, _ := cmd.Flags().GetString("file")
	debugCount, _ := cmd.Flags().GetCount("debug")
	jobs, _ := cmd.Flags().GetInt("jobs")
	keepGoing, _ := cmd.Flags().GetBool("keep-going")
	readDeps, _ := cmd.Flags().GetBool("read-deps")
	silent, _ := cmd.Flags().GetBool("silent")
	quiet, _ := cmd.Flags().GetBool("quiet")
	silent = silent || quiet

	root, err := os.Getwd()
	if err != nil {
		return err
	}

	// `.remakerc.yaml` sets defaults for flags the caller didn't pass
	// explicitly; an explicit flag always wins over the file.
	rc, err := rcfile.Load(root)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("file") && rc.Rulefile != "" {
		filePath = rc.Rulefile
	}
	if !cmd.Flags().Changed("jobs") && rc.Jobs != 0 {
		jobs = rc.Jobs
	}
	if !cmd.Flags().Changed("keep-going") && rc.KeepGoing {
		keepGoing = true
	}
	if !cmd.Flags().Changed("silent") && !cmd.Flags().Changed("quiet") && rc.Silent {
		silent = true
	}

	log := c.components.Logger
	if debugCount >= 2 {
		log = logger.New(true)
	}

	telemetryPort := c.components.Telemetry
	if silent {
		telemetryPort = telemetry.New()
	}

	rulefilePath := filePath
	if !filepath.IsAbs(rulefilePath) {
		rulefilePath = filepath.Join(root, rulefilePath)
	}

	normaliser := fs.NewNormaliser(root)
	targets := make(domain.Targets, len(args))
	for i, a := range args {
		targets[i] = normaliser.Normalise(a)
	}

	socketPath := filepath.Join(os.TempDir(), fmt.Sprintf("remake-%d.sock", os.Getpid()))
	listener, err := ipc.Listen(socketPath, normaliser, log)
	if err != nil {
		return err
	}

	var stdinDeps io.Reader
	if readDeps {
		stdinDeps = bufio.NewReader(cmd.InOrStdin())
	}

	b := &app.Bootstrap{
		Config: app.Config{
			Root:         root,
			RulefilePath: rulefilePath,
			DBPath:       filepath.Join(root, ".remake"),
			SocketPath:   socketPath,
			Targets:      targets,
			Jobs:         jobs,
			KeepGoing:    keepGoing,
			Echo:         debugCount >= 1,
			Now:          time.Now().Unix(),
			StdinDeps:    stdinDeps,
		},
		RuleLoader: rulefile.New(normaliser),
		Listener:   listener,
		Executor:   c.components.Executor,
		Logger:     log,
		Telemetry:  telemetryPort,
	}

	return b.Run(cmd.Context())
}

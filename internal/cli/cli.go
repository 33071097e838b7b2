// Package cli implements the repowizard command-line interface.
//
// This package provides commands for setting up repositories from local
// folders, archives, or Git URLs, an interactive wizard, a browser for
// past runs, and an HTTP API mode. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/repowizard/repowizard/pkg/buildinfo"
	"github.com/repowizard/repowizard/pkg/history"
	"github.com/repowizard/repowizard/pkg/runlog"
	"github.com/repowizard/repowizard/pkg/setup"
)

// appName is the application name used for directories and display.
const appName = "repowizard"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Repowizard sets up source repositories from folders, archives, or Git URLs",
		Long:         `Repowizard copies, extracts, or clones a source repository into a target directory and optionally installs its dependencies, detecting the package manager from the repository's manifest files.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.setupCommand())
	root.AddCommand(c.wizardCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a setup runner backed by a fresh per-run log file and
// the default history store. The returned cleanup closes the log; call it
// on every exit path. Failures to open the log or history fall back to
// degraded runners rather than aborting the setup.
func (c *CLI) newRunner() (*setup.Runner, func()) {
	sink, err := runlog.NewRecorder("")
	if err != nil {
		c.Logger.Warnf("run log disabled: %v", err)
		sink = runlog.NewWriterRecorder(nil)
	}
	store, err := history.NewFileStore("")
	if err != nil {
		c.Logger.Warnf("run history disabled: %v", err)
		store = nil
	}
	return setup.NewRunner(c.Logger, sink, store), func() { _ = sink.Close() }
}

// Package cli implements the subui command-line interface.
//
// This package provides commands for running workflow suites against a
// server, inspecting stored run reports, and visualizing suites as graphs.
// The CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - run: Execute a workflow suite against a server
//   - routes: Print the routes a suite declares
//   - graph: Render a suite as a DOT/SVG/PNG workflow graph
//   - report: List, show, and browse stored run reports
//
// # Example
//
//	import "github.com/miki725/subui/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/miki725/subui/pkg/buildinfo"
	"github.com/miki725/subui/pkg/report"
)

// appName is the application name used for directories and display.
const appName = "subui"

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
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "subui",
		Short:        "Subui runs declarative workflow tests against web servers",
		Long:         `Subui executes multi-step user workflows (log in, add to cart, check out) against a running server, validating each response along the way and recording the run as a report.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.runCommand())
	root.AddCommand(c.routesCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.reportCommand())

	return root
}

// newReportStore opens the file-backed report store in the data directory.
func newReportStore() (*report.FileStore, error) {
	dir, err := reportDir()
	if err != nil {
		return nil, err
	}
	return report.NewFileStore(dir)
}

// reportDir returns the report directory using XDG standard
// (~/.local/share/subui/reports/).
func reportDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName, "reports"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName, "reports"), nil
}

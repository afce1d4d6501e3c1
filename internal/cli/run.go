package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/miki725/subui/pkg/errors"
	"github.com/miki725/subui/pkg/observability"
	"github.com/miki725/subui/pkg/report"
	"github.com/miki725/subui/pkg/session"
	"github.com/miki725/subui/pkg/suite"
)

// runCommand creates the "run" command.
func (c *CLI) runCommand() *cobra.Command {
	var (
		baseURL   string
		timeout   time.Duration
		noReport  bool
		reportDir string
		redisAddr string
	)

	cmd := &cobra.Command{
		Use:   "run <suite.toml>",
		Short: "Execute a workflow suite against a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := suite.LoadFile(args[0])
			if err != nil {
				return err
			}

			printInfo("Running suite %s (%d steps)", StyleValue.Render(def.Name), len(def.Steps))

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var sessions session.Store
			if redisAddr != "" {
				store, err := session.NewRedisStore(ctx, session.RedisConfig{Addr: redisAddr})
				if err != nil {
					return err
				}
				defer store.Close()
				sessions = store
			} else if usesSessionValidators(def) {
				printWarning("Suite uses session validators; pass --redis so they can read the session store")
			}

			run, err := def.Build(suite.BuildConfig{
				BaseURL:  baseURL,
				Sessions: sessions,
				Logger:   c.Logger,
			})
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			spinner := newSpinnerWithContext(ctx, "running workflow")
			observability.SetRunnerHooks(&stepProgress{spinner: spinner})
			defer observability.Reset()
			spinner.Start()
			transcript, runErr := run.Run(ctx)
			spinner.Stop()

			printTranscript(transcript)
			if transcript != nil {
				prog.done(fmt.Sprintf("Executed %d step(s)", len(transcript.Steps)))
			}

			if !noReport && transcript != nil {
				if err := saveReport(ctx, transcript, reportDir); err != nil {
					printWarning("Could not save report: %v", err)
				}
			}

			if runErr != nil {
				return fmt.Errorf("suite %q failed: %s", def.Name, errors.UserMessage(runErr))
			}
			printSuccess("Suite %s passed", def.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "override the suite's base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall run timeout (e.g. 30s)")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "do not save a run report")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "report directory (defaults to the XDG data dir)")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address of the server's session store (host:port)")

	return cmd
}

// stepProgress swaps the spinner message as the run advances.
type stepProgress struct {
	observability.NoopRunnerHooks
	spinner *Spinner
}

func (p *stepProgress) OnStepStart(ctx context.Context, key, step string) {
	p.spinner.SetMessage(fmt.Sprintf("step %s: %s", key, step))
}

// usesSessionValidators reports whether any step in the suite carries a
// session validator.
func usesSessionValidators(def *suite.Definition) bool {
	for _, s := range def.Steps {
		for _, v := range s.Validators {
			if v.Type == "session" {
				return true
			}
		}
	}
	return false
}

// printTranscript prints a per-step summary of a run.
func printTranscript(t *report.Transcript) {
	if t == nil {
		return
	}
	for _, s := range t.Steps {
		status := fmt.Sprintf("%s %s %s (%d, %s)",
			s.Method, s.Step, StyleDim.Render(s.URL), s.StatusCode,
			s.Duration.Round(time.Millisecond))
		switch {
		case s.Error != "":
			printError("%s", status)
			printDetail("%s", s.Error)
		case len(s.Failures) > 0:
			printError("%s", status)
			for _, f := range s.Failures {
				printDetail("%s", f)
			}
		default:
			printSuccess("%s", status)
		}
	}
}

// saveReport persists a transcript, in dir when given or the XDG data
// directory otherwise.
func saveReport(ctx context.Context, t *report.Transcript, dir string) error {
	var store *report.FileStore
	var err error
	if dir != "" {
		store, err = report.NewFileStore(dir)
	} else {
		store, err = newReportStore()
	}
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, t); err != nil {
		return err
	}
	printDetail("Report saved as %s", t.RunID)
	return nil
}

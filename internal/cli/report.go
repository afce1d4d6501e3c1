package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/miki725/subui/pkg/report"
)

// reportCommand creates the report management command.
func (c *CLI) reportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Manage stored run reports",
	}

	cmd.AddCommand(c.reportListCommand())
	cmd.AddCommand(c.reportShowCommand())
	cmd.AddCommand(c.reportBrowseCommand())
	cmd.AddCommand(c.reportPathCommand())
	cmd.AddCommand(c.reportClearCommand())

	return cmd
}

// reportListCommand creates the "report list" subcommand.
func (c *CLI) reportListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored run reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newReportStore()
			if err != nil {
				return err
			}
			defer store.Close()

			transcripts, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(transcripts) == 0 {
				printInfo("No reports stored")
				return nil
			}

			for _, t := range transcripts {
				printTranscriptLine(t)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of reports to list")

	return cmd
}

// reportShowCommand creates the "report show" subcommand.
func (c *CLI) reportShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newReportStore()
			if err != nil {
				return err
			}
			defer store.Close()

			t, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printKeyValue("run", t.RunID)
			printKeyValue("suite", t.Suite)
			printKeyValue("started", t.StartedAt.Format(time.RFC3339))
			printKeyValue("duration", t.Duration().Round(time.Millisecond).String())
			fmt.Println()
			printTranscript(t)
			return nil
		},
	}
}

// reportBrowseCommand creates the "report browse" subcommand.
func (c *CLI) reportBrowseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactively browse stored run reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newReportStore()
			if err != nil {
				return err
			}
			defer store.Close()

			transcripts, err := store.List(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if len(transcripts) == 0 {
				printInfo("No reports stored")
				return nil
			}

			model := NewReportListModel(transcripts)
			final, err := tea.NewProgram(model).Run()
			if err != nil {
				return fmt.Errorf("run report browser: %w", err)
			}

			m, ok := final.(ReportListModel)
			if !ok || m.Selected == nil {
				return nil
			}
			fmt.Println()
			printTranscript(m.Selected)
			return nil
		},
	}
}

// reportPathCommand creates the "report path" subcommand.
func (c *CLI) reportPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the report directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := reportDir()
			if err != nil {
				return fmt.Errorf("get report dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// reportClearCommand creates the "report clear" subcommand.
func (c *CLI) reportClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored run reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newReportStore()
			if err != nil {
				return err
			}
			defer store.Close()

			transcripts, err := store.List(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}

			printSuccess("Cleared %d reports", len(transcripts))
			printDetail("Directory: %s", store.Path())
			return nil
		},
	}
}

// printTranscriptLine prints a one-line report summary.
func printTranscriptLine(t *report.Transcript) {
	status := styleIconSuccess.Render(iconSuccess)
	if !t.Passed {
		status = styleIconError.Render(iconError)
	}
	fmt.Printf("%s %s  %s  %s  %s\n",
		status,
		t.RunID,
		StyleValue.Render(t.Suite),
		StyleDim.Render(t.StartedAt.Format("2006-01-02 15:04:05")),
		StyleDim.Render(fmt.Sprintf("%d steps", len(t.Steps))),
	)
}

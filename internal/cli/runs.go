package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/repowizard/repowizard/pkg/history"
	"github.com/repowizard/repowizard/pkg/runlog"
)

// runsCommand creates the runs command for browsing past setups.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse past setup runs",
	}
	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())
	cmd.AddCommand(c.runsLogsCommand())
	return cmd
}

func (c *CLI) runsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded setup runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewFileStore("")
			if err != nil {
				return err
			}
			runs, err := store.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("no runs recorded yet")
				return nil
			}
			for _, r := range runs {
				status := StyleSuccess.Render(iconSuccess)
				if r.Error != "" {
					status = StyleError.Render(iconError)
				}
				fmt.Printf("%s %s  %s  %s %s %s\n",
					status,
					StyleDim.Render(r.StartedAt.Format("2006-01-02 15:04")),
					StyleHighlight.Render(shortID(r.ID)),
					r.SourceKind,
					StyleValue.Render(r.SourceValue),
					StyleDim.Render(runOutcome(r)),
				)
			}
			return nil
		},
	}
}

func (c *CLI) runsShowCommand() *cobra.Command {
	var showLog bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one setup run, including its log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewFileStore("")
			if err != nil {
				return err
			}
			rec, err := findRun(store, args[0])
			if err != nil {
				return err
			}

			printKeyValue("ID", rec.ID)
			printKeyValue("Source", fmt.Sprintf("%s (%s)", rec.SourceValue, rec.SourceKind))
			if rec.TargetPath != "" {
				printKeyValue("Target", rec.TargetPath)
				printKeyValue("Files", fmt.Sprintf("%d", rec.Files))
			}
			printKeyValue("Started", rec.StartedAt.Format(time.RFC3339))
			printKeyValue("Duration", rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond).String())
			if rec.Error != "" {
				printKeyValue("Status", StyleError.Render("failed: "+rec.Error))
			} else {
				printKeyValue("Status", StyleSuccess.Render("ok"))
			}
			for _, ins := range rec.Installs {
				if ins.Success {
					printDetail("%s %s", iconSuccess, ins.Command)
				} else {
					printDetail("%s %s: %s", iconWarning, ins.Manager, ins.Error)
				}
			}
			if rec.LogPath != "" {
				printKeyValue("Log", rec.LogPath)
				if showLog {
					printNewline()
					data, err := os.ReadFile(rec.LogPath)
					if err != nil {
						printWarning("log unavailable: %v", err)
						return nil
					}
					fmt.Print(string(data))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showLog, "log", false, "print the run's log file")
	return cmd
}

func (c *CLI) runsLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "List raw run log files, newest first",
		Long:  `List the per-run log files on disk. This includes logs of runs that never produced a history record, such as runs interrupted before completion.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, names, err := logFiles()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("no log files found")
				return nil
			}
			for _, name := range names {
				printFile(filepath.Join(dir, name))
			}
			return nil
		},
	}
}

// logFiles returns the run log directory and its file names, newest first.
func logFiles() (string, []string, error) {
	dir, err := runlog.Dir()
	if err != nil {
		return "", nil, err
	}
	names, err := runlog.List(dir)
	if err != nil {
		return "", nil, err
	}
	return dir, names, nil
}

// findRun resolves a full or shortened run ID.
func findRun(store *history.FileStore, id string) (*history.Record, error) {
	rec, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	runs, err := store.List()
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if shortID(r.ID) == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("run %s not found", id)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runOutcome(r *history.Record) string {
	if r.Error != "" {
		return "failed"
	}
	return fmt.Sprintf("%d files", r.Files)
}

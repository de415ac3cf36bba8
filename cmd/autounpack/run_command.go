package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"autounpack/internal/app"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the configured pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx)
		},
	}
}

func runPipeline(cmd *cobra.Command, ctx *commandContext) error {
	summary, err := app.Run(cmd.Context(), app.Options{
		ConfigPath: ctx.configPath(),
		Mode:       ctx.mode(),
		LogLevel:   ctx.logLevel(),
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderSummary(summary, shouldColorize(out)))
	return nil
}

func renderSummary(summary *app.Summary, colorize bool) string {
	message := fmt.Sprintf("%d steps in %s (run %s)", summary.Steps, summary.Elapsed.Round(time.Millisecond), summary.RunID)
	lines := renderStatusLine("Finished", statusOK, message, colorize) + "\n"
	if summary.LogPath != "" {
		lines += renderStatusLine("Log", statusInfo, summary.LogPath, colorize) + "\n"
	}
	rows := make([][]string, 0, len(summary.Contexts))
	for _, c := range summary.Contexts {
		rows = append(rows, []string{c.Key, strconv.Itoa(c.Files)})
	}
	return lines + renderTable([]string{"Context", "Files"}, rows, []columnAlignment{alignLeft, alignRight})
}

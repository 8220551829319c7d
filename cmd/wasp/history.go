package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/wasp/internal/runlog"
)

func newHistoryCmd() *cobra.Command {
	var (
		ledger string
		limit  int
		runID  string
		format string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, or the stage invocations of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", format)
			}
			store, err := runlog.Open(ledger)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID != "" {
				if _, err := store.GetRun(runID); err != nil {
					return err
				}
				stages, err := store.ListStages(runID)
				if err != nil {
					return err
				}
				if format == "json" {
					return printJSON(out, stages)
				}
				return printStages(out, stages)
			}

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(out, runs)
			}
			return printRuns(out, runs)
		},
	}
	cmd.Flags().StringVar(&ledger, "ledger", "", "SQLite run ledger")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the stage invocations of this run")
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json)")
	_ = cmd.MarkFlagRequired("ledger")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRuns(w io.Writer, runs []runlog.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tPLATFORM\tTILE\tDATE\tINPUTS\tITERATIONS\tERROR")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.RunID, r.StartedAt.Format(time.RFC3339), r.Status, r.Platform, r.Tile,
			r.SynthesisDate, r.InputCount, r.Iterations, r.ErrorClass)
	}
	return tw.Flush()
}

func printStages(w io.Writer, stages []runlog.StageRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SEQ\tSTAGE\tITERATION\tEXIT\tDURATION\tERROR")
	for _, s := range stages {
		iter := fmt.Sprint(s.Iteration)
		if s.Iteration < 0 {
			iter = "final"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			s.Seq, s.Stage, iter, s.ExitStatus, s.Duration.Round(time.Millisecond), s.Error)
	}
	return tw.Flush()
}

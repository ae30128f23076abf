package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"timewarp.dev/internal/persistence/indexdb"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent searches and submissions from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := indexdb.OpenReader(a.indexPath())
			if err != nil {
				return err
			}
			defer r.Close()

			searches, err := r.RecentSearches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tTICK\tMAP\tTARGET\tOUTCOME\tPATH\tEXPANDED\tMS")
			for _, s := range searches {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%.0f,%.0f\t%s\t%d\t%d\t%d\n",
					s.RunID, s.Tick, s.Map, s.TargetX, s.TargetY, s.Outcome, s.PathTicks, s.Expanded, s.ElapsedMs)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			subs, err := r.Submissions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout)
			tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BATCH\tTICKS\tFRAMES\tAT")
			for _, s := range subs {
				fmt.Fprintf(tw, "%s\t%d-%d\t%d\t%s\n", s.BatchID, s.FirstTick, s.LastTick, s.Frames, s.At.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of searches to show")
	return cmd
}

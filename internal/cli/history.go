package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var (
		folder string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent optimization runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := svc.History(folder, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tFOLDER\tSTATUS\tDIRECTORIES\tFILES\tDURATION\tERROR")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d->%d\t%d->%d\t%s\t%s\n",
					r.StartTime.Local().Format(time.DateTime),
					r.Folder,
					r.Status,
					r.DirectoryActionsBefore, r.DirectoryActionsAfter,
					r.FileActionsBefore, r.FileActionsAfter,
					r.EndTime.Sub(r.StartTime).Round(time.Millisecond),
					r.Error,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "only show runs of this folder")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")

	return cmd
}

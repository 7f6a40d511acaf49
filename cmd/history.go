package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/repairsched/app"
	"github.com/kilianp07/repairsched/core/runlog"
)

var (
	historyStatus string
	historyRunID  string
	historySince  time.Duration
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs from the run log",
	RunE:  history,
}

func init() {
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "only runs with this status")
	historyCmd.Flags().StringVar(&historyRunID, "run-id", "", "only the run with this id")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only runs younger than this duration, e.g. 24h")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs, most recent first kept")
	rootCmd.AddCommand(historyCmd)
}

func history(cmd *cobra.Command, args []string) error {
	q := runlog.Query{Status: historyStatus, RunID: historyRunID, Limit: historyLimit}
	if historySince > 0 {
		q.Start = time.Now().Add(-historySince)
	}
	return withService(offline, func(svc *app.Service) error {
		recs, err := svc.Store().Query(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("query run log: %w", err)
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}
		_, err = fmt.Fprint(out, formatHistory(recs))
		return err
	})
}

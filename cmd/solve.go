package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/repairsched/app"
	"github.com/kilianp07/repairsched/config"
	"github.com/kilianp07/repairsched/pkg/export"
)

var (
	solveTimeLimit float64
	solveNoPublish bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the configured instance and write the reports",
	RunE:  solve,
}

func init() {
	solveCmd.Flags().Float64Var(&solveTimeLimit, "time-limit", 0, "solver time limit in seconds (overrides solver.time_limit_seconds)")
	solveCmd.Flags().BoolVar(&solveNoPublish, "no-publish", false, "do not send shipment orders to repairers")
	rootCmd.AddCommand(solveCmd)
}

func solve(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	tune := func(c *config.Config) error {
		if solveTimeLimit > 0 {
			c.Solver.TimeLimitSeconds = solveTimeLimit
		}
		if solveNoPublish {
			c.Publish.Enabled = false
		}
		return nil
	}
	return withService(tune, func(svc *app.Service) error {
		res, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return export.WriteJSON(out, export.Document{
				RunID:     res.RunID,
				Generated: time.Now().UTC().Format(time.RFC3339),
				Schedule:  res.Schedule,
			})
		}
		_, err = fmt.Fprint(out, formatRun(res))
		return err
	})
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/repairsched/app"
	"github.com/kilianp07/repairsched/config"
)

var varySpec string

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity",
	Short: "Re-solve the instance for several values of one objective weight",
	Example: `  repairsched sensitivity --vary lead_time=1,2,4
  repairsched sensitivity --vary emissions=0,0.01,0.1 --json`,
	RunE: sensitivity,
}

func init() {
	sensitivityCmd.Flags().StringVar(&varySpec, "vary", "", "weight and values, e.g. lead_time=1,2,4")
	_ = sensitivityCmd.MarkFlagRequired("vary")
	rootCmd.AddCommand(sensitivityCmd)
}

type variantJSON struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Objective  float64 `json:"objective"`
	LeadTime   float64 `json:"lead_time"`
	Shipping   float64 `json:"shipping_cost"`
	Quality    float64 `json:"quality_drop"`
	RepairCost float64 `json:"repair_cost"`
	Emissions  float64 `json:"emissions"`
	Error      string  `json:"error,omitempty"`
}

func sensitivity(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	var variants []app.Variant
	tune := func(c *config.Config) (err error) {
		variants, err = app.ParseVary(c.Model.Weights, varySpec)
		return err
	}
	return withService(tune, func(svc *app.Service) error {
		res, err := svc.Sensitivity(ctx, variants)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			rows := make([]variantJSON, len(res))
			for i, r := range res {
				rows[i] = variantJSON{
					Name: r.Variant.Name, Status: r.Status, Objective: r.Objective,
					LeadTime: r.Components.LeadTime, Shipping: r.Components.ShippingCost,
					Quality: r.Components.QualityDrop, RepairCost: r.Components.RepairCost,
					Emissions: r.Components.Emissions,
				}
				if r.Err != nil {
					rows[i].Error = r.Err.Error()
				}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}
		_, err = fmt.Fprint(out, formatSensitivity(res))
		return err
	})
}

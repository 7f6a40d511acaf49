package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/repairsched/app"
	"github.com/kilianp07/repairsched/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /metrics and the run history on /api/runs",
	RunE:  serve,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides api.address)")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	tune := func(c *config.Config) error {
		if serveAddr != "" {
			c.API.Address = serveAddr
		}
		c.Publish.Enabled = false
		return nil
	}
	return withService(tune, func(svc *app.Service) error { return svc.Serve(ctx) })
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/evyataryagoni/iptracker/internal/config"
	"github.com/evyataryagoni/iptracker/internal/controller"
	"github.com/evyataryagoni/iptracker/internal/geoapi"
	"github.com/evyataryagoni/iptracker/internal/logger"
	"github.com/spf13/cobra"
)

// This tool runs a single lookup from the terminal, handy for checking
// the API key and upstream connectivity without a browser.
// Usage: go run ./cmd/lookup [address] [--json]
func main() {
	appConfig := config.Load()
	log := logger.New(logger.Config{Level: appConfig.LogLevel, Pretty: true, Output: os.Stderr})

	client := geoapi.NewHTTPClient(geoapi.Config{
		BaseURL: appConfig.GeoAPIURL,
		APIKey:  appConfig.GeoAPIKey,
		Timeout: appConfig.GeoAPITimeout,
	}, nil)

	if err := newLookupCmd(client, log).Execute(); err != nil {
		os.Exit(1)
	}
}

func newLookupCmd(client geoapi.Client, log *logger.Logger) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lookup [address]",
		Short: "Look up the location and ISP of an IP address or domain",
		Long: `Resolves an IP address or domain through the geolocation service.
Without an address the service reports the caller's own public IP.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := controller.New(client, controller.Options{Logger: log})
			if len(args) == 1 {
				ctrl.UpdateInputText(args[0])
			}

			if err := ctrl.SubmitLookup(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "lookup failed: %s\n", ctrl.Snapshot().LastError)
				return err
			}

			state := ctrl.Snapshot()
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(state.Result)
			}

			d := state.Display
			fmt.Fprintf(out, "IP ADDRESS  %s\n", d.IP)
			fmt.Fprintf(out, "LOCATION    %s\n", d.Location)
			fmt.Fprintf(out, "TIMEZONE    %s\n", d.Timezone)
			fmt.Fprintf(out, "ISP         %s\n", d.ISP)
			fmt.Fprintf(out, "COORDINATES %.4f, %.4f\n", state.Result.Location.Latitude, state.Result.Location.Longitude)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw lookup result as JSON")

	return cmd
}

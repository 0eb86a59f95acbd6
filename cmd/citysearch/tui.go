package main

import (
	"context"
	"io"
	"os"

	"github.com/PetoAdam/homenavi/citysearch/internal/config"
	"github.com/PetoAdam/homenavi/citysearch/internal/country"
	"github.com/PetoAdam/homenavi/citysearch/internal/geocode"
	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/search"
	"github.com/PetoAdam/homenavi/citysearch/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		serverURL string
		logFile   string
	)
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Search cities in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}

			// stdout belongs to the terminal UI.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			setupLogger(w, cfg)

			searcher, weather := tuiBackend(cfg)
			return tui.Run(cmd.Context(), searcher, weather, bindings(cfg), search.WithDelay(cfg.Search.Debounce))
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "search through a running citysearch service instead of OpenWeather directly")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	return cmd
}

// tuiBackend talks to a citysearch service when server_url is set and to
// OpenWeather otherwise.
func tuiBackend(cfg *config.Config) (geocode.Searcher, tui.WeatherFunc) {
	if cfg.ServerURL != "" {
		remote := geocode.NewRemoteGateway(cfg.ServerURL, cfg.OpenWeather.Timeout)
		return remote, remote.Weather
	}
	client := newOWMClient(cfg)
	gateway := geocode.NewGateway(client, geocode.NewMapper(country.NewRegistry()), cfg.Search.Limit)
	return gateway, func(ctx context.Context, at models.Coordinates) (models.WeatherReport, error) {
		return client.CurrentWeather(ctx, at.Lat, at.Lon)
	}
}

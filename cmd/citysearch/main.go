package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/PetoAdam/homenavi/citysearch/internal/config"
	"github.com/PetoAdam/homenavi/citysearch/internal/keynav"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "citysearch",
		Short:         "City search with debounced autocomplete and weather lookup",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")

	load := func() (*config.Config, error) {
		return config.Load(cfgPath)
	}
	root.AddCommand(newServeCmd(load), newTUICmd(load))
	return root
}

// setupLogger installs the default slog logger. Text unless log.format is json.
func setupLogger(w io.Writer, cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(cfg.Log.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func bindings(cfg *config.Config) keynav.Bindings {
	return keynav.Bindings{
		Previous: cfg.Keys.Previous,
		Next:     cfg.Keys.Next,
		Commit:   cfg.Keys.Commit,
	}
}

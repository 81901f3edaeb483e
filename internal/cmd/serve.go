package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thesyncim/vidprobe/pkg/probe/fixture"
)

var (
	serveAddr   string
	serveSource string
	serveSample string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fixture page over HTTP",
	Long: `Start an HTTP server that serves the video fixture page. Useful for
probing with --no-fixture, for browsers that refuse file:// media, and
for fully offline runs via --sample.

Examples:
  vidprobe serve
  vidprobe serve --sample ./clip.mp4
  vidprobe serve --addr :9090 --source https://example.com/clip.mp4`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg := fixture.DefaultServerConfig()
		cfg.Addr = serveAddr
		cfg.Source = serveSource
		cfg.SamplePath = serveSample

		srv, err := fixture.NewServer(cfg)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		addr, err := srv.Start()
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		Logger.WithField("addr", addr).Info("fixture server listening")
		fmt.Printf("Fixture page on http://%s — Ctrl-C to stop\n", addr)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveSource, "source", "", "Video source URL to embed (default: built-in sample)")
	serveCmd.Flags().StringVar(&serveSample, "sample", "", "Local MP4 to serve at /sample.mp4 (overrides --source)")
	rootCmd.AddCommand(serveCmd)
}

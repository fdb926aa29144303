// Package realtime implements the streaming visualization command.
package realtime

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/musicv-go/internal/analysis"
	"github.com/tphakala/musicv-go/internal/conf"
)

// Command creates the realtime command for visualizing live audio.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Visualize live audio",
		Long: `Capture audio from the configured device and drive the render loop in
real time. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.RealtimeAnalysis(cmd.Context(), settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVarP(&settings.Audio.Source, "source", "s", settings.Audio.Source, "Capture device name, or an audio file played at real-time pace")
}

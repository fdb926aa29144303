// Package file implements the batch visualization command.
package file

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/musicv-go/internal/analysis"
	"github.com/tphakala/musicv-go/internal/conf"
)

// Command creates the file command for visualizing a single audio file.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file [input.wav]",
		Short: "Visualize an audio file",
		Long: `Decode an audio file, extract its full feature sequence up front and
play it through the render loop. A .json input is treated as a previously
exported feature container.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.FileAnalysis(cmd.Context(), settings, args[0])
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags configures flags specific to the file command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().BoolVar(&settings.Export.Enabled, "export", settings.Export.Enabled, "Export the extracted feature sequence")
	cmd.Flags().StringVarP(&settings.Export.Path, "output", "o", settings.Export.Path, "Path the feature container is written to")
}

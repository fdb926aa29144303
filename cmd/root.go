// Package cmd assembles the musicv command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/musicv-go/cmd/config"
	"github.com/tphakala/musicv-go/cmd/devices"
	"github.com/tphakala/musicv-go/cmd/file"
	"github.com/tphakala/musicv-go/cmd/realtime"
	"github.com/tphakala/musicv-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "musicv",
		Short: "MusicV audio visualization engine CLI",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		file.Command(settings),
		realtime.Command(settings),
		devices.Command(),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Sync flag overrides back into the settings snapshot, then validate
		// the merged result once for every subcommand.
		settings.Debug = viper.GetBool("debug")
		return settings.Validate()
	}

	return rootCmd
}

// setupFlags defines flags global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVar(&settings.Render.TargetFPS, "fps", viper.GetInt("render.targetfps"), "Target frame rate")
	rootCmd.PersistentFlags().StringSliceVar(&settings.Components.Enabled, "components", settings.Components.Enabled, "Visual components to activate")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}

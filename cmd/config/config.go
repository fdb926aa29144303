// Package config implements the effective-configuration dump command.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/musicv-go/internal/conf"
)

// Command creates the config command printing or saving the effective
// settings after defaults, config file and flags are merged.
func Command(settings *conf.Settings) *cobra.Command {
	var saveTo string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if saveTo != "" {
				if err := settings.SaveAs(saveTo); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", saveTo)
				return nil
			}

			data, err := settings.DumpYAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&saveTo, "save", "", "Write the effective configuration to a file")

	return cmd
}

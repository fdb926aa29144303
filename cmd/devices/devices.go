// Package devices implements the capture device listing command.
package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/musicv-go/internal/audio"
)

// Command creates the devices command listing available capture devices.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := audio.ListCaptureDevices()
			if err != nil {
				return err
			}

			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No capture devices found")
				return nil
			}

			for _, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", d.Index, d.Name)
			}
			return nil
		},
	}
}

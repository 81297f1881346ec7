package cmd

import (
	"fmt"

	"github.com/maxladabaum/experiment-automation/comm/serial"
	"github.com/spf13/cobra"
)

// portsCmd represents the ports command
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports and what is plugged into them",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := serial.DetailedPorts()
		if err != nil {
			return err
		}
		for _, p := range pp {
			if p.IsUSB {
				fmt.Printf("%s\tUSB %s:%s\t%s\n", p.Name, p.VID, p.PID, p.Product)
			} else {
				fmt.Println(p.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

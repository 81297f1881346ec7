package cmd

import (
	"context"
	"fmt"
	"time"

	amqp2 "github.com/maxladabaum/experiment-automation/amqp"
	"github.com/maxladabaum/experiment-automation/amqp/client"
	"github.com/maxladabaum/experiment-automation/env"
	"github.com/spf13/cobra"
)

var (
	remoteURI      string
	remoteExchange string
	remoteDevice   string
	remoteTimeout  time.Duration
	remoteVolume   float64
	remoteSpeed    int
	remotePort     int
)

// remoteCmd represents the remote command
var remoteCmd = &cobra.Command{
	Use:   "remote <operation>",
	Short: "Send a command to a pump daemon over AMQP",
	Long: `remote publishes one command to a running pumpd and waits for its
event reply. Operations: initialize, set_speed, valve, aspirate,
dispense.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"initialize", "set_speed", "valve", "aspirate", "dispense"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if remoteURI == "" {
			return fmt.Errorf("remote: RABBITMQ_URI not set and --uri not given")
		}
		conn, err := amqp2.Dial(&env.Environment{URI: remoteURI})
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()
		ctrl, err := client.NewController(conn, remoteExchange, remoteDevice)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
		defer cancel()
		ev, err := ctrl.Do(ctx, args[0], amqp2.CommandBody{
			VolumeUL: remoteVolume,
			Speed:    remoteSpeed,
			Port:     remotePort,
		})
		if err != nil {
			return err
		}
		if ev.Reply != "" {
			fmt.Println(ev.Reply)
		}
		fmt.Println("state:", ev.State)
		return nil
	},
}

func init() {
	remoteCmd.Flags().StringVar(&remoteURI, "uri", envOr("RABBITMQ_URI", ""), "AMQP broker URI")
	remoteCmd.Flags().StringVar(&remoteExchange, "exchange", envOr("AMQP_EXCHANGE", "topic_devices"), "topic exchange the daemon listens on")
	remoteCmd.Flags().StringVar(&remoteDevice, "device", envOr("DEVICE_ID", "centris"), "device id of the daemon")
	remoteCmd.Flags().DurationVar(&remoteTimeout, "timeout", 30*time.Second, "how long to wait for the reply")
	remoteCmd.Flags().Float64Var(&remoteVolume, "volume", 0, "volume in µL (aspirate/dispense)")
	remoteCmd.Flags().IntVar(&remoteSpeed, "speed", 0, "plunger speed code (set_speed, or set before a move)")
	remoteCmd.Flags().IntVar(&remotePort, "valve-port", 0, "valve port (valve)")
	rootCmd.AddCommand(remoteCmd)
}

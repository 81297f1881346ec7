package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/maxladabaum/experiment-automation/pump"
	"github.com/spf13/cobra"
)

var speed int

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Drive the pump to its reference position (ZR)",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer func() { _ = logger.Sync() }()
		return withSession(logger, false, func(s *pump.Session) error {
			reply, err := s.Initialize()
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		})
	},
}

// valveCmd represents the valve command
var valveCmd = &cobra.Command{
	Use:   "valve <port>",
	Short: "Switch the distribution valve to a port (I<n>R)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return motion(pump.SelectValve{Port: port})
	},
}

// speedCmd represents the speed command
var speedCmd = &cobra.Command{
	Use:   "speed <code>",
	Short: "Set the plunger speed code (S<n>R)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return motion(pump.SetSpeed{Speed: code})
	},
}

// aspirateCmd represents the aspirate command
var aspirateCmd = &cobra.Command{
	Use:   "aspirate <µL>",
	Short: "Draw a volume into the syringe (A<steps>R)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return plungerMove(args[0], func(steps int) pump.Command {
			return pump.Aspirate{Steps: steps}
		})
	},
}

// dispenseCmd represents the dispense command
var dispenseCmd = &cobra.Command{
	Use:   "dispense <µL>",
	Short: "Push a volume out of the syringe (D<steps>R)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return plungerMove(args[0], func(steps int) pump.Command {
			return pump.Dispense{Steps: steps}
		})
	},
}

func motion(cmd pump.Command) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()
	return withSession(logger, true, func(s *pump.Session) error {
		reply, err := s.Execute(cmd)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	})
}

func plungerMove(volumeArg string, cmd func(steps int) pump.Command) error {
	volume, err := strconv.ParseFloat(volumeArg, 64)
	if err != nil {
		return err
	}
	logger := newLogger()
	defer func() { _ = logger.Sync() }()
	return withSession(logger, true, func(s *pump.Session) error {
		if speed > 0 {
			if _, err := s.Execute(pump.SetSpeed{Speed: speed}); err != nil {
				return err
			}
			time.Sleep(200 * time.Millisecond)
		}
		steps, err := s.Calibration().Steps(volume)
		if err != nil {
			return err
		}
		reply, err := s.Execute(cmd(steps))
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	})
}

func init() {
	aspirateCmd.Flags().IntVar(&speed, "speed", 0, "plunger speed code to set first")
	dispenseCmd.Flags().IntVar(&speed, "speed", 0, "plunger speed code to set first")
	rootCmd.AddCommand(initCmd, valveCmd, speedCmd, aspirateCmd, dispenseCmd)
}

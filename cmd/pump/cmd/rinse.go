package cmd

import (
	"github.com/maxladabaum/experiment-automation/pump"
	"github.com/maxladabaum/experiment-automation/sequence"
	"github.com/spf13/cobra"
)

var (
	samplePort int
	wastePort  int
	rinseUL    float64
	cycles     int
)

// rinseCmd represents the rinse command
var rinseCmd = &cobra.Command{
	Use:   "rinse",
	Short: "Flush volume from the sample port to waste",
	Long: `rinse references the pump, then runs sample-to-waste cycles:
valve to the sample port, aspirate, valve to the waste port, dispense,
waiting the settle delay after each motion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer func() { _ = logger.Sync() }()
		return withSession(logger, true, func(s *pump.Session) error {
			steps, err := sequence.Rinse(s.Calibration(), samplePort, wastePort, cycles, rinseUL)
			if err != nil {
				return err
			}
			return sequence.Run(cmd.Context(), s, steps)
		})
	},
}

func init() {
	rinseCmd.Flags().IntVar(&samplePort, "from", 1, "valve port to draw from")
	rinseCmd.Flags().IntVar(&wastePort, "to", 9, "valve port to dispense to")
	rinseCmd.Flags().Float64Var(&rinseUL, "volume", 50, "volume per cycle in µL")
	rinseCmd.Flags().IntVar(&cycles, "cycles", 1, "number of cycles")
	rootCmd.AddCommand(rinseCmd)
}

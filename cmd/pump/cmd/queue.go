package cmd

import (
	"fmt"

	"github.com/maxladabaum/experiment-automation/pump"
	"github.com/maxladabaum/experiment-automation/queue"
	"github.com/spf13/cobra"
)

var (
	picoPort string
	dataDir  string
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Work with saved run queues",
}

// queueRunCmd represents the queue run command
var queueRunCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Execute a saved run queue",
	Long: `queue run loads a queue file and executes its items in order: pump
actions, pauses, and measurements. A failed item is marked failed and the
queue keeps going.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer func() { _ = logger.Sync() }()
		items, skipped, err := queue.Load(args[0])
		if err != nil {
			return err
		}
		if skipped > 0 {
			fmt.Printf("skipped %d invalid item(s)\n", skipped)
		}
		err = withSession(logger, true, func(s *pump.Session) error {
			runner := &queue.Runner{
				Session: s,
				Measure: queue.PicoMeasurer(picoPort, portName, dataDir, logger),
				Logger:  logger,
			}
			return runner.Run(cmd.Context(), items)
		})
		for i, it := range items {
			fmt.Printf("%3d  %-9s  %s\n", i+1, it.Status, it.Details)
		}
		return err
	},
}

// queueShowCmd represents the queue show command
var queueShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the items of a saved run queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, skipped, err := queue.Load(args[0])
		if err != nil {
			return err
		}
		for i, it := range items {
			fmt.Printf("%3d  %-12s %s\n", i+1, it.Kind, it.Details)
		}
		if skipped > 0 {
			fmt.Printf("(%d invalid item(s) skipped)\n", skipped)
		}
		return nil
	},
}

func init() {
	queueRunCmd.Flags().StringVar(&picoPort, "pico-port", envOr("PICO_PORT", ""), "serial port of the EmStat Pico (auto-detect when empty)")
	queueRunCmd.Flags().StringVar(&dataDir, "data-dir", envOr("DATA_DIR", "measurement_data"), "directory for measurement CSV files")
	queueCmd.AddCommand(queueRunCmd, queueShowCmd)
	rootCmd.AddCommand(queueCmd)
}

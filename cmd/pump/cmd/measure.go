package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maxladabaum/experiment-automation/pico"
	"github.com/spf13/cobra"
)

var (
	cvParams  pico.CVParams
	swvParams pico.SWVParams
	scriptOut string
	dryRun    bool
)

// measureCmd represents the measure command
var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Run an electrochemical measurement on the EmStat Pico",
}

// cvCmd represents the measure cv command
var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "Cyclic voltammetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := cvParams.Script()
		if err != nil {
			return err
		}
		return runMeasurement(cmd, "cv", script)
	},
}

// swvCmd represents the measure swv command
var swvCmd = &cobra.Command{
	Use:   "swv",
	Short: "Square wave voltammetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := swvParams.Script()
		if err != nil {
			return err
		}
		return runMeasurement(cmd, "swv", script)
	},
}

func runMeasurement(cmd *cobra.Command, technique, script string) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	if scriptOut != "" || dryRun {
		out := scriptOut
		if out == "" {
			out = fmt.Sprintf("%s_%s.ms", technique, time.Now().Format("150405"))
		}
		if err := os.WriteFile(out, []byte(script+"\n"), 0o644); err != nil {
			return err
		}
		fmt.Println("script written to", out)
		if dryRun {
			return nil
		}
	}

	port := picoPort
	if port == "" {
		var err error
		port, err = pico.FindDevicePort(portName)
		if err != nil {
			return err
		}
	}
	runner, err := pico.Connect(port, logger)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()
	if err := runner.Run(cmd.Context(), script); err != nil {
		return err
	}
	if len(runner.Points()) == 0 {
		fmt.Println("no data points collected")
		return nil
	}
	path, err := pico.WriteCSV(filepath.Join(dataDir, time.Now().Format("2006-01-02")), technique, runner.Points())
	if err != nil {
		return err
	}
	fmt.Printf("%d points -> %s\n", len(runner.Points()), path)
	return nil
}

func init() {
	cvCmd.Flags().Float64Var(&cvParams.BeginPotential, "begin", -0.5, "begin potential (V)")
	cvCmd.Flags().Float64Var(&cvParams.Vertex1, "vertex1", 0.5, "first vertex potential (V)")
	cvCmd.Flags().Float64Var(&cvParams.Vertex2, "vertex2", -0.5, "second vertex potential (V)")
	cvCmd.Flags().Float64Var(&cvParams.StepPotential, "step", 0.005, "step potential (V)")
	cvCmd.Flags().Float64Var(&cvParams.ScanRate, "rate", 0.1, "scan rate (V/s)")
	cvCmd.Flags().IntVar(&cvParams.Scans, "scans", 1, "number of scans")
	cvCmd.Flags().Float64Var(&cvParams.CondPotential, "cond", 0, "conditioning potential (V)")
	cvCmd.Flags().Float64Var(&cvParams.CondTime, "cond-time", 0, "conditioning time (s)")

	swvCmd.Flags().Float64Var(&swvParams.BeginPotential, "begin", -0.5, "begin potential (V)")
	swvCmd.Flags().Float64Var(&swvParams.EndPotential, "end", 0.5, "end potential (V)")
	swvCmd.Flags().Float64Var(&swvParams.StepPotential, "step", 0.005, "step potential (V)")
	swvCmd.Flags().Float64Var(&swvParams.Amplitude, "amplitude", 0.02, "pulse amplitude (V)")
	swvCmd.Flags().Float64Var(&swvParams.Frequency, "frequency", 10, "pulse frequency (Hz)")
	swvCmd.Flags().IntVar(&swvParams.Scans, "scans", 1, "number of scans")
	swvCmd.Flags().Float64Var(&swvParams.CondPotential, "cond", 0, "conditioning potential (V)")
	swvCmd.Flags().Float64Var(&swvParams.CondTime, "cond-time", 0, "conditioning time (s)")

	measureCmd.PersistentFlags().StringVar(&picoPort, "pico-port", envOr("PICO_PORT", ""), "serial port of the EmStat Pico (auto-detect when empty)")
	measureCmd.PersistentFlags().StringVar(&dataDir, "data-dir", envOr("DATA_DIR", "measurement_data"), "directory for measurement CSV files")
	measureCmd.PersistentFlags().StringVar(&scriptOut, "save-script", "", "also write the generated MethodSCRIPT to this file")
	measureCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "generate the script without talking to the device")

	measureCmd.AddCommand(cvCmd, swvCmd)
	rootCmd.AddCommand(measureCmd)
}

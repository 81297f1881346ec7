package cmd

import (
	"os"
	"strconv"

	"github.com/maxladabaum/experiment-automation/pump"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	portName    string
	baud        int
	address     int
	syringeUL   float64
	strokeSteps int
	verbose     bool
)

// rootCmd represents the root command
var rootCmd = &cobra.Command{
	Use:   "pump",
	Short: "pump drives a Cavro Centris syringe pump and an EmStat Pico",
	Long: `pump issues motion commands to a Cavro Centris syringe pump over its
serial link and runs EmStat Pico voltammetry measurements. Motion
commands require the pump to be referenced first (pump init).`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&portName, "port", envOr("PUMP_PORT", ""), "serial port of the pump controller")
	rootCmd.PersistentFlags().IntVar(&baud, "baud", envIntOr("PUMP_BAUD", 9600), "baud rate")
	rootCmd.PersistentFlags().IntVar(&address, "address", envIntOr("PUMP_ADDRESS", 1), "device address on the bus")
	rootCmd.PersistentFlags().Float64Var(&syringeUL, "syringe", envFloatOr("SYRINGE_UL", 1250), "syringe capacity in µL")
	rootCmd.PersistentFlags().IntVar(&strokeSteps, "steps", envIntOr("STEPS_PER_STROKE", 100000), "plunger steps per full stroke")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func calibration() pump.Calibration {
	return pump.Calibration{
		SyringeUL:      syringeUL,
		StepsPerStroke: strokeSteps,
	}
}

// withSession connects and references the pump, runs fn, and disconnects.
func withSession(logger *zap.Logger, reference bool, fn func(s *pump.Session) error) error {
	s := pump.NewSession(pump.Config{
		Port:        portName,
		Baud:        baud,
		Address:     address,
		Calibration: calibration(),
	}, logger)
	if err := s.Connect(); err != nil {
		return err
	}
	defer s.Disconnect()
	if reference {
		if _, err := s.Initialize(); err != nil {
			return err
		}
	}
	return fn(s)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

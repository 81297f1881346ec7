package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Environment is the bench configuration: where the pump and the
// potentiostat live, the pump's calibration, and the AMQP control plane.
type Environment struct {
	URI      string
	Exchange string
	DeviceID string

	PumpPort    string
	PumpBaud    int
	PumpAddress int

	SyringeUL      float64
	StepsPerStroke int

	PicoPort string
	DataDir  string
}

// Calibration defaults for the 1.25 mL Centris syringe.
const (
	DefaultBaud           = 9600
	DefaultAddress        = 1
	DefaultSyringeUL      = 1250.0
	DefaultStepsPerStroke = 100000
)

// LoadEnv reads .env when present and resolves the process environment.
// Missing required values are fatal; calibration and addressing fall back
// to the bench defaults.
func LoadEnv(logger *zap.Logger) *Environment {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not read .env", zap.Error(err))
	}

	pumpPort, ok := os.LookupEnv("PUMP_PORT")
	if !ok {
		logger.Fatal("PUMP_PORT not set")
	}
	return &Environment{
		URI:            os.Getenv("RABBITMQ_URI"),
		Exchange:       getDefault("AMQP_EXCHANGE", "topic_devices"),
		DeviceID:       getDefault("DEVICE_ID", "centris"),
		PumpPort:       pumpPort,
		PumpBaud:       getInt(logger, "PUMP_BAUD", DefaultBaud),
		PumpAddress:    getInt(logger, "PUMP_ADDRESS", DefaultAddress),
		SyringeUL:      getFloat(logger, "SYRINGE_UL", DefaultSyringeUL),
		StepsPerStroke: getInt(logger, "STEPS_PER_STROKE", DefaultStepsPerStroke),
		PicoPort:       os.Getenv("PICO_PORT"),
		DataDir:        getDefault("DATA_DIR", "measurement_data"),
	}
}

func getDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getInt(logger *zap.Logger, key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logger.Fatal("failed to parse "+key, zap.Error(err))
	}
	return int(n)
}

func getFloat(logger *zap.Logger, key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Fatal("failed to parse "+key, zap.Error(err))
	}
	return f
}

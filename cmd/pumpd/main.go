package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/maxladabaum/experiment-automation/amqp"
	"github.com/maxladabaum/experiment-automation/amqp/server"
	"github.com/maxladabaum/experiment-automation/env"
	"github.com/maxladabaum/experiment-automation/pump"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	environ := env.LoadEnv(logger)
	if environ.URI == "" {
		logger.Fatal("RABBITMQ_URI not set")
	}

	session := pump.NewSession(pump.Config{
		Port:    environ.PumpPort,
		Baud:    environ.PumpBaud,
		Address: environ.PumpAddress,
		Calibration: pump.Calibration{
			SyringeUL:      environ.SyringeUL,
			StepsPerStroke: environ.StepsPerStroke,
		},
	}, logger)
	if err := session.Connect(); err != nil {
		logger.Fatal("failed to connect to pump", zap.Error(err))
	}
	defer session.Disconnect()
	if _, err := session.Initialize(); err != nil {
		logger.Fatal("failed to reference pump", zap.Error(err))
	}

	conn, err := amqp.Dial(environ)
	if err != nil {
		logger.Fatal("failed to dial amqp", zap.Error(err))
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close amqp connection", zap.Error(err))
		}
	}()

	srv, err := server.New(conn, session, environ.Exchange, environ.DeviceID, logger)
	if err != nil {
		logger.Fatal("failed to start command server", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		cancel()
	}()

	logger.Info("listening for commands",
		zap.String("exchange", environ.Exchange),
		zap.String("device", environ.DeviceID),
	)
	if err := srv.Listen(ctx); err != nil {
		logger.Fatal("listener failed", zap.Error(err))
	}
}

package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maxladabaum/experiment-automation/pico"
	"github.com/maxladabaum/experiment-automation/pump"
	"go.uber.org/zap"
)

// PumpSession is the slice of the pump session the queue drives.
type PumpSession interface {
	Initialize() (string, error)
	Execute(cmd pump.Command) (string, error)
	Calibration() pump.Calibration
}

// Measurer runs one MethodSCRIPT and returns the path of the written data
// file, or "" when the technique produced no points.
type Measurer func(ctx context.Context, scriptPath string) (string, error)

// Runner walks a queue in order. Item outcomes are written back into the
// slice so a caller can display or persist the run record.
type Runner struct {
	Session PumpSession
	Measure Measurer
	Logger  *zap.Logger
	// Spacing is the wait between items, matching the bench's settle
	// habit between unrelated operations.
	Spacing time.Duration
}

// Run executes items front to back. A failed item is marked failed and
// the run continues; cancellation marks the current item stopped and
// returns.
func (r *Runner) Run(ctx context.Context, items []Item) error {
	for i := range items {
		if err := ctx.Err(); err != nil {
			items[i].Status = StatusStopped
			return err
		}
		items[i].Status = StatusRunning
		r.Logger.Info("queue item", zap.Int("index", i), zap.String("details", items[i].Details))
		err := r.runItem(ctx, &items[i])
		switch {
		case err == nil:
			items[i].Status = StatusCompleted
		case ctx.Err() != nil:
			items[i].Status = StatusStopped
			r.Logger.Info("queue stopped", zap.Int("index", i))
			return ctx.Err()
		default:
			items[i].Status = StatusFailed
			r.Logger.Error("queue item failed", zap.Int("index", i), zap.Error(err))
		}
		if r.Spacing > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.Spacing):
			}
		}
	}
	return nil
}

func (r *Runner) runItem(ctx context.Context, it *Item) error {
	switch it.Kind {
	case KindPump:
		return r.runPump(it.Pump)
	case KindPause:
		return pause(ctx, it.PauseSeconds)
	case KindMeasurement:
		dataPath, err := r.Measure(ctx, it.ScriptPath)
		if err != nil {
			return err
		}
		if dataPath != "" {
			r.Logger.Info("data saved", zap.String("path", dataPath))
		}
		return nil
	}
	return fmt.Errorf("queue: unsupported item kind %q", it.Kind)
}

func (r *Runner) runPump(a *PumpAction) error {
	switch a.Op {
	case OpInit:
		_, err := r.Session.Initialize()
		return err
	case OpSetSpeed:
		_, err := r.Session.Execute(pump.SetSpeed{Speed: a.Speed})
		return err
	case OpValve:
		_, err := r.Session.Execute(pump.SelectValve{Port: a.Port})
		return err
	case OpAspirate:
		return r.plungerMove(a, func(steps int) pump.Command {
			return pump.Aspirate{Steps: steps}
		})
	case OpDispense:
		return r.plungerMove(a, func(steps int) pump.Command {
			return pump.Dispense{Steps: steps}
		})
	}
	return fmt.Errorf("queue: unsupported pump op %q", a.Op)
}

func (r *Runner) plungerMove(a *PumpAction, cmd func(steps int) pump.Command) error {
	if a.Speed > 0 {
		if _, err := r.Session.Execute(pump.SetSpeed{Speed: a.Speed}); err != nil {
			return err
		}
	}
	steps, err := r.Session.Calibration().Steps(a.VolumeUL)
	if err != nil {
		return err
	}
	_, err = r.Session.Execute(cmd(steps))
	return err
}

func pause(ctx context.Context, seconds float64) error {
	if seconds <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return nil
	}
}

// PicoMeasurer builds a Measurer that connects to the Pico on portName
// (auto-discovered when empty, avoiding pumpPort), runs the script file,
// and writes the collected points to dataDir.
func PicoMeasurer(portName, pumpPort, dataDir string, logger *zap.Logger) Measurer {
	return func(ctx context.Context, scriptPath string) (string, error) {
		script, err := os.ReadFile(scriptPath)
		if err != nil {
			return "", err
		}
		port := portName
		if port == "" {
			port, err = pico.FindDevicePort(pumpPort)
			if err != nil {
				return "", err
			}
		}
		runner, err := pico.Connect(port, logger)
		if err != nil {
			return "", err
		}
		defer func() {
			_ = runner.Close()
		}()
		if err := runner.Run(ctx, string(script)); err != nil {
			return "", err
		}
		if len(runner.Points()) == 0 {
			return "", nil
		}
		stem := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
		return pico.WriteCSV(dataDir, stem, runner.Points())
	}
}

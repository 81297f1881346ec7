package pico

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/maxladabaum/experiment-automation/comm/serial"
	"go.uber.org/zap"
)

const (
	// Baud is the EmStat Pico's fixed line rate.
	Baud = 230400
	// ftdiVID is the USB vendor ID of the FTDI bridge the Pico dev
	// boards ship with.
	ftdiVID = "0403"
)

// DataPoint is one potential/current pair from a sweep. Potential in
// volts, current in microamps.
type DataPoint struct {
	Potential float64
	Current   float64
}

// FindDevicePort scans serial ports for a likely EmStat Pico, skipping
// avoidPort (typically the pump's port) unless it is the only candidate.
func FindDevicePort(avoidPort string) (string, error) {
	ports, err := serial.DetailedPorts()
	if err != nil {
		return "", err
	}
	candidates := make([]string, 0, len(ports))
	for _, p := range ports {
		if looksLikePico(p) {
			candidates = append(candidates, p.Name)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("pico: no measurement device found")
	}
	for _, c := range candidates {
		if !strings.EqualFold(c, avoidPort) {
			return c, nil
		}
	}
	return candidates[0], nil
}

func looksLikePico(p *serial.PortDetails) bool {
	if strings.Contains(p.Product, "ESPicoDev") || strings.Contains(p.Product, "EmStat") {
		return true
	}
	return p.IsUSB && strings.EqualFold(p.VID, ftdiVID)
}

// Runner uploads one MethodSCRIPT to the device and collects the data
// packages it streams back.
type Runner struct {
	port    *serial.Port
	logger  *zap.Logger
	stopped atomic.Bool
	points  []DataPoint
}

// Connect opens the device and confirms it responds to a firmware probe.
func Connect(portName string, logger *zap.Logger) (*Runner, error) {
	p, err := serial.OpenPort(portName, Baud)
	if err != nil {
		return nil, err
	}
	if err := p.ResetInput(); err != nil {
		_ = p.Close()
		return nil, err
	}
	if err := p.WriteLine([]byte("t"), '\n'); err != nil {
		_ = p.Close()
		return nil, err
	}
	probe, err := p.ReadLine()
	if err != nil || probe == "" {
		_ = p.Close()
		return nil, fmt.Errorf("pico: no response from device on %s", portName)
	}
	logger.Info("device responded", zap.String("port", portName), zap.String("firmware", probe))
	return &Runner{port: p, logger: logger}, nil
}

// Stop requests the collection loop to end after the current line.
// There is no aborting the sweep the device is already running.
func (r *Runner) Stop() {
	r.stopped.Store(true)
}

func (r *Runner) Close() error {
	return r.port.Close()
}

// Run uploads script and collects data until the device reports
// completion, an abort, cancellation, or a Stop call.
func (r *Runner) Run(ctx context.Context, script string) error {
	for _, line := range strings.Split(strings.TrimSpace(script), "\n") {
		if err := r.port.WriteLine([]byte(line), '\n'); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := r.port.WriteLine(nil, '\n'); err != nil {
		return err
	}
	r.logger.Info("script sent, collecting data")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := r.port.Lines(ctx)
	for {
		if r.stopped.Load() {
			r.logger.Info("measurement stopped", zap.Int("points", len(r.points)))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
			// quiet period; re-check Stop
		case line, ok := <-lines:
			if !ok {
				return fmt.Errorf("pico: connection lost during measurement")
			}
			r.logger.Debug("rx", zap.String("line", line))
			if strings.HasPrefix(line, "P") {
				r.collect(line)
				continue
			}
			if line == "*" || line == "Measurement completed" || line == "Script completed" {
				r.logger.Info("measurement completed", zap.Int("points", len(r.points)))
				return nil
			}
			if strings.HasPrefix(line, "!") {
				r.logger.Error("device error", zap.String("line", line))
				if strings.Contains(strings.ToLower(line), "abort") {
					return fmt.Errorf("pico: device aborted: %s", line)
				}
			}
		}
	}
}

func (r *Runner) collect(line string) {
	vars, err := ParsePackage(line)
	if err != nil {
		r.logger.Warn("bad data package", zap.String("line", line), zap.Error(err))
		return
	}
	var point DataPoint
	var hasPotential, hasCurrent bool
	for _, v := range vars {
		switch v.ID {
		case "ab", "da":
			point.Potential = v.Value()
			hasPotential = true
		case "ba":
			point.Current = v.Value() * 1e6
			hasCurrent = true
		}
	}
	if hasPotential && hasCurrent {
		r.points = append(r.points, point)
	}
}

// Points returns the collected data so far.
func (r *Runner) Points() []DataPoint {
	return r.points
}

// WriteCSV writes the collected points under dir, named after the script
// stem and a timestamp, and returns the path.
func WriteCSV(dir, stem string, points []DataPoint) (string, error) {
	if len(points) == 0 {
		return "", fmt.Errorf("pico: no data to save")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", stem, time.Now().Format("150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"Potential (V)", "Current (µA)"}); err != nil {
		return "", err
	}
	for _, p := range points {
		err := w.Write([]string{
			fmt.Sprintf("%g", p.Potential),
			fmt.Sprintf("%g", p.Current),
		})
		if err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}

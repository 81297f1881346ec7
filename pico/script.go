package pico

import (
	"fmt"
	"strconv"
	"strings"
)

// CVParams parameterize a cyclic voltammetry sweep. Potentials in volts,
// scan rate in V/s, conditioning time in seconds.
type CVParams struct {
	BeginPotential float64
	Vertex1        float64
	Vertex2        float64
	StepPotential  float64
	ScanRate       float64
	Scans          int
	CondPotential  float64
	CondTime       float64
}

// SWVParams parameterize a square wave voltammetry sweep.
type SWVParams struct {
	BeginPotential float64
	EndPotential   float64
	StepPotential  float64
	Amplitude      float64
	Frequency      float64
	Scans          int
	CondPotential  float64
	CondTime       float64
}

// siVolts renders a potential or scan rate the way the device parses it:
// millivolts with an 'm' suffix, zero as a bare "0".
func siVolts(v float64) string {
	if v == 0 {
		return "0"
	}
	s := strconv.FormatFloat(v*1000.0, 'f', 12, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-0" || s == "+0" {
		s = "0"
	}
	return s + "m"
}

func siHertz(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Script builds the MethodSCRIPT for a CV measurement.
func (p CVParams) Script() (string, error) {
	if p.Scans < 1 {
		return "", fmt.Errorf("pico: number of scans must be at least 1, got %d", p.Scans)
	}
	lines := []string{
		"e",
		"var c",
		"var p",
		"set_pgstat_mode 2",
		"set_max_bandwidth 40",
		"set_range ba 100u",
		"set_autoranging ba 1n 100u",
	}
	if p.CondTime > 0 {
		lines = append(lines,
			"set_e "+siVolts(p.CondPotential),
			"cell_on",
			fmt.Sprintf("# Condition for %gs", p.CondTime),
			fmt.Sprintf("wait %g", p.CondTime),
		)
	} else {
		lines = append(lines, "set_e "+siVolts(p.BeginPotential), "cell_on")
	}
	loop := fmt.Sprintf("meas_loop_cv p c %s %s %s %s %s",
		siVolts(p.BeginPotential), siVolts(p.Vertex1), siVolts(p.Vertex2),
		siVolts(p.StepPotential), siVolts(p.ScanRate))
	if p.Scans > 1 {
		loop += fmt.Sprintf(" nscans(%d)", p.Scans)
	}
	lines = append(lines,
		"# CV measurement loop",
		loop,
		"\tpck_start",
		"\tpck_add p",
		"\tpck_add c",
		"\tpck_end",
		"endloop",
		"on_finished:",
		"cell_off",
	)
	return strings.Join(lines, "\n"), nil
}

// Script builds the MethodSCRIPT for a SWV measurement.
func (p SWVParams) Script() (string, error) {
	if p.Scans < 1 {
		return "", fmt.Errorf("pico: number of scans must be at least 1, got %d", p.Scans)
	}
	minPot := p.BeginPotential
	if p.EndPotential < minPot {
		minPot = p.EndPotential
	}
	maxPot := p.BeginPotential
	if p.EndPotential > maxPot {
		maxPot = p.EndPotential
	}
	minMV := int((minPot - p.Amplitude) * 1000)
	maxMV := int((maxPot + p.Amplitude) * 1000)

	lines := []string{
		"e",
		"var c",
		"var p",
		"var f",
		"var r",
		"set_pgstat_mode 2",
		"set_max_bandwidth 1600",
		fmt.Sprintf("set_range_minmax da %dm %dm", minMV, maxMV),
		"set_range ba 5m",
		"set_autoranging ba 100n 5m",
		"cell_on",
	}
	if p.CondTime > 0 {
		lines = append(lines,
			fmt.Sprintf("# Equilibrate at %s for %gs", siVolts(p.CondPotential), p.CondTime),
			"set_e "+siVolts(p.CondPotential),
			fmt.Sprintf("wait %g", p.CondTime),
		)
	}
	loop := fmt.Sprintf("meas_loop_swv p c f r %s %s %s %s %s",
		siVolts(p.BeginPotential), siVolts(p.EndPotential), siVolts(p.StepPotential),
		siVolts(p.Amplitude), siHertz(p.Frequency))
	if p.Scans > 1 {
		loop += fmt.Sprintf(" nscans(%d)", p.Scans)
	}
	lines = append(lines,
		"# SWV measurement loop",
		loop,
		"\tpck_start",
		"\tpck_add p",
		"\tpck_add c",
		"\tpck_add f",
		"\tpck_add r",
		"\tpck_end",
		"endloop",
		"on_finished:",
		"cell_off",
	)
	return strings.Join(lines, "\n"), nil
}

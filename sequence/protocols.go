package sequence

import "github.com/maxladabaum/experiment-automation/pump"

// SampleToWaste moves volumeUL from the sample port to the waste port:
// valve to sample, aspirate, valve to waste, dispense.
func SampleToWaste(cal pump.Calibration, samplePort, wastePort int, volumeUL float64) ([]Step, error) {
	steps, err := cal.Steps(volumeUL)
	if err != nil {
		return nil, err
	}
	return []Step{
		{Command: pump.SelectValve{Port: samplePort}, Settle: ValveSettle},
		{Command: pump.Aspirate{Steps: steps}, Settle: PlungerSettle},
		{Command: pump.SelectValve{Port: wastePort}, Settle: ValveSettle},
		{Command: pump.Dispense{Steps: steps}, Settle: PlungerSettle},
	}, nil
}

// Prime runs a small air move to confirm the plunger responds before
// touching liquid.
func Prime(cal pump.Calibration, volumeUL float64) ([]Step, error) {
	steps, err := cal.Steps(volumeUL)
	if err != nil {
		return nil, err
	}
	return []Step{
		{Command: pump.Aspirate{Steps: steps}, Settle: PlungerSettle},
		{Command: pump.Dispense{Steps: steps}, Settle: PlungerSettle},
	}, nil
}

// Rinse flushes volumeUL from a reservoir port out to waste the given
// number of cycles.
func Rinse(cal pump.Calibration, reservoirPort, wastePort, cycles int, volumeUL float64) ([]Step, error) {
	steps := make([]Step, 0, cycles*4)
	for i := 0; i < cycles; i++ {
		cycle, err := SampleToWaste(cal, reservoirPort, wastePort, volumeUL)
		if err != nil {
			return nil, err
		}
		steps = append(steps, cycle...)
	}
	return steps, nil
}

package pump

import (
	"fmt"
	"math"
)

// Calibration maps requested volumes to plunger step counts for one
// physical syringe. Both fields must be positive.
type Calibration struct {
	SyringeUL      float64
	StepsPerStroke int
}

func (c Calibration) validate() error {
	if c.SyringeUL <= 0 {
		return fmt.Errorf("syringe capacity must be positive, got %v", c.SyringeUL)
	}
	if c.StepsPerStroke <= 0 {
		return fmt.Errorf("steps per stroke must be positive, got %d", c.StepsPerStroke)
	}
	return nil
}

// Steps converts a volume in µL to the nearest whole step count, ties
// rounded away from zero. Volumes outside [0, SyringeUL] are an error, not
// clamped; an out-of-range request means the caller's protocol is wrong.
func (c Calibration) Steps(volumeUL float64) (int, error) {
	if err := c.validate(); err != nil {
		return 0, err
	}
	if volumeUL < 0 || volumeUL > c.SyringeUL {
		return 0, invalidf("volume %v µL outside syringe range [0, %v]", volumeUL, c.SyringeUL)
	}
	return int(math.Round(float64(c.StepsPerStroke) * (volumeUL / c.SyringeUL))), nil
}

// Volume is the inverse of Steps, used for reporting.
func (c Calibration) Volume(steps int) float64 {
	return c.SyringeUL * float64(steps) / float64(c.StepsPerStroke)
}

// Resolution is the volume of a single step in µL.
func (c Calibration) Resolution() float64 {
	return c.SyringeUL / float64(c.StepsPerStroke)
}

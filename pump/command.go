package pump

import "strconv"

// Command is one pump instruction, rendered to the vendor's ASCII grammar.
// Every command string is terminated by 'R' (run).
type Command interface {
	Bytes() []byte
	validate(l Limits) error
}

// Limits are the physical bounds commands are checked against before
// anything reaches the wire.
type Limits struct {
	StepsPerStroke int
	ValvePorts     int
	SpeedMin       int
	SpeedMax       int
}

// DefaultLimits matches a Centris with a 9-port distribution valve.
var DefaultLimits = Limits{
	StepsPerStroke: 100000,
	ValvePorts:     9,
	SpeedMin:       1,
	SpeedMax:       40,
}

type (
	// Home drives the plunger and valve to the reference position.
	Home struct{}
	// SelectValve switches the distribution valve to a port.
	SelectValve struct {
		Port int
	}
	// Aspirate draws the plunger down by a relative step count.
	Aspirate struct {
		Steps int
	}
	// Dispense pushes the plunger up by a relative step count.
	Dispense struct {
		Steps int
	}
	// SetSpeed selects the plunger speed code for following moves.
	SetSpeed struct {
		Speed int
	}
)

func (Home) Bytes() []byte { return []byte("ZR") }

func (Home) validate(Limits) error { return nil }

func (c SelectValve) Bytes() []byte {
	return []byte("I" + strconv.Itoa(c.Port) + "R")
}

func (c SelectValve) validate(l Limits) error {
	if c.Port < 1 || c.Port > l.ValvePorts {
		return invalidf("valve port %d outside 1..%d", c.Port, l.ValvePorts)
	}
	return nil
}

func (c Aspirate) Bytes() []byte {
	return []byte("A" + strconv.Itoa(c.Steps) + "R")
}

func (c Aspirate) validate(l Limits) error {
	return validSteps(c.Steps, l)
}

func (c Dispense) Bytes() []byte {
	return []byte("D" + strconv.Itoa(c.Steps) + "R")
}

func (c Dispense) validate(l Limits) error {
	return validSteps(c.Steps, l)
}

func (c SetSpeed) Bytes() []byte {
	return []byte("S" + strconv.Itoa(c.Speed) + "R")
}

func (c SetSpeed) validate(l Limits) error {
	if c.Speed < l.SpeedMin || c.Speed > l.SpeedMax {
		return invalidf("speed %d outside %d..%d", c.Speed, l.SpeedMin, l.SpeedMax)
	}
	return nil
}

func validSteps(steps int, l Limits) error {
	if steps < 0 {
		return invalidf("step count %d is negative", steps)
	}
	if steps > l.StepsPerStroke {
		return invalidf("step count %d exceeds stroke of %d", steps, l.StepsPerStroke)
	}
	return nil
}

var (
	_ Command = Home{}
	_ Command = SelectValve{}
	_ Command = Aspirate{}
	_ Command = Dispense{}
	_ Command = SetSpeed{}
)

// Formatter renders commands for one addressed unit.
type Formatter struct {
	limits Limits
	addr   int
}

func NewFormatter(limits Limits, addr int) (*Formatter, error) {
	if addr < 1 {
		return nil, invalidf("device address %d must be a small positive integer", addr)
	}
	if limits.StepsPerStroke <= 0 || limits.ValvePorts < 1 {
		return nil, invalidf("limits %+v are not physical", limits)
	}
	return &Formatter{limits: limits, addr: addr}, nil
}

// Render validates cmd and returns the exact ASCII string to send along
// with the address of the target unit. Nothing is sent on error.
func (f *Formatter) Render(cmd Command) (string, int, error) {
	if err := cmd.validate(f.limits); err != nil {
		return "", 0, err
	}
	return string(cmd.Bytes()), f.addr, nil
}

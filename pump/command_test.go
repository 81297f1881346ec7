package pump

import (
	"errors"
	"testing"
)

func TestFormatter_Render(t *testing.T) {
	f, err := NewFormatter(DefaultLimits, 1)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		cmd  Command
		want string
	}{
		{"home", Home{}, "ZR"},
		{"valve", SelectValve{Port: 1}, "I1R"},
		{"valve high", SelectValve{Port: 9}, "I9R"},
		{"aspirate", Aspirate{Steps: 4000}, "A4000R"},
		{"dispense", Dispense{Steps: 4000}, "D4000R"},
		{"zero steps", Aspirate{Steps: 0}, "A0R"},
		{"full stroke", Dispense{Steps: 100000}, "D100000R"},
		{"speed", SetSpeed{Speed: 20}, "S20R"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, addr, err := f.Render(c.cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Errorf("rendered %q, want %q", got, c.want)
			}
			if addr != 1 {
				t.Errorf("address = %d, want 1", addr)
			}
		})
	}
}

func TestFormatter_RejectsInvalid(t *testing.T) {
	f, err := NewFormatter(DefaultLimits, 1)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		cmd  Command
	}{
		{"valve port zero", SelectValve{Port: 0}},
		{"valve port beyond range", SelectValve{Port: 10}},
		{"negative steps", Aspirate{Steps: -1}},
		{"steps beyond stroke", Dispense{Steps: 100001}},
		{"speed too slow", SetSpeed{Speed: 0}},
		{"speed too fast", SetSpeed{Speed: 41}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := f.Render(c.cmd)
			if err == nil {
				t.Fatalf("%#v should be rejected", c.cmd)
			}
			var invalid *InvalidCommand
			if !errors.As(err, &invalid) {
				t.Errorf("error = %T, want *InvalidCommand", err)
			}
		})
	}
}

// Distinct valid commands must never render to the same wire string.
func TestFormatter_Injective(t *testing.T) {
	f, err := NewFormatter(DefaultLimits, 1)
	if err != nil {
		t.Fatal(err)
	}
	cmds := []Command{
		Home{},
		SelectValve{Port: 1}, SelectValve{Port: 2}, SelectValve{Port: 9},
		Aspirate{Steps: 0}, Aspirate{Steps: 1}, Aspirate{Steps: 4000},
		Dispense{Steps: 0}, Dispense{Steps: 1}, Dispense{Steps: 4000},
		SetSpeed{Speed: 1}, SetSpeed{Speed: 40},
	}
	seen := make(map[string]Command, len(cmds))
	for _, cmd := range cmds {
		s, _, err := f.Render(cmd)
		if err != nil {
			t.Fatalf("render %#v: %v", cmd, err)
		}
		if prev, dup := seen[s]; dup {
			t.Errorf("%#v and %#v both render to %q", prev, cmd, s)
		}
		seen[s] = cmd
	}
}

func TestNewFormatter_BadAddress(t *testing.T) {
	if _, err := NewFormatter(DefaultLimits, 0); err == nil {
		t.Error("address 0 should be rejected")
	}
	if _, err := NewFormatter(DefaultLimits, -3); err == nil {
		t.Error("negative address should be rejected")
	}
}

func TestFrameCommand(t *testing.T) {
	got := string(frameCommand("A4000R", 1))
	if got != "/1A4000R\r" {
		t.Errorf("frame = %q, want %q", got, "/1A4000R\r")
	}
}

// Package pico drives a PalmSens EmStat Pico potentiostat: MethodSCRIPT
// generation for CV and SWV, script execution over the serial link, and
// decoding of the data packages the device streams back.
package pico

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VarType identifies one MethodSCRIPT variable kind.
type VarType struct {
	ID   string
	Name string
	Unit string
}

// Vendor-defined variable type table.
var varTypes = []VarType{
	{"aa", "unknown", ""},
	{"ab", "WE vs RE potential", "V"},
	{"ac", "CE vs GND potential", "V"},
	{"ad", "SE vs GND potential", "V"},
	{"ae", "RE vs GND potential", "V"},
	{"af", "WE vs GND potential", "V"},
	{"ag", "WE vs CE potential", "V"},
	{"as", "AIN0 potential", "V"},
	{"at", "AIN1 potential", "V"},
	{"au", "AIN2 potential", "V"},
	{"av", "AIN3 potential", "V"},
	{"aw", "AIN4 potential", "V"},
	{"ax", "AIN5 potential", "V"},
	{"ay", "AIN6 potential", "V"},
	{"az", "AIN7 potential", "V"},
	{"ba", "WE current", "A"},
	{"ca", "Phase", "degrees"},
	{"cb", "Impedance", "Ω"},
	{"cc", "Z_real", "Ω"},
	{"cd", "Z_imag", "Ω"},
	{"ce", "EIS E TDD", "V"},
	{"cf", "EIS I TDD", "A"},
	{"cg", "EIS sampling frequency", "Hz"},
	{"ch", "EIS E AC", "Vrms"},
	{"ci", "EIS E DC", "V"},
	{"cj", "EIS I AC", "Arms"},
	{"ck", "EIS I DC", "A"},
	{"da", "Applied potential", "V"},
	{"db", "Applied current", "A"},
	{"dc", "Applied frequency", "Hz"},
	{"dd", "Applied AC amplitude", "Vrms"},
	{"ea", "Channel", ""},
	{"eb", "Time", "s"},
	{"ec", "Pin mask", ""},
	{"ed", "Temperature", "° Celsius"},
	{"ee", "Count", ""},
	{"ha", "Generic current 1", "A"},
	{"hb", "Generic current 2", "A"},
	{"hc", "Generic current 3", "A"},
	{"hd", "Generic current 4", "A"},
	{"ia", "Generic potential 1", "V"},
	{"ib", "Generic potential 2", "V"},
	{"ic", "Generic potential 3", "V"},
	{"id", "Generic potential 4", "V"},
	{"ja", "Misc. generic 1", ""},
	{"jb", "Misc. generic 2", ""},
	{"jc", "Misc. generic 3", ""},
	{"jd", "Misc. generic 4", ""},
}

var varTypesByID = func() map[string]VarType {
	m := make(map[string]VarType, len(varTypes))
	for _, v := range varTypes {
		m[v.ID] = v
	}
	return m
}()

// siPrefixFactor maps the SI prefix character trailing each raw value.
// 'i' marks an integer value, scale 1.
var siPrefixFactor = map[byte]float64{
	'a': 1e-18, 'f': 1e-15, 'p': 1e-12, 'n': 1e-9, 'u': 1e-6,
	'm': 1e-3, ' ': 1e0, 'k': 1e3, 'M': 1e6, 'G': 1e9,
	'T': 1e12, 'P': 1e15, 'E': 1e18, 'i': 1e0,
}

// rawOffset is the midpoint of the 28-bit value encoding; raw values are
// transmitted offset so the wire holds no sign character.
const rawOffset = 1 << 27

// Var is one decoded MethodSCRIPT variable from a data package.
type Var struct {
	ID       string
	Raw      float64
	Prefix   byte
	Metadata map[string]int
}

func (v *Var) Type() VarType {
	if t, ok := varTypesByID[v.ID]; ok {
		return t
	}
	return VarType{ID: v.ID, Name: "unknown"}
}

// Value is the raw count scaled by the SI prefix.
func (v *Var) Value() float64 {
	return v.Raw * siPrefixFactor[v.Prefix]
}

func parseVar(data string) (*Var, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("pico: variable %q too short", data)
	}
	v := &Var{
		ID:       data[0:2],
		Metadata: map[string]int{},
	}
	if data[2:10] == "     nan" {
		v.Raw = math.NaN()
		v.Prefix = ' '
	} else {
		raw, err := strconv.ParseUint(data[2:9], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("pico: bad raw value in %q: %w", data, err)
		}
		v.Raw = float64(int64(raw) - rawOffset)
		v.Prefix = data[9]
		if _, ok := siPrefixFactor[v.Prefix]; !ok {
			return nil, fmt.Errorf("pico: unknown SI prefix %q in %q", v.Prefix, data)
		}
	}
	for _, token := range strings.Split(data, ",")[1:] {
		if len(token) == 2 && token[0] == '1' {
			status, err := strconv.ParseUint(token[1:], 16, 8)
			if err == nil {
				v.Metadata["status"] = int(status)
			}
		}
		if len(token) == 3 && token[0] == '2' {
			cr, err := strconv.ParseUint(token[1:], 16, 16)
			if err == nil {
				v.Metadata["cr"] = int(cr)
			}
		}
	}
	return v, nil
}

// ParsePackage decodes one data package line ("P" followed by
// semicolon-separated variables). Lines that are not data packages return
// (nil, nil).
func ParsePackage(line string) ([]*Var, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "P") {
		return nil, nil
	}
	parts := strings.Split(line[1:], ";")
	vars := make([]*Var, 0, len(parts))
	for _, p := range parts {
		v, err := parseVar(p)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return vars, nil
}

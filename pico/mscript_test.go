package pico

import (
	"math"
	"testing"
)

func TestParsePackage(t *testing.T) {
	// raw counts are offset by 2^27: 0x80001F4 encodes +500
	line := "Pda80001F4m;ba80001F4n\n"
	vars, err := ParsePackage(line)
	if err != nil {
		t.Fatal(err)
	}
	if len(vars) != 2 {
		t.Fatalf("%d variables, want 2", len(vars))
	}

	if vars[0].ID != "da" {
		t.Errorf("first id = %q, want da", vars[0].ID)
	}
	if got := vars[0].Value(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("potential = %v, want 0.5", got)
	}
	if vars[0].Type().Unit != "V" {
		t.Errorf("unit = %q, want V", vars[0].Type().Unit)
	}

	if vars[1].ID != "ba" {
		t.Errorf("second id = %q, want ba", vars[1].ID)
	}
	if got := vars[1].Value(); math.Abs(got-500e-9) > 1e-18 {
		t.Errorf("current = %v, want 500e-9", got)
	}
}

func TestParsePackage_Negative(t *testing.T) {
	// 0x7FFFE0C = 2^27 - 500
	vars, err := ParsePackage("Pab7FFFE0Cm")
	if err != nil {
		t.Fatal(err)
	}
	if got := vars[0].Value(); math.Abs(got+0.5) > 1e-12 {
		t.Errorf("value = %v, want -0.5", got)
	}
}

func TestParsePackage_NaN(t *testing.T) {
	vars, err := ParsePackage("Pba     nan")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(vars[0].Raw) {
		t.Errorf("raw = %v, want NaN", vars[0].Raw)
	}
}

func TestParsePackage_Metadata(t *testing.T) {
	vars, err := ParsePackage("Pba80001F4u,10,2FF")
	if err != nil {
		t.Fatal(err)
	}
	v := vars[0]
	if v.Metadata["status"] != 0 {
		t.Errorf("status = %d, want 0", v.Metadata["status"])
	}
	if v.Metadata["cr"] != 0xFF {
		t.Errorf("cr = %d, want 255", v.Metadata["cr"])
	}
}

func TestParsePackage_NotAPackage(t *testing.T) {
	for _, line := range []string{"*", "!abort", "e", ""} {
		vars, err := ParsePackage(line)
		if err != nil {
			t.Errorf("ParsePackage(%q) errored: %v", line, err)
		}
		if vars != nil {
			t.Errorf("ParsePackage(%q) = %v, want nil", line, vars)
		}
	}
}

func TestParsePackage_Malformed(t *testing.T) {
	for _, line := range []string{"Pda", "PdaXXXXXXXm", "Pda80001F4q"} {
		if _, err := ParsePackage(line); err == nil {
			t.Errorf("ParsePackage(%q) should fail", line)
		}
	}
}

func TestVarType_Unknown(t *testing.T) {
	v := &Var{ID: "zz"}
	if v.Type().Name != "unknown" {
		t.Errorf("unknown id should map to the unknown type, got %q", v.Type().Name)
	}
}

package palette

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPresets(t *testing.T) {
	if got := len(All()); got != 11 {
		t.Fatalf("len(All()) = %d, want 11", got)
	}
	p, ok := Lookup("biolab")
	if !ok || p.Name != "Biolab" {
		t.Errorf("Lookup(biolab) = %q, %v", p.Name, ok)
	}
	if p.Colors[2] != (mgl32.Vec3{0.87, 0.93, 0.53}) {
		t.Errorf("Biolab highlight = %v", p.Colors[2])
	}
	fallback, ok := Lookup("No Such Palette")
	if ok || fallback.Name != "Candy Shop" {
		t.Errorf("unknown lookup = %q, %v; want Candy Shop fallback", fallback.Name, ok)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want mgl32.Vec3
	}{
		{"#ff0000", mgl32.Vec3{1, 0, 0}},
		{"#0f0", mgl32.Vec3{0, 1, 0}},
		{"rgb(255, 0, 255)", mgl32.Vec3{1, 0, 1}},
		{"RGB(0,0,300)", mgl32.Vec3{0, 0, 1}},
		{"white", mgl32.Vec3{1, 1, 1}},
		{"  Black ", mgl32.Vec3{0, 0, 0}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tt.in, err)
			continue
		}
		for i := range 3 {
			if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}

	for _, bad := range []string{"#12", "rgb(1,2)", "#zzzzzz", "not-a-colour"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) succeeded, want error", bad)
		}
	}
}

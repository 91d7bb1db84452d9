package capability

import "testing"

func TestResolveClamp(t *testing.T) {
	tests := []struct {
		name  string
		probe Probe
		want  int
	}{
		{"unavailable falls back", Static(0), 4096},
		{"negative falls back", Static(-1), 4096},
		{"below floor clamps up", Static(1024), 2048},
		{"floor passes", Static(2048), 2048},
		{"in range passes", Static(4096), 4096},
		{"ceiling passes", Static(8192), 8192},
		{"above ceiling clamps down", Static(16384), 8192},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.probe).SafeMaxDimension(); got != tc.want {
				t.Errorf("SafeMaxDimension() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestZeroValueCapability(t *testing.T) {
	var c Capability
	if got := c.SafeMaxDimension(); got != DefaultSafeDimension {
		t.Errorf("zero value SafeMaxDimension() = %d, want %d", got, DefaultSafeDimension)
	}
}

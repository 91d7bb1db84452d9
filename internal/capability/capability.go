// Package capability resolves the safe maximum panorama dimension for the
// target renderer. The value is probed once at startup and carried as an
// explicit Capability value rather than a hidden process-wide cache, so
// tests can inject fakes.
package capability

// Bounds for the safe dimension. The floor keeps low-end renderers from
// being starved of usable resolution; the ceiling bounds memory and
// bandwidth regardless of what the probe reports.
const (
	MinSafeDimension     = 2048
	MaxSafeDimension     = 8192
	DefaultSafeDimension = 4096
)

// Probe reports the maximum texture edge length the rendering surface
// supports. ok is false when no answer is available.
type Probe interface {
	Detect() (edge int, ok bool)
}

// Static is a Probe backed by a fixed value, typically operator
// configuration. A non-positive value means the limit is unknown.
type Static int

// Detect implements Probe.
func (s Static) Detect() (int, bool) {
	if s <= 0 {
		return 0, false
	}
	return int(s), true
}

// Capability is the resolved, immutable answer handed to the pipeline.
type Capability struct {
	safeMax int
}

// Resolve runs the probe once and clamps the answer. An unavailable probe
// falls back to DefaultSafeDimension.
func Resolve(p Probe) Capability {
	edge, ok := p.Detect()
	if !ok {
		return Capability{safeMax: DefaultSafeDimension}
	}
	if edge < MinSafeDimension {
		edge = MinSafeDimension
	}
	if edge > MaxSafeDimension {
		edge = MaxSafeDimension
	}
	return Capability{safeMax: edge}
}

// SafeMaxDimension returns the largest image edge length considered safe.
func (c Capability) SafeMaxDimension() int {
	if c.safeMax == 0 {
		return DefaultSafeDimension
	}
	return c.safeMax
}

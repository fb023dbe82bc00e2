package reef

import "math"

// Bounds supplies the per-gene range every operator clamps to.
type Bounds interface {
	Len() int
	Min(i int) float64
	Max(i int) float64
}

// Interval is a closed [Min, Max] range.
type Interval struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Box is a Bounds backed by one Interval per gene.
type Box []Interval

func (b Box) Len() int          { return len(b) }
func (b Box) Min(i int) float64 { return b[i].Min }
func (b Box) Max(i int) float64 { return b[i].Max }

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// intRange returns the integer range contained in gene i's bounds.
func intRange(b Bounds, i int) (lo, hi int) {
	lo = int(math.Ceil(b.Min(i)))
	hi = int(math.Floor(b.Max(i)))
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Package presenter draws the river datasets on a mapview.Viewport and
// turns water-level input into buffer distances.
package presenter

import (
	"math"

	"github.com/joeblew999/plat-river/internal/catalog"
)

// TanSlope is the assumed bank slope: a one metre rise in water level
// moves the shoreline 1/TanSlope metres.
const TanSlope = 0.17

// WaterLevelToDistance converts a water level in metres to a buffer
// distance in metres.
func WaterLevelToDistance(level float64) float64 {
	return level / TanSlope
}

// DistanceControl holds the pending slider value. Only Confirm emits.
type DistanceControl struct {
	cfg       catalog.SliderConfig
	pending   float64
	onConfirm func(distance float64)
}

// NewDistanceControl starts at cfg.Initial. onConfirm may be nil.
func NewDistanceControl(cfg catalog.SliderConfig, onConfirm func(distance float64)) *DistanceControl {
	c := &DistanceControl{cfg: cfg, onConfirm: onConfirm}
	c.pending = c.constrain(cfg.Initial)
	return c
}

// SetPending stores v after clamping it to the slider bounds and snapping
// it to the step grid. It returns the stored value.
func (c *DistanceControl) SetPending(v float64) float64 {
	c.pending = c.constrain(v)
	return c.pending
}

// Pending is the current, unconfirmed value.
func (c *DistanceControl) Pending() float64 { return c.pending }

// Distance is the buffer distance the pending value would produce.
func (c *DistanceControl) Distance() float64 { return WaterLevelToDistance(c.pending) }

// Reset returns the pending value to the initial level without emitting.
func (c *DistanceControl) Reset() float64 {
	c.pending = c.constrain(c.cfg.Initial)
	return c.pending
}

// Config is the slider configuration.
func (c *DistanceControl) Config() catalog.SliderConfig { return c.cfg }

// Confirm emits the distance for the pending value exactly once.
func (c *DistanceControl) Confirm() float64 {
	d := c.Distance()
	if c.onConfirm != nil {
		c.onConfirm(d)
	}
	return d
}

func (c *DistanceControl) constrain(v float64) float64 {
	lo, hi, step := c.cfg.Min, c.cfg.Max, c.cfg.Step
	if math.IsNaN(v) {
		v = lo
	}
	v = math.Max(lo, math.Min(hi, v))
	if step <= 0 {
		return v
	}
	n := math.Round((v - lo) / step)
	snapped := lo + n*step
	if snapped > hi+1e-9 {
		snapped -= step
	}
	// drop float noise such as -0.9 + 3*0.1 = -0.6000000000000001
	return math.Round(snapped*1e9) / 1e9
}

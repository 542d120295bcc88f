package sim

import "math"

// DefaultMaxSubsteps bounds the catch-up work per frame.
const DefaultMaxSubsteps = 5

// Clock turns variable frame times into a whole number of fixed steps.
// Time beyond MaxSubsteps steps per frame is dropped rather than carried,
// so a slow frame cannot snowball into slower ones.
type Clock struct {
	Dt          float64
	MaxSubsteps int

	acc     float64
	dropped float64
}

func NewClock(dt float64, maxSubsteps int) *Clock {
	if maxSubsteps < 1 {
		maxSubsteps = DefaultMaxSubsteps
	}
	return &Clock{Dt: dt, MaxSubsteps: maxSubsteps}
}

// Advance adds frame seconds and returns the number of fixed steps to run.
func (c *Clock) Advance(frame float64) int {
	if !(frame > 0) || math.IsInf(frame, 0) || !(c.Dt > 0) {
		return 0
	}
	c.acc += frame
	steps := int(math.Floor(c.acc/c.Dt + 1e-9))
	c.acc = math.Max(0, c.acc-float64(steps)*c.Dt)
	if steps > c.MaxSubsteps {
		c.dropped += float64(steps-c.MaxSubsteps) * c.Dt
		steps = c.MaxSubsteps
	}
	return steps
}

// Alpha is the fraction of a step left in the accumulator, for
// interpolating poses between the last two steps.
func (c *Clock) Alpha() float64 {
	if !(c.Dt > 0) {
		return 0
	}
	return math.Min(1, c.acc/c.Dt)
}

// Dropped returns the total simulated time discarded by the substep cap.
func (c *Clock) Dropped() float64 { return c.dropped }

func (c *Clock) Reset() {
	c.acc = 0
	c.dropped = 0
}

package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/link"
	"github.com/san-kum/rigidsim/internal/world"
)

// Probe reads one number from the world. A probe whose subject is gone
// reads NaN.
type Probe struct {
	Name string
	Read func(w *world.World) float64
}

var axisNames = [3]string{"x", "y", "z"}

// BodyPosition samples one position component of a body.
func BodyPosition(id body.EntityID, axis int) Probe {
	return Probe{
		Name: fmt.Sprintf("body%d.%s", id, axisNames[axis]),
		Read: func(w *world.World) float64 {
			b, err := w.Body(id)
			if err != nil {
				return math.NaN()
			}
			return b.Position[axis]
		},
	}
}

// BodySpeed samples the linear speed of a body.
func BodySpeed(id body.EntityID) Probe {
	return Probe{
		Name: fmt.Sprintf("body%d.speed", id),
		Read: func(w *world.World) float64 {
			b, err := w.Body(id)
			if err != nil {
				return math.NaN()
			}
			return b.LinearVelocity.Len()
		},
	}
}

// LinkStretch samples the stretch ratio of a link, NaN once broken.
func LinkStretch(id link.ID) Probe {
	return Probe{
		Name: fmt.Sprintf("link%d.stretch", id),
		Read: func(w *world.World) float64 {
			l, err := w.Link(id)
			if err != nil || !l.Active() {
				return math.NaN()
			}
			return l.StretchRatio
		},
	}
}

// Integrity samples the fraction of unbroken links.
func Integrity() Probe {
	return Probe{Name: "integrity", Read: (*world.World).Integrity}
}

// Contacts samples the number of touching pairs.
func Contacts() Probe {
	return Probe{Name: "contacts", Read: func(w *world.World) float64 { return float64(w.ContactCount()) }}
}

package viz

import (
	"math"

	"github.com/san-kum/rigidsim/internal/geom"
)

// Camera orbits the scene around its look-at point. Projection is
// orthographic: depth only decides draw order, never size.
type Camera struct {
	Target     geom.Vec3
	Extent     float64
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Extent: 5, Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Fit centers the camera on bounds and sizes the view to hold them with a
// small margin.
func (c *Camera) Fit(bounds geom.AABB) {
	c.Target = bounds.Center()
	h := bounds.HalfExtents()
	c.Extent = math.Max(1, 1.2*math.Max(h.X(), math.Max(h.Y(), h.Z())))
}

// RotatePoint rotates p about the target, X axis first.
func (c *Camera) RotatePoint(p geom.Vec3) geom.Vec3 {
	p = p.Sub(c.Target)
	x, y, z := p.X(), p.Y(), p.Z()
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	y, z = y*cx-z*sx, y*sx+z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	x, z = x*cy+z*sy, -x*sy+z*cy
	return geom.Vec3{x, y, z}
}

// Scale returns sub-pixels per world unit for a pw x ph pixel surface.
func (c *Camera) Scale(pw, ph int) float64 {
	return float64(min(pw, ph)) / 2 / c.Extent * c.Zoom
}

// Project maps a world point to sub-pixel coordinates with y pointing down.
func (c *Camera) Project(p geom.Vec3, pw, ph int) (int, int) {
	r := c.RotatePoint(p)
	s := c.Scale(pw, ph)
	return int(math.Round(float64(pw)/2 + r.X()*s)), int(math.Round(float64(ph)/2 - r.Y()*s))
}

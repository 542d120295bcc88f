package viz

import (
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/world"
)

// SceneBounds merges the bounds of every finite collider in w. Planes are
// skipped since they would swamp the view. A world with nothing to frame
// yields a box around the origin.
func SceneBounds(w *world.World) geom.AABB {
	var out geom.AABB
	found := false
	for _, b := range w.Bodies() {
		if b.Shape.Kind == geom.KindPlane || b.Faulted() {
			continue
		}
		bb := b.Bounds()
		if !found {
			out, found = bb, true
			continue
		}
		out = out.Merge(bb)
	}
	for _, l := range w.Links() {
		if !l.Anchored() {
			continue
		}
		if pa, pb, ok := w.Endpoints(l); ok {
			out = out.Merge(geom.AABB{Min: pa, Max: pa}).Merge(geom.AABB{Min: pb, Max: pb})
		}
	}
	if !found {
		return geom.NewAABB(geom.Vec3{}, geom.Vec3{5, 5, 5})
	}
	return out
}

// Renderer draws a world onto a braille canvas through a camera.
type Renderer struct {
	Canvas *Canvas
	Camera *Camera
}

func NewRenderer(w, h int) *Renderer {
	return &Renderer{Canvas: NewCanvas(w, h), Camera: NewCamera()}
}

func (r *Renderer) project(p geom.Vec3) (int, int) {
	return r.Camera.Project(p, r.Canvas.PixelWidth(), r.Canvas.PixelHeight())
}

func (r *Renderer) line(a, b geom.Vec3) {
	x0, y0 := r.project(a)
	x1, y1 := r.project(b)
	r.Canvas.DrawLine(x0, y0, x1, y1)
}

// DrawWorld clears the canvas and draws every non-faulted body and every
// active link. Broken links are not drawn.
func (r *Renderer) DrawWorld(w *world.World) {
	r.Canvas.Clear()
	for _, b := range w.Bodies() {
		if !b.Faulted() {
			r.DrawBody(b)
		}
	}
	for _, l := range w.Links() {
		if !l.Active() {
			continue
		}
		if a, b, ok := w.Endpoints(l); ok {
			r.line(a, b)
		}
	}
}

func (r *Renderer) DrawBody(b *body.RigidBody) {
	s := b.Shape
	scale := r.Camera.Scale(r.Canvas.PixelWidth(), r.Canvas.PixelHeight())
	switch s.Kind {
	case geom.KindSphere:
		x, y := r.project(s.Center(b.Position, b.Rotation))
		r.Canvas.DrawCircle(x, y, int(math.Round(s.Radius*scale)))
	case geom.KindBox:
		v := s.OBB(b.Position, b.Rotation).Vertices()
		for i := range v {
			for axis := 0; axis < 3; axis++ {
				if j := i | 1<<axis; j != i {
					r.line(v[i], v[j])
				}
			}
		}
	case geom.KindCapsule:
		p, q := s.Segment(b.Position, b.Rotation)
		rad := int(math.Round(s.Radius * scale))
		px, py := r.project(p)
		qx, qy := r.project(q)
		r.Canvas.DrawCircle(px, py, rad)
		r.Canvas.DrawCircle(qx, qy, rad)
		// Side rails offset perpendicular to the projected core.
		dx, dy := float64(qx-px), float64(qy-py)
		if n := math.Hypot(dx, dy); n > 0 {
			ox, oy := int(math.Round(-dy/n*float64(rad))), int(math.Round(dx/n*float64(rad)))
			r.Canvas.DrawLine(px+ox, py+oy, qx+ox, qy+oy)
			r.Canvas.DrawLine(px-ox, py-oy, qx-ox, qy-oy)
		}
	case geom.KindPlane:
		n, p := s.PlaneAt(b.Position, b.Rotation)
		t1, t2 := geom.Orthonormal(n)
		reach := 4 * r.Camera.Extent / r.Camera.Zoom
		p = p.Add(r.Camera.Target.Sub(p).Sub(n.Mul(n.Dot(r.Camera.Target.Sub(p)))))
		r.line(p.Sub(t1.Mul(reach)), p.Add(t1.Mul(reach)))
		r.line(p.Sub(t2.Mul(reach)), p.Add(t2.Mul(reach)))
	}
}

func (r *Renderer) String() string { return r.Canvas.String() }

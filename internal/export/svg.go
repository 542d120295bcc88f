package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/link"
	"github.com/san-kum/rigidsim/internal/viz"
	"github.com/san-kum/rigidsim/internal/world"
)

var stateColors = map[link.State]string{
	link.Intact:   "#00ff88",
	link.Slack:    "#888899",
	link.Yielding: "#ffcc00",
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

// WorldToSVG draws a snapshot of w as seen through cam. Bodies are outlined,
// intact links are colored by state, and broken links leave a red cross
// where they snapped. A nil camera is fitted to the scene.
func WorldToSVG(w *world.World, cam *viz.Camera, width, height int) string {
	if cam == nil {
		cam = viz.NewCamera()
		cam.Fit(viz.SceneBounds(w))
	}
	scale := cam.Scale(width, height)
	pt := func(p geom.Vec3) (int, int) { return cam.Project(p, width, height) }
	line := func(sb *strings.Builder, a, b geom.Vec3, color string, stroke float64) {
		x0, y0 := pt(a)
		x1, y1 := pt(b)
		fmt.Fprintf(sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="%.1f"/>
`, x0, y0, x1, y1, color, stroke)
	}

	var sb strings.Builder
	header(&sb, width, height)
	sb.WriteString(`<g fill="none" stroke="#00ccff" stroke-width="1.5">` + "\n")
	for _, b := range w.Bodies() {
		s := b.Shape
		color := "#00ccff"
		if b.Faulted() {
			color = "#ff4444"
		}
		switch s.Kind {
		case geom.KindSphere:
			x, y := pt(s.Center(b.Position, b.Rotation))
			fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="%.1f" stroke="%s"/>
`, x, y, s.Radius*scale, color)
		case geom.KindBox:
			v := s.OBB(b.Position, b.Rotation).Vertices()
			for i := range v {
				for axis := 0; axis < 3; axis++ {
					if j := i | 1<<axis; j != i {
						line(&sb, v[i], v[j], color, 1.5)
					}
				}
			}
		case geom.KindCapsule:
			p, q := s.Segment(b.Position, b.Rotation)
			line(&sb, p, q, color, math.Max(1.5, 2*s.Radius*scale))
		case geom.KindPlane:
			n, p := s.PlaneAt(b.Position, b.Rotation)
			t1, _ := geom.Orthonormal(n)
			reach := 4 * cam.Extent / cam.Zoom
			p = p.Add(cam.Target.Sub(p).Sub(n.Mul(n.Dot(cam.Target.Sub(p)))))
			line(&sb, p.Sub(t1.Mul(reach)), p.Add(t1.Mul(reach)), "#444466", 2)
		}
	}
	sb.WriteString("</g>\n")

	for _, l := range w.Links() {
		if !l.Active() {
			x, y := pt(l.BreakPoint)
			fmt.Fprintf(&sb, `<path d="M%d,%d l6,6 m0,-6 l-6,6" stroke="#ff4444" stroke-width="2" transform="translate(-3,-3)"/>
`, x, y)
			continue
		}
		a, b, ok := w.Endpoints(l)
		if !ok {
			continue
		}
		color, known := stateColors[l.State]
		if !known {
			color = "#ffffff"
		}
		line(&sb, a, b, color, 1)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// TrajectoryToSVG plots the path through paired xs and ys samples. Samples
// with a NaN coordinate split the path.
func TrajectoryToSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := min(len(xs), len(ys))
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	valid := 0
	for i := 0; i < n; i++ {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		valid++
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}
	if valid < 2 {
		return ""
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, strokeColor)
	move := true
	for i := 0; i < n; i++ {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			move = true
			continue
		}
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)
		if move {
			fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			move = false
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

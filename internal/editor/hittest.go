package editor

import (
	"math"

	"github.com/JPeixoto/my-whiteboard-app/pkg/board"
)

// strokeHits returns the IDs of strokes whose painted line passes within
// radius of center.
func strokeHits(strokes []board.Stroke, center board.Point, radius float64) []string {
	var hits []string
	for i := range strokes {
		if strokeHit(&strokes[i], center, radius) {
			hits = append(hits, strokes[i].ID)
		}
	}
	return hits
}

func strokeHit(s *board.Stroke, center board.Point, radius float64) bool {
	reach := radius + s.StrokeWidth/2
	if len(s.Points) == 1 {
		return dist(center, s.Points[0]) <= reach
	}
	for i := 1; i < len(s.Points); i++ {
		if pointSegmentDistance(center, s.Points[i-1], s.Points[i]) <= reach {
			return true
		}
	}
	return false
}

// shapeHits returns the IDs of shapes whose outline passes within radius
// of center. Only the outline counts: shapes are unfilled, so erasing
// through the middle of a rectangle leaves it alone.
func shapeHits(shapes []board.Shape, center board.Point, radius float64) []string {
	var hits []string
	for i := range shapes {
		if shapeHit(shapes[i], center, radius) {
			hits = append(hits, shapes[i].ID)
		}
	}
	return hits
}

func shapeHit(s board.Shape, center board.Point, radius float64) bool {
	s.Normalize()
	reach := radius + s.StrokeWidth/2

	switch s.Kind {
	case board.ShapeCircle:
		return ellipseOutlineDistance(s, center) <= reach
	case board.ShapeTriangle:
		apex := board.Point{X: s.X + s.Width/2, Y: s.Y}
		left := board.Point{X: s.X, Y: s.Y + s.Height}
		right := board.Point{X: s.X + s.Width, Y: s.Y + s.Height}
		return pointSegmentDistance(center, apex, left) <= reach ||
			pointSegmentDistance(center, left, right) <= reach ||
			pointSegmentDistance(center, right, apex) <= reach
	default: // rectangle
		tl := board.Point{X: s.X, Y: s.Y}
		tr := board.Point{X: s.X + s.Width, Y: s.Y}
		bl := board.Point{X: s.X, Y: s.Y + s.Height}
		br := board.Point{X: s.X + s.Width, Y: s.Y + s.Height}
		return pointSegmentDistance(center, tl, tr) <= reach ||
			pointSegmentDistance(center, tr, br) <= reach ||
			pointSegmentDistance(center, br, bl) <= reach ||
			pointSegmentDistance(center, bl, tl) <= reach
	}
}

// ellipseOutlineDistance approximates the distance from p to the ellipse
// inscribed in the shape's bounding box by scaling the radial offset from
// unit distance in normalized coordinates.
func ellipseOutlineDistance(s board.Shape, p board.Point) float64 {
	rx, ry := s.Width/2, s.Height/2
	if rx == 0 || ry == 0 {
		return dist(p, board.Point{X: s.X + rx, Y: s.Y + ry})
	}
	cx, cy := s.X+rx, s.Y+ry
	nx := (p.X - cx) / rx
	ny := (p.Y - cy) / ry
	return math.Abs(math.Hypot(nx, ny)-1) * math.Min(rx, ry)
}

// pointSegmentDistance is the shortest distance from p to segment ab.
func pointSegmentDistance(p, a, b board.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return dist(p, board.Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

func dist(a, b board.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

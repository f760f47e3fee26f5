package snap

import (
	"github.com/chazu/kerf/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"
)

const (
	// pad keeps degenerate (flat) boxes valid as R-tree rectangles.
	pad = 1e-6
	// unbounded stands in for an unlimited query extent on one axis.
	unbounded = 1e12
)

// neighbour is a model's world box stored in the R-tree.
type neighbour struct {
	index int
	box   sdf.Box3
	rect  rtreego.Rect
}

func (n *neighbour) Bounds() rtreego.Rect {
	return n.rect
}

func toRect(b sdf.Box3, grow v3.Vec) (rtreego.Rect, error) {
	g := grow.Add(v3.Vec{X: pad, Y: pad, Z: pad})
	return rtreego.NewRectFromPoints(
		rtreego.Point{b.Min.X - g.X, b.Min.Y - g.Y, b.Min.Z - g.Z},
		rtreego.Point{b.Max.X + g.X, b.Max.Y + g.Y, b.Max.Z + g.Z},
	)
}

// nearby returns every model other than skip whose world box intersects
// box grown by grow on each axis, in registry order.
func nearby(reg *scene.Registry, skip int, box sdf.Box3, grow v3.Vec) []*neighbour {
	tree := rtreego.NewTree(3, 2, 8)
	for i, m := range reg.Models() {
		if i == skip {
			continue
		}
		bb, ok := m.WorldBounds()
		if !ok {
			continue
		}
		rect, err := toRect(bb, v3.Vec{})
		if err != nil {
			continue
		}
		tree.Insert(&neighbour{index: i, box: bb, rect: rect})
	}

	query, err := toRect(box, grow)
	if err != nil {
		return nil
	}
	hits := tree.SearchIntersect(query)
	out := make([]*neighbour, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*neighbour))
	}
	sortByIndex(out)
	return out
}

package scene

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// ModelView is a read-only description of a model for the frontend.
type ModelView struct {
	Index      int        `json:"index"`
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	Position   [3]float64 `json:"position"`
	Rotation   [3]float64 `json:"rotation"`
	Scale      [3]float64 `json:"scale"`
	Min        [3]float64 `json:"min"`
	Max        [3]float64 `json:"max"`
	Triangles  int        `json:"triangles"`
	Selected   bool       `json:"selected"`
	Secondary  bool       `json:"secondary"`
	Appearance Appearance `json:"appearance"`
}

func arr(v v3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Views describes every model in registry order.
func (r *Registry) Views() []ModelView {
	return lo.Map(r.models, func(m *Model, i int) ModelView {
		v := ModelView{
			Index:      i,
			ID:         m.ID,
			Name:       m.Name,
			Kind:       m.Kind.String(),
			Position:   arr(m.Transform.Position),
			Rotation:   arr(m.Transform.Rotation),
			Scale:      arr(m.Transform.Scale),
			Selected:   i == r.selected,
			Secondary:  i == r.secondary,
			Appearance: m.RenderMode.Appearance(),
		}
		if m.Geometry != nil {
			v.Triangles = m.Geometry.TriangleCount()
		}
		if bb, ok := m.WorldBounds(); ok {
			v.Min = arr(bb.Min)
			v.Max = arr(bb.Max)
		}
		return v
	})
}

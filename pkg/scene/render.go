package scene

import "fmt"

// RenderMode selects how models are drawn.
type RenderMode int

const (
	RenderStandard RenderMode = iota
	RenderWireframe
	RenderRealistic
	RenderXRay
)

func (r RenderMode) String() string {
	switch r {
	case RenderStandard:
		return "standard"
	case RenderWireframe:
		return "wireframe"
	case RenderRealistic:
		return "realistic"
	case RenderXRay:
		return "xray"
	default:
		return "unknown"
	}
}

// ParseRenderMode converts a render mode name into a RenderMode.
func ParseRenderMode(s string) (RenderMode, error) {
	switch s {
	case "standard", "":
		return RenderStandard, nil
	case "wireframe":
		return RenderWireframe, nil
	case "realistic":
		return RenderRealistic, nil
	case "xray", "x-ray":
		return RenderXRay, nil
	default:
		return RenderStandard, fmt.Errorf("scene: unknown render mode %q", s)
	}
}

// Appearance describes the material the frontend builds for a model.
type Appearance struct {
	Mode        string  `json:"mode"`
	Opacity     float64 `json:"opacity"`
	Transparent bool    `json:"transparent"`
	Wireframe   bool    `json:"wireframe"`
	Metalness   float64 `json:"metalness"`
	Roughness   float64 `json:"roughness"`
	DepthWrite  bool    `json:"depthWrite"`
}

// Appearance derives the material parameters for r.
func (r RenderMode) Appearance() Appearance {
	a := Appearance{
		Mode:       r.String(),
		Opacity:    1,
		Metalness:  0.1,
		Roughness:  0.6,
		DepthWrite: true,
	}
	switch r {
	case RenderWireframe:
		a.Wireframe = true
		a.Metalness = 0
		a.Roughness = 1
	case RenderRealistic:
		a.Metalness = 0.4
		a.Roughness = 0.3
	case RenderXRay:
		a.Opacity = 0.35
		a.Transparent = true
		a.DepthWrite = false
	}
	return a
}

package snap

import "fmt"

// Settings controls which snap passes run.
type Settings struct {
	Enabled   bool    `json:"enabled" toml:"enabled" yaml:"enabled"`
	Grid      bool    `json:"snapToGrid" toml:"grid" yaml:"grid"`
	Faces     bool    `json:"snapToFaces" toml:"faces" yaml:"faces"`
	Edges     bool    `json:"snapToEdges" toml:"edges" yaml:"edges"`
	Threshold float64 `json:"threshold" toml:"threshold" yaml:"threshold"`
	GridSize  float64 `json:"gridSize" toml:"grid_size" yaml:"grid_size"`
}

// DefaultSettings returns snapping switched off with every pass armed.
func DefaultSettings() Settings {
	return Settings{
		Enabled:   false,
		Grid:      true,
		Faces:     true,
		Edges:     true,
		Threshold: 5,
		GridSize:  2,
	}
}

// Validate rejects settings the engine cannot use.
func (s Settings) Validate() error {
	if s.Threshold < 0 {
		return fmt.Errorf("snap: threshold must not be negative, got %g", s.Threshold)
	}
	if s.GridSize <= 0 {
		return fmt.Errorf("snap: grid size must be positive, got %g", s.GridSize)
	}
	return nil
}

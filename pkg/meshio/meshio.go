// Package meshio loads meshes from STL and 3MF bytes and writes them back
// out for export.
package meshio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
)

// Format is a mesh file format.
type Format string

const (
	FormatSTL Format = "stl"
	Format3MF Format = "3mf"
)

// ParseFormat accepts a format name or a file name with extension.
func ParseFormat(s string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(s), "."))
	if ext == "" {
		ext = strings.ToLower(s)
	}
	switch ext {
	case "stl":
		return FormatSTL, nil
	case "3mf":
		return Format3MF, nil
	}
	return "", fmt.Errorf("meshio: unsupported format %q", s)
}

// LoadError reports malformed or unreadable input.
type LoadError struct {
	Format Format
	Name   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("meshio: load %s (%s): %v", e.Name, e.Format, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load decodes data according to the extension of name. The returned mesh
// is welded, indexed and carries normals.
func Load(name string, data []byte) (*kernel.Mesh, error) {
	format, err := ParseFormat(name)
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}

	var m *kernel.Mesh
	switch format {
	case FormatSTL:
		m, err = DecodeSTL(data)
	case Format3MF:
		m, err = Decode3MF(data)
	}
	if err != nil {
		return nil, &LoadError{Format: format, Name: name, Err: err}
	}

	m = m.Merged(kernel.MergeTolerance)
	if err := kernel.Validate(m); err != nil {
		return nil, &LoadError{Format: format, Name: name, Err: err}
	}
	m.ComputeNormals()
	return m, nil
}

// LoadFile reads and decodes the file at path.
func LoadFile(path string) (*kernel.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		format, _ := ParseFormat(path)
		return nil, &LoadError{Format: format, Name: filepath.Base(path), Err: err}
	}
	return Load(filepath.Base(path), data)
}

// Encode writes m in the given format.
func Encode(w io.Writer, format Format, m *kernel.Mesh, name string) error {
	if m == nil || m.IsEmpty() {
		return &kernel.GeometryError{Stage: "export", Reason: "mesh has no vertices"}
	}
	switch format {
	case FormatSTL:
		return EncodeSTL(w, m, name)
	case Format3MF:
		return Encode3MF(w, m, name)
	}
	return fmt.Errorf("meshio: unsupported format %q", format)
}

// Bytes returns m encoded in the given format.
func Bytes(format Format, m *kernel.Mesh, name string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, format, m, name); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveFile writes m to path, choosing the format from the extension.
// STL files are written through sdfx.
func SaveFile(path string, m *kernel.Mesh, name string) error {
	format, err := ParseFormat(path)
	if err != nil {
		return err
	}
	if format == FormatSTL {
		return sdfx.SaveSTL(path, m)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("meshio: create %s: %w", path, err)
	}
	if err := Encode(f, format, m, name); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

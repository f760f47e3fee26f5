package meshio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// DecodeSTL parses binary or ASCII STL into a non-indexed mesh.
func DecodeSTL(data []byte) (*kernel.Mesh, error) {
	if len(data) >= stlHeaderSize+4 {
		count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
		if int64(stlHeaderSize+4)+int64(count)*stlTriangleSize == int64(len(data)) {
			return decodeBinarySTL(data[stlHeaderSize+4:], int(count))
		}
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("solid")) {
		return decodeASCIISTL(trimmed)
	}
	if len(data) < stlHeaderSize+4 {
		return nil, errors.New("stl: file too short")
	}
	return nil, errors.New("stl: triangle count does not match file size")
}

func decodeBinarySTL(body []byte, count int) (*kernel.Mesh, error) {
	if count == 0 {
		return nil, errors.New("stl: no triangles")
	}
	tris := make([]*sdf.Triangle3, 0, count)
	for i := 0; i < count; i++ {
		rec := body[i*stlTriangleSize:]
		var tri sdf.Triangle3
		for j := 0; j < 3; j++ {
			off := 12 + j*12
			tri[j] = v3.Vec{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+8:]))),
			}
		}
		tris = append(tris, &tri)
	}
	return kernel.FromTriangles(tris), nil
}

func decodeASCIISTL(data []byte) (*kernel.Mesh, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var tris []*sdf.Triangle3
	var cur []v3.Vec
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("stl: line %d: vertex needs 3 coordinates", line)
			}
			var p [3]float64
			for i := range p {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("stl: line %d: %w", line, err)
				}
				p[i] = v
			}
			cur = append(cur, v3.Vec{X: p[0], Y: p[1], Z: p[2]})
		case "endloop":
			if len(cur) != 3 {
				return nil, fmt.Errorf("stl: line %d: facet has %d vertices, want 3", line, len(cur))
			}
			tris = append(tris, &sdf.Triangle3{cur[0], cur[1], cur[2]})
			cur = cur[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("stl: %w", err)
	}
	if len(tris) == 0 {
		return nil, errors.New("stl: no facets")
	}
	return kernel.FromTriangles(tris), nil
}

// EncodeSTL writes m as binary STL.
func EncodeSTL(w io.Writer, m *kernel.Mesh, name string) error {
	bw := bufio.NewWriter(w)

	var header [stlHeaderSize]byte
	copy(header[:], "kerf "+name)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("meshio: stl header: %w", err)
	}

	n := m.TriangleCount()
	var rec [stlTriangleSize]byte
	binary.LittleEndian.PutUint32(rec[:4], uint32(n))
	if _, err := bw.Write(rec[:4]); err != nil {
		return fmt.Errorf("meshio: stl count: %w", err)
	}

	put := func(off int, v v3.Vec) {
		binary.LittleEndian.PutUint32(rec[off:], math.Float32bits(float32(v.X)))
		binary.LittleEndian.PutUint32(rec[off+4:], math.Float32bits(float32(v.Y)))
		binary.LittleEndian.PutUint32(rec[off+8:], math.Float32bits(float32(v.Z)))
	}
	for t := 0; t < n; t++ {
		a, b, c := m.Triangle(t)
		put(0, (&sdf.Triangle3{a, b, c}).Normal())
		put(12, a)
		put(24, b)
		put(36, c)
		rec[48], rec[49] = 0, 0
		if _, err := bw.Write(rec[:]); err != nil {
			return fmt.Errorf("meshio: stl triangle %d: %w", t, err)
		}
	}
	return bw.Flush()
}

// Package bsp implements the kernel.Kernel interface with binary space
// partitioning trees of convex polygons. It needs no C toolchain and is the
// default boolean backend; results are triangle soups that callers weld.
package bsp

import (
	"errors"
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*BSPKernel)(nil)

// DefaultMaxPolygons bounds the number of polygons a single operation may
// create while splitting before it gives up with kernel.ErrTooComplex.
const DefaultMaxPolygons = 200000

// epsilon is the plane thickness used to classify points as coplanar.
const epsilon = 1e-5

// BSPKernel implements kernel.Kernel with BSP-tree clipping.
type BSPKernel struct {
	MaxPolygons int
}

// New returns a BSPKernel with the default polygon budget.
func New() *BSPKernel {
	return &BSPKernel{MaxPolygons: DefaultMaxPolygons}
}

// Name returns "bsp".
func (k *BSPKernel) Name() string { return "bsp" }

// Union returns a ∪ b.
func (k *BSPKernel) Union(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	return k.run(a, b, func(na, nb *node) *node {
		na.clipTo(nb)
		nb.clipTo(na)
		nb.invert()
		nb.clipTo(na)
		nb.invert()
		na.build(nb.allPolygons())
		return na
	})
}

// Difference returns a − b.
func (k *BSPKernel) Difference(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	return k.run(a, b, func(na, nb *node) *node {
		na.invert()
		na.clipTo(nb)
		nb.clipTo(na)
		nb.invert()
		nb.clipTo(na)
		nb.invert()
		na.build(nb.allPolygons())
		na.invert()
		return na
	})
}

// Intersection returns a ∩ b.
func (k *BSPKernel) Intersection(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	return k.run(a, b, func(na, nb *node) *node {
		na.invert()
		nb.clipTo(na)
		nb.invert()
		na.clipTo(nb)
		nb.clipTo(na)
		na.build(nb.allPolygons())
		na.invert()
		return na
	})
}

// errBudget is panicked by the tree when the polygon budget runs out and
// recovered in run.
var errBudget = errors.New("bsp: polygon budget exhausted")

func (k *BSPKernel) run(a, b *kernel.Mesh, op func(na, nb *node) *node) (result *kernel.Mesh, err error) {
	limit := k.MaxPolygons
	if limit <= 0 {
		limit = DefaultMaxPolygons
	}
	if a.TriangleCount()+b.TriangleCount() > limit {
		return nil, fmt.Errorf("bsp: %d input triangles: %w", a.TriangleCount()+b.TriangleCount(), kernel.ErrTooComplex)
	}

	pa, err := toPolygons(a)
	if err != nil {
		return nil, fmt.Errorf("bsp: first operand: %w", err)
	}
	pb, err := toPolygons(b)
	if err != nil {
		return nil, fmt.Errorf("bsp: second operand: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			if r == errBudget {
				err = fmt.Errorf("bsp: more than %d polygons: %w", limit, kernel.ErrTooComplex)
				return
			}
			panic(r)
		}
	}()

	b0 := &budget{limit: limit}
	na := newNode(b0, pa)
	nb := newNode(b0, pb)
	out := op(na, nb).allPolygons()
	if len(out) == 0 {
		return &kernel.Mesh{}, nil
	}
	return fromPolygons(out), nil
}

// ---------------------------------------------------------------------------
// Geometry
// ---------------------------------------------------------------------------

type vertex struct {
	pos    v3.Vec
	normal v3.Vec
}

func (v vertex) interpolate(o vertex, t float64) vertex {
	return vertex{
		pos:    v.pos.Add(o.pos.Sub(v.pos).MulScalar(t)),
		normal: v.normal.Add(o.normal.Sub(v.normal).MulScalar(t)),
	}
}

type plane struct {
	normal v3.Vec
	w      float64
}

// planeFromPoints returns the plane through a, b, c; false when the points
// are collinear.
func planeFromPoints(a, b, c v3.Vec) (plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l < 1e-12 {
		return plane{}, false
	}
	n = n.MulScalar(1 / l)
	return plane{normal: n, w: n.Dot(a)}, true
}

func (p plane) flipped() plane {
	return plane{normal: p.normal.Neg(), w: -p.w}
}

type polygon struct {
	vertices []vertex
	plane    plane
}

func (p *polygon) flipped() *polygon {
	n := len(p.vertices)
	vs := make([]vertex, n)
	for i, v := range p.vertices {
		vs[n-1-i] = vertex{pos: v.pos, normal: v.normal.Neg()}
	}
	return &polygon{vertices: vs, plane: p.plane.flipped()}
}

const (
	coplanar = 0
	front    = 1
	back     = 2
	spanning = 3
)

// budget counts polygons created by splitting across both trees of one
// operation.
type budget struct {
	created int
	limit   int
}

func (b *budget) spend(n int) {
	b.created += n
	if b.created > b.limit {
		panic(errBudget)
	}
}

// split classifies poly against p and appends it (or its pieces) to the
// matching lists.
func (p plane) split(b *budget, poly *polygon, coplanarFront, coplanarBack, fronts, backs *[]*polygon) {
	polygonType := 0
	types := make([]int, len(poly.vertices))
	for i, v := range poly.vertices {
		t := p.normal.Dot(v.pos) - p.w
		typ := coplanar
		if t < -epsilon {
			typ = back
		} else if t > epsilon {
			typ = front
		}
		polygonType |= typ
		types[i] = typ
	}

	switch polygonType {
	case coplanar:
		if p.normal.Dot(poly.plane.normal) > 0 {
			*coplanarFront = append(*coplanarFront, poly)
		} else {
			*coplanarBack = append(*coplanarBack, poly)
		}
	case front:
		*fronts = append(*fronts, poly)
	case back:
		*backs = append(*backs, poly)
	case spanning:
		var f, bk []vertex
		n := len(poly.vertices)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			ti, tj := types[i], types[j]
			vi, vj := poly.vertices[i], poly.vertices[j]
			if ti != back {
				f = append(f, vi)
			}
			if ti != front {
				bk = append(bk, vi)
			}
			if ti|tj == spanning {
				t := (p.w - p.normal.Dot(vi.pos)) / p.normal.Dot(vj.pos.Sub(vi.pos))
				v := vi.interpolate(vj, t)
				f = append(f, v)
				bk = append(bk, v)
			}
		}
		if len(f) >= 3 {
			*fronts = append(*fronts, &polygon{vertices: f, plane: poly.plane})
			b.spend(1)
		}
		if len(bk) >= 3 {
			*backs = append(*backs, &polygon{vertices: bk, plane: poly.plane})
			b.spend(1)
		}
	}
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

type node struct {
	budget   *budget
	plane    *plane
	front    *node
	back     *node
	polygons []*polygon
}

func newNode(b *budget, polys []*polygon) *node {
	n := &node{budget: b}
	n.build(polys)
	return n
}

// invert converts solid space to empty space and empty space to solid.
func (n *node) invert() {
	for i, p := range n.polygons {
		n.polygons[i] = p.flipped()
	}
	if n.plane != nil {
		f := n.plane.flipped()
		n.plane = &f
	}
	if n.front != nil {
		n.front.invert()
	}
	if n.back != nil {
		n.back.invert()
	}
	n.front, n.back = n.back, n.front
}

// clipPolygons removes the parts of polys that are inside this tree.
func (n *node) clipPolygons(polys []*polygon) []*polygon {
	if n.plane == nil {
		return append([]*polygon(nil), polys...)
	}
	var fronts, backs []*polygon
	for _, p := range polys {
		n.plane.split(n.budget, p, &fronts, &backs, &fronts, &backs)
	}
	if n.front != nil {
		fronts = n.front.clipPolygons(fronts)
	}
	if n.back != nil {
		backs = n.back.clipPolygons(backs)
	} else {
		backs = nil
	}
	return append(fronts, backs...)
}

// clipTo removes all polygons in this tree that are inside other.
func (n *node) clipTo(other *node) {
	n.polygons = other.clipPolygons(n.polygons)
	if n.front != nil {
		n.front.clipTo(other)
	}
	if n.back != nil {
		n.back.clipTo(other)
	}
}

func (n *node) allPolygons() []*polygon {
	out := append([]*polygon(nil), n.polygons...)
	if n.front != nil {
		out = append(out, n.front.allPolygons()...)
	}
	if n.back != nil {
		out = append(out, n.back.allPolygons()...)
	}
	return out
}

// build inserts polys into the tree, splitting them by node planes.
func (n *node) build(polys []*polygon) {
	if len(polys) == 0 {
		return
	}
	if n.plane == nil {
		p := polys[0].plane
		n.plane = &p
	}
	var fronts, backs []*polygon
	for _, p := range polys {
		n.plane.split(n.budget, p, &n.polygons, &n.polygons, &fronts, &backs)
	}
	if len(fronts) > 0 {
		if n.front == nil {
			n.front = &node{budget: n.budget}
		}
		n.front.build(fronts)
	}
	if len(backs) > 0 {
		if n.back == nil {
			n.back = &node{budget: n.budget}
		}
		n.back.build(backs)
	}
}

// ---------------------------------------------------------------------------
// Mesh conversion
// ---------------------------------------------------------------------------

// toPolygons converts every non-degenerate triangle of m into a polygon.
func toPolygons(m *kernel.Mesh) ([]*polygon, error) {
	if m == nil || m.IsEmpty() {
		return nil, &kernel.GeometryError{Stage: "bsp", Reason: "operand has no vertices"}
	}
	polys := make([]*polygon, 0, m.TriangleCount())
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		pl, ok := planeFromPoints(a, b, c)
		if !ok {
			continue
		}
		polys = append(polys, &polygon{
			vertices: []vertex{
				{pos: a, normal: pl.normal},
				{pos: b, normal: pl.normal},
				{pos: c, normal: pl.normal},
			},
			plane: pl,
		})
	}
	if len(polys) == 0 {
		return nil, &kernel.GeometryError{Stage: "bsp", Reason: "operand has only degenerate triangles"}
	}
	return polys, nil
}

// fromPolygons fan-triangulates convex polygons into a non-indexed mesh.
func fromPolygons(polys []*polygon) *kernel.Mesh {
	m := &kernel.Mesh{}
	for _, p := range polys {
		n := p.plane.normal
		for i := 2; i < len(p.vertices); i++ {
			for _, v := range []vertex{p.vertices[0], p.vertices[i-1], p.vertices[i]} {
				m.Vertices = append(m.Vertices, float32(v.pos.X), float32(v.pos.Y), float32(v.pos.Z))
				m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			}
		}
	}
	return m
}

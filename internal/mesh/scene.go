package mesh

import (
	"fmt"
	"log/slog"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// object is one triangle primitive with its node transform baked in.
type object struct {
	name      string
	positions [][3]float64
	normals   [][3]float64
	uvs       [][2]float32
	indices   []uint32
	material  int
}

type scene struct {
	objects   []object
	materials []int
}

func (s *scene) vertexCount() int {
	n := 0
	for _, o := range s.objects {
		n += len(o.positions)
	}
	return n
}

const maxDepth = 64

// collect flattens the default scene of doc into world-space objects.
func collect(doc *gltf.Document) (*scene, error) {
	sc := &scene{}
	used := make(map[int]bool)

	addMesh := func(meshIdx int, name string, world mat4) error {
		if meshIdx < 0 || meshIdx >= len(doc.Meshes) {
			return fmt.Errorf("mesh index %d out of range", meshIdx)
		}
		m := doc.Meshes[meshIdx]
		if name == "" {
			name = m.Name
		}
		if name == "" {
			name = fmt.Sprintf("mesh_%d", meshIdx)
		}
		for pi, p := range m.Primitives {
			o, ok, err := readPrimitive(doc, p, world)
			if err != nil {
				return fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
			}
			if !ok {
				continue
			}
			o.name = name
			if len(m.Primitives) > 1 {
				o.name = fmt.Sprintf("%s_%d", name, pi)
			}
			if o.material >= 0 && !used[o.material] {
				used[o.material] = true
				sc.materials = append(sc.materials, o.material)
			}
			sc.objects = append(sc.objects, o)
		}
		return nil
	}

	if len(doc.Nodes) == 0 {
		for i := range doc.Meshes {
			if err := addMesh(i, "", identity); err != nil {
				return nil, err
			}
		}
		return sc, nil
	}

	var visit func(idx int, parent mat4, depth int) error
	visit = func(idx int, parent mat4, depth int) error {
		if idx < 0 || idx >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", idx)
		}
		if depth > maxDepth {
			return fmt.Errorf("node hierarchy deeper than %d", maxDepth)
		}
		n := doc.Nodes[idx]
		world := parent.mul(localMatrix(n))
		if n.Mesh != nil {
			if err := addMesh(*n.Mesh, n.Name, world); err != nil {
				return err
			}
		}
		for _, child := range n.Children {
			if err := visit(child, world, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range rootNodes(doc) {
		if err := visit(root, identity, 0); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	isChild := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func localMatrix(n *gltf.Node) mat4 {
	m := mat4(n.MatrixOrDefault())
	if m != identity {
		return m
	}
	return trs(n.Translation, n.RotationOrDefault(), n.ScaleOrDefault())
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

// readPrimitive returns ok=false for primitives that are not triangle lists
// or carry no positions.
func readPrimitive(doc *gltf.Document, p *gltf.Primitive, world mat4) (object, bool, error) {
	o := object{material: -1}
	if p.Mode != gltf.PrimitiveTriangles {
		slog.Debug("skipping non-triangle primitive", "mode", p.Mode)
		return o, false, nil
	}
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return o, false, nil
	}

	acr, err := accessor(doc, posIdx)
	if err != nil {
		return o, false, err
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return o, false, fmt.Errorf("read positions: %w", err)
	}
	o.positions = make([][3]float64, len(positions))
	for i, v := range positions {
		o.positions[i] = world.point(v)
	}

	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		acr, err := accessor(doc, idx)
		if err != nil {
			return o, false, err
		}
		normals, err := modeler.ReadNormal(doc, acr, nil)
		if err != nil {
			return o, false, fmt.Errorf("read normals: %w", err)
		}
		if len(normals) == len(positions) {
			nm := world.normalMatrix()
			o.normals = make([][3]float64, len(normals))
			for i, v := range normals {
				o.normals[i] = applyNormal(nm, v)
			}
		}
	}

	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		acr, err := accessor(doc, idx)
		if err != nil {
			return o, false, err
		}
		uvs, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return o, false, fmt.Errorf("read texcoords: %w", err)
		}
		if len(uvs) == len(positions) {
			o.uvs = uvs
		}
	}

	if p.Indices != nil {
		acr, err := accessor(doc, *p.Indices)
		if err != nil {
			return o, false, err
		}
		o.indices, err = modeler.ReadIndices(doc, acr, nil)
		if err != nil {
			return o, false, fmt.Errorf("read indices: %w", err)
		}
		for _, i := range o.indices {
			if int(i) >= len(positions) {
				return o, false, fmt.Errorf("index %d out of range for %d vertices", i, len(positions))
			}
		}
	} else {
		o.indices = make([]uint32, len(positions))
		for i := range o.indices {
			o.indices[i] = uint32(i)
		}
	}

	if p.Material != nil {
		o.material = *p.Material
	}
	return o, true, nil
}

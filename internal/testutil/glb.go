package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/require"
)

// TriangleDocument builds a single untextured triangle with one red
// material attached to a root node.
func TriangleDocument() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Materials = []*gltf.Material{{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0, 0, 1},
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "triangle",
		Primitives: []*gltf.Primitive{{
			Indices: gltf.Index(idx),
			Attributes: map[string]int{
				gltf.POSITION:   pos,
				gltf.NORMAL:     nrm,
				gltf.TEXCOORD_0: uv,
			},
			Material: gltf.Index(0),
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "triangle", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

// WriteGLB saves doc as a binary glTF at path.
func WriteGLB(t testing.TB, path string, doc *gltf.Document) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

// WriteTestGLB writes the triangle fixture to dir/name.
func WriteTestGLB(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteGLB(t, filepath.Join(dir, name), TriangleDocument())
}

func saveTriangle(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return gltf.SaveBinary(TriangleDocument(), path)
}

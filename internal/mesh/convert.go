// Package mesh converts GLB scenes into OBJ file trees.
package mesh

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
)

var ErrConversion = errors.New("mesh conversion failed")

// MaterialLib is the name of the material file written next to the OBJ.
const MaterialLib = "material.mtl"

// Convert loads glbPath and writes <outputRoot>/<base>/<base>.obj together
// with its material library and textures. It returns the OBJ path.
func Convert(glbPath, outputRoot string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(glbPath), filepath.Ext(glbPath))
	dir := filepath.Join(outputRoot, base)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create output dir: %v", ErrConversion, err)
	}

	doc, err := gltf.Open(glbPath)
	if err != nil {
		return "", fmt.Errorf("%w: load %s: %v", ErrConversion, filepath.Base(glbPath), err)
	}

	sc, err := collect(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversion, err)
	}

	mtls, err := writeMaterials(doc, sc.materials, dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversion, err)
	}

	objPath := filepath.Join(dir, base+".obj")
	if err := writeOBJ(objPath, sc, mtls); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversion, err)
	}

	slog.Info("converted glb to obj",
		"glb", glbPath,
		"obj", objPath,
		"objects", len(sc.objects),
		"vertices", sc.vertexCount(),
		"materials", len(mtls))
	return objPath, nil
}

func writeOBJ(path string, sc *scene, mtls map[int]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	fmt.Fprintln(w, "# exported by meshgen")
	if len(mtls) > 0 {
		fmt.Fprintf(w, "mtllib %s\n", MaterialLib)
	}

	// OBJ indices are 1-based and global across objects
	var vOff, vtOff, vnOff int
	for _, o := range sc.objects {
		fmt.Fprintf(w, "o %s\n", objName(o.name))
		for _, p := range o.positions {
			fmt.Fprintf(w, "v %s %s %s\n", ff(p[0]), ff(p[1]), ff(p[2]))
		}
		for _, uv := range o.uvs {
			fmt.Fprintf(w, "vt %s %s\n", ff(float64(uv[0])), ff(1-float64(uv[1])))
		}
		for _, n := range o.normals {
			fmt.Fprintf(w, "vn %s %s %s\n", ff(n[0]), ff(n[1]), ff(n[2]))
		}
		if name, ok := mtls[o.material]; ok {
			fmt.Fprintf(w, "usemtl %s\n", name)
		}

		hasUV, hasN := len(o.uvs) > 0, len(o.normals) > 0
		for i := 0; i+2 < len(o.indices); i += 3 {
			fmt.Fprint(w, "f")
			for _, idx := range o.indices[i : i+3] {
				v := int(idx) + 1
				switch {
				case hasUV && hasN:
					fmt.Fprintf(w, " %d/%d/%d", v+vOff, v+vtOff, v+vnOff)
				case hasUV:
					fmt.Fprintf(w, " %d/%d", v+vOff, v+vtOff)
				case hasN:
					fmt.Fprintf(w, " %d//%d", v+vOff, v+vnOff)
				default:
					fmt.Fprintf(w, " %d", v+vOff)
				}
			}
			fmt.Fprintln(w)
		}

		vOff += len(o.positions)
		vtOff += len(o.uvs)
		vnOff += len(o.normals)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ff(v float64) string {
	return fmt.Sprintf("%.8g", v)
}

func objName(name string) string {
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		return "geometry"
	}
	return name
}

package mesh

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/qmuntal/gltf"
)

// writeMaterials writes the material library for the used glTF materials and
// extracts their base color textures. It returns material index -> name.
func writeMaterials(doc *gltf.Document, used []int, dir string) (map[int]string, error) {
	names := make(map[int]string)
	if len(used) == 0 {
		return names, nil
	}

	f, err := os.Create(filepath.Join(dir, MaterialLib))
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)

	taken := make(map[string]bool)
	for _, idx := range used {
		if idx < 0 || idx >= len(doc.Materials) {
			continue
		}
		mat := doc.Materials[idx]

		name := objName(mat.Name)
		if mat.Name == "" || taken[name] {
			name = fmt.Sprintf("material_%d", idx)
		}
		taken[name] = true
		names[idx] = name

		color := [4]float64{1, 1, 1, 1}
		var texture string
		if pbr := mat.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				color = *pbr.BaseColorFactor
			}
			if pbr.BaseColorTexture != nil {
				texture, err = writeTexture(doc, pbr.BaseColorTexture.Index, dir, fmt.Sprintf("material_%d", idx))
				if err != nil {
					f.Close()
					return nil, err
				}
			}
		}

		fmt.Fprintf(w, "newmtl %s\n", name)
		fmt.Fprintln(w, "Ka 0 0 0")
		fmt.Fprintf(w, "Kd %s %s %s\n", ff(color[0]), ff(color[1]), ff(color[2]))
		fmt.Fprintln(w, "Ks 0.4 0.4 0.4")
		fmt.Fprintln(w, "Ns 10")
		fmt.Fprintf(w, "d %s\n", ff(color[3]))
		fmt.Fprintln(w, "illum 2")
		if texture != "" {
			fmt.Fprintf(w, "map_Kd %s\n", texture)
		}
		fmt.Fprintln(w)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	return names, f.Close()
}

// writeTexture stores the image behind texture texIdx as <stem><ext> and
// returns the file name, or "" when the image is not embedded.
func writeTexture(doc *gltf.Document, texIdx int, dir, stem string) (string, error) {
	if texIdx < 0 || texIdx >= len(doc.Textures) || doc.Textures[texIdx].Source == nil {
		return "", nil
	}
	imgIdx := *doc.Textures[texIdx].Source
	if imgIdx < 0 || imgIdx >= len(doc.Images) {
		return "", fmt.Errorf("image index %d out of range", imgIdx)
	}
	img := doc.Images[imgIdx]

	data, err := imageData(doc, img)
	if err != nil {
		return "", fmt.Errorf("read texture %d: %w", texIdx, err)
	}
	if data == nil {
		slog.Debug("skipping external texture", "uri", img.URI)
		return "", nil
	}

	name := stem + imageExt(img.MimeType, data)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", err
	}
	return name, nil
}

func imageData(doc *gltf.Document, img *gltf.Image) ([]byte, error) {
	if img.BufferView != nil {
		i := *img.BufferView
		if i < 0 || i >= len(doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", i)
		}
		bv := doc.BufferViews[i]
		if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
			return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
		}
		buf := doc.Buffers[bv.Buffer].Data
		end := bv.ByteOffset + bv.ByteLength
		if bv.ByteOffset < 0 || end > len(buf) {
			return nil, fmt.Errorf("buffer view %d exceeds buffer", i)
		}
		return buf[bv.ByteOffset:end], nil
	}
	if img.IsEmbeddedResource() {
		return img.MarshalData()
	}
	return nil, nil
}

func imageExt(mime string, data []byte) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if ext := mimetype.Detect(data).Extension(); ext != "" {
		return ext
	}
	return ".bin"
}

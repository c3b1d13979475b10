package mesh

import "math"

// mat4 is a column-major 4x4 matrix, the layout glTF uses.
type mat4 [16]float64

var identity = mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func (a mat4) mul(b mat4) mat4 {
	var out mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// trs composes translation, rotation (x, y, z, w quaternion) and scale.
func trs(t [3]float64, q [4]float64, s [3]float64) mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return mat4{
		(1 - 2*(yy+zz)) * s[0], 2 * (xy + wz) * s[0], 2 * (xz - wy) * s[0], 0,
		2 * (xy - wz) * s[1], (1 - 2*(xx+zz)) * s[1], 2 * (yz + wx) * s[1], 0,
		2 * (xz + wy) * s[2], 2 * (yz - wx) * s[2], (1 - 2*(xx+yy)) * s[2], 0,
		t[0], t[1], t[2], 1,
	}
}

func (a mat4) point(p [3]float32) [3]float64 {
	x, y, z := float64(p[0]), float64(p[1]), float64(p[2])
	return [3]float64{
		a[0]*x + a[4]*y + a[8]*z + a[12],
		a[1]*x + a[5]*y + a[9]*z + a[13],
		a[2]*x + a[6]*y + a[10]*z + a[14],
	}
}

// normalMatrix returns the inverse transpose of the upper 3x3, row-major.
// Singular matrices fall back to the plain 3x3.
func (a mat4) normalMatrix() [9]float64 {
	m := [9]float64{
		a[0], a[4], a[8],
		a[1], a[5], a[9],
		a[2], a[6], a[10],
	}
	det := m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
	if math.Abs(det) < 1e-12 {
		return m
	}
	inv := 1 / det
	// transpose of the inverse == cofactor matrix / det
	return [9]float64{
		(m[4]*m[8] - m[5]*m[7]) * inv, -(m[3]*m[8] - m[5]*m[6]) * inv, (m[3]*m[7] - m[4]*m[6]) * inv,
		-(m[1]*m[8] - m[2]*m[7]) * inv, (m[0]*m[8] - m[2]*m[6]) * inv, -(m[0]*m[7] - m[1]*m[6]) * inv,
		(m[1]*m[5] - m[2]*m[4]) * inv, -(m[0]*m[5] - m[2]*m[3]) * inv, (m[0]*m[4] - m[1]*m[3]) * inv,
	}
}

func applyNormal(n [9]float64, v [3]float32) [3]float64 {
	x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
	out := [3]float64{
		n[0]*x + n[1]*y + n[2]*z,
		n[3]*x + n[4]*y + n[5]*z,
		n[6]*x + n[7]*y + n[8]*z,
	}
	l := math.Sqrt(out[0]*out[0] + out[1]*out[1] + out[2]*out[2])
	if l == 0 {
		return out
	}
	return [3]float64{out[0] / l, out[1] / l, out[2] / l}
}

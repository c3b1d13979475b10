package job

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	assert.Equal(t, 30, p[ParamSteps])
	assert.Equal(t, 5.0, p[ParamGuidanceScale])
	assert.Equal(t, 1234, p[ParamSeed])
	assert.Equal(t, 256, p[ParamOctreeResolution])
	assert.Equal(t, true, p[ParamRemoveBackground])
	assert.Equal(t, true, p[ParamRandomizeSeed])
	assert.Equal(t, 8000, p[ParamNumChunks])
}

func TestParams_GetFallsBackToDefaults(t *testing.T) {
	p := Params{ParamSteps: 10}

	assert.Equal(t, 10, p.Get(ParamSteps))
	assert.Equal(t, 1234, p.Get(ParamSeed))
	assert.Nil(t, p.Get("unknown"))
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"obj":   FormatOBJ,
		"OBJ":   FormatOBJ,
		"Obj":   FormatOBJ,
		" obj":  FormatGLB,
		"obj\n": FormatGLB,
		"glb":   FormatGLB,
		"":      FormatGLB,
		"stl":   FormatGLB,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseFormat(in), "input %q", in)
	}
}

func TestNewID_IsUUID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewID())
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t, "/api/download/abc/glb", DownloadURL("abc", FormatGLB))
	assert.Equal(t, "/api/download/abc/obj", DownloadURL("abc", FormatOBJ))
}

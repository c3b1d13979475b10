package job

import (
	"strings"

	uuid "github.com/google/uuid"
)

type Format string

const (
	FormatGLB Format = "glb"
	FormatOBJ Format = "obj"
)

type Status string

const (
	StatusCompleted Status = "completed"
)

// Parameter keys understood by the remote model.
const (
	ParamSteps            = "steps"
	ParamGuidanceScale    = "guidance_scale"
	ParamSeed             = "seed"
	ParamOctreeResolution = "octree_resolution"
	ParamRemoveBackground = "remove_background"
	ParamRandomizeSeed    = "randomize_seed"
	ParamNumChunks        = "num_chunks"
	ParamOutputFormat     = "output_format"
)

// Params is the flat parameter bag forwarded to the generator. Values are
// passed through without range checks.
type Params map[string]any

func DefaultParams() Params {
	return Params{
		ParamSteps:            30,
		ParamGuidanceScale:    5.0,
		ParamSeed:             1234,
		ParamOctreeResolution: 256,
		ParamRemoveBackground: true,
		ParamRandomizeSeed:    true,
		ParamNumChunks:        8000,
	}
}

// Get returns the value for key, falling back to the default bag.
func (p Params) Get(key string) any {
	if v, ok := p[key]; ok {
		return v
	}
	return DefaultParams()[key]
}

// ParseFormat maps a requested output format to a Format. The value is
// lower-cased but not trimmed; anything other than "obj" means GLB only.
func ParseFormat(raw string) Format {
	if strings.ToLower(raw) == string(FormatOBJ) {
		return FormatOBJ
	}
	return FormatGLB
}

func NewID() string {
	return uuid.New().String()
}

func DownloadURL(jobID string, f Format) string {
	return "/api/download/" + jobID + "/" + string(f)
}

// Result is the body returned by a completed generation.
type Result struct {
	JobID  string `json:"job_id"`
	Status Status `json:"status"`
	GLBURL string `json:"glb_url"`
	OBJURL string `json:"obj_url,omitempty"`
}

// Model describes one stored GLB. CreatedAt is unix seconds.
type Model struct {
	JobID     string  `json:"job_id"`
	GLBURL    string  `json:"glb_url"`
	CreatedAt float64 `json:"created_at"`
}

package storage

import (
	"context"
	"io"

	"github.com/fedutinova/meshgen/internal/job"
)

// Store is the filesystem-backed job store used by the HTTP layer and CLI.
type Store interface {
	Stage(ctx context.Context, jobID, filename string, content io.Reader) (string, error)
	StageWithExt(ctx context.Context, jobID, ext string, content io.Reader) (string, error)
	RemoveStaged(path string) error
	StoreGLB(ctx context.Context, jobID, srcPath string) (string, error)
	FindGLB(jobID string) (string, error)
	FindOBJ(jobID string) (string, error)
	ListModels() ([]job.Model, error)
	OutputDir() string
}

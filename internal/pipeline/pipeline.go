// Package pipeline runs one generation job end to end: remote generation,
// GLB storage and optional OBJ conversion.
package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/fedutinova/meshgen/internal/generator"
	"github.com/fedutinova/meshgen/internal/job"
	"github.com/fedutinova/meshgen/internal/mesh"
	"github.com/fedutinova/meshgen/internal/storage"
)

type Observer interface {
	ObserveConversion(err error)
}

type Pipeline struct {
	Store     storage.Store
	Generator generator.Generator
	// Observer is optional.
	Observer Observer
	// Convert defaults to mesh.Convert.
	Convert func(glbPath, outputRoot string) (string, error)
}

// Output carries the public result plus the local artifact paths.
type Output struct {
	Result  job.Result
	GLBPath string
	OBJPath string
}

// Run generates a mesh for imagePath under jobID. The caller owns the staged
// image. A failed conversion leaves the stored GLB in place.
func (p *Pipeline) Run(ctx context.Context, jobID, imagePath string, params job.Params, format job.Format) (Output, error) {
	artifact, err := p.Generator.Generate(ctx, imagePath, params)
	if err != nil {
		return Output{}, err
	}

	glbPath, err := p.Store.StoreGLB(ctx, jobID, artifact)
	if err != nil {
		return Output{}, err
	}
	if err := os.Remove(artifact); err != nil {
		slog.Debug("failed to remove generator artifact", "path", artifact, "err", err)
	}

	out := Output{
		Result: job.Result{
			JobID:  jobID,
			Status: job.StatusCompleted,
			GLBURL: job.DownloadURL(jobID, job.FormatGLB),
		},
		GLBPath: glbPath,
	}

	if format == job.FormatOBJ {
		convert := p.Convert
		if convert == nil {
			convert = mesh.Convert
		}
		objPath, err := convert(glbPath, p.Store.OutputDir())
		if p.Observer != nil {
			p.Observer.ObserveConversion(err)
		}
		if err != nil {
			return Output{}, err
		}
		out.OBJPath = objPath
		out.Result.OBJURL = job.DownloadURL(jobID, job.FormatOBJ)
	}

	slog.Info("generation completed", "job_id", jobID, "format", format)
	return out, nil
}

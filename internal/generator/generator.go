// Package generator turns a local image into a GLB mesh by calling a hosted
// image-to-3D model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fedutinova/meshgen/internal/job"
)

// ErrGeneration wraps every failure of a remote generation. Callers do not
// distinguish transport, auth or remote-side causes.
var ErrGeneration = errors.New("generation failed")

// Generator produces a GLB file from a local image and returns its path.
type Generator interface {
	Generate(ctx context.Context, imagePath string, params job.Params) (string, error)
}

func wrap(step string, err error) error {
	if errors.Is(err, ErrGeneration) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrGeneration, step, err)
}

// Recorder receives the outcome of each generation.
type Recorder interface {
	ObserveGeneration(d time.Duration, err error)
}

type instrumented struct {
	next Generator
	rec  Recorder
}

// Instrument reports duration and outcome of every Generate call to rec.
func Instrument(g Generator, rec Recorder) Generator {
	if rec == nil {
		return g
	}
	return &instrumented{next: g, rec: rec}
}

func (i *instrumented) Generate(ctx context.Context, imagePath string, params job.Params) (string, error) {
	start := time.Now()
	path, err := i.next.Generate(ctx, imagePath, params)
	i.rec.ObserveGeneration(time.Since(start), err)
	if err != nil {
		slog.Warn("generation failed", "image", imagePath, "duration", time.Since(start), "err", err)
	}
	return path, err
}

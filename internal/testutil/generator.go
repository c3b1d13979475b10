package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fedutinova/meshgen/internal/job"
)

// GenerateCall records one invocation of FakeGenerator.
type GenerateCall struct {
	ImagePath   string
	ImageExists bool
	Params      job.Params
}

// FakeGenerator stands in for the remote model. It writes the triangle
// fixture into its own directory unless Err is set.
type FakeGenerator struct {
	Dir string
	Err error

	mu    sync.Mutex
	calls []GenerateCall
}

func NewFakeGenerator(t testing.TB) *FakeGenerator {
	t.Helper()
	return &FakeGenerator{Dir: t.TempDir()}
}

func (g *FakeGenerator) Generate(ctx context.Context, imagePath string, params job.Params) (string, error) {
	_, statErr := os.Stat(imagePath)

	g.mu.Lock()
	g.calls = append(g.calls, GenerateCall{ImagePath: imagePath, ImageExists: statErr == nil, Params: params})
	n := len(g.calls)
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.Err != nil {
		return "", g.Err
	}

	path := filepath.Join(g.Dir, fmt.Sprintf("artifact_%d.glb", n))
	if err := saveTriangle(path); err != nil {
		return "", err
	}
	return path, nil
}

func (g *FakeGenerator) Calls() []GenerateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerateCall(nil), g.calls...)
}

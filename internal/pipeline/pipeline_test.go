package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedutinova/meshgen/internal/job"
	"github.com/fedutinova/meshgen/internal/storage"
	"github.com/fedutinova/meshgen/internal/testutil"
)

type conversions []error

func (c *conversions) ObserveConversion(err error) { *c = append(*c, err) }

func newPipeline(t *testing.T) (*Pipeline, *storage.Layout, *testutil.FakeGenerator) {
	t.Helper()
	root := t.TempDir()
	layout, err := storage.NewLayout(filepath.Join(root, "uploads"), filepath.Join(root, "output"))
	require.NoError(t, err)
	gen := testutil.NewFakeGenerator(t)
	return &Pipeline{Store: layout, Generator: gen}, layout, gen
}

func stagedImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cat.jpg")
	require.NoError(t, os.WriteFile(path, testutil.CreateTestJPEG(), 0644))
	return path
}

func TestRun_GLBOnly(t *testing.T) {
	p, layout, gen := newPipeline(t)

	out, err := p.Run(context.Background(), "job1", stagedImage(t), job.DefaultParams(), job.FormatGLB)
	require.NoError(t, err)

	assert.Equal(t, job.Result{
		JobID:  "job1",
		Status: job.StatusCompleted,
		GLBURL: "/api/download/job1/glb",
	}, out.Result)
	assert.Equal(t, layout.GLBPath("job1"), out.GLBPath)
	assert.FileExists(t, out.GLBPath)
	assert.Empty(t, out.OBJPath)
	assert.NoDirExists(t, layout.OBJDir("job1"))

	entries, err := os.ReadDir(gen.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "generator artifact is removed after copy")
}

func TestRun_OBJ(t *testing.T) {
	p, layout, _ := newPipeline(t)
	var seen conversions
	p.Observer = &seen

	out, err := p.Run(context.Background(), "job2", stagedImage(t), job.DefaultParams(), job.FormatOBJ)
	require.NoError(t, err)

	assert.Equal(t, "/api/download/job2/obj", out.Result.OBJURL)
	assert.Equal(t, layout.OBJPath("job2"), out.OBJPath)
	assert.FileExists(t, out.OBJPath)
	require.Len(t, seen, 1)
	assert.NoError(t, seen[0])
}

func TestRun_GenerationError(t *testing.T) {
	p, layout, gen := newPipeline(t)
	gen.Err = errors.New("remote down")

	_, err := p.Run(context.Background(), "job3", stagedImage(t), job.DefaultParams(), job.FormatOBJ)
	assert.EqualError(t, err, "remote down")
	assert.NoFileExists(t, layout.GLBPath("job3"))
}

func TestRun_ConversionErrorKeepsGLB(t *testing.T) {
	p, layout, _ := newPipeline(t)
	p.Convert = func(string, string) (string, error) { return "", errors.New("broken scene") }

	_, err := p.Run(context.Background(), "job4", stagedImage(t), job.DefaultParams(), job.FormatOBJ)
	assert.EqualError(t, err, "broken scene")
	assert.FileExists(t, layout.GLBPath("job4"))
}

func TestRun_CanceledContext(t *testing.T) {
	p, _, _ := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "job5", stagedImage(t), job.DefaultParams(), job.FormatGLB)
	assert.ErrorIs(t, err, context.Canceled)
}

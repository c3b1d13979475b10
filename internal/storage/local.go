package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fedutinova/meshgen/internal/common"
	"github.com/fedutinova/meshgen/internal/job"
)

// Layout owns the staging and output directory trees. All paths are derived
// from job IDs; it never deletes anything it was not asked to.
type Layout struct {
	uploadDir string
	outputDir string
}

var _ Store = (*Layout)(nil)

func NewLayout(uploadDir, outputDir string) (*Layout, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &Layout{
		uploadDir: uploadDir,
		outputDir: outputDir,
	}, nil
}

func (l *Layout) UploadDir() string { return l.uploadDir }
func (l *Layout) OutputDir() string { return l.outputDir }

// CheckJobID rejects IDs that could escape the output tree.
func CheckJobID(jobID string) error {
	if jobID == "" || jobID == "." || jobID == ".." ||
		strings.ContainsAny(jobID, `/\`) || strings.Contains(jobID, "..") {
		return common.ErrInvalidJobID
	}
	return nil
}

func (l *Layout) StagedInputPath(jobID, filename string) string {
	return filepath.Join(l.uploadDir, jobID+"_"+filename)
}

func (l *Layout) GLBPath(jobID string) string {
	return filepath.Join(l.outputDir, jobID+".glb")
}

func (l *Layout) OBJDir(jobID string) string {
	return filepath.Join(l.outputDir, jobID)
}

func (l *Layout) OBJPath(jobID string) string {
	return filepath.Join(l.OBJDir(jobID), jobID+".obj")
}

// Stage writes an uploaded image into the upload area as
// <job_id>_<filename>. filename must already be sanitized; an empty filename
// stages the file as the bare job ID.
func (l *Layout) Stage(ctx context.Context, jobID, filename string, content io.Reader) (string, error) {
	if err := CheckJobID(jobID); err != nil {
		return "", err
	}
	path := filepath.Join(l.uploadDir, jobID)
	if filename != "" {
		path = l.StagedInputPath(jobID, filename)
	}
	return l.stage(ctx, jobID, path, content)
}

// StageWithExt writes a downloaded image as <job_id>.<ext>.
func (l *Layout) StageWithExt(ctx context.Context, jobID, ext string, content io.Reader) (string, error) {
	if err := CheckJobID(jobID); err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || strings.ContainsAny(ext, `/\`) || strings.Contains(ext, "..") {
		return "", fmt.Errorf("invalid extension %q: %w", ext, common.ErrBadRequest)
	}
	return l.stage(ctx, jobID, filepath.Join(l.uploadDir, jobID+"."+ext), content)
}

func (l *Layout) stage(ctx context.Context, jobID, path string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create staged file: %w", err)
	}
	n, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write staged file: %w", err)
	}

	slog.Debug("staged input", "job_id", jobID, "path", path, "size", n)
	return path, nil
}

// RemoveStaged deletes a staged file. A missing file is not an error.
func (l *Layout) RemoveStaged(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove staged file: %w", err)
	}
	return nil
}

// StoreGLB copies a generated artifact to <output>/<job_id>.glb.
func (l *Layout) StoreGLB(ctx context.Context, jobID, srcPath string) (string, error) {
	if err := CheckJobID(jobID); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open generated artifact: %w", err)
	}
	defer src.Close()

	dstPath := l.GLBPath(jobID)
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to copy generated artifact: %w", err)
	}

	slog.Info("stored glb", "job_id", jobID, "path", dstPath, "size", n)
	return dstPath, nil
}

// FindGLB returns the stored GLB of jobID. A malformed ID yields
// common.ErrInvalidJobID.
func (l *Layout) FindGLB(jobID string) (string, error) {
	if err := CheckJobID(jobID); err != nil {
		return "", err
	}
	path := l.GLBPath(jobID)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", common.WrapNotFound("glb "+jobID, err)
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return "", common.ErrFileNotFound
	}
	return path, nil
}

// FindOBJ returns <job_id>.obj from the job's output subdirectory, or else
// the first *.obj file found there.
func (l *Layout) FindOBJ(jobID string) (string, error) {
	if err := CheckJobID(jobID); err != nil {
		return "", err
	}
	if info, err := os.Stat(l.OBJPath(jobID)); err == nil && !info.IsDir() {
		return l.OBJPath(jobID), nil
	}
	entries, err := os.ReadDir(l.OBJDir(jobID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", common.WrapNotFound("obj "+jobID, err)
		}
		return "", fmt.Errorf("failed to read job directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".obj") {
			return filepath.Join(l.OBJDir(jobID), e.Name()), nil
		}
	}
	return "", common.ErrFileNotFound
}

// ListModels enumerates stored GLBs, newest first.
func (l *Layout) ListModels() ([]job.Model, error) {
	entries, err := os.ReadDir(l.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	models := make([]job.Model, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".glb") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		jobID := strings.TrimSuffix(e.Name(), ".glb")
		models = append(models, job.Model{
			JobID:     jobID,
			GLBURL:    job.DownloadURL(jobID, job.FormatGLB),
			CreatedAt: float64(info.ModTime().UnixNano()) / 1e9,
		})
	}

	sort.SliceStable(models, func(i, j int) bool {
		if models[i].CreatedAt != models[j].CreatedAt {
			return models[i].CreatedAt > models[j].CreatedAt
		}
		return models[i].JobID < models[j].JobID
	})
	return models, nil
}

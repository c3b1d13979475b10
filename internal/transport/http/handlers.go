package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/fedutinova/meshgen/internal/common"
	"github.com/fedutinova/meshgen/internal/config"
	"github.com/fedutinova/meshgen/internal/generator"
	"github.com/fedutinova/meshgen/internal/job"
	"github.com/fedutinova/meshgen/internal/pipeline"
	"github.com/fedutinova/meshgen/internal/storage"
	"github.com/fedutinova/meshgen/internal/validation"
)

// FailureMessage accompanies every 500 from the generate endpoints.
const FailureMessage = "Generation failed. The Hugging Face Space may be overloaded."

const (
	maxMemory    = 32 << 20
	routeTimeout = 60 * time.Second
)

type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Observer receives pipeline outcomes the generator does not see.
type Observer interface {
	ObserveConversion(err error)
	ObserveImageFetch(err error)
}

type nopObserver struct{}

func (nopObserver) ObserveConversion(error) {}
func (nopObserver) ObserveImageFetch(error) {}

type Handlers struct {
	Store     storage.Store
	Generator generator.Generator
	Fetcher   ImageFetcher
	Observer  Observer
	Config    config.Config
	// Convert overrides the OBJ converter, mainly for tests.
	Convert func(glbPath, outputRoot string) (string, error)
}

func (h *Handlers) Routers(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(routeTimeout))

		r.Get("/", h.index)
		r.Get("/health", h.Health)
		r.Get("/api/download/{job_id}/{format}", h.download)
		r.Get("/api/models", h.listModels)
	})

	// generation blocks for the whole remote round trip and is not
	// time-limited here
	r.Group(func(r chi.Router) {
		if h.Config.RateLimitRPM > 0 {
			r.Use(httprate.LimitByIP(h.Config.RateLimitRPM, time.Minute))
		}

		r.Post("/api/generate", h.generate)
		r.Post("/api/generate/url", h.generateFromURL)
	})
}

type errorBody struct {
	Error       string `json:"error"`
	Message     string `json:"message,omitempty"`
	FallbackURL string `json:"fallback_url,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (h *Handlers) writeFailure(w http.ResponseWriter, jobID string, err error) {
	slog.Error("generation request failed", "job_id", jobID, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error:       err.Error(),
		Message:     FailureMessage,
		FallbackURL: h.Config.FallbackURL(),
	})
}

func (h *Handlers) observer() Observer {
	if h.Observer == nil {
		return nopObserver{}
	}
	return h.Observer
}

func (h *Handlers) generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", h.Config.MaxUploadBytes))
			return
		}
		slog.Debug("unreadable multipart form", "err", err)
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var fh *multipart.FileHeader
	if files := r.MultipartForm.File["file"]; len(files) > 0 {
		fh = files[0]
	} else if _, ok := r.MultipartForm.Value["file"]; ok {
		// a file part sent with an empty filename is parsed as a plain value
		fh = &multipart.FileHeader{}
	}
	if verr := validation.ValidateUpload(fh); verr != nil {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}

	jobID := job.NewID()
	src, err := fh.Open()
	if err != nil {
		h.writeFailure(w, jobID, common.WrapInternal("open upload", err))
		return
	}
	staged, err := h.Store.Stage(r.Context(), jobID, storage.SecureFilename(fh.Filename), src)
	src.Close()
	defer h.removeStaged(jobID, staged)
	if err != nil {
		h.writeFailure(w, jobID, err)
		return
	}

	slog.Info("generation requested", "job_id", jobID, "source", "upload", "filename", fh.Filename, "size", fh.Size)

	params, format, err := formParams(r.MultipartForm.Value)
	if err != nil {
		h.writeFailure(w, jobID, err)
		return
	}

	res, err := h.run(r.Context(), jobID, staged, params, format)
	if err != nil {
		h.writeFailure(w, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) generateFromURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxUploadBytes)

	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		slog.Debug("invalid json body", "err", err)
		body = nil
	}
	imageURL, _ := body["image_url"].(string)
	if verr := validation.ValidateURLRequest(validation.URLRequest{ImageURL: imageURL}); verr != nil {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}

	jobID := job.NewID()
	slog.Info("generation requested", "job_id", jobID, "source", "url", "url", imageURL)

	data, err := h.Fetcher.Fetch(r.Context(), imageURL)
	h.observer().ObserveImageFetch(err)
	if err != nil {
		h.writeFailure(w, jobID, err)
		return
	}

	staged, err := h.Store.StageWithExt(r.Context(), jobID, validation.ExtensionFromURL(imageURL), bytes.NewReader(data))
	defer h.removeStaged(jobID, staged)
	if err != nil {
		h.writeFailure(w, jobID, err)
		return
	}

	params, format, err := jsonParams(body)
	if err != nil {
		h.writeFailure(w, jobID, err)
		return
	}
	res, err := h.run(r.Context(), jobID, staged, params, format)
	if err != nil {
		h.writeFailure(w, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) removeStaged(jobID, path string) {
	if err := h.Store.RemoveStaged(path); err != nil {
		slog.Warn("failed to remove staged input", "job_id", jobID, "path", path, "err", err)
	}
}

func (h *Handlers) run(ctx context.Context, jobID, imagePath string, params job.Params, format job.Format) (job.Result, error) {
	p := &pipeline.Pipeline{
		Store:     h.Store,
		Generator: h.Generator,
		Observer:  h.observer(),
		Convert:   h.Convert,
	}
	out, err := p.Run(ctx, jobID, imagePath, params, format)
	if err != nil {
		return job.Result{}, err
	}
	return out.Result, nil
}

// formParams coerces multipart form values. A present but unparsable value
// is an error. Numbers tolerate surrounding whitespace, flags and the
// output format do not.
func formParams(values map[string][]string) (job.Params, job.Format, error) {
	params := job.DefaultParams()
	get := func(key string) (string, bool) {
		v, ok := values[key]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}

	for _, key := range []string{job.ParamSteps, job.ParamSeed, job.ParamOctreeResolution, job.ParamNumChunks} {
		if raw, ok := get(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, "", fmt.Errorf("invalid literal for %s: %q", key, raw)
			}
			params[key] = n
		}
	}

	if raw, ok := get(job.ParamGuidanceScale); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, "", fmt.Errorf("could not convert %s to float: %q", job.ParamGuidanceScale, raw)
		}
		params[job.ParamGuidanceScale] = f
	}

	for _, key := range []string{job.ParamRemoveBackground, job.ParamRandomizeSeed} {
		if raw, ok := get(key); ok {
			params[key] = strings.ToLower(raw) == "true"
		}
	}

	format := job.FormatGLB
	if raw, ok := get(job.ParamOutputFormat); ok {
		format = job.ParseFormat(raw)
	}
	return params, format, nil
}

// jsonParams passes JSON values through untouched. octree_resolution and
// num_chunks are not read from JSON bodies. A present output_format that is
// not a string is an error.
func jsonParams(body map[string]any) (job.Params, job.Format, error) {
	params := job.DefaultParams()
	for _, key := range []string{
		job.ParamSteps,
		job.ParamGuidanceScale,
		job.ParamSeed,
		job.ParamRemoveBackground,
		job.ParamRandomizeSeed,
	} {
		if v, ok := body[key]; ok {
			params[key] = v
		}
	}

	format := job.FormatGLB
	if v, ok := body[job.ParamOutputFormat]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, "", fmt.Errorf("invalid %s: expected a string, got %s", job.ParamOutputFormat, jsonKind(v))
		}
		format = job.ParseFormat(s)
	}
	return params, format, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func (h *Handlers) download(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	format := chi.URLParam(r, "format")

	var (
		path string
		err  error
	)
	switch job.Format(format) {
	case job.FormatGLB:
		path, err = h.Store.FindGLB(jobID)
	case job.FormatOBJ:
		path, err = h.Store.FindOBJ(jobID)
	default:
		err = common.ErrFileNotFound
	}
	if err != nil {
		switch {
		case common.IsBadRequest(err):
			// malformed IDs are answered like unknown ones
			slog.Debug("rejected download job id", "job_id", jobID, "err", err)
			writeError(w, http.StatusNotFound, "File not found")
			return
		case common.IsNotFound(err):
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		slog.Error("failed to locate artifact", "job_id", jobID, "format", format, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	serveAttachment(w, r, path, jobID+"."+format)
}

func serveAttachment(w http.ResponseWriter, r *http.Request, path, name string) {
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ctype := "application/octet-stream"
	if m, err := mimetype.DetectReader(f); err == nil {
		ctype = m.String()
	}
	if _, err := f.Seek(0, 0); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handlers) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.Store.ListModels()
	if err != nil {
		slog.Error("failed to list models", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models": models,
		"total":  len(models),
	})
}

func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "Hugging Face 3D Generation Server",
		"description": "Convert images to 3D models using Hunyuan3D-2.1",
		"version":     "1.0.0",
		"endpoints": map[string]string{
			"GET /health":                         "Health check",
			"POST /api/generate":                  "Generate 3D model from uploaded image",
			"POST /api/generate/url":              "Generate 3D model from image URL",
			"GET /api/download/<job_id>/<format>": "Download generated model (glb/obj)",
			"GET /api/models":                     "List all generated models",
			"GET /metrics":                        "Prometheus metrics",
		},
		"model": map[string]string{
			"name":              "Hunyuan3D-2.1",
			"provider":          "Tencent",
			"huggingface_space": h.Config.FallbackURL(),
		},
	})
}

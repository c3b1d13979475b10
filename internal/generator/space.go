package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fedutinova/meshgen/internal/job"
)

// SpaceOptions configures a SpaceClient.
type SpaceOptions struct {
	// Space is the "owner/name" id of the hosted model.
	Space string
	// SpaceURL skips host resolution when set.
	SpaceURL   string
	APIName    string
	HubAPIBase string
	Token      string
	// CacheDir receives downloaded artifacts.
	CacheDir   string
	HTTPClient *http.Client
}

// SpaceClient calls a Gradio endpoint of a Hugging Face Space. Each Generate
// opens a fresh session; nothing is shared between calls.
type SpaceClient struct {
	httpClient *http.Client
	space      string
	spaceURL   string
	apiName    string
	hubAPI     string
	token      string
	cacheDir   string
}

var _ Generator = (*SpaceClient)(nil)

func NewSpaceClient(opts SpaceOptions) (*SpaceClient, error) {
	if strings.TrimSpace(opts.Space) == "" && strings.TrimSpace(opts.SpaceURL) == "" {
		return nil, errors.New("generator: space id or url required")
	}
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "meshgen")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("generator: create cache dir: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		// no timeout: the remote call blocks until the model finishes
		client = &http.Client{}
	}
	apiName := opts.APIName
	if apiName == "" {
		apiName = "/predict"
	}
	if !strings.HasPrefix(apiName, "/") {
		apiName = "/" + apiName
	}
	hub := strings.TrimRight(opts.HubAPIBase, "/")
	if hub == "" {
		hub = "https://huggingface.co"
	}

	return &SpaceClient{
		httpClient: client,
		space:      strings.TrimSpace(opts.Space),
		spaceURL:   strings.TrimRight(opts.SpaceURL, "/"),
		apiName:    apiName,
		hubAPI:     hub,
		token:      strings.TrimSpace(opts.Token),
		cacheDir:   cacheDir,
	}, nil
}

// FallbackURL is the public page of the Space.
func (c *SpaceClient) FallbackURL() string {
	return "https://huggingface.co/spaces/" + c.space
}

func (c *SpaceClient) Generate(ctx context.Context, imagePath string, params job.Params) (string, error) {
	sess, err := c.connect(ctx)
	if err != nil {
		return "", wrap("connect", err)
	}

	serverPath, err := sess.upload(ctx, imagePath)
	if err != nil {
		return "", wrap("upload image", err)
	}

	eventID, err := sess.submit(ctx, buildPayload(serverPath, filepath.Base(imagePath), params))
	if err != nil {
		return "", wrap("submit", err)
	}

	output, err := sess.await(ctx, eventID)
	if err != nil {
		return "", wrap("predict", err)
	}
	if len(output) == 0 {
		return "", wrap("predict", errors.New("empty result"))
	}

	artifact, err := parseFileData(output[0])
	if err != nil {
		return "", wrap("parse result", err)
	}

	localPath, err := sess.download(ctx, artifact)
	if err != nil {
		return "", wrap("download result", err)
	}
	return localPath, nil
}

type session struct {
	c      *SpaceClient
	host   string
	prefix string
}

func (c *SpaceClient) connect(ctx context.Context) (*session, error) {
	host := c.spaceURL
	if host == "" {
		host = c.resolveHost(ctx)
	}

	var cfg struct {
		APIPrefix string `json:"api_prefix"`
		Version   string `json:"version"`
	}
	if err := c.getJSON(ctx, host+"/config", &cfg); err != nil {
		return nil, fmt.Errorf("load space config: %w", err)
	}

	prefix := strings.TrimRight(cfg.APIPrefix, "/")
	slog.Debug("space session opened", "space", c.space, "host", host, "api_prefix", prefix, "gradio_version", cfg.Version)
	return &session{c: c, host: host, prefix: prefix}, nil
}

// resolveHost asks the Hub where the Space is served, falling back to the
// conventional *.hf.space subdomain.
func (c *SpaceClient) resolveHost(ctx context.Context) string {
	var out struct {
		Host string `json:"host"`
	}
	err := c.getJSON(ctx, c.hubAPI+"/api/spaces/"+c.space+"/host", &out)
	if err == nil && out.Host != "" {
		return strings.TrimRight(out.Host, "/")
	}
	fallback := SubdomainHost(c.space)
	slog.Debug("space host lookup failed, using subdomain", "space", c.space, "host", fallback, "err", err)
	return fallback
}

// SubdomainHost derives https://owner-name.hf.space from "owner/name".
func SubdomainHost(space string) string {
	r := strings.NewReplacer("/", "-", ".", "-", "_", "-")
	return "https://" + r.Replace(strings.ToLower(space)) + ".hf.space"
}

func (c *SpaceClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// do sends req with the access token attached.
func (c *SpaceClient) do(req *http.Request) (*http.Response, error) {
	c.authorize(req)
	return c.send(req)
}

func (c *SpaceClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: http %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return resp, nil
}

func (c *SpaceClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *session) endpoint(p string) string {
	return s.host + s.prefix + p
}

func (s *session) upload(ctx context.Context, imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", filepath.Base(imagePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("/upload"), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var paths []string
	if err := json.NewDecoder(resp.Body).Decode(&paths); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if len(paths) == 0 || paths[0] == "" {
		return "", errors.New("upload returned no file path")
	}
	return paths[0], nil
}

// fileData mirrors Gradio's FileData payload.
type fileData struct {
	Path     string            `json:"path"`
	URL      string            `json:"url,omitempty"`
	OrigName string            `json:"orig_name,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// buildPayload lays out the positional inputs of the image-to-3D endpoint.
// The four multi-view slots are always empty.
func buildPayload(serverPath, origName string, params job.Params) []any {
	return []any{
		fileData{
			Path:     serverPath,
			OrigName: origName,
			Meta:     map[string]string{"_type": "gradio.FileData"},
		},
		nil, nil, nil, nil,
		params.Get(job.ParamSteps),
		params.Get(job.ParamGuidanceScale),
		params.Get(job.ParamSeed),
		params.Get(job.ParamOctreeResolution),
		params.Get(job.ParamRemoveBackground),
		params.Get(job.ParamNumChunks),
		params.Get(job.ParamRandomizeSeed),
	}
}

func (s *session) submit(ctx context.Context, data []any) (string, error) {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("/call"+s.c.apiName), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		EventID string `json:"event_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode call response: %w", err)
	}
	if out.EventID == "" {
		return "", errors.New("call returned no event id")
	}
	return out.EventID, nil
}

// await blocks on the result stream of eventID until the remote side
// completes or reports an error.
func (s *session) await(ctx context.Context, eventID string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("/call"+s.c.apiName+"/"+eventID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var (
		output    []json.RawMessage
		done      bool
		remote    error
		decodeErr error
	)
	err = readEvents(resp.Body, func(ev sseEvent) bool {
		switch ev.Name {
		case "complete":
			done = true
			decodeErr = json.Unmarshal([]byte(ev.Data), &output)
			return false
		case "error":
			done = true
			remote = remoteError(ev.Data)
			return false
		default:
			slog.Debug("space event", "event", ev.Name, "event_id", eventID)
			return true
		}
	})
	switch {
	case err != nil:
		return nil, err
	case remote != nil:
		return nil, remote
	case decodeErr != nil:
		return nil, fmt.Errorf("decode result: %w", decodeErr)
	case !done:
		return nil, errors.New("result stream closed before completion")
	}
	return output, nil
}

func remoteError(data string) error {
	data = strings.TrimSpace(data)
	if data == "" || data == "null" {
		return errors.New("remote reported an error")
	}
	var msg string
	if json.Unmarshal([]byte(data), &msg) == nil && msg != "" {
		return fmt.Errorf("remote error: %s", msg)
	}
	return fmt.Errorf("remote error: %s", data)
}

// parseFileData accepts either a FileData object or a bare path string.
func parseFileData(raw json.RawMessage) (fileData, error) {
	var fd fileData
	if err := json.Unmarshal(raw, &fd); err == nil && (fd.Path != "" || fd.URL != "") {
		return fd, nil
	}
	var p string
	if err := json.Unmarshal(raw, &p); err == nil && p != "" {
		return fileData{Path: p}, nil
	}
	return fileData{}, fmt.Errorf("unexpected result item: %s", truncate(string(raw), 200))
}

func (s *session) download(ctx context.Context, fd fileData) (string, error) {
	src := fd.URL
	if src == "" {
		src = s.endpoint("/file=" + fd.Path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	// the token only goes to the Space itself
	var resp *http.Response
	if s.sameOrigin(req.URL) {
		resp, err = s.c.do(req)
	} else {
		slog.Debug("downloading artifact from another host", "host", req.URL.Host)
		resp, err = s.c.send(req)
	}
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	out, err := os.CreateTemp(s.c.cacheDir, "*-"+strings.ReplaceAll(artifactName(fd), "*", "_"))
	if err != nil {
		return "", err
	}
	local := out.Name()
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(local)
		return "", err
	}

	mt, err := mimetype.DetectFile(local)
	if err != nil {
		_ = os.Remove(local)
		return "", err
	}
	if mt.Is("text/html") {
		_ = os.Remove(local)
		return "", fmt.Errorf("artifact %s is an html page", artifactName(fd))
	}
	slog.Info("space artifact downloaded", "path", local, "size", n, "detected_type", mt.String())
	return local, nil
}

func (s *session) sameOrigin(u *url.URL) bool {
	host, err := url.Parse(s.host)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, host.Scheme) && strings.EqualFold(u.Host, host.Host)
}

func artifactName(fd fileData) string {
	for _, candidate := range []string{fd.OrigName, fd.Path, urlPath(fd.URL)} {
		if candidate == "" {
			continue
		}
		name := path.Base(strings.ReplaceAll(candidate, `\`, "/"))
		if name != "." && name != "/" && name != "" {
			return name
		}
	}
	return "model.glb"
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

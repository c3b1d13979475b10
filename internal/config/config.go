package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultSpace   = "tencent/Hunyuan3D-2.1"
	DefaultAPIName = "/generation_all"
	DefaultHubAPI  = "https://huggingface.co"
)

type Config struct {
	HTTPAddr          string        `validate:"required"`
	Debug             bool
	HFToken           string
	Space             string        `validate:"required,contains=/"`
	SpaceURL          string        `validate:"omitempty,url"`
	APIName           string        `validate:"required,startswith=/"`
	HubAPIBase        string        `validate:"required,url"`
	UploadDir         string        `validate:"required"`
	OutputDir         string        `validate:"required"`
	CacheDir          string        `validate:"required"`
	MaxUploadBytes    int64         `validate:"gt=0"`
	ImageFetchTimeout time.Duration `validate:"gt=0"`
	RateLimitRPM      int           `validate:"gte=0"`
	WriteTimeout      time.Duration `validate:"gt=0"`
}

// FallbackURL is the public page of the configured Space.
func (c Config) FallbackURL() string {
	return "https://huggingface.co/spaces/" + c.Space
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
		slog.Warn("bad int env, using default", "key", key, "value", v)
	}
	return def
}

func mustInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
		slog.Warn("bad int env, using default", "key", key, "value", v)
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
		slog.Warn("bad bool env, using default", "key", key, "value", v)
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
		slog.Warn("bad duration env, using default", "key", key, "value", v)
	}
	return def
}

func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	currentDir, err := os.Getwd()
	if err != nil {
		slog.Debug("failed to get current directory", "error", err)
		return
	}

	// look in current directory and up to 3 parent directories
	searchDirs := []string{currentDir}
	for i := 0; i < 3; i++ {
		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			break
		}
		searchDirs = append(searchDirs, parent)
		currentDir = parent
	}

	loadedAny := false
	for _, dir := range searchDirs {
		for _, envFile := range envFiles {
			envPath := filepath.Join(dir, envFile)
			if _, err := os.Stat(envPath); err == nil {
				if err := godotenv.Load(envPath); err == nil {
					slog.Debug("loaded environment file", "path", envPath)
					loadedAny = true
				} else {
					slog.Debug("failed to load environment file", "path", envPath, "error", err)
				}
			}
		}
		if loadedAny {
			break
		}
	}

	if !loadedAny {
		slog.Debug("no .env files found, using system environment variables only")
	}
}

// baseDir is the directory of the running executable; data directories
// default to living next to it.
func baseDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func Load() Config {
	loadEnvFiles()
	return FromEnv()
}

// FromEnv builds a Config from the process environment without touching
// .env files.
func FromEnv() Config {
	root := baseDir()
	port := mustInt("PORT", 5000)
	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", fmt.Sprintf(":%d", port)),
		Debug:             getBool("DEBUG", getBool("FLASK_DEBUG", false)),
		HFToken:           getenv("HF_TOKEN", ""),
		Space:             getenv("HF_SPACE", DefaultSpace),
		SpaceURL:          strings.TrimRight(getenv("HF_SPACE_URL", ""), "/"),
		APIName:           getenv("HF_API_NAME", DefaultAPIName),
		HubAPIBase:        strings.TrimRight(getenv("HF_API_BASE", DefaultHubAPI), "/"),
		UploadDir:         getenv("UPLOAD_DIR", filepath.Join(root, "uploads")),
		OutputDir:         getenv("OUTPUT_DIR", filepath.Join(root, "output")),
		CacheDir:          getenv("GENERATOR_CACHE_DIR", filepath.Join(os.TempDir(), "meshgen")),
		MaxUploadBytes:    mustInt64("MAX_UPLOAD_BYTES", 16<<20),
		ImageFetchTimeout: mustDuration("IMAGE_FETCH_TIMEOUT", 30*time.Second),
		RateLimitRPM:      mustInt("RATE_LIMIT_RPM", 0),
		WriteTimeout:      mustDuration("WRITE_TIMEOUT", 15*time.Minute),
	}
}

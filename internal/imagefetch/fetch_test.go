package imagefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	}))
	defer ts.Close()

	data, err := New(Options{}).Fetch(context.Background(), ts.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG\r\n\x1a\nrest", string(data))
}

func TestFetch_RejectsHTMLPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><head><title>Sign in</title></head></html>"))
	}))
	defer ts.Close()

	_, err := New(Options{}).Fetch(context.Background(), ts.URL+"/cat.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "html")
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	_, err := New(Options{}).Fetch(context.Background(), ts.URL+"/missing.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_UnreachableHost(t *testing.T) {
	_, err := New(Options{Timeout: 2 * time.Second}).Fetch(context.Background(), "http://nonexistent.invalid/cat.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetch_BadURL(t *testing.T) {
	_, err := New(Options{}).Fetch(context.Background(), "://broken")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetch_MaxBytes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer ts.Close()

	_, err := New(Options{MaxBytes: 16}).Fetch(context.Background(), ts.URL)
	assert.ErrorIs(t, err, ErrFetch)

	data, err := New(Options{MaxBytes: 64}).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Len(t, data, 64)
}

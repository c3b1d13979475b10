package validation

import (
	"mime/multipart"
	"testing"
)

func TestAllowedFile(t *testing.T) {
	tests := []struct {
		filename string
		expected bool
	}{
		{"cat.png", true},
		{"cat.PNG", true},
		{"cat.jpg", true},
		{"cat.JpEg", true},
		{"cat.webp", true},
		{"archive.tar.png", true},
		{"cat.gif", false},
		{"notes.txt", false},
		{"png", false},
		{"cat.", false},
		{"", false},
	}

	for _, test := range tests {
		if got := AllowedFile(test.filename); got != test.expected {
			t.Errorf("AllowedFile(%q) = %v, want %v", test.filename, got, test.expected)
		}
	}
}

func TestValidateUpload(t *testing.T) {
	if err := ValidateUpload(nil); err == nil || err.Message != "No file provided" {
		t.Fatalf("expected missing file error, got %v", err)
	}
	if err := ValidateUpload(&multipart.FileHeader{}); err == nil || err.Message != "No file selected" {
		t.Fatalf("expected empty filename error, got %v", err)
	}
	err := ValidateUpload(&multipart.FileHeader{Filename: "anim.gif"})
	if err == nil {
		t.Fatal("expected extension error")
	}
	if want := "File type not allowed. Allowed: {png, jpg, jpeg, webp}"; err.Message != want {
		t.Fatalf("expected %q, got %q", want, err.Message)
	}
	if err := ValidateUpload(&multipart.FileHeader{Filename: "photo.jpeg"}); err != nil {
		t.Fatalf("expected valid upload, got %v", err)
	}
}

func TestValidateURLRequest(t *testing.T) {
	if err := ValidateURLRequest(URLRequest{}); err == nil {
		t.Fatal("expected error for empty image_url")
	}
	if err := ValidateURLRequest(URLRequest{ImageURL: "https://example.com/a.png"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtensionFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://example.com/cat.png", "png"},
		{"https://example.com/cat.PNG", "png"},
		{"https://example.com/cat.jpeg?size=large", "jpeg"},
		{"https://example.com/cat.webp?x=1.2", "jpg"},
		{"https://example.com/cat.webpx", "webp"},
		{"https://example.com/cat.gif", "jpg"},
		{"https://example.com/image", "jpg"},
		{"no-dots-at-all", "jpg"},
	}

	for _, test := range tests {
		if got := ExtensionFromURL(test.url); got != test.expected {
			t.Errorf("ExtensionFromURL(%q) = %q, want %q", test.url, got, test.expected)
		}
	}
}

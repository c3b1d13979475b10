package validation

import (
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fedutinova/meshgen/internal/common"
)

// AllowedExtensions lists accepted image extensions, in display order.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "webp"}

const DefaultURLExtension = "jpg"

var validate = validator.New()

func IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// AllowedFile reports whether filename carries an allowed image extension.
func AllowedFile(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	return IsAllowedExtension(filename[i+1:])
}

// AllowedList renders the allow-list for error messages.
func AllowedList() string {
	return "{" + strings.Join(AllowedExtensions, ", ") + "}"
}

// ValidateUpload checks the multipart file part of a generate request. The
// messages are returned verbatim to clients.
func ValidateUpload(fh *multipart.FileHeader) *common.ValidationError {
	if fh == nil {
		return &common.ValidationError{Field: "file", Message: "No file provided"}
	}
	if fh.Filename == "" {
		return &common.ValidationError{Field: "file", Message: "No file selected"}
	}
	if !AllowedFile(fh.Filename) {
		return &common.ValidationError{
			Field:   "file",
			Message: "File type not allowed. Allowed: " + AllowedList(),
		}
	}
	return nil
}

// URLRequest is the required part of a generate-from-URL body.
type URLRequest struct {
	ImageURL string `json:"image_url" validate:"required"`
}

func ValidateURLRequest(req URLRequest) *common.ValidationError {
	if err := validate.Struct(req); err != nil {
		return &common.ValidationError{Field: "image_url", Message: "image_url is required"}
	}
	return nil
}

// ExtensionFromURL takes the text after the last '.', drops any query,
// keeps at most four characters and falls back to jpg when the result is
// not an allowed image extension.
func ExtensionFromURL(rawURL string) string {
	ext := rawURL
	if i := strings.LastIndex(rawURL, "."); i >= 0 {
		ext = rawURL[i+1:]
	}
	if i := strings.Index(ext, "?"); i >= 0 {
		ext = ext[:i]
	}
	if len(ext) > 4 {
		ext = ext[:4]
	}
	ext = strings.ToLower(ext)
	if !IsAllowedExtension(ext) {
		return DefaultURLExtension
	}
	return ext
}

package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/storekeep/pkg/sanitizer"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"User@Example.COM":       "user@example.com",
		"  alice@x.com  ":        "alice@x.com",
		"first..last@example.io": "first.last@example.io",
		".leading@example.io":    "leading@example.io",
		"not-an-email":           "not-an-email",
	}

	for input, want := range cases {
		assert.Equal(t, want, sanitizer.NormalizeEmail(input), input)
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"report.pdf":            "report.pdf",
		"../../../etc/passwd":   "passwd",
		"C:\\Windows\\file.txt": "file.txt",
		"dir/nested/photo.jpg":  "photo.jpg",
		"":                      "unnamed",
		"..":                    "unnamed",
		"/":                     "unnamed",
	}

	for input, want := range cases {
		assert.Equal(t, want, sanitizer.SanitizeFilename(input), input)
	}
}

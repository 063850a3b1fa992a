package files

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind buckets files by extension for type-scoped listings.
type Kind string

const (
	KindDocument Kind = "document"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindOther    Kind = "other"
)

// ParseKind returns the Kind matching s, or "" if s names no known kind.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindDocument, KindImage, KindVideo, KindAudio, KindOther:
		return Kind(s)
	}
	return ""
}

var extensionKinds = map[string]Kind{
	"pdf": KindDocument, "doc": KindDocument, "docx": KindDocument,
	"txt": KindDocument, "xls": KindDocument, "xlsx": KindDocument,
	"csv": KindDocument, "rtf": KindDocument, "ods": KindDocument,
	"ppt": KindDocument, "odp": KindDocument, "md": KindDocument,
	"html": KindDocument, "htm": KindDocument, "epub": KindDocument,
	"pages": KindDocument, "fig": KindDocument, "psd": KindDocument,
	"ai": KindDocument, "indd": KindDocument, "xd": KindDocument,
	"sketch": KindDocument, "afdesign": KindDocument, "afphoto": KindDocument,

	"jpg": KindImage, "jpeg": KindImage, "png": KindImage,
	"gif": KindImage, "bmp": KindImage, "svg": KindImage, "webp": KindImage,

	"mp4": KindVideo, "avi": KindVideo, "mov": KindVideo,
	"mkv": KindVideo, "webm": KindVideo,

	"mp3": KindAudio, "wav": KindAudio, "ogg": KindAudio, "flac": KindAudio,
}

// ClassifyName splits a file name into its kind and lowercase extension.
func ClassifyName(name string) (Kind, string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return KindOther, ""
	}
	if kind, ok := extensionKinds[ext]; ok {
		return kind, ext
	}
	return KindOther, ext
}

// FileRecord is the catalog entry for one stored blob.
type FileRecord struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Name       string    `json:"name"`
	Kind       Kind      `json:"kind"`
	Extension  string    `json:"extension,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	StorageKey string    `json:"-"`
	SharedWith []string  `json:"shared_with"`
	CreatedAt  time.Time `json:"created_at"`
}

// SharedWithEmail reports whether the email is on the share list.
func (f *FileRecord) SharedWithEmail(email string) bool {
	for _, e := range f.SharedWith {
		if e == email {
			return true
		}
	}
	return false
}

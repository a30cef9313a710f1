// Package storage keeps uploaded evidence files in the object store and
// describes them for resource records.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/models"
)

// ObjectStore is the hosted object store
type ObjectStore interface {
	Upload(ctx context.Context, key, mimeType string, body io.Reader) (publicURL string, err error)
	Delete(ctx context.Context, key, mimeType string) error
}

// Kind is the preview family of a stored file
type Kind string

// Preview kinds inferred from the MIME type
const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindPDF      Kind = "pdf"
	KindDownload Kind = "download"
)

// ErrEmptyFile is returned when an upload has no content
var ErrEmptyFile = errors.New("el archivo está vacío")

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// KindFromMIME picks the preview family for a MIME type. Anything that is not
// an image, video, audio or PDF is offered as a download.
func KindFromMIME(mimeType string) Kind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio
	case mimeType == "application/pdf":
		return KindPDF
	}
	return KindDownload
}

// SanitizeName replaces every character outside letters, digits, '.', '-'
// and '_' with '_'.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "archivo"
	}
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// ObjectKey builds the storage key folder/<unix millis>_<sanitized name>
func ObjectKey(folder, name string, now time.Time) string {
	folder = strings.Trim(folder, "/")
	key := fmt.Sprintf("%d_%s", now.UnixMilli(), SanitizeName(name))
	if folder == "" {
		return key
	}
	return folder + "/" + key
}

// Uploader stores files and returns the descriptor kept on the resource
type Uploader struct {
	Store         ObjectStore
	DefaultFolder string
	Now           func() time.Time
}

// NewUploader returns an Uploader writing to store under defaultFolder
func NewUploader(store ObjectStore, defaultFolder string) *Uploader {
	return &Uploader{Store: store, DefaultFolder: defaultFolder, Now: time.Now}
}

// Upload writes body to the object store and describes the stored object.
// The public URL is resolved once here and cached on the descriptor.
func (u *Uploader) Upload(ctx context.Context, folder, name, mimeType string, size int64, body io.Reader) (*models.StoredFile, error) {
	if size == 0 {
		return nil, ErrEmptyFile
	}
	if folder == "" {
		folder = u.DefaultFolder
	}
	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	key := ObjectKey(folder, name, now())

	publicURL, err := u.Store.Upload(ctx, key, mimeType, body)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", key, err)
	}
	zap.S().Infow("resource file uploaded", "key", key, "mimeType", mimeType, "size", size)

	return &models.StoredFile{
		Path:         key,
		OriginalName: name,
		MIMEType:     mimeType,
		Size:         size,
		PublicURL:    publicURL,
	}, nil
}

// Remove deletes a previously uploaded file
func (u *Uploader) Remove(ctx context.Context, file *models.StoredFile) error {
	if file == nil || file.Path == "" {
		return nil
	}
	return u.Store.Delete(ctx, file.Path, file.MIMEType)
}

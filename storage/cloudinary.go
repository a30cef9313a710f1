package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/rvi-ar/casos-api/config"
)

// CloudinaryStore is the ObjectStore backed by Cloudinary
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStore builds the store from a cloudinary:// URL or from the
// individual credentials.
func NewCloudinaryStore(conf config.CloudinaryConfig) (*CloudinaryStore, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	switch {
	case conf.URL != "":
		cld, err = cloudinary.NewFromURL(conf.URL)
	case conf.CloudName != "" && conf.APIKey != "" && conf.APISecret != "":
		cld, err = cloudinary.NewFromParams(conf.CloudName, conf.APIKey, conf.APISecret)
	default:
		return nil, errors.New("cloudinary credentials are not configured")
	}
	if err != nil {
		return nil, fmt.Errorf("creating cloudinary client: %w", err)
	}
	return &CloudinaryStore{cld: cld}, nil
}

// Upload implements ObjectStore
func (c *CloudinaryStore) Upload(ctx context.Context, key, mimeType string, body io.Reader) (string, error) {
	resourceType := cloudinaryResourceType(mimeType)
	resp, err := c.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID:     publicID(key, resourceType),
		ResourceType: resourceType,
	})
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", errors.New(resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Delete implements ObjectStore
func (c *CloudinaryStore) Delete(ctx context.Context, key, mimeType string) error {
	resourceType := cloudinaryResourceType(mimeType)
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID(key, resourceType),
		ResourceType: resourceType,
	})
	if err != nil {
		return err
	}
	if resp.Error.Message != "" {
		return errors.New(resp.Error.Message)
	}
	return nil
}

// cloudinaryResourceType maps a MIME type onto Cloudinary's resource types.
// Audio is stored as video, which is how Cloudinary handles it.
func cloudinaryResourceType(mimeType string) string {
	switch KindFromMIME(mimeType) {
	case KindImage:
		return "image"
	case KindVideo, KindAudio:
		return "video"
	}
	return "raw"
}

// publicID drops the extension for image and video assets, Cloudinary keeps
// the format separately for those. Raw files keep it.
func publicID(key, resourceType string) string {
	if resourceType == "raw" {
		return key
	}
	slash := strings.LastIndex(key, "/")
	dot := strings.LastIndex(key, ".")
	if dot > slash+1 {
		return key[:dot]
	}
	return key
}

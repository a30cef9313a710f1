package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upload(ctx context.Context, key, mimeType string, body io.Reader) (string, error) {
	ret := m.Called(ctx, key, mimeType, body)
	return ret.String(0), ret.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, key, mimeType string) error {
	ret := m.Called(ctx, key, mimeType)
	return ret.Error(0)
}

type fakeStore struct {
	url      string
	err      error
	body     string
	uploaded []string
	deleted  []string
}

func (f *fakeStore) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.body = string(b)
	f.uploaded = append(f.uploaded, key)
	return f.url, nil
}

func (f *fakeStore) Delete(_ context.Context, key, _ string) error {
	f.deleted = append(f.deleted, key)
	return f.err
}

func TestKindFromMIME(t *testing.T) {
	cases := map[string]Kind{
		"image/png":        KindImage,
		"IMAGE/JPEG":       KindImage,
		"video/mp4":        KindVideo,
		"audio/mpeg":       KindAudio,
		"application/pdf":  KindPDF,
		"application/zip":  KindDownload,
		"text/plain":       KindDownload,
		"":                 KindDownload,
		"application/pdfx": KindDownload,
	}
	for mimeType, want := range cases {
		assert.Equal(t, want, KindFromMIME(mimeType), mimeType)
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "acta_judicial__1_.pdf", SanitizeName("acta judicial (1).pdf"))
	assert.Equal(t, "foto_de_Mar_a.jpg", SanitizeName("foto de María.jpg"))
	assert.Equal(t, "evil.sh", SanitizeName("../../evil.sh"))
	assert.Equal(t, "x.txt", SanitizeName(`C:\docs\x.txt`))
	assert.Equal(t, "archivo", SanitizeName(""))
}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "recursos/1700000000123_acta_1.pdf", ObjectKey("recursos", "acta 1.pdf", now))
	assert.Equal(t, "recursos/1700000000123_a.png", ObjectKey("/recursos/", "a.png", now))
	assert.Equal(t, "1700000000123_a.png", ObjectKey("", "a.png", now))
}

func TestUploader_Upload(t *testing.T) {
	store := &fakeStore{url: "https://cdn.example.org/recursos/1_acta.pdf"}
	u := NewUploader(store, "recursos")
	u.Now = func() time.Time { return time.UnixMilli(1) }

	file, err := u.Upload(context.Background(), "", "acta.pdf", "application/pdf", 4, strings.NewReader("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, &models.StoredFile{
		Path:         "recursos/1_acta.pdf",
		OriginalName: "acta.pdf",
		MIMEType:     "application/pdf",
		Size:         4,
		PublicURL:    "https://cdn.example.org/recursos/1_acta.pdf",
	}, file)
	assert.Equal(t, []string{"recursos/1_acta.pdf"}, store.uploaded)
	assert.Equal(t, "%PDF", store.body)
}

func TestUploader_UploadCustomFolder(t *testing.T) {
	store := &fakeStore{}
	u := NewUploader(store, "recursos")
	u.Now = func() time.Time { return time.UnixMilli(5) }

	file, err := u.Upload(context.Background(), "victimas", "f.jpg", "image/jpeg", 1, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "victimas/5_f.jpg", file.Path)
}

func TestUploader_UploadEmpty(t *testing.T) {
	store := &fakeStore{}
	u := NewUploader(store, "recursos")

	_, err := u.Upload(context.Background(), "", "f.jpg", "image/jpeg", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
	assert.Empty(t, store.uploaded)
}

func TestUploader_UploadStoreError(t *testing.T) {
	store := &mockStore{}
	store.On("Upload", mock.Anything, "recursos/1_f.jpg", "image/jpeg", mock.Anything).Return("", errors.New("quota exceeded"))
	u := NewUploader(store, "recursos")
	u.Now = func() time.Time { return time.UnixMilli(1) }

	_, err := u.Upload(context.Background(), "", "f.jpg", "image/jpeg", 1, strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	store.AssertExpectations(t)
}

func TestUploader_Remove(t *testing.T) {
	store := &fakeStore{}
	u := NewUploader(store, "recursos")

	require.NoError(t, u.Remove(context.Background(), nil))
	require.NoError(t, u.Remove(context.Background(), &models.StoredFile{Path: "recursos/1_a.png", MIMEType: "image/png"}))
	assert.Equal(t, []string{"recursos/1_a.png"}, store.deleted)
}

func TestNewCloudinaryStore_MissingCredentials(t *testing.T) {
	_, err := NewCloudinaryStore(config.CloudinaryConfig{})
	assert.Error(t, err)
}

func TestNewCloudinaryStore_FromParams(t *testing.T) {
	store, err := NewCloudinaryStore(config.CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestCloudinaryResourceType(t *testing.T) {
	assert.Equal(t, "image", cloudinaryResourceType("image/png"))
	assert.Equal(t, "video", cloudinaryResourceType("video/mp4"))
	assert.Equal(t, "video", cloudinaryResourceType("audio/ogg"))
	assert.Equal(t, "raw", cloudinaryResourceType("application/pdf"))
}

func TestPublicID(t *testing.T) {
	assert.Equal(t, "recursos/1_a", publicID("recursos/1_a.png", "image"))
	assert.Equal(t, "recursos/1_a.pdf", publicID("recursos/1_a.pdf", "raw"))
	assert.Equal(t, "recursos/.hidden", publicID("recursos/.hidden", "image"))
}

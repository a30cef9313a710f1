package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/models"
	"github.com/rvi-ar/casos-api/storage"
)

// MaxUploadSize bounds a single resource file
const MaxUploadSize = 50 << 20

// FileUploader stores an uploaded file
type FileUploader interface {
	Upload(ctx context.Context, folder, name, mimeType string, size int64, body io.Reader) (*models.StoredFile, error)
}

// Resource exported for testing purposes
type Resource struct {
	Uploader FileUploader
}

// UploadFileHandler stores the multipart field "archivo" and returns its
// descriptor, to be attached to a resource of the case form. The optional
// field "carpeta" picks the destination folder.
func (res Resource) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	if res.Uploader == nil {
		config.ErrorStatus("La carga de archivos no está configurada", http.StatusServiceUnavailable, w, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		config.ErrorStatus("No se pudo leer el archivo", http.StatusBadRequest, w, err)
		return
	}
	file, header, err := r.FormFile("archivo")
	if err != nil {
		config.ErrorStatus("Falta el archivo", http.StatusBadRequest, w, err)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	stored, err := res.Uploader.Upload(r.Context(), r.FormValue("carpeta"), header.Filename, mimeType, header.Size, file)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyFile) {
			config.ErrorStatus(err.Error(), http.StatusBadRequest, w, err)
			return
		}
		config.ErrorStatus("No se pudo subir el archivo", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

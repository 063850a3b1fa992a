package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/storekeep/modules/identity"
	"github.com/dmitrymomot/storekeep/pkg/objstore"
	"github.com/dmitrymomot/storekeep/pkg/response"
	"github.com/dmitrymomot/storekeep/pkg/validator"
)

// multipartMemoryLimit is how much of a multipart body is held in memory
// before spilling to temp files.
const multipartMemoryLimit = 32 << 20

// requestBodyLimit caps the whole upload request body. Twice the per-file
// limit leaves room for multi-file requests and multipart framing.
func (h *handler) requestBodyLimit() int64 {
	return 2 * h.svc.MaxFileSize()
}

// Router exposes the file HTTP API, intended to be mounted under /files.
// All routes require authentication via the given middleware:
//
//	POST   /                multipart upload, field "file" (repeatable)
//	GET    /                owned listing; ?shared=true for shared-with-me,
//	                        ?type= narrows by kind
//	GET    /{id}/download   blob stream
//	PATCH  /{id}            rename and/or share-list update
//	DELETE /{id}
func Router(svc *Service, authn func(http.Handler) http.Handler) chi.Router {
	h := &handler{svc: svc}

	r := chi.NewRouter()
	r.Use(authn)
	r.Post("/", h.upload)
	r.Get("/", h.list)
	r.Get("/{id}/download", h.download)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	return r
}

type handler struct {
	svc *Service
}

type failedUpload struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// upload accepts one or more files under the "file" field. Each file is
// validated and stored independently; one oversized file does not abort its
// siblings.
func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.requestBodyLimit())
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, response.ErrRequestEntityTooLarge)
			return
		}
		response.Error(w, response.ErrBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		response.Error(w, response.ErrBadRequest)
		return
	}

	uploaded := []FileRecord{}
	failed := []failedUpload{}
	for _, header := range headers {
		record, err := h.uploadOne(r, user, header)
		if err != nil {
			failed = append(failed, failedUpload{
				Name:  header.Filename,
				Error: errorKey(mapFilesError(err)),
			})
			continue
		}
		uploaded = append(uploaded, *record)
	}

	status := http.StatusCreated
	switch {
	case len(uploaded) == 0:
		status = http.StatusUnprocessableEntity
	case len(failed) > 0:
		status = http.StatusOK
	}
	response.JSON(w, status, map[string]any{
		"uploaded": uploaded,
		"failed":   failed,
	})
}

func (h *handler) uploadOne(r *http.Request, user *identity.User, header *multipart.FileHeader) (*FileRecord, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return h.svc.Upload(r.Context(), user, header.Filename, header.Size, contentType, file)
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	kind := ParseKind(r.URL.Query().Get("type"))
	if raw := r.URL.Query().Get("type"); raw != "" && kind == "" {
		response.Error(w, response.ErrBadRequest)
		return
	}

	var (
		records []FileRecord
		err     error
	)
	if r.URL.Query().Get("shared") == "true" {
		records, err = h.svc.ListShared(r.Context(), user, kind)
	} else {
		records, err = h.svc.ListOwned(r.Context(), user, kind)
	}
	if err != nil {
		response.Error(w, mapFilesError(err))
		return
	}
	response.JSON(w, http.StatusOK, records)
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, response.ErrNotFound)
		return
	}

	record, stream, err := h.svc.Download(r.Context(), user, fileID)
	if err != nil {
		response.Error(w, mapFilesError(err))
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(record.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Name))
	_, _ = io.Copy(w, stream)
}

type updatePayload struct {
	Name        string   `json:"name,omitempty"`
	ShareAdd    []string `json:"share_add,omitempty"`
	ShareRemove []string `json:"share_remove,omitempty"`
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, response.ErrNotFound)
		return
	}

	var payload updatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}
	if payload.Name == "" && len(payload.ShareAdd) == 0 && len(payload.ShareRemove) == 0 {
		response.Error(w, response.ErrBadRequest)
		return
	}

	var record *FileRecord
	if payload.Name != "" {
		record, err = h.svc.Rename(r.Context(), user, fileID, payload.Name)
		if err != nil {
			response.Error(w, mapFilesError(err))
			return
		}
	}
	if len(payload.ShareAdd) > 0 || len(payload.ShareRemove) > 0 {
		record, err = h.svc.UpdateShares(r.Context(), user, fileID, payload.ShareAdd, payload.ShareRemove)
		if err != nil {
			response.Error(w, mapFilesError(err))
			return
		}
	}
	response.JSON(w, http.StatusOK, record)
}

func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, response.ErrNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), user, fileID); err != nil {
		response.Error(w, mapFilesError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mapFilesError translates domain errors into HTTP errors; validation errors
// pass through for the 422 detail rendering.
func mapFilesError(err error) error {
	switch {
	case errors.Is(err, ErrFileNotFound):
		return response.ErrNotFound
	case errors.Is(err, ErrFileTooLarge):
		return response.ErrRequestEntityTooLarge
	case errors.Is(err, ErrUploadIncomplete):
		return response.ErrServiceUnavailable
	case errors.Is(err, ErrFileCleanupIncomplete):
		return response.NewHTTPError(http.StatusInternalServerError, "cleanup_incomplete")
	case errors.Is(err, objstore.ErrServiceUnavailable), errors.Is(err, objstore.ErrRequestTimeout):
		return response.ErrServiceUnavailable
	default:
		return err
	}
}

func errorKey(err error) string {
	if validator.IsValidationError(err) {
		return "validation_error"
	}
	var httpErr response.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Key
	}
	return response.ErrInternalServerError.Key
}

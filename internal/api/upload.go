package api

import (
	"mime/multipart"
	"net/http"

	"github.com/staysync/staysync/internal/imaging"
)

// maxUploadRequest bounds a whole multipart request, which may carry several images.
const maxUploadRequest = 5 * imaging.MaxUploadBytes

// parseUpload reads a multipart form, answering 400 when it cannot be parsed.
func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequest)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return false
	}
	return true
}

// formImage returns the single file posted under field.
func formImage(w http.ResponseWriter, r *http.Request, field string) (multipart.File, bool) {
	if !parseUpload(w, r) {
		return nil, false
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		jsonError(w, http.StatusBadRequest, field+" file required")
		return nil, false
	}
	return file, true
}

package web

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/vbonduro/pantry/internal/service"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		writeJSON(w, http.StatusBadRequest, result{Error: "failed to parse form"}, s.logger)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, result{Error: "image file required"}, s.logger)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, result{Error: "failed to read file"}, s.logger)
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		writeJSON(w, http.StatusBadRequest, result{Error: "unsupported image format"}, s.logger)
		return
	}

	// Detached so detected items are still stored if the client goes away
	// mid-analysis.
	items, err := s.service.ScanPhoto(context.WithoutCancel(r.Context()), imageData, mimeType)
	if err != nil {
		if errors.Is(err, service.ErrScanUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, result{Error: err.Error()}, s.logger)
			return
		}
		s.logger.Error("scan photo failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, result{Error: "failed to process photo"}, s.logger)
		return
	}

	writeJSON(w, http.StatusOK, result{Success: true, Count: intPtr(len(items)), Data: items}, s.logger)
}

package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reto-anonimo/apiserver/internal/storage"
)

// ImageHandler streams stored entry images. It is only mounted when an image
// storage backend is configured; without one, images stay inline as data URLs
// and there is nothing to serve.
type ImageHandler struct {
	images *storage.ImageSink
}

// ImageRouter registers the image route on the given router.
func ImageRouter(r chi.Router, images *storage.ImageSink) {
	handler := &ImageHandler{images: images}
	r.Get("/*", handler.Serve)
}

// Serve streams one stored image.
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	reader, contentType, err := h.images.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrUnknownImage) {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to load image")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	_, _ = io.Copy(w, reader)
}

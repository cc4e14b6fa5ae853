package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// maxImageBytes caps decoded entry images. Anything bigger than this was
// never going to render in a submission card anyway.
const maxImageBytes = 16 << 20

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageSink turns data URLs from submitting clients into stored objects with
// public URLs. When no storage backend is configured callers should skip the
// sink entirely and pass the data URL through unchanged.
type ImageSink struct {
	backend       ObjectStorage
	publicBaseURL string
}

// NewImageSink constructs an ImageSink writing through the given backend.
func NewImageSink(backend ObjectStorage, publicBaseURL string) *ImageSink {
	return &ImageSink{
		backend:       backend,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Store decodes a base64 data URL, uploads the image under a fresh key, and
// returns its public URL.
func (s *ImageSink) Store(ctx context.Context, dataURL string) (string, error) {
	mediaType, raw, err := splitDataURL(dataURL)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("decode image payload: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", errors.New("image too large")
	}

	ext, ok := extensions[mediaType]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", mediaType)
	}

	key := fmt.Sprintf("entries/%s.%s", uuid.NewString(), ext)
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mediaType); err != nil {
		return "", err
	}
	return s.publicURL(key), nil
}

// Open streams a stored entry image. The content type is recovered from the
// key extension.
func (s *ImageSink) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !strings.HasPrefix(key, "entries/") {
		return nil, "", ErrUnknownImage
	}
	r, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return r, contentTypeForKey(key), nil
}

// Remove deletes the stored object behind an entry image URL. URLs that do
// not point into this sink, data URLs included, are ignored.
func (s *ImageSink) Remove(ctx context.Context, imageURL string) error {
	key, ok := s.keyFromURL(imageURL)
	if !ok {
		return nil
	}
	return s.backend.Delete(ctx, key)
}

// ErrUnknownImage is returned for keys outside the entry image space.
var ErrUnknownImage = errors.New("unknown image")

// IsDataURL reports whether the string looks like a base64 data URL rather
// than an already-resolved image location.
func IsDataURL(value string) bool {
	return strings.HasPrefix(value, "data:")
}

func (s *ImageSink) keyFromURL(imageURL string) (string, bool) {
	var rest string
	var ok bool
	if s.publicBaseURL != "" {
		rest, ok = strings.CutPrefix(imageURL, s.publicBaseURL+"/")
	} else {
		rest, ok = strings.CutPrefix(imageURL, "/images/")
	}
	if !ok || !strings.HasPrefix(rest, "entries/") {
		return "", false
	}
	return rest, true
}

func contentTypeForKey(key string) string {
	ext := strings.ToLower(key[strings.LastIndex(key, ".")+1:])
	for mediaType, e := range extensions {
		if e == ext {
			return mediaType
		}
	}
	return "application/octet-stream"
}

func splitDataURL(dataURL string) (mediaType, payload string, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", "", errors.New("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", errors.New("malformed data URL")
	}
	mediaType, encoding, ok := strings.Cut(header, ";")
	if !ok || encoding != "base64" {
		return "", "", errors.New("data URL is not base64 encoded")
	}
	return mediaType, payload, nil
}

// publicURL resolves where clients fetch the image from: the CDN base when
// one is configured, otherwise this server's own /images route.
func (s *ImageSink) publicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return "/images/" + key
}

// Package storage keeps recipe images in a local media directory or an
// S3-compatible bucket.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var ErrInvalidImage = errors.New("invalid image")

const keyPrefix = "recipes/images"

type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

type ImageStore interface {
	Save(ctx context.Context, img Image) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// DecodeImage accepts a data URI ("data:image/png;base64,...") or bare
// base64 and checks that the payload really is an image.
func DecodeImage(encoded string) (Image, error) {
	payload := strings.TrimSpace(encoded)
	if payload == "" {
		return Image{}, ErrInvalidImage
	}

	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return Image{}, ErrInvalidImage
		}
		payload = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, ErrInvalidImage
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, ErrInvalidImage
	}

	return Image{
		Data:        data,
		ContentType: mt.String(),
		Extension:   mt.Extension(),
	}, nil
}

func newKey(ext string) string {
	return path.Join(keyPrefix, uuid.NewString()+ext)
}

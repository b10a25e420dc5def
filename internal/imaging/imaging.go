// Package imaging decodes browser data URIs and normalizes captured frames.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"labelstation/internal/model"
)

// JPEGQuality matches the quality used when captures are re-encoded.
const JPEGQuality = 90

// DecodeDataURI returns the raw bytes of a "data:<mime>;base64,<payload>" string.
// A bare base64 string is accepted as well.
func DecodeDataURI(uri string) ([]byte, error) {
	payload := strings.TrimSpace(uri)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, fmt.Errorf("data uri without payload: %w", model.ErrMalformedPayload)
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, fmt.Errorf("empty image: %w", model.ErrMalformedPayload)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %v: %w", err, model.ErrMalformedPayload)
	}
	return data, nil
}

// EncodeDataURI wraps raw image bytes in a data URI with a sniffed mime type.
func EncodeDataURI(data []byte) string {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Dimensions reads the image header without decoding pixels.
func Dimensions(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("decode image header: %v: %w", err, model.ErrMalformedPayload)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, "", fmt.Errorf("empty image %dx%d: %w", cfg.Width, cfg.Height, model.ErrMalformedPayload)
	}
	return cfg.Width, cfg.Height, format, nil
}

// Check fully decodes the image and returns its size and format. A header
// that parses over truncated or corrupt pixel data is rejected.
func Check(data []byte) (width, height int, format string, err error) {
	_, width, height, format, err = decode(data)
	return width, height, format, err
}

func decode(data []byte) (image.Image, int, int, string, error) {
	width, height, format, err := Dimensions(data)
	if err != nil {
		return nil, 0, 0, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, "", fmt.Errorf("decode %s image: %v: %w", format, err, model.ErrMalformedPayload)
	}
	return img, width, height, format, nil
}

// NormalizeJPEG returns the frame as JPEG. Every input is decoded in full;
// JPEG input is then kept byte for byte, other formats are re-encoded.
func NormalizeJPEG(data []byte) ([]byte, int, int, error) {
	img, width, height, format, err := decode(data)
	if err != nil {
		return nil, 0, 0, err
	}
	if format == "jpeg" {
		return data, width, height, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), width, height, nil
}

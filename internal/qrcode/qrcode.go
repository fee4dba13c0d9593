// Package qrcode renders badge payloads as QR images.
package qrcode

import (
	"encoding/base64"
	"fmt"
	"image"

	goqrcode "github.com/skip2/go-qrcode"

	"lab-tracker-backend/internal/identity"
)

// DefaultSize is the badge edge length in pixels.
const DefaultSize = 290

// PNG encodes p as a QR code PNG.
func PNG(p identity.Payload, size int) ([]byte, error) {
	png, err := goqrcode.Encode(p.Encode(), goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode badge for person %d: %w", p.ID, err)
	}
	return png, nil
}

// Base64PNG is PNG, base64 encoded for JSON responses.
func Base64PNG(p identity.Payload, size int) (string, error) {
	png, err := PNG(p, size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// Image renders arbitrary text as a QR image.
func Image(content string, size int) (image.Image, error) {
	q, err := goqrcode.New(content, goqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to build QR code: %w", err)
	}
	return q.Image(size), nil
}

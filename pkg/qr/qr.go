package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Encoder renders QR codes as PNG images.
type Encoder struct {
	size int
}

// NewEncoder constructs an encoder producing square PNGs of the given pixel size.
func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = 256
	}
	return &Encoder{size: size}
}

// EncodePNG returns the payload encoded as a PNG image.
func (e *Encoder) EncodePNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qr payload required")
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, e.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// EncodeDataURI returns the payload as an inline image/png data URI.
func (e *Encoder) EncodeDataURI(payload string) (string, error) {
	png, err := e.EncodePNG(payload)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

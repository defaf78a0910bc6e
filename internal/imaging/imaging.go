// Package imaging turns raw image files into bounded-size JPEG payloads.
// Companion clients use the capture profile before sending a photo over the
// socket; the relay re-encodes stored uploads with the larger store profile.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

const (
	// Capture profile: what a companion sends over the socket.
	CaptureMaxEdge = 600
	CaptureQuality = 60

	// Store profile: what the relay keeps on disk.
	StoreMaxEdge = 800
	StoreQuality = 70
)

// Process decodes the source image, downscales it so the longer edge does not
// exceed CaptureMaxEdge (never upscaling), re-encodes it as JPEG and returns
// the raw base64 payload without a data-URI prefix.
func Process(r io.Reader) (string, error) {
	data, err := Reencode(r, CaptureMaxEdge, CaptureQuality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ProcessFile is Process applied to a file on disk.
func ProcessFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()
	return Process(f)
}

// Reencode decodes any supported image (JPEG, PNG, GIF), clamps the longer
// edge to maxEdge while preserving aspect ratio, and encodes the result as a
// JPEG at the given quality. Images already within the bound keep their
// dimensions.
func Reencode(r io.Reader, maxEdge, quality int) ([]byte, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tw, th := Fit(w, h, maxEdge)

	if tw != w || th != h {
		dst := image.NewRGBA(image.Rect(0, 0, tw, th))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode %s image as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Fit returns the dimensions after clamping the longer edge to maxEdge.
// Dimensions within the bound are returned unchanged; there is no upscaling.
func Fit(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		scaled := h * maxEdge / w
		if scaled < 1 {
			scaled = 1
		}
		return maxEdge, scaled
	}
	scaled := w * maxEdge / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxEdge
}

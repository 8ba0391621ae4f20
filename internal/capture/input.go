// Package capture turns file uploads and camera frames into menu captures.
package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	apperrors "menu-scorecard/internal/common/errors"
)

// Source identifies where a capture came from.
type Source string

const (
	SourceFile   Source = "file"
	SourceCamera Source = "camera"
)

const mediaTypePDF = "application/pdf"

// Input is one menu capture: raw bytes plus their media type. It is consumed
// by a single analysis and then dropped.
type Input struct {
	Data      []byte
	MediaType string
	Source    Source
}

// Base64 returns the transport encoding sent to the model.
func (in Input) Base64() string {
	return base64.StdEncoding.EncodeToString(in.Data)
}

// Size returns the capture length in bytes.
func (in Input) Size() int {
	return len(in.Data)
}

// Accepted reports whether mediaType is an image or a PDF.
func Accepted(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/") || mediaType == mediaTypePDF
}

// FromFile reads an uploaded menu. declaredType is the client supplied content
// type; when it is missing or generic the content is sniffed instead. Files
// larger than limit bytes are rejected.
func FromFile(r io.Reader, declaredType string, limit int64) (Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Input{}, apperrors.NewInvalidCaptureError(fmt.Sprintf("read upload: %v", err))
	}
	if int64(len(data)) > limit {
		return Input{}, apperrors.NewCaptureTooLargeError(limit)
	}
	if len(data) == 0 {
		return Input{}, apperrors.NewInvalidCaptureError("empty file")
	}

	mediaType := baseMediaType(declaredType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = sniff(data)
	}
	if !Accepted(mediaType) {
		return Input{}, apperrors.NewInvalidCaptureError(fmt.Sprintf("unsupported media type %q", mediaType))
	}

	return Input{Data: data, MediaType: mediaType, Source: SourceFile}, nil
}

// FromDataURL decodes a camera frame encoded as data:<type>;base64,<payload>.
func FromDataURL(dataURL string, limit int64) (Input, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(dataURL), "data:")
	if !ok {
		return Input{}, apperrors.NewInvalidCaptureError("capture is not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Input{}, apperrors.NewInvalidCaptureError("data URL has no payload")
	}
	mediaType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return Input{}, apperrors.NewInvalidCaptureError("data URL must be base64 encoded")
	}

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > limit+2 {
		return Input{}, apperrors.NewCaptureTooLargeError(limit)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Input{}, apperrors.NewInvalidCaptureError(fmt.Sprintf("decode data URL: %v", err))
	}
	if int64(len(data)) > limit {
		return Input{}, apperrors.NewCaptureTooLargeError(limit)
	}
	if len(data) == 0 {
		return Input{}, apperrors.NewInvalidCaptureError("empty capture")
	}

	mediaType = baseMediaType(mediaType)
	if mediaType == "" {
		mediaType = sniff(data)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return Input{}, apperrors.NewInvalidCaptureError(fmt.Sprintf("camera capture must be an image, got %q", mediaType))
	}

	return Input{Data: data, MediaType: mediaType, Source: SourceCamera}, nil
}

func baseMediaType(v string) string {
	if v == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return mediaType
}

func sniff(data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return mediaTypePDF
	}
	return baseMediaType(http.DetectContentType(data))
}

// Package media stores images attached to posts.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize 上传图片大小上限 (10MB)
const MaxImageSize = 10 << 20

// sniffLen 与 mimetype 默认读取的头部长度一致
const sniffLen = 3072

// ErrNotImage is returned when the uploaded bytes are not a supported image.
var ErrNotImage = errors.New("not a supported image")

// Store saves uploaded images under generated keys and maps keys to public URLs.
// The stored type is detected from the content, never taken from the client.
type Store interface {
	Save(ctx context.Context, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Allowed reports whether contentType is an image type posts may carry.
func Allowed(contentType string) bool {
	_, ok := allowedTypes[normalizeType(contentType)]
	return ok
}

// Detect returns the image type of data, judged by its magic bytes.
func Detect(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	// apng 等子类型按父类型处理
	for m := mtype; m != nil; m = m.Parent() {
		if Allowed(m.String()) {
			return m.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotImage, mtype.String())
}

// Sniff detects the image type of r. The returned reader replays the whole
// content, including the bytes consumed while sniffing.
func Sniff(r io.Reader) (string, io.Reader, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	header = header[:n]
	body := io.MultiReader(bytes.NewReader(header), r)

	contentType, err := Detect(header)
	return contentType, body, err
}

// NewKey returns a unique key like posts/2024/3/9/<uuid>.png.
// The extension always follows contentType.
func NewKey(now time.Time, contentType string) string {
	ext := allowedTypes[normalizeType(contentType)]
	return fmt.Sprintf("posts/%d/%d/%d/%v%s", now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}

func normalizeType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

func joinURL(prefix, key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(key, "/")
}

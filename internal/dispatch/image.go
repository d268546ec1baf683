package dispatch

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// maxImageBytes bounds what we are willing to inline into a payload
const maxImageBytes = 10 << 20

// EncodeImageFile reads an image and returns it as a data URI
func EncodeImageFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageEncode, err)
	}
	if info.Size() > maxImageBytes {
		return "", fmt.Errorf("%w: %s is larger than %d bytes", ErrImageEncode, path, maxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageEncode, err)
	}
	return EncodeImage(data)
}

// EncodeImage returns data as a base64 data URI, rejecting non-images
func EncodeImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrImageEncode)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: unsupported content type %s", ErrImageEncode, mtype.String())
	}

	return "data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

package chat

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DecodeImage turns a base64 payload, optionally carrying a data URI header
// ("data:image/png;base64,"), into a raster image.
func DecodeImage(encoded string) (image.Image, error) {
	s := strings.TrimSpace(encoded)
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return nil, ErrImageDecode(errors.New("data URI has no payload"))
		}
		s = s[i+1:]
	}
	if s == "" {
		return nil, ErrImageDecode(errors.New("empty image payload"))
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return nil, ErrImageDecode(fmt.Errorf("invalid base64: %w", err))
		}
	}
	mt := mimetype.Detect(raw)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrImageDecode(fmt.Errorf("payload is %s, not an image", mt.String()))
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrImageDecode(fmt.Errorf("%s: %w", mt.String(), err))
	}
	return img, nil
}

package extractor

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeDataURL decodes a webcam capture of the form "data:image/jpeg;base64,...".
// A bare base64 payload without the data: prefix is accepted as well.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	payload := s
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("%w: data URL is not base64 encoded", ErrInvalidImage)
		}
		if !strings.HasPrefix(meta, "image/") {
			return nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidImage, strings.TrimSuffix(meta, ";base64"))
		}
		payload = data
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some browsers omit padding.
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
		}
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	return decoded, nil
}

package extractor

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeDataURL(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	encoded := base64.StdEncoding.EncodeToString(payload)
	raw := base64.RawStdEncoding.EncodeToString(payload)

	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"jpeg data url", "data:image/jpeg;base64," + encoded, payload, false},
		{"png data url", "data:image/png;base64," + encoded, payload, false},
		{"bare base64", encoded, payload, false},
		{"missing padding", "data:image/jpeg;base64," + raw, payload, false},
		{"surrounding whitespace", "  data:image/jpeg;base64," + encoded + "\n", payload, false},
		{"empty", "", nil, true},
		{"no comma", "data:image/jpeg;base64", nil, true},
		{"not base64 encoded", "data:image/jpeg," + encoded, nil, true},
		{"not an image", "data:text/plain;base64," + encoded, nil, true},
		{"garbage", "data:image/jpeg;base64,@@@", nil, true},
		{"empty payload", "data:image/jpeg;base64,", nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeDataURL(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidImage) {
					t.Errorf("DecodeDataURL(%q) error = %v, want ErrInvalidImage", tc.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDataURL(%q) unexpected error: %v", tc.input, err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("DecodeDataURL(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

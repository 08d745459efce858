package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

const (
	defaultEmbeddingURL = "http://localhost:8000"
	defaultTimeout      = 30 * time.Second
)

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// Width returns the bounding box width in pixels, or 0 when the box is missing.
func (f FaceDetection) Width() float64 {
	if len(f.BBox) < 4 {
		return 0
	}
	return f.BBox[2] - f.BBox[0]
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Client extracts face embeddings using the embedding server.
type Client struct {
	baseURL         string
	model           string
	client          *http.Client
	maxImageSize    int
	minFaceWidthRel float64
	ready           atomic.Bool
}

// NewClient creates a new embedding server client
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &Client{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		model:           model,
		client:          &http.Client{Timeout: defaultTimeout},
		maxImageSize:    constants.MaxImageSize,
		minFaceWidthRel: constants.MinFaceWidthRel,
	}
}

// SetHTTPClient replaces the HTTP client used for requests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.client = client
}

// SetMinFaceWidthRel sets the minimum face width relative to the image width. Zero disables the filter.
func (c *Client) SetMinFaceWidthRel(rel float64) {
	c.minFaceWidthRel = rel
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Initialize checks the embedding server health endpoint and marks the client ready.
func (c *Client) Initialize(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", ErrUnavailable, resp.StatusCode)
	}

	c.ready.Store(true)
	logging.From(ctx).Info("Embedding server ready", "url", c.baseURL)
	return nil
}

// Ready reports whether Initialize has succeeded.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// Extract returns the embedding of the most confident face in the image.
// The image is downscaled and re-encoded as JPEG before upload.
func (c *Client) Extract(ctx context.Context, image []byte) (facematch.Embedding, error) {
	if !c.Ready() {
		return nil, ErrNotReady
	}

	prepared, err := PrepareImage(image, c.maxImageSize)
	if err != nil {
		return nil, err
	}

	body, err := c.postMultipartImage(ctx, "/embed/face", prepared.Data)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrUnavailable, err)
	}

	face, ok := pickFace(faceResp.Faces, float64(prepared.Width)*c.minFaceWidthRel)
	if !ok {
		return nil, ErrFaceNotFound
	}

	logging.From(ctx).Debug("Face extracted",
		"faces", len(faceResp.Faces),
		"det_score", face.DetScore,
		"dim", len(face.Embedding),
	)
	return facematch.FromFloat32(face.Embedding), nil
}

// pickFace returns the detection with the highest score among faces at least minWidth wide.
// Faces without a bounding box are never filtered out by size.
func pickFace(faces []FaceDetection, minWidth float64) (FaceDetection, bool) {
	var best FaceDetection
	found := false
	for _, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		if w := f.Width(); w > 0 && w < minWidth {
			continue
		}
		if !found || f.DetScore > best.DetScore {
			best = f
			found = true
		}
	}
	return best, found
}

// postMultipartImage posts a JPEG image as a multipart form file to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: server rejected image (status %d): %s", ErrInvalidImage, resp.StatusCode, string(body))
	default:
		return nil, fmt.Errorf("%w: API error (status %d): %s", ErrUnavailable, resp.StatusCode, string(body))
	}
}

var _ Extractor = (*Client)(nil)

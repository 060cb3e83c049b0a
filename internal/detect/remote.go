package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"facetrace/internal/models"
)

// RemoteDetector calls a detection sidecar service over HTTP. The sidecar
// owns the model; this client only ships frames and parses results.
type RemoteDetector struct {
	endpoint string
	mode     Mode
	upsample int
	client   *http.Client
}

type RemoteConfig struct {
	Endpoint string
	Mode     Mode
	// Upsample is forwarded to the backend; higher values detect smaller
	// faces at higher inference cost.
	Upsample int
}

// wire format of the sidecar's /detect response
type remoteDetection struct {
	Box        []int     `json:"box"`
	Confidence *float64  `json:"confidence,omitempty"`
	Embedding  []float64 `json:"embedding,omitempty"`
	TrackID    *int      `json:"track_id,omitempty"`
}

type remoteResponse struct {
	Detections []remoteDetection `json:"detections"`
}

type remoteHealth struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

func NewRemoteDetector(config RemoteConfig) *RemoteDetector {
	upsample := config.Upsample
	if upsample <= 0 {
		upsample = 1
	}
	mode := config.Mode
	if mode == "" {
		mode = ModeEmbedding
	}

	return &RemoteDetector{
		endpoint: config.Endpoint,
		mode:     mode,
		upsample: upsample,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (d *RemoteDetector) Mode() Mode {
	return d.mode
}

func (d *RemoteDetector) Detect(ctx context.Context, frame image.Image) ([]Candidate, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if err := jpeg.Encode(part, frame, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := writer.WriteField("mode", string(d.mode)); err != nil {
		return nil, fmt.Errorf("failed to write mode field: %w", err)
	}
	if err := writer.WriteField("upsample", strconv.Itoa(d.upsample)); err != nil {
		return nil, fmt.Errorf("failed to write upsample field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/detect", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("detection service returned %d: %s", resp.StatusCode, data)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Detections))
	for _, det := range parsed.Detections {
		if len(det.Box) != 4 {
			return nil, fmt.Errorf("malformed box in detection response: %v", det.Box)
		}
		candidates = append(candidates, Candidate{
			Box: models.Box{
				Left:   det.Box[0],
				Top:    det.Box[1],
				Right:  det.Box[2],
				Bottom: det.Box[3],
			},
			Confidence: det.Confidence,
			Embedding:  det.Embedding,
			TrackID:    det.TrackID,
		})
	}
	return candidates, nil
}

// CheckHealth probes the sidecar's /health endpoint.
func (d *RemoteDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detection service unhealthy: status %d", resp.StatusCode)
	}

	var health remoteHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if !health.ModelLoaded {
		return fmt.Errorf("detection service model not loaded")
	}
	return nil
}
